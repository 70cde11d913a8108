package parser

import (
	"github.com/ajitpratap0/pulsar/pkg/tape"
)

// TapeReader decodes tape cells back into Go values under the final column
// codes. It is a convenience layer for consumers that want materialized
// values rather than raw cells.
type TapeReader struct {
	buf []byte
	res *Result
	o   *Options
}

// NewTapeReader wraps a result and the input buffer its descriptors point
// into. The options must be the ones the result was parsed under.
func NewTapeReader(buf []byte, res *Result, o *Options) *TapeReader {
	return &TapeReader{buf: buf, res: res, o: o}
}

// Missing reports whether the field at (row, col) is missing.
func (tr *TapeReader) Missing(row, col int) bool {
	return tape.DescMissing(tr.res.Tape.Descriptor(row, col))
}

// Raw returns the original field text, unescaped when necessary.
func (tr *TapeReader) Raw(row, col int) string {
	d := tr.res.Tape.Descriptor(row, col)
	b := tr.buf[tape.DescOffset(d) : tape.DescOffset(d)+tape.DescLen(d)]
	if tape.DescEscaped(d) {
		b = unescape(b, tr.o)
	}
	return string(b)
}

// Value materializes the field at (row, col) as a Go value. Missing fields
// return nil.
func (tr *TapeReader) Value(row, col int) interface{} {
	d := tr.res.Tape.Descriptor(row, col)
	if tape.DescMissing(d) {
		return nil
	}
	c := tr.res.Tape.Value(row, col)
	colMeta := tr.res.Columns[col]

	switch colMeta.Code.Kind {
	case tape.KindInt:
		return tape.IntFromValue(c)
	case tape.KindFloat:
		return tape.FloatFromValue(c)
	case tape.KindBool:
		return tape.BoolFromValue(c)
	case tape.KindDate:
		return tape.DateFromValue(c)
	case tape.KindDateTime:
		return tape.DateTimeFromValue(c)
	case tape.KindPooledString:
		if colMeta.Pool != nil {
			if s, ok := colMeta.Pool.Resolve(tape.RefFromValue(c)); ok {
				return s
			}
		}
		return tr.Raw(row, col)
	default:
		return tr.Raw(row, col)
	}
}

// Row materializes one row as a name-keyed map.
func (tr *TapeReader) Row(row int) map[string]interface{} {
	out := make(map[string]interface{}, len(tr.res.Names))
	for c, name := range tr.res.Names {
		out[name] = tr.Value(row, c)
	}
	return out
}
