package parser

import (
	"time"

	"github.com/ajitpratap0/pulsar/pkg/errors"
	"github.com/ajitpratap0/pulsar/pkg/floatconv"
	"github.com/ajitpratap0/pulsar/pkg/pool"
	strpool "github.com/ajitpratap0/pulsar/pkg/strings"
	"github.com/ajitpratap0/pulsar/pkg/tape"
)

// Column is the per-column working descriptor: the current type code, the
// reference pool while the column is a pooling candidate, and the largest
// raw string length observed.
type Column struct {
	Name   string
	Code   tape.TypeCode
	Pool   *pool.RefPool
	MaxLen int
}

// encoder writes one field into the tape under a column's current type,
// promoting the type through the lattice when parsing fails under it.
type encoder struct {
	buf     []byte
	o       *Options
	warns   *warningLog
	estRows int
}

// encodeField parses tok under col's current kind and writes the two cells
// for (row, col). The column's TypeCode is updated in place on promotion or
// when a missing value is seen.
func (e *encoder) encodeField(t *tape.Tape, row, colIdx int, col *Column, tok fieldToken) error {
	// descriptor cells bit-pack offset and length; a field beyond either
	// bound would silently wrap and read back as the wrong bytes
	if tok.view.Len > tape.MaxFieldLen {
		return errors.Newf(errors.ErrorTypeParse,
			"field of %d bytes exceeds the %d byte limit", tok.view.Len, tape.MaxFieldLen).
			WithDetail("row", row).WithDetail("column", colIdx)
	}
	if tok.view.Off > tape.MaxOffset {
		return errors.Newf(errors.ErrorTypeParse,
			"field offset %d exceeds the addressable input size", tok.view.Off).
			WithDetail("row", row).WithDetail("column", colIdx)
	}

	value := tok.view.Bytes(e.buf)
	if tok.escaped {
		value = unescape(value, e.o)
	}

	desc := tape.PackDescriptor(tok.view.Off, tok.view.Len, false, tok.escaped)

	// missing sentinel check comes first: an empty field never drives
	// promotion, it only sets the missing flag
	if e.o.isMissing(strpool.BytesToString(value)) {
		t.Set(row, colIdx, tape.PackDescriptor(tok.view.Off, tok.view.Len, true, tok.escaped),
			tape.RefValue(pool.MissingRef))
		col.Code = col.Code.WithMissing()
		return nil
	}

	kind := col.Code.Kind
	if kind == tape.KindUndetermined {
		kind = e.sniffKind(value)
		col.Code = tape.Promote(col.Code, kind)
		if kind == tape.KindPooledString && col.Pool == nil {
			col.Pool = pool.NewRefPool(e.o.PoolThreshold, e.estRows, false)
		}
	}

	for {
		cell, ok := e.tryEncode(kind, value, col)
		if ok {
			if kind == tape.KindString || kind == tape.KindPooledString {
				if tok.view.Len > col.MaxLen {
					col.MaxLen = tok.view.Len
				}
			}
			t.Set(row, colIdx, desc, cell)
			col.Code = tape.Promote(col.Code, kind)
			return nil
		}

		if col.Code.User {
			raw := strpool.BytesToString(value)
			if e.o.Strict {
				return errors.Newf(errors.ErrorTypeParse,
					"value does not parse as declared type %s", col.Code.Kind).
					WithField(row, colIdx, string(value))
			}
			t.Set(row, colIdx, tape.PackDescriptor(tok.view.Off, tok.view.Len, true, tok.escaped),
				tape.RefValue(pool.MissingRef))
			col.Code = col.Code.WithMissing()
			e.warns.addf(WarnCoerced, row, colIdx,
				"%q does not parse as %s; recorded as missing", raw, col.Code.Kind)
			return nil
		}

		kind = widen(kind)
		col.Code = tape.Promote(col.Code, kind)
		if kind == tape.KindPooledString && col.Pool == nil && e.o.PoolThreshold > 0 {
			col.Pool = pool.NewRefPool(e.o.PoolThreshold, e.estRows, false)
		}
	}
}

// tryEncode attempts to produce a value cell for one kind. The bool result
// is false when the raw bytes do not parse under the kind.
func (e *encoder) tryEncode(kind tape.Kind, value []byte, col *Column) (uint64, bool) {
	switch kind {
	case tape.KindInt:
		v, overflow, ok := parseInt(value)
		if !ok || overflow {
			// integer overflow is an inferred-kind failure: the value
			// still widens cleanly into a float
			return 0, false
		}
		return tape.IntValue(v), true

	case tape.KindFloat:
		f, err := floatconv.Parse(value, e.o.Decimal, floatconv.Float64)
		if err != nil {
			return 0, false
		}
		return tape.FloatValue(f), true

	case tape.KindBool:
		s := strpool.BytesToString(value)
		if _, ok := e.o.True[s]; ok {
			return tape.BoolValue(true), true
		}
		if _, ok := e.o.False[s]; ok {
			return tape.BoolValue(false), true
		}
		return 0, false

	case tape.KindDate:
		tm, err := time.Parse(e.o.DateFormat, strpool.BytesToString(value))
		if err != nil {
			return 0, false
		}
		return tape.DateValue(tm), true

	case tape.KindDateTime:
		tm, err := time.Parse(e.o.DateTimeFormat, strpool.BytesToString(value))
		if err != nil {
			return 0, false
		}
		return tape.DateTimeValue(tm), true

	case tape.KindPooledString:
		if col.Pool != nil {
			view := strpool.View{Off: 0, Len: len(value)}
			if ref, ok := col.Pool.GetOrInsert(value, view); ok {
				return tape.RefValue(ref), true
			}
		}
		// pooling abandoned; demote to plain string
		return 0, false

	case tape.KindString:
		// string columns live in their descriptors; the value cell is unused
		return 0, true

	default:
		return 0, false
	}
}

// sniffKind picks the narrowest kind a first-seen value parses as.
func (e *encoder) sniffKind(value []byte) tape.Kind {
	if _, overflow, ok := parseInt(value); ok && !overflow {
		return tape.KindInt
	}
	if _, err := floatconv.Parse(value, e.o.Decimal, floatconv.Float64); err == nil {
		return tape.KindFloat
	}
	s := strpool.BytesToString(value)
	if _, ok := e.o.True[s]; ok {
		return tape.KindBool
	}
	if _, ok := e.o.False[s]; ok {
		return tape.KindBool
	}
	if _, err := time.Parse(e.o.DateFormat, s); err == nil {
		return tape.KindDate
	}
	if _, err := time.Parse(e.o.DateTimeFormat, s); err == nil {
		return tape.KindDateTime
	}
	if e.o.PoolThreshold > 0 {
		return tape.KindPooledString
	}
	return tape.KindString
}

// widen moves one step up the promotion lattice after a parse failure.
func widen(kind tape.Kind) tape.Kind {
	switch kind {
	case tape.KindUndetermined:
		return tape.KindString
	case tape.KindInt:
		return tape.KindFloat
	default:
		return tape.KindString
	}
}

// parseInt parses a decimal integer with explicit overflow detection.
// Overflow is reported separately so the caller can widen to float rather
// than fail outright.
func parseInt(b []byte) (v int64, overflow, ok bool) {
	if len(b) == 0 {
		return 0, false, false
	}
	i := 0
	neg := false
	if b[0] == '+' || b[0] == '-' {
		neg = b[0] == '-'
		i++
		if i == len(b) {
			return 0, false, false
		}
	}
	var u uint64
	for ; i < len(b); i++ {
		c := b[i]
		if c < '0' || c > '9' {
			return 0, false, false
		}
		if u > (1<<63)/10 {
			overflow = true
		}
		u = u*10 + uint64(c-'0')
		if u > 1<<63 {
			overflow = true
		}
	}
	if overflow {
		return 0, true, true
	}
	if neg {
		return -int64(u), false, true
	}
	if u == 1<<63 {
		return 0, true, true
	}
	return int64(u), false, true
}
