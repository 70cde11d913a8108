// Package tape implements the packed binary tape representation used by the
// parsing engine. Each (row, column) field occupies two 64-bit cells: a
// descriptor cell recording where the raw bytes live in the input buffer,
// and a value cell holding the decoded bit pattern.
//
// The tape is positional, not self-describing: cell index = 2*(row*cols+col),
// and the value cell must always be interpreted under the column's final
// TypeCode, which the engine reports separately.
package tape

import (
	"math"
	"time"
)

// Descriptor cell layout. Offsets address up to 4 TiB of input; a single
// field may be up to 1 MiB long.
const (
	descLenBits = 20
	descOffBits = 42

	descLenMask = (1 << descLenBits) - 1
	descOffMask = (1 << descOffBits) - 1

	descMissingBit = uint64(1) << 63
	descEscapedBit = uint64(1) << 62

	// MaxOffset is the largest buffer offset a descriptor can address.
	MaxOffset = descOffMask
	// MaxFieldLen is the largest raw field length a descriptor can record.
	MaxFieldLen = descLenMask
)

// PackDescriptor packs a field's buffer offset, byte length and flags into a
// descriptor cell. Missing fields keep their offset and length so the raw
// sentinel text remains recoverable.
func PackDescriptor(off, length int, missing, escaped bool) uint64 {
	d := uint64(off&descOffMask)<<descLenBits | uint64(length&descLenMask)
	if missing {
		d |= descMissingBit
	}
	if escaped {
		d |= descEscapedBit
	}
	return d
}

// DescOffset returns the buffer offset recorded in a descriptor cell.
func DescOffset(d uint64) int { return int((d >> descLenBits) & descOffMask) }

// DescLen returns the raw byte length recorded in a descriptor cell.
func DescLen(d uint64) int { return int(d & descLenMask) }

// DescMissing reports whether the descriptor marks a missing field.
func DescMissing(d uint64) bool { return d&descMissingBit != 0 }

// DescEscaped reports whether the raw field contains escape sequences and
// must be unescaped before use.
func DescEscaped(d uint64) bool { return d&descEscapedBit != 0 }

// Value cell encodings. The tape stores raw 64-bit patterns; these helpers
// define the per-kind interpretation.

// IntValue encodes a signed integer value cell.
func IntValue(v int64) uint64 { return uint64(v) }

// IntFromValue decodes a signed integer value cell.
func IntFromValue(c uint64) int64 { return int64(c) }

// FloatValue encodes a float value cell.
func FloatValue(v float64) uint64 { return math.Float64bits(v) }

// FloatFromValue decodes a float value cell.
func FloatFromValue(c uint64) float64 { return math.Float64frombits(c) }

// BoolValue encodes a boolean value cell.
func BoolValue(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

// BoolFromValue decodes a boolean value cell.
func BoolFromValue(c uint64) bool { return c != 0 }

// DateValue encodes a date as days since the Unix epoch. Division floors so
// pre-epoch dates land on the correct day.
func DateValue(t time.Time) uint64 {
	sec := t.Unix()
	days := sec / 86400
	if sec%86400 < 0 {
		days--
	}
	return uint64(days)
}

// DateFromValue decodes a date value cell.
func DateFromValue(c uint64) time.Time {
	return time.Unix(int64(c)*86400, 0).UTC()
}

// DateTimeValue encodes a datetime as Unix microseconds.
func DateTimeValue(t time.Time) uint64 { return uint64(t.UnixMicro()) }

// DateTimeFromValue decodes a datetime value cell.
func DateTimeFromValue(c uint64) time.Time { return time.UnixMicro(int64(c)).UTC() }

// RefValue encodes a pooled-string reference id.
func RefValue(ref uint32) uint64 { return uint64(ref) }

// RefFromValue decodes a pooled-string reference id.
func RefFromValue(c uint64) uint32 { return uint32(c) }

// Tape is the flat array of descriptor/value cell pairs for one chunk. It
// grows by capacity doubling when the row estimate proves too small; there is
// no virtual-memory over-allocation trick behind it.
type Tape struct {
	cells []uint64
	cols  int
	rows  int
}

// New creates a tape pre-sized for the estimated row count. The estimate
// only sizes the initial allocation; the tape grows as rows are written.
func New(estimatedRows, cols int) *Tape {
	if estimatedRows < 1 {
		estimatedRows = 1
	}
	return &Tape{
		cells: make([]uint64, 0, 2*estimatedRows*cols),
		cols:  cols,
	}
}

// Cols returns the column count.
func (t *Tape) Cols() int { return t.cols }

// Rows returns the number of rows written so far.
func (t *Tape) Rows() int { return t.rows }

// AppendRow extends the tape by one zeroed row and returns its index.
func (t *Tape) AppendRow() int {
	need := len(t.cells) + 2*t.cols
	if need > cap(t.cells) {
		grown := make([]uint64, len(t.cells), max(need, 2*cap(t.cells)))
		copy(grown, t.cells)
		t.cells = grown
	}
	t.cells = t.cells[:need]
	row := t.rows
	t.rows++
	return row
}

// Set writes the descriptor and value cells for one field.
func (t *Tape) Set(row, col int, desc, value uint64) {
	i := 2 * (row*t.cols + col)
	t.cells[i] = desc
	t.cells[i+1] = value
}

// SetValue overwrites only the value cell for one field.
func (t *Tape) SetValue(row, col int, value uint64) {
	t.cells[2*(row*t.cols+col)+1] = value
}

// Descriptor returns the descriptor cell for one field.
func (t *Tape) Descriptor(row, col int) uint64 {
	return t.cells[2*(row*t.cols+col)]
}

// Value returns the value cell for one field.
func (t *Tape) Value(row, col int) uint64 {
	return t.cells[2*(row*t.cols+col)+1]
}

// Truncate discards rows from the end, keeping the first n. Used when a row
// limit or footer skip cuts the parse short.
func (t *Tape) Truncate(n int) {
	if n >= t.rows {
		return
	}
	t.rows = n
	t.cells = t.cells[:2*n*t.cols]
}

// AppendTape appends all rows of src, which must have the same column
// count. Used when per-chunk tapes are stitched into one.
func (t *Tape) AppendTape(src *Tape) {
	if src.cols != t.cols {
		panic("tape: column count mismatch")
	}
	t.cells = append(t.cells, src.cells...)
	t.rows += src.rows
}

// Raw returns the backing cell slice. The layout is positional; callers must
// interpret value cells under the column's final TypeCode.
func (t *Tape) Raw() []uint64 { return t.cells }
