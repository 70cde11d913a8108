package tape

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackDescriptorRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		off     int
		length  int
		missing bool
		escaped bool
	}{
		{"zero", 0, 0, false, false},
		{"small", 42, 17, false, false},
		{"missing", 100, 0, true, false},
		{"escaped", 3, 9, false, true},
		{"both flags", 7, 1, true, true},
		{"max length", 0, 1<<20 - 1, false, false},
		{"large offset", 1<<42 - 1, 5, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := PackDescriptor(tt.off, tt.length, tt.missing, tt.escaped)
			assert.Equal(t, tt.off, DescOffset(d))
			assert.Equal(t, tt.length, DescLen(d))
			assert.Equal(t, tt.missing, DescMissing(d))
			assert.Equal(t, tt.escaped, DescEscaped(d))
		})
	}
}

func TestValueCellCodecs(t *testing.T) {
	assert.Equal(t, int64(-42), IntFromValue(IntValue(-42)))
	assert.Equal(t, int64(math.MaxInt64), IntFromValue(IntValue(math.MaxInt64)))
	assert.Equal(t, int64(math.MinInt64), IntFromValue(IntValue(math.MinInt64)))

	assert.Equal(t, 2.5, FloatFromValue(FloatValue(2.5)))
	assert.True(t, math.IsNaN(FloatFromValue(FloatValue(math.NaN()))))
	negZero := FloatFromValue(FloatValue(math.Copysign(0, -1)))
	assert.True(t, math.Signbit(negZero))

	assert.True(t, BoolFromValue(BoolValue(true)))
	assert.False(t, BoolFromValue(BoolValue(false)))

	assert.Equal(t, uint32(7), RefFromValue(RefValue(7)))
}

func TestDateValueRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		date string
	}{
		{"epoch", "1970-01-01"},
		{"after epoch", "2024-06-15"},
		{"before epoch", "1969-12-31"},
		{"far before epoch", "1900-02-28"},
		{"leap day", "2020-02-29"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm, err := time.Parse("2006-01-02", tt.date)
			require.NoError(t, err)
			got := DateFromValue(DateValue(tm))
			assert.Equal(t, tt.date, got.Format("2006-01-02"))
		})
	}
}

func TestDateTimeValueRoundTrip(t *testing.T) {
	tm, err := time.Parse("2006-01-02T15:04:05", "1965-03-01T04:05:06")
	require.NoError(t, err)
	assert.True(t, DateTimeFromValue(DateTimeValue(tm)).Equal(tm))
}

func TestTapeAppendAndSet(t *testing.T) {
	tp := New(2, 3)
	assert.Equal(t, 3, tp.Cols())
	assert.Equal(t, 0, tp.Rows())

	for r := 0; r < 10; r++ {
		row := tp.AppendRow()
		assert.Equal(t, r, row)
		for c := 0; c < 3; c++ {
			tp.Set(row, c, PackDescriptor(r*10+c, 1, false, false), IntValue(int64(r*100+c)))
		}
	}
	assert.Equal(t, 10, tp.Rows())

	// growth past the estimate must preserve earlier cells
	for r := 0; r < 10; r++ {
		for c := 0; c < 3; c++ {
			assert.Equal(t, r*10+c, DescOffset(tp.Descriptor(r, c)))
			assert.Equal(t, int64(r*100+c), IntFromValue(tp.Value(r, c)))
		}
	}
}

func TestTapeAppendRowZeroed(t *testing.T) {
	tp := New(1, 2)
	row := tp.AppendRow()
	assert.Equal(t, uint64(0), tp.Descriptor(row, 0))
	assert.Equal(t, uint64(0), tp.Value(row, 1))
}

func TestTapeSetValueOnly(t *testing.T) {
	tp := New(1, 1)
	row := tp.AppendRow()
	tp.Set(row, 0, PackDescriptor(5, 3, false, false), IntValue(12))
	tp.SetValue(row, 0, FloatValue(12))
	assert.Equal(t, 5, DescOffset(tp.Descriptor(row, 0)))
	assert.Equal(t, 12.0, FloatFromValue(tp.Value(row, 0)))
}

func TestTapeTruncate(t *testing.T) {
	tp := New(4, 2)
	for i := 0; i < 4; i++ {
		row := tp.AppendRow()
		tp.Set(row, 0, 0, IntValue(int64(i)))
	}
	tp.Truncate(2)
	assert.Equal(t, 2, tp.Rows())
	assert.Len(t, tp.Raw(), 2*2*2)

	tp.Truncate(5)
	assert.Equal(t, 2, tp.Rows())
}

func TestTapeAppendTape(t *testing.T) {
	a := New(2, 2)
	b := New(2, 2)
	for i := 0; i < 2; i++ {
		ra := a.AppendRow()
		a.Set(ra, 0, 0, IntValue(int64(i)))
		rb := b.AppendRow()
		b.Set(rb, 0, 0, IntValue(int64(10+i)))
	}
	a.AppendTape(b)
	assert.Equal(t, 4, a.Rows())
	assert.Equal(t, int64(10), IntFromValue(a.Value(2, 0)))
	assert.Equal(t, int64(11), IntFromValue(a.Value(3, 0)))

	c := New(1, 3)
	assert.Panics(t, func() { a.AppendTape(c) })
}
