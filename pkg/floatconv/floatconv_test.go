package floatconv

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parse64 compares against the standard library, which is correctly rounded.
func parse64(t *testing.T, s string) float64 {
	t.Helper()
	f, err := strconv.ParseFloat(s, 64)
	require.NoError(t, err)
	return f
}

func TestParseMatchesStrconv(t *testing.T) {
	inputs := []string{
		"0", "1", "-1", "+7",
		"123.456", "-123.456", ".5", "5.", "0.00000001",
		"1e10", "1E10", "1e-10", "1.5e+300", "2.5e-300",
		"3.141592653589793", "2.718281828459045",
		// 15 digits or fewer hit the exact fast path
		"999999999999999", "123456789012345e10", "123456789012345e-10",
		// halfway case at the 53-bit boundary rounds to even
		"9007199254740993",
		"18446744073709551615",
		// extremes
		"1.7976931348623157e308",
		"2.2250738585072014e-308",
		"5e-324", "4.9406564584124654e-324",
		"6.5e-323",
		"1e308", "1e-308",
	}
	for _, s := range inputs {
		t.Run(s, func(t *testing.T) {
			got, err := Parse([]byte(s), '.', Float64)
			require.NoError(t, err)
			assert.Equal(t, parse64(t, s), got)
		})
	}
}

// Inputs longer than the mantissa accumulator keep about 19 significant
// digits; the dropped tail can move the result by at most one bit.
func TestParseLongDigitStrings(t *testing.T) {
	inputs := []string{
		"123456789012345678901234567890",
		"18446744073709551616",
		"3.14159265358979323846264338327950288",
		"0.000000000000000000000012345678901234567890",
	}
	for _, s := range inputs {
		t.Run(s, func(t *testing.T) {
			got, err := Parse([]byte(s), '.', Float64)
			require.NoError(t, err)
			want := parse64(t, s)
			lo := math.Nextafter(want, math.Inf(-1))
			hi := math.Nextafter(want, math.Inf(1))
			assert.GreaterOrEqual(t, got, lo)
			assert.LessOrEqual(t, got, hi)
		})
	}
}

func TestParseNegativeZero(t *testing.T) {
	got, err := Parse([]byte("-0.0"), '.', Float64)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
	assert.True(t, math.Signbit(got))

	got, err = Parse([]byte("0.0"), '.', Float64)
	require.NoError(t, err)
	assert.False(t, math.Signbit(got))
}

func TestParseSpecials(t *testing.T) {
	for _, s := range []string{"nan", "NaN", "NAN", "-nan", "+nAn"} {
		got, err := Parse([]byte(s), '.', Float64)
		require.NoError(t, err, s)
		assert.True(t, math.IsNaN(got), s)
	}
	for _, s := range []string{"inf", "Inf", "INF", "infinity", "Infinity", "+inf", "+INFINITY"} {
		got, err := Parse([]byte(s), '.', Float64)
		require.NoError(t, err, s)
		assert.True(t, math.IsInf(got, 1), s)
	}
	for _, s := range []string{"-inf", "-Infinity", "-INF"} {
		got, err := Parse([]byte(s), '.', Float64)
		require.NoError(t, err, s)
		assert.True(t, math.IsInf(got, -1), s)
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	inputs := []string{
		"", ".", "+", "-", "abc", "1x", "x1",
		"1.2.3", "1e", "1e+", "e5", "--1", "++1",
		"in", "infin", "infinityy", "na", "nann",
		"1 ", " 1", "1,5",
	}
	for _, s := range inputs {
		t.Run(strconv.Quote(s), func(t *testing.T) {
			_, err := Parse([]byte(s), '.', Float64)
			assert.ErrorIs(t, err, ErrSyntax)
		})
	}
}

func TestParseRangeErrors(t *testing.T) {
	inputs := []string{
		"1e309", "-1e309", "1.8e308", "1e99999",
		"1e-324", "1e-400", "4e-325",
	}
	for _, s := range inputs {
		t.Run(s, func(t *testing.T) {
			_, err := Parse([]byte(s), '.', Float64)
			assert.ErrorIs(t, err, ErrRange)
		})
	}
}

func TestParseDecimalComma(t *testing.T) {
	got, err := Parse([]byte("3,14"), ',', Float64)
	require.NoError(t, err)
	assert.Equal(t, 3.14, got)

	// the period is just another bad byte under a comma separator
	_, err = Parse([]byte("3.14"), ',', Float64)
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestParseFloat32Width(t *testing.T) {
	got, err := Parse([]byte("3.4e38"), '.', Float32)
	require.NoError(t, err)
	assert.InEpsilon(t, 3.4e38, got, 1e-6)

	_, err = Parse([]byte("3.5e38"), '.', Float32)
	assert.ErrorIs(t, err, ErrRange)
	_, err = Parse([]byte("1e39"), '.', Float32)
	assert.ErrorIs(t, err, ErrRange)

	got, err = Parse([]byte("1.5"), '.', Float32)
	require.NoError(t, err)
	assert.Equal(t, 1.5, got)
}

func TestParseFloat16Width(t *testing.T) {
	got, err := Parse([]byte("65504"), '.', Float16)
	require.NoError(t, err)
	assert.Equal(t, 65504.0, got)

	_, err = Parse([]byte("65600"), '.', Float16)
	assert.ErrorIs(t, err, ErrRange)
	_, err = Parse([]byte("1e5"), '.', Float16)
	assert.ErrorIs(t, err, ErrRange)
}

func TestLexParts(t *testing.T) {
	p, err := Lex([]byte("-12.34e5"), '.')
	require.NoError(t, err)
	assert.True(t, p.Neg)
	assert.Equal(t, uint64(1234), p.Mant)
	assert.Equal(t, 2, p.Frac)
	assert.Equal(t, 5, p.Exp)
	assert.Equal(t, 4, p.Digits)
	assert.False(t, p.IsSpec)
}

func TestLexMantissaOverflowAdjustsExponent(t *testing.T) {
	// 25 integer digits cannot all fit in a uint64 mantissa; the dropped
	// ones must come back as exponent
	p, err := Lex([]byte("1234567890123456789012345"), '.')
	require.NoError(t, err)
	f, err := FromParts(p, Float64)
	require.NoError(t, err)
	assert.Equal(t, parse64(t, "1234567890123456789012345"), f)
}

func TestFromPartsZeroMantissa(t *testing.T) {
	p, err := Lex([]byte("0e99999"), '.')
	require.NoError(t, err)
	f, err := FromParts(p, Float64)
	require.NoError(t, err)
	assert.Equal(t, 0.0, f)
}

func TestPow10Table(t *testing.T) {
	// every tabled power must be correctly rounded, which strconv
	// guarantees; the low word stays below half an ulp of the high word
	for e := 0; e <= maxPow10; e++ {
		want := parse64(t, "1e"+strconv.Itoa(e))
		assert.Equal(t, want, Pow10(e), "e=%d", e)
		assert.LessOrEqual(t, math.Abs(pow10lo[e]), math.Abs(pow10hi[e])*1e-15, "e=%d", e)
	}
}

func TestExactFastPathAgreement(t *testing.T) {
	// values with small mantissas and exponents must be bit-identical to
	// the naive exact computation
	cases := []struct {
		in   string
		want float64
	}{
		{"7e2", 700},
		{"125e-3", 0.125},
		{"1e15", 1e15},
		{"9007199254740992", 9007199254740992},
	}
	for _, c := range cases {
		got, err := Parse([]byte(c.in), '.', Float64)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, c.in)
	}
}
