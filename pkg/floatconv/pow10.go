package floatconv

import "math"

// maxPow10 is the largest decimal exponent with a finite float64 power.
const maxPow10 = 308

// The exact powers of ten are kept as double-double pairs: pow10hi holds the
// correctly rounded float64 power, pow10lo the residual so that
// pow10hi[i] + pow10lo[i] carries ~106 bits of the true value. The table is
// built once by exact-arithmetic multiplication; every step uses an FMA
// two-product, so no rounding error accumulates beyond the pair's precision.
var (
	pow10hi [maxPow10 + 1]float64
	pow10lo [maxPow10 + 1]float64
)

func init() {
	hi, lo := 1.0, 0.0
	pow10hi[0], pow10lo[0] = hi, lo
	for i := 1; i <= maxPow10; i++ {
		hi, lo = ddMulF(hi, lo, 10)
		pow10hi[i], pow10lo[i] = hi, lo
	}
}

// twoProd returns p, e such that a*b == p + e exactly.
func twoProd(a, b float64) (p, e float64) {
	p = a * b
	e = math.FMA(a, b, -p)
	return p, e
}

// quickTwoSum renormalizes a pair where |a| >= |b|.
func quickTwoSum(a, b float64) (hi, lo float64) {
	hi = a + b
	lo = b - (hi - a)
	return hi, lo
}

// twoSum returns s, e such that a+b == s + e exactly, for any magnitudes.
func twoSum(a, b float64) (s, e float64) {
	s = a + b
	bb := s - a
	e = (a - (s - bb)) + (b - bb)
	return s, e
}

// ddMulF multiplies a double-double by a plain float64.
func ddMulF(ah, al, b float64) (hi, lo float64) {
	p, e := twoProd(ah, b)
	e += al * b
	return quickTwoSum(p, e)
}

// ddMul multiplies two double-doubles.
func ddMul(ah, al, bh, bl float64) (hi, lo float64) {
	p, e := twoProd(ah, bh)
	e += ah*bl + al*bh
	return quickTwoSum(p, e)
}

// ddDiv divides a double-double by a double-double.
func ddDiv(ah, al, bh, bl float64) (hi, lo float64) {
	q1 := ah / bh
	// r = a - q1*b, computed exactly
	th, tl := ddMulF(bh, bl, q1)
	rh, re := twoSum(ah, -th)
	re += al - tl
	q2 := (rh + re) / bh
	return quickTwoSum(q1, q2)
}

// ddFromUint64 converts a full-width integer mantissa to a double-double.
// Mantissas above 2^53 do not fit one float64 exactly; splitting into two
// exact 32-bit halves keeps the conversion lossless for any uint64.
func ddFromUint64(m uint64) (hi, lo float64) {
	if m < 1<<53 {
		return float64(m), 0
	}
	top := float64(m>>32) * (1 << 32) // exact: 32-bit value times a power of two
	bot := float64(m & 0xffffffff)    // exact: fits 32 bits
	return twoSum(top, bot)
}

// Pow10 returns the correctly rounded float64 power of ten for 0 <= e <= 308.
func Pow10(e int) float64 {
	return pow10hi[e]
}
