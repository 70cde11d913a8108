// Package floatconv converts decimal digit runs into the nearest
// representable binary floating-point value.
//
// The conversion policy follows three tiers. When the combined decimal
// exponent is within ±15 and the mantissa fits 53 bits, a single exact
// multiply or divide against the power-of-ten table produces the correctly
// rounded result directly. Outside that range the mantissa and the power of
// ten are carried as double-double pairs (~106 bits) and rounded exactly
// once at the end, avoiding the double-rounding error of chained float64
// multiplies. Exponents beyond the representable range fail with ErrRange,
// after a widened-division rescue attempt on the underflow side.
package floatconv

import (
	"errors"
	"math"
)

var (
	// ErrRange reports a value outside the representable range of the
	// target float width. The caller decides whether this becomes a hard
	// parse error or a fallback to string.
	ErrRange = errors.New("floatconv: value out of range")
	// ErrSyntax reports input that is not a decimal float.
	ErrSyntax = errors.New("floatconv: invalid syntax")
)

// Width parameterizes the conversion limits per target float width.
type Width struct {
	Name string
	// MaxExp is the largest representable decimal exponent
	MaxExp int
	// MinExp is the smallest decimal exponent before total underflow,
	// subnormals included
	MinExp int
	// MaxValue is the largest finite value of the width
	MaxValue float64
}

// Pre-defined widths. Conversion always computes in float64; narrower widths
// only tighten the range checks so the caller can store the result downcast.
var (
	Float16 = Width{Name: "float16", MaxExp: 4, MinExp: -7, MaxValue: 65504}
	Float32 = Width{Name: "float32", MaxExp: 38, MinExp: -45, MaxValue: math.MaxFloat32}
	Float64 = Width{Name: "float64", MaxExp: 308, MinExp: -323, MaxValue: math.MaxFloat64}
)

// exactExpLimit bounds the single-multiply fast path: 10^e is exact in
// float64 for e <= 22, and a 15-digit product of exact operands rounds once.
const exactExpLimit = 15

// mantissa accumulation stops before uint64 overflow
const maxMantissa = (math.MaxUint64 - 9) / 10

// Parts is the decomposed decimal form produced by the lexer: an unsigned
// integer mantissa, the count of digits that occurred after the decimal
// point, and an explicit exponent.
type Parts struct {
	Neg     bool
	Mant    uint64
	Frac    int
	Exp     int
	Digits  int // significant decimal digits accumulated in Mant
	Special float64
	IsSpec  bool
}

// lexer states; the mini-parser is an explicit finite-state machine
type lexState int

const (
	stateSign lexState = iota
	stateIntDigits
	stateFracDigits
	stateExpSign
	stateExpDigits
	stateSpecial
)

// Lex runs the decimal FSM over b. decimal is the configured decimal
// separator byte. Every early-exit condition (end of input mid-token,
// non-digit terminator) is an explicit transition out of the machine.
func Lex(b []byte, decimal byte) (Parts, error) {
	var p Parts
	if len(b) == 0 {
		return p, ErrSyntax
	}

	var (
		state    = stateSign
		i        = 0
		expNeg   = false
		expVal   = 0
		expSeen  = false
		intSeen  = false
		fracSeen = false
	)

	for i < len(b) {
		c := b[i]
		switch state {
		case stateSign:
			switch {
			case c == '+' || c == '-':
				p.Neg = c == '-'
				i++
				state = stateIntDigits
			case c >= '0' && c <= '9' || c == decimal:
				state = stateIntDigits
			default:
				state = stateSpecial
			}

		case stateIntDigits:
			switch {
			case c >= '0' && c <= '9':
				intSeen = true
				if p.Mant <= maxMantissa {
					p.Mant = p.Mant*10 + uint64(c-'0')
					if p.Mant != 0 {
						p.Digits++
					}
				} else {
					// dropped integer digit scales the value up
					p.Exp++
					p.Digits++
				}
				i++
			case c == decimal:
				i++
				state = stateFracDigits
			case c == 'e' || c == 'E':
				if !intSeen {
					return p, ErrSyntax
				}
				i++
				state = stateExpSign
			default:
				if !intSeen {
					state = stateSpecial
					continue
				}
				return p, ErrSyntax
			}

		case stateFracDigits:
			switch {
			case c >= '0' && c <= '9':
				fracSeen = true
				if p.Mant <= maxMantissa {
					p.Mant = p.Mant*10 + uint64(c-'0')
					p.Frac++
					if p.Mant != 0 {
						p.Digits++
					}
				}
				// dropped fraction digits are below the rounding
				// precision and are ignored entirely
				i++
			case c == 'e' || c == 'E':
				if !intSeen && !fracSeen {
					return p, ErrSyntax
				}
				i++
				state = stateExpSign
			default:
				return p, ErrSyntax
			}

		case stateExpSign:
			switch {
			case c == '+' || c == '-':
				expNeg = c == '-'
				i++
				state = stateExpDigits
			case c >= '0' && c <= '9':
				state = stateExpDigits
			default:
				return p, ErrSyntax
			}

		case stateExpDigits:
			if c >= '0' && c <= '9' {
				expSeen = true
				if expVal < 10000 {
					expVal = expVal*10 + int(c-'0')
				}
				i++
			} else {
				return p, ErrSyntax
			}

		case stateSpecial:
			f, ok := lexSpecial(b, p.Neg)
			if !ok {
				return p, ErrSyntax
			}
			p.Special = f
			p.IsSpec = true
			return p, nil
		}
	}

	switch state {
	case stateSign:
		return p, ErrSyntax
	case stateIntDigits:
		if !intSeen {
			return p, ErrSyntax
		}
	case stateFracDigits:
		if !intSeen && !fracSeen {
			return p, ErrSyntax
		}
	case stateExpSign, stateExpDigits:
		if !expSeen {
			return p, ErrSyntax
		}
	case stateSpecial:
		return p, ErrSyntax
	}

	if expNeg {
		expVal = -expVal
	}
	p.Exp += expVal
	return p, nil
}

// lexSpecial recognizes nan, inf and infinity, case-insensitive, after any
// sign has been consumed. These short-circuit digit parsing entirely.
func lexSpecial(b []byte, neg bool) (float64, bool) {
	// strip any sign that the digit machine already consumed positionally
	if len(b) > 0 && (b[0] == '+' || b[0] == '-') {
		b = b[1:]
	}
	if equalFold(b, "nan") {
		return math.NaN(), true
	}
	if equalFold(b, "inf") || equalFold(b, "infinity") {
		if neg {
			return math.Inf(-1), true
		}
		return math.Inf(1), true
	}
	return 0, false
}

func equalFold(b []byte, s string) bool {
	if len(b) != len(s) {
		return false
	}
	for i := 0; i < len(b); i++ {
		c := b[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != s[i] {
			return false
		}
	}
	return true
}

// FromParts converts a lexed decimal into the nearest representable float64,
// range-checked against the target width. The mathematical value is
// Mant x 10^(Exp - Frac).
func FromParts(p Parts, w Width) (float64, error) {
	if p.IsSpec {
		return p.Special, nil
	}
	if p.Mant == 0 {
		if p.Neg {
			return math.Copysign(0, -1), nil
		}
		return 0, nil
	}

	e := p.Exp - p.Frac
	// decimal exponent of the value's leading digit
	lead := p.Digits - 1 + e
	if lead > w.MaxExp {
		return 0, ErrRange
	}
	if lead < w.MinExp-1 {
		return 0, ErrRange
	}

	var f float64
	switch {
	case p.Mant < 1<<53 && e >= 0 && e <= exactExpLimit:
		// both operands exact, one rounding
		f = float64(p.Mant) * pow10hi[e]
	case p.Mant < 1<<53 && e < 0 && e >= -exactExpLimit:
		f = float64(p.Mant) / pow10hi[-e]
	default:
		f = slowPath(p.Mant, e)
	}

	if math.IsInf(f, 0) {
		return 0, ErrRange
	}
	if f == 0 {
		return 0, ErrRange
	}
	if abs := math.Abs(f); abs > w.MaxValue {
		return 0, ErrRange
	}
	if p.Neg {
		f = -f
	}
	return f, nil
}

// slowPath computes mant x 10^e through double-double arithmetic with a
// single final rounding.
func slowPath(mant uint64, e int) float64 {
	mh, ml := ddFromUint64(mant)
	switch {
	case e >= 0:
		if e > maxPow10 {
			return math.Inf(1)
		}
		hi, lo := ddMul(mh, ml, pow10hi[e], pow10lo[e])
		return hi + lo
	case e >= -maxPow10:
		hi, lo := ddDiv(mh, ml, pow10hi[-e], pow10lo[-e])
		return hi + lo
	default:
		// widened two-step division: peel off the largest tabled power
		// first so subnormal results survive instead of underflowing
		// through an unrepresentable intermediate
		extra := -e - maxPow10
		if extra > maxPow10 {
			return 0
		}
		hi, lo := ddDiv(mh, ml, pow10hi[maxPow10], pow10lo[maxPow10])
		hi, lo = ddDiv(hi, lo, pow10hi[extra], pow10lo[extra])
		return hi + lo
	}
}

// Parse converts raw bytes to a float64 under the given width and decimal
// separator. It is the composition of Lex and FromParts.
func Parse(b []byte, decimal byte, w Width) (float64, error) {
	p, err := Lex(b, decimal)
	if err != nil {
		return 0, err
	}
	return FromParts(p, w)
}
