// internal/fixedpoint/math.go
package fixedpoint

import (
	"errors"
	"math"
	"math/big"
	"math/bits"
)

// ErrMathOverflow is returned whenever a checked operation would wrap.
var ErrMathOverflow = errors.New("math overflow")

// Rounding selects how MulDiv treats a non-zero remainder.
type Rounding int

const (
	RoundDown Rounding = iota
	RoundUp
)

// Add returns a+b or ErrMathOverflow.
func Add(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrMathOverflow
	}
	return sum, nil
}

// Sub returns a-b or ErrMathOverflow when b > a.
func Sub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrMathOverflow
	}
	return diff, nil
}

// Mul returns a*b or ErrMathOverflow.
func Mul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrMathOverflow
	}
	return lo, nil
}

// SaturatingSub returns a-b, or 0 when b > a.
func SaturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

// Min returns the smaller of the arguments.
func Min(a uint64, rest ...uint64) uint64 {
	for _, v := range rest {
		if v < a {
			a = v
		}
	}
	return a
}

// MulDiv computes x*y/den with a 128-bit intermediate.
// The result must fit in 64 bits; a zero denominator is an overflow.
func MulDiv(x, y, den uint64, rounding Rounding) (uint64, error) {
	if den == 0 {
		return 0, ErrMathOverflow
	}
	hi, lo := bits.Mul64(x, y)
	if hi >= den {
		return 0, ErrMathOverflow
	}
	quo, rem := bits.Div64(hi, lo, den)
	if rounding == RoundUp && rem != 0 {
		if quo == math.MaxUint64 {
			return 0, ErrMathOverflow
		}
		quo++
	}
	return quo, nil
}

// MulDivBig is MulDiv on arbitrary precision operands. The caller checks the width
// of the result.
func MulDivBig(x, y, den *big.Int, rounding Rounding) (*big.Int, error) {
	if den.Sign() == 0 {
		return nil, ErrMathOverflow
	}
	mul := new(big.Int).Mul(x, y)
	div, mod := new(big.Int).QuoRem(mul, den, new(big.Int))
	if rounding == RoundUp && mod.Sign() != 0 {
		div.Add(div, big.NewInt(1))
	}
	return div, nil
}

// BigToUint64 narrows a big.Int, failing on negative or oversized values.
func BigToUint64(v *big.Int) (uint64, error) {
	if v.Sign() < 0 || !v.IsUint64() {
		return 0, ErrMathOverflow
	}
	return v.Uint64(), nil
}
