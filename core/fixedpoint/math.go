package fixedpoint

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Rounding selects how a division resolves a non-zero remainder.
type Rounding int

const (
	// RoundDown truncates toward zero. For non-negative operands this is floor.
	RoundDown Rounding = iota
	// RoundUp rounds the magnitude away from zero.
	RoundUp
)

// FloatDecimals is the precision of USD values, prices and factors.
const FloatDecimals = 30

var (
	// FloatPrecision is 1e30, the unit for USD values and factors.
	FloatPrecision = ExpandDecimals(1, FloatDecimals)

	one = big.NewInt(1)
)

// ExpandDecimals returns n * 10^decimals.
func ExpandDecimals(n int64, decimals uint8) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return scale.Mul(scale, big.NewInt(n))
}

// Zero returns a fresh zero value.
func Zero() *big.Int { return new(big.Int) }

// OrZero returns a copy of v, or zero when v is nil.
func OrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// Abs returns |v| as a new value.
func Abs(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Abs(v)
}

// Max returns a copy of the larger of a and b.
func Max(a, b *big.Int) *big.Int {
	a, b = OrZero(a), OrZero(b)
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

// MulDiv computes a*b/denominator with full intermediate precision. A nil
// operand or a zero denominator yields zero; callers that need to tell the
// difference must check the denominator themselves.
func MulDiv(a, b, denominator *big.Int, rounding Rounding) *big.Int {
	if a == nil || b == nil || denominator == nil || denominator.Sign() == 0 {
		return new(big.Int)
	}
	if a.Sign() == 0 || b.Sign() == 0 {
		return new(big.Int)
	}
	if q, ok := mulDivWord(a, b, denominator, rounding); ok {
		return q
	}
	product := new(big.Int).Mul(a, b)
	return divide(product, denominator, rounding)
}

// DivRoundUpMagnitude divides a by b, rounding the magnitude of the result up.
// Negative impacts use it so the user always bears the rounding.
func DivRoundUpMagnitude(a, b *big.Int) *big.Int {
	if a == nil || b == nil || b.Sign() == 0 {
		return new(big.Int)
	}
	return divide(new(big.Int).Set(a), b, RoundUp)
}

// ApplyFactor returns value * factor / 1e30, truncated.
func ApplyFactor(value, factor *big.Int) *big.Int {
	return MulDiv(value, factor, FloatPrecision, RoundDown)
}

func divide(numerator, denominator *big.Int, rounding Rounding) *big.Int {
	quo, rem := new(big.Int).QuoRem(numerator, denominator, new(big.Int))
	if rounding == RoundUp && rem.Sign() != 0 {
		if (numerator.Sign() < 0) != (denominator.Sign() < 0) {
			quo.Sub(quo, one)
		} else {
			quo.Add(quo, one)
		}
	}
	return quo
}

// mulDivWord mirrors the EVM word path: non-negative operands that fit in 256
// bits are multiplied into a 512-bit intermediate. It reports false when the
// operands or result leave that range so the caller can fall back to big.Int.
func mulDivWord(a, b, denominator *big.Int, rounding Rounding) (*big.Int, bool) {
	if a.Sign() < 0 || b.Sign() < 0 || denominator.Sign() < 0 {
		return nil, false
	}
	x, overflow := uint256.FromBig(a)
	if overflow {
		return nil, false
	}
	y, overflow := uint256.FromBig(b)
	if overflow {
		return nil, false
	}
	d, overflow := uint256.FromBig(denominator)
	if overflow {
		return nil, false
	}
	q, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, false
	}
	if rounding == RoundUp && !new(uint256.Int).MulMod(x, y, d).IsZero() {
		if _, overflow := q.AddOverflow(q, uint256.NewInt(1)); overflow {
			return nil, false
		}
	}
	return q.ToBig(), true
}

// FitsWord reports whether v is non-negative and representable as an
// unsigned 256-bit word.
func FitsWord(v *big.Int) bool {
	if v == nil {
		return true
	}
	if v.Sign() < 0 {
		return false
	}
	_, overflow := uint256.FromBig(v)
	return !overflow
}

// FitsSignedWord reports whether v fits in a two's complement 256-bit word.
func FitsSignedWord(v *big.Int) bool {
	if v == nil {
		return true
	}
	return v.BitLen() < 256
}

// IsZero reports whether v is nil or zero.
func IsZero(v *big.Int) bool {
	return v == nil || v.Sign() == 0
}

// IsPositive reports whether v is strictly greater than zero.
func IsPositive(v *big.Int) bool {
	return v != nil && v.Sign() > 0
}

// IsNegative reports whether v is strictly below zero.
func IsNegative(v *big.Int) bool {
	return v != nil && v.Sign() < 0
}
