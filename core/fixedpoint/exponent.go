package fixedpoint

import (
	"math/big"
	"sync"
)

// Impact curves are evaluated in 60.18 fixed point, the precision used on
// chain, then scaled back to 30 decimals.
var (
	wad        = ExpandDecimals(1, 18)
	halfWad    = new(big.Int).Rsh(ExpandDecimals(1, 18), 1)
	floatToWad = ExpandDecimals(1, 12)

	// exp2 works at 36 decimals so the per-bit roots keep headroom.
	rootScale = ExpandDecimals(1, 36)

	// MaxExponentFactor is the largest impact exponent accepted from market
	// data. Larger exponents make the exp2 shift unbounded.
	MaxExponentFactor = ExpandDecimals(10, FloatDecimals)

	rootsOnce sync.Once
	// roots[i] = 2^(2^-(i+1)) scaled by rootScale.
	roots [64]*big.Int
)

// ApplyExponentFactor raises a 30-decimal value to a 30-decimal exponent
// using integer arithmetic only. Values below one return zero and an
// exponent of exactly one returns the value unchanged.
func ApplyExponentFactor(value, exponent *big.Int) *big.Int {
	if value == nil || exponent == nil || value.Cmp(FloatPrecision) < 0 {
		return new(big.Int)
	}
	if exponent.Cmp(FloatPrecision) == 0 {
		return new(big.Int).Set(value)
	}
	if exponent.Sign() <= 0 {
		return new(big.Int).Set(FloatPrecision)
	}
	x := new(big.Int).Quo(value, floatToWad)
	var result *big.Int
	n, rem := new(big.Int).QuoRem(exponent, FloatPrecision, new(big.Int))
	if rem.Sign() == 0 && n.IsUint64() && n.Uint64() <= 64 {
		result = powWadInt(x, n.Uint64())
	} else {
		result = powWad(x, new(big.Int).Quo(exponent, floatToWad))
	}
	return result.Mul(result, floatToWad)
}

// ApplyImpactFactor evaluates factor * diff^exponent, the impact curve shared
// by swaps, deposits and withdrawals.
func ApplyImpactFactor(diff, factor, exponent *big.Int) *big.Int {
	return ApplyFactor(ApplyExponentFactor(diff, exponent), factor)
}

func powWadInt(x *big.Int, n uint64) *big.Int {
	result := new(big.Int).Set(wad)
	base := new(big.Int).Set(x)
	for n > 0 {
		if n&1 == 1 {
			result.Mul(result, base)
			result.Quo(result, wad)
		}
		n >>= 1
		if n > 0 {
			base.Mul(base, base)
			base.Quo(base, wad)
		}
	}
	return result
}

// powWad computes x^y = 2^(log2(x) * y) for x >= 1.
func powWad(x, y *big.Int) *big.Int {
	exp := log2Wad(x)
	exp.Mul(exp, y)
	exp.Quo(exp, wad)
	return exp2Wad(exp)
}

func log2Wad(x *big.Int) *big.Int {
	intPart := new(big.Int).Quo(x, wad)
	n := intPart.BitLen() - 1
	if n < 0 {
		return new(big.Int)
	}
	result := new(big.Int).Mul(big.NewInt(int64(n)), wad)
	y := new(big.Int).Rsh(x, uint(n))
	if y.Cmp(wad) == 0 {
		return result
	}
	twoWad := new(big.Int).Lsh(wad, 1)
	for delta := new(big.Int).Set(halfWad); delta.Sign() > 0; delta.Rsh(delta, 1) {
		y.Mul(y, y)
		y.Quo(y, wad)
		if y.Cmp(twoWad) >= 0 {
			result.Add(result, delta)
			y.Rsh(y, 1)
		}
	}
	return result
}

func exp2Wad(x *big.Int) *big.Int {
	rootsOnce.Do(initRoots)
	intPart, frac := new(big.Int).QuoRem(x, wad, new(big.Int))
	bits := frac.Lsh(frac, 64)
	bits.Quo(bits, wad)
	result := new(big.Int).Set(rootScale)
	for i := 0; i < 64; i++ {
		if bits.Bit(63-i) == 1 {
			result.Mul(result, roots[i])
			result.Quo(result, rootScale)
		}
	}
	result.Lsh(result, uint(intPart.Uint64()))
	result.Mul(result, wad)
	return result.Quo(result, rootScale)
}

func initRoots() {
	squared := new(big.Int).Mul(rootScale, rootScale)
	prev := new(big.Int).Sqrt(squared.Lsh(squared, 1))
	roots[0] = prev
	for i := 1; i < len(roots); i++ {
		next := new(big.Int).Mul(prev, rootScale)
		next.Sqrt(next)
		roots[i] = next
		prev = next
	}
}
