package liquidity

import (
	"math/big"

	"github.com/uxuyconnect/gmx-interface/core/fixedpoint"
)

// FeeInput captures what is needed to price the fees of one notional.
type FeeInput struct {
	NotionalUsd *big.Int
	// ImpactUsd selects the swap fee factor: rebates use the positive factor.
	ImpactUsd   *big.Int
	UIFeeFactor *big.Int
	// ForShift waives the swap fee.
	ForShift bool
}

// FeeResult summarises the fees charged on a notional.
type FeeResult struct {
	SwapFeeUsd *big.Int
	UIFeeUsd   *big.Int
}

// Total returns the sum of the swap and UI fee.
func (r FeeResult) Total() *big.Int {
	return new(big.Int).Add(fixedpoint.OrZero(r.SwapFeeUsd), fixedpoint.OrZero(r.UIFeeUsd))
}

// Add returns the component-wise sum of two fee results.
func (r FeeResult) Add(other FeeResult) FeeResult {
	return FeeResult{
		SwapFeeUsd: new(big.Int).Add(fixedpoint.OrZero(r.SwapFeeUsd), fixedpoint.OrZero(other.SwapFeeUsd)),
		UIFeeUsd:   new(big.Int).Add(fixedpoint.OrZero(r.UIFeeUsd), fixedpoint.OrZero(other.UIFeeUsd)),
	}
}

// SwapFeeFactor returns the fee factor that applies for the impact direction.
func (m MarketInfo) SwapFeeFactor(impactUsd *big.Int) *big.Int {
	if fixedpoint.IsPositive(impactUsd) {
		return fixedpoint.OrZero(m.SwapFeeFactorForPositiveImpact)
	}
	return fixedpoint.OrZero(m.SwapFeeFactorForNegativeImpact)
}

// ApplyFees evaluates the swap and UI fee on the supplied notional.
func ApplyFees(market MarketInfo, input FeeInput) FeeResult {
	notional := fixedpoint.OrZero(input.NotionalUsd)
	result := FeeResult{
		SwapFeeUsd: new(big.Int),
		UIFeeUsd:   fixedpoint.ApplyFactor(notional, input.UIFeeFactor),
	}
	if !input.ForShift {
		result.SwapFeeUsd = fixedpoint.ApplyFactor(notional, market.SwapFeeFactor(input.ImpactUsd))
	}
	return result
}

// split is a long/short USD allocation.
type split struct {
	long  *big.Int
	short *big.Int
}

func (s split) total() *big.Int {
	return new(big.Int).Add(s.long, s.short)
}

// proportional allocates amount across the sides in the ratio of weights. A
// zero weight total leaves everything unallocated.
func proportional(amount *big.Int, weights split) split {
	total := weights.total()
	if total.Sign() == 0 {
		return split{long: new(big.Int), short: new(big.Int)}
	}
	return split{
		long:  fixedpoint.MulDiv(amount, weights.long, total, fixedpoint.RoundDown),
		short: fixedpoint.MulDiv(amount, weights.short, total, fixedpoint.RoundDown),
	}
}

// plus returns the sides increased by their proportional share of amount.
func (s split) plus(amount *big.Int) split {
	extra := proportional(amount, s)
	return split{
		long:  new(big.Int).Add(s.long, extra.long),
		short: new(big.Int).Add(s.short, extra.short),
	}
}
