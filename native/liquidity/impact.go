package liquidity

import (
	"math/big"

	"github.com/uxuyconnect/gmx-interface/core/fixedpoint"
	"github.com/uxuyconnect/gmx-interface/core/pricing"
)

// ImpactParams describes a balance change between the two pool sides in USD.
type ImpactParams struct {
	CurrentLongUsd  *big.Int
	CurrentShortUsd *big.Int
	LongDeltaUsd    *big.Int
	ShortDeltaUsd   *big.Int

	FactorPositive *big.Int
	FactorNegative *big.Int
	ExponentFactor *big.Int
}

// PriceImpactUsd returns the signed USD impact of moving the pool from its
// current balance by the given deltas. A positive value is a rebate.
func PriceImpactUsd(p ImpactParams) (*big.Int, error) {
	if err := checkExponent(p.ExponentFactor); err != nil {
		return new(big.Int), err
	}
	currentLong := fixedpoint.OrZero(p.CurrentLongUsd)
	currentShort := fixedpoint.OrZero(p.CurrentShortUsd)
	nextLong := new(big.Int).Add(currentLong, fixedpoint.OrZero(p.LongDeltaUsd))
	nextShort := new(big.Int).Add(currentShort, fixedpoint.OrZero(p.ShortDeltaUsd))
	if nextLong.Sign() < 0 || nextShort.Sign() < 0 {
		return new(big.Int), ErrNegativePool
	}

	currentDiff := new(big.Int).Sub(currentLong, currentShort)
	currentDiff.Abs(currentDiff)
	nextDiff := new(big.Int).Sub(nextLong, nextShort)
	nextDiff.Abs(nextDiff)

	sameSide := (currentLong.Cmp(currentShort) < 0) == (nextLong.Cmp(nextShort) < 0)
	if sameSide {
		positive := nextDiff.Cmp(currentDiff) < 0
		factor := p.FactorNegative
		if positive {
			factor = p.FactorPositive
		}
		current := fixedpoint.ApplyImpactFactor(currentDiff, factor, p.ExponentFactor)
		next := fixedpoint.ApplyImpactFactor(nextDiff, factor, p.ExponentFactor)
		delta := current.Sub(current, next)
		delta.Abs(delta)
		if !positive {
			delta.Neg(delta)
		}
		return delta, nil
	}

	// Crossover: the improvement of the old imbalance is weighed against the
	// new imbalance on the other side.
	positive := fixedpoint.ApplyImpactFactor(currentDiff, p.FactorPositive, p.ExponentFactor)
	negative := fixedpoint.ApplyImpactFactor(nextDiff, p.FactorNegative, p.ExponentFactor)
	delta := new(big.Int).Sub(positive, negative)
	return delta, nil
}

// swapPriceImpact returns the impact of adding longDeltaUsd and shortDeltaUsd
// to the pool. When the pool impact is not a rebate and the market tracks a
// virtual inventory, the worse of the two impacts applies.
func swapPriceImpact(market MarketInfo, longDeltaUsd, shortDeltaUsd *big.Int, legs *legCollector) *big.Int {
	longPoolUsd, shortPoolUsd := poolUsd(market, pricing.SideMid, legs)
	impact, err := PriceImpactUsd(ImpactParams{
		CurrentLongUsd:  longPoolUsd,
		CurrentShortUsd: shortPoolUsd,
		LongDeltaUsd:    longDeltaUsd,
		ShortDeltaUsd:   shortDeltaUsd,
		FactorPositive:  market.SwapImpactFactorPositive,
		FactorNegative:  market.SwapImpactFactorNegative,
		ExponentFactor:  market.SwapImpactExponentFactor,
	})
	if err != nil {
		return new(big.Int)
	}
	if impact.Sign() > 0 {
		return impact
	}

	virtualLong := fixedpoint.OrZero(market.VirtualPoolAmountForLongToken)
	virtualShort := fixedpoint.OrZero(market.VirtualPoolAmountForShortToken)
	if virtualLong.Sign() <= 0 || virtualShort.Sign() <= 0 {
		return impact
	}
	virtualImpact, err := PriceImpactUsd(ImpactParams{
		CurrentLongUsd:  legs.toUsd("virtual."+market.LongToken.Label(), market.LongToken, virtualLong, pricing.SideMid),
		CurrentShortUsd: legs.toUsd("virtual."+market.ShortToken.Label(), market.ShortToken, virtualShort, pricing.SideMid),
		LongDeltaUsd:    longDeltaUsd,
		ShortDeltaUsd:   shortDeltaUsd,
		FactorPositive:  market.SwapImpactFactorPositive,
		FactorNegative:  market.SwapImpactFactorNegative,
		ExponentFactor:  market.SwapImpactExponentFactor,
	})
	if err != nil {
		return impact
	}
	if virtualImpact.Cmp(impact) < 0 {
		return virtualImpact
	}
	return impact
}

// ImpactAmount is a price impact expressed in units of a pool token.
type ImpactAmount struct {
	// Amount is signed: negative amounts are charged to the input.
	Amount *big.Int
	// Capped reports that a rebate was clamped to the side's impact pool.
	Capped bool
	// ExcessUsd is the rebate value lost to the cap, valued at the max price.
	ExcessUsd *big.Int
}

// ApplySwapImpactWithCap converts a signed USD impact into token units of the
// given side. Rebates are valued at the max price and clamped to the side's
// swap impact pool. Charges are valued at the min price and round up in
// magnitude.
func ApplySwapImpactWithCap(market MarketInfo, side PoolSide, impactUsd *big.Int) (ImpactAmount, error) {
	token := market.Token(side)
	result := ImpactAmount{Amount: new(big.Int), ExcessUsd: new(big.Int)}
	if fixedpoint.IsZero(impactUsd) {
		return result, nil
	}

	if impactUsd.Sign() > 0 {
		price := token.Price(pricing.SideMax)
		amount, err := pricing.ToTokenAmount(impactUsd, token.Decimals, price)
		if err != nil {
			return result, err
		}
		budget := market.ImpactPoolAmount(side)
		if amount.Cmp(budget) > 0 {
			amount = budget
			result.Capped = true
			capUsd, _ := pricing.ToUsd(budget, token.Decimals, price)
			result.ExcessUsd = fixedpoint.Max(new(big.Int).Sub(impactUsd, capUsd), nil)
		}
		result.Amount = amount
		return result, nil
	}

	price := token.Price(pricing.SideMin)
	if price.Sign() <= 0 {
		return result, pricing.ErrMissingPrice
	}
	scaled := new(big.Int).Mul(impactUsd, fixedpoint.ExpandDecimals(1, token.Decimals))
	result.Amount = fixedpoint.DivRoundUpMagnitude(scaled, price)
	return result, nil
}
