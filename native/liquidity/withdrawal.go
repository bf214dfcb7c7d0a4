package liquidity

import (
	"math/big"

	"github.com/uxuyconnect/gmx-interface/core/fixedpoint"
	"github.com/uxuyconnect/gmx-interface/core/pricing"
)

// ComputeWithdrawalAmounts resolves a withdrawal quote. Withdrawals pay out
// in pool proportions, so no swap impact applies and the swap fee always uses
// the negative-impact factor.
func ComputeWithdrawalAmounts(req WithdrawalRequest) (Amounts, error) {
	if err := req.Validate(); err != nil {
		return Amounts{}, err
	}
	legs := &legCollector{}
	longPool, shortPool := poolUsd(req.Market, pricing.SideMax, legs)
	pool := split{long: longPool, short: shortPool}
	if pool.total().Sign() == 0 {
		result := ZeroAmounts()
		result.UnpricedLegs = legs.legs()
		return result, nil
	}

	if req.Strategy == StrategyByMarketToken {
		return withdrawByMarketToken(req, pool, legs), nil
	}
	return withdrawByCollaterals(req, pool, legs), nil
}

func withdrawByMarketToken(req WithdrawalRequest, pool split, legs *legCollector) Amounts {
	market := req.Market
	burn := fixedpoint.OrZero(req.MarketTokenAmount)
	if burn.Sign() == 0 {
		result := ZeroAmounts()
		result.UnpricedLegs = legs.legs()
		return result
	}

	var marketTokenUsd *big.Int
	if req.Vault != nil {
		marketTokenUsd = legs.unwrap(req.Vault, burn, pricing.SideMin)
	} else {
		marketTokenUsd = MarketTokenAmountToUsd(market, burn)
	}

	out := proportional(marketTokenUsd, pool)
	longFees := ApplyFees(market, FeeInput{NotionalUsd: out.long, UIFeeFactor: req.UIFeeFactor, ForShift: req.ForShift})
	shortFees := ApplyFees(market, FeeInput{NotionalUsd: out.short, UIFeeFactor: req.UIFeeFactor, ForShift: req.ForShift})
	net := split{
		long:  fixedpoint.Max(new(big.Int).Sub(out.long, longFees.Total()), nil),
		short: fixedpoint.Max(new(big.Int).Sub(out.short, shortFees.Total()), nil),
	}

	return Amounts{
		LongTokenAmount:         legs.toAmount("long."+market.LongToken.Label(), market.LongToken, net.long, pricing.SideMax),
		LongTokenUsd:            out.long,
		ShortTokenAmount:        legs.toAmount("short."+market.ShortToken.Label(), market.ShortToken, net.short, pricing.SideMax),
		ShortTokenUsd:           out.short,
		MarketTokenAmount:       burn,
		MarketTokenUsd:          marketTokenUsd,
		SwapFeeUsd:              longFees.Add(shortFees).SwapFeeUsd,
		UIFeeUsd:                fixedpoint.ApplyFactor(marketTokenUsd, req.UIFeeFactor),
		SwapPriceImpactDeltaUsd: new(big.Int),
		ImpactCappedUsd:         new(big.Int),
		UnpricedLegs:            legs.legs(),
	}
}

// withdrawByCollaterals derives the burn amount from a desired payout. When
// only one side is fixed the other follows the pool ratio.
func withdrawByCollaterals(req WithdrawalRequest, pool split, legs *legCollector) Amounts {
	market := req.Market
	longLeg := "long." + market.LongToken.Label()
	shortLeg := "short." + market.ShortToken.Label()

	var amounts, usd split
	switch req.Strategy {
	case StrategyByLongCollateral:
		amounts.long = fixedpoint.OrZero(req.LongTokenAmount)
		usd.long = legs.toUsd(longLeg, market.LongToken, amounts.long, pricing.SideMax)
		usd.short = fixedpoint.MulDiv(usd.long, pool.short, pool.long, fixedpoint.RoundDown)
		amounts.short = legs.toAmount(shortLeg, market.ShortToken, usd.short, pricing.SideMax)
	case StrategyByShortCollateral:
		amounts.short = fixedpoint.OrZero(req.ShortTokenAmount)
		usd.short = legs.toUsd(shortLeg, market.ShortToken, amounts.short, pricing.SideMax)
		usd.long = fixedpoint.MulDiv(usd.short, pool.long, pool.short, fixedpoint.RoundDown)
		amounts.long = legs.toAmount(longLeg, market.LongToken, usd.long, pricing.SideMax)
	default:
		amounts.long = fixedpoint.OrZero(req.LongTokenAmount)
		amounts.short = fixedpoint.OrZero(req.ShortTokenAmount)
		usd.long = legs.toUsd(longLeg, market.LongToken, amounts.long, pricing.SideMax)
		usd.short = legs.toUsd(shortLeg, market.ShortToken, amounts.short, pricing.SideMax)
	}

	payoutUsd := usd.total()
	uiFeeUsd := fixedpoint.ApplyFactor(payoutUsd, req.UIFeeFactor)
	swapFeeUsd := new(big.Int)
	if !req.ForShift {
		negative := market.SwapFeeFactor(nil)
		swapFeeUsd.Add(fixedpoint.ApplyFactor(usd.long, negative), fixedpoint.ApplyFactor(usd.short, negative))
	}
	marketTokenUsd := new(big.Int).Add(payoutUsd, uiFeeUsd)
	marketTokenUsd.Add(marketTokenUsd, swapFeeUsd)

	burn := UsdToMarketTokenAmount(market, marketTokenUsd)
	if req.Vault != nil {
		if wrapped := legs.wrap(req.Vault, marketTokenUsd, pricing.SideMax); wrapped.Sign() > 0 {
			burn = wrapped
		}
	}

	return Amounts{
		LongTokenAmount:         amounts.long,
		LongTokenUsd:            usd.long,
		ShortTokenAmount:        amounts.short,
		ShortTokenUsd:           usd.short,
		MarketTokenAmount:       burn,
		MarketTokenUsd:          marketTokenUsd,
		SwapFeeUsd:              swapFeeUsd,
		UIFeeUsd:                uiFeeUsd,
		SwapPriceImpactDeltaUsd: new(big.Int),
		ImpactCappedUsd:         new(big.Int),
		UnpricedLegs:            legs.legs(),
	}
}
