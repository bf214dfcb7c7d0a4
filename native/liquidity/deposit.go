package liquidity

import (
	"math/big"

	"github.com/uxuyconnect/gmx-interface/core/fixedpoint"
	"github.com/uxuyconnect/gmx-interface/core/pricing"
)

// ComputeDepositAmounts resolves a deposit quote. It is a pure function of
// the request; the only error is a malformed request.
func ComputeDepositAmounts(req DepositRequest) (Amounts, error) {
	if err := req.Validate(); err != nil {
		return Amounts{}, err
	}
	if req.Strategy == StrategyByMarketToken {
		return depositByMarketToken(req), nil
	}
	return depositByCollaterals(req), nil
}

// sideMint is the market token amount minted for one collateral side.
type sideMint struct {
	amount    *big.Int
	capped    bool
	excessUsd *big.Int
}

func depositByCollaterals(req DepositRequest) Amounts {
	longAmount := fixedpoint.OrZero(req.LongTokenAmount)
	shortAmount := fixedpoint.OrZero(req.ShortTokenAmount)
	if longAmount.Sign() == 0 && shortAmount.Sign() == 0 {
		return ZeroAmounts()
	}

	market := req.Market
	legs := &legCollector{}
	if req.IsMarketTokenDeposit {
		return marketTokenDepositToVault(req, longAmount, legs)
	}

	deposit := split{
		long:  legs.toUsd("long."+market.LongToken.Label(), market.LongToken, longAmount, pricing.SideMid),
		short: legs.toUsd("short."+market.ShortToken.Label(), market.ShortToken, shortAmount, pricing.SideMid),
	}
	impact := swapPriceImpact(market, deposit.long, deposit.short, legs)
	total := deposit.total()

	fees := FeeResult{SwapFeeUsd: new(big.Int), UIFeeUsd: new(big.Int)}
	minted := new(big.Int)
	capped := false
	excessUsd := new(big.Int)
	for _, side := range []struct {
		side   PoolSide
		amount *big.Int
		usd    *big.Int
	}{
		{LongSide, longAmount, deposit.long},
		{ShortSide, shortAmount, deposit.short},
	} {
		if side.usd.Sign() <= 0 {
			continue
		}
		sideFees := ApplyFees(market, FeeInput{
			NotionalUsd: side.usd,
			ImpactUsd:   impact,
			UIFeeFactor: req.UIFeeFactor,
			ForShift:    req.ForShift,
		})
		share := fixedpoint.MulDiv(impact, side.usd, total, fixedpoint.RoundDown)
		mint := mintForSide(market, side.side, side.amount, share, sideFees, legs)

		fees = fees.Add(sideFees)
		minted = new(big.Int).Add(minted, mint.amount)
		capped = capped || mint.capped
		excessUsd = new(big.Int).Add(excessUsd, mint.excessUsd)
	}

	marketTokenUsd := legs.toUsd("market."+market.MarketToken.Label(), market.MarketToken, minted, pricing.SideMin)
	marketTokenAmount := minted
	if req.Vault != nil {
		if wrapped := legs.wrap(req.Vault, marketTokenUsd, pricing.SideMax); wrapped.Sign() > 0 {
			marketTokenAmount = wrapped
		}
	}

	return Amounts{
		LongTokenAmount:         longAmount,
		LongTokenUsd:            deposit.long,
		ShortTokenAmount:        shortAmount,
		ShortTokenUsd:           deposit.short,
		MarketTokenAmount:       marketTokenAmount,
		MarketTokenUsd:          marketTokenUsd,
		SwapFeeUsd:              fees.SwapFeeUsd,
		UIFeeUsd:                fees.UIFeeUsd,
		SwapPriceImpactDeltaUsd: impact,
		ImpactCapped:            capped,
		ImpactCappedUsd:         excessUsd,
		UnpricedLegs:            legs.legs(),
	}
}

// mintForSide mints market tokens for one collateral input after fees and
// its share of the price impact. A rebate is paid in the opposite token and
// minted on top; a charge reduces the input.
func mintForSide(market MarketInfo, side PoolSide, amount, impactShare *big.Int, fees FeeResult, legs *legCollector) sideMint {
	tokenIn := market.Token(side)
	tokenOut := market.Token(side.Opposite())
	result := sideMint{amount: new(big.Int), excessUsd: new(big.Int)}

	swapFeeAmount := legs.toAmount(side.String()+"."+tokenIn.Label(), tokenIn, fees.SwapFeeUsd, pricing.SideMin)
	uiFeeAmount := legs.toAmount(side.String()+"."+tokenIn.Label(), tokenIn, fees.UIFeeUsd, pricing.SideMin)
	afterFees := new(big.Int).Sub(amount, swapFeeAmount)
	afterFees.Sub(afterFees, uiFeeAmount)

	if impactShare.Sign() > 0 {
		rebate, err := ApplySwapImpactWithCap(market, side.Opposite(), impactShare)
		legs.note("impact."+tokenOut.Label(), err)
		rebateUsd := legs.toUsd("impact."+tokenOut.Label(), tokenOut, rebate.Amount, pricing.SideMax)
		result.amount = UsdToMarketTokenAmount(market, rebateUsd)
		result.capped = rebate.Capped
		result.excessUsd = rebate.ExcessUsd
	} else if impactShare.Sign() < 0 {
		charge, err := ApplySwapImpactWithCap(market, side, impactShare)
		legs.note("impact."+tokenIn.Label(), err)
		afterFees.Add(afterFees, charge.Amount)
	}

	if afterFees.Sign() < 0 {
		afterFees.SetInt64(0)
	}
	usd := legs.toUsd(side.String()+"."+tokenIn.Label(), tokenIn, afterFees, pricing.SideMin)
	result.amount = new(big.Int).Add(result.amount, UsdToMarketTokenAmount(market, usd))
	return result
}

// marketTokenDepositToVault wraps GM tokens straight into the vault. No swap
// takes place so fees and impact are zero.
func marketTokenDepositToVault(req DepositRequest, gmAmount *big.Int, legs *legCollector) Amounts {
	market := req.Market
	gmUsd := legs.toUsd("market."+market.MarketToken.Label(), market.MarketToken, gmAmount, pricing.SideMin)
	result := ZeroAmounts()
	result.LongTokenAmount = gmAmount
	result.LongTokenUsd = gmUsd
	result.MarketTokenUsd = fixedpoint.OrZero(gmUsd)
	if wrapped := legs.wrap(req.Vault, gmUsd, pricing.SideMax); wrapped.Sign() > 0 {
		result.MarketTokenAmount = wrapped
	}
	result.UnpricedLegs = legs.legs()
	return result
}

func depositByMarketToken(req DepositRequest) Amounts {
	requested := fixedpoint.OrZero(req.MarketTokenAmount)
	if requested.Sign() == 0 {
		return ZeroAmounts()
	}

	market := req.Market
	legs := &legCollector{}
	var marketTokenUsd *big.Int
	if req.Vault != nil {
		marketTokenUsd = legs.unwrap(req.Vault, requested, pricing.SideMin)
	} else {
		marketTokenUsd = MarketTokenAmountToUsd(market, requested)
	}

	if req.IsMarketTokenDeposit {
		result := ZeroAmounts()
		result.LongTokenAmount = legs.toAmount("market."+market.MarketToken.Label(), market.MarketToken, marketTokenUsd, pricing.SideMin)
		result.LongTokenUsd = fixedpoint.OrZero(marketTokenUsd)
		result.MarketTokenAmount = requested
		result.MarketTokenUsd = marketTokenUsd
		result.UnpricedLegs = legs.legs()
		return result
	}

	deposit := depositSplit(req, marketTokenUsd, legs)
	impact := swapPriceImpact(market, deposit.long, deposit.short, legs)
	fees := ApplyFees(market, FeeInput{
		NotionalUsd: marketTokenUsd,
		ImpactUsd:   impact,
		UIFeeFactor: req.UIFeeFactor,
		ForShift:    req.ForShift,
	})

	required := deposit
	if required.total().Sign() > 0 {
		required = required.plus(fees.Total())
		// Rebates are not passed back as a discount on this path.
		if impact.Sign() < 0 {
			required = required.plus(new(big.Int).Neg(impact))
		}
	}

	return Amounts{
		LongTokenAmount:         legs.toAmount("long."+market.LongToken.Label(), market.LongToken, required.long, pricing.SideMid),
		LongTokenUsd:            required.long,
		ShortTokenAmount:        legs.toAmount("short."+market.ShortToken.Label(), market.ShortToken, required.short, pricing.SideMid),
		ShortTokenUsd:           required.short,
		MarketTokenAmount:       requested,
		MarketTokenUsd:          marketTokenUsd,
		SwapFeeUsd:              fees.SwapFeeUsd,
		UIFeeUsd:                fees.UIFeeUsd,
		SwapPriceImpactDeltaUsd: impact,
		ImpactCappedUsd:         new(big.Int),
		UnpricedLegs:            legs.legs(),
	}
}

// depositSplit allocates the market token value across the collateral sides.
// Shifts follow the pool composition; otherwise the user's previous holdings
// decide, falling back to the single included side.
func depositSplit(req DepositRequest, marketTokenUsd *big.Int, legs *legCollector) split {
	market := req.Market
	if req.ForShift {
		longPool, shortPool := poolUsd(market, pricing.SideMax, legs)
		pool := split{long: longPool, short: shortPool}
		if pool.total().Sign() > 0 {
			return proportional(marketTokenUsd, pool)
		}
	}

	if req.IncludeLongToken && req.IncludeShortToken {
		previous := split{
			long:  legs.toUsd("long."+market.LongToken.Label(), market.LongToken, req.LongTokenAmount, pricing.SideMid),
			short: legs.toUsd("short."+market.ShortToken.Label(), market.ShortToken, req.ShortTokenAmount, pricing.SideMid),
		}
		if previous.total().Sign() > 0 {
			return proportional(marketTokenUsd, previous)
		}
	}

	switch {
	case req.IncludeLongToken:
		return split{long: fixedpoint.OrZero(marketTokenUsd), short: new(big.Int)}
	case req.IncludeShortToken:
		return split{long: new(big.Int), short: fixedpoint.OrZero(marketTokenUsd)}
	default:
		return split{long: new(big.Int), short: new(big.Int)}
	}
}
