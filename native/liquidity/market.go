package liquidity

import (
	"math/big"

	"github.com/uxuyconnect/gmx-interface/core/fixedpoint"
	"github.com/uxuyconnect/gmx-interface/core/pricing"
)

// oneUsd is the market token price used while the market has no supply.
var oneUsd = fixedpoint.FloatPrecision

// UsdToMarketTokenAmount returns how many market tokens a USD value mints at
// the current pool value.
func UsdToMarketTokenAmount(market MarketInfo, usd *big.Int) *big.Int {
	supply := fixedpoint.OrZero(market.MarketToken.TotalSupply)
	poolValue := fixedpoint.OrZero(market.PoolValueMax)
	decimals := market.MarketToken.Decimals

	if fixedpoint.IsZero(usd) {
		return new(big.Int)
	}
	if supply.Sign() == 0 && poolValue.Sign() == 0 {
		amount, _ := pricing.ToTokenAmount(usd, decimals, oneUsd)
		return amount
	}
	if supply.Sign() == 0 {
		// Value already sitting in an unminted pool accrues to the first depositor.
		amount, _ := pricing.ToTokenAmount(new(big.Int).Add(fixedpoint.OrZero(usd), poolValue), decimals, oneUsd)
		return amount
	}
	if poolValue.Sign() == 0 {
		return new(big.Int)
	}
	return fixedpoint.MulDiv(supply, usd, poolValue, fixedpoint.RoundDown)
}

// MarketTokenAmountToUsd values an amount of market tokens at the current
// pool value per token.
func MarketTokenAmountToUsd(market MarketInfo, amount *big.Int) *big.Int {
	supply := fixedpoint.OrZero(market.MarketToken.TotalSupply)
	if supply.Sign() == 0 {
		usd, _ := pricing.ToUsd(amount, market.MarketToken.Decimals, oneUsd)
		return usd
	}
	return fixedpoint.MulDiv(amount, fixedpoint.OrZero(market.PoolValueMax), supply, fixedpoint.RoundDown)
}

// poolUsd values both pool sides at the given price side. Unpriced sides are
// reported to the collector and count as zero.
func poolUsd(market MarketInfo, side pricing.Side, legs *legCollector) (long, short *big.Int) {
	long = legs.toUsd("pool."+market.LongToken.Label(), market.LongToken, market.PoolAmount(LongSide), side)
	short = legs.toUsd("pool."+market.ShortToken.Label(), market.ShortToken, market.PoolAmount(ShortSide), side)
	return long, short
}

// legCollector converts legs and remembers which ones could not be priced.
// It is local to one computation.
type legCollector struct {
	unpriced []string
}

func (c *legCollector) note(leg string, err error) {
	if err == nil {
		return
	}
	for _, existing := range c.unpriced {
		if existing == leg {
			return
		}
	}
	c.unpriced = append(c.unpriced, leg)
}

func (c *legCollector) toUsd(leg string, token pricing.Token, amount *big.Int, side pricing.Side) *big.Int {
	if fixedpoint.IsZero(amount) {
		return new(big.Int)
	}
	usd, err := pricing.TokenToUsd(token, amount, side)
	c.note(leg, err)
	return usd
}

func (c *legCollector) toAmount(leg string, token pricing.Token, usd *big.Int, side pricing.Side) *big.Int {
	if fixedpoint.IsZero(usd) {
		return new(big.Int)
	}
	amount, err := pricing.UsdToToken(token, usd, side)
	c.note(leg, err)
	return amount
}

func (c *legCollector) wrap(vault *VaultInfo, usd *big.Int, side pricing.Side) *big.Int {
	if fixedpoint.IsZero(usd) {
		return new(big.Int)
	}
	amount, err := vault.Wrap(usd, side)
	c.note("vault."+vault.Token.Label(), err)
	return amount
}

func (c *legCollector) unwrap(vault *VaultInfo, amount *big.Int, side pricing.Side) *big.Int {
	if fixedpoint.IsZero(amount) {
		return new(big.Int)
	}
	usd, err := vault.Unwrap(amount, side)
	c.note("vault."+vault.Token.Label(), err)
	return usd
}

func (c *legCollector) legs() []string {
	if len(c.unpriced) == 0 {
		return nil
	}
	return append([]string(nil), c.unpriced...)
}
