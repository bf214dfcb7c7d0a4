package liquidity

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uxuyconnect/gmx-interface/core/fixedpoint"
	"github.com/uxuyconnect/gmx-interface/core/pricing"
)

var (
	gmAddress   = common.HexToAddress("0x70d95587d40A2caf56bd97485aB3Eec10Bee6336")
	wethAddress = common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1")
	usdcAddress = common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831")
	glvAddress  = common.HexToAddress("0x528A5bac7E746C9A509A1f4F6dF58A03d44279F9")
)

func units(n int64, decimals uint8) *big.Int {
	return fixedpoint.ExpandDecimals(n, decimals)
}

func usd(n int64) *big.Int {
	return fixedpoint.ExpandDecimals(n, fixedpoint.FloatDecimals)
}

func flatPrice(n int64) pricing.Prices {
	return pricing.NewPrices(usd(n), usd(n))
}

// balancedMarket holds 1000 USD on each side, 2000 GM outstanding at 1 USD
// and charges no fees or impact.
func balancedMarket() MarketInfo {
	return MarketInfo{
		MarketToken: pricing.Token{Address: gmAddress, Symbol: "GM", Decimals: 18, Prices: flatPrice(1), TotalSupply: units(2000, 18)},
		LongToken:   pricing.Token{Address: wethAddress, Symbol: "WETH", Decimals: 18, Prices: flatPrice(1)},
		ShortToken:  pricing.Token{Address: usdcAddress, Symbol: "USDC", Decimals: 6, Prices: flatPrice(1)},

		LongPoolAmount:  units(1000, 18),
		ShortPoolAmount: units(1000, 6),
		PoolValueMax:    usd(2000),

		SwapImpactPoolAmountLong:  units(1, 18),
		SwapImpactPoolAmountShort: units(1, 6),
		SwapImpactFactorPositive:  new(big.Int),
		SwapImpactFactorNegative:  new(big.Int),
		SwapImpactExponentFactor:  usd(1),

		SwapFeeFactorForPositiveImpact: new(big.Int),
		SwapFeeFactorForNegativeImpact: new(big.Int),
	}
}

// quadraticImpact switches on a 1e-8 * diff^2 impact curve.
func quadraticImpact(m MarketInfo) MarketInfo {
	m.SwapImpactFactorPositive = units(1, 22)
	m.SwapImpactFactorNegative = units(1, 22)
	m.SwapImpactExponentFactor = usd(2)
	return m
}

func testVault(price int64) *VaultInfo {
	return &VaultInfo{
		Token:   pricing.Token{Address: glvAddress, Symbol: "GLV", Decimals: 18, Prices: flatPrice(price)},
		Markets: []common.Address{gmAddress},
	}
}

func requireEqualInt(t *testing.T, field string, got, want *big.Int) {
	t.Helper()
	if got == nil || got.Cmp(want) != 0 {
		t.Fatalf("%s = %v, want %v", field, got, want)
	}
}

func requireNonNegative(t *testing.T, a Amounts) {
	t.Helper()
	fields := map[string]*big.Int{
		"longTokenAmount":   a.LongTokenAmount,
		"longTokenUsd":      a.LongTokenUsd,
		"shortTokenAmount":  a.ShortTokenAmount,
		"shortTokenUsd":     a.ShortTokenUsd,
		"marketTokenAmount": a.MarketTokenAmount,
		"marketTokenUsd":    a.MarketTokenUsd,
		"swapFeeUsd":        a.SwapFeeUsd,
		"uiFeeUsd":          a.UIFeeUsd,
		"impactCappedUsd":   a.ImpactCappedUsd,
	}
	for name, value := range fields {
		if value == nil {
			t.Fatalf("%s is nil", name)
		}
		if value.Sign() < 0 {
			t.Fatalf("%s = %s, want non-negative", name, value)
		}
	}
	if a.SwapPriceImpactDeltaUsd == nil {
		t.Fatalf("swapPriceImpactDeltaUsd is nil")
	}
}
