package liquidity

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/uxuyconnect/gmx-interface/core/pricing"
)

func TestDepositZeroInputShortCircuits(t *testing.T) {
	markets := map[string]MarketInfo{
		"balanced":  balancedMarket(),
		"quadratic": quadraticImpact(balancedMarket()),
	}
	for name, market := range markets {
		t.Run(name, func(t *testing.T) {
			got, err := ComputeDepositAmounts(DepositRequest{
				Market:      market,
				Strategy:    StrategyByCollaterals,
				UIFeeFactor: units(1, 27),
			})
			require.NoError(t, err)
			require.True(t, got.IsZero())
			requireNonNegative(t, got)
			require.Zero(t, got.UIFeeUsd.Sign())
			require.Zero(t, got.SwapFeeUsd.Sign())
			require.Zero(t, got.SwapPriceImpactDeltaUsd.Sign())
		})
	}
}

func TestDepositByCollateralsBalanced(t *testing.T) {
	got, err := ComputeDepositAmounts(DepositRequest{
		Market:           balancedMarket(),
		Strategy:         StrategyByCollaterals,
		LongTokenAmount:  units(1000, 18),
		ShortTokenAmount: units(1000, 6),
		UIFeeFactor:      new(big.Int),
	})
	if err != nil {
		t.Fatalf("compute deposit: %v", err)
	}
	requireEqualInt(t, "longTokenUsd", got.LongTokenUsd, usd(1000))
	requireEqualInt(t, "shortTokenUsd", got.ShortTokenUsd, usd(1000))
	// 2000 USD at a mint price of 1 USD per GM.
	requireEqualInt(t, "marketTokenAmount", got.MarketTokenAmount, units(2000, 18))
	requireEqualInt(t, "marketTokenUsd", got.MarketTokenUsd, usd(2000))
	requireEqualInt(t, "swapFeeUsd", got.SwapFeeUsd, new(big.Int))
	requireEqualInt(t, "uiFeeUsd", got.UIFeeUsd, new(big.Int))
	requireEqualInt(t, "swapPriceImpactDeltaUsd", got.SwapPriceImpactDeltaUsd, new(big.Int))
	require.Empty(t, got.UnpricedLegs)
}

func TestDepositUIFeeMonotonic(t *testing.T) {
	factors := []*big.Int{new(big.Int), units(1, 26), units(1, 27), units(1, 28)}
	var prev Amounts
	for i, factor := range factors {
		got, err := ComputeDepositAmounts(DepositRequest{
			Market:           balancedMarket(),
			Strategy:         StrategyByCollaterals,
			LongTokenAmount:  units(700, 18),
			ShortTokenAmount: units(300, 6),
			UIFeeFactor:      factor,
		})
		require.NoError(t, err)
		if i > 0 {
			require.Equal(t, 1, got.UIFeeUsd.Cmp(prev.UIFeeUsd), "ui fee must grow with factor %s", factor)
			require.LessOrEqual(t, got.MarketTokenAmount.Cmp(prev.MarketTokenAmount), 0, "minted must not grow with factor %s", factor)
		}
		prev = got
	}
	// 1% of 1000 USD.
	requireEqualInt(t, "uiFeeUsd", prev.UIFeeUsd, usd(10))
}

func TestDepositSwapFeeReducesMint(t *testing.T) {
	market := balancedMarket()
	market.SwapFeeFactorForNegativeImpact = units(5, 26) // 0.05%
	got, err := ComputeDepositAmounts(DepositRequest{
		Market:          market,
		Strategy:        StrategyByCollaterals,
		LongTokenAmount: units(1000, 18),
	})
	require.NoError(t, err)
	requireEqualInt(t, "swapFeeUsd", got.SwapFeeUsd, big.NewInt(0).Mul(big.NewInt(5), units(1, 29)))
	requireEqualInt(t, "marketTokenAmount", got.MarketTokenAmount, new(big.Int).Sub(units(1000, 18), units(5, 17)))

	shift, err := ComputeDepositAmounts(DepositRequest{
		Market:          market,
		Strategy:        StrategyByCollaterals,
		LongTokenAmount: units(1000, 18),
		ForShift:        true,
	})
	require.NoError(t, err)
	require.Zero(t, shift.SwapFeeUsd.Sign())
	requireEqualInt(t, "marketTokenAmount", shift.MarketTokenAmount, units(1000, 18))
}

func TestDepositNegativeImpactChargesInput(t *testing.T) {
	got, err := ComputeDepositAmounts(DepositRequest{
		Market:          quadraticImpact(balancedMarket()),
		Strategy:        StrategyByCollaterals,
		LongTokenAmount: units(1000, 18),
	})
	require.NoError(t, err)
	// 1e-8 * 1000^2 = 0.01 USD charged.
	requireEqualInt(t, "swapPriceImpactDeltaUsd", got.SwapPriceImpactDeltaUsd, new(big.Int).Neg(units(1, 28)))
	requireEqualInt(t, "marketTokenAmount", got.MarketTokenAmount, new(big.Int).Sub(units(1000, 18), units(1, 16)))
	require.False(t, got.ImpactCapped)
}

func TestDepositPositiveImpactIsCapped(t *testing.T) {
	market := quadraticImpact(balancedMarket())
	market.LongPoolAmount = units(1500, 18)
	market.ShortPoolAmount = units(500, 6)
	market.SwapImpactPoolAmountLong = units(4, 15)

	got, err := ComputeDepositAmounts(DepositRequest{
		Market:           market,
		Strategy:         StrategyByCollaterals,
		ShortTokenAmount: units(1000, 6),
	})
	require.NoError(t, err)
	requireEqualInt(t, "swapPriceImpactDeltaUsd", got.SwapPriceImpactDeltaUsd, units(1, 28))
	require.True(t, got.ImpactCapped)
	// 0.01 USD owed, 0.004 USD available in the long impact pool.
	requireEqualInt(t, "impactCappedUsd", got.ImpactCappedUsd, units(6, 27))
	requireEqualInt(t, "marketTokenAmount", got.MarketTokenAmount, new(big.Int).Add(units(1000, 18), units(4, 15)))
}

func TestDepositPositiveImpactUncapped(t *testing.T) {
	market := quadraticImpact(balancedMarket())
	market.LongPoolAmount = units(1500, 18)
	market.ShortPoolAmount = units(500, 6)

	got, err := ComputeDepositAmounts(DepositRequest{
		Market:           market,
		Strategy:         StrategyByCollaterals,
		ShortTokenAmount: units(1000, 6),
	})
	require.NoError(t, err)
	require.False(t, got.ImpactCapped)
	require.Zero(t, got.ImpactCappedUsd.Sign())
	requireEqualInt(t, "marketTokenAmount", got.MarketTokenAmount, new(big.Int).Add(units(1000, 18), units(1, 16)))
}

func TestDepositVirtualInventoryWorsensImpact(t *testing.T) {
	market := quadraticImpact(balancedMarket())
	market.VirtualPoolAmountForLongToken = units(5000, 18)
	market.VirtualPoolAmountForShortToken = units(100, 6)

	got, err := ComputeDepositAmounts(DepositRequest{
		Market:          market,
		Strategy:        StrategyByCollaterals,
		LongTokenAmount: units(1000, 18),
	})
	require.NoError(t, err)
	// Virtual diff grows from 4900 to 5900 USD: 1e-8 * (5900^2 - 4900^2) = 0.108 USD.
	requireEqualInt(t, "swapPriceImpactDeltaUsd", got.SwapPriceImpactDeltaUsd, new(big.Int).Neg(units(108, 27)))
}

func TestDepositMissingPriceCountsAsZero(t *testing.T) {
	market := balancedMarket()
	market.ShortToken.Prices = pricing.Prices{}

	got, err := ComputeDepositAmounts(DepositRequest{
		Market:           market,
		Strategy:         StrategyByCollaterals,
		LongTokenAmount:  units(1000, 18),
		ShortTokenAmount: units(5, 6),
	})
	require.NoError(t, err)
	require.Zero(t, got.ShortTokenUsd.Sign())
	require.Contains(t, got.UnpricedLegs, "short.USDC")
	requireEqualInt(t, "marketTokenAmount", got.MarketTokenAmount, units(1000, 18))
	requireNonNegative(t, got)
}

func TestDepositWrapsIntoVault(t *testing.T) {
	got, err := ComputeDepositAmounts(DepositRequest{
		Market:           balancedMarket(),
		Vault:            testVault(2),
		Strategy:         StrategyByCollaterals,
		LongTokenAmount:  units(1000, 18),
		ShortTokenAmount: units(1000, 6),
	})
	require.NoError(t, err)
	requireEqualInt(t, "marketTokenUsd", got.MarketTokenUsd, usd(2000))
	requireEqualInt(t, "marketTokenAmount", got.MarketTokenAmount, units(1000, 18))
}

func TestMarketTokenDepositIntoVault(t *testing.T) {
	got, err := ComputeDepositAmounts(DepositRequest{
		Market:               balancedMarket(),
		Vault:                testVault(2),
		Strategy:             StrategyByCollaterals,
		LongTokenAmount:      units(100, 18),
		UIFeeFactor:          units(1, 28),
		IsMarketTokenDeposit: true,
	})
	require.NoError(t, err)
	requireEqualInt(t, "marketTokenAmount", got.MarketTokenAmount, units(50, 18))
	requireEqualInt(t, "longTokenUsd", got.LongTokenUsd, usd(100))
	require.Zero(t, got.SwapFeeUsd.Sign())
	require.Zero(t, got.UIFeeUsd.Sign())
	require.Zero(t, got.SwapPriceImpactDeltaUsd.Sign())
}

func TestDepositByMarketTokenProportionalSplit(t *testing.T) {
	got, err := ComputeDepositAmounts(DepositRequest{
		Market:            balancedMarket(),
		Strategy:          StrategyByMarketToken,
		MarketTokenAmount: units(100, 18),
		LongTokenAmount:   units(3, 18),
		ShortTokenAmount:  units(1, 6),
		IncludeLongToken:  true,
		IncludeShortToken: true,
	})
	require.NoError(t, err)
	requireEqualInt(t, "marketTokenUsd", got.MarketTokenUsd, usd(100))
	requireEqualInt(t, "longTokenUsd", got.LongTokenUsd, usd(75))
	requireEqualInt(t, "shortTokenUsd", got.ShortTokenUsd, usd(25))
	requireEqualInt(t, "longTokenAmount", got.LongTokenAmount, units(75, 18))
	requireEqualInt(t, "shortTokenAmount", got.ShortTokenAmount, units(25, 6))
}

func TestDepositByMarketTokenSingleSideAndFees(t *testing.T) {
	market := balancedMarket()
	market.SwapFeeFactorForNegativeImpact = units(1, 27) // 0.1%
	got, err := ComputeDepositAmounts(DepositRequest{
		Market:            market,
		Strategy:          StrategyByMarketToken,
		MarketTokenAmount: units(100, 18),
		IncludeShortToken: true,
		UIFeeFactor:       units(1, 27),
	})
	require.NoError(t, err)
	require.Zero(t, got.LongTokenUsd.Sign())
	requireEqualInt(t, "swapFeeUsd", got.SwapFeeUsd, units(1, 29))
	requireEqualInt(t, "uiFeeUsd", got.UIFeeUsd, units(1, 29))
	// Fees are added on top of the requested value.
	requireEqualInt(t, "shortTokenUsd", got.ShortTokenUsd, new(big.Int).Add(usd(100), units(2, 29)))
	requireEqualInt(t, "shortTokenAmount", got.ShortTokenAmount, big.NewInt(100_200_000))
}

func TestDepositByMarketTokenIgnoresRebate(t *testing.T) {
	market := quadraticImpact(balancedMarket())
	market.LongPoolAmount = units(1500, 18)
	market.ShortPoolAmount = units(500, 6)
	got, err := ComputeDepositAmounts(DepositRequest{
		Market:            market,
		Strategy:          StrategyByMarketToken,
		MarketTokenAmount: units(1000, 18),
		IncludeShortToken: true,
	})
	require.NoError(t, err)
	require.Equal(t, 1, got.SwapPriceImpactDeltaUsd.Sign())
	requireEqualInt(t, "shortTokenUsd", got.ShortTokenUsd, got.MarketTokenUsd)
}

func TestDepositByMarketTokenForShiftFollowsPool(t *testing.T) {
	market := balancedMarket()
	market.LongPoolAmount = units(1500, 18)
	market.ShortPoolAmount = units(500, 6)
	market.SwapFeeFactorForNegativeImpact = units(1, 27)
	got, err := ComputeDepositAmounts(DepositRequest{
		Market:            market,
		Strategy:          StrategyByMarketToken,
		MarketTokenAmount: units(100, 18),
		LongTokenAmount:   units(1, 18),
		ShortTokenAmount:  units(9, 6),
		IncludeLongToken:  true,
		IncludeShortToken: true,
		ForShift:          true,
	})
	require.NoError(t, err)
	require.Zero(t, got.SwapFeeUsd.Sign())
	requireEqualInt(t, "longTokenUsd", got.LongTokenUsd, usd(75))
	requireEqualInt(t, "shortTokenUsd", got.ShortTokenUsd, usd(25))
}

func TestDepositByMarketTokenFromVault(t *testing.T) {
	got, err := ComputeDepositAmounts(DepositRequest{
		Market:               balancedMarket(),
		Vault:                testVault(2),
		Strategy:             StrategyByMarketToken,
		MarketTokenAmount:    units(50, 18),
		IsMarketTokenDeposit: true,
	})
	require.NoError(t, err)
	requireEqualInt(t, "marketTokenUsd", got.MarketTokenUsd, usd(100))
	requireEqualInt(t, "longTokenAmount", got.LongTokenAmount, units(100, 18))
	requireEqualInt(t, "marketTokenAmount", got.MarketTokenAmount, units(50, 18))
}

func TestDepositOutputsNeverNegative(t *testing.T) {
	market := quadraticImpact(balancedMarket())
	market.SwapFeeFactorForNegativeImpact = units(6, 29)
	requests := []DepositRequest{
		{Market: market, Strategy: StrategyByCollaterals, LongTokenAmount: big.NewInt(3), UIFeeFactor: units(5, 29)},
		{Market: market, Strategy: StrategyByCollaterals, LongTokenAmount: units(5000, 18), ShortTokenAmount: big.NewInt(1)},
		{Market: market, Strategy: StrategyByMarketToken, MarketTokenAmount: units(10, 18), IncludeLongToken: true, UIFeeFactor: units(1, 29)},
		{Market: market, Strategy: StrategyByMarketToken, MarketTokenAmount: units(10, 18)},
	}
	for i, req := range requests {
		got, err := ComputeDepositAmounts(req)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		requireNonNegative(t, got)
	}
}

func TestDepositRejectsMalformedRequests(t *testing.T) {
	tooWide := new(big.Int).Lsh(big.NewInt(1), 256)
	cases := map[string]DepositRequest{
		"negative amount":  {Market: balancedMarket(), Strategy: StrategyByCollaterals, LongTokenAmount: big.NewInt(-1)},
		"wider than word":  {Market: balancedMarket(), Strategy: StrategyByCollaterals, ShortTokenAmount: tooWide},
		"unknown strategy": {Market: balancedMarket(), Strategy: Strategy("bySomething")},
		"withdraw only":    {Market: balancedMarket(), Strategy: StrategyByLongCollateral},
		"gm without vault": {Market: balancedMarket(), Strategy: StrategyByCollaterals, IsMarketTokenDeposit: true},
		"negative ui fee":  {Market: balancedMarket(), Strategy: StrategyByCollaterals, UIFeeFactor: big.NewInt(-5)},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ComputeDepositAmounts(req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}

	_, err := ComputeDepositAmounts(DepositRequest{Market: balancedMarket(), Strategy: Strategy("x")})
	require.ErrorIs(t, err, ErrUnknownStrategy)

	vault := testVault(1)
	vault.Markets = []common.Address{usdcAddress}
	_, err = ComputeDepositAmounts(DepositRequest{Market: balancedMarket(), Vault: vault, Strategy: StrategyByCollaterals})
	require.ErrorIs(t, err, ErrInvalidRequest)
}
