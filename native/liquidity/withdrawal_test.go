package liquidity

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uxuyconnect/gmx-interface/core/pricing"
)

func TestWithdrawalByMarketTokenSplitsByPool(t *testing.T) {
	market := balancedMarket()
	market.LongPoolAmount = units(1500, 18)
	market.ShortPoolAmount = units(500, 6)
	got, err := ComputeWithdrawalAmounts(WithdrawalRequest{
		Market:            market,
		Strategy:          StrategyByMarketToken,
		MarketTokenAmount: units(100, 18),
	})
	require.NoError(t, err)
	requireEqualInt(t, "marketTokenUsd", got.MarketTokenUsd, usd(100))
	requireEqualInt(t, "longTokenAmount", got.LongTokenAmount, units(75, 18))
	requireEqualInt(t, "shortTokenAmount", got.ShortTokenAmount, units(25, 6))
	require.Zero(t, got.SwapPriceImpactDeltaUsd.Sign())
}

func TestWithdrawalByMarketTokenFees(t *testing.T) {
	market := balancedMarket()
	market.SwapFeeFactorForNegativeImpact = units(1, 27) // 0.1%
	got, err := ComputeWithdrawalAmounts(WithdrawalRequest{
		Market:            market,
		Strategy:          StrategyByMarketToken,
		MarketTokenAmount: units(100, 18),
		UIFeeFactor:       units(1, 27),
	})
	require.NoError(t, err)
	requireEqualInt(t, "swapFeeUsd", got.SwapFeeUsd, units(1, 29))
	requireEqualInt(t, "uiFeeUsd", got.UIFeeUsd, units(1, 29))
	// 50 USD per side less 0.05 swap and 0.05 UI fee.
	requireEqualInt(t, "longTokenAmount", got.LongTokenAmount, units(499, 17))
	requireEqualInt(t, "shortTokenAmount", got.ShortTokenAmount, big.NewInt(49_900_000))

	shift, err := ComputeWithdrawalAmounts(WithdrawalRequest{
		Market:            market,
		Strategy:          StrategyByMarketToken,
		MarketTokenAmount: units(100, 18),
		ForShift:          true,
	})
	require.NoError(t, err)
	require.Zero(t, shift.SwapFeeUsd.Sign())
	requireEqualInt(t, "longTokenAmount", shift.LongTokenAmount, units(50, 18))
}

func TestWithdrawalFromVault(t *testing.T) {
	got, err := ComputeWithdrawalAmounts(WithdrawalRequest{
		Market:            balancedMarket(),
		Vault:             testVault(2),
		Strategy:          StrategyByMarketToken,
		MarketTokenAmount: units(10, 18),
	})
	require.NoError(t, err)
	requireEqualInt(t, "marketTokenUsd", got.MarketTokenUsd, usd(20))
	requireEqualInt(t, "longTokenAmount", got.LongTokenAmount, units(10, 18))
	requireEqualInt(t, "shortTokenAmount", got.ShortTokenAmount, units(10, 6))
	requireEqualInt(t, "marketTokenAmount", got.MarketTokenAmount, units(10, 18))
}

func TestWithdrawalBySingleCollateral(t *testing.T) {
	market := balancedMarket()
	market.LongPoolAmount = units(1500, 18)
	market.ShortPoolAmount = units(500, 6)

	long, err := ComputeWithdrawalAmounts(WithdrawalRequest{
		Market:          market,
		Strategy:        StrategyByLongCollateral,
		LongTokenAmount: units(30, 18),
	})
	require.NoError(t, err)
	requireEqualInt(t, "shortTokenAmount", long.ShortTokenAmount, units(10, 6))
	requireEqualInt(t, "marketTokenUsd", long.MarketTokenUsd, usd(40))
	requireEqualInt(t, "marketTokenAmount", long.MarketTokenAmount, units(40, 18))

	short, err := ComputeWithdrawalAmounts(WithdrawalRequest{
		Market:           market,
		Strategy:         StrategyByShortCollateral,
		ShortTokenAmount: units(10, 6),
	})
	require.NoError(t, err)
	requireEqualInt(t, "longTokenAmount", short.LongTokenAmount, units(30, 18))
	requireEqualInt(t, "marketTokenAmount", short.MarketTokenAmount, units(40, 18))
}

func TestWithdrawalByCollateralsChargesFeesOnBurn(t *testing.T) {
	market := balancedMarket()
	market.SwapFeeFactorForNegativeImpact = units(1, 27)
	got, err := ComputeWithdrawalAmounts(WithdrawalRequest{
		Market:           market,
		Vault:            testVault(2),
		Strategy:         StrategyByCollaterals,
		LongTokenAmount:  units(60, 18),
		ShortTokenAmount: units(40, 6),
		UIFeeFactor:      units(1, 27),
	})
	require.NoError(t, err)
	requireEqualInt(t, "uiFeeUsd", got.UIFeeUsd, units(1, 29))
	requireEqualInt(t, "swapFeeUsd", got.SwapFeeUsd, units(1, 29))
	requireEqualInt(t, "marketTokenUsd", got.MarketTokenUsd, new(big.Int).Add(usd(100), units(2, 29)))
	// 100.2 USD of GM at a vault price of 2 USD.
	requireEqualInt(t, "marketTokenAmount", got.MarketTokenAmount, units(501, 17))
}

func TestWithdrawalUnpricedVaultKeepsMarketTokenBurn(t *testing.T) {
	vault := testVault(2)
	vault.Token.Prices = pricing.Prices{}
	got, err := ComputeWithdrawalAmounts(WithdrawalRequest{
		Market:           balancedMarket(),
		Vault:            vault,
		Strategy:         StrategyByCollaterals,
		LongTokenAmount:  units(60, 18),
		ShortTokenAmount: units(40, 6),
	})
	require.NoError(t, err)
	requireEqualInt(t, "marketTokenUsd", got.MarketTokenUsd, usd(100))
	requireEqualInt(t, "marketTokenAmount", got.MarketTokenAmount, units(100, 18))
	require.Equal(t, []string{"vault.GLV"}, got.UnpricedLegs)
	requireNonNegative(t, got)
}

func TestWithdrawalUnpricedPoolSide(t *testing.T) {
	market := balancedMarket()
	market.LongToken.Prices = pricing.Prices{}
	got, err := ComputeWithdrawalAmounts(WithdrawalRequest{
		Market:            market,
		Strategy:          StrategyByMarketToken,
		MarketTokenAmount: units(100, 18),
	})
	require.NoError(t, err)
	require.Equal(t, []string{"pool.WETH"}, got.UnpricedLegs)
	require.Zero(t, got.LongTokenAmount.Sign())
	requireEqualInt(t, "shortTokenAmount", got.ShortTokenAmount, units(100, 6))
	requireNonNegative(t, got)
}

func TestWithdrawalEmptyPoolIsZero(t *testing.T) {
	market := balancedMarket()
	market.LongPoolAmount = nil
	market.ShortPoolAmount = new(big.Int)
	got, err := ComputeWithdrawalAmounts(WithdrawalRequest{
		Market:            market,
		Strategy:          StrategyByMarketToken,
		MarketTokenAmount: units(5, 18),
	})
	require.NoError(t, err)
	require.True(t, got.IsZero())
	requireNonNegative(t, got)
}

func TestDepositWithdrawalRoundTrip(t *testing.T) {
	inputs := []struct {
		long  *big.Int
		short *big.Int
	}{
		{units(1000, 18), units(1000, 6)},
		{units(12345, 15), units(12345, 3)},
		{new(big.Int).Mul(big.NewInt(123_456_789), units(1, 12)), big.NewInt(123_456_789)},
	}
	for _, in := range inputs {
		deposit, err := ComputeDepositAmounts(DepositRequest{
			Market:           balancedMarket(),
			Strategy:         StrategyByCollaterals,
			LongTokenAmount:  in.long,
			ShortTokenAmount: in.short,
		})
		require.NoError(t, err)

		withdrawal, err := ComputeWithdrawalAmounts(WithdrawalRequest{
			Market:            balancedMarket(),
			Strategy:          StrategyByMarketToken,
			MarketTokenAmount: deposit.MarketTokenAmount,
		})
		require.NoError(t, err)

		for name, pair := range map[string][2]*big.Int{
			"long":  {in.long, withdrawal.LongTokenAmount},
			"short": {in.short, withdrawal.ShortTokenAmount},
		} {
			diff := new(big.Int).Sub(pair[0], pair[1])
			if diff.CmpAbs(big.NewInt(1)) > 0 {
				t.Fatalf("%s leg drifted by %s (in %s, out %s)", name, diff, pair[0], pair[1])
			}
		}
	}
}

func TestWithdrawalRejectsMalformedRequests(t *testing.T) {
	_, err := ComputeWithdrawalAmounts(WithdrawalRequest{
		Market:            balancedMarket(),
		Strategy:          StrategyByMarketToken,
		MarketTokenAmount: big.NewInt(-10),
	})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	_, err = ComputeWithdrawalAmounts(WithdrawalRequest{Market: balancedMarket()})
	require.ErrorIs(t, err, ErrUnknownStrategy)
}
