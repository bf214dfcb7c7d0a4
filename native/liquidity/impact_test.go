package liquidity

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPriceImpactSameSide(t *testing.T) {
	cases := []struct {
		name        string
		long, short int64
		dLong       int64
		dShort      int64
		want        *big.Int
	}{
		{"balanced to skewed", 1000, 1000, 1000, 0, new(big.Int).Neg(units(1, 28))},
		{"skew reduced", 1500, 500, 0, 1000, units(1, 28)},
		{"no change", 1000, 1000, 0, 0, new(big.Int)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := PriceImpactUsd(ImpactParams{
				CurrentLongUsd:  usd(tc.long),
				CurrentShortUsd: usd(tc.short),
				LongDeltaUsd:    usd(tc.dLong),
				ShortDeltaUsd:   usd(tc.dShort),
				FactorPositive:  units(1, 22),
				FactorNegative:  units(1, 22),
				ExponentFactor:  usd(2),
			})
			require.NoError(t, err)
			requireEqualInt(t, "impact", got, tc.want)
		})
	}
}

func TestPriceImpactCrossover(t *testing.T) {
	// 1500/500 becomes 1500/2500: the 1000 USD skew flips sides.
	got, err := PriceImpactUsd(ImpactParams{
		CurrentLongUsd:  usd(1500),
		CurrentShortUsd: usd(500),
		ShortDeltaUsd:   usd(2000),
		FactorPositive:  units(1, 22),
		FactorNegative:  units(2, 22),
		ExponentFactor:  usd(2),
	})
	require.NoError(t, err)
	requireEqualInt(t, "impact", got, new(big.Int).Neg(units(1, 28)))
}

func TestPriceImpactNegativePool(t *testing.T) {
	got, err := PriceImpactUsd(ImpactParams{
		CurrentLongUsd:  usd(1500),
		CurrentShortUsd: usd(500),
		LongDeltaUsd:    usd(-2000),
	})
	if !errors.Is(err, ErrNegativePool) {
		t.Fatalf("expected ErrNegativePool, got %v", err)
	}
	require.Zero(t, got.Sign())
}

func TestPriceImpactRejectsHugeExponent(t *testing.T) {
	got, err := PriceImpactUsd(ImpactParams{
		CurrentLongUsd:  usd(1500),
		CurrentShortUsd: usd(500),
		LongDeltaUsd:    usd(100),
		FactorNegative:  units(1, 22),
		ExponentFactor:  new(big.Int).Lsh(big.NewInt(1), 200),
	})
	require.ErrorIs(t, err, ErrInvalidRequest)
	require.Zero(t, got.Sign())
}

func TestApplySwapImpactWithCap(t *testing.T) {
	market := balancedMarket()
	market.SwapImpactPoolAmountShort = big.NewInt(2_000_000)

	rebate, err := ApplySwapImpactWithCap(market, ShortSide, usd(5))
	require.NoError(t, err)
	require.True(t, rebate.Capped)
	requireEqualInt(t, "amount", rebate.Amount, big.NewInt(2_000_000))
	requireEqualInt(t, "excess", rebate.ExcessUsd, usd(3))

	charge, err := ApplySwapImpactWithCap(market, ShortSide, new(big.Int).Neg(units(15, 23)))
	require.NoError(t, err)
	require.False(t, charge.Capped)
	// 1.5 units round up in magnitude to 2.
	requireEqualInt(t, "amount", charge.Amount, big.NewInt(-2))

	market.ShortToken.Prices.Min = nil
	_, err = ApplySwapImpactWithCap(market, ShortSide, usd(-1))
	require.Error(t, err)
}
