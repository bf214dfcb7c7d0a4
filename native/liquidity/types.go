package liquidity

import (
	"math/big"

	"github.com/uxuyconnect/gmx-interface/core/fixedpoint"
	"github.com/uxuyconnect/gmx-interface/core/pricing"
)

// MarketInfo is a point-in-time view of a GM market. Amounts are expressed in
// collateral token base units, USD values and factors carry 30 decimals.
type MarketInfo struct {
	// MarketToken is the GM token. Its TotalSupply and prices drive mint/burn pricing.
	MarketToken pricing.Token
	LongToken   pricing.Token
	ShortToken  pricing.Token

	LongPoolAmount  *big.Int
	ShortPoolAmount *big.Int
	// PoolValueMax is the pool value used when minting, maximised over prices.
	PoolValueMax *big.Int

	// SwapImpactPoolAmountLong/Short bound the positive impact that can be paid out.
	SwapImpactPoolAmountLong  *big.Int
	SwapImpactPoolAmountShort *big.Int

	SwapImpactFactorPositive *big.Int
	SwapImpactFactorNegative *big.Int
	SwapImpactExponentFactor *big.Int

	SwapFeeFactorForPositiveImpact *big.Int
	SwapFeeFactorForNegativeImpact *big.Int

	// Virtual inventory is optional; zero disables the check.
	VirtualPoolAmountForLongToken  *big.Int
	VirtualPoolAmountForShortToken *big.Int
}

// PoolSide identifies one side of a market's collateral pair.
type PoolSide int

const (
	LongSide PoolSide = iota
	ShortSide
)

func (s PoolSide) String() string {
	if s == LongSide {
		return "long"
	}
	return "short"
}

// Opposite returns the other side of the pair.
func (s PoolSide) Opposite() PoolSide {
	if s == LongSide {
		return ShortSide
	}
	return LongSide
}

// Token returns the collateral token for the side.
func (m MarketInfo) Token(side PoolSide) pricing.Token {
	if side == LongSide {
		return m.LongToken
	}
	return m.ShortToken
}

// PoolAmount returns the pool amount held for the side.
func (m MarketInfo) PoolAmount(side PoolSide) *big.Int {
	if side == LongSide {
		return fixedpoint.OrZero(m.LongPoolAmount)
	}
	return fixedpoint.OrZero(m.ShortPoolAmount)
}

// ImpactPoolAmount returns the swap impact budget held for the side.
func (m MarketInfo) ImpactPoolAmount(side PoolSide) *big.Int {
	if side == LongSide {
		return fixedpoint.OrZero(m.SwapImpactPoolAmountLong)
	}
	return fixedpoint.OrZero(m.SwapImpactPoolAmountShort)
}

// Strategy selects which side of the request the caller fixed.
type Strategy string

const (
	// StrategyByCollaterals fixes the collateral amounts and derives the market token amount.
	StrategyByCollaterals Strategy = "byCollaterals"
	// StrategyByMarketToken fixes the market (or vault) token amount and derives collaterals.
	StrategyByMarketToken Strategy = "byMarketToken"
	// StrategyByLongCollateral fixes the long output of a withdrawal.
	StrategyByLongCollateral Strategy = "byLongCollateral"
	// StrategyByShortCollateral fixes the short output of a withdrawal.
	StrategyByShortCollateral Strategy = "byShortCollateral"
)

// DepositRequest carries every input of a deposit quote.
type DepositRequest struct {
	Market MarketInfo
	// Vault wraps the market in a GLV token when non-nil.
	Vault    *VaultInfo
	Strategy Strategy

	// LongTokenAmount and ShortTokenAmount are the inputs for byCollaterals and
	// the user's previous holdings for byMarketToken.
	LongTokenAmount  *big.Int
	ShortTokenAmount *big.Int
	// MarketTokenAmount is the requested GM (or GLV when Vault is set) amount.
	MarketTokenAmount *big.Int

	IncludeLongToken  bool
	IncludeShortToken bool
	UIFeeFactor       *big.Int
	// ForShift skips swap fees for market-to-market moves.
	ForShift bool
	// IsMarketTokenDeposit deposits GM tokens directly into Vault. The GM
	// amount travels in LongTokenAmount.
	IsMarketTokenDeposit bool
}

// WithdrawalRequest carries every input of a withdrawal quote.
type WithdrawalRequest struct {
	Market   MarketInfo
	Vault    *VaultInfo
	Strategy Strategy

	// MarketTokenAmount is the GM (or GLV when Vault is set) amount to burn.
	MarketTokenAmount *big.Int
	LongTokenAmount   *big.Int
	ShortTokenAmount  *big.Int

	UIFeeFactor *big.Int
	ForShift    bool
}

// Amounts is the resolved quote. It is a value object: every field is
// non-nil and nothing is mutated after it is returned.
type Amounts struct {
	LongTokenAmount  *big.Int
	LongTokenUsd     *big.Int
	ShortTokenAmount *big.Int
	ShortTokenUsd    *big.Int

	// MarketTokenAmount holds vault tokens when the market is wrapped by a vault.
	MarketTokenAmount *big.Int
	MarketTokenUsd    *big.Int

	SwapFeeUsd *big.Int
	UIFeeUsd   *big.Int
	// SwapPriceImpactDeltaUsd is negative for a cost and positive for a rebate.
	SwapPriceImpactDeltaUsd *big.Int

	// ImpactCapped reports that a positive impact was clamped by the impact pool.
	ImpactCapped    bool
	ImpactCappedUsd *big.Int
	// UnpricedLegs names the legs that could not be priced and counted as zero.
	UnpricedLegs []string
}

// ZeroAmounts returns an all-zero result.
func ZeroAmounts() Amounts {
	return Amounts{
		LongTokenAmount:         new(big.Int),
		LongTokenUsd:            new(big.Int),
		ShortTokenAmount:        new(big.Int),
		ShortTokenUsd:           new(big.Int),
		MarketTokenAmount:       new(big.Int),
		MarketTokenUsd:          new(big.Int),
		SwapFeeUsd:              new(big.Int),
		UIFeeUsd:                new(big.Int),
		SwapPriceImpactDeltaUsd: new(big.Int),
		ImpactCappedUsd:         new(big.Int),
	}
}

// Clone returns a deep copy of the amounts.
func (a Amounts) Clone() Amounts {
	clone := Amounts{
		LongTokenAmount:         fixedpoint.OrZero(a.LongTokenAmount),
		LongTokenUsd:            fixedpoint.OrZero(a.LongTokenUsd),
		ShortTokenAmount:        fixedpoint.OrZero(a.ShortTokenAmount),
		ShortTokenUsd:           fixedpoint.OrZero(a.ShortTokenUsd),
		MarketTokenAmount:       fixedpoint.OrZero(a.MarketTokenAmount),
		MarketTokenUsd:          fixedpoint.OrZero(a.MarketTokenUsd),
		SwapFeeUsd:              fixedpoint.OrZero(a.SwapFeeUsd),
		UIFeeUsd:                fixedpoint.OrZero(a.UIFeeUsd),
		SwapPriceImpactDeltaUsd: fixedpoint.OrZero(a.SwapPriceImpactDeltaUsd),
		ImpactCapped:            a.ImpactCapped,
		ImpactCappedUsd:         fixedpoint.OrZero(a.ImpactCappedUsd),
	}
	if len(a.UnpricedLegs) > 0 {
		clone.UnpricedLegs = append([]string(nil), a.UnpricedLegs...)
	}
	return clone
}

// IsZero reports whether no token moves in the quote.
func (a Amounts) IsZero() bool {
	return fixedpoint.IsZero(a.LongTokenAmount) &&
		fixedpoint.IsZero(a.ShortTokenAmount) &&
		fixedpoint.IsZero(a.MarketTokenAmount)
}
