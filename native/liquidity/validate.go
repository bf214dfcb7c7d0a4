package liquidity

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uxuyconnect/gmx-interface/core/fixedpoint"
	"github.com/uxuyconnect/gmx-interface/core/pricing"
)

var (
	// ErrInvalidRequest indicates a malformed request. It always signals a
	// caller bug, never a market condition.
	ErrInvalidRequest = errors.New("liquidity: invalid request")
	// ErrNegativePool indicates a swap would push a pool side below zero.
	ErrNegativePool = errors.New("liquidity: pool would go negative")
	// ErrUnknownStrategy indicates the strategy selector is not supported for the operation.
	ErrUnknownStrategy = errors.New("liquidity: unknown strategy")
)

// maxTokenDecimals keeps 10^decimals within a 256-bit word.
const maxTokenDecimals = 77

func invalid(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidRequest, field, reason)
}

func checkAmount(field string, v *big.Int) error {
	if v == nil {
		return nil
	}
	if v.Sign() < 0 {
		return invalid(field, "must not be negative")
	}
	if !fixedpoint.FitsWord(v) {
		return invalid(field, "exceeds 256 bits")
	}
	return nil
}

func checkToken(field string, token pricing.Token) error {
	if token.Decimals > maxTokenDecimals {
		return invalid(field+".decimals", fmt.Sprintf("must be at most %d", maxTokenDecimals))
	}
	if err := checkAmount(field+".prices.min", token.Prices.Min); err != nil {
		return err
	}
	if err := checkAmount(field+".prices.max", token.Prices.Max); err != nil {
		return err
	}
	if fixedpoint.IsPositive(token.Prices.Min) && fixedpoint.IsPositive(token.Prices.Max) &&
		token.Prices.Min.Cmp(token.Prices.Max) > 0 {
		return invalid(field+".prices", "min exceeds max")
	}
	return checkAmount(field+".totalSupply", token.TotalSupply)
}

// Validate checks the market snapshot for structural problems.
func (m MarketInfo) Validate() error {
	tokens := []struct {
		name  string
		token pricing.Token
	}{
		{"marketToken", m.MarketToken},
		{"longToken", m.LongToken},
		{"shortToken", m.ShortToken},
	}
	for _, entry := range tokens {
		if err := checkToken(entry.name, entry.token); err != nil {
			return err
		}
	}
	if m.LongToken.Address == (common.Address{}) {
		return invalid("longToken", "address is required")
	}
	if m.ShortToken.Address == (common.Address{}) {
		return invalid("shortToken", "address is required")
	}
	amounts := []struct {
		name  string
		value *big.Int
	}{
		{"longPoolAmount", m.LongPoolAmount},
		{"shortPoolAmount", m.ShortPoolAmount},
		{"poolValueMax", m.PoolValueMax},
		{"swapImpactPoolAmountLong", m.SwapImpactPoolAmountLong},
		{"swapImpactPoolAmountShort", m.SwapImpactPoolAmountShort},
		{"swapImpactFactorPositive", m.SwapImpactFactorPositive},
		{"swapImpactFactorNegative", m.SwapImpactFactorNegative},
		{"swapImpactExponentFactor", m.SwapImpactExponentFactor},
		{"swapFeeFactorForPositiveImpact", m.SwapFeeFactorForPositiveImpact},
		{"swapFeeFactorForNegativeImpact", m.SwapFeeFactorForNegativeImpact},
		{"virtualPoolAmountForLongToken", m.VirtualPoolAmountForLongToken},
		{"virtualPoolAmountForShortToken", m.VirtualPoolAmountForShortToken},
	}
	for _, entry := range amounts {
		if err := checkAmount(entry.name, entry.value); err != nil {
			return err
		}
	}
	return checkExponent(m.SwapImpactExponentFactor)
}

func checkExponent(exponent *big.Int) error {
	if exponent != nil && exponent.Cmp(fixedpoint.MaxExponentFactor) > 0 {
		return invalid("swapImpactExponentFactor", "must be at most "+fixedpoint.MaxExponentFactor.String())
	}
	return nil
}

// Validate checks the deposit request. Nil amounts are treated as zero.
func (r DepositRequest) Validate() error {
	if err := r.Market.Validate(); err != nil {
		return err
	}
	switch r.Strategy {
	case StrategyByCollaterals, StrategyByMarketToken:
	default:
		return fmt.Errorf("%w: %w: deposit %q", ErrInvalidRequest, ErrUnknownStrategy, r.Strategy)
	}
	if err := r.Vault.validate(r.Market); err != nil {
		return err
	}
	if r.IsMarketTokenDeposit && r.Vault == nil {
		return invalid("isMarketTokenDeposit", "requires a vault")
	}
	if err := checkAmount("longTokenAmount", r.LongTokenAmount); err != nil {
		return err
	}
	if err := checkAmount("shortTokenAmount", r.ShortTokenAmount); err != nil {
		return err
	}
	if err := checkAmount("marketTokenAmount", r.MarketTokenAmount); err != nil {
		return err
	}
	return checkAmount("uiFeeFactor", r.UIFeeFactor)
}

// Validate checks the withdrawal request. Nil amounts are treated as zero.
func (r WithdrawalRequest) Validate() error {
	if err := r.Market.Validate(); err != nil {
		return err
	}
	switch r.Strategy {
	case StrategyByMarketToken, StrategyByCollaterals, StrategyByLongCollateral, StrategyByShortCollateral:
	default:
		return fmt.Errorf("%w: %w: withdrawal %q", ErrInvalidRequest, ErrUnknownStrategy, r.Strategy)
	}
	if err := r.Vault.validate(r.Market); err != nil {
		return err
	}
	if err := checkAmount("marketTokenAmount", r.MarketTokenAmount); err != nil {
		return err
	}
	if err := checkAmount("longTokenAmount", r.LongTokenAmount); err != nil {
		return err
	}
	if err := checkAmount("shortTokenAmount", r.ShortTokenAmount); err != nil {
		return err
	}
	return checkAmount("uiFeeFactor", r.UIFeeFactor)
}
