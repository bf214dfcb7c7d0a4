package liquidity

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uxuyconnect/gmx-interface/core/pricing"
)

// VaultInfo describes a GLV token aggregating GM markets. Its prices are the
// index prices of one vault token. Wrapping is a pure unit conversion.
type VaultInfo struct {
	Token pricing.Token
	// Markets lists the GM tokens the vault accepts. Empty means unrestricted.
	Markets []common.Address
}

// Contains reports whether the vault accepts the given market token.
func (v *VaultInfo) Contains(marketToken common.Address) bool {
	if v == nil {
		return false
	}
	if len(v.Markets) == 0 {
		return true
	}
	for _, addr := range v.Markets {
		if addr == marketToken {
			return true
		}
	}
	return false
}

// Wrap converts a USD value into vault token units at the chosen index price.
func (v *VaultInfo) Wrap(usd *big.Int, side pricing.Side) (*big.Int, error) {
	return pricing.UsdToToken(v.Token, usd, side)
}

// Unwrap values an amount of vault tokens in USD at the chosen index price.
func (v *VaultInfo) Unwrap(amount *big.Int, side pricing.Side) (*big.Int, error) {
	return pricing.TokenToUsd(v.Token, amount, side)
}

func (v *VaultInfo) validate(market MarketInfo) error {
	if v == nil {
		return nil
	}
	if err := checkToken("vault", v.Token); err != nil {
		return err
	}
	if !v.Contains(market.MarketToken.Address) {
		return invalid("vault", "does not hold market "+market.MarketToken.Address.Hex())
	}
	return nil
}
