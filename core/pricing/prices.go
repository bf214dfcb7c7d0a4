package pricing

import (
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uxuyconnect/gmx-interface/core/fixedpoint"
)

// USDDecimals is the precision of USD values and prices.
const USDDecimals = fixedpoint.FloatDecimals

// ErrMissingPrice reports that a leg cannot be priced because its price is
// zero or absent.
var ErrMissingPrice = errors.New("pricing: price unavailable")

// Side selects which price of a bid/ask pair a conversion uses.
type Side int

const (
	// SideMin is the bid, used where rounding must favour the pool.
	SideMin Side = iota
	// SideMid is the average of bid and ask, used to value notionals.
	SideMid
	// SideMax is the ask.
	SideMax
)

func (s Side) String() string {
	switch s {
	case SideMin:
		return "min"
	case SideMid:
		return "mid"
	case SideMax:
		return "max"
	default:
		return "unknown"
	}
}

// Prices holds the min/max USD price of one whole token scaled by 1e30.
type Prices struct {
	Min *big.Int
	Max *big.Int
}

// NewPrices builds a price pair. Equal values describe a token without spread.
func NewPrices(min, max *big.Int) Prices {
	return Prices{Min: fixedpoint.OrZero(min), Max: fixedpoint.OrZero(max)}
}

// Mid returns the arithmetic mean of the min and max price.
func (p Prices) Mid() *big.Int {
	sum := new(big.Int).Add(fixedpoint.OrZero(p.Min), fixedpoint.OrZero(p.Max))
	return sum.Rsh(sum, 1)
}

// Pick returns a copy of the price for the requested side.
func (p Prices) Pick(side Side) *big.Int {
	switch side {
	case SideMin:
		return fixedpoint.OrZero(p.Min)
	case SideMax:
		return fixedpoint.OrZero(p.Max)
	default:
		return p.Mid()
	}
}

// Clone returns a deep copy of the price pair.
func (p Prices) Clone() Prices {
	return Prices{Min: fixedpoint.OrZero(p.Min), Max: fixedpoint.OrZero(p.Max)}
}

// Token is a point-in-time snapshot of a token's pricing metadata.
type Token struct {
	Address  common.Address
	Symbol   string
	Decimals uint8
	Prices   Prices
	// TotalSupply is only meaningful for market and vault tokens.
	TotalSupply *big.Int
}

// Price returns the token price for the requested side.
func (t Token) Price(side Side) *big.Int {
	return t.Prices.Pick(side)
}

// Label returns a short identifier for logs and unpriced-leg reports.
func (t Token) Label() string {
	if symbol := strings.TrimSpace(t.Symbol); symbol != "" {
		return symbol
	}
	return t.Address.Hex()
}

// ToUsd converts a token amount into USD: amount * price / 10^decimals.
// A zero or nil price yields ErrMissingPrice.
func ToUsd(amount *big.Int, decimals uint8, price *big.Int) (*big.Int, error) {
	if price == nil || price.Sign() == 0 {
		return new(big.Int), ErrMissingPrice
	}
	if fixedpoint.IsZero(amount) {
		return new(big.Int), nil
	}
	return fixedpoint.MulDiv(amount, price, fixedpoint.ExpandDecimals(1, decimals), fixedpoint.RoundDown), nil
}

// ToTokenAmount converts USD into token units: usd * 10^decimals / price.
// A zero or nil price yields ErrMissingPrice.
func ToTokenAmount(usd *big.Int, decimals uint8, price *big.Int) (*big.Int, error) {
	if price == nil || price.Sign() <= 0 {
		return new(big.Int), ErrMissingPrice
	}
	if fixedpoint.IsZero(usd) {
		return new(big.Int), nil
	}
	return fixedpoint.MulDiv(usd, fixedpoint.ExpandDecimals(1, decimals), price, fixedpoint.RoundDown), nil
}

// TokenToUsd values amount of token at the requested price side.
func TokenToUsd(token Token, amount *big.Int, side Side) (*big.Int, error) {
	return ToUsd(amount, token.Decimals, token.Price(side))
}

// UsdToToken converts usd into units of token at the requested price side.
func UsdToToken(token Token, usd *big.Int, side Side) (*big.Int, error) {
	return ToTokenAmount(usd, token.Decimals, token.Price(side))
}
