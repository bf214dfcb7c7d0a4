package pricing

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatUnits renders a scaled integer as a decimal string, trimming
// trailing zeros.
func FormatUnits(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(value, -int32(decimals)).String()
}

// FormatUsd renders a 30-decimal USD value rounded to the given places.
func FormatUsd(value *big.Int, places int32) string {
	if value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(value, -USDDecimals).StringFixed(places)
}

// ParseUnits converts a human decimal string ("12.5") into a scaled integer.
// Digits beyond the supported precision are rejected rather than rounded.
func ParseUnits(raw string, decimals uint8) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("pricing: empty amount")
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("pricing: parse amount %q: %w", raw, err)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("pricing: amount %q exceeds %d decimals", raw, decimals)
	}
	return scaled.BigInt(), nil
}
