package pricing

import (
	"errors"
	"math/big"
	"testing"

	"github.com/uxuyconnect/gmx-interface/core/fixedpoint"
)

func usd(n int64) *big.Int { return fixedpoint.ExpandDecimals(n, USDDecimals) }

func TestPricesMid(t *testing.T) {
	p := NewPrices(usd(99), usd(101))
	if p.Mid().Cmp(usd(100)) != 0 {
		t.Fatalf("unexpected mid: %s", p.Mid())
	}
	odd := NewPrices(big.NewInt(1), big.NewInt(2))
	if odd.Mid().Int64() != 1 {
		t.Fatalf("expected mid to truncate, got %s", odd.Mid())
	}
	if got := p.Pick(SideMax); got.Cmp(usd(101)) != 0 {
		t.Fatalf("unexpected max: %s", got)
	}
}

func TestToUsdAndBack(t *testing.T) {
	amount := fixedpoint.ExpandDecimals(15, 17) // 1.5 tokens at 18 decimals
	value, err := ToUsd(amount, 18, usd(2000))
	if err != nil {
		t.Fatalf("to usd: %v", err)
	}
	if value.Cmp(usd(3000)) != 0 {
		t.Fatalf("expected 3000 USD, got %s", value)
	}
	back, err := ToTokenAmount(value, 18, usd(2000))
	if err != nil {
		t.Fatalf("to token: %v", err)
	}
	if back.Cmp(amount) != 0 {
		t.Fatalf("round trip mismatch: %s != %s", back, amount)
	}
}

func TestConversionsReportMissingPrice(t *testing.T) {
	if _, err := ToUsd(big.NewInt(10), 6, big.NewInt(0)); !errors.Is(err, ErrMissingPrice) {
		t.Fatalf("expected ErrMissingPrice, got %v", err)
	}
	if _, err := ToTokenAmount(usd(1), 6, nil); !errors.Is(err, ErrMissingPrice) {
		t.Fatalf("expected ErrMissingPrice, got %v", err)
	}
	got, err := ToUsd(nil, 6, usd(1))
	if err != nil || got.Sign() != 0 {
		t.Fatalf("nil amount should convert to zero, got %s (%v)", got, err)
	}
}

func TestFormatAndParseUnits(t *testing.T) {
	if got := FormatUnits(fixedpoint.ExpandDecimals(125, 4), 6); got != "1.25" {
		t.Fatalf("unexpected format: %s", got)
	}
	if got := FormatUsd(usd(2), 2); got != "2.00" {
		t.Fatalf("unexpected usd format: %s", got)
	}
	parsed, err := ParseUnits("12.5", 6)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Int64() != 12_500_000 {
		t.Fatalf("unexpected parsed value: %s", parsed)
	}
	if _, err := ParseUnits("0.0000001", 6); err == nil {
		t.Fatalf("expected precision error")
	}
}
