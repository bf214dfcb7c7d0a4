package pricing

import (
	"math"
	"math/big"
	"testing"
	"time"
)

func TestGuardCheckSnapshotOK(t *testing.T) {
	now := time.Now().UTC()
	guard := Guard{MaxAge: 2 * time.Minute}
	result := guard.CheckSnapshot(now.Add(-30*time.Second), now)
	if result.Status != PriceStatusOK {
		t.Fatalf("expected ok status, got %s", result.Status)
	}
	if result.AgeSeconds == 0 || result.AgeSeconds > 31 {
		t.Fatalf("unexpected age seconds: %d", result.AgeSeconds)
	}
}

func TestGuardCheckSnapshotStale(t *testing.T) {
	now := time.Now().UTC()
	guard := Guard{MaxAge: time.Minute}
	result := guard.CheckSnapshot(now.Add(-5*time.Minute), now)
	if result.Status != PriceStatusStale {
		t.Fatalf("expected stale status, got %s", result.Status)
	}
	if zero := guard.CheckSnapshot(time.Time{}, now); zero.Status != PriceStatusStale || zero.AgeSeconds != math.MaxUint32 {
		t.Fatalf("expected zero timestamp to be stale, got %+v", zero)
	}
}

func TestGuardCheckPrices(t *testing.T) {
	guard := Guard{MaxSpreadBps: 100}
	if status := guard.CheckPrices(NewPrices(usd(100), usd(100))); status != PriceStatusOK {
		t.Fatalf("expected ok, got %s", status)
	}
	if status := guard.CheckPrices(NewPrices(usd(90), usd(110))); status != PriceStatusDeviant {
		t.Fatalf("expected deviant, got %s", status)
	}
	if status := guard.CheckPrices(Prices{Min: big.NewInt(0), Max: usd(1)}); status != PriceStatusMissing {
		t.Fatalf("expected missing, got %s", status)
	}
}
