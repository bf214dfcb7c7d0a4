package pricing

import (
	"math"
	"math/big"
	"time"
)

// PriceStatus captures the health classification assigned to a price snapshot.
type PriceStatus string

const (
	// PriceStatusOK indicates the snapshot passed all configured guardrails.
	PriceStatusOK PriceStatus = "ok"
	// PriceStatusStale signals the snapshot exceeded the configured freshness window.
	PriceStatusStale PriceStatus = "stale"
	// PriceStatusDeviant indicates a token's bid/ask spread exceeded the threshold.
	PriceStatusDeviant PriceStatus = "deviant"
	// PriceStatusMissing marks a token without a usable price.
	PriceStatusMissing PriceStatus = "missing"
)

// Guard classifies market snapshots before they are offered to the quoting
// engine. The engine itself never checks staleness.
type Guard struct {
	// MaxAge bounds how old an observation may be. Zero disables the check.
	MaxAge time.Duration
	// MaxSpreadBps bounds (max-min)/mid. Zero disables the check.
	MaxSpreadBps uint32
}

// Assessment is the outcome of a guard check.
type Assessment struct {
	Status     PriceStatus
	AgeSeconds uint32
}

// CheckSnapshot classifies a snapshot observed at the supplied time.
func (g Guard) CheckSnapshot(observed, now time.Time) Assessment {
	if now.IsZero() {
		now = time.Now()
	}
	age := computeAgeSeconds(observed, now.UTC())
	status := PriceStatusOK
	if g.MaxAge > 0 {
		if observed.IsZero() || time.Duration(age)*time.Second > g.MaxAge {
			status = PriceStatusStale
		}
	}
	return Assessment{Status: status, AgeSeconds: age}
}

// CheckPrices classifies a single token's price pair.
func (g Guard) CheckPrices(p Prices) PriceStatus {
	if p.Min == nil || p.Max == nil || p.Min.Sign() <= 0 || p.Max.Sign() <= 0 {
		return PriceStatusMissing
	}
	if g.MaxSpreadBps > 0 && deviatesBeyondThreshold(p.Max, p.Min, p.Mid(), g.MaxSpreadBps) {
		return PriceStatusDeviant
	}
	return PriceStatusOK
}

func computeAgeSeconds(observed, now time.Time) uint32 {
	if observed.IsZero() || now.IsZero() {
		return math.MaxUint32
	}
	observed = observed.UTC()
	if observed.After(now) {
		return 0
	}
	seconds := now.Sub(observed) / time.Second
	if seconds <= 0 {
		return 0
	}
	if seconds > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(seconds)
}

func deviatesBeyondThreshold(high, low, mid *big.Int, thresholdBps uint32) bool {
	if mid == nil || mid.Sign() <= 0 {
		return false
	}
	diff := new(big.Int).Sub(high, low)
	diff.Abs(diff)
	if diff.Sign() == 0 {
		return false
	}
	ratio := new(big.Rat).SetFrac(diff, mid)
	ratio.Mul(ratio, big.NewRat(10000, 1))
	return ratio.Cmp(big.NewRat(int64(thresholdBps), 1)) == 1
}
