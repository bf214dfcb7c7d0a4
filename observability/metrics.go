package observability

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	quoteMetricsOnce sync.Once
	quoteRegistry    *QuoteMetrics

	marketDataOnce     sync.Once
	marketDataRegistry *MarketDataMetrics
)

// QuoteMetrics tracks deposit and withdrawal quote traffic.
type QuoteMetrics struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	capped    *prometheus.CounterVec
	unpriced  *prometheus.CounterVec
	throttles *prometheus.CounterVec
}

// Quotes returns the lazily-initialised quote metrics registry.
func Quotes() *QuoteMetrics {
	quoteMetricsOnce.Do(func() {
		quoteRegistry = &QuoteMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "gmx",
				Subsystem: "quote",
				Name:      "requests_total",
				Help:      "Total quote requests segmented by kind, strategy and outcome.",
			}, []string{"kind", "strategy", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "gmx",
				Subsystem: "quote",
				Name:      "duration_seconds",
				Help:      "Latency distribution for quote computation including persistence.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"kind"}),
			capped: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "gmx",
				Subsystem: "quote",
				Name:      "impact_capped_total",
				Help:      "Quotes whose positive price impact was clamped by the impact pool.",
			}, []string{"kind"}),
			unpriced: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "gmx",
				Subsystem: "quote",
				Name:      "unpriced_legs_total",
				Help:      "Quotes returned with at least one leg that could not be priced.",
			}, []string{"kind"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "gmx",
				Subsystem: "quote",
				Name:      "throttles_total",
				Help:      "Quote requests rejected by throttling policies.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(
			quoteRegistry.requests,
			quoteRegistry.latency,
			quoteRegistry.capped,
			quoteRegistry.unpriced,
			quoteRegistry.throttles,
		)
	})
	return quoteRegistry
}

// QuoteOutcome summarises a served quote for metrics.
type QuoteOutcome struct {
	Kind     string
	Strategy string
	Duration time.Duration
	Err      error
	Capped   bool
	Unpriced bool
}

// Observe records the execution metrics for a quote.
func (m *QuoteMetrics) Observe(outcome QuoteOutcome) {
	if m == nil {
		return
	}
	kind := label(outcome.Kind)
	result := "success"
	if outcome.Err != nil {
		result = "error"
	}
	m.requests.WithLabelValues(kind, label(outcome.Strategy), result).Inc()
	m.latency.WithLabelValues(kind).Observe(outcome.Duration.Seconds())
	if outcome.Capped {
		m.capped.WithLabelValues(kind).Inc()
	}
	if outcome.Unpriced {
		m.unpriced.WithLabelValues(kind).Inc()
	}
}

// RecordThrottle increments the throttle counter. Reasons should be stable
// strings such as "rate_limit".
func (m *QuoteMetrics) RecordThrottle(reason string) {
	if m == nil {
		return
	}
	if strings.TrimSpace(reason) == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(reason).Inc()
}

// MarketDataMetrics tracks the market snapshot refresh loop.
type MarketDataMetrics struct {
	refreshes   *prometheus.CounterVec
	snapshotAge prometheus.Gauge
}

// MarketData returns the lazily-initialised market data metrics registry.
func MarketData() *MarketDataMetrics {
	marketDataOnce.Do(func() {
		marketDataRegistry = &MarketDataMetrics{
			refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "gmx",
				Subsystem: "marketdata",
				Name:      "refresh_total",
				Help:      "Snapshot fetch attempts segmented by source and outcome.",
			}, []string{"source", "outcome"}),
			snapshotAge: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "gmx",
				Subsystem: "marketdata",
				Name:      "snapshot_age_seconds",
				Help:      "Age of the snapshot currently used for quoting.",
			}),
		}
		prometheus.MustRegister(marketDataRegistry.refreshes, marketDataRegistry.snapshotAge)
	})
	return marketDataRegistry
}

// RecordRefresh counts one fetch attempt.
func (m *MarketDataMetrics) RecordRefresh(source, outcome string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(label(source), label(outcome)).Inc()
}

// SetSnapshotAge publishes the age of the active snapshot.
func (m *MarketDataMetrics) SetSnapshotAge(age time.Duration) {
	if m == nil {
		return
	}
	if age < 0 {
		age = 0
	}
	m.snapshotAge.Set(age.Seconds())
}

func label(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
