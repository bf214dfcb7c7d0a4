package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/uxuyconnect/gmx-interface/core/pricing"
	"github.com/uxuyconnect/gmx-interface/observability"
)

// ErrNoSnapshot is returned while no snapshot has been accepted yet.
var ErrNoSnapshot = errors.New("marketdata: no snapshot available")

// State is the active snapshot together with its current guard assessment.
type State struct {
	Snapshot   *Snapshot
	Assessment pricing.Assessment
}

// Manager polls the configured sources and keeps the freshest snapshot that
// passes the guard.
type Manager struct {
	logger   *slog.Logger
	sources  []Source
	guard    pricing.Guard
	interval time.Duration
	cache    *Cache
	metrics  *observability.MarketDataMetrics
	now      func() time.Time
	once     sync.Once

	mu     sync.RWMutex
	latest *Snapshot
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger installs a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithCache persists accepted snapshots.
func WithCache(c *Cache) Option {
	return func(m *Manager) {
		m.cache = c
	}
}

// WithGuard overrides the freshness and spread guard.
func WithGuard(g pricing.Guard) Option {
	return func(m *Manager) {
		m.guard = g
	}
}

// WithClock overrides the wall clock, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithMetrics records refresh outcomes on the supplied registry.
func WithMetrics(metrics *observability.MarketDataMetrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// New constructs a manager instance.
func New(sources []Source, interval time.Duration, opts ...Option) (*Manager, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("at least one source required")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("interval must be positive")
	}
	mgr := &Manager{
		logger:   slog.Default(),
		sources:  append([]Source{}, sources...),
		interval: interval,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(mgr)
		}
	}
	if mgr.logger == nil {
		mgr.logger = slog.Default()
	}
	if mgr.now == nil {
		mgr.now = time.Now
	}
	return mgr, nil
}

// Run blocks, periodically refreshing the snapshot until the context is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	if m == nil {
		return fmt.Errorf("manager not configured")
	}
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	m.once.Do(func() {
		m.logger.Info("market data manager started", "sources", len(m.sources), "interval", m.interval.String())
	})
	for {
		if err := m.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.logger.Warn("market data refresh failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick fetches every source once and adopts the freshest acceptable snapshot.
func (m *Manager) Tick(ctx context.Context) error {
	if m == nil {
		return fmt.Errorf("manager not configured")
	}
	now := m.now()
	var best *Snapshot
	for _, src := range m.sources {
		if src == nil {
			continue
		}
		snap, err := src.Fetch(ctx)
		if err != nil {
			m.logger.Warn("market data source failed", "source", src.Name(), "error", err)
			m.metrics.RecordRefresh(src.Name(), "error")
			continue
		}
		if snap.ObservedAt.After(now.Add(5 * time.Second)) {
			m.logger.Warn("market data source produced future timestamp", "source", src.Name())
			m.metrics.RecordRefresh(src.Name(), "future")
			continue
		}
		assessment := m.guard.CheckSnapshot(snap.ObservedAt, now)
		if assessment.Status != pricing.PriceStatusOK {
			m.logger.Warn("market data snapshot rejected", "source", src.Name(), "status", string(assessment.Status), "age_seconds", assessment.AgeSeconds)
			m.metrics.RecordRefresh(src.Name(), string(assessment.Status))
			continue
		}
		m.metrics.RecordRefresh(src.Name(), "ok")
		if best == nil || snap.ObservedAt.After(best.ObservedAt) {
			best = snap
		}
	}
	if best == nil {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("no fresh snapshot from %d sources", len(m.sources))
	}
	m.inspectPrices(best)
	m.adopt(best)
	if err := m.cache.Save(best); err != nil {
		m.logger.Warn("persist snapshot", "error", err)
	}
	return nil
}

// Restore seeds the manager from the cache when nothing newer is loaded.
func (m *Manager) Restore() error {
	if m == nil {
		return fmt.Errorf("manager not configured")
	}
	snap, err := m.cache.Load()
	if err != nil {
		return err
	}
	m.mu.Lock()
	if m.latest == nil || snap.ObservedAt.After(m.latest.ObservedAt) {
		m.latest = snap
	}
	m.mu.Unlock()
	m.logger.Info("restored cached snapshot", "source", snap.Source, "digest", snap.Digest)
	return nil
}

// Latest returns the active snapshot assessed against the current time.
func (m *Manager) Latest() (State, error) {
	if m == nil {
		return State{}, ErrNoSnapshot
	}
	m.mu.RLock()
	snap := m.latest
	m.mu.RUnlock()
	if snap == nil {
		return State{}, ErrNoSnapshot
	}
	assessment := m.guard.CheckSnapshot(snap.ObservedAt, m.now())
	m.metrics.SetSnapshotAge(time.Duration(assessment.AgeSeconds) * time.Second)
	return State{Snapshot: snap, Assessment: assessment}, nil
}

// Set installs a snapshot directly. Used for static deployments and tests.
func (m *Manager) Set(snap *Snapshot) {
	if m == nil || snap == nil {
		return
	}
	m.adopt(snap)
}

func (m *Manager) adopt(snap *Snapshot) {
	m.mu.Lock()
	previous := m.latest
	m.latest = snap
	m.mu.Unlock()
	if previous == nil || previous.Digest != snap.Digest {
		m.logger.Info("snapshot adopted", "source", snap.Source, "digest", snap.Digest, "markets", len(snap.Markets()))
	}
}

func (m *Manager) inspectPrices(snap *Snapshot) {
	for _, token := range snap.Tokens() {
		status := m.guard.CheckPrices(token.Prices)
		if status == pricing.PriceStatusOK {
			continue
		}
		m.logger.Warn("token price flagged", "source", snap.Source, "token", token.Label(), "status", string(status))
	}
}
