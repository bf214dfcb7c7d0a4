package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/netutil"

	"github.com/uxuyconnect/gmx-interface/observability"
	"github.com/uxuyconnect/gmx-interface/services/quoted/marketdata"
	"github.com/uxuyconnect/gmx-interface/services/quoted/storage"
)

// Config defines HTTP server parameters.
type Config struct {
	ListenAddress string
	// UIFeeFactor applies to quotes that do not override it. Nil means zero.
	UIFeeFactor *big.Int
	RateLimit   RateLimit
	// MaxConnections caps concurrent connections. Zero means unlimited.
	MaxConnections int
}

// SnapshotProvider exposes the active market snapshot.
type SnapshotProvider interface {
	Latest() (marketdata.State, error)
}

// QuoteStore persists served quotes for later lookup.
type QuoteStore interface {
	SaveQuote(ctx context.Context, record *storage.QuoteRecord) error
	GetQuote(ctx context.Context, id uuid.UUID) (storage.QuoteRecord, error)
	RecentQuotes(ctx context.Context, market string, limit int) ([]storage.QuoteRecord, error)
}

// Server hosts the quote API.
type Server struct {
	cfg     Config
	markets SnapshotProvider
	store   QuoteStore
	logger  *slog.Logger
	metrics *observability.QuoteMetrics
	limiter *RateLimiter
	router  http.Handler
	now     func() time.Time
}

// New constructs a new HTTP server. The store is optional; without it quotes
// are served but not retained.
func New(cfg Config, markets SnapshotProvider, store QuoteStore, logger *slog.Logger) (*Server, error) {
	if markets == nil {
		return nil, fmt.Errorf("snapshot provider required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UIFeeFactor != nil && cfg.UIFeeFactor.Sign() < 0 {
		return nil, fmt.Errorf("ui fee factor must not be negative")
	}
	srv := &Server{
		cfg:     cfg,
		markets: markets,
		store:   store,
		logger:  logger,
		metrics: observability.Quotes(),
		now:     time.Now,
	}
	limiter, err := NewRateLimiter(cfg.RateLimit, srv.metrics)
	if err != nil {
		return nil, err
	}
	srv.limiter = limiter
	srv.router = srv.buildRouter()
	return srv, nil
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the HTTP server and blocks until context cancellation.
func (s *Server) Run(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("server not configured")
	}
	listener, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	if s.cfg.MaxConnections > 0 {
		listener = netutil.LimitListener(listener, s.cfg.MaxConnections)
	}
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("http server listening", "address", listener.Addr().String())
	if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(api chi.Router) {
		api.Use(s.limiter.Middleware)
		api.Post("/quotes/deposit", s.handleDeposit)
		api.Post("/quotes/withdrawal", s.handleWithdrawal)
		api.Get("/quotes/{id}", s.handleGetQuote)
		api.Get("/markets", s.handleListMarkets)
		api.Get("/markets/{address}", s.handleGetMarket)
		api.Get("/markets/{address}/quotes", s.handleMarketQuotes)
	})

	return otelhttp.NewHandler(r, "quoted")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"status": "ok"}
	if state, err := s.markets.Latest(); err == nil {
		status["snapshot"] = string(state.Assessment.Status)
		status["snapshotAgeSeconds"] = state.Assessment.AgeSeconds
	} else {
		status["snapshot"] = "missing"
	}
	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
