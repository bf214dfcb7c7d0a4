package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/uxuyconnect/gmx-interface/core/pricing"
	"github.com/uxuyconnect/gmx-interface/observability"
	"github.com/uxuyconnect/gmx-interface/observability/logging"
	telemetry "github.com/uxuyconnect/gmx-interface/observability/otel"
	"github.com/uxuyconnect/gmx-interface/services/quoted/config"
	"github.com/uxuyconnect/gmx-interface/services/quoted/marketdata"
	"github.com/uxuyconnect/gmx-interface/services/quoted/server"
	"github.com/uxuyconnect/gmx-interface/services/quoted/storage"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "services/quoted/config.yaml", "path to quoted configuration file")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("quoted: load config: %v", err)
	}

	env := cfg.Env
	if override := strings.TrimSpace(os.Getenv("GMX_ENV")); override != "" {
		env = override
	}
	logOpts := []logging.Option{logging.WithLevel(logging.ParseLevel(cfg.LogLevel))}
	if strings.TrimSpace(cfg.LogFile) != "" {
		logOpts = append(logOpts, logging.WithFile(cfg.LogFile, 100, 5))
	}
	logger := logging.Setup("quoted", env, logOpts...)

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.FromEnv("quoted", env))
	if err != nil {
		log.Fatalf("quoted: init telemetry: %v", err)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	dsn, err := storage.FileDSN(cfg.Database)
	if err != nil {
		log.Fatalf("quoted: resolve storage DSN: %v", err)
	}
	store, err := storage.Open(dsn)
	if err != nil {
		log.Fatalf("quoted: open storage: %v", err)
	}
	defer store.Close()

	var cache *marketdata.Cache
	if strings.TrimSpace(cfg.SnapshotCache) != "" {
		cache, err = marketdata.OpenCache(cfg.SnapshotCache)
		if err != nil {
			log.Fatalf("quoted: open snapshot cache: %v", err)
		}
		defer cache.Close()
	}

	for _, src := range cfg.MarketData.Sources {
		attrs := []any{"source", src.Name, "type", src.Type}
		if src.Endpoint != "" {
			attrs = append(attrs, "endpoint", logging.RedactURL(src.Endpoint))
		}
		if src.APIKey != "" {
			attrs = append(attrs, logging.MaskField("api_key", src.APIKey))
		}
		logger.Info("market data source configured", attrs...)
	}
	sources, err := marketdata.NewRegistry().BuildAll(cfg.MarketData.Sources)
	if err != nil {
		log.Fatalf("quoted: build sources: %v", err)
	}
	mgr, err := marketdata.New(sources, cfg.MarketData.Interval.Duration,
		marketdata.WithLogger(logger),
		marketdata.WithCache(cache),
		marketdata.WithMetrics(observability.MarketData()),
		marketdata.WithGuard(pricing.Guard{
			MaxAge:       cfg.MarketData.MaxAge.Duration,
			MaxSpreadBps: cfg.MarketData.MaxSpreadBps,
		}),
	)
	if err != nil {
		log.Fatalf("quoted: market data manager: %v", err)
	}
	if err := mgr.Restore(); err != nil && !errors.Is(err, marketdata.ErrNoCachedSnapshot) {
		logger.Warn("restore cached snapshot", "error", err)
	}

	srv, err := server.New(server.Config{
		ListenAddress:  cfg.ListenAddress,
		UIFeeFactor:    cfg.UIFee(),
		MaxConnections: cfg.RateLimit.MaxConnections,
		RateLimit: server.RateLimit{
			RequestsPerMinute: float64(cfg.RateLimit.RequestsPerMinute),
			Burst:             cfg.RateLimit.Burst,
			TrustedProxies:    cfg.RateLimit.TrustedProxies,
		},
	}, mgr, store, logger)
	if err != nil {
		log.Fatalf("quoted: configure server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := mgr.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("market data manager stopped", "error", err)
		}
	}()

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("quoted: server error: %v", err)
	}
}
