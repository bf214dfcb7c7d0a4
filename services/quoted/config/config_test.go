package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quoted.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
market_data:
  sources:
    - type: file
      path: ./markets.toml
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":7081" {
		t.Fatalf("unexpected listen address: %q", cfg.ListenAddress)
	}
	if cfg.MarketData.Interval.Duration != 15*time.Second {
		t.Fatalf("unexpected interval: %s", cfg.MarketData.Interval)
	}
	if cfg.MarketData.MaxAge.Duration != 2*time.Minute {
		t.Fatalf("unexpected max age: %s", cfg.MarketData.MaxAge)
	}
	if cfg.RateLimit.RequestsPerMinute != 600 || cfg.RateLimit.Burst != 60 {
		t.Fatalf("unexpected rate limit: %+v", cfg.RateLimit)
	}
	if cfg.MarketData.Sources[0].Name != "file-0" {
		t.Fatalf("unexpected source name: %q", cfg.MarketData.Sources[0].Name)
	}
	if cfg.UIFee().Sign() != 0 {
		t.Fatalf("expected zero ui fee")
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	path := writeConfig(t, `
listen: "127.0.0.1:9000"
database: "postgres://quoted@localhost/quoted"
ui_fee_factor: "500000000000000000000000000"
market_data:
  interval: 5s
  max_age: 30s
  max_spread_bps: 150
  sources:
    - name: keeper
      type: HTTP
      endpoint: http://keeper.local/snapshot
rate_limit:
  requests_per_minute: 120
  burst: 10
  trusted_proxies: ["10.0.0.0/8", "192.0.2.1"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MarketData.Interval.Duration != 5*time.Second {
		t.Fatalf("unexpected interval: %s", cfg.MarketData.Interval)
	}
	if cfg.MarketData.Sources[0].Type != "http" {
		t.Fatalf("expected normalised type, got %q", cfg.MarketData.Sources[0].Type)
	}
	if got := cfg.UIFee().String(); got != "500000000000000000000000000" {
		t.Fatalf("unexpected ui fee: %s", got)
	}
	if cfg.MarketData.MaxSpreadBps != 150 {
		t.Fatalf("unexpected spread: %d", cfg.MarketData.MaxSpreadBps)
	}
	if len(cfg.RateLimit.TrustedProxies) != 2 || cfg.RateLimit.TrustedProxies[1] != "192.0.2.1" {
		t.Fatalf("unexpected trusted proxies: %v", cfg.RateLimit.TrustedProxies)
	}
}

func TestValidateRejectsBadInput(t *testing.T) {
	cases := map[string]Config{
		"no sources":        {},
		"unknown type":      {MarketData: MarketDataConfig{Sources: []Source{{Name: "x", Type: "ftp"}}}},
		"file without path": {MarketData: MarketDataConfig{Sources: []Source{{Name: "x", Type: "file"}}}},
		"negative ui fee": {
			UIFeeFactor: "-1",
			MarketData:  MarketDataConfig{Sources: []Source{{Name: "x", Type: "file", Path: "m.toml"}}},
		},
		"bad trusted proxy": {
			MarketData: MarketDataConfig{Sources: []Source{{Name: "x", Type: "file", Path: "m.toml"}}},
			RateLimit:  RateLimitConfig{TrustedProxies: []string{"proxy.local"}},
		},
		"fractional ui fee": {
			UIFeeFactor: "0.5",
			MarketData:  MarketDataConfig{Sources: []Source{{Name: "x", Type: "file", Path: "m.toml"}}},
		},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			if err := validate(cfg); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestDurationRejectsNonScalar(t *testing.T) {
	path := writeConfig(t, `
market_data:
  interval: [1, 2]
  sources:
    - type: file
      path: m.toml
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected decode error for list duration")
	}
}
