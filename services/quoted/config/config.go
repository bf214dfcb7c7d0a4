package config

import (
	"fmt"
	"math/big"
	"net/netip"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support YAML unmarshalling.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses human readable duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be string")
	}
	raw := value.Value
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// Config captures runtime configuration for quoted.
type Config struct {
	ListenAddress string `yaml:"listen"`
	Env           string `yaml:"env"`
	// Database is a sqlite file path or a postgres:// DSN.
	Database      string           `yaml:"database"`
	SnapshotCache string           `yaml:"snapshot_cache"`
	UIFeeFactor   string           `yaml:"ui_fee_factor"`
	LogFile       string           `yaml:"log_file"`
	LogLevel      string           `yaml:"log_level"`
	MarketData    MarketDataConfig `yaml:"market_data"`
	RateLimit     RateLimitConfig  `yaml:"rate_limit"`
}

// MarketDataConfig tunes the snapshot refresh loop.
type MarketDataConfig struct {
	Interval     Duration `yaml:"interval"`
	MaxAge       Duration `yaml:"max_age"`
	MaxSpreadBps uint32   `yaml:"max_spread_bps"`
	Sources      []Source `yaml:"sources"`
}

// Source describes an upstream market snapshot feed.
type Source struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Path     string `yaml:"path"`
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
}

// RateLimitConfig bounds per-client request rates on the quote API.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
	MaxConnections    int `yaml:"max_connections"`
	// TrustedProxies lists proxy addresses or CIDR prefixes whose
	// X-Forwarded-For header is believed.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// Load reads configuration from the supplied path.
func Load(path string) (Config, error) {
	cfg := Config{}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	dec := yaml.NewDecoder(file)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// UIFee returns the configured UI fee factor as a 30-decimal integer.
func (c Config) UIFee() *big.Int {
	factor, err := parseFactor(c.UIFeeFactor)
	if err != nil {
		return new(big.Int)
	}
	return factor
}

func parseFactor(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return new(big.Int), nil
	}
	factor, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("ui_fee_factor %q is not an integer", raw)
	}
	if factor.Sign() < 0 {
		return nil, fmt.Errorf("ui_fee_factor must not be negative")
	}
	return factor, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":7081"
	}
	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.Database == "" {
		cfg.Database = "/var/data/quoted.sqlite"
	}
	if cfg.MarketData.Interval.Duration == 0 {
		cfg.MarketData.Interval.Duration = 15 * time.Second
	}
	if cfg.MarketData.MaxAge.Duration == 0 {
		cfg.MarketData.MaxAge.Duration = 2 * time.Minute
	}
	if cfg.RateLimit.RequestsPerMinute == 0 {
		cfg.RateLimit.RequestsPerMinute = 600
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 60
	}
	for i := range cfg.MarketData.Sources {
		src := &cfg.MarketData.Sources[i]
		src.Type = strings.ToLower(strings.TrimSpace(src.Type))
		if strings.TrimSpace(src.Name) == "" {
			src.Name = fmt.Sprintf("%s-%d", src.Type, i)
		}
	}
}

func validate(cfg Config) error {
	if len(cfg.MarketData.Sources) == 0 {
		return fmt.Errorf("at least one market data source must be configured")
	}
	for _, src := range cfg.MarketData.Sources {
		switch src.Type {
		case "file":
			if strings.TrimSpace(src.Path) == "" {
				return fmt.Errorf("source %s: path must be configured", src.Name)
			}
		case "http":
			if strings.TrimSpace(src.Endpoint) == "" {
				return fmt.Errorf("source %s: endpoint must be configured", src.Name)
			}
		default:
			return fmt.Errorf("source %s: unknown type %q", src.Name, src.Type)
		}
	}
	if _, err := parseFactor(cfg.UIFeeFactor); err != nil {
		return err
	}
	if cfg.RateLimit.RequestsPerMinute < 0 || cfg.RateLimit.Burst < 0 || cfg.RateLimit.MaxConnections < 0 {
		return fmt.Errorf("rate_limit values must not be negative")
	}
	for _, entry := range cfg.RateLimit.TrustedProxies {
		trimmed := strings.TrimSpace(entry)
		if _, err := netip.ParsePrefix(trimmed); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(trimmed); err != nil {
			return fmt.Errorf("rate_limit.trusted_proxies: invalid entry %q", entry)
		}
	}
	return nil
}
