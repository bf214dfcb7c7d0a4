package marketdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/uxuyconnect/gmx-interface/observability/logging"
	"github.com/uxuyconnect/gmx-interface/services/quoted/config"
)

// Source yields market snapshots from an upstream feed.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (*Snapshot, error)
}

// maxFeedBytes caps the size of a single HTTP snapshot response.
const maxFeedBytes = 8 << 20

// Registry constructs snapshot sources based on configuration.
type Registry struct {
	HTTPClient *http.Client
}

// NewRegistry builds a registry with sane defaults.
func NewRegistry() *Registry {
	return &Registry{HTTPClient: &http.Client{Timeout: 10 * time.Second}}
}

// Build creates a source from the supplied configuration.
func (r *Registry) Build(src config.Source) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(src.Type)) {
	case "file":
		return newFileSource(label(src.Name, "file"), src.Path), nil
	case "http":
		return newHTTPSource(r.client(), label(src.Name, "http"), src.Endpoint, src.APIKey), nil
	default:
		return nil, fmt.Errorf("unknown market data source type %q", src.Type)
	}
}

// BuildAll creates every configured source in order.
func (r *Registry) BuildAll(sources []config.Source) ([]Source, error) {
	out := make([]Source, 0, len(sources))
	for _, src := range sources {
		built, err := r.Build(src)
		if err != nil {
			return nil, err
		}
		out = append(out, built)
	}
	return out, nil
}

func (r *Registry) client() *http.Client {
	if r.HTTPClient != nil {
		return r.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

type sourceAdapter struct {
	name  string
	fetch func(ctx context.Context) (*Snapshot, error)
}

func (s *sourceAdapter) Name() string { return s.name }

func (s *sourceAdapter) Fetch(ctx context.Context) (*Snapshot, error) {
	return s.fetch(ctx)
}

// LoadFile decodes a snapshot file. Files ending in .json are read as JSON,
// everything else as TOML.
func LoadFile(path string) (Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("open snapshot: %w", err)
	}
	defer file.Close()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return DecodeJSON(file)
	}
	return DecodeTOML(file)
}

func newFileSource(name, path string) Source {
	return &sourceAdapter{name: name, fetch: func(ctx context.Context) (*Snapshot, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		if doc.ObservedAt.IsZero() {
			info, err := os.Stat(path)
			if err == nil {
				doc.ObservedAt = info.ModTime().UTC()
			}
		}
		return Build(doc, name)
	}}
}

func newHTTPSource(client *http.Client, name, endpoint, apiKey string) Source {
	return &sourceAdapter{name: name, fetch: func(ctx context.Context) (*Snapshot, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if apiKey != "" {
			req.Header.Set("x-api-key", apiKey)
		}
		resp, err := client.Do(req)
		if err != nil {
			var urlErr *url.Error
			if errors.As(err, &urlErr) {
				urlErr.URL = logging.RedactURL(urlErr.URL)
			}
			return nil, fmt.Errorf("fetch snapshot: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("fetch snapshot: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		doc, err := DecodeJSON(io.LimitReader(resp.Body, maxFeedBytes))
		if err != nil {
			return nil, err
		}
		return Build(doc, name)
	}}
}

func label(name, fallback string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed != "" {
		return trimmed
	}
	return fallback
}
