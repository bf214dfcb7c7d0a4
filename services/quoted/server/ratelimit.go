package server

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/uxuyconnect/gmx-interface/observability"
)

// maxForwardedHops bounds how much of an X-Forwarded-For chain is inspected.
const maxForwardedHops = 16

// RateLimit bounds per-client request rates. A zero RequestsPerMinute
// disables limiting.
type RateLimit struct {
	RequestsPerMinute float64
	Burst             int
	// TrustedProxies lists peers, as addresses or CIDR prefixes, whose
	// X-Forwarded-For header names the client. Other peers are keyed by
	// their socket address.
	TrustedProxies []string
}

// ParseTrustedProxies parses addresses and CIDR prefixes into prefixes.
func ParseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, entry := range entries {
		trimmed := strings.TrimSpace(entry)
		if trimmed == "" {
			continue
		}
		if strings.Contains(trimmed, "/") {
			prefix, err := netip.ParsePrefix(trimmed)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", trimmed, err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(trimmed)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", trimmed, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

type rateEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client address.
type RateLimiter struct {
	limit    RateLimit
	metrics  *observability.QuoteMetrics
	mu       sync.Mutex
	visitors map[string]*rateEntry
	trusted  []netip.Prefix
	clockNow func() time.Time
	idleTTL  time.Duration
}

// NewRateLimiter builds a limiter for the supplied policy.
func NewRateLimiter(limit RateLimit, metrics *observability.QuoteMetrics) (*RateLimiter, error) {
	trusted, err := ParseTrustedProxies(limit.TrustedProxies)
	if err != nil {
		return nil, err
	}
	return &RateLimiter{
		limit:    limit,
		metrics:  metrics,
		visitors: make(map[string]*rateEntry),
		trusted:  trusted,
		clockNow: time.Now,
		idleTTL:  5 * time.Minute,
	}, nil
}

// Middleware rejects requests over budget with 429.
func (r *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if r == nil || r.limit.RequestsPerMinute <= 0 {
			next.ServeHTTP(w, req)
			return
		}
		if !r.allow(r.clientID(req)) {
			r.metrics.RecordThrottle("rate_limit")
			writeError(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
			return
		}
		next.ServeHTTP(w, req)
	})
}

func (r *RateLimiter) allow(id string) bool {
	now := r.clockNow()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictIdle(now)
	entry, ok := r.visitors[id]
	if !ok {
		burst := r.limit.Burst
		if burst <= 0 {
			burst = 1
		}
		entry = &rateEntry{limiter: rate.NewLimiter(rate.Limit(r.limit.RequestsPerMinute/60.0), burst)}
		r.visitors[id] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (r *RateLimiter) evictIdle(now time.Time) {
	for id, entry := range r.visitors {
		if now.Sub(entry.lastSeen) > r.idleTTL {
			delete(r.visitors, id)
		}
	}
}

// clientID keys a request by its socket peer. Forwarded headers are honoured
// only when the peer is a trusted proxy; the chain is walked from the right
// and the first untrusted hop is the client.
func (r *RateLimiter) clientID(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil || !r.isTrusted(peer) {
		return host
	}
	hops := strings.Split(strings.Join(req.Header.Values("X-Forwarded-For"), ","), ",")
	for i, inspected := len(hops)-1, 0; i >= 0 && inspected < maxForwardedHops; i, inspected = i-1, inspected+1 {
		addr, ok := parseHop(hops[i])
		if !ok {
			break
		}
		if !r.isTrusted(addr) {
			return addr.String()
		}
	}
	if addr, ok := parseHop(req.Header.Get("X-Real-IP")); ok {
		return addr.String()
	}
	return peer.Unmap().String()
}

func (r *RateLimiter) isTrusted(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, prefix := range r.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// parseHop accepts a bare address or host:port entry.
func parseHop(raw string) (netip.Addr, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return netip.Addr{}, false
	}
	if addrPort, err := netip.ParseAddrPort(trimmed); err == nil {
		return addrPort.Addr().Unmap(), true
	}
	addr, err := netip.ParseAddr(trimmed)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
