package middleware

import (
	"net/http"
	"sync"
	"time"

	goGate "github.com/MrEthical07/goGate"
	"golang.org/x/time/rate"
)

// RateLimitConfig sizes the per-client token bucket.
type RateLimitConfig struct {
	// PerSecond is the refill rate. Zero disables limiting.
	PerSecond float64
	Burst     int
	// IdleTTL evicts buckets of clients not seen for this long.
	IdleTTL        time.Duration
	TrustForwarded bool
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter keeps one token bucket per client IP.
type ClientLimiter struct {
	cfg RateLimitConfig
	now func() time.Time

	mu        sync.Mutex
	clients   map[string]*clientBucket
	lastSweep time.Time
}

// NewClientLimiter creates a limiter. Burst defaults to 1 and IdleTTL to ten minutes.
func NewClientLimiter(cfg RateLimitConfig) *ClientLimiter {
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	return &ClientLimiter{
		cfg:     cfg,
		now:     time.Now,
		clients: make(map[string]*clientBucket),
	}
}

// Allow reports whether client may proceed now.
func (l *ClientLimiter) Allow(client string) bool {
	if l == nil || l.cfg.PerSecond <= 0 {
		return true
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)
	b, ok := l.clients[client]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(rate.Limit(l.cfg.PerSecond), l.cfg.Burst)}
		l.clients[client] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// Len reports the number of tracked clients.
func (l *ClientLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *ClientLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.cfg.IdleTTL {
		return
	}
	l.lastSweep = now
	for client, b := range l.clients {
		if now.Sub(b.lastSeen) >= l.cfg.IdleTTL {
			delete(l.clients, client)
		}
	}
}

// RateLimit rejects clients that exceed their bucket with 429.
func RateLimit(l *ClientLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			trust := l != nil && l.cfg.TrustForwarded
			if !l.Allow(ClientIP(r, trust)) {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, goGate.KindRateLimited, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
