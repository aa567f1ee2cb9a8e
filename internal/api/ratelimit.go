package api

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"dronenav/internal/metrics"
)

// TenantLimiter keeps one token bucket per tenant. A nil limiter allows
// everything.
type TenantLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets map[string]*rate.Limiter
}

// NewTenantLimiter returns nil when rps <= 0.
func NewTenantLimiter(rps float64, burst int) *TenantLimiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &TenantLimiter{limit: rate.Limit(rps), burst: burst, buckets: map[string]*rate.Limiter{}}
}

func (l *TenantLimiter) Allow(tenant string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	b, ok := l.buckets[tenant]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets[tenant] = b
	}
	l.mu.Unlock()
	return b.Allow()
}

// Middleware rejects requests over the tenant's budget with 429.
func (l *TenantLimiter) Middleware(next http.Handler, tenantOf func(*http.Request) string) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(tenantOf(r)) {
			metrics.RateLimited.WithLabelValues(r.URL.Path).Inc()
			w.Header().Set("Retry-After", "1")
			writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "tenant rate limit exceeded", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}
