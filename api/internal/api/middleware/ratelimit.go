package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const visitorTTL = 3 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

// RateLimiter is an in-memory token bucket per client IP.
type RateLimiter struct {
	rps      rate.Limit
	burst    int
	visitors sync.Map
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{rps: rate.Limit(rps), burst: burst}
}

func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, _ := l.visitors.LoadOrStore(clientIP(r), &visitor{
			limiter: rate.NewLimiter(l.rps, l.burst),
		})
		vis := v.(*visitor)

		vis.mu.Lock()
		vis.lastSeen = time.Now()
		vis.mu.Unlock()

		if !vis.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeJSONError(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Cleanup evicts idle visitors every minute until ctx is cancelled.
func (l *RateLimiter) Cleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evictIdle(time.Now())
		}
	}
}

func (l *RateLimiter) evictIdle(now time.Time) {
	l.visitors.Range(func(key, value any) bool {
		vis := value.(*visitor)
		vis.mu.Lock()
		idle := now.Sub(vis.lastSeen) > visitorTTL
		vis.mu.Unlock()
		if idle {
			l.visitors.Delete(key)
		}
		return true
	})
}

// RealIP middleware has already rewritten RemoteAddr when a proxy header is set.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
