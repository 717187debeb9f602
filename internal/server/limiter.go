package server

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

// limiterPool keeps one token bucket per client address. It guards the HTTP
// surface only; the chat send limit lives in the pipeline.
type limiterPool struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
}

func newLimiterPool(rps float64, burst int) *limiterPool {
	if burst <= 0 {
		burst = 1
	}
	return &limiterPool{
		rps:      rate.Limit(rps),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
	}
}

func (p *limiterPool) get(key string, now time.Time) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	for k, seen := range p.lastSeen {
		if now.Sub(seen) > limiterIdleTTL {
			delete(p.limiters, k)
			delete(p.lastSeen, k)
		}
	}

	limiter, ok := p.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(p.rps, p.burst)
		p.limiters[key] = limiter
	}
	p.lastSeen[key] = now
	return limiter
}

// middleware rejects requests over the per-client rate with 429.
func (p *limiterPool) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p.rps <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		if !p.get(clientKey(r), time.Now()).Allow() {
			w.Header().Set("Retry-After", strconv.Itoa(1))
			respondError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
