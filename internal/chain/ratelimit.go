package chain

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter provides per-endpoint rate limiting using a token bucket per endpoint.
// Remote APIs (TonAPI, TronGrid, the relay) each get their own bucket so a
// burst of fee estimates cannot starve account lookups.
type RateLimiter struct {
	limiters   map[string]*rate.Limiter
	mu         sync.Mutex
	rateLimit  rate.Limit
	burstLimit int
}

// NewRateLimiter creates a new rate limiter with the specified rate and burst.
// rate is requests per second, burst is the maximum burst size.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters:   make(map[string]*rate.Limiter),
		rateLimit:  rate.Limit(ratePerSecond),
		burstLimit: burst,
	}
}

// DefaultRateLimiter returns a limiter matching the free tiers of the public
// APIs: 1 request/second with a burst of 4.
func DefaultRateLimiter() *RateLimiter {
	return NewRateLimiter(1, 4)
}

// Allow checks if a request to the endpoint is allowed right now.
func (r *RateLimiter) Allow(endpoint string) bool {
	return r.limiter(endpoint).Allow()
}

// Wait blocks until a request to the endpoint is allowed or the context is canceled.
func (r *RateLimiter) Wait(ctx context.Context, endpoint string) error {
	return r.limiter(endpoint).Wait(ctx)
}

func (r *RateLimiter) limiter(endpoint string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.limiters[endpoint]
	if !ok {
		l = rate.NewLimiter(r.rateLimit, r.burstLimit)
		r.limiters[endpoint] = l
	}
	return l
}
