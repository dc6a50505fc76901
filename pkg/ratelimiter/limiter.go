// Package ratelimiter throttles outbound requests per upstream host.
package ratelimiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// hostLimiter is a token bucket plus a pause window. A pause is set when
// the upstream answers 429 with Retry-After.
type hostLimiter struct {
	bucket *rate.Limiter
	burst  int

	mu          sync.Mutex
	pausedUntil time.Time
}

// newHostLimiter falls back to 1 for non-positive rps or burst.
func newHostLimiter(rps float64, burst int) *hostLimiter {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &hostLimiter{
		bucket: rate.NewLimiter(rate.Limit(rps), burst),
		burst:  burst,
	}
}

func (h *hostLimiter) pausedFor(now time.Time) time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	if d := h.pausedUntil.Sub(now); d > 0 {
		return d
	}
	return 0
}

func (h *hostLimiter) pause(until time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if until.After(h.pausedUntil) {
		h.pausedUntil = until
	}
}

func (h *hostLimiter) wait(ctx context.Context, now time.Time) error {
	if d := h.pausedFor(now); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return h.bucket.Wait(ctx)
}

func (h *hostLimiter) allow(now time.Time) bool {
	if h.pausedFor(now) > 0 {
		return false
	}
	return h.bucket.Allow()
}

func (h *hostLimiter) stats(now time.Time) Stats {
	available := int(h.bucket.Tokens())
	if available < 0 {
		available = 0
	}
	return Stats{
		AvailableTokens: available,
		Capacity:        h.burst,
		Interval:        time.Duration(float64(time.Second) / float64(h.bucket.Limit())),
		PausedFor:       h.pausedFor(now),
	}
}
