package ratelimiter

import (
	"context"
	"sync"
	"time"
)

// Stats is a snapshot of one host's limiter.
type Stats struct {
	AvailableTokens int
	Capacity        int
	Interval        time.Duration
	PausedFor       time.Duration
}

// PooledRateLimiter keeps one limiter per upstream host. Hiro and the
// Esplora providers meter each API key per host, so buckets never share.
type PooledRateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*hostLimiter
	rps      float64
	burst    int
	now      func() time.Time
}

func NewPooledRateLimiter(rps float64, burst int) *PooledRateLimiter {
	return &PooledRateLimiter{
		limiters: make(map[string]*hostLimiter),
		rps:      rps,
		burst:    burst,
		now:      time.Now,
	}
}

// Wait blocks until host may be called again or ctx is done.
func (p *PooledRateLimiter) Wait(ctx context.Context, host string) error {
	return p.limiter(host).wait(ctx, p.now())
}

// TryAcquire takes a token for host without blocking.
func (p *PooledRateLimiter) TryAcquire(host string) bool {
	return p.limiter(host).allow(p.now())
}

// Pause holds every request to host for d. Overlapping pauses keep the
// later deadline.
func (p *PooledRateLimiter) Pause(host string, d time.Duration) {
	if d <= 0 {
		return
	}
	p.limiter(host).pause(p.now().Add(d))
}

func (p *PooledRateLimiter) limiter(host string) *hostLimiter {
	p.mu.RLock()
	l, ok := p.limiters[host]
	p.mu.RUnlock()
	if ok {
		return l
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.limiters[host]; ok {
		return l
	}
	l = newHostLimiter(p.rps, p.burst)
	p.limiters[host] = l
	return l
}

// Close drops all limiters.
func (p *PooledRateLimiter) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.limiters = make(map[string]*hostLimiter)
}

func (p *PooledRateLimiter) GetStats() map[string]Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	now := p.now()
	stats := make(map[string]Stats, len(p.limiters))
	for host, l := range p.limiters {
		stats[host] = l.stats(now)
	}
	return stats
}
