package ratelimiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hiroHost = "api.mainnet.hiro.so"

func TestPooledRateLimiter_BucketPerHost(t *testing.T) {
	prl := NewPooledRateLimiter(10, 2)
	defer prl.Close()

	assert.True(t, prl.TryAcquire(hiroHost))
	assert.True(t, prl.TryAcquire(hiroHost))
	assert.False(t, prl.TryAcquire(hiroHost))

	// a different host has its own bucket
	assert.True(t, prl.TryAcquire("mempool.space"))

	stats := prl.GetStats()
	require.Len(t, stats, 2)
	assert.Equal(t, 2, stats[hiroHost].Capacity)
	assert.Equal(t, 100*time.Millisecond, stats[hiroHost].Interval)
}

func TestPooledRateLimiter_WaitRefills(t *testing.T) {
	prl := NewPooledRateLimiter(10, 1)
	ctx := context.Background()

	require.NoError(t, prl.Wait(ctx, hiroHost))

	start := time.Now()
	require.NoError(t, prl.Wait(ctx, hiroHost))
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestPooledRateLimiter_NonPositiveSettings(t *testing.T) {
	prl := NewPooledRateLimiter(0, 0)
	assert.True(t, prl.TryAcquire(hiroHost))
	assert.False(t, prl.TryAcquire(hiroHost))
	assert.Equal(t, time.Second, prl.GetStats()[hiroHost].Interval)
}

func TestPooledRateLimiter_WaitHonoursContext(t *testing.T) {
	prl := NewPooledRateLimiter(0.001, 1)
	require.True(t, prl.TryAcquire(hiroHost))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, prl.Wait(ctx, hiroHost))
}

func TestPooledRateLimiter_Pause(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	prl := NewPooledRateLimiter(100, 10)
	prl.now = func() time.Time { return now }

	prl.Pause(hiroHost, 2*time.Second)
	prl.Pause(hiroHost, time.Second)
	assert.False(t, prl.TryAcquire(hiroHost))
	assert.Equal(t, 2*time.Second, prl.GetStats()[hiroHost].PausedFor)
	assert.True(t, prl.TryAcquire("mempool.space"))

	now = now.Add(2 * time.Second)
	assert.True(t, prl.TryAcquire(hiroHost))
	assert.Zero(t, prl.GetStats()[hiroHost].PausedFor)
}

func TestPooledRateLimiter_WaitDuringPause(t *testing.T) {
	prl := NewPooledRateLimiter(100, 10)
	prl.Pause(hiroHost, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, prl.Wait(ctx, hiroHost), context.DeadlineExceeded)

	start := time.Now()
	require.NoError(t, prl.Wait(context.Background(), hiroHost))
	assert.Greater(t, time.Since(start), time.Duration(0))

	prl.Pause(hiroHost, 0)
	assert.True(t, prl.TryAcquire(hiroHost))
}
