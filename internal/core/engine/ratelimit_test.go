package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/namelens/domainsearch/internal/core"
)

func TestRateLimiterWindow(t *testing.T) {
	store := NewMemoryRateStore()
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := &RateLimiter{
		Store: store,
		Limits: map[string]RateLimit{
			"rdap.example.test": {RequestsPerWindow: 1, WindowDuration: time.Minute},
		},
		Clock: func() time.Time { return clock },
	}

	allowed, _, err := limiter.Allow(context.Background(), "rdap.example.test")
	require.NoError(t, err)
	require.True(t, allowed)

	require.NoError(t, limiter.Record(context.Background(), "rdap.example.test"))

	allowed, wait, err := limiter.Allow(context.Background(), "rdap.example.test")
	require.NoError(t, err)
	require.False(t, allowed)
	require.Equal(t, time.Minute, wait)
}

func TestRateLimiterAcquireRecordsUntilBudgetSpent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := &RateLimiter{
		Store:  NewMemoryRateStore(),
		Limits: map[string]RateLimit{"trends.google.com": {RequestsPerWindow: 2, WindowDuration: time.Minute}},
		Clock:  func() time.Time { return now },
	}

	for i := 0; i < 2; i++ {
		wait, err := limiter.Acquire(ctx, "trends.google.com")
		require.NoError(t, err)
		require.Zero(t, wait)
	}

	now = now.Add(20 * time.Second)
	wait, err := limiter.Acquire(ctx, "trends.google.com")
	require.NoError(t, err)
	require.Equal(t, 40*time.Second, wait)

	state, err := limiter.Store.GetRateLimit(ctx, "trends.google.com")
	require.NoError(t, err)
	require.Equal(t, 2, state.RequestCount)

	now = now.Add(time.Minute)
	wait, err = limiter.Acquire(ctx, "trends.google.com")
	require.NoError(t, err)
	require.Zero(t, wait)

	state, err = limiter.Store.GetRateLimit(ctx, "trends.google.com")
	require.NoError(t, err)
	require.Equal(t, 1, state.RequestCount)
	require.Equal(t, now, state.WindowStart)
}

func TestRateLimiterAcquireConcurrentNeverOverspends(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := &RateLimiter{
		Store:  NewMemoryRateStore(),
		Limits: map[string]RateLimit{"trends.google.com": {RequestsPerWindow: 5, WindowDuration: time.Minute}},
		Clock:  func() time.Time { return now },
	}

	var granted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wait, err := limiter.Acquire(ctx, "trends.google.com")
			if err == nil && wait == 0 {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(5), granted.Load())
	state, err := limiter.Store.GetRateLimit(ctx, "trends.google.com")
	require.NoError(t, err)
	require.Equal(t, 5, state.RequestCount)
}

func TestRateLimiterAcquireWithoutStoreOrEndpoint(t *testing.T) {
	var nilLimiter *RateLimiter
	wait, err := nilLimiter.Acquire(context.Background(), "rdap.org")
	require.NoError(t, err)
	require.Zero(t, wait)

	limiter := &RateLimiter{Store: NewMemoryRateStore()}
	wait, err = limiter.Acquire(context.Background(), "")
	require.NoError(t, err)
	require.Zero(t, wait)
}

func TestRateLimiterBackoff(t *testing.T) {
	store := NewMemoryRateStore()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := &RateLimiter{
		Store: store,
		Clock: func() time.Time { return now },
	}

	require.NoError(t, limiter.Record429(context.Background(), "rdap.example.test", 30*time.Second))

	allowed, wait, err := limiter.Allow(context.Background(), "rdap.example.test")
	require.NoError(t, err)
	require.False(t, allowed)
	require.Equal(t, 30*time.Second, wait)
}

func TestRateLimiterMargin(t *testing.T) {
	store := NewMemoryRateStore()
	limiter := &RateLimiter{
		Store: store,
		Limits: map[string]RateLimit{
			"rdap.example.test": {RequestsPerWindow: 10, WindowDuration: time.Minute},
		},
		Clock: func() time.Time { return time.Now().UTC() },
	}

	limiter.ApplySafetyMargin(0.9)
	limit := limiter.getLimit("rdap.example.test")
	require.Equal(t, 9, limit.RequestsPerWindow)
}

func TestRateLimiterHostFallbacks(t *testing.T) {
	limiter := &RateLimiter{Store: NewMemoryRateStore()}

	require.Equal(t, DefaultLimits["rdap"], limiter.getLimit("rdap.nic.io"))
	require.Equal(t, DefaultLimits["scrape"], limiter.getLimit("scrape:www.namecheap.com"))
	require.Equal(t, DefaultLimits["trends.google.com"], limiter.getLimit("trends.google.com"))
	require.Equal(t, RateLimit{RequestsPerWindow: 30, WindowDuration: time.Minute}, limiter.getLimit("unknown.example"))
}

func TestRateLimiterOverrides(t *testing.T) {
	limiter := &RateLimiter{Store: NewMemoryRateStore()}
	limiter.ApplyOverrides(map[string]int{"api.godaddy.com": 5, " ": 10, "porkbun.com": 0})

	require.Equal(t, 5, limiter.getLimit("api.godaddy.com").RequestsPerWindow)
	require.Equal(t, DefaultLimits["porkbun.com"], limiter.getLimit("porkbun.com"))
	require.Equal(t, 20, DefaultLimits["trends.google.com"].RequestsPerWindow)
}

func TestMemoryRateStoreCopiesState(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRateStore()

	state, err := store.GetRateLimit(ctx, "rdap.org")
	require.NoError(t, err)
	require.Nil(t, state)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpdateRateLimit(ctx, "rdap.org", &core.RateLimitState{RequestCount: 2, WindowStart: start}))

	state, err = store.GetRateLimit(ctx, "rdap.org")
	require.NoError(t, err)
	state.RequestCount = 99

	again, err := store.GetRateLimit(ctx, "rdap.org")
	require.NoError(t, err)
	require.Equal(t, 2, again.RequestCount)
	require.Equal(t, start, again.WindowStart)
}
