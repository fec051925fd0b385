package engine

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/namelens/domainsearch/internal/core"
)

// RateLimiter paces calls to the upstreams a search touches: Google Trends,
// RDAP servers, registrar APIs and registrar price pages. Windows are
// persisted through Store so separate CLI runs share them. Updates are
// serialized within a process; separate processes may still race.
type RateLimiter struct {
	Store  RateLimitStore
	Limits map[string]RateLimit
	Clock  func() time.Time
	Margin float64

	mu sync.Mutex
}

// RateLimit allows RequestsPerWindow calls per WindowDuration.
type RateLimit struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// RateLimitStore persists per-endpoint windows.
type RateLimitStore interface {
	GetRateLimit(ctx context.Context, endpoint string) (*core.RateLimitState, error)
	UpdateRateLimit(ctx context.Context, endpoint string, state *core.RateLimitState) error
}

func perMinute(n int) RateLimit {
	return RateLimit{RequestsPerWindow: n, WindowDuration: time.Minute}
}

// DefaultLimits are conservative per-host budgets.
var DefaultLimits = map[string]RateLimit{
	"trends.google.com":         perMinute(20),
	"rdap.org":                  perMinute(30),
	"rdap":                      perMinute(30),
	"api.godaddy.com":           perMinute(60),
	"api.ote-godaddy.com":       perMinute(60),
	"porkbun.com":               perMinute(60),
	"api.namecheap.com":         perMinute(20),
	"api.sandbox.namecheap.com": perMinute(20),
	"api.loopia.se":             perMinute(60),
	"scrape":                    perMinute(4),
}

// limitFamilies maps endpoint prefixes onto a shared DefaultLimits entry, so
// every RDAP server and every scraped registrar page gets the family budget.
var limitFamilies = []struct{ prefix, key string }{
	{"rdap.", "rdap"},
	{"scrape:", "scrape"},
}

var fallbackLimit = perMinute(30)

// Allow reports whether endpoint may be called now and, if not, how long to
// wait. A store error fails open.
func (r *RateLimiter) Allow(ctx context.Context, endpoint string) (bool, time.Duration, error) {
	if r == nil || r.Store == nil {
		return true, 0, nil
	}
	state, err := r.load(ctx, endpoint)
	if err != nil {
		return true, 0, err
	}
	return r.check(endpoint, state)
}

// Acquire checks and records a call in one step. It returns a positive wait
// when the endpoint is over budget; nothing is recorded in that case.
func (r *RateLimiter) Acquire(ctx context.Context, endpoint string) (time.Duration, error) {
	if r == nil || r.Store == nil || endpoint == "" {
		return 0, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.load(ctx, endpoint)
	if err != nil {
		return 0, err
	}
	if ok, wait, _ := r.check(endpoint, state); !ok {
		return wait, nil
	}
	state.RequestCount++
	return 0, r.Store.UpdateRateLimit(ctx, endpoint, state)
}

// Record counts one call against endpoint's window.
func (r *RateLimiter) Record(ctx context.Context, endpoint string) error {
	if r == nil || r.Store == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.load(ctx, endpoint)
	if err != nil {
		return err
	}
	state.RequestCount++
	return r.Store.UpdateRateLimit(ctx, endpoint, state)
}

// Record429 notes a 429 from endpoint and backs off for retryAfter.
func (r *RateLimiter) Record429(ctx context.Context, endpoint string, retryAfter time.Duration) error {
	if r == nil || r.Store == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.load(ctx, endpoint)
	if err != nil {
		return err
	}
	now := r.now()
	state.Last429At = &now
	if retryAfter > 0 {
		until := now.Add(retryAfter)
		state.BackoffUntil = &until
	}
	return r.Store.UpdateRateLimit(ctx, endpoint, state)
}

// load returns endpoint's state with an expired window already rolled over.
func (r *RateLimiter) load(ctx context.Context, endpoint string) (*core.RateLimitState, error) {
	state, err := r.Store.GetRateLimit(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	now := r.now()
	if state == nil {
		return &core.RateLimitState{WindowStart: now}, nil
	}
	if state.WindowStart.IsZero() || now.After(state.WindowStart.Add(r.getLimit(endpoint).WindowDuration)) {
		state.RequestCount = 0
		state.WindowStart = now
	}
	return state, nil
}

func (r *RateLimiter) check(endpoint string, state *core.RateLimitState) (bool, time.Duration, error) {
	now := r.now()
	if state.BackoffUntil != nil && now.Before(*state.BackoffUntil) {
		return false, state.BackoffUntil.Sub(now), nil
	}
	limit := r.getLimit(endpoint)
	if state.RequestCount >= limit.RequestsPerWindow {
		return false, state.WindowStart.Add(limit.WindowDuration).Sub(now), nil
	}
	return true, 0, nil
}

// ApplyOverrides replaces budgets with per-minute counts from config.
func (r *RateLimiter) ApplyOverrides(overrides map[string]int) {
	if r == nil || len(overrides) == 0 {
		return
	}
	if r.Limits == nil {
		r.Limits = make(map[string]RateLimit, len(DefaultLimits)+len(overrides))
		for key, limit := range DefaultLimits {
			r.Limits[key] = limit
		}
	}
	for endpoint, value := range overrides {
		endpoint = strings.TrimSpace(endpoint)
		if endpoint == "" || value <= 0 {
			continue
		}
		r.Limits[endpoint] = perMinute(value)
	}
}

// ApplySafetyMargin scales every budget by margin, which must be in (0, 1].
func (r *RateLimiter) ApplySafetyMargin(margin float64) {
	if r == nil || margin <= 0 || margin > 1 {
		return
	}
	r.Margin = margin
}

func (r *RateLimiter) getLimit(endpoint string) RateLimit {
	if r == nil {
		return perMinute(1)
	}
	limits := r.Limits
	if limits == nil {
		limits = DefaultLimits
	}
	if limit, ok := limits[endpoint]; ok {
		return r.applyMargin(limit)
	}
	for _, family := range limitFamilies {
		if strings.HasPrefix(endpoint, family.prefix) {
			if limit, ok := limits[family.key]; ok {
				return r.applyMargin(limit)
			}
		}
	}
	return r.applyMargin(fallbackLimit)
}

func (r *RateLimiter) applyMargin(limit RateLimit) RateLimit {
	if r.Margin <= 0 || r.Margin > 1 {
		return limit
	}
	limit.RequestsPerWindow = max(1, int(math.Floor(float64(limit.RequestsPerWindow)*r.Margin)))
	return limit
}

func (r *RateLimiter) now() time.Time {
	if r != nil && r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}

// MemoryRateStore keeps windows in process memory for runs without a cache
// store.
type MemoryRateStore struct {
	mu    sync.Mutex
	state map[string]core.RateLimitState
}

// NewMemoryRateStore returns an empty store.
func NewMemoryRateStore() *MemoryRateStore {
	return &MemoryRateStore{state: make(map[string]core.RateLimitState)}
}

func (m *MemoryRateStore) GetRateLimit(_ context.Context, endpoint string) (*core.RateLimitState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.state[endpoint]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func (m *MemoryRateStore) UpdateRateLimit(_ context.Context, endpoint string, state *core.RateLimitState) error {
	if state == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		m.state = make(map[string]core.RateLimitState)
	}
	m.state[endpoint] = *state
	return nil
}
