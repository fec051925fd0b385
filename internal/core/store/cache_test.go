package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/namelens/domainsearch/internal/config"
	"github.com/namelens/domainsearch/internal/core"
)

func openTestStore(t *testing.T, now *time.Time) *Store {
	t.Helper()
	ctx := context.Background()

	store, err := Open(ctx, config.StoreConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	store.Clock = func() time.Time { return *now }
	require.NoError(t, store.Migrate(ctx))
	return store
}

func TestSQLiteStoreOpensAndMigratesTwice(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := openTestStore(t, &now)
	require.Equal(t, "sqlite", store.Driver())
	require.NoError(t, store.Migrate(context.Background()))
}

func TestDemandCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := openTestStore(t, &now)

	entry, err := store.GetDemand(ctx, "tapr")
	require.NoError(t, err)
	require.Nil(t, entry)

	require.NoError(t, store.SetDemand(ctx, " TAPR ", core.DemandCacheEntry{
		Label:  core.DemandHigh,
		Score:  81.5,
		Source: core.DemandSourceTrends,
	}))

	entry, err = store.GetDemand(ctx, "tapr")
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Equal(t, core.DemandHigh, entry.Label)
	require.InDelta(t, 81.5, entry.Score, 0.001)
	require.Equal(t, core.DemandSourceTrends, entry.Source)
	require.Equal(t, now, entry.Timestamp)

	later := now.Add(time.Hour)
	require.NoError(t, store.SetDemand(ctx, "tapr", core.DemandCacheEntry{Label: core.DemandLow, Score: 10, Timestamp: later}))
	entry, err = store.GetDemand(ctx, "tapr")
	require.NoError(t, err)
	require.Equal(t, core.DemandLow, entry.Label)
	require.Equal(t, later, entry.Timestamp)

	_, err = store.GetDemand(ctx, "  ")
	require.Error(t, err)
}

func TestRegistrationCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := openTestStore(t, &now)

	record := &core.RegistrationRecord{
		Domain:     "Example.com",
		Registered: "1995-08-14T04:00:00Z",
		Expires:    "2026-08-13T04:00:00Z",
		Statuses:   []string{"client transfer prohibited", "auto renew period"},
		Registrar:  "Example Registrar, Inc.",
		Server:     "https://rdap.org",
	}
	require.NoError(t, store.SetRegistration(ctx, record, time.Hour))

	cached, err := store.GetRegistration(ctx, "example.com")
	require.NoError(t, err)
	require.NotNil(t, cached)
	require.Equal(t, "example.com", cached.Domain)
	require.Equal(t, record.Statuses, cached.Statuses)
	require.Equal(t, record.Registrar, cached.Registrar)
	require.Equal(t, now, cached.FetchedAt)

	now = now.Add(2 * time.Hour)
	cached, err = store.GetRegistration(ctx, "example.com")
	require.NoError(t, err)
	require.Nil(t, cached)

	require.NoError(t, store.SetRegistration(ctx, record, 0))
}

func TestRateLimitPersistence(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := openTestStore(t, &now)

	backoff := now.Add(30 * time.Second)
	require.NoError(t, store.UpdateRateLimit(ctx, "rdap.org", &core.RateLimitState{
		RequestCount: 3,
		WindowStart:  now,
		BackoffUntil: &backoff,
	}))
	require.NoError(t, store.UpdateRateLimit(ctx, "scrape:www.namecheap.com", &core.RateLimitState{WindowStart: now}))

	state, err := store.GetRateLimit(ctx, "rdap.org")
	require.NoError(t, err)
	require.Equal(t, 3, state.RequestCount)
	require.NotNil(t, state.BackoffUntil)
	require.Equal(t, backoff, *state.BackoffUntil)
	require.Nil(t, state.Last429At)

	entries, err := store.ListRateLimits(ctx, Query{Prefix: "scrape:"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "scrape:www.namecheap.com", entries[0].Endpoint)

	_, err = store.ListRateLimits(ctx, Query{})
	require.Error(t, err)

	removed, err := store.ResetRateLimits(ctx, Query{Key: "rdap.org"})
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	state, err = store.GetRateLimit(ctx, "rdap.org")
	require.NoError(t, err)
	require.Nil(t, state)
}

func TestPurge(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	store := openTestStore(t, &now)

	require.NoError(t, store.SetDemand(ctx, "fresh", core.DemandCacheEntry{Label: core.DemandLow, Timestamp: now.Add(-time.Hour)}))
	require.NoError(t, store.SetDemand(ctx, "stale", core.DemandCacheEntry{Label: core.DemandLow, Timestamp: now.Add(-48 * time.Hour)}))
	require.NoError(t, store.SetRegistration(ctx, &core.RegistrationRecord{Domain: "a.com"}, time.Hour))
	require.NoError(t, store.SetRegistration(ctx, &core.RegistrationRecord{Domain: "b.com"}, time.Minute))
	require.NoError(t, store.UpdateRateLimit(ctx, "rdap.org", &core.RateLimitState{WindowStart: now}))

	_, err := store.Purge(ctx, PurgeOptions{Query: Query{All: true}})
	require.Error(t, err)

	now = now.Add(10 * time.Minute)
	result, err := store.Purge(ctx, PurgeOptions{
		Query:       Query{All: true},
		Demand:      true,
		DomainInfo:  true,
		ExpiredOnly: true,
	})
	require.NoError(t, err)
	require.Equal(t, PurgeResult{Demand: 1, DomainInfo: 1}, result)

	entry, err := store.GetDemand(ctx, "fresh")
	require.NoError(t, err)
	require.NotNil(t, entry)

	result, err = store.Purge(ctx, PurgeOptions{Query: Query{All: true}, Demand: true, DomainInfo: true, RateLimits: true})
	require.NoError(t, err)
	require.EqualValues(t, 3, result.Total())
}

func TestQueryWhereClause(t *testing.T) {
	where, args, err := Query{All: true}.whereClause("domain")
	require.NoError(t, err)
	require.Empty(t, where)
	require.Empty(t, args)

	where, args, err = Query{Key: " Tapr.COM "}.whereClause("domain", "expires_at <= 5")
	require.NoError(t, err)
	require.Equal(t, "WHERE domain = ? AND expires_at <= 5", where)
	require.Equal(t, []any{"tapr.com"}, args)

	where, args, err = Query{Prefix: "tapr"}.whereClause("domain")
	require.NoError(t, err)
	require.Equal(t, "WHERE domain LIKE ?", where)
	require.Equal(t, []any{"tapr%"}, args)
}
