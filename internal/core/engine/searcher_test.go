package engine

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namelens/domainsearch/internal/core"
	"github.com/namelens/domainsearch/internal/core/scoring"
	"github.com/namelens/domainsearch/internal/core/suggest"
)

type fakeAvailability struct {
	available map[string]bool
	panicOn   string
	block     string
	blocked   atomic.Int32
}

func (f *fakeAvailability) Resolve(ctx context.Context, domain string) core.AvailabilityResult {
	if f.panicOn != "" && domain == f.panicOn {
		panic("resolver exploded")
	}
	if f.block != "" && strings.HasPrefix(domain, f.block+".") {
		<-ctx.Done()
		f.blocked.Add(1)
		return core.AvailabilityResult{Domain: domain, Available: true, Message: "stale"}
	}
	if f.available[domain] {
		return core.AvailabilityResult{Domain: domain, Available: true, Message: "free"}
	}
	return core.AvailabilityResult{Domain: domain, Available: false, Message: "registered"}
}

type fakeDemand struct {
	mu   sync.Mutex
	seen []string
}

func (f *fakeDemand) Estimate(_ context.Context, keyword string) core.Demand {
	f.mu.Lock()
	f.seen = append(f.seen, keyword)
	f.mu.Unlock()
	return core.Demand{Keyword: keyword, Score: 40, Label: core.DemandMedium}
}

type fakeInfo struct{}

func (fakeInfo) Lookup(_ context.Context, domain string) (*core.DomainInfo, error) {
	age := 7
	return &core.DomainInfo{Domain: domain, Age: &age, HasAutoRenewal: true}, nil
}

type fakePrices struct{}

func (fakePrices) Rows(string) []core.RegistrarPriceRow {
	return []core.RegistrarPriceRow{{Registrar: "Namecheap", Initial: "$9.48", Renewal: "$13.98", Priority: "Best Value"}}
}

func TestSearcherEndToEnd(t *testing.T) {
	availability := &fakeAvailability{available: map[string]bool{
		"tapr.io": true, "tapr.ai": true, "tapr.xyz": true,
	}}
	demand := &fakeDemand{}
	searcher := &Searcher{
		Availability: availability,
		Demand:       demand,
		Info:         fakeInfo{},
		Prices:       fakePrices{},
	}

	snap, err := searcher.Run(context.Background(), "  Tapr ")
	require.NoError(t, err)
	require.True(t, snap.Complete)
	require.Equal(t, "tapr", snap.Base)
	require.Len(t, snap.Candidates, len(core.SupportedTLDs))
	require.Zero(t, snap.Pending())
	require.Equal(t, 3, snap.AvailableCount())

	require.True(t, sort.SliceIsSorted(snap.Candidates, func(i, j int) bool {
		return CompareCandidates(snap.Candidates[i], snap.Candidates[j]) < 0
	}))

	for i, c := range snap.Candidates {
		if i < 3 {
			require.Equal(t, core.AvailabilityAvailable, c.Availability, c.Domain)
			assert.Equal(t, scoring.Brandability(c.Domain), c.BrandabilityScore)
			assert.Equal(t, scoring.EstimatedValue(c.Domain), c.EstimatedValue)
			assert.Equal(t, core.DemandMedium, c.SearchDemand)
			assert.Len(t, c.Prices, 1)
			assert.Nil(t, c.DomainInfo)
			continue
		}
		require.Equal(t, core.AvailabilityTaken, c.Availability, c.Domain)
		assert.Zero(t, c.BrandabilityScore)
		assert.Equal(t, core.NotApplicable, c.EstimatedValue)
		assert.Equal(t, core.DemandNotApplicable, c.SearchDemand)
		require.NotNil(t, c.DomainInfo)
		assert.Equal(t, 7, *c.DomainInfo.Age)
	}

	demand.mu.Lock()
	defer demand.mu.Unlock()
	require.Equal(t, []string{"tapr", "tapr", "tapr"}, demand.seen)
}

func TestSearcherPublishesOrderedSnapshots(t *testing.T) {
	var snaps []*core.SearchSnapshot
	searcher := &Searcher{
		Availability: &fakeAvailability{available: map[string]bool{"tapr.com": true}},
		OnSnapshot: func(s *core.SearchSnapshot) {
			snaps = append(snaps, s)
		},
	}

	final, err := searcher.Run(context.Background(), "tapr")
	require.NoError(t, err)

	require.Len(t, snaps, len(core.SupportedTLDs)+2)
	require.Equal(t, len(core.SupportedTLDs), snaps[0].Pending())
	require.False(t, snaps[0].Complete)
	require.Same(t, final, snaps[len(snaps)-1])

	for i := 1; i < len(snaps); i++ {
		require.LessOrEqual(t, snaps[i].Pending(), snaps[i-1].Pending())
		require.Equal(t, snaps[0].Generation, snaps[i].Generation)
	}
	require.Equal(t, core.DemandLow, final.Candidates[0].SearchDemand)
}

func TestSearcherDropsStaleGeneration(t *testing.T) {
	availability := &fakeAvailability{block: "slow"}
	searcher := &Searcher{Availability: availability}

	first, err := searcher.Start(context.Background(), "slow")
	require.NoError(t, err)

	second, err := searcher.Run(context.Background(), "fast")
	require.NoError(t, err)
	require.Greater(t, second.Generation, first.Generation)

	require.Eventually(t, func() bool {
		return int(availability.blocked.Load()) == len(core.SupportedTLDs)
	}, 2*time.Second, 10*time.Millisecond)

	current := searcher.Snapshot()
	require.Equal(t, second.Generation, current.Generation)
	for _, c := range current.Candidates {
		require.True(t, strings.HasPrefix(c.Domain, "fast."), c.Domain)
		require.NotEqual(t, "stale", c.Message)
	}
}

func TestSearcherContainsPanics(t *testing.T) {
	searcher := &Searcher{
		Availability: &fakeAvailability{
			available: map[string]bool{"tapr.io": true},
			panicOn:   "tapr.dev",
		},
	}

	snap, err := searcher.Run(context.Background(), "tapr")
	require.NoError(t, err)
	require.True(t, snap.Complete)
	require.Equal(t, 1, snap.AvailableCount())

	var dev core.Candidate
	for _, c := range snap.Candidates {
		if c.Domain == "tapr.dev" {
			dev = c
		}
	}
	require.Equal(t, core.AvailabilityTaken, dev.Availability)
	require.Equal(t, MessageIncomplete, dev.Message)
}

func TestSearcherRejectsEmptyQuery(t *testing.T) {
	searcher := &Searcher{Availability: &fakeAvailability{}}
	_, err := searcher.Run(context.Background(), " .com")
	require.ErrorIs(t, err, suggest.ErrEmptyName)
	require.Nil(t, searcher.Snapshot())
}

func TestSearcherCustomTLDs(t *testing.T) {
	searcher := &Searcher{
		Availability: &fakeAvailability{},
		TLDs:         []string{"com", "org"},
	}
	snap, err := searcher.Run(context.Background(), "tapr")
	require.NoError(t, err)
	require.Equal(t, []string{"tapr.com", "tapr.org"}, domains(snap.Candidates))
}

func TestSearcherCancel(t *testing.T) {
	searcher := &Searcher{Availability: &fakeAvailability{block: "slow"}}

	done := make(chan error, 1)
	go func() {
		_, err := searcher.Run(context.Background(), "slow")
		done <- err
	}()

	require.Eventually(t, func() bool { return searcher.Snapshot() != nil }, time.Second, 5*time.Millisecond)
	searcher.Cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Cancel")
	}
}
