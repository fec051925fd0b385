package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/namelens/domainsearch/internal/core"
	"github.com/namelens/domainsearch/internal/core/scoring"
	"github.com/namelens/domainsearch/internal/core/suggest"
	"github.com/namelens/domainsearch/internal/metrics"
	"github.com/namelens/domainsearch/internal/observability"
)

// ErrSuperseded is returned by Run when its search was replaced or cancelled.
var ErrSuperseded = errors.New("search superseded by a newer query")

// MessageIncomplete explains a candidate whose lookup never reported back.
const MessageIncomplete = "Domain status unknown (lookup did not complete)"

// Searcher runs one search at a time. Starting a new search cancels the
// previous one; results from older generations are dropped.
type Searcher struct {
	Availability AvailabilityChecker
	Demand       DemandLookup
	Info         InfoLookup
	Prices       PriceLookup

	// TLDs overrides the supported TLD list when set.
	TLDs []string
	// Timeout bounds a whole search; zero means no bound beyond the caller's context.
	Timeout time.Duration
	Clock   func() time.Time

	// OnSnapshot receives every published snapshot in order. It is called with
	// the searcher lock held and must not call back into the Searcher.
	OnSnapshot func(*core.SearchSnapshot)

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	snapshot   atomic.Pointer[core.SearchSnapshot]
}

// Snapshot returns the latest published snapshot, or nil before the first search.
func (s *Searcher) Snapshot() *core.SearchSnapshot {
	return s.snapshot.Load()
}

// Start begins a new search and returns its initial all-loading snapshot.
// Lookups continue in the background.
func (s *Searcher) Start(ctx context.Context, raw string) (*core.SearchSnapshot, error) {
	snap, _, err := s.start(ctx, raw)
	return snap, err
}

// Run executes a search to completion and returns its final snapshot.
func (s *Searcher) Run(ctx context.Context, raw string) (*core.SearchSnapshot, error) {
	initial, done, err := s.start(ctx, raw)
	if err != nil {
		return nil, err
	}

	select {
	case <-done:
	case <-ctx.Done():
		<-done
	}

	final := s.Snapshot()
	if final == nil || final.Generation != initial.Generation || !final.Complete {
		return initial, ErrSuperseded
	}
	return final, nil
}

// Cancel stops the current search, if any, without publishing a new one.
func (s *Searcher) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation++
}

func (s *Searcher) start(ctx context.Context, raw string) (*core.SearchSnapshot, <-chan struct{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.Availability == nil {
		return nil, nil, errors.New("availability checker is required")
	}

	base := suggest.Normalize(raw)
	if base == "" {
		return nil, nil, suggest.ErrEmptyName
	}
	domains := suggest.ForTLDs(base, s.tlds())

	var (
		searchCtx context.Context
		cancel    context.CancelFunc
	)
	if s.Timeout > 0 {
		searchCtx, cancel = context.WithTimeout(ctx, s.Timeout)
	} else {
		searchCtx, cancel = context.WithCancel(ctx)
	}

	now := s.now()
	candidates := make([]core.Candidate, 0, len(domains))
	for _, domain := range domains {
		candidates = append(candidates, core.NewCandidate(domain, core.TLDOf(domain)))
	}
	SortCandidates(candidates)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	gen := s.generation
	s.cancel = cancel
	initial := &core.SearchSnapshot{
		ID:         uuid.NewString(),
		Query:      strings.TrimSpace(raw),
		Base:       base,
		Generation: gen,
		Candidates: candidates,
		StartedAt:  now,
		UpdatedAt:  now,
	}
	s.publishLocked(initial)
	s.mu.Unlock()

	observability.Logger().Debug("search started",
		zap.String("query", initial.Query),
		zap.Uint64("generation", gen),
		zap.Int("candidates", len(candidates)))

	done := make(chan struct{})
	var wg conc.WaitGroup
	for _, candidate := range candidates {
		wg.Go(func() {
			s.apply(gen, s.evaluate(searchCtx, candidate))
		})
	}

	go func() {
		defer close(done)
		defer cancel()
		if recovered := wg.WaitAndRecover(); recovered != nil {
			observability.Logger().Error("search lookup panicked",
				zap.Uint64("generation", gen),
				zap.String("panic", recovered.String()))
		}
		s.finish(gen, searchCtx.Err())
	}()

	return initial, done, nil
}

func (s *Searcher) evaluate(ctx context.Context, candidate core.Candidate) core.Candidate {
	result := s.Availability.Resolve(ctx, candidate.Domain)
	if !result.Available {
		return candidate.Taken(s.lookupInfo(ctx, candidate.Domain), result.Message)
	}

	demand := core.DemandLow
	if s.Demand != nil {
		demand = s.Demand.Estimate(ctx, core.SecondLevelName(candidate.Domain)).Label
	}

	updated := candidate.Available(
		scoring.Brandability(candidate.Domain),
		scoring.EstimatedValue(candidate.Domain),
		demand,
		result.Message,
	)
	if s.Prices != nil {
		updated.Prices = s.Prices.Rows(candidate.Domain)
	}
	return updated
}

func (s *Searcher) lookupInfo(ctx context.Context, domain string) *core.DomainInfo {
	if s.Info == nil {
		return nil
	}
	info, err := s.Info.Lookup(ctx, domain)
	if err != nil {
		observability.Logger().Debug("domain info unavailable",
			zap.String("domain", domain),
			zap.Error(err))
		return nil
	}
	return info
}

// apply folds one finished candidate into the current snapshot.
func (s *Searcher) apply(gen uint64, candidate core.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.snapshot.Load()
	if gen != s.generation || current == nil || current.Generation != gen {
		return
	}

	next := *current
	next.Candidates = make([]core.Candidate, len(current.Candidates))
	copy(next.Candidates, current.Candidates)

	replaced := false
	for i := range next.Candidates {
		if next.Candidates[i].Domain != candidate.Domain {
			continue
		}
		if next.Candidates[i].Availability.Terminal() {
			return
		}
		next.Candidates[i] = candidate
		replaced = true
		break
	}
	if !replaced {
		return
	}

	SortCandidates(next.Candidates)
	next.UpdatedAt = s.now()
	s.publishLocked(&next)
}

// finish settles anything still loading and marks the snapshot complete.
func (s *Searcher) finish(gen uint64, ctxErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.snapshot.Load()
	if gen != s.generation || current == nil || current.Generation != gen {
		metrics.RecordSearchSession("superseded", 0)
		return
	}

	next := *current
	next.Candidates = make([]core.Candidate, len(current.Candidates))
	for i, candidate := range current.Candidates {
		if !candidate.Availability.Terminal() {
			candidate = candidate.Taken(nil, MessageIncomplete)
		}
		next.Candidates[i] = candidate
	}
	SortCandidates(next.Candidates)
	next.Complete = true
	next.UpdatedAt = s.now()
	s.publishLocked(&next)

	status := "complete"
	if ctxErr != nil {
		status = "timeout"
	}
	duration := next.UpdatedAt.Sub(next.StartedAt)
	metrics.RecordSearchSession(status, duration)
	observability.Logger().Info("search finished",
		zap.String("query", next.Query),
		zap.Uint64("generation", gen),
		zap.String("status", status),
		zap.Int("available", next.AvailableCount()),
		zap.Duration("duration", duration))
}

func (s *Searcher) publishLocked(snap *core.SearchSnapshot) {
	s.snapshot.Store(snap)
	if s.OnSnapshot != nil {
		s.OnSnapshot(snap)
	}
}

func (s *Searcher) tlds() []string {
	if len(s.TLDs) > 0 {
		return s.TLDs
	}
	return core.SupportedTLDs
}

func (s *Searcher) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}
