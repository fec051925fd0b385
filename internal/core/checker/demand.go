package checker

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/namelens/domainsearch/internal/core"
	"github.com/namelens/domainsearch/internal/metrics"
	"github.com/namelens/domainsearch/internal/observability"
)

const (
	// DefaultDemandMaxAge is how long a cached demand estimate stays fresh.
	DefaultDemandMaxAge  = 24 * time.Hour
	defaultDemandTimeout = 8 * time.Second
)

// DemandCache stores demand estimates keyed by lowercased keyword.
type DemandCache interface {
	GetDemand(ctx context.Context, keyword string) (*core.DemandCacheEntry, error)
	SetDemand(ctx context.Context, keyword string, entry core.DemandCacheEntry) error
}

// TrendScorer returns a 0-100 interest score for a keyword.
type TrendScorer interface {
	Score(ctx context.Context, keyword string) (float64, error)
}

// DemandEstimator labels keyword search demand, preferring fresh cache
// entries, then trend data, then the shape heuristic.
type DemandEstimator struct {
	Cache   DemandCache
	Trends  TrendScorer
	MaxAge  time.Duration // capped at DefaultDemandMaxAge
	Timeout time.Duration
	Clock   func() time.Time
}

// Estimate never fails; upstream problems degrade to the heuristic.
func (d *DemandEstimator) Estimate(ctx context.Context, keyword string) core.Demand {
	if ctx == nil {
		ctx = context.Background()
	}
	keyword = strings.TrimSpace(keyword)
	key := strings.ToLower(keyword)

	if d.Cache != nil {
		entry, err := d.Cache.GetDemand(ctx, key)
		if err == nil && entry != nil && entry.Fresh(d.now(), d.maxAge()) {
			metrics.RecordDemandLookup("cache")
			return core.Demand{
				Keyword:   key,
				Score:     entry.Score,
				Label:     entry.Label,
				Source:    entry.Source,
				FromCache: true,
			}
		}
	}

	demand := d.lookup(ctx, keyword)
	demand.Keyword = key
	metrics.RecordDemandLookup(string(demand.Source))

	if d.Cache != nil {
		entry := core.DemandCacheEntry{
			Label:     demand.Label,
			Score:     demand.Score,
			Source:    demand.Source,
			Timestamp: d.now(),
		}
		if err := d.Cache.SetDemand(ctx, key, entry); err != nil {
			observability.Logger().Warn("Failed to cache search demand",
				zap.String("keyword", key),
				zap.Error(err))
		}
	}
	return demand
}

func (d *DemandEstimator) lookup(ctx context.Context, keyword string) core.Demand {
	if d.Trends != nil {
		trendCtx, cancel := context.WithTimeout(ctx, d.timeout())
		score, err := d.Trends.Score(trendCtx, keyword)
		cancel()
		if err == nil {
			return core.Demand{Score: score, Label: core.LabelForScore(score), Source: core.DemandSourceTrends}
		}
		observability.Logger().Debug("Trends lookup failed, using heuristic",
			zap.String("keyword", keyword),
			zap.String("source", string(core.DemandSourceHeuristic)),
			zap.Error(err))
	}

	score := HeuristicDemand(keyword)
	return core.Demand{Score: score, Label: core.LabelForScore(score), Source: core.DemandSourceHeuristic}
}

func (d *DemandEstimator) maxAge() time.Duration {
	if d != nil && d.MaxAge > 0 && d.MaxAge < DefaultDemandMaxAge {
		return d.MaxAge
	}
	return DefaultDemandMaxAge
}

func (d *DemandEstimator) timeout() time.Duration {
	if d != nil && d.Timeout > 0 {
		return d.Timeout
	}
	return defaultDemandTimeout
}

func (d *DemandEstimator) now() time.Time {
	if d != nil && d.Clock != nil {
		return d.Clock()
	}
	return time.Now().UTC()
}

// MemoryDemandCache is an in-process DemandCache.
type MemoryDemandCache struct {
	mu      sync.RWMutex
	entries map[string]core.DemandCacheEntry
}

// NewMemoryDemandCache returns an empty cache.
func NewMemoryDemandCache() *MemoryDemandCache {
	return &MemoryDemandCache{entries: make(map[string]core.DemandCacheEntry)}
}

// GetDemand returns the entry for keyword or nil.
func (m *MemoryDemandCache) GetDemand(_ context.Context, keyword string) (*core.DemandCacheEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[strings.ToLower(keyword)]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// SetDemand stores entry under keyword.
func (m *MemoryDemandCache) SetDemand(_ context.Context, keyword string, entry core.DemandCacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string]core.DemandCacheEntry)
	}
	m.entries[strings.ToLower(keyword)] = entry
	return nil
}
