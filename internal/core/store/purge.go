package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// PurgeOptions selects which caches to clear.
type PurgeOptions struct {
	Query Query

	Demand     bool
	DomainInfo bool
	RateLimits bool

	// ExpiredOnly limits the purge to stale rows. Demand rows are stale once
	// older than DemandMaxAge.
	ExpiredOnly  bool
	DemandMaxAge time.Duration
}

// PurgeResult reports deleted rows per cache.
type PurgeResult struct {
	Demand     int64 `json:"demand"`
	DomainInfo int64 `json:"domain_info"`
	RateLimits int64 `json:"rate_limits"`
}

// Total sums deleted rows.
func (r PurgeResult) Total() int64 {
	return r.Demand + r.DomainInfo + r.RateLimits
}

// Purge deletes cache rows selected by opts.
func (s *Store) Purge(ctx context.Context, opts PurgeOptions) (PurgeResult, error) {
	var result PurgeResult
	if s == nil || s.DB == nil {
		return result, errors.New("store is not initialized")
	}
	if !opts.Demand && !opts.DomainInfo && !opts.RateLimits {
		return result, errors.New("no cache selected")
	}

	now := s.now()
	var err error
	if opts.Demand {
		var extra []string
		if opts.ExpiredOnly {
			maxAge := opts.DemandMaxAge
			if maxAge <= 0 {
				maxAge = 24 * time.Hour
			}
			extra = append(extra, fmt.Sprintf("cached_at <= %d", now.Add(-maxAge).Unix()))
		}
		if result.Demand, err = s.deleteWhere(ctx, "demand_cache", "keyword", opts.Query, extra...); err != nil {
			return result, err
		}
	}
	if opts.DomainInfo {
		var extra []string
		if opts.ExpiredOnly {
			extra = append(extra, fmt.Sprintf("expires_at <= %d", now.Unix()))
		}
		if result.DomainInfo, err = s.deleteWhere(ctx, "domain_info_cache", "domain", opts.Query, extra...); err != nil {
			return result, err
		}
	}
	if opts.RateLimits {
		if result.RateLimits, err = s.deleteWhere(ctx, "rate_limits", "endpoint", opts.Query); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (s *Store) deleteWhere(ctx context.Context, table, column string, q Query, extra ...string) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause(column, extra...)
	if err != nil {
		return 0, err
	}

	result, err := s.DB.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM %s
		%s
	`, table, where), args...)
	if err != nil {
		return 0, fmt.Errorf("purge %s: %w", table, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge %s: %w", table, err)
	}
	return affected, nil
}
