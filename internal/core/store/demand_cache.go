package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/namelens/domainsearch/internal/core"
)

// GetDemand returns the cached demand estimate for keyword. Freshness is left
// to the caller.
func (s *Store) GetDemand(ctx context.Context, keyword string) (*core.DemandCacheEntry, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	key := demandKey(keyword)
	if key == "" {
		return nil, errors.New("keyword is required")
	}

	var (
		label    string
		score    float64
		source   sql.NullString
		cachedAt int64
	)
	row := s.DB.QueryRowContext(ctx, `
		SELECT label, score, source, cached_at
		FROM demand_cache
		WHERE keyword = ?
	`, key)
	if err := row.Scan(&label, &score, &source, &cachedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch demand cache: %w", err)
	}

	return &core.DemandCacheEntry{
		Label:     core.DemandLabel(label),
		Score:     score,
		Source:    core.DemandSource(source.String),
		Timestamp: time.Unix(cachedAt, 0).UTC(),
	}, nil
}

// SetDemand upserts a demand estimate.
func (s *Store) SetDemand(ctx context.Context, keyword string, entry core.DemandCacheEntry) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	key := demandKey(keyword)
	if key == "" {
		return errors.New("keyword is required")
	}

	cachedAt := entry.Timestamp
	if cachedAt.IsZero() {
		cachedAt = s.now()
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO demand_cache (keyword, label, score, source, cached_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(keyword) DO UPDATE SET
			label = excluded.label,
			score = excluded.score,
			source = excluded.source,
			cached_at = excluded.cached_at
	`, key, string(entry.Label), entry.Score, string(entry.Source), cachedAt.UTC().Unix())
	if err != nil {
		return fmt.Errorf("store demand cache: %w", err)
	}
	return nil
}

func demandKey(keyword string) string {
	return strings.ToLower(strings.TrimSpace(keyword))
}
