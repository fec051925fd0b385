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

const rateLimitColumns = `endpoint, request_count, window_start, backoff_until, last_429_at`

// RateLimitEntry is one persisted endpoint window.
type RateLimitEntry struct {
	Endpoint string
	State    core.RateLimitState
}

type rowScanner interface {
	Scan(dest ...any) error
}

// GetRateLimit returns the stored window for endpoint, or nil when none exists.
func (s *Store) GetRateLimit(ctx context.Context, endpoint string) (*core.RateLimitState, error) {
	ctx, endpoint, err := s.rateLimitArgs(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	row := s.DB.QueryRowContext(ctx,
		`SELECT `+rateLimitColumns+` FROM rate_limits WHERE endpoint = ?`, endpoint)
	entry, err := scanRateLimit(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("fetch rate limit: %w", err)
	}
	return &entry.State, nil
}

// UpdateRateLimit upserts the window for endpoint.
func (s *Store) UpdateRateLimit(ctx context.Context, endpoint string, state *core.RateLimitState) error {
	ctx, endpoint, err := s.rateLimitArgs(ctx, endpoint)
	if err != nil {
		return err
	}
	if state == nil {
		return errors.New("rate limit state is required")
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO rate_limits (`+rateLimitColumns+`)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(endpoint) DO UPDATE SET
			request_count = excluded.request_count,
			window_start = excluded.window_start,
			backoff_until = excluded.backoff_until,
			last_429_at = excluded.last_429_at
	`, endpoint, state.RequestCount, state.WindowStart.UTC().Unix(),
		toNullUnix(state.BackoffUntil), toNullUnix(state.Last429At))
	if err != nil {
		return fmt.Errorf("store rate limit: %w", err)
	}
	return nil
}

// ListRateLimits returns persisted windows matching q, ordered by endpoint.
func (s *Store) ListRateLimits(ctx context.Context, q Query) ([]RateLimitEntry, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause("endpoint")
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+rateLimitColumns+` FROM rate_limits `+where+` ORDER BY endpoint`, args...)
	if err != nil {
		return nil, fmt.Errorf("list rate limits: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	entries := []RateLimitEntry{}
	for rows.Next() {
		entry, err := scanRateLimit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rate limits: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rate limits: %w", err)
	}
	return entries, nil
}

// ResetRateLimits deletes persisted windows matching q.
func (s *Store) ResetRateLimits(ctx context.Context, q Query) (int64, error) {
	return s.deleteWhere(ctx, "rate_limits", "endpoint", q)
}

func (s *Store) rateLimitArgs(ctx context.Context, endpoint string) (context.Context, string, error) {
	if s == nil || s.DB == nil {
		return nil, "", errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, "", errors.New("endpoint is required")
	}
	return ctx, endpoint, nil
}

func scanRateLimit(row rowScanner) (RateLimitEntry, error) {
	var (
		entry        RateLimitEntry
		windowStart  int64
		backoffUntil sql.NullInt64
		last429At    sql.NullInt64
	)
	if err := row.Scan(&entry.Endpoint, &entry.State.RequestCount, &windowStart, &backoffUntil, &last429At); err != nil {
		return RateLimitEntry{}, err
	}
	entry.State.WindowStart = time.Unix(windowStart, 0).UTC()
	entry.State.BackoffUntil = fromNullUnix(backoffUntil)
	entry.State.Last429At = fromNullUnix(last429At)
	return entry, nil
}

func toNullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UTC().Unix(), Valid: true}
}

func fromNullUnix(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}
