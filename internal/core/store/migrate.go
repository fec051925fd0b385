package store

import (
	"context"
	"errors"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS demand_cache (
		keyword TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		score REAL NOT NULL,
		source TEXT,
		cached_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_demand_cache_cached ON demand_cache(cached_at);`,
	`CREATE TABLE IF NOT EXISTS domain_info_cache (
		domain TEXT PRIMARY KEY,
		registered TEXT,
		expires TEXT,
		statuses TEXT,
		registrar TEXT,
		server TEXT,
		fetched_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_domain_info_cache_expires ON domain_info_cache(expires_at);`,
	`CREATE TABLE IF NOT EXISTS rate_limits (
		endpoint TEXT PRIMARY KEY,
		request_count INTEGER NOT NULL DEFAULT 0,
		window_start INTEGER NOT NULL,
		backoff_until INTEGER,
		last_429_at INTEGER
	);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	return nil
}
