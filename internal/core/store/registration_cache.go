package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/namelens/domainsearch/internal/core"
)

// GetRegistration returns a cached RDAP record if it has not expired.
func (s *Store) GetRegistration(ctx context.Context, domain string) (*core.RegistrationRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return nil, errors.New("domain is required")
	}

	var (
		registered sql.NullString
		expires    sql.NullString
		statuses   sql.NullString
		registrar  sql.NullString
		server     sql.NullString
		fetchedAt  int64
	)
	row := s.DB.QueryRowContext(ctx, `
		SELECT registered, expires, statuses, registrar, server, fetched_at
		FROM domain_info_cache
		WHERE domain = ? AND expires_at > ?
	`, domain, s.now().Unix())
	if err := row.Scan(&registered, &expires, &statuses, &registrar, &server, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch domain info cache: %w", err)
	}

	record := &core.RegistrationRecord{
		Domain:     domain,
		Registered: registered.String,
		Expires:    expires.String,
		Registrar:  registrar.String,
		Server:     server.String,
		FetchedAt:  time.Unix(fetchedAt, 0).UTC(),
	}
	if statuses.Valid && statuses.String != "" {
		if err := json.Unmarshal([]byte(statuses.String), &record.Statuses); err != nil {
			return nil, fmt.Errorf("decode domain info cache: %w", err)
		}
	}
	return record, nil
}

// SetRegistration stores an RDAP record for ttl. A non-positive ttl is a no-op.
func (s *Store) SetRegistration(ctx context.Context, record *core.RegistrationRecord, ttl time.Duration) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if record == nil || ttl <= 0 {
		return nil
	}

	domain := strings.ToLower(strings.TrimSpace(record.Domain))
	if domain == "" {
		return errors.New("domain is required")
	}

	statuses, err := json.Marshal(record.Statuses)
	if err != nil {
		return fmt.Errorf("encode domain info cache: %w", err)
	}

	fetched := record.FetchedAt
	if fetched.IsZero() {
		fetched = s.now()
	}
	expiresAt := s.now().Add(ttl)

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO domain_info_cache (domain, registered, expires, statuses, registrar, server, fetched_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(domain) DO UPDATE SET
			registered = excluded.registered,
			expires = excluded.expires,
			statuses = excluded.statuses,
			registrar = excluded.registrar,
			server = excluded.server,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at
	`, domain, record.Registered, record.Expires, string(statuses), record.Registrar, record.Server, fetched.UTC().Unix(), expiresAt.Unix())
	if err != nil {
		return fmt.Errorf("store domain info cache: %w", err)
	}
	return nil
}
