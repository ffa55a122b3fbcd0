package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"trustcheck/pkg/domain"
)

// PostgresCache persists cache entries in PostgreSQL. One row per
// (source, business_id); upserts are idempotent so concurrent writers for
// the same key race harmlessly - the last writer's timestamp wins.
type PostgresCache struct {
	db *sql.DB
}

// NewPostgresCache constructs a PostgreSQL-backed cache.
func NewPostgresCache(db *sql.DB) *PostgresCache {
	return &PostgresCache{db: db}
}

// Schema is the DDL for the cache table. Applied by deployment tooling; kept
// here so the store and its shape stay in one file.
const Schema = `
CREATE TABLE IF NOT EXISTS source_cache (
    source        TEXT        NOT NULL,
    business_id   TEXT        NOT NULL,
    payload       JSONB       NOT NULL,
    updated_at    TIMESTAMPTZ NOT NULL,
    last_fetch_ok BOOLEAN     NOT NULL DEFAULT TRUE,
    failure_count INTEGER     NOT NULL DEFAULT 0,
    PRIMARY KEY (source, business_id)
);
CREATE INDEX IF NOT EXISTS source_cache_updated_at_idx ON source_cache (source, updated_at);
`

// EnsureSchema applies the cache DDL. Idempotent.
func (c *PostgresCache) EnsureSchema(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure cache schema: %w", err)
	}
	return nil
}

func (c *PostgresCache) Get(ctx context.Context, source domain.Source, id domain.BusinessID) (*Entry, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT payload, updated_at, last_fetch_ok, failure_count
		FROM source_cache
		WHERE source = $1 AND business_id = $2`,
		source.String(), id.String(),
	)

	entry := Entry{Source: source, BusinessID: id}
	var payload []byte
	err := row.Scan(&payload, &entry.UpdatedAt, &entry.LastFetchOK, &entry.FailureCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry: %w", err)
	}
	entry.Payload = payload
	return &entry, nil
}

func (c *PostgresCache) Upsert(ctx context.Context, source domain.Source, id domain.BusinessID, payload json.RawMessage) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO source_cache (source, business_id, payload, updated_at, last_fetch_ok, failure_count)
		VALUES ($1, $2, $3, NOW(), TRUE, 0)
		ON CONFLICT (source, business_id) DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at,
			last_fetch_ok = TRUE`,
		source.String(), id.String(), []byte(payload),
	)
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

func (c *PostgresCache) RecordFailure(ctx context.Context, source domain.Source, id domain.BusinessID) error {
	_, err := c.db.ExecContext(ctx, `
		UPDATE source_cache
		SET last_fetch_ok = FALSE, failure_count = failure_count + 1
		WHERE source = $1 AND business_id = $2`,
		source.String(), id.String(),
	)
	if err != nil {
		return fmt.Errorf("record fetch failure: %w", err)
	}
	return nil
}

func (c *PostgresCache) ListStale(ctx context.Context, source domain.Source, ttl time.Duration, limit int) ([]domain.BusinessID, error) {
	cutoff := time.Now().Add(-ttl)
	rows, err := c.db.QueryContext(ctx, `
		SELECT business_id
		FROM source_cache
		WHERE source = $1 AND updated_at < $2
		ORDER BY updated_at ASC
		LIMIT $3`,
		source.String(), cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list stale entries: %w", err)
	}
	defer rows.Close()

	var ids []domain.BusinessID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan stale entry: %w", err)
		}
		ids = append(ids, domain.BusinessID(raw))
	}
	return ids, rows.Err()
}

func (c *PostgresCache) Stats(ctx context.Context, source domain.Source, ttl time.Duration) (Stats, error) {
	cutoff := time.Now().Add(-ttl)
	row := c.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE updated_at >= $2),
			COUNT(*) FILTER (WHERE updated_at < $2),
			COALESCE(EXTRACT(EPOCH FROM AVG(NOW() - updated_at)), 0),
			COALESCE(SUM(failure_count), 0)
		FROM source_cache
		WHERE source = $1`,
		source.String(), cutoff,
	)

	var stats Stats
	var avgAgeSeconds float64
	if err := row.Scan(&stats.Total, &stats.Fresh, &stats.Stale, &avgAgeSeconds, &stats.Failures); err != nil {
		return Stats{}, fmt.Errorf("cache stats: %w", err)
	}
	stats.AvgAge = time.Duration(avgAgeSeconds * float64(time.Second))
	return stats, nil
}
