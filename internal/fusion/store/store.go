// Package store is the staleness-aware cache for fetched source payloads.
// It is a pure storage abstraction: it never performs network I/O and is
// consulted only by the fusion resolver.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"trustcheck/pkg/domain"
)

// ErrNotFound is returned when no entry exists for a (source, id) pair.
var ErrNotFound = errors.New("cache entry not found")

// Entry is the durable record for one (source, identifier) pair.
// Invariant: an entry is only created by a successful fetch; failed fetches
// flip LastFetchOK and bump FailureCount but never touch the payload -
// stale-but-good beats none.
type Entry struct {
	Source       domain.Source
	BusinessID   domain.BusinessID
	Payload      json.RawMessage
	UpdatedAt    time.Time
	LastFetchOK  bool
	FailureCount int
}

// IsStale reports whether the entry is older than ttl at the given time.
// Monotonic in elapsed time for a fixed TTL.
func (e *Entry) IsStale(ttl time.Duration, now time.Time) bool {
	return now.Sub(e.UpdatedAt) > ttl
}

// Stats aggregates one source's cache state for operational visibility.
type Stats struct {
	Total    int           `json:"total"`
	Fresh    int           `json:"fresh"`
	Stale    int           `json:"stale"`
	AvgAge   time.Duration `json:"avg_age"`
	Failures int           `json:"failures"`
}

// Cache is the staleness-aware store consulted by the fusion resolver.
type Cache interface {
	// Get returns the entry for (source, id) or ErrNotFound. Expired entries
	// are still returned; staleness is the caller's decision.
	Get(ctx context.Context, source domain.Source, id domain.BusinessID) (*Entry, error)

	// Upsert writes the payload with a fresh timestamp. Only called after a
	// successful fetch. Idempotent; last writer wins.
	Upsert(ctx context.Context, source domain.Source, id domain.BusinessID, payload json.RawMessage) error

	// RecordFailure marks the most recent fetch attempt as failed on an
	// existing entry. A no-op when no entry exists.
	RecordFailure(ctx context.Context, source domain.Source, id domain.BusinessID) error

	// ListStale returns up to limit identifiers whose entries are older than
	// ttl, oldest first, for batch maintenance jobs.
	ListStale(ctx context.Context, source domain.Source, ttl time.Duration, limit int) ([]domain.BusinessID, error)

	// Stats aggregates the source's entries against ttl.
	Stats(ctx context.Context, source domain.Source, ttl time.Duration) (Stats, error)
}
