package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"trustcheck/pkg/domain"
)

type cacheKey struct {
	source domain.Source
	id     domain.BusinessID
}

// InMemoryCache is the map-backed cache used in tests and single-node dev
// runs.
type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]*Entry

	// now is injectable for staleness tests.
	now func() time.Time
}

// NewInMemoryCache creates an empty in-memory cache.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		entries: make(map[cacheKey]*Entry),
		now:     time.Now,
	}
}

// WithClock replaces the time source. Tests only.
func (c *InMemoryCache) WithClock(now func() time.Time) *InMemoryCache {
	c.now = now
	return c
}

func (c *InMemoryCache) Get(_ context.Context, source domain.Source, id domain.BusinessID) (*Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[cacheKey{source, id}]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *entry
	return &copied, nil
}

func (c *InMemoryCache) Upsert(_ context.Context, source domain.Source, id domain.BusinessID, payload json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{source, id}
	entry, ok := c.entries[key]
	if !ok {
		entry = &Entry{Source: source, BusinessID: id}
		c.entries[key] = entry
	}
	entry.Payload = append(json.RawMessage(nil), payload...)
	entry.UpdatedAt = c.now()
	entry.LastFetchOK = true
	return nil
}

func (c *InMemoryCache) RecordFailure(_ context.Context, source domain.Source, id domain.BusinessID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[cacheKey{source, id}]; ok {
		entry.LastFetchOK = false
		entry.FailureCount++
	}
	return nil
}

func (c *InMemoryCache) ListStale(_ context.Context, source domain.Source, ttl time.Duration, limit int) ([]domain.BusinessID, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	var stale []*Entry
	for key, entry := range c.entries {
		if key.source == source && entry.IsStale(ttl, now) {
			stale = append(stale, entry)
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		return stale[i].UpdatedAt.Before(stale[j].UpdatedAt)
	})

	ids := make([]domain.BusinessID, 0, len(stale))
	for _, entry := range stale {
		if limit > 0 && len(ids) >= limit {
			break
		}
		ids = append(ids, entry.BusinessID)
	}
	return ids, nil
}

func (c *InMemoryCache) Stats(_ context.Context, source domain.Source, ttl time.Duration) (Stats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	var stats Stats
	var totalAge time.Duration
	for key, entry := range c.entries {
		if key.source != source {
			continue
		}
		stats.Total++
		stats.Failures += entry.FailureCount
		totalAge += now.Sub(entry.UpdatedAt)
		if entry.IsStale(ttl, now) {
			stats.Stale++
		} else {
			stats.Fresh++
		}
	}
	if stats.Total > 0 {
		stats.AvgAge = totalAge / time.Duration(stats.Total)
	}
	return stats, nil
}
