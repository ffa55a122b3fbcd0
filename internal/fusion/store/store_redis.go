package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"trustcheck/pkg/domain"
)

const (
	redisEntryKeyPrefix = "tc:cache:"
	redisIndexKeyPrefix = "tc:cache:index:"
)

// RedisCache is a Redis-backed cache for deployments where multiple
// instances share fetched payloads. Entries live in hashes; a per-source
// sorted set scored by the update timestamp supports the staleness sweeps.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache constructs a Redis-backed cache.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func entryKey(source domain.Source, id domain.BusinessID) string {
	return redisEntryKeyPrefix + source.String() + ":" + id.String()
}

func indexKey(source domain.Source) string {
	return redisIndexKeyPrefix + source.String()
}

func (c *RedisCache) Get(ctx context.Context, source domain.Source, id domain.BusinessID) (*Entry, error) {
	fields, err := c.client.HGetAll(ctx, entryKey(source, id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get cache entry: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	entry := Entry{Source: source, BusinessID: id, Payload: json.RawMessage(fields["payload"])}
	if unix, err := strconv.ParseInt(fields["updated_at"], 10, 64); err == nil {
		entry.UpdatedAt = time.Unix(0, unix)
	}
	entry.LastFetchOK = fields["last_fetch_ok"] == "1"
	if n, err := strconv.Atoi(fields["failure_count"]); err == nil {
		entry.FailureCount = n
	}
	return &entry, nil
}

func (c *RedisCache) Upsert(ctx context.Context, source domain.Source, id domain.BusinessID, payload json.RawMessage) error {
	now := time.Now()
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, entryKey(source, id),
		"payload", string(payload),
		"updated_at", strconv.FormatInt(now.UnixNano(), 10),
		"last_fetch_ok", "1",
	)
	pipe.HSetNX(ctx, entryKey(source, id), "failure_count", "0")
	pipe.ZAdd(ctx, indexKey(source), redis.Z{
		Score:  float64(now.UnixNano()),
		Member: id.String(),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

func (c *RedisCache) RecordFailure(ctx context.Context, source domain.Source, id domain.BusinessID) error {
	exists, err := c.client.Exists(ctx, entryKey(source, id)).Result()
	if err != nil {
		return fmt.Errorf("record fetch failure: %w", err)
	}
	if exists == 0 {
		return nil
	}

	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, entryKey(source, id), "last_fetch_ok", "0")
	pipe.HIncrBy(ctx, entryKey(source, id), "failure_count", 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record fetch failure: %w", err)
	}
	return nil
}

func (c *RedisCache) ListStale(ctx context.Context, source domain.Source, ttl time.Duration, limit int) ([]domain.BusinessID, error) {
	cutoff := time.Now().Add(-ttl).UnixNano()
	members, err := c.client.ZRangeByScore(ctx, indexKey(source), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(cutoff, 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list stale entries: %w", err)
	}

	ids := make([]domain.BusinessID, 0, len(members))
	for _, m := range members {
		ids = append(ids, domain.BusinessID(m))
	}
	return ids, nil
}

func (c *RedisCache) Stats(ctx context.Context, source domain.Source, ttl time.Duration) (Stats, error) {
	now := time.Now()
	cutoff := now.Add(-ttl).UnixNano()

	entries, err := c.client.ZRangeByScoreWithScores(ctx, indexKey(source), &redis.ZRangeBy{
		Min: "-inf",
		Max: "+inf",
	}).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("cache stats: %w", err)
	}

	var stats Stats
	var totalAge time.Duration
	for _, z := range entries {
		stats.Total++
		updated := time.Unix(0, int64(z.Score))
		totalAge += now.Sub(updated)
		if int64(z.Score) < cutoff {
			stats.Stale++
		} else {
			stats.Fresh++
		}

		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		count, err := c.client.HGet(ctx, entryKey(source, domain.BusinessID(member)), "failure_count").Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return Stats{}, fmt.Errorf("cache stats: %w", err)
		}
		if n, convErr := strconv.Atoi(count); convErr == nil {
			stats.Failures += n
		}
	}
	if stats.Total > 0 {
		stats.AvgAge = totalAge / time.Duration(stats.Total)
	}
	return stats, nil
}
