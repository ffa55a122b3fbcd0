//go:build integration

package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"trustcheck/pkg/domain"
)

func startRedis(t *testing.T) *goredis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	addr, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	opts, err := goredis.ParseURL(addr)
	require.NoError(t, err)

	client := goredis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisCache_Integration(t *testing.T) {
	client := startRedis(t)
	cache := NewRedisCache(client)
	ctx := context.Background()

	source := domain.SourceVATDealerRegistry
	id := domain.BusinessID("312345678")
	body := json.RawMessage(`{"dealer_type":"morshe","vat_registered":true}`)

	t.Run("missing entry returns ErrNotFound", func(t *testing.T) {
		_, err := cache.Get(ctx, source, domain.BusinessID("399999999"))
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("upsert then get round-trips", func(t *testing.T) {
		require.NoError(t, cache.Upsert(ctx, source, id, body))
		entry, err := cache.Get(ctx, source, id)
		require.NoError(t, err)
		assert.JSONEq(t, string(body), string(entry.Payload))
		assert.True(t, entry.LastFetchOK)
		assert.WithinDuration(t, time.Now(), entry.UpdatedAt, 5*time.Second)
	})

	t.Run("failure flips the flag but keeps the payload", func(t *testing.T) {
		require.NoError(t, cache.RecordFailure(ctx, source, id))
		entry, err := cache.Get(ctx, source, id)
		require.NoError(t, err)
		assert.False(t, entry.LastFetchOK)
		assert.Equal(t, 1, entry.FailureCount)
		assert.JSONEq(t, string(body), string(entry.Payload))
	})

	t.Run("failure on a missing key creates nothing", func(t *testing.T) {
		require.NoError(t, cache.RecordFailure(ctx, source, domain.BusinessID("388888888")))
		_, err := cache.Get(ctx, source, domain.BusinessID("388888888"))
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("stale sweep and stats", func(t *testing.T) {
		require.NoError(t, cache.Upsert(ctx, source, "322222222", body))

		ids, err := cache.ListStale(ctx, source, time.Hour, 10)
		require.NoError(t, err)
		assert.Empty(t, ids)

		ids, err = cache.ListStale(ctx, source, 0, 10)
		require.NoError(t, err)
		assert.Len(t, ids, 2)
		assert.Equal(t, id, ids[0], "oldest entry first")

		stats, err := cache.Stats(ctx, source, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Total)
		assert.Equal(t, 2, stats.Fresh)
		assert.Equal(t, 1, stats.Failures)
	})
}
