//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/shortlink/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"go.uber.org/zap"
)

func TestRedisTierIntegration(t *testing.T) {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Skipf("Redis container not available: %v", err)
	}

	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })

	c := cache.Probe(ctx, client, 2*time.Second, zap.NewNop())
	require.Equal(t, "redis", c.Primary())

	t.Run("set and get", func(t *testing.T) {
		c.Set(ctx, "url:mapping:it1", "https://example.com", time.Minute)

		value, found := c.Get(ctx, "url:mapping:it1")

		assert.True(t, found)
		assert.Equal(t, "https://example.com", value)

		ttl, err := client.TTL(ctx, "url:mapping:it1").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
	})

	t.Run("invalidate removes key", func(t *testing.T) {
		c.Set(ctx, "url:mapping:it2", "https://example.com", time.Minute)
		c.Invalidate(ctx, "url:mapping:it2")

		_, found := c.Get(ctx, "url:mapping:it2")

		assert.False(t, found)
	})

	t.Run("counters have no ttl", func(t *testing.T) {
		assert.Equal(t, int64(1), c.IncrementCounter(ctx, "url:clicks:it3"))
		assert.Equal(t, int64(2), c.IncrementCounter(ctx, "url:clicks:it3"))
		assert.Equal(t, int64(2), c.Counter(ctx, "url:clicks:it3"))

		ttl, err := client.TTL(ctx, "url:clicks:it3").Result()
		require.NoError(t, err)
		assert.Equal(t, time.Duration(-1), ttl)
	})

	t.Run("count and clear by prefix", func(t *testing.T) {
		c.Set(ctx, "admin:mapping:a", "x", time.Minute)
		c.Set(ctx, "admin:mapping:b", "y", time.Minute)
		require.NoError(t, client.Set(ctx, "admin:stream", "keep", 0).Err())

		assert.Equal(t, int64(2), c.CountKeys(ctx, "admin:mapping:"))
		assert.Equal(t, int64(2), c.ClearKeys(ctx, "admin:mapping:"))
		assert.Equal(t, int64(0), c.CountKeys(ctx, "admin:mapping:"))

		kept, err := client.Exists(ctx, "admin:stream").Result()
		require.NoError(t, err)
		assert.Equal(t, int64(1), kept)
	})
}
