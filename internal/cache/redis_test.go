package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/shortlink/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// unreachableClient points at a port nothing listens on.
func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestProbe(t *testing.T) {
	t.Run("nil client selects memory tier", func(t *testing.T) {
		c := cache.Probe(context.Background(), nil, time.Second, zap.NewNop())

		assert.Equal(t, "memory", c.Primary())
	})

	t.Run("unreachable redis selects memory tier", func(t *testing.T) {
		c := cache.Probe(context.Background(), unreachableClient(t), 200*time.Millisecond, zap.NewNop())

		assert.Equal(t, "memory", c.Primary())

		ctx := context.Background()
		c.Set(ctx, "k", "v", time.Minute)

		value, found := c.Get(ctx, "k")
		assert.True(t, found)
		assert.Equal(t, "v", value)
	})
}

func TestLayout(t *testing.T) {
	t.Run("trusts a successful startup ping", func(t *testing.T) {
		c := cache.Layout(unreachableClient(t), nil, zap.NewNop())

		assert.Equal(t, "redis", c.Primary())
	})

	t.Run("failed startup ping selects memory tier", func(t *testing.T) {
		c := cache.Layout(unreachableClient(t), errUnreachable, zap.NewNop())

		assert.Equal(t, "memory", c.Primary())
	})
}

func TestRedisTier_Degrades(t *testing.T) {
	fallback := cache.NewLocalTier(time.Minute)
	ctx := context.Background()
	require.NoError(t, fallback.Set(ctx, "url:mapping:abc1234", "https://example.com", 0))

	// Wired as primary even though the probe would have rejected it,
	// to simulate redis going away after startup.
	c := cache.New(cache.NewRedisTier(unreachableClient(t)), fallback, zap.NewNop())

	value, found := c.Get(ctx, "url:mapping:abc1234")

	assert.True(t, found)
	assert.Equal(t, "https://example.com", value)
	assert.Equal(t, int64(1), c.IncrementCounter(ctx, "url:clicks:abc1234"))
}
