package cache_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/serroba/shortlink/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalTier(t *testing.T) {
	t.Run("value and counter keys do not mix", func(t *testing.T) {
		tier := cache.NewLocalTier(time.Minute)
		ctx := context.Background()

		_, err := tier.Incr(ctx, "counter")
		require.NoError(t, err)

		_, _, err = tier.Get(ctx, "counter")
		assert.Error(t, err)

		require.NoError(t, tier.Set(ctx, "value", "x", 0))

		_, err = tier.Counter(ctx, "value")
		assert.Error(t, err)
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		tier := cache.NewLocalTier(time.Minute)
		ctx := context.Background()

		var wg sync.WaitGroup

		for i := 0; i < 50; i++ {
			wg.Add(1)

			go func() {
				defer wg.Done()

				_, _ = tier.Incr(ctx, "clicks")
			}()
		}

		wg.Wait()

		n, err := tier.Counter(ctx, "clicks")
		require.NoError(t, err)
		assert.Equal(t, int64(50), n)
	})

	t.Run("delete removes the entry", func(t *testing.T) {
		tier := cache.NewLocalTier(time.Minute)
		ctx := context.Background()
		require.NoError(t, tier.Set(ctx, "k", "v", time.Hour))
		assert.Equal(t, 1, tier.Len())

		require.NoError(t, tier.Delete(ctx, "k"))

		_, found, err := tier.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, found)
	})
}
