package store_test

import (
	"sync"
	"testing"
	"time"

	"github.com/serroba/shortlink/internal/ratelimit"
	"github.com/serroba/shortlink/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestRateLimitMemoryStore(t *testing.T) {
	limit := ratelimit.Limit{Capacity: 5, RefillTokens: 5, RefillPeriod: time.Minute}
	newBucket := func() *ratelimit.TokenBucket {
		return ratelimit.NewTokenBucket(limit, time.Now())
	}

	t.Run("returns the same bucket for a key", func(t *testing.T) {
		s := store.NewRateLimitMemoryStore(time.Minute)

		first := s.Bucket("rate:create:a", newBucket)
		second := s.Bucket("rate:create:a", newBucket)

		assert.Same(t, first, second)
	})

	t.Run("tracks keys independently", func(t *testing.T) {
		s := store.NewRateLimitMemoryStore(time.Minute)

		a := s.Bucket("rate:create:a", newBucket)
		b := s.Bucket("rate:create:b", newBucket)

		assert.NotSame(t, a, b)
		assert.Equal(t, 2, s.Len())
	})

	t.Run("peek does not create", func(t *testing.T) {
		s := store.NewRateLimitMemoryStore(time.Minute)

		_, found := s.Peek("rate:create:a")

		assert.False(t, found)
		assert.Equal(t, 0, s.Len())
	})

	t.Run("concurrent callers share one bucket", func(t *testing.T) {
		s := store.NewRateLimitMemoryStore(0)

		var wg sync.WaitGroup

		got := make([]*ratelimit.TokenBucket, 20)

		for i := range got {
			i := i
			wg.Add(1)

			go func() {
				defer wg.Done()

				got[i] = s.Bucket("rate:redirect:a", newBucket)
			}()
		}

		wg.Wait()

		for _, b := range got {
			assert.Same(t, got[0], b)
		}
	})

	t.Run("drops idle buckets", func(t *testing.T) {
		s := store.NewRateLimitMemoryStore(30 * time.Millisecond)

		first := s.Bucket("rate:create:a", newBucket)

		time.Sleep(50 * time.Millisecond)

		_, found := s.Peek("rate:create:a")
		assert.False(t, found)
		assert.NotSame(t, first, s.Bucket("rate:create:a", newBucket))
	})

	t.Run("zero ttl keeps buckets", func(t *testing.T) {
		s := store.NewRateLimitMemoryStore(0)

		s.Bucket("rate:create:a", newBucket)
		time.Sleep(10 * time.Millisecond)

		_, found := s.Peek("rate:create:a")
		assert.True(t, found)
	})
}
