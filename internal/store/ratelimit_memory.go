package store

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/serroba/shortlink/internal/ratelimit"
)

// RateLimitMemoryStore is an in-memory implementation of ratelimit.Store.
// Buckets untouched for idleTTL are dropped; an idleTTL of zero keeps them forever.
type RateLimitMemoryStore struct {
	buckets *gocache.Cache
	ttl     time.Duration
}

// NewRateLimitMemoryStore creates a new in-memory bucket store.
func NewRateLimitMemoryStore(idleTTL time.Duration) *RateLimitMemoryStore {
	ttl := idleTTL
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}

	cleanup := max(idleTTL, 0)

	return &RateLimitMemoryStore{
		buckets: gocache.New(ttl, cleanup),
		ttl:     ttl,
	}
}

func (s *RateLimitMemoryStore) Bucket(key string, create func() *ratelimit.TokenBucket) *ratelimit.TokenBucket {
	for {
		if b, ok := s.get(key); ok {
			if s.ttl != gocache.NoExpiration {
				// Push the idle deadline out again.
				s.buckets.Set(key, b, s.ttl)
			}

			return b
		}

		b := create()
		if err := s.buckets.Add(key, b, s.ttl); err == nil {
			return b
		}
	}
}

func (s *RateLimitMemoryStore) Peek(key string) (*ratelimit.TokenBucket, bool) {
	return s.get(key)
}

// Len reports the number of buckets held, including expired ones not yet purged.
func (s *RateLimitMemoryStore) Len() int {
	return s.buckets.ItemCount()
}

func (s *RateLimitMemoryStore) get(key string) (*ratelimit.TokenBucket, bool) {
	v, ok := s.buckets.Get(key)
	if !ok {
		return nil, false
	}

	b, ok := v.(*ratelimit.TokenBucket)

	return b, ok
}

var _ ratelimit.Store = (*RateLimitMemoryStore)(nil)
