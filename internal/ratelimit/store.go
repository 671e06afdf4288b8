package ratelimit

// Store holds token buckets by key.
type Store interface {
	// Bucket returns the bucket stored under key, creating it with create
	// when absent. Concurrent callers for the same key get the same bucket.
	Bucket(key string, create func() *TokenBucket) *TokenBucket

	// Peek returns the bucket stored under key without creating it.
	Peek(key string) (*TokenBucket, bool)
}
