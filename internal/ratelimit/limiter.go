package ratelimit

import (
	"math"
	"time"
)

// Limiter applies a Policy using one token bucket per client and class.
type Limiter struct {
	store  Store
	policy Policy
	now    func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// NewLimiter creates a new token bucket limiter.
func NewLimiter(store Store, policy Policy, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		policy: policy,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Key returns the bucket key for a client identity and class.
func Key(class Class, identity string) string {
	return "rate:" + string(class) + ":" + identity
}

// Allow consumes one token from the client's bucket for class.
// Classes without a configured limit are always allowed.
func (l *Limiter) Allow(identity string, class Class) bool {
	limit, ok := l.limit(class)
	if !ok {
		return true
	}

	now := l.now()
	bucket := l.store.Bucket(Key(class, identity), func() *TokenBucket {
		return NewTokenBucket(limit, now)
	})

	return bucket.Take(now)
}

// Remaining reports the whole tokens left for the client without consuming
// any. A client that has not been seen yet has the full capacity.
func (l *Limiter) Remaining(identity string, class Class) int64 {
	limit, ok := l.limit(class)
	if !ok {
		return math.MaxInt64
	}

	bucket, found := l.store.Peek(Key(class, identity))
	if !found {
		return limit.Capacity
	}

	return bucket.Available(l.now())
}

// RetryAfter reports how long the client must wait for the next token.
func (l *Limiter) RetryAfter(identity string, class Class) time.Duration {
	if _, ok := l.limit(class); !ok {
		return 0
	}

	bucket, found := l.store.Peek(Key(class, identity))
	if !found {
		return 0
	}

	return max(bucket.Wait(l.now()), 0)
}

// Enabled reports whether limits are enforced.
func (l *Limiter) Enabled() bool {
	return l.policy.Enabled
}

func (l *Limiter) limit(class Class) (Limit, bool) {
	if !l.policy.Enabled {
		return Limit{}, false
	}

	return l.policy.Limit(class)
}
