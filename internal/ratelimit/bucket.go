package ratelimit

import (
	"math"
	"sync"
	"time"
)

// TokenBucket is a lazily refilled token bucket. It is safe for concurrent use.
type TokenBucket struct {
	mu         sync.Mutex
	limit      Limit
	tokens     float64
	lastRefill time.Time
}

// NewTokenBucket returns a full bucket.
func NewTokenBucket(limit Limit, now time.Time) *TokenBucket {
	return &TokenBucket{
		limit:      limit,
		tokens:     float64(limit.Capacity),
		lastRefill: now,
	}
}

// Take refills the bucket and consumes one token if one is available.
func (b *TokenBucket) Take(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens = b.refilled(now)

	// A caller holding an older now must not rewind the clock, or the
	// interval up to lastRefill would be credited twice.
	if now.After(b.lastRefill) {
		b.lastRefill = now
	}

	if b.tokens < 1 {
		return false
	}

	b.tokens--

	return true
}

// Available returns the whole tokens the bucket would hold at now, without
// consuming or updating it.
func (b *TokenBucket) Available(now time.Time) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return int64(math.Floor(b.refilled(now)))
}

// Wait returns how long until at least one token is available. It returns
// zero when a token is available now, and a negative duration when the bucket
// never refills.
func (b *TokenBucket) Wait(now time.Time) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	tokens := b.refilled(now)
	if tokens >= 1 {
		return 0
	}

	if !b.limit.refills() {
		return -1
	}

	missing := 1 - tokens

	return time.Duration(math.Ceil(missing * float64(b.limit.RefillPeriod) / float64(b.limit.RefillTokens)))
}

func (b *TokenBucket) refilled(now time.Time) float64 {
	elapsed := now.Sub(b.lastRefill)
	if elapsed <= 0 || !b.limit.refills() {
		return b.tokens
	}

	// Multiply before dividing so whole-token refills come out exact.
	added := float64(elapsed) * float64(b.limit.RefillTokens) / float64(b.limit.RefillPeriod)

	return math.Min(float64(b.limit.Capacity), b.tokens+added)
}
