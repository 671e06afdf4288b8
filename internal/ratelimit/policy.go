package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidLimit = errors.New("invalid rate limit")

// Class identifies an independently limited group of operations.
type Class string

const (
	ClassCreate   Class = "create"
	ClassRedirect Class = "redirect"
)

// Limit configures the token bucket for one class: at most Capacity tokens,
// refilled continuously at RefillTokens per RefillPeriod.
type Limit struct {
	Capacity     int64
	RefillTokens int64
	RefillPeriod time.Duration
}

// Validate reports whether the limit describes a usable bucket.
func (l Limit) Validate() error {
	if l.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidLimit, l.Capacity)
	}

	if l.RefillTokens < 0 || l.RefillPeriod < 0 {
		return fmt.Errorf("%w: refill must not be negative", ErrInvalidLimit)
	}

	return nil
}

// refills reports whether the bucket regains tokens over time.
func (l Limit) refills() bool {
	return l.RefillTokens > 0 && l.RefillPeriod > 0
}

// fullRefill is how long an empty bucket takes to become full again.
func (l Limit) fullRefill() time.Duration {
	if !l.refills() {
		return 0
	}

	return time.Duration(float64(l.RefillPeriod) * float64(l.Capacity) / float64(l.RefillTokens))
}

// Policy holds the per-class limits.
type Policy struct {
	Enabled bool
	Limits  map[Class]Limit
}

// DefaultPolicy returns the default limits: create 10 per hour,
// redirect 100 per minute.
func DefaultPolicy() Policy {
	return Policy{
		Enabled: true,
		Limits: map[Class]Limit{
			ClassCreate: {
				Capacity:     10,
				RefillTokens: 10,
				RefillPeriod: 60 * time.Minute,
			},
			ClassRedirect: {
				Capacity:     100,
				RefillTokens: 100,
				RefillPeriod: time.Minute,
			},
		},
	}
}

// Limit returns the limit configured for class.
func (p Policy) Limit(class Class) (Limit, bool) {
	l, ok := p.Limits[class]

	return l, ok
}

// Validate checks every configured limit.
func (p Policy) Validate() error {
	for class, l := range p.Limits {
		if err := l.Validate(); err != nil {
			return fmt.Errorf("class %s: %w", class, err)
		}
	}

	return nil
}

// IdleTTL is how long a bucket may go untouched before it can be dropped.
// It is the longest full-refill time across classes, so a dropped bucket
// would have been full anyway. Zero means buckets are never dropped.
func (p Policy) IdleTTL() time.Duration {
	var ttl time.Duration

	for _, l := range p.Limits {
		full := l.fullRefill()
		if full == 0 {
			return 0
		}

		ttl = max(ttl, full)
	}

	return ttl
}
