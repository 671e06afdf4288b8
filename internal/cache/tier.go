// Package cache implements the two-tier short code lookup cache.
//
// A Cache composes an optional primary Tier (Redis, shared between
// instances) with a process-local fallback Tier. Any primary failure
// downgrades that single call to the fallback tier; callers never see
// tier errors. Running without the primary tier keeps a single instance
// fully functional but gives up cross-instance coherency.
package cache

import (
	"context"
	"time"
)

// Tier is one storage level of the cache. A ttl of zero stores without expiry.
type Tier interface {
	Name() string
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Incr(ctx context.Context, key string) (int64, error)
	Counter(ctx context.Context, key string) (int64, error)
	// Count and DeletePrefix act on every key starting with prefix.
	Count(ctx context.Context, prefix string) (int64, error)
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}
