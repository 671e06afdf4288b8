package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache is the two-tier cache used by the redirect path.
type Cache struct {
	primary  Tier // nil when the distributed tier was unavailable at startup
	fallback Tier
	logger   *zap.Logger
}

// New creates a cache. primary may be nil, in which case every call goes to fallback.
func New(primary, fallback Tier, logger *zap.Logger) *Cache {
	return &Cache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// Probe decides the tier layout once at startup: the Redis tier is used as
// primary only if the client answers a ping within timeout.
func Probe(ctx context.Context, client redis.UniversalClient, timeout time.Duration, logger *zap.Logger) *Cache {
	if client == nil {
		return Layout(nil, nil, logger)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return Layout(client, client.Ping(ctx).Err(), logger)
}

// Layout builds the cache from a ping already made: pingErr is its result.
// A nil client or a failed ping runs the cache on the local tier alone.
func Layout(client redis.UniversalClient, pingErr error, logger *zap.Logger) *Cache {
	fallback := NewLocalTier(DefaultCleanupInterval)

	if client == nil {
		logger.Warn("redis is not configured, using in-memory cache (not suitable for multiple instances)")

		return New(nil, fallback, logger)
	}

	if pingErr != nil {
		logger.Warn("redis is not available, using in-memory cache (not suitable for multiple instances)",
			zap.Error(pingErr),
		)

		return New(nil, fallback, logger)
	}

	logger.Info("using redis cache with in-memory fallback")

	return New(NewRedisTier(client), fallback, logger)
}

// Primary returns the name of the tier serving reads.
func (c *Cache) Primary() string {
	if c.primary == nil {
		return c.fallback.Name()
	}

	return c.primary.Name()
}

// Get returns the value for key. A primary miss is a miss; only a primary
// error consults the fallback tier.
func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	if c.primary != nil {
		value, found, err := c.primary.Get(ctx, key)
		if err == nil {
			return value, found
		}

		c.degraded("get", key, err)
	}

	value, found, err := c.fallback.Get(ctx, key)
	if err != nil {
		c.logger.Warn("fallback cache get failed", zap.String("key", key), zap.Error(err))

		return "", false
	}

	return value, found
}

// Set stores value under key for ttl.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if c.primary != nil {
		err := c.primary.Set(ctx, key, value, ttl)
		if err == nil {
			return
		}

		c.degraded("set", key, err)
	}

	if err := c.fallback.Set(ctx, key, value, ttl); err != nil {
		c.logger.Warn("fallback cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate removes key from both tiers, so a recovered primary cannot be
// shadowed by a stale fallback entry or the reverse.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	if c.primary != nil {
		if err := c.primary.Delete(ctx, key); err != nil {
			c.degraded("invalidate", key, err)
		}
	}

	if err := c.fallback.Delete(ctx, key); err != nil {
		c.logger.Warn("fallback cache invalidate failed", zap.String("key", key), zap.Error(err))
	}
}

// IncrementCounter adds one to the counter at key and returns the new value.
// Counters never expire.
func (c *Cache) IncrementCounter(ctx context.Context, key string) int64 {
	if c.primary != nil {
		n, err := c.primary.Incr(ctx, key)
		if err == nil {
			return n
		}

		c.degraded("increment", key, err)
	}

	n, err := c.fallback.Incr(ctx, key)
	if err != nil {
		c.logger.Warn("fallback cache increment failed", zap.String("key", key), zap.Error(err))

		return 0
	}

	return n
}

// Counter returns the current value of the counter at key, zero if unset.
func (c *Cache) Counter(ctx context.Context, key string) int64 {
	if c.primary != nil {
		n, err := c.primary.Counter(ctx, key)
		if err == nil {
			return n
		}

		c.degraded("counter", key, err)
	}

	n, err := c.fallback.Counter(ctx, key)
	if err != nil {
		c.logger.Warn("fallback cache counter read failed", zap.String("key", key), zap.Error(err))

		return 0
	}

	return n
}

// CountKeys returns how many keys under prefix the tier serving reads holds.
func (c *Cache) CountKeys(ctx context.Context, prefix string) int64 {
	if c.primary != nil {
		n, err := c.primary.Count(ctx, prefix)
		if err == nil {
			return n
		}

		c.degraded("count", prefix, err)
	}

	n, err := c.fallback.Count(ctx, prefix)
	if err != nil {
		c.logger.Warn("fallback cache count failed", zap.String("prefix", prefix), zap.Error(err))

		return 0
	}

	return n
}

// ClearKeys removes every key under prefix from both tiers and returns how
// many were removed.
func (c *Cache) ClearKeys(ctx context.Context, prefix string) int64 {
	var removed int64

	if c.primary != nil {
		n, err := c.primary.DeletePrefix(ctx, prefix)
		if err != nil {
			c.degraded("clear", prefix, err)
		}

		removed += n
	}

	n, err := c.fallback.DeletePrefix(ctx, prefix)
	if err != nil {
		c.logger.Warn("fallback cache clear failed", zap.String("prefix", prefix), zap.Error(err))
	}

	return removed + n
}

func (c *Cache) degraded(op, key string, err error) {
	c.logger.Warn("primary cache tier failed, using fallback",
		zap.String("op", op),
		zap.String("tier", c.primary.Name()),
		zap.String("key", key),
		zap.Error(err),
	)
}
