package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTier stores entries in Redis.
type RedisTier struct {
	client redis.UniversalClient
}

// NewRedisTier creates a Redis-backed tier.
func NewRedisTier(client redis.UniversalClient) *RedisTier {
	return &RedisTier{client: client}
}

func (r *RedisTier) Name() string {
	return "redis"
}

func (r *RedisTier) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}

		return "", false, err
	}

	return value, true, nil
}

func (r *RedisTier) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisTier) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisTier) Incr(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, key).Result()
}

func (r *RedisTier) Counter(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}

		return 0, err
	}

	return n, nil
}

const scanBatch = 100

func (r *RedisTier) Count(ctx context.Context, prefix string) (int64, error) {
	var n int64

	iter := r.client.Scan(ctx, 0, prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		n++
	}

	return n, iter.Err()
}

// DeletePrefix removes matching keys as SCAN yields them. Keys written
// concurrently may survive.
func (r *RedisTier) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	var n int64

	iter := r.client.Scan(ctx, 0, prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		removed, err := r.client.Del(ctx, iter.Val()).Result()
		if err != nil {
			return n, err
		}

		n += removed
	}

	return n, iter.Err()
}

// Ping checks Redis connectivity.
func (r *RedisTier) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

var _ Tier = (*RedisTier)(nil)
