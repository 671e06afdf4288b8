package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultCleanupInterval is how often expired local entries are purged.
const DefaultCleanupInterval = 10 * time.Minute

// LocalTier keeps entries in process memory. It is not shared between instances.
type LocalTier struct {
	entries *gocache.Cache
}

// NewLocalTier creates an in-memory tier that purges expired entries every
// cleanupInterval.
func NewLocalTier(cleanupInterval time.Duration) *LocalTier {
	return &LocalTier{
		entries: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

func (l *LocalTier) Name() string {
	return "memory"
}

func (l *LocalTier) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := l.entries.Get(key)
	if !ok {
		return "", false, nil
	}

	s, ok := v.(string)
	if !ok {
		return "", false, fmt.Errorf("key %q holds a counter, not a value", key)
	}

	return s, true, nil
}

func (l *LocalTier) Set(_ context.Context, key, value string, ttl time.Duration) error {
	l.entries.Set(key, value, expiration(ttl))

	return nil
}

func (l *LocalTier) Delete(_ context.Context, key string) error {
	l.entries.Delete(key)

	return nil
}

func (l *LocalTier) Incr(_ context.Context, key string) (int64, error) {
	// Add fails when the key exists, which is the common case.
	_ = l.entries.Add(key, int64(0), gocache.NoExpiration)

	return l.entries.IncrementInt64(key, 1)
}

func (l *LocalTier) Counter(_ context.Context, key string) (int64, error) {
	v, ok := l.entries.Get(key)
	if !ok {
		return 0, nil
	}

	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("key %q does not hold a counter", key)
	}

	return n, nil
}

func (l *LocalTier) Count(_ context.Context, prefix string) (int64, error) {
	var n int64

	for key := range l.entries.Items() {
		if strings.HasPrefix(key, prefix) {
			n++
		}
	}

	return n, nil
}

func (l *LocalTier) DeletePrefix(_ context.Context, prefix string) (int64, error) {
	var n int64

	for key := range l.entries.Items() {
		if strings.HasPrefix(key, prefix) {
			l.entries.Delete(key)
			n++
		}
	}

	return n, nil
}

// Len reports the number of entries, including expired ones not yet purged.
func (l *LocalTier) Len() int {
	return l.entries.ItemCount()
}

func expiration(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}

	return ttl
}

var _ Tier = (*LocalTier)(nil)
