package container

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/shortlink/internal/cache"
	"github.com/serroba/shortlink/internal/shortener"
	"github.com/serroba/shortlink/internal/store"
	"go.uber.org/zap"
)

var errRedisNotConfigured = errors.New("redis is not configured")

const (
	startupTimeout = 5 * time.Second
	probeTimeout   = 2 * time.Second
)

// LoggerPackage provides the application logger.
func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		options := do.MustInvoke[*Options](i)

		if options.LogFormat == "json" {
			return zap.NewProduction()
		}

		return zap.NewDevelopment()
	})
}

// RedisConnection owns the optional Redis client. Client is nil when no
// address is configured.
type RedisConnection struct {
	Client *redis.Client

	once     sync.Once
	pingErr error
}

// Universal returns the client as a redis.UniversalClient, or an untyped
// nil when Redis is not configured.
func (r *RedisConnection) Universal() redis.UniversalClient {
	if r.Client == nil {
		return nil
	}

	return r.Client
}

// Reachable pings Redis on the first call and returns that result from then
// on, so every component started from this connection agrees on whether
// Redis is in use.
func (r *RedisConnection) Reachable() error {
	r.once.Do(func() {
		if r.Client == nil {
			r.pingErr = errRedisNotConfigured

			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		defer cancel()

		r.pingErr = r.Client.Ping(ctx).Err()
	})

	return r.pingErr
}

// Shutdown closes the client.
func (r *RedisConnection) Shutdown() error {
	if r.Client == nil {
		return nil
	}

	return r.Client.Close()
}

// RedisPackage provides the Redis connection shared by the cache tier,
// the event transport and the health check.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*RedisConnection, error) {
		options := do.MustInvoke[*Options](i)

		if options.RedisAddr == "" {
			return &RedisConnection{}, nil
		}

		return &RedisConnection{
			Client: redis.NewClient(&redis.Options{
				Addr:         options.RedisAddr,
				DialTimeout:  2 * time.Second,
				ReadTimeout:  time.Second,
				WriteTimeout: time.Second,
			}),
		}, nil
	})
}

// PostgresConnection owns the optional connection pool. Pool is nil when no
// database URL is configured.
type PostgresConnection struct {
	Pool *pgxpool.Pool
}

// Shutdown closes the pool.
func (p *PostgresConnection) Shutdown() error {
	if p.Pool != nil {
		p.Pool.Close()
	}

	return nil
}

// PostgresPackage provides the database pool. A configured but unreachable
// database fails startup.
func PostgresPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*PostgresConnection, error) {
		options := do.MustInvoke[*Options](i)

		if options.DatabaseURL == "" {
			return &PostgresConnection{}, nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()

		pool, err := pgxpool.New(ctx, options.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()

			return nil, fmt.Errorf("ping postgres: %w", err)
		}

		return &PostgresConnection{Pool: pool}, nil
	})
}

// RepositoryPackage provides the mapping repository: PostgreSQL when a pool
// is available, otherwise an in-memory store.
func RepositoryPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (shortener.Repository, error) {
		conn := do.MustInvoke[*PostgresConnection](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if conn.Pool == nil {
			logger.Warn("database is not configured, mappings are kept in memory")

			return store.NewMemoryStore(), nil
		}

		pg := store.NewPostgresStore(conn.Pool)

		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()

		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}

		return pg, nil
	})
}

// CachePackage provides the two-tier cache. The tier layout follows the
// connection's startup ping.
func CachePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*cache.Cache, error) {
		conn := do.MustInvoke[*RedisConnection](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if conn.Client == nil {
			return cache.Layout(nil, nil, logger), nil
		}

		return cache.Layout(conn.Universal(), conn.Reachable(), logger), nil
	})
}
