package container

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/samber/do"
	"github.com/serroba/shortlink/internal/cache"
	"github.com/serroba/shortlink/internal/handlers"
	"github.com/serroba/shortlink/internal/health"
	"github.com/serroba/shortlink/internal/middleware"
	"github.com/serroba/shortlink/internal/ratelimit"
	"github.com/serroba/shortlink/internal/shortener"
	"github.com/serroba/shortlink/internal/store"
	"go.uber.org/zap"
)

// HTTPPackage provides the router and the Huma API with every route
// registered. Invoking huma.API performs the registration.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		router := chi.NewMux()
		router.Use(chimiddleware.Recoverer)

		return router, nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		router := do.MustInvoke[*chi.Mux](i)
		logger := do.MustInvoke[*zap.Logger](i)
		limiter := do.MustInvoke[*ratelimit.Limiter](i)
		service := do.MustInvoke[*shortener.Service](i)
		tiers := do.MustInvoke[*cache.Cache](i)
		redisConn := do.MustInvoke[*RedisConnection](i)
		pgConn := do.MustInvoke[*PostgresConnection](i)

		api := humachi.New(router, huma.DefaultConfig("URL Shortener", "1.0.0"))
		api.UseMiddleware(
			middleware.RequestMeta(api),
			middleware.RateLimiter(api, limiter, logger),
		)

		handlers.RegisterRoutes(api, handlers.NewURLHandler(service, logger))

		var redisChecker, postgresChecker health.Checker
		if client := redisConn.Universal(); client != nil {
			redisChecker = health.NewRedisChecker(client)
		}

		if pgConn.Pool != nil {
			postgresChecker = store.NewPostgresStore(pgConn.Pool)
		}

		health.RegisterRoutes(api, health.NewHandler(tiers.Primary()).
			Add("redis", redisChecker).
			Add("postgres", postgresChecker))

		return api, nil
	})
}
