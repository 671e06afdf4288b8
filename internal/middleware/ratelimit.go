package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlink/internal/handlers"
	"github.com/serroba/shortlink/internal/ratelimit"
	"go.uber.org/zap"
)

// Limiter is the token bucket limiter consulted by RateLimiter.
type Limiter interface {
	Allow(identity string, class ratelimit.Class) bool
	Remaining(identity string, class ratelimit.Class) int64
	RetryAfter(identity string, class ratelimit.Class) time.Duration
}

// RateLimiter returns a Huma middleware that charges one token from the
// class named in the operation's ratelimit.EndpointConfig. Operations
// without a config pass through untouched.
//
// Allowed requests carry the X-RateLimit-Remaining header; rejected ones get
// a 429 with X-RateLimit-Remaining and Retry-After.
func RateLimiter(api huma.API, limiter Limiter, logger *zap.Logger) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		cfg := ratelimit.GetEndpointConfig(ctx)
		if cfg == nil || cfg.Disabled || cfg.Class == "" {
			next(ctx)

			return
		}

		identity := ClientIP(ctx)
		if identity == "" {
			identity = "unknown"
		}

		if !limiter.Allow(identity, cfg.Class) {
			logger.Warn("rate limit exceeded",
				zap.String("path", operationPath(ctx)),
				zap.String("method", ctx.Method()),
				zap.String("class", string(cfg.Class)),
				zap.String("client_ip", identity),
			)

			headers := handlers.RateLimitHeaders(
				limiter.Remaining(identity, cfg.Class),
				limiter.RetryAfter(identity, cfg.Class),
			)
			for _, name := range []string{handlers.HeaderRateLimitRemaining, "Retry-After"} {
				if v := headers.Get(name); v != "" {
					ctx.SetHeader(name, v)
				}
			}

			_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests, "rate limit exceeded")

			return
		}

		if remaining := limiter.Remaining(identity, cfg.Class); remaining != math.MaxInt64 {
			ctx.SetHeader(handlers.HeaderRateLimitRemaining, strconv.FormatInt(remaining, 10))
		}

		next(ctx)
	}
}

// operationPath extracts the path from the operation, if available.
func operationPath(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil {
		return op.Path
	}

	return ""
}
