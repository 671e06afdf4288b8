package health

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/redis/go-redis/v9"
)

const (
	StatusHealthy       = "healthy"
	StatusUnhealthy     = "unhealthy"
	StatusNotConfigured = "not configured"

	pingTimeout = 2 * time.Second
)

// Checker defines the interface for checking service health.
type Checker interface {
	Ping(ctx context.Context) error
}

// RedisChecker adapts a redis client to the Checker interface.
type RedisChecker struct {
	client redis.UniversalClient
}

// NewRedisChecker creates a new Redis health checker.
func NewRedisChecker(client redis.UniversalClient) *RedisChecker {
	return &RedisChecker{client: client}
}

// Ping checks Redis connectivity.
func (r *RedisChecker) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

type dependency struct {
	name    string
	checker Checker
}

// Handler handles health check operations.
type Handler struct {
	cacheTier    string
	dependencies []dependency
}

// NewHandler creates a health handler reporting cacheTier as the tier serving reads.
func NewHandler(cacheTier string) *Handler {
	return &Handler{cacheTier: cacheTier}
}

// Add registers a dependency. A nil checker is reported as not configured.
func (h *Handler) Add(name string, checker Checker) *Handler {
	h.dependencies = append(h.dependencies, dependency{name: name, checker: checker})

	return h
}

// Response is the response for health check endpoint.
type Response struct {
	Body struct {
		Status       string            `enum:"ok,degraded"             json:"status"`
		Cache        string            `doc:"Cache tier serving reads" json:"cache"`
		Dependencies map[string]string `json:"dependencies"`
	}
}

// Check performs a health check of the application and its dependencies.
func (h *Handler) Check(ctx context.Context, _ *struct{}) (*Response, error) {
	resp := &Response{}
	resp.Body.Status = "ok"
	resp.Body.Cache = h.cacheTier
	resp.Body.Dependencies = make(map[string]string, len(h.dependencies))

	for _, dep := range h.dependencies {
		if dep.checker == nil {
			resp.Body.Dependencies[dep.name] = StatusNotConfigured

			continue
		}

		if err := ping(ctx, dep.checker); err != nil {
			resp.Body.Dependencies[dep.name] = StatusUnhealthy
			resp.Body.Status = "degraded"
		} else {
			resp.Body.Dependencies[dep.name] = StatusHealthy
		}
	}

	return resp, nil
}

func ping(ctx context.Context, checker Checker) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	return checker.Ping(ctx)
}

// RegisterRoutes registers health check routes.
func RegisterRoutes(api huma.API, h *Handler) {
	huma.Get(api, "/health", h.Check)
}
