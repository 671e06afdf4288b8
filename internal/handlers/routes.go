package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlink/internal/ratelimit"
)

// RegisterRoutes registers all URL shortener routes with their rate limit classes.
func RegisterRoutes(api huma.API, urlHandler *URLHandler) {
	// Charged by the rate limit middleware.
	huma.Register(api, huma.Operation{
		OperationID:   "create-short-url",
		Method:        http.MethodPost,
		Path:          "/api/shorten",
		Summary:       "Create short URL",
		Description:   "Creates a shortened URL, reusing the existing code when the URL was shortened before.",
		Tags:          []string{"URLs"},
		DefaultStatus: http.StatusCreated,
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{Class: ratelimit.ClassCreate},
		},
	}, urlHandler.CreateShortURL)

	huma.Register(api, huma.Operation{
		OperationID: "get-stats",
		Method:      http.MethodGet,
		Path:        "/api/stats/{code}",
		Summary:     "Get short URL statistics",
		Tags:        []string{"URLs"},
	}, urlHandler.GetStats)

	huma.Register(api, huma.Operation{
		OperationID: "list-urls",
		Method:      http.MethodGet,
		Path:        "/api/urls",
		Summary:     "List short URLs",
		Description: "Lists the newest mappings with their stored click counts.",
		Tags:        []string{"URLs"},
	}, urlHandler.ListURLs)

	huma.Register(api, huma.Operation{
		OperationID: "get-cache-stats",
		Method:      http.MethodGet,
		Path:        "/api/admin/cache/stats",
		Summary:     "Get cache statistics",
		Tags:        []string{"Admin"},
	}, urlHandler.GetCacheStats)

	huma.Register(api, huma.Operation{
		OperationID: "clear-cache",
		Method:      http.MethodPost,
		Path:        "/api/admin/cache/clear",
		Summary:     "Clear cached mappings and click counters",
		Tags:        []string{"Admin"},
	}, urlHandler.ClearCache)

	huma.Register(api, huma.Operation{
		OperationID: "get-rate-limit",
		Method:      http.MethodGet,
		Path:        "/api/ratelimit",
		Summary:     "Get remaining rate limit tokens",
		Tags:        []string{"Rate limits"},
	}, urlHandler.GetRateLimit)

	// The redirect bucket is charged by the service before any lookup.
	huma.Register(api, huma.Operation{
		OperationID: "redirect",
		Method:      http.MethodGet,
		Path:        "/{code}",
		Summary:     "Redirect to original URL",
		Description: "Redirects to the original URL associated with the short code.",
		Tags:        []string{"URLs"},
		Errors:      []int{http.StatusNotFound, http.StatusGone, http.StatusTooManyRequests},
	}, urlHandler.RedirectToURL)
}
