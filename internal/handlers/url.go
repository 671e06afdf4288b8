package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlink/internal/ratelimit"
	"github.com/serroba/shortlink/internal/shortener"
	"go.uber.org/zap"
)

// HeaderRateLimitRemaining carries the tokens left for the caller.
const HeaderRateLimitRemaining = "X-RateLimit-Remaining"

// Shortener is the application service behind the URL routes.
type Shortener interface {
	Create(ctx context.Context, req shortener.CreateRequest) (*shortener.CreateResult, error)
	Redirect(ctx context.Context, code shortener.Code, meta shortener.ClientMeta) (string, error)
	Stats(ctx context.Context, code shortener.Code) (*shortener.Stats, error)
	List(ctx context.Context, limit int) ([]shortener.ListedMapping, error)
	CacheStats(ctx context.Context) shortener.CacheStats
	ClearCache(ctx context.Context) int64
	RemainingTokens(identity string, class ratelimit.Class) int64
	RetryAfter(identity string, class ratelimit.Class) time.Duration
}

// URLHandler handles URL shortening operations.
type URLHandler struct {
	service Shortener
	logger  *zap.Logger
}

// NewURLHandler creates a new URL handler.
func NewURLHandler(service Shortener, logger *zap.Logger) *URLHandler {
	return &URLHandler{
		service: service,
		logger:  logger,
	}
}

func (h *URLHandler) CreateShortURL(ctx context.Context, req *CreateShortURLRequest) (*CreateShortURLResponse, error) {
	result, err := h.service.Create(ctx, shortener.CreateRequest{
		URL:        req.Body.URL,
		CustomCode: req.Body.CustomCode,
		ExpiresAt:  req.Body.ExpiresAt,
	})
	if err != nil {
		return nil, h.toHTTPError(ctx, err, ratelimit.ClassCreate)
	}

	resp := &CreateShortURLResponse{}
	resp.Location = result.ShortURL
	resp.Body.OriginalURL = result.OriginalURL
	resp.Body.ShortURL = result.ShortURL
	resp.Body.ShortCode = string(result.Code)

	return resp, nil
}

func (h *URLHandler) RedirectToURL(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	meta := RequestMetaFromContext(ctx)

	target, err := h.service.Redirect(ctx, shortener.Code(req.Code), meta.ClientMeta())
	if err != nil {
		return nil, h.toHTTPError(ctx, err, ratelimit.ClassRedirect)
	}

	return &RedirectResponse{
		Status:   http.StatusMovedPermanently,
		Location: target,
	}, nil
}

func (h *URLHandler) GetStats(ctx context.Context, req *StatsRequest) (*StatsResponse, error) {
	stats, err := h.service.Stats(ctx, shortener.Code(req.Code))
	if err != nil {
		return nil, h.toHTTPError(ctx, err, "")
	}

	resp := &StatsResponse{}
	resp.Body.ShortCode = string(stats.Code)
	resp.Body.OriginalURL = stats.OriginalURL
	resp.Body.CreatedAt = stats.CreatedAt
	resp.Body.ExpiresAt = stats.ExpiresAt
	resp.Body.TotalClicks = stats.TotalClicks
	resp.Body.CachedClicks = stats.CachedClicks

	resp.Body.RecentClicks = make([]RecentClickBody, 0, len(stats.RecentClicks))
	for _, c := range stats.RecentClicks {
		resp.Body.RecentClicks = append(resp.Body.RecentClicks, RecentClickBody{
			ClickedAt:  c.ClickedAt,
			IPAddress:  c.IPAddress,
			Referrer:   c.Referrer,
			DeviceType: c.DeviceType,
		})
	}

	return resp, nil
}

func (h *URLHandler) ListURLs(ctx context.Context, req *ListURLsRequest) (*ListURLsResponse, error) {
	mappings, err := h.service.List(ctx, req.Limit)
	if err != nil {
		return nil, h.toHTTPError(ctx, err, "")
	}

	resp := &ListURLsResponse{Body: make([]ListedURLBody, 0, len(mappings))}
	for _, m := range mappings {
		resp.Body = append(resp.Body, ListedURLBody{
			ID:          m.ID,
			OriginalURL: m.OriginalURL,
			ShortCode:   string(m.Code),
			ShortURL:    m.ShortURL,
			CreatedAt:   m.CreatedAt,
			ExpiresAt:   m.ExpiresAt,
			TotalClicks: m.TotalClicks,
		})
	}

	return resp, nil
}

func (h *URLHandler) GetCacheStats(ctx context.Context, _ *struct{}) (*CacheStatsResponse, error) {
	stats := h.service.CacheStats(ctx)

	resp := &CacheStatsResponse{}
	resp.Body.CacheType = stats.Tier
	resp.Body.CachedURLs = stats.CachedMappings
	resp.Body.ClickCounters = stats.ClickCounters

	return resp, nil
}

func (h *URLHandler) ClearCache(ctx context.Context, _ *struct{}) (*CacheClearResponse, error) {
	removed := h.service.ClearCache(ctx)
	h.logger.Info("cache cleared", zap.Int64("removed", removed))

	resp := &CacheClearResponse{}
	resp.Body.Removed = removed

	return resp, nil
}

func (h *URLHandler) GetRateLimit(ctx context.Context, req *RateLimitRequest) (*RateLimitResponse, error) {
	meta := RequestMetaFromContext(ctx)
	class := ratelimit.Class(req.Class)

	resp := &RateLimitResponse{}
	resp.Body.Class = string(class)
	resp.Body.Remaining = h.service.RemainingTokens(meta.ClientMeta().Identity(), class)

	return resp, nil
}

// toHTTPError maps service errors onto HTTP status errors. class names the
// bucket consulted for the request, used to describe a rate limit rejection.
func (h *URLHandler) toHTTPError(ctx context.Context, err error, class ratelimit.Class) error {
	switch {
	case errors.Is(err, shortener.ErrInvalidURL),
		errors.Is(err, shortener.ErrInvalidCustomCode),
		errors.Is(err, shortener.ErrInvalidExpiry):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, shortener.ErrCodeInUse):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, shortener.ErrCodeNotFound):
		return huma.Error404NotFound("short url not found")
	case errors.Is(err, shortener.ErrExpired):
		return huma.Error410Gone("short url has expired")
	case errors.Is(err, shortener.ErrRateLimited):
		return h.rateLimited(ctx, class)
	case errors.Is(err, shortener.ErrExhaustedAttempts):
		return huma.Error500InternalServerError("unable to allocate a short code, try again later")
	default:
		h.logger.Error("request failed", zap.Error(err))

		return huma.Error500InternalServerError("internal server error")
	}
}

func (h *URLHandler) rateLimited(ctx context.Context, class ratelimit.Class) error {
	identity := RequestMetaFromContext(ctx).ClientMeta().Identity()

	return huma.ErrorWithHeaders(
		huma.Error429TooManyRequests("rate limit exceeded"),
		RateLimitHeaders(h.service.RemainingTokens(identity, class), h.service.RetryAfter(identity, class)),
	)
}

// RateLimitHeaders builds the headers sent with a rejected request.
func RateLimitHeaders(remaining int64, retryAfter time.Duration) http.Header {
	headers := http.Header{}
	if remaining != math.MaxInt64 {
		headers.Set(HeaderRateLimitRemaining, strconv.FormatInt(remaining, 10))
	}

	if retryAfter > 0 {
		headers.Set("Retry-After", strconv.FormatInt(int64(math.Ceil(retryAfter.Seconds())), 10))
	}

	return headers
}
