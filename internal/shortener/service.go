package shortener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/messaging"
	"github.com/serroba/shortlink/internal/ratelimit"
	"go.uber.org/zap"
)

// DefaultCacheTTL is how long a mapping stays in the cache after warming.
const DefaultCacheTTL = 24 * time.Hour

const (
	mappingKeyPrefix = "url:mapping:"
	clicksKeyPrefix  = "url:clicks:"
)

// MappingKey is the cache key holding the cached mapping for code.
func MappingKey(code Code) string {
	return mappingKeyPrefix + string(code)
}

// ClicksKey is the cache key holding the click counter for code.
func ClicksKey(code Code) string {
	return clicksKeyPrefix + string(code)
}

// Cache is the lookup layer consulted before the repository.
// Implementations never return errors; a failing tier degrades silently.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
	Invalidate(ctx context.Context, key string)
	IncrementCounter(ctx context.Context, key string) int64
	Counter(ctx context.Context, key string) int64
	Primary() string
	CountKeys(ctx context.Context, prefix string) int64
	ClearKeys(ctx context.Context, prefix string) int64
}

// RateLimiter gates operations per client identity.
type RateLimiter interface {
	Allow(identity string, class ratelimit.Class) bool
	Remaining(identity string, class ratelimit.Class) int64
	RetryAfter(identity string, class ratelimit.Class) time.Duration
}

// Events are the downstream publishers notified after a create or a click.
// A nil publisher is skipped.
type Events struct {
	Created messaging.Publish[analytics.URLCreatedEvent]
	Clicked messaging.Publish[analytics.URLClickedEvent]
}

// ServiceConfig holds the scalar settings of the Service.
type ServiceConfig struct {
	BaseURL  string
	CacheTTL time.Duration
	Now      func() time.Time
}

// CreateRequest is the input of Service.Create.
type CreateRequest struct {
	URL        string
	CustomCode string
	ExpiresAt  *time.Time
}

// CreateResult is the output of Service.Create.
type CreateResult struct {
	OriginalURL string
	ShortURL    string
	Code        Code
}

// Stats summarizes a mapping and its recorded clicks.
type Stats struct {
	Code         Code
	OriginalURL  string
	CreatedAt    time.Time
	ExpiresAt    *time.Time
	TotalClicks  int64
	CachedClicks int64
	RecentClicks []RecentClick
}

// Service orchestrates short URL creation and redirects.
type Service struct {
	store     Repository
	generator *Generator
	cache     Cache
	limiter   RateLimiter
	events    Events
	baseURL   string
	cacheTTL  time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// NewService wires the orchestrator from its collaborators.
func NewService(
	store Repository,
	generator *Generator,
	cache Cache,
	limiter RateLimiter,
	events Events,
	cfg ServiceConfig,
	logger *zap.Logger,
) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Service{
		store:     store,
		generator: generator,
		cache:     cache,
		limiter:   limiter,
		events:    events,
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		cacheTTL:  cfg.CacheTTL,
		now:       cfg.Now,
		logger:    logger,
	}
}

// Create shortens req.URL. Repeated calls with the same URL return the
// mapping created first.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	existing, err := s.store.FindByOriginalURL(ctx, req.URL)
	if err == nil {
		s.warm(ctx, existing)
		s.logger.Info("returning existing short url",
			zap.String("code", string(existing.Code)),
			zap.String("url", existing.OriginalURL),
		)

		return s.result(existing), nil
	}

	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if err = ValidateURL(req.URL); err != nil {
		return nil, err
	}

	if req.ExpiresAt != nil && !req.ExpiresAt.After(s.now()) {
		return nil, fmt.Errorf("%w: expiresAt must be in the future", ErrInvalidExpiry)
	}

	var mapping *Mapping

	if strings.TrimSpace(req.CustomCode) != "" {
		mapping, err = s.createWithCustomCode(ctx, req)
	} else {
		mapping, err = s.createWithGeneratedCode(ctx, req)
	}

	if err != nil {
		return nil, err
	}

	s.warm(ctx, mapping)
	s.publishCreated(mapping)

	s.logger.Info("created short url",
		zap.String("code", string(mapping.Code)),
		zap.String("url", mapping.OriginalURL),
	)

	return s.result(mapping), nil
}

func (s *Service) createWithCustomCode(ctx context.Context, req CreateRequest) (*Mapping, error) {
	code, err := s.generator.ValidateCustomCode(ctx, req.CustomCode)
	if err != nil {
		return nil, err
	}

	mapping := s.newMapping(code, req)

	if err = s.store.Save(ctx, mapping); err != nil {
		if errors.Is(err, ErrDuplicateCode) {
			return nil, fmt.Errorf("%w: %q", ErrCodeInUse, code)
		}

		return nil, err
	}

	return mapping, nil
}

// createWithGeneratedCode retries when a concurrent writer claims the same
// code between the existence check and the insert. Existence checks and
// failed inserts draw from one attempt budget.
func (s *Service) createWithGeneratedCode(ctx context.Context, req CreateRequest) (*Mapping, error) {
	remaining := s.generator.MaxAttempts()

	for {
		code, used, err := s.generator.GenerateWithin(ctx, remaining)
		if err != nil {
			return nil, err
		}

		remaining -= used

		mapping := s.newMapping(code, req)

		err = s.store.Save(ctx, mapping)
		if err == nil {
			return mapping, nil
		}

		if !errors.Is(err, ErrDuplicateCode) {
			return nil, err
		}

		if remaining <= 0 {
			attempts := s.generator.MaxAttempts()
			s.logger.Error("failed to persist unique short code", zap.Int("attempts", attempts))

			return nil, fmt.Errorf("%w after %d attempts", ErrExhaustedAttempts, attempts)
		}

		s.logger.Warn("short code claimed concurrently, retrying", zap.String("code", string(code)))
	}
}

func (s *Service) newMapping(code Code, req CreateRequest) *Mapping {
	return &Mapping{
		OriginalURL: req.URL,
		Code:        code,
		CreatedAt:   s.now(),
		ExpiresAt:   req.ExpiresAt,
	}
}

func (s *Service) result(m *Mapping) *CreateResult {
	return &CreateResult{
		OriginalURL: m.OriginalURL,
		ShortURL:    s.shortURL(m.Code),
		Code:        m.Code,
	}
}

func (s *Service) shortURL(code Code) string {
	return fmt.Sprintf("%s/%s", s.baseURL, code)
}

// Redirect resolves code to its original URL and records the click.
func (s *Service) Redirect(ctx context.Context, code Code, meta ClientMeta) (string, error) {
	if !s.limiter.Allow(meta.Identity(), ratelimit.ClassRedirect) {
		s.logger.Warn("redirect rate limit exceeded", zap.String("client_ip", meta.IP))

		return "", ErrRateLimited
	}

	now := s.now()

	if cached, ok := s.lookup(ctx, code); ok {
		if cached.expired(now) {
			s.cache.Invalidate(ctx, MappingKey(code))

			return "", fmt.Errorf("%w: %q", ErrExpired, code)
		}

		s.recordClick(ctx, cached.ID, code, meta)

		return cached.URL, nil
	}

	mapping, err := s.store.FindByShortCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("%w: %q", ErrCodeNotFound, code)
		}

		return "", err
	}

	if mapping.Expired(now) {
		s.logger.Warn("attempted to access expired url", zap.String("code", string(code)))

		return "", fmt.Errorf("%w: %q", ErrExpired, code)
	}

	s.warm(ctx, mapping)
	s.recordClick(ctx, mapping.ID, code, meta)

	return mapping.OriginalURL, nil
}

// RemainingTokens reports how many operations of class the client may still perform.
func (s *Service) RemainingTokens(identity string, class ratelimit.Class) int64 {
	return s.limiter.Remaining(identity, class)
}

// RetryAfter reports how long the client must wait before class is allowed again.
func (s *Service) RetryAfter(identity string, class ratelimit.Class) time.Duration {
	return s.limiter.RetryAfter(identity, class)
}

// Stats returns the mapping for code together with its click counts.
func (s *Service) Stats(ctx context.Context, code Code) (*Stats, error) {
	mapping, err := s.store.FindByShortCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrCodeNotFound, code)
		}

		return nil, err
	}

	total, err := s.store.CountClicks(ctx, mapping.ID)
	if err != nil {
		return nil, err
	}

	recent, err := s.recentClicks(ctx, mapping.ID)
	if err != nil {
		return nil, err
	}

	return &Stats{
		Code:         mapping.Code,
		OriginalURL:  mapping.OriginalURL,
		CreatedAt:    mapping.CreatedAt,
		ExpiresAt:    mapping.ExpiresAt,
		TotalClicks:  total,
		CachedClicks: s.cache.Counter(ctx, ClicksKey(code)),
		RecentClicks: recent,
	}, nil
}

// cachedMapping is the cache representation of a Mapping.
type cachedMapping struct {
	ID        int64      `json:"id"`
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func (c *cachedMapping) expired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

func (s *Service) lookup(ctx context.Context, code Code) (*cachedMapping, bool) {
	raw, ok := s.cache.Get(ctx, MappingKey(code))
	if !ok {
		s.logger.Debug("cache miss", zap.String("code", string(code)))

		return nil, false
	}

	var cached cachedMapping
	if err := json.Unmarshal([]byte(raw), &cached); err != nil || cached.URL == "" {
		s.logger.Warn("discarding unreadable cache entry", zap.String("code", string(code)))
		s.cache.Invalidate(ctx, MappingKey(code))

		return nil, false
	}

	s.logger.Debug("cache hit", zap.String("code", string(code)))

	return &cached, true
}

// warm caches m for the configured TTL, shortened to its expiry if sooner.
func (s *Service) warm(ctx context.Context, m *Mapping) {
	ttl := s.cacheTTL

	if m.ExpiresAt != nil {
		if remaining := m.ExpiresAt.Sub(s.now()); remaining < ttl {
			ttl = remaining
		}
	}

	if ttl <= 0 {
		return
	}

	payload, err := json.Marshal(cachedMapping{ID: m.ID, URL: m.OriginalURL, ExpiresAt: m.ExpiresAt})
	if err != nil {
		s.logger.Error("failed to encode cache entry", zap.String("code", string(m.Code)), zap.Error(err))

		return
	}

	s.cache.Set(ctx, MappingKey(m.Code), string(payload), ttl)
}

func (s *Service) publishCreated(m *Mapping) {
	if s.events.Created == nil {
		return
	}

	event := &analytics.URLCreatedEvent{
		Code:        string(m.Code),
		OriginalURL: m.OriginalURL,
		CreatedAt:   m.CreatedAt,
		ExpiresAt:   m.ExpiresAt,
	}

	if err := s.events.Created(event); err != nil {
		s.logger.Error("failed to publish url created event",
			zap.String("code", event.Code),
			zap.Error(err),
		)
	}
}
