package handlers

import (
	"context"

	"github.com/serroba/shortlink/internal/shortener"
)

type requestMetaKey struct{}

// RequestMeta holds HTTP request metadata for analytics and rate limiting.
type RequestMeta struct {
	ClientIP  string
	UserAgent string
	Referrer  string
}

// ContextWithRequestMeta adds request metadata to context.
func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFromContext extracts request metadata from context.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if v, ok := ctx.Value(requestMetaKey{}).(RequestMeta); ok {
		return v
	}

	return RequestMeta{}
}

// ClientMeta converts the request metadata into the shortener's client description.
func (m RequestMeta) ClientMeta() shortener.ClientMeta {
	return shortener.ClientMeta{
		IP:        m.ClientIP,
		UserAgent: m.UserAgent,
		Referrer:  m.Referrer,
	}
}
