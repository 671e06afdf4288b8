package shortener

import (
	"time"

	"github.com/google/uuid"
)

// Code represents a short URL code.
type Code string

// Mapping is a persisted short code -> original URL association.
type Mapping struct {
	ID          int64
	OriginalURL string
	Code        Code
	CreatedAt   time.Time
	ExpiresAt   *time.Time // nil means the mapping never expires
}

// Expired reports whether the mapping has an expiry in the past relative to now.
func (m *Mapping) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && m.ExpiresAt.Before(now)
}

// ClickEvent is an immutable record of one successful redirect.
type ClickEvent struct {
	ID        uuid.UUID
	MappingID int64
	Code      Code
	ClickedAt time.Time
	IPAddress string
	UserAgent string
	Referrer  string
}

// ClientMeta describes the client issuing a redirect.
type ClientMeta struct {
	IP        string
	UserAgent string
	Referrer  string
}

// Identity returns the key used for per-client rate limiting.
func (m ClientMeta) Identity() string {
	if m.IP == "" {
		return "unknown"
	}

	return m.IP
}

// MappingSummary is a Mapping listed together with its stored click count.
type MappingSummary struct {
	Mapping
	TotalClicks int64
}
