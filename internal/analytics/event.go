package analytics

import "time"

const (
	TopicURLCreated = "url.created"
	TopicURLClicked = "url.clicked"
)

// URLCreatedEvent represents an event emitted when a URL is shortened.
type URLCreatedEvent struct {
	Code        string     `json:"code"`
	OriginalURL string     `json:"originalUrl"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

// URLClickedEvent represents one recorded redirect.
type URLClickedEvent struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	MappingID int64     `json:"mappingId"`
	ClickedAt time.Time `json:"clickedAt"`
	ClientIP  string    `json:"clientIp"`
	UserAgent string    `json:"userAgent,omitempty"`
	Referrer  string    `json:"referrer,omitempty"`
}
