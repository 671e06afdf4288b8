package handlers

import "time"

// CreateShortURLRequest is the request body for creating a short URL.
type CreateShortURLRequest struct {
	Body struct {
		URL        string     `doc:"The URL to shorten"                           example:"https://example.com/very/long/path" json:"url"                  minLength:"1"`
		CustomCode string     `doc:"Optional custom short code"                   example:"my-link"                            json:"customCode,omitempty" required:"false"`
		ExpiresAt  *time.Time `doc:"Optional expiry, must lie in the future (RFC 3339)" json:"expiresAt,omitempty" required:"false"`
	}
}

// CreateShortURLResponse is the response for a successfully created short URL.
type CreateShortURLResponse struct {
	Location string `doc:"The short URL location" header:"Location"`
	Body     struct {
		OriginalURL string `doc:"The original URL"   example:"https://example.com/very/long/path" json:"originalUrl"`
		ShortURL    string `doc:"The full short URL" example:"http://localhost:8888/aB3xY9z"      json:"shortUrl"`
		ShortCode   string `doc:"The short code"     example:"aB3xY9z"                            json:"shortCode"`
	}
}

// RedirectRequest is the request for redirecting a short URL.
type RedirectRequest struct {
	Code string `doc:"The short code" example:"aB3xY9z" path:"code"`
}

// RedirectResponse sends the client to the original URL.
type RedirectResponse struct {
	Status   int
	Location string `header:"Location"`
}

// StatsRequest selects the mapping to report on.
type StatsRequest struct {
	Code string `doc:"The short code" example:"aB3xY9z" path:"code"`
}

// StatsResponse reports a mapping and its click counts.
type StatsResponse struct {
	Body struct {
		ShortCode    string            `json:"shortCode"`
		OriginalURL  string            `json:"originalUrl"`
		CreatedAt    time.Time         `json:"createdAt"`
		ExpiresAt    *time.Time        `json:"expiresAt,omitempty"`
		TotalClicks  int64             `doc:"Clicks persisted in the store"       json:"totalClicks"`
		CachedClicks int64             `doc:"Clicks counted in the cache counter" json:"cachedClicks"`
		RecentClicks []RecentClickBody `doc:"Latest clicks, newest first"         json:"recentClicks"`
	}
}

// RecentClickBody is one click in a stats report. The address is masked.
type RecentClickBody struct {
	ClickedAt  time.Time `json:"clickedAt"`
	IPAddress  string    `example:"203.0.113.xxx" json:"ipAddress"`
	Referrer   string    `example:"direct"        json:"referrer"`
	DeviceType string    `enum:"mobile,tablet,desktop,unknown" json:"deviceType"`
}

// ListURLsRequest bounds the listing.
type ListURLsRequest struct {
	Limit int `default:"100" doc:"Maximum number of mappings" maximum:"1000" minimum:"1" query:"limit"`
}

// ListedURLBody is one mapping in the listing.
type ListedURLBody struct {
	ID          int64      `json:"id"`
	OriginalURL string     `json:"originalUrl"`
	ShortCode   string     `json:"shortCode"`
	ShortURL    string     `json:"shortUrl"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	TotalClicks int64      `json:"totalClicks"`
}

// ListURLsResponse lists mappings, newest first.
type ListURLsResponse struct {
	Body []ListedURLBody
}

// CacheStatsResponse describes the cache contents.
type CacheStatsResponse struct {
	Body struct {
		CacheType     string `doc:"Tier serving reads" enum:"redis,memory" json:"cacheType"`
		CachedURLs    int64  `json:"cachedUrls"`
		ClickCounters int64  `json:"clickCounters"`
	}
}

// CacheClearResponse reports how many keys a clear removed.
type CacheClearResponse struct {
	Body struct {
		Removed int64 `json:"removed"`
	}
}

// RateLimitRequest selects the operation class to report on.
type RateLimitRequest struct {
	Class string `default:"redirect" doc:"Operation class" enum:"create,redirect" query:"class"`
}

// RateLimitResponse reports the caller's remaining tokens.
type RateLimitResponse struct {
	Body struct {
		Class     string `json:"class"`
		Remaining int64  `json:"remaining"`
	}
}
