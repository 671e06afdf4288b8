package shortener

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"time"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000

	recentClickLimit = 10
)

// ListedMapping is one entry of Service.List.
type ListedMapping struct {
	ID          int64
	OriginalURL string
	Code        Code
	ShortURL    string
	CreatedAt   time.Time
	ExpiresAt   *time.Time
	TotalClicks int64
}

// RecentClick is a click as reported by Stats. The client address is masked.
type RecentClick struct {
	ClickedAt  time.Time
	IPAddress  string
	Referrer   string
	DeviceType string
}

// CacheStats describes the cache contents.
type CacheStats struct {
	Tier           string
	CachedMappings int64
	ClickCounters  int64
}

// List returns the newest mappings with their stored click counts. A limit
// outside [1, MaxListLimit] falls back to DefaultListLimit.
func (s *Service) List(ctx context.Context, limit int) ([]ListedMapping, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = DefaultListLimit
	}

	summaries, err := s.store.ListMappings(ctx, limit)
	if err != nil {
		return nil, err
	}

	list := make([]ListedMapping, 0, len(summaries))
	for _, m := range summaries {
		list = append(list, ListedMapping{
			ID:          m.ID,
			OriginalURL: m.OriginalURL,
			Code:        m.Code,
			ShortURL:    s.shortURL(m.Code),
			CreatedAt:   m.CreatedAt,
			ExpiresAt:   m.ExpiresAt,
			TotalClicks: m.TotalClicks,
		})
	}

	return list, nil
}

// CacheStats counts cached mappings and click counters in the tier serving reads.
func (s *Service) CacheStats(ctx context.Context) CacheStats {
	return CacheStats{
		Tier:           s.cache.Primary(),
		CachedMappings: s.cache.CountKeys(ctx, mappingKeyPrefix),
		ClickCounters:  s.cache.CountKeys(ctx, clicksKeyPrefix),
	}
}

// ClearCache drops every cached mapping and click counter and returns how
// many keys were removed. Other keys sharing the cache are left alone.
func (s *Service) ClearCache(ctx context.Context) int64 {
	return s.cache.ClearKeys(ctx, mappingKeyPrefix) + s.cache.ClearKeys(ctx, clicksKeyPrefix)
}

func (s *Service) recentClicks(ctx context.Context, mappingID int64) ([]RecentClick, error) {
	clicks, err := s.store.RecentClicks(ctx, mappingID, recentClickLimit)
	if err != nil {
		return nil, err
	}

	recent := make([]RecentClick, 0, len(clicks))
	for _, c := range clicks {
		referrer := c.Referrer
		if referrer == "" {
			referrer = "direct"
		}

		recent = append(recent, RecentClick{
			ClickedAt:  c.ClickedAt,
			IPAddress:  MaskIP(c.IPAddress),
			Referrer:   referrer,
			DeviceType: DeviceType(c.UserAgent),
		})
	}

	return recent, nil
}

// MaskIP hides the host part of a client address: the last octet of an
// IPv4 address, everything past the /48 prefix of an IPv6 address.
func MaskIP(ip string) string {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "unknown"
	}

	addr = addr.Unmap()

	if addr.Is4() {
		o := addr.As4()

		return fmt.Sprintf("%d.%d.%d.xxx", o[0], o[1], o[2])
	}

	prefix := netip.PrefixFrom(addr, 48).Masked()

	return prefix.Addr().String() + "xxxx"
}

// DeviceType classifies a user agent as mobile, tablet, desktop or unknown.
func DeviceType(userAgent string) string {
	ua := strings.ToLower(userAgent)

	switch {
	case ua == "":
		return "unknown"
	case strings.Contains(ua, "ipad"), strings.Contains(ua, "tablet"):
		return "tablet"
	case strings.Contains(ua, "mobile"), strings.Contains(ua, "android"), strings.Contains(ua, "iphone"):
		return "mobile"
	case strings.Contains(ua, "windows"), strings.Contains(ua, "macintosh"), strings.Contains(ua, "linux"):
		return "desktop"
	default:
		return "unknown"
	}
}
