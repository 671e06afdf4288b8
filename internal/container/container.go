package container

import (
	"fmt"
	"strings"
	"time"

	"github.com/serroba/shortlink/internal/ratelimit"
)

// Options configures the server. humacli also reads every field from the
// matching SERVICE_* environment variable.
type Options struct {
	Port          int    `default:"8888"           help:"Port to listen on"                                      short:"p"`
	BaseURL       string `help:"Public base URL of short links, defaults to http://localhost:<port>"`
	CodeLength    int    `default:"7"              help:"Length of generated short codes"                        short:"c"`
	RedisAddr     string `default:"localhost:6379" help:"Redis server address, empty to run without Redis"       short:"r"`
	DatabaseURL   string `help:"PostgreSQL connection URL, empty to keep mappings in memory"                     short:"d"`
	LogFormat     string `default:"console"        enum:"console,json"                                           help:"Log output format"`
	ConsumerGroup string `default:"analytics"      help:"Redis stream consumer group of the analytics consumers"`

	CacheTTLMinutes int `default:"1440" help:"How long a resolved mapping stays cached"`

	RateLimitEnabled      bool `default:"true" help:"Enforce per-client rate limits"`
	CreateCapacity        int  `default:"10"   help:"Burst size of the create class"`
	CreateRefillTokens    int  `default:"10"   help:"Tokens added to the create class every refill period"`
	CreateRefillMinutes   int  `default:"60"   help:"Refill period of the create class in minutes"`
	RedirectCapacity      int  `default:"100"  help:"Burst size of the redirect class"`
	RedirectRefillTokens  int  `default:"100"  help:"Tokens added to the redirect class every refill period"`
	RedirectRefillMinutes int  `default:"1"    help:"Refill period of the redirect class in minutes"`
}

// PublicBaseURL returns BaseURL, or the local address when it is unset.
func (o *Options) PublicBaseURL() string {
	if o.BaseURL != "" {
		return strings.TrimSuffix(o.BaseURL, "/")
	}

	return fmt.Sprintf("http://localhost:%d", o.Port)
}

// CacheTTL returns the cache lifetime of resolved mappings.
func (o *Options) CacheTTL() time.Duration {
	return time.Duration(o.CacheTTLMinutes) * time.Minute
}

// Policy builds the rate limit policy from the per-class options.
func (o *Options) Policy() ratelimit.Policy {
	return ratelimit.Policy{
		Enabled: o.RateLimitEnabled,
		Limits: map[ratelimit.Class]ratelimit.Limit{
			ratelimit.ClassCreate: {
				Capacity:     int64(o.CreateCapacity),
				RefillTokens: int64(o.CreateRefillTokens),
				RefillPeriod: time.Duration(o.CreateRefillMinutes) * time.Minute,
			},
			ratelimit.ClassRedirect: {
				Capacity:     int64(o.RedirectCapacity),
				RefillTokens: int64(o.RedirectRefillTokens),
				RefillPeriod: time.Duration(o.RedirectRefillMinutes) * time.Minute,
			},
		},
	}
}
