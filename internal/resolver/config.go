package resolver

import "time"

// Config holds the resolver options spec.md §6 lists as recognized
// configuration. Populated by internal/config from environment variables.
type Config struct {
	CacheTTL                  time.Duration
	CacheStaleWhileRevalidate time.Duration
	MaxRetries                int
	InitialBackoff            time.Duration
	MaxBackoff                time.Duration
}

// DefaultConfig mirrors spec.md §6's defaults: 30s cache TTL, 3 retries,
// 100ms initial backoff.
func DefaultConfig() Config {
	return Config{
		CacheTTL:                  30 * time.Second,
		CacheStaleWhileRevalidate: 10 * time.Second,
		MaxRetries:                3,
		InitialBackoff:            100 * time.Millisecond,
		MaxBackoff:                2 * time.Second,
	}
}
