package config

import "time"

const (
	DefaultHTTPPort        = "8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultRequestTimeout  = 45 * time.Second
	DefaultUpstreamTimeout = 10 * time.Second
	DefaultMaxRetries      = 3
	DefaultRateCacheTTL    = 24 * time.Hour
	DefaultIdempotencyTTL  = 24 * time.Hour
	DefaultWarmInterval    = time.Hour
	DefaultPGMaxConns      = 5
	DefaultPGMinConns      = 1
	DefaultKafkaTopic      = "transactions.created"
	DefaultRateLimitPerMin = 100
	DefaultSlowRequest     = time.Second
)
