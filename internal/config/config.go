package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	infraconfig "fxconvert-service/internal/infrastructure/config"
)

type Config struct {
	// Common
	Env      string
	LogLevel string
	// API
	Port            string
	Storage         string
	DatabaseURL     string
	PGMaxConns      int
	PGMinConns      int
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	// RateLimitPerMin caps /api/v1 requests per client IP; 0 disables the limiter.
	RateLimitPerMin int
	SlowRequest     time.Duration
	// Provider
	Provider        string
	CurrencyAPIBase string
	CurrencyAPIKey  string
	UpstreamTimeout time.Duration
	UpstreamRetries int
	// Rate cache
	RateCacheBackend string
	RateCacheTTL     time.Duration
	// Redis (rate cache, idempotency)
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	IdempotencyBackend string
	IdempotencyTTL     time.Duration
	// Kafka
	KafkaBrokers []string
	KafkaTopic   string
	// Worker
	WarmInterval time.Duration
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func msDef(key string, def time.Duration) time.Duration {
	ms := atoiDef(os.Getenv(key), int(def/time.Millisecond))
	if ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load reads environment variables and applies defaults.
func Load() Config {
	return Config{
		Env:                getEnv("ENV", "local"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Port:               getEnv("PORT", infraconfig.DefaultHTTPPort),
		Storage:            getEnv("STORAGE", "pg"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		PGMaxConns:         atoiDef(getEnv("PG_MAX_CONNS", ""), infraconfig.DefaultPGMaxConns),
		PGMinConns:         atoiDef(getEnv("PG_MIN_CONNS", ""), infraconfig.DefaultPGMinConns),
		RequestTimeout:     msDef("REQUEST_TIMEOUT_MS", infraconfig.DefaultRequestTimeout),
		ShutdownTimeout:    msDef("SHUTDOWN_TIMEOUT_MS", infraconfig.DefaultShutdownTimeout),
		RateLimitPerMin:    atoiDef(getEnv("RATE_LIMIT_PER_MIN", ""), infraconfig.DefaultRateLimitPerMin),
		SlowRequest:        msDef("SLOW_REQUEST_MS", infraconfig.DefaultSlowRequest),
		Provider:           getEnv("PROVIDER", "fake"),
		CurrencyAPIBase:    getEnv("CURRENCY_API_BASE", "https://api.currencyapi.com/v3"),
		CurrencyAPIKey:     getEnv("CURRENCY_API_KEY", ""),
		UpstreamTimeout:    msDef("UPSTREAM_TIMEOUT_MS", infraconfig.DefaultUpstreamTimeout),
		UpstreamRetries:    atoiDef(getEnv("UPSTREAM_MAX_RETRIES", "3"), infraconfig.DefaultMaxRetries),
		RateCacheBackend:   getEnv("RATE_CACHE_BACKEND", "memory"),
		RateCacheTTL:       msDef("RATE_CACHE_TTL_MS", infraconfig.DefaultRateCacheTTL),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            atoiDef(getEnv("REDIS_DB", "0"), 0),
		IdempotencyBackend: getEnv("IDEMPOTENCY_BACKEND", "none"),
		IdempotencyTTL:     msDef("IDEMPOTENCY_TTL_MS", infraconfig.DefaultIdempotencyTTL),
		KafkaBrokers:       splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:         getEnv("KAFKA_TOPIC", infraconfig.DefaultKafkaTopic),
		WarmInterval:       msDef("WARM_INTERVAL_MS", infraconfig.DefaultWarmInterval),
	}
}

// Validate reports settings that cannot produce a working process.
func (c Config) Validate() error {
	var errs []error
	switch c.Provider {
	case "fake":
	case "currencyapi":
		if strings.TrimSpace(c.CurrencyAPIKey) == "" {
			errs = append(errs, errors.New("CURRENCY_API_KEY is required when PROVIDER=currencyapi"))
		}
	default:
		errs = append(errs, errors.New("PROVIDER must be currencyapi or fake"))
	}
	switch c.Storage {
	case "memory":
	case "pg":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORAGE=pg"))
		}
	default:
		errs = append(errs, errors.New("STORAGE must be pg or memory"))
	}
	if c.RateCacheBackend != "redis" && c.RateCacheBackend != "memory" {
		errs = append(errs, errors.New("RATE_CACHE_BACKEND must be redis or memory"))
	}
	if c.IdempotencyBackend != "redis" && c.IdempotencyBackend != "none" {
		errs = append(errs, errors.New("IDEMPOTENCY_BACKEND must be redis or none"))
	}
	if c.PGMaxConns < 0 || c.PGMinConns < 0 {
		errs = append(errs, errors.New("PG_MAX_CONNS and PG_MIN_CONNS must not be negative"))
	} else if c.PGMaxConns > 0 && c.PGMinConns > c.PGMaxConns {
		errs = append(errs, errors.New("PG_MIN_CONNS must not exceed PG_MAX_CONNS"))
	}
	if c.RateLimitPerMin < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MIN must not be negative"))
	}
	if c.UpstreamRetries < 0 {
		errs = append(errs, errors.New("UPSTREAM_MAX_RETRIES must not be negative"))
	}
	return errors.Join(errs...)
}
