package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"fxconvert-service/internal/application"
	"fxconvert-service/internal/config"
	"fxconvert-service/internal/domain"
	"fxconvert-service/internal/infrastructure/httpx"
	kafkapub "fxconvert-service/internal/infrastructure/kafka"
	"fxconvert-service/internal/infrastructure/logx"
	"fxconvert-service/internal/infrastructure/memory"
	"fxconvert-service/internal/infrastructure/metrics"
	"fxconvert-service/internal/infrastructure/pg"
	"fxconvert-service/internal/infrastructure/provider"
	redisstore "fxconvert-service/internal/infrastructure/redis"
	"fxconvert-service/internal/infrastructure/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrMissingDBURL = errors.New("DATABASE_URL is required for STORAGE=pg")

// fakeRate is what PROVIDER=fake answers for every pair.
var fakeRate = decimal.RequireFromString("1.2345")

func ProvideLogger() *zap.Logger { return logx.L() }

func ProvideConfig() config.Config { return config.Load() }

// ProvideMetrics registers the service collectors plus the Go and process collectors
// on a fresh registry.
func ProvideMetrics() (*metrics.Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return metrics.New(reg), reg
}

// ProvideDB returns a nil DB unless STORAGE=pg.
func ProvideDB(ctx context.Context, log *zap.Logger, cfg config.Config) (*pg.DB, func(), error) {
	if cfg.Storage != "pg" {
		return nil, func() {}, nil
	}
	if cfg.DatabaseURL == "" {
		return nil, func() {}, ErrMissingDBURL
	}
	db, err := pg.Connect(ctx, cfg.DatabaseURL, pg.PoolOptions{
		MaxConns: int32(cfg.PGMaxConns),
		MinConns: int32(cfg.PGMinConns),
	})
	if err != nil {
		return nil, func() {}, err
	}
	if err := pg.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, func() {}, err
	}
	cleanup := func() {
		log.Info("closing pg")
		db.Close()
	}
	return db, cleanup, nil
}

type Repos struct {
	Transactions application.TransactionRepo
	UoW          application.UnitOfWork
}

func ProvideRepos(db *pg.DB) Repos {
	if db == nil {
		return Repos{Transactions: memory.NewTransactionRepo(), UoW: application.NoopUoW{}}
	}
	return Repos{
		Transactions: pg.NewTransactionRepo(db),
		UoW:          &pg.UnitOfWork{Pool: db.Pool},
	}
}

// ProvideRedisClient connects only when some backend asks for redis.
func ProvideRedisClient(ctx context.Context, log *zap.Logger, cfg config.Config) (*redis.Client, func(), error) {
	if cfg.RateCacheBackend != "redis" && cfg.IdempotencyBackend != "redis" {
		return nil, func() {}, nil
	}
	client, err := redisstore.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, func() {}, err
	}
	cleanup := func() {
		log.Info("closing redis")
		_ = client.Close()
	}
	return client, cleanup, nil
}

func ProvideRateCache(client *redis.Client, cfg config.Config) application.RateCache {
	if cfg.RateCacheBackend == "redis" && client != nil {
		return redisstore.NewRateCache(client)
	}
	return memory.NewRateCache()
}

func ProvideIdempotency(client *redis.Client, cfg config.Config) application.IdempotencyStore {
	if cfg.IdempotencyBackend == "redis" && client != nil {
		return redisstore.New(client, cfg.IdempotencyTTL)
	}
	return application.NoopIdempotency{}
}

func ProvideRateFetcher(cfg config.Config, log *zap.Logger, m *metrics.Metrics) (application.RateFetcher, error) {
	switch cfg.Provider {
	case "currencyapi":
		policy := httpx.DefaultRetryPolicy()
		policy.MaxRetries = uint64(cfg.UpstreamRetries)
		client := &httpx.Client{
			HTTP:     &http.Client{Timeout: cfg.UpstreamTimeout},
			Policy:   policy,
			Log:      log,
			Observer: m,
		}
		return provider.NewCurrencyAPIProvider(cfg.CurrencyAPIBase, cfg.CurrencyAPIKey, cfg.UpstreamTimeout, client, log)
	case "fake", "":
		log.Warn("using fake rate provider", zap.String("rate", fakeRate.String()))
		return provider.NewFake(fakeRate), nil
	default:
		return nil, fmt.Errorf("unsupported PROVIDER=%q", cfg.Provider)
	}
}

// ProvidePublisher falls back to a no-op publisher when no brokers are configured.
func ProvidePublisher(cfg config.Config, log *zap.Logger) (application.EventPublisher, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		return application.NoopPublisher{}, func() {}
	}
	p := kafkapub.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	cleanup := func() {
		log.Info("closing kafka writer")
		if err := p.Close(); err != nil {
			log.Warn("kafka writer close failed", zap.Error(err))
		}
	}
	return p, cleanup
}

func ProvideConversionService(cache application.RateCache, fetcher application.RateFetcher, cfg config.Config, log *zap.Logger, m *metrics.Metrics) *application.ConversionService {
	return application.NewConversionService(cache, fetcher,
		application.WithRateTTL(cfg.RateCacheTTL),
		application.WithObserver(m),
		application.WithLogger(log),
	)
}

func ProvideTransactionService(conv *application.ConversionService, r Repos, idem application.IdempotencyStore, pub application.EventPublisher, log *zap.Logger) *application.TransactionService {
	return application.NewTransactionService(conv, r.Transactions,
		application.WithUnitOfWork(r.UoW),
		application.WithIdempotency(idem),
		application.WithPublisher(pub),
		application.WithTxLogger(log),
	)
}

// ProvideReadyCheck pings every backing store the process depends on.
func ProvideReadyCheck(db *pg.DB, client *redis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if db != nil {
			if err := db.Ping(ctx); err != nil {
				return fmt.Errorf("pg: %w", err)
			}
		}
		if client != nil {
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	}
}

func ProvideWarmer(conv *application.ConversionService, cfg config.Config, log *zap.Logger, m *metrics.Metrics) application.Worker {
	return &worker.RateWarmer{
		Svc:      conv,
		Bases:    domain.SupportedCodes(),
		Every:    cfg.WarmInterval,
		Timeout:  cfg.RequestTimeout,
		Recorder: m,
		Log:      log,
	}
}
