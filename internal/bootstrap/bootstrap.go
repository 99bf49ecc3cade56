package bootstrap

import (
	"context"
	"net/http"

	"fxconvert-service/internal/application"
	"fxconvert-service/internal/config"
	httpserver "fxconvert-service/internal/infrastructure/http"
	"fxconvert-service/internal/infrastructure/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// cleanups runs registered funcs in reverse order, like deferred calls.
type cleanups []func()

func (c *cleanups) add(fn func()) { *c = append(*c, fn) }

func (c cleanups) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

// core is the part of the graph shared by the API and the worker.
type core struct {
	log     *zap.Logger
	metrics *metrics.Metrics
	reg     *prometheus.Registry
	redis   *redis.Client
	conv    *application.ConversionService
}

func initCore(ctx context.Context, cfg config.Config, cl *cleanups) (*core, error) {
	log := ProvideLogger()
	m, reg := ProvideMetrics()

	client, closeRedis, err := ProvideRedisClient(ctx, log, cfg)
	if err != nil {
		return nil, err
	}
	cl.add(closeRedis)

	fetcher, err := ProvideRateFetcher(cfg, log, m)
	if err != nil {
		return nil, err
	}
	cache := ProvideRateCache(client, cfg)
	return &core{
		log:     log,
		metrics: m,
		reg:     reg,
		redis:   client,
		conv:    ProvideConversionService(cache, fetcher, cfg, log, m),
	}, nil
}

// InitAPI builds the HTTP handler and everything behind it. The returned cleanup
// releases connections in reverse order of creation.
func InitAPI(ctx context.Context, cfg config.Config) (http.Handler, func(), error) {
	var cl cleanups
	c, err := initCore(ctx, cfg, &cl)
	if err != nil {
		cl.run()
		return nil, func() {}, err
	}

	db, closeDB, err := ProvideDB(ctx, c.log, cfg)
	if err != nil {
		cl.run()
		return nil, func() {}, err
	}
	cl.add(closeDB)

	pub, closePub := ProvidePublisher(cfg, c.log)
	cl.add(closePub)

	idem := ProvideIdempotency(c.redis, cfg)
	txs := ProvideTransactionService(c.conv, ProvideRepos(db), idem, pub, c.log)

	srv := httpserver.NewServer(c.conv, txs)
	srv.SetReadyCheck(ProvideReadyCheck(db, c.redis))
	srv.SetMetricsHandler(promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}))
	srv.SetRequestTimeout(cfg.RequestTimeout)
	srv.SetRateLimit(cfg.RateLimitPerMin)
	srv.SetSlowRequestThreshold(cfg.SlowRequest)
	return httpserver.NewRouter(srv), cl.run, nil
}

// InitWorker builds the rate warmer. It only needs the rate cache and the fetcher.
func InitWorker(ctx context.Context, cfg config.Config) (application.Worker, func(), error) {
	var cl cleanups
	c, err := initCore(ctx, cfg, &cl)
	if err != nil {
		cl.run()
		return nil, func() {}, err
	}
	if cfg.RateCacheBackend != "redis" {
		c.log.Warn("rate warmer is filling a process-local cache; set RATE_CACHE_BACKEND=redis to share it with the API")
	}
	return ProvideWarmer(c.conv, cfg, c.log, c.metrics), cl.run, nil
}
