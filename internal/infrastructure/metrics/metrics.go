package metrics

import (
	"time"

	"fxconvert-service/internal/application"
	"fxconvert-service/internal/infrastructure/httpx"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	_ application.Observer  = (*Metrics)(nil)
	_ httpx.AttemptObserver = (*Metrics)(nil)
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	CacheLookupsTotal *prometheus.CounterVec
	UpstreamAttempts  *prometheus.CounterVec
	UpstreamDuration  *prometheus.HistogramVec
	ConversionsTotal  *prometheus.CounterVec
	WarmedRatesTotal  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CacheLookupsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fxconvert_rate_cache_lookups_total",
			Help: "Rate cache lookups by result",
		}, []string{"result"}),
		UpstreamAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fxconvert_upstream_attempts_total",
			Help: "Upstream rate provider attempts by outcome (status code or error)",
		}, []string{"outcome"}),
		UpstreamDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fxconvert_upstream_duration_seconds",
			Help:    "Duration of single upstream attempts",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"outcome"}),
		ConversionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fxconvert_conversions_total",
			Help: "Conversions by outcome (ok or error kind)",
		}, []string{"outcome"}),
		WarmedRatesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fxconvert_warmed_rates_total",
			Help: "Rates written to the cache by the warmer, by base currency",
		}, []string{"base"}),
	}
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ConversionDone(outcome string) {
	if m == nil {
		return
	}
	m.ConversionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) UpstreamAttempt(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamAttempts.WithLabelValues(outcome).Inc()
	m.UpstreamDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) RatesWarmed(base string, n int) {
	if m == nil {
		return
	}
	m.WarmedRatesTotal.WithLabelValues(base).Add(float64(n))
}
