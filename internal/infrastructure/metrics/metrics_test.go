package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.CacheLookup(true)
	m.CacheLookup(false)
	m.CacheLookup(false)
	m.ConversionDone("ok")
	m.UpstreamAttempt("503", 20*time.Millisecond)
	m.RatesWarmed("USD", 3)

	require.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("hit")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("miss")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ConversionsTotal.WithLabelValues("ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamAttempts.WithLabelValues("503")))
	require.Equal(t, 3.0, testutil.ToFloat64(m.WarmedRatesTotal.WithLabelValues("USD")))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.CacheLookup(true)
		m.ConversionDone("ok")
		m.UpstreamAttempt("200", time.Millisecond)
		m.RatesWarmed("EUR", 1)
	})
}
