package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the fusion resolver and the
// risk scorer.
type Metrics struct {
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	fetchFailures  *prometheus.CounterVec
	staleServed    *prometheus.CounterVec
	fallbacksBuilt prometheus.Counter
	refreshRuns    prometheus.Counter
	riskLevels     *prometheus.CounterVec
}

// New creates and registers the fusion metrics.
func New() *Metrics {
	return &Metrics{
		cacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustcheck_cache_hits_total",
			Help: "Cache hits by source",
		}, []string{"source"}),
		cacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustcheck_cache_misses_total",
			Help: "Cache misses (absent or stale) by source",
		}, []string{"source"}),
		fetchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trustcheck_fetch_duration_seconds",
			Help:    "External fetch latency by source, including retries",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"source"}),
		fetchFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustcheck_fetch_failures_total",
			Help: "Exhausted fetches by source and error category",
		}, []string{"source", "category"}),
		staleServed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustcheck_stale_served_total",
			Help: "Resolutions served from a stale cache entry after a fetch failure",
		}, []string{"source"}),
		fallbacksBuilt: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustcheck_fallback_profiles_total",
			Help: "Synthetic fallback profiles built",
		}),
		refreshRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustcheck_bulk_refresh_runs_total",
			Help: "Bulk stale-refresh sweeps executed",
		}),
		riskLevels: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustcheck_risk_assessments_total",
			Help: "Risk assessments by resulting level",
		}, []string{"level"}),
	}
}

func (m *Metrics) RecordCacheHit(source string)  { m.cacheHits.WithLabelValues(source).Inc() }
func (m *Metrics) RecordCacheMiss(source string) { m.cacheMisses.WithLabelValues(source).Inc() }

func (m *Metrics) ObserveFetch(source string, d time.Duration) {
	m.fetchDuration.WithLabelValues(source).Observe(d.Seconds())
}

func (m *Metrics) RecordFetchFailure(source, category string) {
	m.fetchFailures.WithLabelValues(source, category).Inc()
}

func (m *Metrics) RecordStaleServed(source string) { m.staleServed.WithLabelValues(source).Inc() }
func (m *Metrics) RecordFallback()                 { m.fallbacksBuilt.Inc() }
func (m *Metrics) RecordRefreshRun()               { m.refreshRuns.Inc() }
func (m *Metrics) RecordRiskLevel(level string)    { m.riskLevels.WithLabelValues(level).Inc() }
