package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the aggregation core.
type Metrics struct {
	ProviderRequests *prometheus.CounterVec   // labels: provider, outcome={success,error,timeout}
	ProviderDuration *prometheus.HistogramVec // labels: provider
	ChainFallbacks   *prometheus.CounterVec   // labels: component; counts calls where the substitute was used

	CacheLookups *prometheus.CounterVec // labels: component, result={hit,miss}

	PublishAttempts *prometheus.CounterVec // labels: sink, outcome={success,error}
}

// NewMetrics creates and registers all aggregation metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ProviderRequests,
		m.ProviderDuration,
		m.ChainFallbacks,
		m.CacheLookups,
		m.PublishAttempts,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disaster_agg",
			Name:      "provider_requests_total",
			Help:      "External provider calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "disaster_agg",
			Name:      "provider_request_duration_seconds",
			Help:      "External provider call duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"provider"}),
		ChainFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disaster_agg",
			Name:      "chain_fallbacks_total",
			Help:      "Times every provider in a chain failed and substitute data was served.",
		}, []string{"component"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disaster_agg",
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by component and result.",
		}, []string{"component", "result"}),
		PublishAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disaster_agg",
			Name:      "publish_attempts_total",
			Help:      "Change notifications forwarded to publish sinks, by sink and outcome.",
		}, []string{"sink", "outcome"}),
	}
}
