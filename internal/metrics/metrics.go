// Package metrics exposes Prometheus collectors for the backend.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the backend collectors. Each server owns its own registry so
// tests can create servers independently.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal     *prometheus.CounterVec
	RequestDurationMs *prometheus.HistogramVec
	CacheHitsTotal    prometheus.Counter
	CacheMissesTotal  prometheus.Counter
	SearchMatches     prometheus.Histogram
	PinOpsTotal       *prometheus.CounterVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "redlining_requests_total",
			Help: "Total number of API requests",
		}, []string{"endpoint", "status"}),
		RequestDurationMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "redlining_request_duration_ms",
			Help:    "Request duration in milliseconds",
			Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
		}, []string{"endpoint"}),
		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redlining_cache_hits_total",
			Help: "Total bounding box cache hits",
		}),
		CacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redlining_cache_misses_total",
			Help: "Total bounding box cache misses",
		}),
		SearchMatches: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "redlining_search_matches",
			Help:    "Number of features matched per keyword search",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500},
		}),
		PinOpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "redlining_pin_operations_total",
			Help: "Total pin store operations",
		}, []string{"op", "result"}),
	}

	m.Registry.MustRegister(
		m.RequestsTotal,
		m.RequestDurationMs,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.SearchMatches,
		m.PinOpsTotal,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
