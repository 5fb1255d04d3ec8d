// Package metrics exposes Prometheus collectors for the admission
// controller, cache, and upstream client, modeled on jupiter's
// pkg/limits/metrics.go shape: a struct of collectors built with
// promauto and registered against a private registry so tests can
// construct independent instances.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector the proxy updates during request
// handling.
type Metrics struct {
	Registry *prometheus.Registry

	AdmissionActive      prometheus.Gauge
	AdmissionWaitSeconds prometheus.Histogram

	CacheEntries prometheus.Gauge
	CacheBytes   prometheus.Gauge
	CacheHits    prometheus.Counter
	CacheMisses  prometheus.Counter

	UpstreamFetchSeconds *prometheus.HistogramVec

	RequestsTotal *prometheus.CounterVec
}

// New builds a Metrics instance registered against a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		AdmissionActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cacheproxy_admission_active",
			Help: "Number of admission tokens currently held by in-flight handlers.",
		}),
		AdmissionWaitSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cacheproxy_admission_wait_seconds",
			Help:    "Time spent blocked acquiring an admission token.",
			Buckets: prometheus.DefBuckets,
		}),

		CacheEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cacheproxy_cache_entries",
			Help: "Number of entries currently held in the response cache.",
		}),
		CacheBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cacheproxy_cache_bytes",
			Help: "Total accounted bytes currently held in the response cache.",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "cacheproxy_cache_hits_total",
			Help: "Total number of cache lookups that hit.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "cacheproxy_cache_misses_total",
			Help: "Total number of cache lookups that missed.",
		}),

		UpstreamFetchSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cacheproxy_upstream_fetch_duration_seconds",
			Help:    "Upstream fetch latency by outcome.",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cacheproxy_requests_total",
			Help: "Total requests handled, labeled by the status code returned to the client.",
		}, []string{"status"}),
	}
}
