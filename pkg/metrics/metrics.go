// Package metrics defines the Prometheus metric collectors used across the
// engine and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the engine.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	DedupChecksTotal     *prometheus.CounterVec
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	FullLoadsTotal       *prometheus.CounterVec
	ContentCacheHits     prometheus.Counter
	QueryCacheHits       prometheus.Counter
	QueryCacheMisses     prometheus.Counter
	IndexedDocs          prometheus.Gauge
	IndexedTerms         prometheus.Gauge
	IndexRebuildsTotal   prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		DedupChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dedup_checks_total",
				Help: "Duplicate checks by outcome (unique, too_short, exact_duplicate, fuzzy_duplicate_prefix, semantic_duplicate).",
			},
			[]string{"outcome"},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Search queries by depth (fast, deep).",
			},
			[]string{"depth"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"cache_status"},
		),
		FullLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "full_content_loads_total",
				Help: "Full-content load attempts by status (loaded, failed).",
			},
			[]string{"status"},
		),
		ContentCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "content_cache_hits_total",
				Help: "Full-content cache hits.",
			},
		),
		QueryCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "query_cache_hits_total",
				Help: "Redis query-result cache hits.",
			},
		),
		QueryCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "query_cache_misses_total",
				Help: "Redis query-result cache misses.",
			},
		),
		IndexedDocs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "indexed_documents",
				Help: "Documents in the current index build.",
			},
		),
		IndexedTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "indexed_terms",
				Help: "Unique terms in the current index build.",
			},
		),
		IndexRebuildsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "index_rebuilds_total",
				Help: "Index rebuilds triggered by corpus changes.",
			},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.DedupChecksTotal,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.FullLoadsTotal,
		m.ContentCacheHits,
		m.QueryCacheHits,
		m.QueryCacheMisses,
		m.IndexedDocs,
		m.IndexedTerms,
		m.IndexRebuildsTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
