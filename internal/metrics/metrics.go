// Package metrics defines Prometheus metrics for pathconvert.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pathconvert_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathconvert_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathconvert_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pathconvert_job_duration_seconds",
			Help:    "Job run time by type and outcome",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"type", "outcome"},
	)

	CollectionsSynced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathconvert_collections_synced_total",
			Help: "Catalog records processed by sync outcome",
		},
		[]string{"outcome"},
	)

	EmbeddingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathconvert_embeddings_total",
			Help: "Embedding generation results",
		},
		[]string{"result"},
	)

	EdgesBuilt = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pathconvert_edges_built_total",
			Help: "Recommendation edges written by graph builds",
		},
	)

	RecommendationCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathconvert_recommendation_cache_total",
			Help: "Recommendation cache lookups by result",
		},
		[]string{"result"},
	)

	EmbedderBreakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pathconvert_embedder_breaker_state",
			Help: "Embedder circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pathconvert_websocket_connections",
			Help: "Active WebSocket connections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		JobDuration, CollectionsSynced, EmbeddingsTotal, EdgesBuilt,
		RecommendationCache, EmbedderBreakerState, WSConnections,
	)
}
