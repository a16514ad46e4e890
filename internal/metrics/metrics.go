// Package metrics defines Prometheus metrics for nexus.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nexus_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	EmbeddingRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_embedding_requests_total",
			Help: "Remote embedding calls by provider and result",
		},
		[]string{"provider", "result"},
	)

	EmbeddingFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_embedding_fallbacks_total",
			Help: "Embeddings served by the deterministic fallback, by reason",
		},
		[]string{"reason"},
	)

	EmbeddingCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_embedding_cache_total",
			Help: "Embedding cache lookups by result",
		},
		[]string{"result"},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nexus_websocket_connections",
			Help: "Active WebSocket connections",
		},
	)

	NodeCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nexus_nodes",
			Help: "Current node count",
		},
	)

	ConnectionBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nexus_connection_build_seconds",
			Help:    "Duration of full connection rebuilds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		},
	)

	ReviewsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_reviews_total",
			Help: "Reviews recorded by outcome",
		},
		[]string{"outcome"},
	)

	SnapshotSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_snapshot_saves_total",
			Help: "Snapshot saves by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		EmbeddingRequests, EmbeddingFallbacks, EmbeddingCache,
		WSConnections, NodeCount, ConnectionBuildDuration,
		ReviewsTotal, SnapshotSaves,
	)
}
