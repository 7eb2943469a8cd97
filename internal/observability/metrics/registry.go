// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics track HTTP request patterns and performance
var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Crawl metrics track the ingestion pipeline
var (
	// NewsItemsTotal tracks total number of news items in the database
	NewsItemsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "news_items_total",
			Help: "Total number of news items in the database",
		},
	)

	// SourcesTotal tracks total number of registered crawl sources
	SourcesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sources_total",
			Help: "Total number of registered crawl sources",
		},
	)

	// ItemsDiscoveredTotal counts items discovered per source by outcome
	// (inserted, resighted, failed)
	ItemsDiscoveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawl_items_discovered_total",
			Help: "Total number of items discovered while crawling",
		},
		[]string{"source", "outcome"},
	)

	// SourceCrawlDuration measures time to crawl one source
	SourceCrawlDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crawl_source_duration_seconds",
			Help:    "Time taken to crawl one source",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"source_type"},
	)

	// SourceCrawlErrors counts per-source crawl failures
	SourceCrawlErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawl_source_errors_total",
			Help: "Total number of source crawl errors",
		},
		[]string{"source", "error_type"},
	)

	// RetentionDeletedTotal counts items removed by the retention sweep
	RetentionDeletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retention_deleted_total",
			Help: "Total number of news items removed by retention",
		},
		[]string{"reason"}, // reason: age, overflow
	)
)

// Embedding metrics track the embedding provider client
var (
	// EmbeddingRequestsTotal counts embedding API calls by result
	EmbeddingRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_requests_total",
			Help: "Total number of embedding API requests",
		},
		[]string{"result"}, // result: success, failure
	)

	// EmbeddingRequestDuration measures embedding API latency
	EmbeddingRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "embedding_request_duration_seconds",
			Help:    "Embedding API request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)
)

// Index and snapshot metrics track the vector index lifecycle
var (
	// IndexVectorsTotal tracks how many vectors the in-memory index holds
	IndexVectorsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "index_vectors_total",
			Help: "Number of vectors in the in-memory index",
		},
	)

	// IndexRebuildDuration measures time to rebuild the index
	IndexRebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "index_rebuild_duration_seconds",
			Help:    "Time taken to rebuild the vector index",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	// SnapshotBuildDuration measures time to build one snapshot by kind
	SnapshotBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snapshot_build_duration_seconds",
			Help:    "Time taken to build a visualization snapshot",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"kind"}, // kind: clusters, umap
	)

	// SnapshotBuildErrors counts snapshot build failures by kind
	SnapshotBuildErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_build_errors_total",
			Help: "Total number of snapshot build failures",
		},
		[]string{"kind"},
	)
)

// Database metrics track database performance
var (
	// DBQueryDuration measures database query duration by operation
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)
)

// RecordHTTPRequest records an HTTP request with its metadata
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordOperationDuration records the duration of a named database operation
func RecordOperationDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
