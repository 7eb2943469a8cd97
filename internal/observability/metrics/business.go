package metrics

import "time"

// Outcomes recorded by RecordItemDiscovered.
const (
	OutcomeInserted  = "inserted"
	OutcomeResighted = "resighted"
	OutcomeFailed    = "failed"
)

// RecordItemDiscovered records one discovered item and its outcome.
func RecordItemDiscovered(sourceName, outcome string) {
	ItemsDiscoveredTotal.WithLabelValues(sourceName, outcome).Inc()
}

// RecordSourceCrawl records the duration of one source crawl.
func RecordSourceCrawl(sourceType string, duration time.Duration) {
	SourceCrawlDuration.WithLabelValues(sourceType).Observe(duration.Seconds())
}

// RecordSourceCrawlError records a per-source crawl failure.
func RecordSourceCrawlError(sourceName, errorType string) {
	SourceCrawlErrors.WithLabelValues(sourceName, errorType).Inc()
}

// RecordRetentionDeleted records items removed by the retention sweep.
// Reason is "age" or "overflow".
func RecordRetentionDeleted(reason string, count int64) {
	if count > 0 {
		RetentionDeletedTotal.WithLabelValues(reason).Add(float64(count))
	}
}

// RecordEmbeddingRequest records one embedding API call.
func RecordEmbeddingRequest(success bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	EmbeddingRequestsTotal.WithLabelValues(result).Inc()
	EmbeddingRequestDuration.Observe(duration.Seconds())
}

// RecordIndexRebuild records an index rebuild and the resulting size.
func RecordIndexRebuild(vectors int, duration time.Duration) {
	IndexVectorsTotal.Set(float64(vectors))
	IndexRebuildDuration.Observe(duration.Seconds())
}

// RecordSnapshotBuild records a snapshot build by kind ("clusters" or
// "umap").
func RecordSnapshotBuild(kind string, duration time.Duration, err error) {
	if err != nil {
		SnapshotBuildErrors.WithLabelValues(kind).Inc()
		return
	}
	SnapshotBuildDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// UpdateNewsItemsTotal updates the news item gauge.
func UpdateNewsItemsTotal(count int) {
	NewsItemsTotal.Set(float64(count))
}

// UpdateSourcesTotal updates the source gauge.
func UpdateSourcesTotal(count int) {
	SourcesTotal.Set(float64(count))
}
