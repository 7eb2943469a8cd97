package repository

import (
	"context"
	"time"

	"github.com/cgast/embird/internal/domain/entity"
)

// UpsertResult reports whether an upsert inserted a new row or bumped an
// existing one.
type UpsertResult struct {
	ID       int64
	Inserted bool
}

// NewsFilter narrows paginated news listings.
type NewsFilter struct {
	SourceURL string
	Limit     int
	Offset    int
}

// ScoredNews pairs a news item with a cosine similarity score.
type ScoredNews struct {
	Item       *entity.NewsItem
	Similarity float64
}

// SourceCount is one row of the per-source breakdown in the stats view.
type SourceCount struct {
	SourceName string
	SourceURL  string
	Count      int
}

// HourlyCount is one bucket of the ingestion timeline.
type HourlyCount struct {
	Hour  time.Time
	Count int
}

// LifespanBucket is one bucket of the item lifespan histogram, keyed by a
// human-readable range label.
type LifespanBucket struct {
	Label string
	Count int
}

// NewsStats aggregates the counters behind the stats view. NewestItem is
// the newest first_seen_at ever recorded; OldestInWindow is the oldest
// last_seen_at still inside the active window. Either is nil on an empty
// table or window.
type NewsStats struct {
	TotalItems     int
	TotalHits      int
	ActiveItems    int
	UniqueSources  int
	TrendingCount  int
	AvgHitCount    float64
	NewestItem     *time.Time
	OldestInWindow *time.Time
	Hourly         []HourlyCount
	Lifespans      []LifespanBucket
	TopSources     []SourceCount
}

// NewsRepository persists news items and their embeddings.
type NewsRepository interface {
	// UpsertByURL inserts the item or, when the URL is already known,
	// increments hit_count and refreshes last_seen_at without touching
	// the stored content or embedding.
	UpsertByURL(ctx context.Context, item *entity.NewsItem) (*UpsertResult, error)

	// TouchByURL bumps hit_count and last_seen_at for an existing URL
	// and reports whether a row matched. The crawler calls this first so
	// re-sighted items are never re-fetched or re-embedded.
	TouchByURL(ctx context.Context, url string, seenAt time.Time) (bool, error)

	// Get returns a single item by ID, embedding included.
	Get(ctx context.Context, id int64) (*entity.NewsItem, error)

	// GetByIDs returns the items for the given IDs, embedding excluded.
	// Missing IDs are silently skipped.
	GetByIDs(ctx context.Context, ids []int64) ([]*entity.NewsItem, error)

	// List returns items ordered by last_seen_at descending, optionally
	// filtered by source URL.
	List(ctx context.Context, f NewsFilter) ([]*entity.NewsItem, error)

	// ListInWindow returns id and embedding for every item whose
	// last_seen_at falls within the past `hours` hours and that has an
	// embedding, ordered by ascending id.
	ListInWindow(ctx context.Context, hours int) ([]*entity.NewsItem, error)

	// Trending returns items seen within the window ordered by hit_count
	// descending, then last_seen_at descending.
	Trending(ctx context.Context, hours, limit int) ([]*entity.NewsItem, error)

	// SearchByCosine runs a cosine-distance search in the database. Used
	// as the fallback path when the in-memory index is empty.
	SearchByCosine(ctx context.Context, embedding []float32, limit int) ([]ScoredNews, error)

	// DeleteOlderThan removes items whose last_seen_at is before the
	// cutoff and returns how many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// DeleteOverflow keeps at most maxItems rows, removing the ones with
	// the oldest last_seen_at first, and returns how many were removed.
	DeleteOverflow(ctx context.Context, maxItems int) (int64, error)

	// Stats aggregates the counters for the stats view over the given
	// trailing windows.
	Stats(ctx context.Context, timelineHours, activeHours int) (*NewsStats, error)
}
