package news

import (
	"net/http"
	"time"

	"github.com/cgast/embird/internal/handler/http/respond"
)

// StatsDTO is the JSON shape of the stats endpoint.
type StatsDTO struct {
	TotalItems     int           `json:"total_items"`
	TotalHits      int           `json:"total_hits"`
	ActiveItems    int           `json:"active_items"`
	UniqueSources  int           `json:"unique_sources"`
	TrendingCount  int           `json:"trending_count"`
	AvgHitCount    float64       `json:"avg_hit_count"`
	NewestItem     *time.Time    `json:"newest_item_at,omitempty"`
	OldestInWindow *time.Time    `json:"oldest_in_window_at,omitempty"`
	ActiveWindowH  int           `json:"active_window_hours"`
	TimelineHours  int           `json:"timeline_hours"`
	Hourly         []HourlyDTO   `json:"hourly"`
	Lifespans      []LifespanDTO `json:"lifespans"`
	TopSources     []SourceDTO   `json:"top_sources"`
	IndexSize      int           `json:"index_size"`
	IndexRebuiltAt *time.Time    `json:"index_rebuilt_at,omitempty"`
	Snapshot       *SnapshotDTO  `json:"cluster_snapshot,omitempty"`
}

// HourlyDTO is one bucket of the ingestion timeline.
type HourlyDTO struct {
	Hour  time.Time `json:"hour"`
	Count int       `json:"count"`
}

// LifespanDTO is one bucket of the item lifespan histogram.
type LifespanDTO struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// SourceDTO is one entry of the most productive sources list.
type SourceDTO struct {
	SourceName string `json:"source_name"`
	SourceURL  string `json:"source_url"`
	Count      int    `json:"count"`
}

// SnapshotDTO is the cluster snapshot metadata inside stats.
type SnapshotDTO struct {
	Hours         int       `json:"hours"`
	MinSimilarity float64   `json:"min_similarity"`
	ArticleCount  int       `json:"article_count"`
	ClusterCount  int       `json:"cluster_count"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// StatsHandler answers GET /api/news/stats.
type StatsHandler struct{ Svc Service }

func (h StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.Stats(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	out := StatsDTO{
		TotalItems:     stats.Repo.TotalItems,
		TotalHits:      stats.Repo.TotalHits,
		ActiveItems:    stats.Repo.ActiveItems,
		UniqueSources:  stats.Repo.UniqueSources,
		TrendingCount:  stats.Repo.TrendingCount,
		AvgHitCount:    stats.Repo.AvgHitCount,
		NewestItem:     stats.Repo.NewestItem,
		OldestInWindow: stats.Repo.OldestInWindow,
		ActiveWindowH:  stats.ActiveWindowHrs,
		TimelineHours:  stats.TimelineHours,
		Hourly:         make([]HourlyDTO, 0, len(stats.Repo.Hourly)),
		Lifespans:      make([]LifespanDTO, 0, len(stats.Repo.Lifespans)),
		TopSources:     make([]SourceDTO, 0, len(stats.Repo.TopSources)),
		IndexSize:      stats.IndexSize,
	}
	for _, b := range stats.Repo.Hourly {
		out.Hourly = append(out.Hourly, HourlyDTO{Hour: b.Hour, Count: b.Count})
	}
	for _, l := range stats.Repo.Lifespans {
		out.Lifespans = append(out.Lifespans, LifespanDTO{Label: l.Label, Count: l.Count})
	}
	for _, s := range stats.Repo.TopSources {
		out.TopSources = append(out.TopSources, SourceDTO{SourceName: s.SourceName, SourceURL: s.SourceURL, Count: s.Count})
	}
	if !stats.IndexRebuiltAt.IsZero() {
		t := stats.IndexRebuiltAt
		out.IndexRebuiltAt = &t
	}
	if stats.Snapshot != nil {
		out.Snapshot = &SnapshotDTO{
			Hours:         stats.Snapshot.Hours,
			MinSimilarity: stats.Snapshot.MinSimilarity,
			ArticleCount:  stats.Snapshot.ArticleCount,
			ClusterCount:  stats.Snapshot.ClusterCount,
			GeneratedAt:   stats.Snapshot.GeneratedAt,
		}
	}
	respond.JSON(w, http.StatusOK, out)
}
