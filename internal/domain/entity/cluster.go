package entity

import "time"

// ClusterArticle is the per-article payload embedded in a cluster
// snapshot. The snapshot is self-contained so the read path never joins
// back to the news table.
type ClusterArticle struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	URL       string    `json:"url"`
	SourceURL string    `json:"source_url"`
	HitCount  int       `json:"hit_count"`
	FirstSeen time.Time `json:"first_seen_at"`
	LastSeen  time.Time `json:"last_seen_at"`
}

// ClusterNode is one node of the hierarchical cluster tree. Subclusters
// is nil for leaves; when non-nil its nodes partition further at a
// tighter similarity threshold.
type ClusterNode struct {
	Label       string           `json:"label"`
	Similarity  float64          `json:"similarity"`
	Articles    []ClusterArticle `json:"articles"`
	Subclusters []ClusterNode    `json:"subclusters"`
}

// Size returns the number of articles directly in this node.
func (c *ClusterNode) Size() int {
	return len(c.Articles)
}

// ClusterSnapshot is a persisted clustering result for one
// (hours, min_similarity) parameter pair.
type ClusterSnapshot struct {
	ID            int64
	Hours         int
	MinSimilarity float64
	Clusters      []ClusterNode
	ArticleCount  int
	GeneratedAt   time.Time
}

// ProjectionPoint is one plotted point in the 2-D projection: either a
// news article or a preference vector.
type ProjectionPoint struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url,omitempty"`
	SourceURL   string    `json:"source_url,omitempty"`
	Color       string    `json:"color,omitempty"`
	ClusterID   *int      `json:"cluster_id"`
	ClusterName string    `json:"cluster_name,omitempty"`
	Opacity     float64   `json:"opacity"`
	LastSeen    time.Time `json:"last_seen_at,omitempty"`
}

// Projection point types.
const (
	PointTypeArticle    = "news_item"
	PointTypePreference = "preference_vector"
)

// UMAPSnapshot is a persisted 2-D projection for one
// (hours, min_similarity) parameter pair.
type UMAPSnapshot struct {
	ID            int64
	Hours         int
	MinSimilarity float64
	Points        []ProjectionPoint
	GeneratedAt   time.Time
}
