// Package news provides the HTTP handlers for the /api/news endpoints:
// listing, semantic search, trending, similar articles, the cluster and
// projection views, and corpus statistics.
package news

import (
	"net/http"
	"strconv"
	"time"

	"github.com/cgast/embird/internal/domain/entity"
	newsUC "github.com/cgast/embird/internal/usecase/news"
)

// DTO is the JSON shape of one news item.
type DTO struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Summary    string    `json:"summary"`
	URL        string    `json:"url"`
	SourceURL  string    `json:"source_url"`
	SourceName string    `json:"source_name"`
	HitCount   int       `json:"hit_count"`
	FirstSeen  time.Time `json:"first_seen_at"`
	LastSeen   time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ScoredDTO is a news item with its similarity score, as returned by
// search and similar-article lookups.
type ScoredDTO struct {
	DTO
	Similarity float64 `json:"similarity"`
}

func toDTO(item *entity.NewsItem) DTO {
	return DTO{
		ID:         item.ID,
		Title:      item.Title,
		Summary:    item.Summary,
		URL:        item.URL,
		SourceURL:  item.SourceURL,
		SourceName: item.SourceName,
		HitCount:   item.HitCount,
		FirstSeen:  item.FirstSeen,
		LastSeen:   item.LastSeen,
		CreatedAt:  item.CreatedAt,
		UpdatedAt:  item.UpdatedAt,
	}
}

func toDTOs(items []*entity.NewsItem) []DTO {
	out := make([]DTO, 0, len(items))
	for _, it := range items {
		out = append(out, toDTO(it))
	}
	return out
}

func toScoredDTOs(results []newsUC.Result) []ScoredDTO {
	out := make([]ScoredDTO, 0, len(results))
	for _, r := range results {
		out = append(out, ScoredDTO{DTO: toDTO(r.Item), Similarity: r.Similarity})
	}
	return out
}

// ClusterDTO is one node of the cluster tree as served over HTTP.
type ClusterDTO struct {
	Name        string                  `json:"name"`
	Similarity  float64                 `json:"similarity"`
	Articles    []entity.ClusterArticle `json:"articles"`
	Subclusters []ClusterDTO            `json:"subclusters,omitempty"`
}

func toClusterDTO(node entity.ClusterNode) ClusterDTO {
	out := ClusterDTO{
		Name:       node.Label,
		Similarity: node.Similarity,
		Articles:   node.Articles,
	}
	for _, sub := range node.Subclusters {
		out.Subclusters = append(out.Subclusters, toClusterDTO(sub))
	}
	return out
}

// queryInt parses an integer query parameter with a default and an
// inclusive range; ok is false when the value is malformed or out of
// range.
func queryInt(r *http.Request, name string, def, min, max int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min || v > max {
		return 0, false
	}
	return v, true
}
