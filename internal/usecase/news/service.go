// Package news implements the read-side operations over stored news:
// listing, semantic search, similar-item lookup, trending, and stats.
package news

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cgast/embird/internal/domain/entity"
	"github.com/cgast/embird/internal/index"
	"github.com/cgast/embird/internal/repository"
)

// searchMinSimilarity is the floor below which search hits are noise.
const searchMinSimilarity = 0.5

// sourceFilterFanout widens the candidate set when a source filter will
// discard most hits afterwards.
const sourceFilterFanout = 5

// ErrNoEmbedding indicates a similar-items lookup against an item that
// was never embedded.
var ErrNoEmbedding = errors.New("news: item has no embedding")

// QueryEmbedder vectorizes search queries.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Result is one scored search or similarity hit.
type Result struct {
	Item       *entity.NewsItem
	Similarity float64
}

// Stats is the aggregate view served by the stats endpoint.
type Stats struct {
	Repo            *repository.NewsStats
	IndexSize       int
	IndexRebuiltAt  time.Time
	Snapshot        *SnapshotInfo
	TimelineHours   int
	ActiveWindowHrs int
}

// SnapshotInfo is the cluster snapshot metadata surfaced in stats.
type SnapshotInfo struct {
	Hours         int
	MinSimilarity float64
	ArticleCount  int
	ClusterCount  int
	GeneratedAt   time.Time
}

// Service answers read queries.
type Service struct {
	news      repository.NewsRepository
	snapshots repository.SnapshotRepository
	idx       *index.Index
	embedder  QueryEmbedder

	visualizationHours int
	minSimilarity      float64
}

func NewService(
	news repository.NewsRepository,
	snapshots repository.SnapshotRepository,
	idx *index.Index,
	embedder QueryEmbedder,
	visualizationHours int,
	minSimilarity float64,
) *Service {
	return &Service{
		news:               news,
		snapshots:          snapshots,
		idx:                idx,
		embedder:           embedder,
		visualizationHours: visualizationHours,
		minSimilarity:      minSimilarity,
	}
}

// List returns stored items, newest sightings first.
func (s *Service) List(ctx context.Context, sourceURL string, limit, offset int) ([]*entity.NewsItem, error) {
	return s.news.List(ctx, repository.NewsFilter{
		SourceURL: sourceURL,
		Limit:     limit,
		Offset:    offset,
	})
}

// Get returns one item by id.
func (s *Service) Get(ctx context.Context, id int64) (*entity.NewsItem, error) {
	return s.news.Get(ctx, id)
}

// Trending returns the most re-sighted items of the window.
func (s *Service) Trending(ctx context.Context, hours, limit int) ([]*entity.NewsItem, error) {
	return s.news.Trending(ctx, hours, limit)
}

// Search embeds the query and runs a similarity search. The in-memory
// index serves the hot path; when it is empty (cold start, before the
// first rebuild) the database's cosine operator answers instead.
func (s *Service) Search(ctx context.Context, query, sourceURL string, limit int) ([]Result, error) {
	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w", err)
	}

	k := limit
	if sourceURL != "" {
		k = limit * sourceFilterFanout
	}

	var results []Result
	if s.idx.Size() > 0 {
		results, err = s.searchIndex(ctx, vec, k)
	} else {
		results, err = s.searchDatabase(ctx, vec, k)
	}
	if err != nil {
		return nil, err
	}

	if sourceURL != "" {
		filtered := results[:0]
		for _, r := range results {
			if r.Item.SourceURL == sourceURL {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *Service) searchIndex(ctx context.Context, vec []float32, k int) ([]Result, error) {
	hits, err := s.idx.SearchKNN(vec, k, searchMinSimilarity)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return s.hydrate(ctx, hits)
}

func (s *Service) searchDatabase(ctx context.Context, vec []float32, k int) ([]Result, error) {
	scored, err := s.news.SearchByCosine(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	results := make([]Result, 0, len(scored))
	for _, sc := range scored {
		if sc.Similarity < searchMinSimilarity {
			continue
		}
		results = append(results, Result{Item: sc.Item, Similarity: sc.Similarity})
	}
	return results, nil
}

// Similar returns the nearest neighbors of a stored item, the item
// itself excluded.
func (s *Service) Similar(ctx context.Context, id int64, limit int) ([]Result, error) {
	item, err := s.news.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Embedding == nil {
		return nil, ErrNoEmbedding
	}

	// One extra so the item itself can be dropped from its own result.
	hits, err := s.idx.SearchKNN(item.Embedding, limit+1, 0)
	if err != nil {
		return nil, fmt.Errorf("similar: %w", err)
	}

	trimmed := hits[:0]
	for _, h := range hits {
		if h.ID != id {
			trimmed = append(trimmed, h)
		}
	}
	if len(trimmed) > limit {
		trimmed = trimmed[:limit]
	}
	return s.hydrate(ctx, trimmed)
}

// hydrate loads the items behind the hits, preserving hit order.
func (s *Service) hydrate(ctx context.Context, hits []index.Hit) ([]Result, error) {
	if len(hits) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
	}

	items, err := s.news.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate: %w", err)
	}
	byID := make(map[int64]*entity.NewsItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		if item, ok := byID[h.ID]; ok {
			results = append(results, Result{Item: item, Similarity: h.Similarity})
		}
	}
	return results, nil
}

// Stats aggregates the database counters with index and snapshot state.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	const timelineHours = 48
	const activeHours = 24

	repoStats, err := s.news.Stats(ctx, timelineHours, activeHours)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}

	out := &Stats{
		Repo:            repoStats,
		IndexSize:       s.idx.Size(),
		IndexRebuiltAt:  s.idx.LastRebuilt(),
		TimelineHours:   timelineHours,
		ActiveWindowHrs: activeHours,
	}

	snap, err := s.snapshots.LatestClusterSnapshot(ctx, s.visualizationHours, s.minSimilarity)
	switch {
	case err == nil:
		out.Snapshot = &SnapshotInfo{
			Hours:         snap.Hours,
			MinSimilarity: snap.MinSimilarity,
			ArticleCount:  snap.ArticleCount,
			ClusterCount:  len(snap.Clusters),
			GeneratedAt:   snap.GeneratedAt,
		}
	case errors.Is(err, repository.ErrNotFound):
		// No snapshot yet; stats still serve.
	default:
		return nil, fmt.Errorf("stats: snapshot: %w", err)
	}
	return out, nil
}
