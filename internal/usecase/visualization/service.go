// Package visualization builds and serves the precomputed cluster and
// map views: it rebuilds the vector index over the recency window,
// derives the hierarchical cluster tree with labels, and projects the
// window into 2-D.
package visualization

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cgast/embird/internal/cluster"
	"github.com/cgast/embird/internal/domain/entity"
	"github.com/cgast/embird/internal/index"
	"github.com/cgast/embird/internal/observability/metrics"
	"github.com/cgast/embird/internal/projection"
	"github.com/cgast/embird/internal/repository"
)

// taggedClusters caps how many top-level clusters get ids in the map
// view; points in smaller clusters render untagged.
const taggedClusters = 20

// Opacity constants for the map view: fresh items render solid, day-old
// items fade out.
const (
	opacityFresh  = 0.8
	opacityStale  = 0.2
	freshAgeHours = 1.0
	staleAgeHours = 24.0
)

// Config holds the snapshot parameters.
type Config struct {
	Hours                int
	MinSimilarity        float64
	SubclusterEnabled    bool
	SubclusterSimilarity float64
}

// Service builds and serves visualization snapshots.
type Service struct {
	news      repository.NewsRepository
	prefs     repository.PreferenceRepository
	snapshots repository.SnapshotRepository
	idx       *index.Index
	engine    *cluster.Engine
	cfg       Config
	logger    *slog.Logger
}

func NewService(
	news repository.NewsRepository,
	prefs repository.PreferenceRepository,
	snapshots repository.SnapshotRepository,
	idx *index.Index,
	cfg Config,
	logger *slog.Logger,
) *Service {
	return &Service{
		news:      news,
		prefs:     prefs,
		snapshots: snapshots,
		idx:       idx,
		engine:    cluster.NewEngine(),
		cfg:       cfg,
		logger:    logger,
	}
}

// RebuildIndex reloads the index from the items seen within the window.
func (s *Service) RebuildIndex(ctx context.Context) error {
	start := time.Now()

	items, err := s.news.ListInWindow(ctx, s.cfg.Hours)
	if err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}

	entries := make([]index.Entry, 0, len(items))
	for _, it := range items {
		entries = append(entries, index.Entry{ID: it.ID, Vector: it.Embedding})
	}
	if err := s.idx.Rebuild(entries); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}

	metrics.RecordIndexRebuild(len(entries), time.Since(start))
	s.logger.Info("index rebuilt",
		slog.Int("vectors", len(entries)),
		slog.Int("window_hours", s.cfg.Hours),
		slog.Duration("took", time.Since(start)))
	return nil
}

// RunIndexRefresh rebuilds the index from the store on a fixed interval
// until the context is canceled. The serving process runs this so search
// keeps tracking rows the crawler writes between restarts.
func (s *Service) RunIndexRefresh(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RebuildIndex(ctx); err != nil {
				s.logger.Warn("scheduled index rebuild failed", slog.Any("error", err))
			}
		}
	}
}

// RefreshSnapshots recomputes and persists both snapshot kinds from the
// current index content.
func (s *Service) RefreshSnapshots(ctx context.Context) error {
	if _, err := s.buildAndSaveClusters(ctx); err != nil {
		return err
	}
	if _, err := s.buildAndSaveUMAP(ctx); err != nil {
		return err
	}
	return nil
}

// Clusters serves the cluster snapshot, computing and persisting one on
// a cache miss.
func (s *Service) Clusters(ctx context.Context) (*entity.ClusterSnapshot, error) {
	snap, err := s.snapshots.LatestClusterSnapshot(ctx, s.cfg.Hours, s.cfg.MinSimilarity)
	if err == nil {
		return upgradeLabels(snap), nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("clusters: %w", err)
	}
	return s.buildAndSaveClusters(ctx)
}

// UMAP serves the projection snapshot, computing and persisting one on
// a cache miss.
func (s *Service) UMAP(ctx context.Context) (*entity.UMAPSnapshot, error) {
	snap, err := s.snapshots.LatestUMAPSnapshot(ctx, s.cfg.Hours, s.cfg.MinSimilarity)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("umap: %w", err)
	}
	return s.buildAndSaveUMAP(ctx)
}

func (s *Service) buildAndSaveClusters(ctx context.Context) (*entity.ClusterSnapshot, error) {
	start := time.Now()
	snap, err := s.buildClusterSnapshot(ctx)
	metrics.RecordSnapshotBuild("clusters", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	if err := s.snapshots.SaveClusterSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("clusters: save: %w", err)
	}
	s.logger.Info("cluster snapshot refreshed",
		slog.Int("clusters", len(snap.Clusters)),
		slog.Int("articles", snap.ArticleCount),
		slog.Duration("took", time.Since(start)))
	return snap, nil
}

func (s *Service) buildClusterSnapshot(ctx context.Context) (*entity.ClusterSnapshot, error) {
	entries := s.idx.Snapshot()

	subStart := 0.0
	if s.cfg.SubclusterEnabled {
		subStart = s.cfg.SubclusterSimilarity
	}
	clusters := s.engine.Cluster(entries, s.cfg.MinSimilarity, subStart)

	articles, err := s.articlesFor(ctx, entries)
	if err != nil {
		return nil, fmt.Errorf("clusters: %w", err)
	}

	nodes := make([]entity.ClusterNode, 0, len(clusters))
	for _, c := range clusters {
		nodes = append(nodes, toNode(c, articles))
	}

	return &entity.ClusterSnapshot{
		Hours:         s.cfg.Hours,
		MinSimilarity: s.cfg.MinSimilarity,
		Clusters:      nodes,
		ArticleCount:  len(entries),
		GeneratedAt:   time.Now().UTC(),
	}, nil
}

func (s *Service) buildAndSaveUMAP(ctx context.Context) (*entity.UMAPSnapshot, error) {
	start := time.Now()
	snap, err := s.buildUMAPSnapshot(ctx)
	metrics.RecordSnapshotBuild("umap", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	if err := s.snapshots.SaveUMAPSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("umap: save: %w", err)
	}
	s.logger.Info("umap snapshot refreshed",
		slog.Int("points", len(snap.Points)),
		slog.Duration("took", time.Since(start)))
	return snap, nil
}

func (s *Service) buildUMAPSnapshot(ctx context.Context) (*entity.UMAPSnapshot, error) {
	entries := s.idx.Snapshot()
	articles, err := s.articlesFor(ctx, entries)
	if err != nil {
		return nil, fmt.Errorf("umap: %w", err)
	}

	prefs, err := s.prefs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("umap: preferences: %w", err)
	}
	embedded := make([]*entity.PreferenceVector, 0, len(prefs))
	for _, p := range prefs {
		if p.Embedding != nil {
			embedded = append(embedded, p)
		}
	}
	prefs = embedded

	// Articles and preference vectors share one layout so preferences
	// land among the articles they resemble.
	vectors := make([][]float32, 0, len(entries)+len(prefs))
	for _, e := range entries {
		vectors = append(vectors, e.Vector)
	}
	for _, p := range prefs {
		vectors = append(vectors, p.Embedding)
	}
	points := projection.Layout(vectors)

	clusterOf := s.clusterAssignments(entries, articles)
	now := time.Now().UTC()

	out := make([]entity.ProjectionPoint, 0, len(points))
	for i, e := range entries {
		art, ok := articles[e.ID]
		if !ok {
			continue
		}
		// Opacity follows the last sighting: a re-sighted item renders
		// solid again even if first seen long ago.
		p := entity.ProjectionPoint{
			ID:        fmt.Sprintf("%d", e.ID),
			Type:      entity.PointTypeArticle,
			X:         points[i].X,
			Y:         points[i].Y,
			Title:     art.Title,
			URL:       art.URL,
			SourceURL: art.SourceURL,
			Opacity:   ageOpacity(now.Sub(art.LastSeen).Hours()),
			LastSeen:  art.LastSeen,
		}
		if tag, tagged := clusterOf[e.ID]; tagged {
			id := tag.position
			p.ClusterID = &id
			p.ClusterName = tag.name
		}
		out = append(out, p)
	}
	for j, pref := range prefs {
		pt := points[len(entries)+j]
		out = append(out, entity.ProjectionPoint{
			ID:          fmt.Sprintf("pref_%d", pref.ID),
			Type:        entity.PointTypePreference,
			X:           pt.X,
			Y:           pt.Y,
			Title:       pref.Title,
			Description: pref.Description,
			Color:       pref.Color,
			Opacity:     1.0,
		})
	}

	return &entity.UMAPSnapshot{
		Hours:         s.cfg.Hours,
		MinSimilarity: s.cfg.MinSimilarity,
		Points:        out,
		GeneratedAt:   now,
	}, nil
}

// clusterTag identifies a point's top-level cluster in the map view.
type clusterTag struct {
	position int
	name     string
}

// clusterAssignments maps article ids to the position and label of their
// top-level cluster, for the largest taggedClusters clusters only.
func (s *Service) clusterAssignments(entries []index.Entry, articles map[int64]*entity.NewsItem) map[int64]clusterTag {
	clusters := s.engine.Cluster(entries, s.cfg.MinSimilarity, 0)
	out := make(map[int64]clusterTag)
	for i, c := range clusters {
		if i == taggedClusters {
			break
		}
		docs := make([]cluster.Document, 0, len(c.Members))
		for _, m := range c.Members {
			if item, ok := articles[m.ID]; ok {
				docs = append(docs, cluster.Document{Title: item.Title, Summary: item.Summary})
			}
		}
		tag := clusterTag{position: i, name: cluster.Label(docs)}
		for _, m := range c.Members {
			out[m.ID] = tag
		}
	}
	return out
}

func (s *Service) articlesFor(ctx context.Context, entries []index.Entry) (map[int64]*entity.NewsItem, error) {
	if len(entries) == 0 {
		return map[int64]*entity.NewsItem{}, nil
	}
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	items, err := s.news.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*entity.NewsItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	return byID, nil
}

// toNode converts an id-level cluster into the self-contained snapshot
// node, hydrating article payloads and deriving the label.
func toNode(c cluster.Cluster, articles map[int64]*entity.NewsItem) entity.ClusterNode {
	arts := make([]entity.ClusterArticle, 0, len(c.Members))
	docs := make([]cluster.Document, 0, len(c.Members))
	for _, m := range c.Members {
		item, ok := articles[m.ID]
		if !ok {
			continue
		}
		arts = append(arts, entity.ClusterArticle{
			ID:        item.ID,
			Title:     item.Title,
			Summary:   item.Summary,
			URL:       item.URL,
			SourceURL: item.SourceURL,
			HitCount:  item.HitCount,
			FirstSeen: item.FirstSeen,
			LastSeen:  item.LastSeen,
		})
		docs = append(docs, cluster.Document{Title: item.Title, Summary: item.Summary})
	}

	node := entity.ClusterNode{
		Label:      cluster.Label(docs),
		Similarity: c.Threshold,
		Articles:   arts,
	}
	for _, sub := range c.Subclusters {
		node.Subclusters = append(node.Subclusters, toNode(sub, articles))
	}
	return node
}

// upgradeLabels backfills labels on snapshots written before labeling
// existed.
func upgradeLabels(snap *entity.ClusterSnapshot) *entity.ClusterSnapshot {
	for i := range snap.Clusters {
		relabel(&snap.Clusters[i])
	}
	return snap
}

func relabel(node *entity.ClusterNode) {
	if node.Label == "" {
		docs := make([]cluster.Document, 0, len(node.Articles))
		for _, a := range node.Articles {
			docs = append(docs, cluster.Document{Title: a.Title, Summary: a.Summary})
		}
		node.Label = cluster.Label(docs)
	}
	for i := range node.Subclusters {
		relabel(&node.Subclusters[i])
	}
}

// ageOpacity fades points with article age: solid up to an hour old,
// nearly transparent from a day on, linear in between.
func ageOpacity(hoursOld float64) float64 {
	switch {
	case hoursOld <= freshAgeHours:
		return opacityFresh
	case hoursOld >= staleAgeHours:
		return opacityStale
	default:
		return opacityFresh - (opacityFresh-opacityStale)*(hoursOld-freshAgeHours)/(staleAgeHours-freshAgeHours)
	}
}
