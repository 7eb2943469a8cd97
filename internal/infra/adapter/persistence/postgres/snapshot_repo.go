package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/cgast/embird/internal/domain/entity"
	"github.com/cgast/embird/internal/repository"
)

type SnapshotRepo struct {
	db *sql.DB
}

func NewSnapshotRepo(db *sql.DB) repository.SnapshotRepository {
	return &SnapshotRepo{db: db}
}

func (repo *SnapshotRepo) SaveClusterSnapshot(ctx context.Context, s *entity.ClusterSnapshot) error {
	payload, err := json.Marshal(s.Clusters)
	if err != nil {
		return fmt.Errorf("SaveClusterSnapshot: marshal: %w", err)
	}

	const query = `
INSERT INTO news_clusters (hours, min_similarity, clusters, article_count, generated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (hours, min_similarity) DO UPDATE
SET clusters = EXCLUDED.clusters,
    article_count = EXCLUDED.article_count,
    generated_at = EXCLUDED.generated_at`

	if _, err := repo.db.ExecContext(ctx, query,
		s.Hours, s.MinSimilarity, payload, s.ArticleCount, s.GeneratedAt); err != nil {
		return fmt.Errorf("SaveClusterSnapshot: %w", err)
	}
	return nil
}

func (repo *SnapshotRepo) LatestClusterSnapshot(ctx context.Context, hours int, minSimilarity float64) (*entity.ClusterSnapshot, error) {
	const query = `
SELECT id, hours, min_similarity, clusters, article_count, generated_at
FROM news_clusters
WHERE hours = $1 AND min_similarity = $2`

	var s entity.ClusterSnapshot
	var payload []byte
	err := repo.db.QueryRowContext(ctx, query, hours, minSimilarity).
		Scan(&s.ID, &s.Hours, &s.MinSimilarity, &payload, &s.ArticleCount, &s.GeneratedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("LatestClusterSnapshot: %w", err)
	}

	if err := unmarshalClusters(payload, &s.Clusters); err != nil {
		return nil, fmt.Errorf("LatestClusterSnapshot: unmarshal: %w", err)
	}
	return &s, nil
}

// unmarshalClusters decodes a stored cluster payload. Rows written before
// the tree format hold a map of cluster position to a bare article array;
// those are upgraded on read to labeled "Cluster N" nodes.
func unmarshalClusters(payload []byte, out *[]entity.ClusterNode) error {
	if err := json.Unmarshal(payload, out); err == nil {
		return nil
	}

	var legacy map[string][]entity.ClusterArticle
	if err := json.Unmarshal(payload, &legacy); err != nil {
		return err
	}

	keys := make([]string, 0, len(legacy))
	for k := range legacy {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})

	nodes := make([]entity.ClusterNode, 0, len(keys))
	for _, k := range keys {
		nodes = append(nodes, entity.ClusterNode{
			Label:    "Cluster " + k,
			Articles: legacy[k],
		})
	}
	*out = nodes
	return nil
}

func (repo *SnapshotRepo) SaveUMAPSnapshot(ctx context.Context, s *entity.UMAPSnapshot) error {
	payload, err := json.Marshal(s.Points)
	if err != nil {
		return fmt.Errorf("SaveUMAPSnapshot: marshal: %w", err)
	}

	const query = `
INSERT INTO news_umap (hours, min_similarity, points, generated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (hours, min_similarity) DO UPDATE
SET points = EXCLUDED.points,
    generated_at = EXCLUDED.generated_at`

	if _, err := repo.db.ExecContext(ctx, query,
		s.Hours, s.MinSimilarity, payload, s.GeneratedAt); err != nil {
		return fmt.Errorf("SaveUMAPSnapshot: %w", err)
	}
	return nil
}

func (repo *SnapshotRepo) LatestUMAPSnapshot(ctx context.Context, hours int, minSimilarity float64) (*entity.UMAPSnapshot, error) {
	const query = `
SELECT id, hours, min_similarity, points, generated_at
FROM news_umap
WHERE hours = $1 AND min_similarity = $2`

	var s entity.UMAPSnapshot
	var payload []byte
	err := repo.db.QueryRowContext(ctx, query, hours, minSimilarity).
		Scan(&s.ID, &s.Hours, &s.MinSimilarity, &payload, &s.GeneratedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("LatestUMAPSnapshot: %w", err)
	}

	if err := json.Unmarshal(payload, &s.Points); err != nil {
		return nil, fmt.Errorf("LatestUMAPSnapshot: unmarshal: %w", err)
	}
	return &s, nil
}
