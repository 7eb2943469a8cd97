package repository

import (
	"context"

	"github.com/cgast/embird/internal/domain/entity"
)

// SnapshotRepository persists precomputed cluster and projection
// snapshots, keyed by (hours, min_similarity).
type SnapshotRepository interface {
	// SaveClusterSnapshot upserts the snapshot for its parameter pair.
	SaveClusterSnapshot(ctx context.Context, s *entity.ClusterSnapshot) error

	// LatestClusterSnapshot returns the stored snapshot for the
	// parameter pair, or ErrNotFound.
	LatestClusterSnapshot(ctx context.Context, hours int, minSimilarity float64) (*entity.ClusterSnapshot, error)

	// SaveUMAPSnapshot upserts the projection snapshot for its
	// parameter pair.
	SaveUMAPSnapshot(ctx context.Context, s *entity.UMAPSnapshot) error

	// LatestUMAPSnapshot returns the stored projection for the
	// parameter pair, or ErrNotFound.
	LatestUMAPSnapshot(ctx context.Context, hours int, minSimilarity float64) (*entity.UMAPSnapshot, error)
}
