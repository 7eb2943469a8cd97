package repository

import (
	"context"

	"github.com/cgast/embird/internal/domain/entity"
)

// PreferenceRepository persists preference vectors.
type PreferenceRepository interface {
	Create(ctx context.Context, p *entity.PreferenceVector) (*entity.PreferenceVector, error)
	Get(ctx context.Context, id int64) (*entity.PreferenceVector, error)
	List(ctx context.Context) ([]*entity.PreferenceVector, error)
	Update(ctx context.Context, p *entity.PreferenceVector) (*entity.PreferenceVector, error)
	Delete(ctx context.Context, id int64) error
}
