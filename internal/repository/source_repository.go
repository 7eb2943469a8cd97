package repository

import (
	"context"
	"time"

	"github.com/cgast/embird/internal/domain/entity"
)

// SourceRepository persists crawl sources in the local SQLite registry.
type SourceRepository interface {
	Create(ctx context.Context, src *entity.Source) (*entity.Source, error)
	Get(ctx context.Context, id int64) (*entity.Source, error)
	List(ctx context.Context) ([]*entity.Source, error)
	ListActive(ctx context.Context) ([]*entity.Source, error)
	Update(ctx context.Context, src *entity.Source) (*entity.Source, error)
	Delete(ctx context.Context, id int64) error

	// MarkCrawled records when the source was last crawled.
	MarkCrawled(ctx context.Context, id int64, at time.Time) error
}
