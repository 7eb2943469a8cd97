package news

import (
	"context"
	"net/http"

	"github.com/cgast/embird/internal/domain/entity"
	newsUC "github.com/cgast/embird/internal/usecase/news"
)

// Service is the read-side surface the handlers call.
type Service interface {
	List(ctx context.Context, sourceURL string, limit, offset int) ([]*entity.NewsItem, error)
	Get(ctx context.Context, id int64) (*entity.NewsItem, error)
	Trending(ctx context.Context, hours, limit int) ([]*entity.NewsItem, error)
	Search(ctx context.Context, query, sourceURL string, limit int) ([]newsUC.Result, error)
	Similar(ctx context.Context, id int64, limit int) ([]newsUC.Result, error)
	Stats(ctx context.Context) (*newsUC.Stats, error)
}

// Visualizer serves the precomputed cluster and projection views.
type Visualizer interface {
	Clusters(ctx context.Context) (*entity.ClusterSnapshot, error)
	UMAP(ctx context.Context) (*entity.UMAPSnapshot, error)
}

// Register wires the /api/news handlers onto the mux.
func Register(mux *http.ServeMux, svc Service, viz Visualizer) {
	mux.Handle("GET /api/news", ListHandler{Svc: svc})
	mux.Handle("GET /api/news/search", SearchHandler{Svc: svc})
	mux.Handle("GET /api/news/trending", TrendingHandler{Svc: svc})
	mux.Handle("GET /api/news/clusters", ClustersHandler{Viz: viz})
	mux.Handle("GET /api/news/umap", UMAPHandler{Viz: viz})
	mux.Handle("GET /api/news/stats", StatsHandler{Svc: svc})
	mux.Handle("GET /api/news/{id}", GetHandler{Svc: svc})
	mux.Handle("GET /api/news/{id}/similar", SimilarHandler{Svc: svc})
}
