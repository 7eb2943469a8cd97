package news

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgast/embird/internal/domain/entity"
	"github.com/cgast/embird/internal/index"
	"github.com/cgast/embird/internal/repository"
)

type fakeNewsRepo struct {
	repository.NewsRepository
	items  map[int64]*entity.NewsItem
	scored []repository.ScoredNews
	stats  *repository.NewsStats
}

func (f *fakeNewsRepo) Get(ctx context.Context, id int64) (*entity.NewsItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return item, nil
}

func (f *fakeNewsRepo) GetByIDs(ctx context.Context, ids []int64) ([]*entity.NewsItem, error) {
	out := make([]*entity.NewsItem, 0, len(ids))
	for _, id := range ids {
		if item, ok := f.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeNewsRepo) SearchByCosine(ctx context.Context, embedding []float32, limit int) ([]repository.ScoredNews, error) {
	if len(f.scored) > limit {
		return f.scored[:limit], nil
	}
	return f.scored, nil
}

func (f *fakeNewsRepo) Stats(ctx context.Context, timelineHours, activeHours int) (*repository.NewsStats, error) {
	return f.stats, nil
}

type fakeSnapshots struct {
	repository.SnapshotRepository
	cluster *entity.ClusterSnapshot
}

func (f *fakeSnapshots) LatestClusterSnapshot(ctx context.Context, hours int, minSimilarity float64) (*entity.ClusterSnapshot, error) {
	if f.cluster == nil {
		return nil, repository.ErrNotFound
	}
	return f.cluster, nil
}

type fakeQueryEmbedder struct {
	vec []float32
}

func (f *fakeQueryEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return f.vec, nil
}

func item(id int64, title, sourceURL string) *entity.NewsItem {
	return &entity.NewsItem{ID: id, Title: title, URL: "https://example.com/" + title, SourceURL: sourceURL, HitCount: 1}
}

func newTestService(t *testing.T, repo *fakeNewsRepo, entries []index.Entry) (*Service, *index.Index) {
	t.Helper()
	ix := index.New(2, 0)
	if entries != nil {
		require.NoError(t, ix.Rebuild(entries))
	}
	svc := NewService(repo, &fakeSnapshots{}, ix, &fakeQueryEmbedder{vec: []float32{1, 0}}, 48, 0.55)
	return svc, ix
}

func TestSearchUsesIndex(t *testing.T) {
	repo := &fakeNewsRepo{items: map[int64]*entity.NewsItem{
		1: item(1, "close", "https://a.example.com"),
		2: item(2, "far", "https://b.example.com"),
	}}
	svc, _ := newTestService(t, repo, []index.Entry{
		{ID: 1, Vector: []float32{1, 0}},
		{ID: 2, Vector: []float32{0, 1}},
	})

	results, err := svc.Search(context.Background(), "query", "", 10)
	require.NoError(t, err)

	// The orthogonal vector sits at similarity 0, below the 0.5 floor.
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].Item.ID)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
}

func TestSearchFallsBackToDatabaseWhenIndexEmpty(t *testing.T) {
	repo := &fakeNewsRepo{
		items: map[int64]*entity.NewsItem{},
		scored: []repository.ScoredNews{
			{Item: item(1, "hit", ""), Similarity: 0.9},
			{Item: item(2, "weak", ""), Similarity: 0.2},
		},
	}
	svc, _ := newTestService(t, repo, nil)

	results, err := svc.Search(context.Background(), "query", "", 10)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].Item.ID)
}

func TestSearchSourceFilter(t *testing.T) {
	repo := &fakeNewsRepo{items: map[int64]*entity.NewsItem{
		1: item(1, "a", "https://a.example.com"),
		2: item(2, "b", "https://b.example.com"),
	}}
	svc, _ := newTestService(t, repo, []index.Entry{
		{ID: 1, Vector: []float32{1, 0}},
		{ID: 2, Vector: []float32{0.99, 0.01}},
	})

	results, err := svc.Search(context.Background(), "query", "https://b.example.com", 10)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, int64(2), results[0].Item.ID)
}

func TestSimilarDropsSelf(t *testing.T) {
	repo := &fakeNewsRepo{items: map[int64]*entity.NewsItem{
		1: {ID: 1, Title: "self", URL: "https://example.com/self", Embedding: []float32{1, 0}, HitCount: 1},
		2: item(2, "close", ""),
		3: item(3, "other", ""),
	}}
	svc, _ := newTestService(t, repo, []index.Entry{
		{ID: 1, Vector: []float32{1, 0}},
		{ID: 2, Vector: []float32{0.95, 0.05}},
		{ID: 3, Vector: []float32{0.9, 0.1}},
	})

	results, err := svc.Similar(context.Background(), 1, 2)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, int64(2), results[0].Item.ID)
	assert.Equal(t, int64(3), results[1].Item.ID)
}

func TestSimilarRejectsUnembeddedItem(t *testing.T) {
	repo := &fakeNewsRepo{items: map[int64]*entity.NewsItem{
		1: item(1, "plain", ""),
	}}
	svc, _ := newTestService(t, repo, nil)

	_, err := svc.Similar(context.Background(), 1, 5)
	assert.ErrorIs(t, err, ErrNoEmbedding)
}

func TestSimilarMissingItem(t *testing.T) {
	svc, _ := newTestService(t, &fakeNewsRepo{items: map[int64]*entity.NewsItem{}}, nil)
	_, err := svc.Similar(context.Background(), 42, 5)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStatsIncludesSnapshotInfo(t *testing.T) {
	repo := &fakeNewsRepo{stats: &repository.NewsStats{TotalItems: 10, TotalHits: 25}}
	ix := index.New(2, 0)
	require.NoError(t, ix.Rebuild([]index.Entry{{ID: 1, Vector: []float32{1, 0}}}))

	snaps := &fakeSnapshots{cluster: &entity.ClusterSnapshot{
		Hours: 48, MinSimilarity: 0.55, ArticleCount: 10,
		Clusters:    []entity.ClusterNode{{Label: "A"}, {Label: "B"}},
		GeneratedAt: time.Now(),
	}}
	svc := NewService(repo, snaps, ix, &fakeQueryEmbedder{vec: []float32{1, 0}}, 48, 0.55)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10, stats.Repo.TotalItems)
	assert.Equal(t, 1, stats.IndexSize)
	require.NotNil(t, stats.Snapshot)
	assert.Equal(t, 2, stats.Snapshot.ClusterCount)
}

func TestStatsWithoutSnapshot(t *testing.T) {
	repo := &fakeNewsRepo{stats: &repository.NewsStats{}}
	svc, _ := newTestService(t, repo, nil)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Nil(t, stats.Snapshot)
}
