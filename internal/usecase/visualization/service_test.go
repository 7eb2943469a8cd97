package visualization

import (
	"context"
	"log/slog"
	"math"
	"sync"
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

	mu        sync.Mutex
	listCalls int
	items     map[int64]*entity.NewsItem
}

func (f *fakeNewsRepo) ListInWindow(ctx context.Context, hours int) ([]*entity.NewsItem, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()

	out := make([]*entity.NewsItem, 0, len(f.items))
	for _, it := range f.items {
		out = append(out, it)
	}
	return out, nil
}

func (f *fakeNewsRepo) listCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeNewsRepo) GetByIDs(ctx context.Context, ids []int64) ([]*entity.NewsItem, error) {
	out := make([]*entity.NewsItem, 0, len(ids))
	for _, id := range ids {
		if it, ok := f.items[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

type fakePrefRepo struct {
	repository.PreferenceRepository
	prefs []*entity.PreferenceVector
}

func (f *fakePrefRepo) List(ctx context.Context) ([]*entity.PreferenceVector, error) {
	return f.prefs, nil
}

type fakeSnapshotRepo struct {
	repository.SnapshotRepository

	mu       sync.Mutex
	clusters *entity.ClusterSnapshot
	umap     *entity.UMAPSnapshot
}

func (f *fakeSnapshotRepo) SaveClusterSnapshot(ctx context.Context, snap *entity.ClusterSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clusters = snap
	return nil
}

func (f *fakeSnapshotRepo) LatestClusterSnapshot(ctx context.Context, hours int, minSimilarity float64) (*entity.ClusterSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clusters == nil {
		return nil, repository.ErrNotFound
	}
	return f.clusters, nil
}

func (f *fakeSnapshotRepo) SaveUMAPSnapshot(ctx context.Context, snap *entity.UMAPSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.umap = snap
	return nil
}

func (f *fakeSnapshotRepo) LatestUMAPSnapshot(ctx context.Context, hours int, minSimilarity float64) (*entity.UMAPSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.umap == nil {
		return nil, repository.ErrNotFound
	}
	return f.umap, nil
}

// angled returns a 2-D unit vector so cosine similarity between two of
// them equals the cosine of their angle difference.
func angled(deg float64) []float32 {
	rad := deg * math.Pi / 180
	return []float32{float32(math.Cos(rad)), float32(math.Sin(rad))}
}

func testItem(id int64, title string, firstSeen time.Time, vec []float32) *entity.NewsItem {
	return &entity.NewsItem{
		ID:        id,
		Title:     title,
		URL:       "https://example.com/" + title,
		SourceURL: "https://example.com",
		Embedding: vec,
		HitCount:  1,
		FirstSeen: firstSeen,
		LastSeen:  firstSeen,
	}
}

func newTestService(t *testing.T, news *fakeNewsRepo, prefs *fakePrefRepo, snaps *fakeSnapshotRepo) (*Service, *index.Index) {
	t.Helper()
	ix := index.New(2, 0)
	svc := NewService(news, prefs, snaps, ix, Config{
		Hours:                48,
		MinSimilarity:        0.55,
		SubclusterEnabled:    true,
		SubclusterSimilarity: 0.65,
	}, slog.Default())
	return svc, ix
}

func TestRebuildIndexLoadsWindow(t *testing.T) {
	now := time.Now().UTC()
	news := &fakeNewsRepo{items: map[int64]*entity.NewsItem{
		1: testItem(1, "one", now, angled(0)),
		2: testItem(2, "two", now, angled(10)),
	}}
	svc, ix := newTestService(t, news, &fakePrefRepo{}, &fakeSnapshotRepo{})

	require.NoError(t, svc.RebuildIndex(context.Background()))
	assert.Equal(t, 2, ix.Size())
}

func TestClustersComputesOnCacheMiss(t *testing.T) {
	now := time.Now().UTC()
	news := &fakeNewsRepo{items: map[int64]*entity.NewsItem{
		1: testItem(1, "quake shakes city", now, angled(0)),
		2: testItem(2, "quake damage grows", now, angled(10)),
		3: testItem(3, "markets rally", now, angled(90)),
	}}
	snaps := &fakeSnapshotRepo{}
	svc, _ := newTestService(t, news, &fakePrefRepo{}, snaps)
	require.NoError(t, svc.RebuildIndex(context.Background()))

	snap, err := svc.Clusters(context.Background())
	require.NoError(t, err)

	// Items 1 and 2 sit 10 degrees apart (cosine ~0.98); item 3 is
	// orthogonal and alone, so it never forms a cluster.
	require.Len(t, snap.Clusters, 1)
	assert.Len(t, snap.Clusters[0].Articles, 2)
	assert.NotEmpty(t, snap.Clusters[0].Label)
	assert.Equal(t, 3, snap.ArticleCount)

	// The miss persisted the snapshot for the next read.
	require.NotNil(t, snaps.clusters)
}

func TestClustersServesStoredSnapshot(t *testing.T) {
	stored := &entity.ClusterSnapshot{
		Hours:         48,
		MinSimilarity: 0.55,
		Clusters:      []entity.ClusterNode{{Label: "Stored"}},
		GeneratedAt:   time.Now().UTC(),
	}
	snaps := &fakeSnapshotRepo{clusters: stored}
	svc, _ := newTestService(t, &fakeNewsRepo{}, &fakePrefRepo{}, snaps)

	snap, err := svc.Clusters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Stored", snap.Clusters[0].Label)
}

func TestClustersBackfillsMissingLabels(t *testing.T) {
	stored := &entity.ClusterSnapshot{
		Clusters: []entity.ClusterNode{{
			Articles: []entity.ClusterArticle{
				{Title: "Volcano erupts near town"},
				{Title: "Volcano ash closes airport"},
			},
		}},
	}
	svc, _ := newTestService(t, &fakeNewsRepo{}, &fakePrefRepo{}, &fakeSnapshotRepo{clusters: stored})

	snap, err := svc.Clusters(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, snap.Clusters[0].Label)
}

func TestUMAPPointsCarryArticlesAndPreferences(t *testing.T) {
	now := time.Now().UTC()
	news := &fakeNewsRepo{items: map[int64]*entity.NewsItem{
		1: testItem(1, "one", now, angled(0)),
		2: testItem(2, "two", now, angled(10)),
	}}
	prefs := &fakePrefRepo{prefs: []*entity.PreferenceVector{
		{ID: 7, Title: "science", Description: "physics and space", Embedding: angled(5), Color: "#ff0000"},
		{ID: 8, Title: "unembedded"},
	}}
	snaps := &fakeSnapshotRepo{}
	svc, _ := newTestService(t, news, prefs, snaps)
	require.NoError(t, svc.RebuildIndex(context.Background()))

	snap, err := svc.UMAP(context.Background())
	require.NoError(t, err)

	// Two articles plus the one embedded preference.
	require.Len(t, snap.Points, 3)

	byID := map[string]entity.ProjectionPoint{}
	for _, p := range snap.Points {
		byID[p.ID] = p
	}
	art := byID["1"]
	assert.Equal(t, "news_item", art.Type)
	assert.Equal(t, "one", art.Title)
	assert.InDelta(t, 0.8, art.Opacity, 1e-9)
	require.NotNil(t, art.ClusterID)
	assert.Equal(t, 0, *art.ClusterID)
	assert.NotEmpty(t, art.ClusterName)
	assert.False(t, art.LastSeen.IsZero())

	pref := byID["pref_7"]
	assert.Equal(t, entity.PointTypePreference, pref.Type)
	assert.Equal(t, "physics and space", pref.Description)
	assert.Equal(t, "#ff0000", pref.Color)
	assert.InDelta(t, 1.0, pref.Opacity, 1e-9)
}

func TestUMAPOpacityFollowsLastSeen(t *testing.T) {
	now := time.Now().UTC()

	// Re-sighted just now after first appearing 30 hours ago: the fresh
	// sighting must render solid, not faded.
	resighted := testItem(1, "resighted", now.Add(-30*time.Hour), angled(0))
	resighted.LastSeen = now

	faded := testItem(2, "faded", now.Add(-30*time.Hour), angled(10))

	news := &fakeNewsRepo{items: map[int64]*entity.NewsItem{1: resighted, 2: faded}}
	svc, _ := newTestService(t, news, &fakePrefRepo{}, &fakeSnapshotRepo{})
	require.NoError(t, svc.RebuildIndex(context.Background()))

	snap, err := svc.UMAP(context.Background())
	require.NoError(t, err)

	byID := map[string]entity.ProjectionPoint{}
	for _, p := range snap.Points {
		byID[p.ID] = p
	}
	assert.InDelta(t, 0.8, byID["1"].Opacity, 1e-6)
	assert.InDelta(t, 0.2, byID["2"].Opacity, 1e-6)
}

func TestUMAPUntaggedOutsideClusters(t *testing.T) {
	now := time.Now().UTC()
	news := &fakeNewsRepo{items: map[int64]*entity.NewsItem{
		1: testItem(1, "one", now, angled(0)),
		2: testItem(2, "two", now, angled(10)),
		3: testItem(3, "loner", now, angled(90)),
	}}
	svc, _ := newTestService(t, news, &fakePrefRepo{}, &fakeSnapshotRepo{})
	require.NoError(t, svc.RebuildIndex(context.Background()))

	snap, err := svc.UMAP(context.Background())
	require.NoError(t, err)

	for _, p := range snap.Points {
		if p.ID == "3" {
			assert.Nil(t, p.ClusterID)
		}
	}
}

func TestRefreshSnapshotsWritesBoth(t *testing.T) {
	now := time.Now().UTC()
	news := &fakeNewsRepo{items: map[int64]*entity.NewsItem{
		1: testItem(1, "one", now, angled(0)),
		2: testItem(2, "two", now, angled(10)),
	}}
	snaps := &fakeSnapshotRepo{}
	svc, _ := newTestService(t, news, &fakePrefRepo{}, snaps)
	require.NoError(t, svc.RebuildIndex(context.Background()))

	require.NoError(t, svc.RefreshSnapshots(context.Background()))
	assert.NotNil(t, snaps.clusters)
	assert.NotNil(t, snaps.umap)
}

func TestRunIndexRefreshTicks(t *testing.T) {
	now := time.Now().UTC()
	news := &fakeNewsRepo{items: map[int64]*entity.NewsItem{
		1: testItem(1, "one", now, angled(0)),
	}}
	svc, _ := newTestService(t, news, &fakePrefRepo{}, &fakeSnapshotRepo{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.RunIndexRefresh(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for news.listCallCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	assert.GreaterOrEqual(t, news.listCallCount(), 2)
}

func TestAgeOpacity(t *testing.T) {
	assert.InDelta(t, 0.8, ageOpacity(0.5), 1e-9)
	assert.InDelta(t, 0.8, ageOpacity(1.0), 1e-9)
	assert.InDelta(t, 0.2, ageOpacity(24), 1e-9)
	assert.InDelta(t, 0.2, ageOpacity(100), 1e-9)

	mid := ageOpacity(12.5)
	assert.Greater(t, mid, 0.2)
	assert.Less(t, mid, 0.8)
}
