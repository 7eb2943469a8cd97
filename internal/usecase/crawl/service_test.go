package crawl

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgast/embird/internal/domain/entity"
	"github.com/cgast/embird/internal/infra/fetcher"
	"github.com/cgast/embird/internal/repository"
)

type fakeSourceRepo struct {
	repository.SourceRepository
	sources []*entity.Source

	mu      sync.Mutex
	crawled []int64
}

func (f *fakeSourceRepo) ListActive(ctx context.Context) ([]*entity.Source, error) {
	return f.sources, nil
}

func (f *fakeSourceRepo) MarkCrawled(ctx context.Context, id int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.crawled = append(f.crawled, id)
	return nil
}

type fakeNewsRepo struct {
	repository.NewsRepository

	mu         sync.Mutex
	known      map[string]bool
	upserts    []*entity.NewsItem
	touched    []string
	ageSweeps  int
	overSweeps int
	ageDel     int64
	overDel    int64
	sweepErr   error
}

func (f *fakeNewsRepo) TouchByURL(ctx context.Context, url string, seenAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, url)
	return f.known[url], nil
}

func (f *fakeNewsRepo) UpsertByURL(ctx context.Context, item *entity.NewsItem) (*repository.UpsertResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, item)
	return &repository.UpsertResult{ID: int64(len(f.upserts)), Inserted: true}, nil
}

func (f *fakeNewsRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ageSweeps++
	return f.ageDel, f.sweepErr
}

func (f *fakeNewsRepo) DeleteOverflow(ctx context.Context, maxItems int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overSweeps++
	return f.overDel, f.sweepErr
}

type fakeFeeds struct {
	items map[string][]fetcher.FeedItem
	err   error
}

func (f *fakeFeeds) Fetch(ctx context.Context, url string) ([]fetcher.FeedItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items[url], nil
}

type fakePages struct {
	pages map[string][]byte
}

func (f *fakePages) Fetch(ctx context.Context, url string) ([]byte, error) {
	body, ok := f.pages[url]
	if !ok {
		return nil, errors.New("not found")
	}
	return body, nil
}

type fakeEmbedder struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.texts = append(f.texts, text)
	return make([]float32, entity.EmbeddingDimensions), nil
}

func rssSource() *entity.Source {
	return &entity.Source{ID: 1, URL: "https://example.com/feed", Name: "Example", Type: entity.SourceTypeRSS, Active: true}
}

func newTestService(sources *fakeSourceRepo, news *fakeNewsRepo, feeds *fakeFeeds, pages *fakePages, emb *fakeEmbedder) *Service {
	return NewService(sources, news, feeds, pages, emb,
		Config{MaxConcurrent: 2, RetentionDays: 30, MaxItems: 1000},
		slog.Default())
}

func TestCrawlAllInsertsNewItems(t *testing.T) {
	news := &fakeNewsRepo{known: map[string]bool{}}
	feeds := &fakeFeeds{items: map[string][]fetcher.FeedItem{
		"https://example.com/feed": {
			{Title: "First", Link: "https://example.com/1", Summary: "First summary"},
			{Title: "Second", Link: "https://example.com/2", Summary: "Second summary"},
		},
	}}
	sources := &fakeSourceRepo{sources: []*entity.Source{rssSource()}}
	emb := &fakeEmbedder{}

	svc := newTestService(sources, news, feeds, &fakePages{}, emb)
	stats, err := svc.CrawlAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Discovered)
	assert.Equal(t, 2, stats.Inserted)
	assert.Equal(t, 0, stats.Resighted)
	assert.Len(t, news.upserts, 2)
	assert.Equal(t, []int64{1}, sources.crawled)
}

func TestCrawlSkipsKnownURLs(t *testing.T) {
	news := &fakeNewsRepo{known: map[string]bool{"https://example.com/1": true}}
	feeds := &fakeFeeds{items: map[string][]fetcher.FeedItem{
		"https://example.com/feed": {
			{Title: "Known", Link: "https://example.com/1", Summary: "Seen before"},
			{Title: "Fresh", Link: "https://example.com/2", Summary: "Brand new"},
		},
	}}
	sources := &fakeSourceRepo{sources: []*entity.Source{rssSource()}}
	emb := &fakeEmbedder{}

	svc := newTestService(sources, news, feeds, &fakePages{}, emb)
	stats, err := svc.CrawlAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Resighted)
	assert.Equal(t, 1, stats.Inserted)
	// Known items are never embedded again.
	require.Len(t, emb.texts, 1)
	assert.Contains(t, emb.texts[0], "Fresh")
}

func TestCrawlEmbedsTitleAndSummary(t *testing.T) {
	news := &fakeNewsRepo{known: map[string]bool{}}
	feeds := &fakeFeeds{items: map[string][]fetcher.FeedItem{
		"https://example.com/feed": {
			{Title: "Headline", Link: "https://example.com/1", Summary: "Body text"},
		},
	}}
	emb := &fakeEmbedder{}
	svc := newTestService(&fakeSourceRepo{sources: []*entity.Source{rssSource()}}, news, feeds, &fakePages{}, emb)

	_, err := svc.CrawlAll(context.Background())
	require.NoError(t, err)
	require.Len(t, emb.texts, 1)
	assert.Equal(t, "Headline. Body text", emb.texts[0])
}

func TestCrawlEmbedTitleOnly(t *testing.T) {
	news := &fakeNewsRepo{known: map[string]bool{}}
	feeds := &fakeFeeds{items: map[string][]fetcher.FeedItem{
		"https://example.com/feed": {
			{Title: "Headline", Link: "https://example.com/1", Summary: "Body text"},
		},
	}}
	emb := &fakeEmbedder{}
	svc := NewService(&fakeSourceRepo{sources: []*entity.Source{rssSource()}}, news, feeds, &fakePages{}, emb,
		Config{MaxConcurrent: 2, EmbedTitleOnly: true}, slog.Default())

	_, err := svc.CrawlAll(context.Background())
	require.NoError(t, err)
	require.Len(t, emb.texts, 1)
	assert.Equal(t, "Headline", emb.texts[0])
}

func TestCrawlExtractsPageOverFeedDescription(t *testing.T) {
	// A new item is always fetched and extracted; the feed's own blurb
	// only serves when the page cannot be read.
	para := strings.Repeat("Full article text with far more detail than the feed blurb. ", 5)
	page := `<html><head><title>Headline</title></head><body><p>` + para + `</p></body></html>`

	news := &fakeNewsRepo{known: map[string]bool{}}
	feeds := &fakeFeeds{items: map[string][]fetcher.FeedItem{
		"https://example.com/feed": {
			{Title: "Headline", Link: "https://example.com/1", Summary: "Short feed blurb"},
		},
	}}
	pages := &fakePages{pages: map[string][]byte{
		"https://example.com/1": []byte(page),
	}}
	emb := &fakeEmbedder{}

	svc := newTestService(&fakeSourceRepo{sources: []*entity.Source{rssSource()}}, news, feeds, pages, emb)
	stats, err := svc.CrawlAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Inserted)

	require.Len(t, news.upserts, 1)
	assert.Contains(t, news.upserts[0].Summary, "Full article text")
	assert.NotEqual(t, "Short feed blurb", news.upserts[0].Summary)
	require.Len(t, emb.texts, 1)
	assert.Contains(t, emb.texts[0], "Full article text")
}

func TestCrawlFallsBackToFeedDescription(t *testing.T) {
	news := &fakeNewsRepo{known: map[string]bool{}}
	feeds := &fakeFeeds{items: map[string][]fetcher.FeedItem{
		"https://example.com/feed": {
			{Title: "Headline", Link: "https://example.com/1", Summary: "Feed blurb"},
		},
	}}
	// No pages: every fetch fails.
	svc := newTestService(&fakeSourceRepo{sources: []*entity.Source{rssSource()}}, news, feeds, &fakePages{}, &fakeEmbedder{})

	stats, err := svc.CrawlAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Inserted)
	require.Len(t, news.upserts, 1)
	assert.Equal(t, "Feed blurb", news.upserts[0].Summary)
}

func TestRetentionSweepRunsPerBatch(t *testing.T) {
	news := &fakeNewsRepo{known: map[string]bool{}}
	feeds := &fakeFeeds{items: map[string][]fetcher.FeedItem{
		"https://example.com/feed": {
			{Title: "First", Link: "https://example.com/1", Summary: "First summary"},
		},
	}}
	svc := newTestService(&fakeSourceRepo{sources: []*entity.Source{rssSource()}}, news, feeds, &fakePages{}, &fakeEmbedder{})

	_, err := svc.CrawlAll(context.Background())
	require.NoError(t, err)

	// Once at the start of the run, once before the source's inserts.
	assert.Equal(t, 2, news.ageSweeps)
	assert.Equal(t, 2, news.overSweeps)
}

func TestCrawlIsolatesItemFailures(t *testing.T) {
	news := &fakeNewsRepo{known: map[string]bool{}}
	feeds := &fakeFeeds{items: map[string][]fetcher.FeedItem{
		"https://example.com/feed": {
			// No feed summary to fall back on when the page fetch fails.
			{Title: "Broken", Link: "https://example.com/broken"},
			{Title: "Works", Link: "https://example.com/ok", Summary: "Fine"},
		},
	}}
	svc := newTestService(&fakeSourceRepo{sources: []*entity.Source{rssSource()}}, news, feeds, &fakePages{}, &fakeEmbedder{})

	stats, err := svc.CrawlAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Inserted)
}

func TestCrawlHomepageSource(t *testing.T) {
	homepage := `<html><body>
<a href="/story/one">Mayor announces new transit plan</a>
</body></html>`
	para := strings.Repeat("Detailed coverage of the transit plan announcement. ", 5)
	article := `<html><head><title>Mayor announces new transit plan</title></head><body><p>` + para + `</p></body></html>`

	src := &entity.Source{ID: 2, URL: "https://example.com", Name: "Homepage", Type: entity.SourceTypeHomepage, Active: true}
	news := &fakeNewsRepo{known: map[string]bool{}}
	pages := &fakePages{pages: map[string][]byte{
		"https://example.com":           []byte(homepage),
		"https://example.com/story/one": []byte(article),
	}}
	emb := &fakeEmbedder{}

	svc := newTestService(&fakeSourceRepo{sources: []*entity.Source{src}}, news, &fakeFeeds{}, pages, emb)
	stats, err := svc.CrawlAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Inserted)
	require.Len(t, news.upserts, 1)
	assert.Equal(t, "https://example.com/story/one", news.upserts[0].URL)
	assert.Contains(t, news.upserts[0].Summary, "transit plan")
}

func TestCrawlContinuesAfterSourceFailure(t *testing.T) {
	bad := &entity.Source{ID: 1, URL: "https://bad.example.com/feed", Name: "Bad", Type: entity.SourceTypeRSS, Active: true}
	good := rssSource()
	good.ID = 2

	news := &fakeNewsRepo{known: map[string]bool{}}
	feeds := &fakeFeeds{items: map[string][]fetcher.FeedItem{
		good.URL: {{Title: "Works", Link: "https://example.com/1", Summary: "Fine"}},
	}}
	// The bad feed returns no error here, so force one via a custom fake.
	failing := &failingFeeds{inner: feeds, failURL: bad.URL}

	svc := NewService(&fakeSourceRepo{sources: []*entity.Source{bad, good}}, news, failing, &fakePages{}, &fakeEmbedder{},
		Config{MaxConcurrent: 2}, slog.Default())

	stats, err := svc.CrawlAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Inserted)
}

type failingFeeds struct {
	inner   *fakeFeeds
	failURL string
}

func (f *failingFeeds) Fetch(ctx context.Context, url string) ([]fetcher.FeedItem, error) {
	if url == f.failURL {
		return nil, errors.New("feed unreachable")
	}
	return f.inner.Fetch(ctx, url)
}
