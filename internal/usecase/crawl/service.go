// Package crawl implements the ingestion pipeline: walk the registered
// sources, discover article URLs, extract and embed new items, and keep
// the news table within its retention bounds.
package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cgast/embird/internal/domain/entity"
	"github.com/cgast/embird/internal/infra/extractor"
	"github.com/cgast/embird/internal/infra/fetcher"
	"github.com/cgast/embird/internal/observability/metrics"
	"github.com/cgast/embird/internal/repository"
)

// FeedFetcher downloads and parses a feed.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) ([]fetcher.FeedItem, error)
}

// PageFetcher downloads an HTML page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Embedder vectorizes document text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Config holds the crawl tuning knobs.
type Config struct {
	MaxConcurrent  int
	RetentionDays  int
	MaxItems       int
	EmbedTitleOnly bool
}

// Stats summarizes one crawl run.
type Stats struct {
	Sources    int
	Discovered int
	Inserted   int
	Resighted  int
	Failed     int
}

// Service runs crawls.
type Service struct {
	sources  repository.SourceRepository
	news     repository.NewsRepository
	feeds    FeedFetcher
	pages    PageFetcher
	embedder Embedder
	cfg      Config
	logger   *slog.Logger
}

func NewService(
	sources repository.SourceRepository,
	news repository.NewsRepository,
	feeds FeedFetcher,
	pages PageFetcher,
	embedder Embedder,
	cfg Config,
	logger *slog.Logger,
) *Service {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 5
	}
	return &Service{
		sources:  sources,
		news:     news,
		feeds:    feeds,
		pages:    pages,
		embedder: embedder,
		cfg:      cfg,
		logger:   logger,
	}
}

// CrawlAll sweeps retention, then crawls every active source in order.
// A failing source never aborts the run.
func (s *Service) CrawlAll(ctx context.Context) (*Stats, error) {
	s.sweepRetention(ctx)

	sources, err := s.sources.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("crawl: list sources: %w", err)
	}

	stats := &Stats{Sources: len(sources)}
	for _, src := range sources {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		srcStats, err := s.CrawlSource(ctx, src)
		if err != nil {
			s.logger.Error("source crawl failed",
				slog.String("source", src.Name),
				slog.String("url", src.URL),
				slog.Any("error", err))
			metrics.RecordSourceCrawlError(src.Name, "crawl")
			continue
		}
		stats.Discovered += srcStats.Discovered
		stats.Inserted += srcStats.Inserted
		stats.Resighted += srcStats.Resighted
		stats.Failed += srcStats.Failed
	}

	s.logger.Info("crawl complete",
		slog.Int("sources", stats.Sources),
		slog.Int("discovered", stats.Discovered),
		slog.Int("inserted", stats.Inserted),
		slog.Int("resighted", stats.Resighted),
		slog.Int("failed", stats.Failed))
	return stats, nil
}

// candidate is one discovered article URL before processing.
type candidate struct {
	title   string
	url     string
	summary string
}

// CrawlSource crawls one source and records when it was last visited.
func (s *Service) CrawlSource(ctx context.Context, src *entity.Source) (*Stats, error) {
	start := time.Now()
	defer func() { metrics.RecordSourceCrawl(src.Type, time.Since(start)) }()

	var candidates []candidate
	var err error
	switch src.Type {
	case entity.SourceTypeRSS:
		candidates, err = s.discoverFromFeed(ctx, src)
	case entity.SourceTypeHomepage:
		candidates, err = s.discoverFromHomepage(ctx, src)
	default:
		err = fmt.Errorf("unknown source type %q", src.Type)
	}
	if err != nil {
		return nil, err
	}

	stats := s.processCandidates(ctx, src, candidates)

	if err := s.sources.MarkCrawled(ctx, src.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("mark crawled failed",
			slog.String("source", src.Name),
			slog.Any("error", err))
	}

	s.logger.Info("source crawled",
		slog.String("source", src.Name),
		slog.String("type", src.Type),
		slog.Int("discovered", stats.Discovered),
		slog.Int("inserted", stats.Inserted),
		slog.Int("resighted", stats.Resighted),
		slog.Int("failed", stats.Failed),
		slog.Duration("took", time.Since(start)))
	return stats, nil
}

func (s *Service) discoverFromFeed(ctx context.Context, src *entity.Source) ([]candidate, error) {
	items, err := s.feeds.Fetch(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	out := make([]candidate, 0, len(items))
	for _, it := range items {
		out = append(out, candidate{title: it.Title, url: it.Link, summary: it.Summary})
	}
	return out, nil
}

func (s *Service) discoverFromHomepage(ctx context.Context, src *entity.Source) ([]candidate, error) {
	body, err := s.pages.Fetch(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	links, err := extractor.ExtractLinks(body, src.URL)
	if err != nil {
		return nil, err
	}
	out := make([]candidate, 0, len(links))
	for _, l := range links {
		out = append(out, candidate{title: l.Title, url: l.URL})
	}
	return out, nil
}

// processCandidates handles the discovered URLs with bounded
// concurrency. A failing item is logged and skipped, never fatal.
func (s *Service) processCandidates(ctx context.Context, src *entity.Source, candidates []candidate) *Stats {
	stats := &Stats{Discovered: len(candidates)}
	if len(candidates) > 0 {
		// Sweep before each batch of inserts so the table stays within
		// its retention bounds even during a long multi-source run.
		s.sweepRetention(ctx)
	}

	var g errgroup.Group
	sem := make(chan struct{}, s.cfg.MaxConcurrent)
	results := make(chan string, len(candidates))

	for _, c := range candidates {
		c := c
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			outcome := s.processItem(ctx, src, c)
			metrics.RecordItemDiscovered(src.Name, outcome)
			results <- outcome
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	for outcome := range results {
		switch outcome {
		case metrics.OutcomeInserted:
			stats.Inserted++
		case metrics.OutcomeResighted:
			stats.Resighted++
		default:
			stats.Failed++
		}
	}
	return stats
}

func (s *Service) processItem(ctx context.Context, src *entity.Source, c candidate) string {
	now := time.Now().UTC()

	// Known URLs only get their sighting counters bumped.
	touched, err := s.news.TouchByURL(ctx, c.url, now)
	if err != nil {
		s.logger.Warn("touch failed", slog.String("url", c.url), slog.Any("error", err))
		return metrics.OutcomeFailed
	}
	if touched {
		return metrics.OutcomeResighted
	}

	// New items always get the page fetched and extracted; the feed's
	// own title and description serve only as a fallback when the page
	// cannot be read.
	title, summary := c.title, c.summary
	article, err := s.fetchArticle(ctx, c.url)
	if err != nil {
		s.logger.Warn("content extraction failed",
			slog.String("url", c.url), slog.Any("error", err))
		if strings.TrimSpace(summary) == "" {
			return metrics.OutcomeFailed
		}
	} else {
		if strings.TrimSpace(title) == "" {
			title = article.Title
		}
		if strings.TrimSpace(article.Summary) != "" {
			summary = article.Summary
		}
	}

	vec, err := s.embedder.Embed(ctx, s.embeddingText(title, summary))
	if err != nil {
		s.logger.Warn("embedding failed", slog.String("url", c.url), slog.Any("error", err))
		return metrics.OutcomeFailed
	}

	item, err := entity.NewNewsItem(title, summary, c.url, src.URL, src.Name, vec, now)
	if err != nil {
		s.logger.Warn("invalid item", slog.String("url", c.url), slog.Any("error", err))
		return metrics.OutcomeFailed
	}

	result, err := s.news.UpsertByURL(ctx, item)
	if err != nil {
		s.logger.Warn("store failed", slog.String("url", c.url), slog.Any("error", err))
		return metrics.OutcomeFailed
	}
	if !result.Inserted {
		// Raced with another worker; the row existed by the time the
		// upsert ran.
		return metrics.OutcomeResighted
	}
	return metrics.OutcomeInserted
}

func (s *Service) fetchArticle(ctx context.Context, url string) (*extractor.Article, error) {
	body, err := s.pages.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return extractor.ExtractArticle(body, url)
}

func (s *Service) embeddingText(title, summary string) string {
	if s.cfg.EmbedTitleOnly || strings.TrimSpace(summary) == "" {
		return title
	}
	return title + ". " + summary
}

// sweepRetention removes expired and overflowing items. Failures are
// logged and swallowed so a retention hiccup never blocks ingestion.
func (s *Service) sweepRetention(ctx context.Context) {
	if s.cfg.RetentionDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -s.cfg.RetentionDays)
		deleted, err := s.news.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			s.logger.Warn("retention sweep failed", slog.Any("error", err))
		} else if deleted > 0 {
			metrics.RecordRetentionDeleted("age", deleted)
			s.logger.Info("expired items removed", slog.Int64("count", deleted))
		}
	}

	if s.cfg.MaxItems > 0 {
		deleted, err := s.news.DeleteOverflow(ctx, s.cfg.MaxItems)
		if err != nil {
			s.logger.Warn("overflow sweep failed", slog.Any("error", err))
		} else if deleted > 0 {
			metrics.RecordRetentionDeleted("overflow", deleted)
			s.logger.Info("overflow items removed", slog.Int64("count", deleted))
		}
	}
}
