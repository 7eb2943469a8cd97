// Package scheduler drives the crawler role: periodic crawls plus
// periodic index rebuilds, each followed by a snapshot refresh.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cgast/embird/internal/usecase/crawl"
)

// Crawler runs one full ingestion pass.
type Crawler interface {
	CrawlAll(ctx context.Context) (*crawl.Stats, error)
}

// Indexer maintains the vector index and derived snapshots.
type Indexer interface {
	RebuildIndex(ctx context.Context) error
	RefreshSnapshots(ctx context.Context) error
}

// Config holds the loop intervals and the per-job timeout.
type Config struct {
	CrawlInterval time.Duration
	IndexInterval time.Duration
	JobTimeout    time.Duration
}

// Scheduler owns the cron loops.
type Scheduler struct {
	crawler Crawler
	indexer Indexer
	cfg     Config
	cron    *cron.Cron
	logger  *slog.Logger
}

func New(crawler Crawler, indexer Indexer, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Minute
	}
	return &Scheduler{
		crawler: crawler,
		indexer: indexer,
		cfg:     cfg,
		cron:    cron.New(cron.WithLocation(time.UTC)),
		logger:  logger,
	}
}

// Start registers the loops, runs one crawl and rebuild up front so the
// service is useful immediately, and starts the cron.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(every(s.cfg.CrawlInterval), s.runCrawl); err != nil {
		return fmt.Errorf("scheduler: crawl loop: %w", err)
	}
	if _, err := s.cron.AddFunc(every(s.cfg.IndexInterval), s.runRebuild); err != nil {
		return fmt.Errorf("scheduler: index loop: %w", err)
	}

	go func() {
		s.runCrawl()
	}()

	s.cron.Start()
	s.logger.Info("scheduler started",
		slog.Duration("crawl_interval", s.cfg.CrawlInterval),
		slog.Duration("index_interval", s.cfg.IndexInterval))
	return nil
}

// Stop halts the loops and waits for a running job to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("scheduler stopped")
}

// runCrawl executes one crawl and then refreshes the index and the
// snapshots so new items become visible without waiting for the index
// loop. Failures are logged; the loop survives.
func (s *Scheduler) runCrawl() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
	defer cancel()

	start := time.Now()
	s.logger.Info("crawl tick started")

	stats, err := s.crawler.CrawlAll(ctx)
	if err != nil {
		s.logger.Error("crawl tick failed", slog.Any("error", err))
		return
	}
	s.refresh(ctx)
	s.logger.Info("crawl tick finished",
		slog.Int("sources", stats.Sources),
		slog.Int("inserted", stats.Inserted),
		slog.Int("resighted", stats.Resighted),
		slog.Duration("took", time.Since(start)))
}

// runRebuild refreshes the index and snapshots on the index loop, which
// also ages expired items out of the window between crawls.
func (s *Scheduler) runRebuild() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
	defer cancel()

	start := time.Now()
	s.refresh(ctx)
	s.logger.Info("index tick finished", slog.Duration("took", time.Since(start)))
}

func (s *Scheduler) refresh(ctx context.Context) {
	if err := s.indexer.RebuildIndex(ctx); err != nil {
		s.logger.Error("index rebuild failed", slog.Any("error", err))
		return
	}
	if err := s.indexer.RefreshSnapshots(ctx); err != nil {
		s.logger.Error("snapshot refresh failed", slog.Any("error", err))
	}
}

func every(d time.Duration) string {
	return "@every " + d.String()
}
