// Command embird runs the news aggregation service. One binary serves
// both roles: SERVICE_TYPE=web exposes the JSON API, SERVICE_TYPE=crawler
// runs the crawl and index loops with a small health/metrics listener.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cgast/embird/internal/config"
	handler "github.com/cgast/embird/internal/handler/http"
	authHandler "github.com/cgast/embird/internal/handler/http/auth"
	newsHandler "github.com/cgast/embird/internal/handler/http/news"
	prefHandler "github.com/cgast/embird/internal/handler/http/preference"
	"github.com/cgast/embird/internal/handler/http/requestid"
	sourceHandler "github.com/cgast/embird/internal/handler/http/source"
	"github.com/cgast/embird/internal/index"
	"github.com/cgast/embird/internal/infra/adapter/persistence/postgres"
	"github.com/cgast/embird/internal/infra/adapter/persistence/sqlite"
	"github.com/cgast/embird/internal/infra/db"
	"github.com/cgast/embird/internal/infra/embedding"
	"github.com/cgast/embird/internal/infra/fetcher"
	"github.com/cgast/embird/internal/observability/logging"
	"github.com/cgast/embird/internal/repository"
	"github.com/cgast/embird/internal/scheduler"
	crawlUC "github.com/cgast/embird/internal/usecase/crawl"
	newsUC "github.com/cgast/embird/internal/usecase/news"
	vizUC "github.com/cgast/embird/internal/usecase/visualization"
)

const (
	maxRequestBodyBytes = 1 << 20
	shutdownTimeout     = 15 * time.Second
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration invalid", slog.Any("error", err))
		os.Exit(1)
	}
	if err := cfg.RequireEmbedding(); err != nil {
		logger.Error("bootstrap failed", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("database unreachable", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeQuietly(database, "postgres", logger)

	if err := db.MigrateUp(database); err != nil {
		logger.Error("migration failed", slog.Any("error", err))
		os.Exit(1)
	}

	registry, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		logger.Error("source registry unavailable", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeQuietly(registry, "sqlite", logger)

	newsRepo := postgres.NewNewsRepo(database)
	prefRepo := postgres.NewPreferenceRepo(database)
	snapRepo := postgres.NewSnapshotRepo(database)
	sourceRepo := sqlite.NewSourceRepo(registry)

	embedder := embedding.NewClient(cfg.CohereAPIKey, logger)
	idx := index.New(config.VectorDimensions, cfg.IndexMaxVectors)

	vizSvc := vizUC.NewService(newsRepo, prefRepo, snapRepo, idx, vizUC.Config{
		Hours:                cfg.VisualizationHours,
		MinSimilarity:        cfg.MinSimilarity,
		SubclusterEnabled:    cfg.SubclusterEnabled,
		SubclusterSimilarity: cfg.SubclusterSimilarity,
	}, logger)

	logger.Info("starting",
		slog.String("service_type", cfg.ServiceType),
		slog.Int("vector_dims", config.VectorDimensions))

	switch cfg.ServiceType {
	case config.ServiceCrawler:
		runCrawler(ctx, cfg, logger, database, newsRepo, sourceRepo, embedder, vizSvc)
	default:
		runWeb(ctx, cfg, logger, database, newsRepo, prefRepo, snapRepo, sourceRepo, embedder, idx, vizSvc)
	}
}

func runCrawler(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	database *sql.DB,
	newsRepo repository.NewsRepository,
	sourceRepo repository.SourceRepository,
	embedder *embedding.Client,
	vizSvc *vizUC.Service,
) {
	crawlSvc := crawlUC.NewService(
		sourceRepo,
		newsRepo,
		fetcher.NewFeedFetcher(cfg.RequestTimeout, cfg.UserAgent),
		fetcher.NewPageFetcher(cfg.RequestTimeout, cfg.UserAgent),
		embedder,
		crawlUC.Config{
			MaxConcurrent:  cfg.MaxConcurrentRequests,
			RetentionDays:  cfg.NewsRetentionDays,
			MaxItems:       cfg.NewsMaxItems,
			EmbedTitleOnly: cfg.EmbedTitleOnly,
		},
		logger,
	)

	sched := scheduler.New(crawlSvc, vizSvc, scheduler.Config{
		CrawlInterval: cfg.CrawlerInterval,
		IndexInterval: cfg.IndexUpdateInterval,
	}, logger)
	if err := sched.Start(); err != nil {
		logger.Error("scheduler failed to start", slog.Any("error", err))
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /api/health", &handler.HealthHandler{DB: database})
	mux.Handle("GET /metrics", promhttp.Handler())
	srv := &http.Server{Addr: cfg.HealthListenAddr, Handler: mux}

	go func() {
		logger.Info("health listener started", slog.String("addr", cfg.HealthListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health listener failed", slog.Any("error", err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	sched.Stop()
	shutdownServer(srv, logger)
}

func runWeb(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	database *sql.DB,
	newsRepo repository.NewsRepository,
	prefRepo repository.PreferenceRepository,
	snapRepo repository.SnapshotRepository,
	sourceRepo repository.SourceRepository,
	embedder *embedding.Client,
	idx *index.Index,
	vizSvc *vizUC.Service,
) {
	newsSvc := newsUC.NewService(newsRepo, snapRepo, idx, embedder, cfg.VisualizationHours, cfg.MinSimilarity)

	// Warm the index so search works before the crawler's next tick,
	// then keep it tracking the store on the update interval.
	if err := vizSvc.RebuildIndex(ctx); err != nil {
		logger.Warn("initial index rebuild failed", slog.Any("error", err))
	}
	go vizSvc.RunIndexRefresh(ctx, cfg.IndexUpdateInterval)

	mux := http.NewServeMux()
	mux.Handle("GET /api/health", &handler.HealthHandler{DB: database})
	mux.Handle("GET /metrics", promhttp.Handler())
	newsHandler.Register(mux, newsSvc, vizSvc)
	sourceHandler.Register(mux, sourceRepo, cfg.EnableURLManagement)
	prefHandler.Register(mux, &prefHandler.Handlers{
		Repo:      prefRepo,
		Embedder:  embedder,
		Refresher: vizSvc,
		Logger:    logger,
	}, cfg.EnablePreferenceManagement)
	authHandler.Register(mux, cfg.AdminEmail, cfg.AdminPassword)

	root := handler.Chain(mux,
		requestid.Middleware,
		handler.Logging(logger),
		handler.Recover(logger),
		handler.LimitRequestBody(maxRequestBodyBytes),
	)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("api listener started", slog.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api listener failed", slog.Any("error", err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownServer(srv, logger)
}

func shutdownServer(srv *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
}

func closeQuietly(db *sql.DB, name string, logger *slog.Logger) {
	if err := db.Close(); err != nil {
		logger.Error("failed to close database", slog.String("db", name), slog.Any("error", err))
	}
}
