package app

import (
	"context"
	"fmt"
	"log/slog"

	"IPOWatcher/internal/cache"
	"IPOWatcher/internal/config"
	"IPOWatcher/internal/infrastructure/chittorgarh"
	"IPOWatcher/internal/infrastructure/corpus"
	"IPOWatcher/internal/infrastructure/parser"
	"IPOWatcher/internal/infrastructure/respcache"
	"IPOWatcher/internal/infrastructure/scheduler"
	"IPOWatcher/internal/infrastructure/telegram"
	"IPOWatcher/internal/logging"
	"IPOWatcher/internal/ports"
	"IPOWatcher/internal/server"
	"IPOWatcher/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	server    *server.Server
	refresher *usecase.Refresher
	ingestor  *usecase.Ingestor
	redis     *respcache.Redis
}

// New builds a runnable application instance: the API stack and the
// ingestion stack share one corpus store and one logger.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store := corpus.NewStore(cfg.Corpus.DataDir)
	corpusCache := cache.New(store, baseLogger.With("component", "cache"))

	local, err := respcache.NewLocal(cfg.Cache.FallbackSize)
	if err != nil {
		return nil, fmt.Errorf("build local response cache: %w", err)
	}

	var redis *respcache.Redis
	if cfg.Redis.Enabled() {
		redis = respcache.NewRedis(
			cfg.Redis.Addr,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.KeyPrefix,
			cfg.Redis.OpTimeout(),
			baseLogger.With("component", "respcache.redis"),
		)
	}
	responses := respcache.NewTiered(local, redis, baseLogger.With("component", "respcache"))

	query := usecase.NewQuery(usecase.QueryDeps{
		Cache:  corpusCache,
		Logger: baseLogger.With("component", "query"),
	})

	refresher := usecase.NewRefresher(usecase.RefresherDeps{
		Cache:     corpusCache,
		Responses: responses,
		Driver:    scheduler.NewIntervalScheduler(cfg.Cache.RefreshInterval()),
		Logger:    baseLogger.With("component", "refresher"),
	})

	srv := server.New(server.Deps{
		Query:     query,
		Refresher: refresher,
		Responses: responses,
		TTLs:      cfg.Cache,
		KeyPrefix: cfg.Redis.KeyPrefix,
		Logger:    baseLogger.With("component", "server"),
	})

	site := chittorgarh.NewClient(cfg.Scraper, baseLogger.With("component", "chittorgarh"))

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" && cfg.Notifications.Telegram.ChatID != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	ingestor := usecase.NewIngestor(usecase.IngestDeps{
		Store:      store,
		Lister:     site,
		Fetcher:    site,
		Extractor:  parser.NewExtractor(),
		Notifier:   notifier,
		Logger:     baseLogger.With("component", "ingest"),
		Workers:    cfg.Scraper.Workers,
		RefetchTop: cfg.Scraper.RefetchTop,
	})

	return &Application{
		cfg:       cfg,
		server:    srv,
		refresher: refresher,
		ingestor:  ingestor,
		redis:     redis,
	}, nil
}

// Run serves the API with the background refresher until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if err := a.refresher.Start(ctx); err != nil {
		return fmt.Errorf("start refresher: %w", err)
	}
	defer func() { _ = a.refresher.Stop(context.Background()) }()

	return a.server.Run(ctx, a.cfg.Server)
}

// Ingest rebuilds one corpus year, then drops cached responses so running
// servers sharing the Redis tier stop serving the replaced payloads.
func (a *Application) Ingest(ctx context.Context, year int) error {
	if err := a.ingestor.Run(ctx, year); err != nil {
		return err
	}
	if err := a.refresher.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh caches: %w", err)
	}
	return nil
}

// Close releases long-lived backend connections.
func (a *Application) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}
