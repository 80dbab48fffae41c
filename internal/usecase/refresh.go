package usecase

import (
	"context"
	"log/slog"
	"time"

	"IPOWatcher/internal/cache"
	"IPOWatcher/internal/ports"
)

// RefresherDeps collects the collaborators of the refresh cycle.
type RefresherDeps struct {
	Cache     *cache.Cache
	Responses ports.ResponseCache
	Driver    ports.Scheduler
	Logger    *slog.Logger
}

// Refresher owns the full clear-and-preload cycle: empty the response
// cache namespace, drop every corpus partition and preload the year
// indexes again. The same cycle backs both the background timer and the
// administrative clear endpoint.
type Refresher struct {
	cache     *cache.Cache
	responses ports.ResponseCache
	driver    ports.Scheduler
	logger    *slog.Logger
}

// NewRefresher wires the refresh use case.
func NewRefresher(deps RefresherDeps) *Refresher {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		cache:     deps.Cache,
		responses: deps.Responses,
		driver:    deps.Driver,
		logger:    logger,
	}
}

// Refresh runs one cycle synchronously.
func (r *Refresher) Refresh(ctx context.Context) error {
	if r.responses != nil {
		if err := r.responses.Clear(ctx); err != nil {
			r.logger.Warn("response cache clear failed", "error", err)
		}
	}
	if r.cache == nil {
		return nil
	}
	return r.cache.Clear(ctx)
}

// Start registers the periodic refresh with the driver. The driver fires
// once immediately, which doubles as the startup preload.
func (r *Refresher) Start(ctx context.Context) error {
	if r.driver == nil {
		return nil
	}

	job := func(trigger time.Time) {
		r.logger.Info("cache refresh triggered", "at", trigger)
		if err := r.Refresh(ctx); err != nil {
			r.logger.Error("scheduled refresh failed", "error", err)
		}
	}

	return r.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying driver.
func (r *Refresher) Stop(ctx context.Context) error {
	if r.driver == nil {
		return nil
	}

	return r.driver.Stop(ctx)
}
