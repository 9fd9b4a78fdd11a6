package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

const scannerRefreshInterval = 1 * time.Second

// FullMode runs every subsystem: feeds, the HFT engine, the cron service,
// and the HTTP/WS gateway.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	g, gctx := errgroup.WithContext(ctx)
	a.startFeeds(g, gctx, deps)
	a.startHFT(g, gctx, deps)
	a.startCron(g, gctx, deps)
	a.startGateway(g, gctx, deps)
	a.blockUntilDone(g, gctx)
	return g.Wait()
}

// TradeMode runs feeds and the HFT engine only.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	g, gctx := errgroup.WithContext(ctx)
	a.startFeeds(g, gctx, deps)
	a.startHFT(g, gctx, deps)
	a.blockUntilDone(g, gctx)
	return g.Wait()
}

// MonitorMode runs feeds and the cron service (alert scanning and
// notifications) without trading or exposing the gateway.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	g, gctx := errgroup.WithContext(ctx)
	a.startFeeds(g, gctx, deps)
	a.startCron(g, gctx, deps)
	a.blockUntilDone(g, gctx)
	return g.Wait()
}

// ServerMode runs feeds and the HTTP/WS gateway only, serving read APIs
// without running the trading loop or cron jobs.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	g, gctx := errgroup.WithContext(ctx)
	a.startFeeds(g, gctx, deps)
	a.startGateway(g, gctx, deps)
	a.blockUntilDone(g, gctx)
	return g.Wait()
}

// CronMode runs only feeds (for the market lookups the cron payload
// handlers need) and the cron service.
func (a *App) CronMode(ctx context.Context, deps *Dependencies) error {
	g, gctx := errgroup.WithContext(ctx)
	a.startFeeds(g, gctx, deps)
	a.startCron(g, gctx, deps)
	a.blockUntilDone(g, gctx)
	return g.Wait()
}

// blockUntilDone arms a goroutine that keeps the group alive until ctx is
// cancelled, so modes whose components (e.g. the cron service) arm their
// own background timers rather than blocking in Start don't return early.
func (a *App) blockUntilDone(g *errgroup.Group, ctx context.Context) {
	g.Go(func() error {
		<-ctx.Done()
		return ctx.Err()
	})
}

func (a *App) startFeeds(g *errgroup.Group, ctx context.Context, deps *Dependencies) {
	if deps.Feeds == nil {
		return
	}
	g.Go(func() error {
		if err := deps.Feeds.Start(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("app: feeds: %w", err)
		}
		return nil
	})
}

// startHFT runs the scanner refresh loop and the engine's exit-check loop.
func (a *App) startHFT(g *errgroup.Group, ctx context.Context, deps *Dependencies) {
	if deps.Engine == nil || deps.Scanner == nil {
		return
	}

	g.Go(func() error {
		ticker := time.NewTicker(scannerRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				deps.Scanner.Refresh(ctx, time.Now())
			}
		}
	})

	g.Go(func() error {
		if err := deps.Engine.RunExitLoop(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("app: hft exit loop: %w", err)
		}
		return nil
	})
}

func (a *App) startCron(g *errgroup.Group, ctx context.Context, deps *Dependencies) {
	if deps.Cron == nil {
		return
	}
	g.Go(func() error {
		if err := deps.Cron.Start(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("app: cron: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		deps.Cron.Stop()
		return nil
	})
}

func (a *App) startGateway(g *errgroup.Group, ctx context.Context, deps *Dependencies) {
	if deps.Gateway == nil {
		return
	}
	g.Go(func() error {
		if err := deps.Gateway.Start(); err != nil {
			return fmt.Errorf("app: gateway: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := deps.Gateway.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("app: gateway shutdown", slog.Any("error", err))
		}
		return nil
	})
}
