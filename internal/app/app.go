// Package app runs the webhook server and the worker as one process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/sevigo/build-warden/internal/config"
	"github.com/sevigo/build-warden/internal/jobs"
	"github.com/sevigo/build-warden/internal/server"
)

// App holds the main application components.
type App struct {
	cfg        *config.Config
	server     *server.Server
	dispatcher *jobs.Dispatcher
	worker     *jobs.Worker
	logger     *slog.Logger
}

// NewApp assembles the application. Nothing is started.
func NewApp(cfg *config.Config, srv *server.Server, dispatcher *jobs.Dispatcher, worker *jobs.Worker, logger *slog.Logger) *App {
	return &App{
		cfg:        cfg,
		server:     srv,
		dispatcher: dispatcher,
		worker:     worker,
		logger:     logger,
	}
}

// Run starts the worker and the HTTP server and blocks until both have
// stopped. Cancelling ctx shuts the server down and lets the worker drain the
// queue, after which Run returns nil. If the worker faults the server is shut
// down as well and the worker's error is returned.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting build-warden",
		"address", a.cfg.Server.Addr(),
		"ci", a.cfg.CIPlatform,
		"repo", a.cfg.Repositories.Primary,
		"secondary_repos", a.cfg.Repositories.Secondary,
		"query_builds_from_primary", a.cfg.Repositories.QueryBuildsFromPrimary)
	if !a.cfg.WebhookVerify {
		a.logger.Warn("webhook signature verification is disabled, anyone can submit events")
	}
	if a.cfg.DebugTarget != nil {
		a.logger.Warn("all comments are redirected", "target", a.cfg.DebugTarget.String())
	}

	// The index is loaded before the listener opens.
	if err := a.worker.Start(ctx); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.server.Start()
	})

	g.Go(func() error {
		// The worker ignores cancellation and stops once the queue is
		// closed and drained.
		return a.worker.Run(context.WithoutCancel(gctx))
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.stop()
	})

	err := g.Wait()
	if a.worker.Faulted() {
		a.logger.Error("build-warden stopped after a worker fault", "error", err)
		return err
	}
	if err != nil {
		a.logger.Error("build-warden stopped with errors", "error", err)
		return err
	}
	a.logger.Info("build-warden stopped", "processed", a.worker.Processed())
	return nil
}

// stop shuts down the server first so no new events arrive, then closes the
// queue so the worker can drain it.
func (a *App) stop() error {
	a.logger.Info("shutting down build-warden services")

	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
	}

	a.dispatcher.Stop()

	if serverErr != nil && !errors.Is(serverErr, context.Canceled) {
		return fmt.Errorf("failed to stop server: %w", serverErr)
	}
	return nil
}
