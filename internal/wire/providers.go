package wire

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/wire"

	"github.com/sevigo/build-warden/internal/analyzer"
	"github.com/sevigo/build-warden/internal/app"
	"github.com/sevigo/build-warden/internal/ci"
	"github.com/sevigo/build-warden/internal/config"
	"github.com/sevigo/build-warden/internal/core"
	"github.com/sevigo/build-warden/internal/index"
	"github.com/sevigo/build-warden/internal/jobs"
	"github.com/sevigo/build-warden/internal/logger"
	"github.com/sevigo/build-warden/internal/server"
)

// AppSet provides everything InitializeApp needs from a loaded config.
var AppSet = wire.NewSet(
	app.NewApp,
	server.NewServer,
	jobs.NewQueue,
	jobs.NewDispatcher,
	provideWorker,
	provideDiagnoseJob,
	provideCIPlatform,
	provideIndexStore,
	provideAnalyzer,
	provideLoggerConfig,
	provideSlogLogger,
	wire.Bind(new(core.JobDispatcher), new(*jobs.Dispatcher)),
)

func provideLoggerConfig(cfg *config.Config) logger.Config {
	return cfg.Logging
}

func provideSlogLogger(loggerConfig logger.Config) *slog.Logger {
	return logger.NewLogger(loggerConfig, nil)
}

func provideCIPlatform(ctx context.Context, cfg *config.Config, log *slog.Logger) (core.CIPlatform, error) {
	platform, err := ci.New(ctx, cfg, logger.Component(log, "ci"))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s platform: %w", cfg.CIPlatform, err)
	}
	return platform, nil
}

func provideIndexStore(ctx context.Context, cfg *config.Config) (core.IndexStore, func(), error) {
	store, cleanup, err := index.NewStore(ctx, cfg.Index)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create index store: %w", err)
	}
	return store, cleanup, nil
}

func provideAnalyzer(cfg *config.Config) core.Analyzer {
	return analyzer.New(cfg.Analyzer)
}

func provideDiagnoseJob(cfg *config.Config, platform core.CIPlatform, a core.Analyzer, store core.IndexStore, log *slog.Logger) core.Job {
	return jobs.NewDiagnoseJob(jobs.DiagnoseConfig{
		Repositories: cfg.Repositories,
		DebugTarget:  cfg.DebugTarget,
		CallTimeout:  cfg.CallTimeout,
	}, platform, a, store, logger.Component(log, "diagnose"))
}

func provideWorker(queue *jobs.Queue, job core.Job, log *slog.Logger) *jobs.Worker {
	return jobs.NewWorker(queue, job, logger.Component(log, "worker"))
}
