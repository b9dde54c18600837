package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sevigo/build-warden/internal/core"
	"github.com/sevigo/build-warden/internal/github"
)

// DiagnoseConfig holds the settings of the diagnose job.
type DiagnoseConfig struct {
	Repositories core.RepositorySet
	// DebugTarget, when set, receives every comment instead of the real pull request.
	DebugTarget *core.DebugTarget
	// CallTimeout bounds each external call made for one event.
	CallTimeout time.Duration
}

// DiagnoseJob fetches the log of a failed build, runs the analyzer, persists
// the updated index and posts the diagnosis. It owns the index; nothing else
// may read or write it.
type DiagnoseJob struct {
	cfg      DiagnoseConfig
	platform core.CIPlatform
	analyzer core.Analyzer
	store    core.IndexStore
	index    core.Index
	logger   *slog.Logger
}

var _ core.Job = (*DiagnoseJob)(nil)

// NewDiagnoseJob creates the job. It panics on missing dependencies.
func NewDiagnoseJob(cfg DiagnoseConfig, platform core.CIPlatform, analyzer core.Analyzer, store core.IndexStore, logger *slog.Logger) *DiagnoseJob {
	if platform == nil {
		panic("CI platform cannot be nil")
	}
	if analyzer == nil {
		panic("analyzer cannot be nil")
	}
	if store == nil {
		panic("index store cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 2 * time.Minute
	}
	return &DiagnoseJob{cfg: cfg, platform: platform, analyzer: analyzer, store: store, logger: logger}
}

// Prepare loads the index. Failing to load it is fatal.
func (j *DiagnoseJob) Prepare(ctx context.Context) error {
	idx, err := j.store.Load(ctx)
	if err != nil {
		return core.Fatal(fmt.Errorf("failed to load index from %s: %w", j.store.Location(), err))
	}
	j.index = idx

	stats := idx.Stats()
	j.logger.Info("index loaded",
		"location", j.store.Location(),
		"processed", stats.Processed,
		"distinct_lines", stats.DistinctLines)
	return nil
}

// Run processes one failed build.
func (j *DiagnoseJob) Run(ctx context.Context, event *core.BuildEvent) error {
	if err := validateEvent(event); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}
	if j.index == nil {
		return core.Fatal(fmt.Errorf("index not loaded"))
	}

	log := j.logger.With(
		"repo", event.Repo,
		"build", event.BuildID,
		"job", event.JobID,
		"delivery", event.DeliveryID)

	ref := core.BuildRef{
		Repo:     j.cfg.Repositories.QueryRepo(event),
		Provider: event.Provider,
		BuildID:  event.BuildID,
		JobID:    event.JobID,
	}
	log.Info("starting diagnose job", "query_repo", ref.Repo)

	text, err := j.fetchLog(ctx, ref)
	if err != nil {
		return fmt.Errorf("failed to fetch build log: %w", err)
	}

	diag, updated, err := j.analyzer.Analyze(ctx, text, j.index)
	if err != nil {
		return fmt.Errorf("failed to analyze build log: %w", err)
	}

	// The index is saved before anything is posted, so a failed post never
	// loses what was learned from this log.
	if err := j.saveIndex(ctx, updated); err != nil {
		return core.Fatal(fmt.Errorf("failed to save index to %s: %w", j.store.Location(), err))
	}
	j.index = updated

	if diag.Empty() {
		log.Info("no likely cause found", "log_bytes", len(text))
		return nil
	}

	target, ok := j.commentTarget(event)
	if !ok {
		log.Info("diagnosis found but the build has no pull request to comment on", "lines", len(diag.Lines))
		return nil
	}

	if err := j.postComment(ctx, target, github.FormatDiagnosis(event, diag)); err != nil {
		return fmt.Errorf("failed to post diagnosis to %s: %w", target, err)
	}

	log.Info("diagnosis posted", "target", target.String(), "lines", len(diag.Lines), "score", diag.Score)
	return nil
}

func (j *DiagnoseJob) fetchLog(ctx context.Context, ref core.BuildRef) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, j.cfg.CallTimeout)
	defer cancel()
	return j.platform.FetchLog(ctx, ref)
}

func (j *DiagnoseJob) saveIndex(ctx context.Context, idx core.Index) error {
	ctx, cancel := context.WithTimeout(ctx, j.cfg.CallTimeout)
	defer cancel()
	return j.store.Save(ctx, idx)
}

func (j *DiagnoseJob) postComment(ctx context.Context, target core.CommentTarget, body string) error {
	ctx, cancel := context.WithTimeout(ctx, j.cfg.CallTimeout)
	defer cancel()
	return j.platform.PostComment(ctx, target, body)
}

// commentTarget returns the debug target if one is configured, otherwise the
// pull request of the event.
func (j *DiagnoseJob) commentTarget(event *core.BuildEvent) (core.CommentTarget, bool) {
	if j.cfg.DebugTarget != nil {
		return *j.cfg.DebugTarget, true
	}
	if event.PRNumber <= 0 {
		return core.CommentTarget{}, false
	}

	repo := event.PRRepo
	if repo == "" {
		repo = event.Repo
	}
	owner, name, err := core.SplitRepo(repo)
	if err != nil {
		return core.CommentTarget{}, false
	}
	return core.CommentTarget{Owner: owner, Repo: name, Number: event.PRNumber}, true
}

// validateEvent ensures the event carries what is needed to find its log.
func validateEvent(event *core.BuildEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.Repo == "" {
		return fmt.Errorf("repository cannot be empty")
	}
	if event.BuildID == "" && event.JobID == "" {
		return fmt.Errorf("build and job id cannot both be empty")
	}
	if event.Status != core.StatusFailed {
		return fmt.Errorf("unexpected build status %q", event.Status)
	}
	return nil
}
