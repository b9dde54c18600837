package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/build-warden/internal/config"
	"github.com/sevigo/build-warden/internal/core"
	"github.com/sevigo/build-warden/internal/jobs"
	"github.com/sevigo/build-warden/internal/server"
)

type stubJob struct {
	mu      sync.Mutex
	prepErr error
	runErr  error
	seen    int
}

func (j *stubJob) Prepare(context.Context) error { return j.prepErr }

func (j *stubJob) Run(context.Context, *core.BuildEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.seen++
	return j.runErr
}

func (j *stubJob) count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.seen
}

func newTestApp(t *testing.T, job core.Job) (*App, *jobs.Dispatcher, *jobs.Worker) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{
		Server:       config.ServerConfig{Bind: "127.0.0.1", Port: 0},
		CIPlatform:   config.PlatformActions,
		Repositories: core.RepositorySet{Primary: "rust-lang/rust"},
	}

	queue := jobs.NewQueue()
	dispatcher := jobs.NewDispatcher(queue, logger)
	worker := jobs.NewWorker(queue, job, logger)
	srv := server.NewServer(cfg, dispatcher, logger)
	return NewApp(cfg, srv, dispatcher, worker, logger), dispatcher, worker
}

func event(id string) *core.BuildEvent {
	return &core.BuildEvent{Repo: "rust-lang/rust", BuildID: id, Status: core.StatusFailed}
}

func runApp(t *testing.T, a *App, ctx context.Context) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
		return nil
	}
}

func TestApp_RunReturnsWorkerFault(t *testing.T) {
	job := &stubJob{runErr: core.Fatal(errors.New("failed to save index"))}
	a, dispatcher, worker := newTestApp(t, job)
	require.NoError(t, dispatcher.Dispatch(context.Background(), event("1")))
	require.NoError(t, dispatcher.Dispatch(context.Background(), event("2")))

	err := runApp(t, a, context.Background())

	require.Error(t, err)
	assert.True(t, core.IsFatal(err))
	assert.True(t, worker.Faulted())
	assert.Equal(t, 1, job.count())
}

func TestApp_RunFailsWhenWorkerCannotStart(t *testing.T) {
	job := &stubJob{prepErr: errors.New("corrupt index")}
	a, _, worker := newTestApp(t, job)

	err := runApp(t, a, context.Background())

	require.Error(t, err)
	assert.True(t, core.IsFatal(err))
	assert.True(t, worker.Faulted())
}

func TestApp_CancelDrainsQueue(t *testing.T) {
	job := &stubJob{runErr: errors.New("log not found")}
	a, dispatcher, worker := newTestApp(t, job)
	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, dispatcher.Dispatch(context.Background(), event(id)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := runApp(t, a, ctx)

	require.NoError(t, err)
	assert.False(t, worker.Faulted())
	assert.Equal(t, core.WorkerStopped, worker.State())
	assert.Equal(t, 3, job.count())
}
