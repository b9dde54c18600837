package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/sevigo/build-warden/internal/core"
)

// Worker is the single consumer of the queue. Events are processed strictly
// one at a time, in the order they were queued.
type Worker struct {
	queue  *Queue
	job    core.Job
	logger *slog.Logger

	started   bool
	state     atomic.Int32
	faulted   atomic.Bool
	processed atomic.Uint64
}

// NewWorker creates a worker that runs job for every event taken from queue.
func NewWorker(queue *Queue, job core.Job, logger *slog.Logger) *Worker {
	if queue == nil {
		panic("queue cannot be nil")
	}
	if job == nil {
		panic("job cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	w := &Worker{queue: queue, job: job, logger: logger}
	w.setState(core.WorkerStarting)
	return w
}

// Start prepares the job. It is called before the webhook listener opens so
// that a broken index or bad credentials stop the process early. Start must
// not be called concurrently with Run.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.job.Prepare(ctx); err != nil {
		w.logger.Error("worker failed to start", "error", err)
		w.fault()
		return core.Fatal(err)
	}
	w.started = true
	w.setState(core.WorkerRunning)
	w.logger.Info("worker started")
	return nil
}

// Run processes events until the queue is closed and drained, ctx ends, or
// the job returns a fatal error. It calls Start first if that has not
// happened yet. A closed and drained queue returns nil; a fatal error is
// returned as is and leaves the remaining events unprocessed.
func (w *Worker) Run(ctx context.Context) error {
	if !w.started {
		if err := w.Start(ctx); err != nil {
			return err
		}
	}

	for {
		if w.queue.Closed() && w.State() == core.WorkerRunning {
			w.setState(core.WorkerDraining)
			w.logger.Info("worker draining queue", "depth", w.queue.Len())
		}

		event, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, ErrQueueClosed) {
				w.setState(core.WorkerStopped)
				w.logger.Info("worker stopped", "processed", w.Processed())
				return nil
			}
			w.setState(core.WorkerStopped)
			return err
		}

		if err := w.job.Run(ctx, event); err != nil {
			if core.IsFatal(err) {
				w.fault()
				w.logger.Error("worker faulted, remaining events are dropped",
					"event", event.String(),
					"pending", w.queue.Len(),
					"error", err)
				return err
			}
			w.logger.Error("failed to process build event",
				"event", event.String(),
				"delivery", event.DeliveryID,
				"error", err)
		}
		w.processed.Add(1)
	}
}

// State returns the current lifecycle state.
func (w *Worker) State() core.WorkerState {
	return core.WorkerState(w.state.Load())
}

// Faulted reports whether the worker stopped on a fatal error. It stays true
// after the worker has moved on to Stopped.
func (w *Worker) Faulted() bool {
	return w.faulted.Load()
}

// Processed returns the number of events taken off the queue and handled,
// successfully or not.
func (w *Worker) Processed() uint64 {
	return w.processed.Load()
}

// fault records a fatal error and stops the worker.
func (w *Worker) fault() {
	w.faulted.Store(true)
	w.setState(core.WorkerFaulted)
	w.setState(core.WorkerStopped)
}

func (w *Worker) setState(s core.WorkerState) {
	w.state.Store(int32(s))
}
