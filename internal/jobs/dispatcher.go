// Package jobs carries build events from the webhook handler to the single
// worker that analyzes them.
package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sevigo/build-warden/internal/core"
)

// Dispatcher implements core.JobDispatcher on top of the queue. It only
// enqueues; processing happens in the Worker.
type Dispatcher struct {
	queue  *Queue
	logger *slog.Logger
}

var _ core.JobDispatcher = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher that feeds queue.
func NewDispatcher(queue *Queue, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{queue: queue, logger: logger}
}

// Dispatch queues a build event for the worker.
func (d *Dispatcher) Dispatch(_ context.Context, event *core.BuildEvent) error {
	if err := d.queue.Enqueue(event); err != nil {
		return fmt.Errorf("cannot queue %s: %w", event, err)
	}
	d.logger.Info("queued build event",
		"repo", event.Repo,
		"build", event.BuildID,
		"job", event.JobID,
		"pr", event.PRNumber,
		"depth", d.queue.Len(),
	)
	return nil
}

// Stop closes the queue. The worker drains what is left and then exits.
func (d *Dispatcher) Stop() {
	d.logger.Info("stopping dispatcher, worker will drain the queue", "depth", d.queue.Len())
	d.queue.Close()
}
