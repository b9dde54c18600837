package jobs

import (
	"context"
	"errors"
	"sync"

	"github.com/sevigo/build-warden/internal/core"
)

// ErrQueueClosed is returned by Enqueue after Close, and by Dequeue once the
// queue is closed and empty.
var ErrQueueClosed = errors.New("queue closed")

// Queue is an unbounded FIFO of build events with many producers and a single
// consumer. Enqueue never blocks, so webhook handlers are never slowed down by
// a busy worker.
type Queue struct {
	mu     sync.Mutex
	items  []*core.BuildEvent
	closed bool
	// ready holds at most one wakeup for the consumer.
	ready chan struct{}
}

// NewQueue creates an empty, open queue.
func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Enqueue appends an event.
func (q *Queue) Enqueue(event *core.BuildEvent) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.items = append(q.items, event)
	q.mu.Unlock()

	q.wake()
	return nil
}

// Dequeue removes the oldest event, blocking until one is available. It
// returns ErrQueueClosed once the queue has been closed and drained, or the
// context error if ctx ends first. Only one goroutine may call Dequeue.
func (q *Queue) Dequeue(ctx context.Context) (*core.BuildEvent, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			event := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			if len(q.items) == 0 {
				q.items = nil
			}
			q.mu.Unlock()
			return event, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, ErrQueueClosed
		}

		select {
		case <-q.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close stops accepting events. Events already queued are still delivered.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) wake() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
