package core

import (
	"context"
)

// JobDispatcher defines the contract for a system that can accept and queue
// build events for asynchronous processing. This interface decouples the
// webhook handler from the worker that processes the events.
type JobDispatcher interface {
	// Dispatch queues a BuildEvent. It must not wait for the event to be processed.
	Dispatch(ctx context.Context, event *BuildEvent) error
}

// Job is the unit of work the worker runs for each dequeued event.
type Job interface {
	// Prepare is called once, before the first Run. An error stops the worker.
	Prepare(ctx context.Context) error
	// Run processes one event. Errors for which IsFatal reports true stop the
	// worker; any other error only affects this event.
	Run(ctx context.Context, event *BuildEvent) error
}

// CIPlatform fetches build logs and posts comments for one CI provider.
//
//go:generate mockgen -destination=../mocks/mock_ci_platform.go -package=mocks . CIPlatform
type CIPlatform interface {
	Name() string
	// FetchLog returns the raw log text of a build job. It returns an error
	// wrapping ErrNotFound when the log does not exist.
	FetchLog(ctx context.Context, ref BuildRef) (string, error)
	PostComment(ctx context.Context, target CommentTarget, body string) error
}

// Analyzer turns a build log into a diagnosis. It must not modify idx; the
// learned state is returned as a new index.
type Analyzer interface {
	Analyze(ctx context.Context, log string, idx Index) (*Diagnosis, Index, error)
}

// Index is the analyzer's persisted knowledge base. The worker treats it as opaque.
type Index interface {
	Stats() IndexStats
}

// IndexStats summarizes an index for logs and the CLI.
type IndexStats struct {
	Processed     uint64 `json:"processed" yaml:"processed"`
	DistinctLines int    `json:"distinct_lines" yaml:"distinct_lines"`
}

// IndexStore loads and saves the index. Load returns an empty index when
// nothing has been stored yet.
type IndexStore interface {
	Load(ctx context.Context) (Index, error)
	Save(ctx context.Context, idx Index) error
	Location() string
}

// WorkerState is the lifecycle state of the single worker.
type WorkerState int32

const (
	WorkerStarting WorkerState = iota
	WorkerRunning
	WorkerDraining
	WorkerFaulted
	WorkerStopped
)

func (s WorkerState) String() string {
	switch s {
	case WorkerStarting:
		return "starting"
	case WorkerRunning:
		return "running"
	case WorkerDraining:
		return "draining"
	case WorkerFaulted:
		return "faulted"
	case WorkerStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
