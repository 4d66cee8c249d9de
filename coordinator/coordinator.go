package coordinator

import (
	"context"

	"github.com/cschleiden/go-taskhub/core"
)

// CompletionReporter pushes results back to the coordinator. Implementations must be safe for
// concurrent use, all runners of a process share one.
type CompletionReporter interface {
	// CompleteActivityTask reports the outcome of an activity work item. Reporting the same
	// completion token twice is idempotent on the coordinator side.
	CompleteActivityTask(ctx context.Context, result *core.ActivityResult) error

	// CompleteOrchestratorTask reports the actions produced by an orchestrator work item.
	CompleteOrchestratorTask(ctx context.Context, result *core.OrchestratorResult) error

	// Endpoint identifies the coordinator in log messages.
	Endpoint() string
}

// Coordinator is the external process that owns orchestration history and dispatches work items.
type Coordinator interface {
	CompletionReporter

	// GetWorkItem blocks until a work item is available or ctx is done.
	GetWorkItem(ctx context.Context) (*core.WorkItem, error)

	Options() *Options

	Close() error
}
