package executor

import (
	"context"
	"log/slog"

	"github.com/cschleiden/go-taskhub/converter"
	"github.com/cschleiden/go-taskhub/core"
	"github.com/cschleiden/go-taskhub/log"
	"github.com/cschleiden/go-taskhub/registry"
	"github.com/cschleiden/go-taskhub/workflow"
)

type ExecutionResult struct {
	// Actions produced by the orchestration task, ordered by sequence number
	Actions []*core.Action

	CustomStatus string

	Version *core.OrchestrationVersion
}

// OrchestrationExecutor executes orchestration work items.
type OrchestrationExecutor interface {
	Execute(ctx context.Context, wi *core.OrchestratorWorkItem) (*ExecutionResult, error)
}

type executor struct {
	registry  *registry.Registry
	converter converter.Converter
	logger    *slog.Logger
}

var _ OrchestrationExecutor = (*executor)(nil)

func NewExecutor(r *registry.Registry, c converter.Converter, logger *slog.Logger) OrchestrationExecutor {
	return &executor{
		registry:  r,
		converter: c,
		logger:    logger,
	}
}

// Execute replays the orchestration of the work item over its past events and applies the new ones.
// Orchestration failures, including unknown orchestrators and histories that do not match the
// orchestrator, are returned as a failed CompleteOrchestration action. An error is only returned if
// the orchestrator panicked.
func (e *executor) Execute(ctx context.Context, wi *core.OrchestratorWorkItem) (*ExecutionResult, error) {
	logger := e.logger.With(slog.String(log.InstanceIDKey, wi.InstanceID))

	logger.Debug("executing orchestration task",
		log.PastEventsKey, len(wi.PastEvents),
		log.NewEventsKey, len(wi.NewEvents),
		log.IsReplayingKey, len(wi.PastEvents) > 0,
	)

	r, err := workflow.Replay(workflow.ReplayOptions{
		InstanceID: wi.InstanceID,
		PastEvents: wi.PastEvents,
		NewEvents:  wi.NewEvents,
		Lookup:     e.lookup,
		Converter:  e.converter,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("executed orchestration task", log.ActionsKey, len(r.Actions))

	return &ExecutionResult{
		Actions:      r.Actions,
		CustomStatus: r.CustomStatus,
		Version:      r.Version,
	}, nil
}

func (e *executor) lookup(name string) (workflow.Orchestrator, string, bool) {
	o, version, err := e.registry.GetOrchestrator(name)
	if err != nil {
		return nil, "", false
	}

	return o, version, true
}
