package worker

import (
	"context"

	"github.com/cschleiden/go-taskhub/activity"
	"github.com/cschleiden/go-taskhub/coordinator"
	internal "github.com/cschleiden/go-taskhub/internal/worker"
	"github.com/cschleiden/go-taskhub/registry"
	"github.com/cschleiden/go-taskhub/workflow"
)

// Worker executes the orchestrator and activity work items dispatched by a coordinator.
type Worker struct {
	coordinator coordinator.Coordinator

	registry *registry.Registry

	w *internal.Worker
}

// New creates a worker for the given coordinator. Register orchestrators and activities before
// calling Start.
func New(c coordinator.Coordinator, options *Options) *Worker {
	if options == nil {
		options = &DefaultOptions
	}

	r := registry.New()
	rt := internal.NewRuntime(c, r, c.Options())

	return &Worker{
		coordinator: c,
		registry:    r,
		w: internal.NewWorker(c, rt, &internal.Options{
			Pollers:                      options.Pollers,
			MaxParallelOrchestratorTasks: options.MaxParallelOrchestratorTasks,
			MaxParallelActivityTasks:     options.MaxParallelActivityTasks,
			PollingInterval:              options.PollingInterval,
		}),
	}
}

// Start starts the worker.
//
// To stop the worker, cancel the context passed to Start. To wait for completion of the active
// work items, call `WaitForCompletion`.
func (w *Worker) Start(ctx context.Context) error {
	return w.w.Start(ctx)
}

// WaitForCompletion waits for all active work items to complete.
func (w *Worker) WaitForCompletion() error {
	return w.w.WaitForCompletion()
}

// RegisterOrchestrator registers an orchestrator with the worker's registry.
func (w *Worker) RegisterOrchestrator(o workflow.Orchestrator, opts ...registry.RegisterOption) error {
	return w.registry.RegisterOrchestrator(o, opts...)
}

// RegisterActivity registers an activity with the worker's registry.
func (w *Worker) RegisterActivity(a activity.Activity, opts ...registry.RegisterOption) error {
	return w.registry.RegisterActivity(a, opts...)
}

// RegisterActivities registers all activity methods of the given struct pointer.
func (w *Worker) RegisterActivities(receiver any) error {
	return w.registry.RegisterActivities(receiver)
}
