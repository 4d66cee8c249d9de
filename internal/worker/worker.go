package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cschleiden/go-taskhub/coordinator"
	"github.com/cschleiden/go-taskhub/core"
	"github.com/cschleiden/go-taskhub/internal/metrickeys"
	"github.com/cschleiden/go-taskhub/log"
	"github.com/cschleiden/go-taskhub/metrics"
)

// Worker polls the coordinator for work items and runs each of them on its own runner.
type Worker struct {
	options *Options

	c  coordinator.Coordinator
	rt *Runtime

	orchestrators *workQueue[core.OrchestratorWorkItem]
	activities    *workQueue[core.ActivityWorkItem]

	logger *slog.Logger

	pollersWg sync.WaitGroup
}

func NewWorker(c coordinator.Coordinator, rt *Runtime, options *Options) *Worker {
	if options == nil {
		options = &DefaultOptions
	}

	return &Worker{
		options:       options,
		c:             c,
		rt:            rt,
		orchestrators: newWorkQueue[core.OrchestratorWorkItem](options.MaxParallelOrchestratorTasks, activeGauge(rt, core.WorkItemKindOrchestrator)),
		activities:    newWorkQueue[core.ActivityWorkItem](options.MaxParallelActivityTasks, activeGauge(rt, core.WorkItemKindActivity)),
		logger:        rt.Logger.With(slog.String(log.EndpointKey, c.Endpoint())),
	}
}

func activeGauge(rt *Runtime, kind core.WorkItemKind) func(int64) {
	tags := metrics.Tags{metrickeys.WorkItemKind: kind.String()}

	return func(active int64) {
		rt.Metrics.Gauge(metrickeys.WorkItemsActive, tags, active)
	}
}

// Start starts the pollers. Cancel ctx to stop polling; work items already dispatched run to
// completion.
func (w *Worker) Start(ctx context.Context) error {
	pollers := w.options.Pollers
	if pollers < 1 {
		pollers = 1
	}

	w.pollersWg.Add(pollers)

	for i := 0; i < pollers; i++ {
		go w.poller(ctx)
	}

	return nil
}

// WaitForCompletion waits for the pollers to stop and all dispatched work items to finish.
func (w *Worker) WaitForCompletion() error {
	w.pollersWg.Wait()

	w.orchestrators.wait()
	w.activities.wait()

	return nil
}

func (w *Worker) poller(ctx context.Context) {
	defer w.pollersWg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		wi, err := w.c.GetWorkItem(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			w.logger.ErrorContext(ctx, "error getting work item", "error", err)
		}

		if wi == nil {
			select {
			case <-w.rt.Clock.After(w.options.PollingInterval):
			case <-ctx.Done():
				return
			}

			continue
		}

		w.dispatch(ctx, wi)
	}
}

func (w *Worker) dispatch(ctx context.Context, wi *core.WorkItem) {
	kind := wi.Kind()

	w.rt.Metrics.Counter(metrickeys.WorkItemsReceived, metrics.Tags{metrickeys.WorkItemKind: kind.String()}, 1)

	// Runners get a context that survives shutdown so in-flight work can complete.
	taskCtx := context.WithoutCancel(ctx)

	switch kind {
	case core.WorkItemKindOrchestrator:
		if err := w.orchestrators.reserve(ctx); err != nil {
			// Shutting down, the coordinator redelivers the work item.
			return
		}

		w.orchestrators.dispatch(taskCtx, wi.Orchestrator, w.handleOrchestrator)

	case core.WorkItemKindActivity:
		if err := w.activities.reserve(ctx); err != nil {
			return
		}

		w.activities.dispatch(taskCtx, wi.Activity, w.handleActivity)

	default:
		w.logger.WarnContext(ctx, "ignoring work item of unknown kind")
	}
}

func (w *Worker) handleOrchestrator(ctx context.Context, wi *core.OrchestratorWorkItem) {
	if err := NewOrchestratorRunner(w.rt, wi).Run(ctx); err != nil {
		w.logger.ErrorContext(ctx, "orchestrator work item failed",
			log.InstanceIDKey, wi.InstanceID, "error", err)
	}
}

func (w *Worker) handleActivity(ctx context.Context, wi *core.ActivityWorkItem) {
	if err := NewActivityRunner(w.rt, wi).Run(ctx); err != nil {
		w.logger.WarnContext(ctx, "activity work item failed",
			log.InstanceIDKey, wi.InstanceID, log.ActivityNameKey, wi.Name, "error", err)
	}
}
