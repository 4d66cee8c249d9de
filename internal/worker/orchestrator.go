package worker

import (
	"context"
	"log/slog"

	"github.com/cschleiden/go-taskhub/coordinator"
	"github.com/cschleiden/go-taskhub/core"
	"github.com/cschleiden/go-taskhub/internal/metrickeys"
	mi "github.com/cschleiden/go-taskhub/internal/metrics"
	"github.com/cschleiden/go-taskhub/internal/taskerrors"
	"github.com/cschleiden/go-taskhub/log"
	"github.com/cschleiden/go-taskhub/metrics"
)

// OrchestratorRunner replays a single orchestrator work item and reports the resulting actions.
type OrchestratorRunner struct {
	runner

	rt *Runtime
	wi *core.OrchestratorWorkItem
}

func NewOrchestratorRunner(rt *Runtime, wi *core.OrchestratorWorkItem) *OrchestratorRunner {
	r := &OrchestratorRunner{
		rt: rt,
		wi: wi,
	}

	r.init(rt.Logger.With(slog.String(log.InstanceIDKey, wi.InstanceID)))

	return r
}

// Run executes the orchestration and reports the result. Reporting failures are logged and not
// returned, the coordinator redelivers the work item. An executor error is reported as a failed
// completion and then returned.
func (r *OrchestratorRunner) Run(ctx context.Context) error {
	if err := r.start(); err != nil {
		return err
	}

	defer r.transition(StateTerminal)

	timer := mi.NewTimer(r.rt.Metrics, r.rt.Clock, metrickeys.OrchestratorTaskDuration, metrics.Tags{})

	res, execErr := r.rt.Orchestrations.Execute(ctx, r.wi)

	timer.Stop()

	var result *core.OrchestratorResult

	outcome := "succeeded"
	if execErr != nil {
		outcome = "failed"
		r.transition(StateFailed)
		r.logger.ErrorContext(ctx, "executing orchestration task", "error", execErr)

		result = core.NewOrchestratorResult(r.wi.InstanceID, []*core.Action{
			core.NewCompleteOrchestrationAction(0, core.OrchestrationStatusFailed, nil, taskerrors.FailureDetailsFromError(execErr)),
		}, "", nil, r.wi.CompletionToken)
	} else {
		r.transition(StateSucceeded)
		r.rt.Metrics.Distribution(metrickeys.OrchestratorActions, metrics.Tags{}, float64(len(res.Actions)))

		result = core.NewOrchestratorResult(r.wi.InstanceID, res.Actions, res.CustomStatus, res.Version, r.wi.CompletionToken)
	}

	r.rt.Metrics.Counter(metrickeys.OrchestratorTaskProcessed, metrics.Tags{metrickeys.Outcome: outcome}, 1)

	if rerr := r.rt.Reporter.CompleteOrchestratorTask(ctx, result); rerr != nil {
		failure, _ := coordinator.HandleReportingError(
			ctx, r.logger, r.rt.Reporter.Endpoint(), core.WorkItemKindOrchestrator, r.wi.InstanceID, rerr)
		r.rt.Metrics.Counter(metrickeys.CompletionReportFailed, metrics.Tags{
			metrickeys.WorkItemKind:     core.WorkItemKindOrchestrator.String(),
			metrickeys.TransportFailure: failure.String(),
		}, 1)

		return execErr
	}

	r.transition(StateReported)

	return execErr
}
