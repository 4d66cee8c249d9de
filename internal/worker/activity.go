package worker

import (
	"context"
	"log/slog"

	"github.com/cschleiden/go-taskhub/coordinator"
	"github.com/cschleiden/go-taskhub/core"
	"github.com/cschleiden/go-taskhub/internal/activity"
	"github.com/cschleiden/go-taskhub/internal/metrickeys"
	mi "github.com/cschleiden/go-taskhub/internal/metrics"
	"github.com/cschleiden/go-taskhub/internal/taskerrors"
	"github.com/cschleiden/go-taskhub/internal/tracing"
	"github.com/cschleiden/go-taskhub/log"
	"github.com/cschleiden/go-taskhub/metrics"
	"go.opentelemetry.io/otel/trace"
)

// ActivityRunner executes a single activity work item and reports its result.
type ActivityRunner struct {
	runner

	rt *Runtime
	wi *core.ActivityWorkItem
}

func NewActivityRunner(rt *Runtime, wi *core.ActivityWorkItem) *ActivityRunner {
	r := &ActivityRunner{
		rt: rt,
		wi: wi,
	}

	r.init(rt.Logger.With(
		slog.String(log.InstanceIDKey, wi.InstanceID),
		slog.String(log.ActivityNameKey, wi.Name),
		slog.Int(log.TaskIDKey, int(wi.TaskID)),
		slog.String(log.TaskExecutionIDKey, wi.TaskExecutionID),
	))

	return r
}

// Run executes the activity and reports the result. If reporting fails, an error wrapping
// coordinator.ErrReportingFailed is returned. Otherwise, if the activity failed, its error is
// returned after the failure has been reported.
func (r *ActivityRunner) Run(ctx context.Context) (err error) {
	if err := r.start(); err != nil {
		return err
	}

	defer r.transition(StateTerminal)

	if r.rt.Tracer != nil {
		var span trace.Span
		ctx, span = tracing.StartActivitySpan(ctx, r.rt.Tracer, r.wi)
		defer func() {
			tracing.EndSpan(span, err)
		}()
	}

	ametrics := r.rt.Metrics.WithTags(metrics.Tags{metrickeys.ActivityName: r.wi.Name})
	timer := mi.NewTimer(ametrics, r.rt.Clock, metrickeys.ActivityTaskDuration, metrics.Tags{})

	var traceParent string
	if r.wi.ParentTraceContext != nil {
		traceParent = r.wi.ParentTraceContext.TraceParent
	}

	output, execErr := r.rt.Activities.Execute(ctx, activity.Invocation{
		Name:            r.wi.Name,
		Input:           r.wi.Input,
		InstanceID:      r.wi.InstanceID,
		TaskID:          r.wi.TaskID,
		TaskExecutionID: r.wi.TaskExecutionID,
		TraceParent:     traceParent,
	})

	timer.Stop()

	result := &core.ActivityResult{
		InstanceID:      r.wi.InstanceID,
		TaskID:          r.wi.TaskID,
		CompletionToken: r.wi.CompletionToken,
	}

	outcome := "succeeded"
	if execErr != nil {
		outcome = "failed"
		result.Failure = taskerrors.FailureDetailsFromError(execErr)
		r.transition(StateFailed)
		r.logger.DebugContext(ctx, "activity failed", "error", execErr)
	} else {
		result.Output = output
		r.transition(StateSucceeded)
	}

	ametrics.Counter(metrickeys.ActivityTaskProcessed, metrics.Tags{metrickeys.Outcome: outcome}, 1)

	if rerr := r.rt.Reporter.CompleteActivityTask(ctx, result); rerr != nil {
		failure, err := coordinator.HandleReportingError(
			ctx, r.logger, r.rt.Reporter.Endpoint(), core.WorkItemKindActivity, r.wi.InstanceID, rerr)
		r.rt.Metrics.Counter(metrickeys.CompletionReportFailed, metrics.Tags{
			metrickeys.WorkItemKind:     core.WorkItemKindActivity.String(),
			metrickeys.TransportFailure: failure.String(),
		}, 1)

		return err
	}

	r.transition(StateReported)

	return execErr
}
