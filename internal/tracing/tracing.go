package tracing

import (
	"context"

	"github.com/cschleiden/go-taskhub/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartActivitySpan starts the span for an activity work item, parented by the work item's trace
// context if it has one.
func StartActivitySpan(ctx context.Context, tracer trace.Tracer, wi *core.ActivityWorkItem) (context.Context, trace.Span) {
	ctx = ContextWithParent(ctx, wi.ParentTraceContext)

	return tracer.Start(ctx, "activity:"+wi.Name,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String(InstanceID, wi.InstanceID),
			attribute.Int64(TaskID, int64(wi.TaskID)),
			attribute.String(ActivityName, wi.Name),
			attribute.String(TaskExecutionID, wi.TaskExecutionID),
		))
}

func WithSpanError(span trace.Span, err error) error {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}

	return err
}

// EndSpan sets the final status of the span and ends it.
func EndSpan(span trace.Span, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
	} else {
		WithSpanError(span, err)
		span.RecordError(err)
	}

	span.End()
}
