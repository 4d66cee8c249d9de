package tracing

import (
	"context"

	"github.com/cschleiden/go-taskhub/core"
	"go.opentelemetry.io/otel/propagation"
)

const (
	traceParentKey = "traceparent"
	traceStateKey  = "tracestate"
)

var propagator propagation.TraceContext

// carrier is a read-only view of a trace context handed over by the coordinator.
type carrier struct {
	tc *core.TraceContext
}

var _ propagation.TextMapCarrier = carrier{}

func (c carrier) Get(key string) string {
	switch key {
	case traceParentKey:
		return c.tc.TraceParent
	case traceStateKey:
		if c.tc.TraceState != nil {
			return *c.tc.TraceState
		}
	}

	return ""
}

func (c carrier) Set(string, string) {}

func (c carrier) Keys() []string {
	return []string{traceParentKey, traceStateKey}
}

// ContextWithParent returns a context carrying the remote span described by tc. Without a trace
// context, or with an empty traceparent, ctx is returned unchanged.
func ContextWithParent(ctx context.Context, tc *core.TraceContext) context.Context {
	if tc == nil || tc.TraceParent == "" {
		return ctx
	}

	return propagator.Extract(ctx, carrier{tc: tc})
}

// TraceContextFromContext captures the span in ctx for propagation to work items. It returns nil if
// ctx does not carry a valid span.
func TraceContextFromContext(ctx context.Context) *core.TraceContext {
	c := propagation.MapCarrier{}
	propagator.Inject(ctx, c)

	tp := c.Get(traceParentKey)
	if tp == "" {
		return nil
	}

	tc := &core.TraceContext{TraceParent: tp}
	if ts := c.Get(traceStateKey); ts != "" {
		tc.TraceState = &ts
	}

	return tc
}
