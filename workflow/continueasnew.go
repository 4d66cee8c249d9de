package workflow

type ContinueAsNewOption func(*OrchestrationContext)

// WithKeepUnprocessedEvents carries external events that no task consumed over to the new execution.
func WithKeepUnprocessedEvents() ContinueAsNewOption {
	return func(ctx *OrchestrationContext) {
		ctx.keepUnprocessedEvents = true
	}
}

// ContinueAsNew restarts the orchestration with a new input and an empty history once the orchestrator
// returns. The result returned by the orchestrator is ignored.
func (ctx *OrchestrationContext) ContinueAsNew(newInput any, opts ...ContinueAsNewOption) {
	ctx.continuedAsNew = true
	ctx.continuedAsNewInput = newInput

	for _, opt := range opts {
		opt(ctx)
	}
}
