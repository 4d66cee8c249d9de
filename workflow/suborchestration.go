package workflow

import (
	"fmt"

	"github.com/cschleiden/go-taskhub/converter"
	"github.com/cschleiden/go-taskhub/core"
	"github.com/cschleiden/go-taskhub/internal/fn"
)

type callSubOrchestratorOptions struct {
	instanceID  string
	input       any
	rawInput    *string
	retryPolicy *RetryPolicy
}

type SubOrchestratorOption func(*callSubOrchestratorOptions) error

func WithSubOrchestratorInput(input any) SubOrchestratorOption {
	return func(opts *callSubOrchestratorOptions) error {
		opts.input = input
		return nil
	}
}

func WithRawSubOrchestratorInput(input *string) SubOrchestratorOption {
	return func(opts *callSubOrchestratorOptions) error {
		opts.rawInput = input
		return nil
	}
}

// WithSubOrchestrationInstanceID sets the instance id of the sub-orchestration. By default the id is
// derived from the parent instance id and the position of the call.
func WithSubOrchestrationInstanceID(instanceID string) SubOrchestratorOption {
	return func(opts *callSubOrchestratorOptions) error {
		opts.instanceID = instanceID
		return nil
	}
}

func WithSubOrchestrationRetryPolicy(policy *RetryPolicy) SubOrchestratorOption {
	return func(opts *callSubOrchestratorOptions) error {
		if policy == nil {
			return nil
		}

		if err := policy.Validate(); err != nil {
			return err
		}

		opts.retryPolicy = policy
		return nil
	}
}

// CallSubOrchestrator starts another orchestration as a child of this one and returns a task that
// completes with the child's result.
func (ctx *OrchestrationContext) CallSubOrchestrator(orchestrator any, opts ...SubOrchestratorOption) Task {
	name := fn.Name(orchestrator)

	options := new(callSubOrchestratorOptions)
	for _, configure := range opts {
		if err := configure(options); err != nil {
			return newFailedTask(ctx, name, err)
		}
	}

	input := options.rawInput
	if input == nil {
		var err error
		input, err = converter.ToPayload(ctx.converter, options.input)
		if err != nil {
			return newFailedTask(ctx, name, fmt.Errorf("converting sub-orchestration input: %w", err))
		}
	}

	schedule := func() *completableTask {
		id := ctx.nextSequenceNumber()

		instanceID := options.instanceID
		if instanceID == "" {
			instanceID = fmt.Sprintf("%s:%04x", ctx.instanceID, id)
		}

		return ctx.scheduleAction(core.NewCreateSubOrchestrationAction(id, name, instanceID, input), name)
	}

	if options.retryPolicy != nil {
		return newRetryTask(ctx, name, options.retryPolicy, schedule)
	}

	return schedule()
}
