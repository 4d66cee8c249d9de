package workflow

import (
	"fmt"

	"github.com/cschleiden/go-taskhub/converter"
	"github.com/cschleiden/go-taskhub/core"
	"github.com/cschleiden/go-taskhub/internal/fn"
)

type callActivityOptions struct {
	input       any
	rawInput    *string
	retryPolicy *RetryPolicy
}

type CallActivityOption func(*callActivityOptions) error

// WithActivityInput sets the input of the activity. It is serialized with the configured converter.
func WithActivityInput(input any) CallActivityOption {
	return func(opts *callActivityOptions) error {
		opts.input = input
		return nil
	}
}

// WithRawActivityInput passes an already serialized input to the activity.
func WithRawActivityInput(input *string) CallActivityOption {
	return func(opts *callActivityOptions) error {
		opts.rawInput = input
		return nil
	}
}

// WithActivityRetryPolicy retries failed attempts of the activity. Every attempt is scheduled as a
// separate task; the orchestration waits between attempts with durable timers.
func WithActivityRetryPolicy(policy *RetryPolicy) CallActivityOption {
	return func(opts *callActivityOptions) error {
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

// CallActivity schedules an activity. activity is either the registered name of the activity or
// the activity function itself.
func (ctx *OrchestrationContext) CallActivity(activity any, opts ...CallActivityOption) Task {
	name := fn.Name(activity)

	options := new(callActivityOptions)
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
			return newFailedTask(ctx, name, fmt.Errorf("converting activity input: %w", err))
		}
	}

	schedule := func() *completableTask {
		id := ctx.nextSequenceNumber()
		return ctx.scheduleAction(core.NewScheduleTaskAction(id, name, input, ctx.taskExecutionID(id)), name)
	}

	if options.retryPolicy != nil {
		return newRetryTask(ctx, name, options.retryPolicy, schedule)
	}

	return schedule()
}
