package workflow

import (
	"time"

	"github.com/cschleiden/go-taskhub/core"
)

type createTimerOptions struct {
	name string
}

type CreateTimerOption func(*createTimerOptions)

func WithTimerName(name string) CreateTimerOption {
	return func(opts *createTimerOptions) {
		opts.name = name
	}
}

// CreateTimer schedules a durable timer that fires after delay, measured from the current
// orchestration time.
func (ctx *OrchestrationContext) CreateTimer(delay time.Duration, opts ...CreateTimerOption) Task {
	options := new(createTimerOptions)
	for _, configure := range opts {
		configure(options)
	}

	return ctx.createTimerInternal(options.name, delay)
}

func (ctx *OrchestrationContext) createTimerInternal(name string, delay time.Duration) *completableTask {
	fireAt := ctx.currentTime.Add(delay)

	return ctx.scheduleAction(core.NewCreateTimerAction(ctx.nextSequenceNumber(), fireAt, name), name)
}
