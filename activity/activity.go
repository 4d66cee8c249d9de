package activity

import (
	"context"
	"log/slog"

	"github.com/cschleiden/go-taskhub/converter"
)

// Activity is a unit of side-effecting work scheduled by an orchestration. The returned value is
// serialized with the configured converter, a converter.RawPayload is passed through unchanged.
type Activity func(ctx Context) (any, error)

// Context is passed to every activity invocation.
type Context interface {
	context.Context

	// GetInput decodes the activity input into v
	GetInput(v any) error

	// RawInput returns the serialized input, nil if the activity was scheduled without input
	RawInput() *converter.RawPayload

	Name() string

	InstanceID() string

	TaskID() int32

	// TaskExecutionID identifies this attempt of the task. Retries of the same call get a new id.
	TaskExecutionID() string

	Logger() *slog.Logger
}

// Info describes the invocation an activity context is created for.
type Info struct {
	Name            string
	InstanceID      string
	TaskID          int32
	TaskExecutionID string
	Input           *string
}

type activityContext struct {
	context.Context

	info      Info
	converter converter.Converter
	logger    *slog.Logger
}

var _ Context = (*activityContext)(nil)

func NewContext(ctx context.Context, info Info, c converter.Converter, logger *slog.Logger) Context {
	return &activityContext{
		Context:   ctx,
		info:      info,
		converter: c,
		logger:    logger,
	}
}

func (ac *activityContext) GetInput(v any) error {
	return converter.FromPayload(ac.converter, ac.info.Input, v)
}

func (ac *activityContext) RawInput() *converter.RawPayload {
	return (*converter.RawPayload)(ac.info.Input)
}

func (ac *activityContext) Name() string {
	return ac.info.Name
}

func (ac *activityContext) InstanceID() string {
	return ac.info.InstanceID
}

func (ac *activityContext) TaskID() int32 {
	return ac.info.TaskID
}

func (ac *activityContext) TaskExecutionID() string {
	return ac.info.TaskExecutionID
}

func (ac *activityContext) Logger() *slog.Logger {
	return ac.logger
}
