package activity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cschleiden/go-taskhub/activity"
	"github.com/cschleiden/go-taskhub/converter"
	"github.com/cschleiden/go-taskhub/internal/taskerrors"
	"github.com/cschleiden/go-taskhub/log"
	"github.com/cschleiden/go-taskhub/registry"
)

// Invocation is a single request to run an activity.
type Invocation struct {
	Name            string
	Input           *string
	InstanceID      string
	TaskID          int32
	TaskExecutionID string

	// TraceParent of the scheduling orchestration, empty if none was propagated
	TraceParent string
}

type ActivityNotFoundError struct {
	Name string
}

func (e *ActivityNotFoundError) Error() string {
	return fmt.Sprintf("activity %q not found", e.Name)
}

func (e *ActivityNotFoundError) ErrorType() string {
	return taskerrors.TypeActivityNotFound
}

type Executor struct {
	logger    *slog.Logger
	converter converter.Converter
	r         *registry.Registry
}

func NewExecutor(logger *slog.Logger, c converter.Converter, r *registry.Registry) *Executor {
	return &Executor{
		logger:    logger,
		converter: c,
		r:         r,
	}
}

// Execute runs the activity and returns its serialized output. Panics inside the activity are
// returned as *taskerrors.PanicError. The executor keeps no record of executions; running the same
// invocation twice runs the activity twice.
func (e *Executor) Execute(ctx context.Context, inv Invocation) (result *string, err error) {
	a, err := e.r.GetActivity(inv.Name)
	if err != nil {
		return nil, &ActivityNotFoundError{Name: inv.Name}
	}

	logger := e.logger.With(
		slog.String(log.InstanceIDKey, inv.InstanceID),
		slog.String(log.ActivityNameKey, inv.Name),
		slog.Int(log.TaskIDKey, int(inv.TaskID)),
		slog.String(log.TaskExecutionIDKey, inv.TaskExecutionID),
	)

	actx := activity.NewContext(ctx, activity.Info{
		Name:            inv.Name,
		InstanceID:      inv.InstanceID,
		TaskID:          inv.TaskID,
		TaskExecutionID: inv.TaskExecutionID,
		Input:           inv.Input,
	}, e.converter, logger)

	defer func() {
		if r := recover(); r != nil {
			result, err = nil, taskerrors.NewPanicError(r)
		}
	}()

	output, err := a(actx)
	if err != nil {
		return nil, err
	}

	result, err = converter.ToPayload(e.converter, output)
	if err != nil {
		return nil, fmt.Errorf("converting activity result: %w", err)
	}

	return result, nil
}
