package workflow

import (
	"errors"

	"github.com/cschleiden/go-taskhub/converter"
	"github.com/cschleiden/go-taskhub/core"
	"github.com/cschleiden/go-taskhub/internal/taskerrors"
)

// ErrTaskCanceled is returned when awaiting a task that will never complete, for example an external
// event that timed out.
var ErrTaskCanceled = errors.New("the task was canceled")

// errTaskBlocked unwinds the orchestrator when it awaits a task that cannot complete with the
// available history.
var errTaskBlocked = errors.New("the current task is blocked")

// replayAbort unwinds the orchestrator when the history cannot be applied to it.
type replayAbort struct {
	err error
}

// Task is the result of a scheduled orchestration operation.
type Task interface {
	// Await blocks the orchestrator until the task completes and decodes its result into v. v may be nil.
	Await(v any) error

	IsComplete() bool
}

type completableTask struct {
	ctx  *OrchestrationContext
	id   int32
	name string

	isCompleted bool
	isCanceled  bool
	rawResult   *string
	failure     *core.FailureDetails

	completedCallbacks []func()
}

var _ Task = (*completableTask)(nil)

func newTask(ctx *OrchestrationContext, id int32, name string) *completableTask {
	return &completableTask{ctx: ctx, id: id, name: name}
}

func newFailedTask(ctx *OrchestrationContext, name string, err error) *completableTask {
	t := newTask(ctx, core.NoEventID, name)
	t.fail(taskerrors.FailureDetailsFromError(err))
	return t
}

func (t *completableTask) Await(v any) error {
	for !t.isCompleted {
		t.ctx.processNextEventOrBlock()
	}

	if t.isCanceled {
		return ErrTaskCanceled
	}

	if t.failure != nil {
		return taskerrors.ErrorFromFailure(t.id, t.name, t.failure)
	}

	return converter.FromPayload(t.ctx.converter, t.rawResult, v)
}

func (t *completableTask) IsComplete() bool {
	return t.isCompleted
}

func (t *completableTask) onCompleted(cb func()) {
	t.completedCallbacks = append(t.completedCallbacks, cb)

	if t.isCompleted {
		cb()
	}
}

func (t *completableTask) complete(result *string) {
	t.rawResult = result
	t.finish()
}

func (t *completableTask) fail(failure *core.FailureDetails) {
	t.failure = failure
	t.finish()
}

func (t *completableTask) cancel() {
	t.isCanceled = true
	t.finish()
}

func (t *completableTask) finish() {
	if t.isCompleted {
		return
	}

	t.isCompleted = true
	for _, cb := range t.completedCallbacks {
		cb()
	}
}
