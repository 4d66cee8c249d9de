package workflow

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/cschleiden/go-taskhub/converter"
	"github.com/cschleiden/go-taskhub/core"
	"github.com/cschleiden/go-taskhub/internal/taskerrors"
	"github.com/cschleiden/go-taskhub/log"
)

type ReplayOptions struct {
	InstanceID string

	// PastEvents were processed by earlier orchestration tasks
	PastEvents []*core.HistoryEvent

	// NewEvents are processed for the first time
	NewEvents []*core.HistoryEvent

	Lookup LookupFunc

	Converter converter.Converter

	Logger *slog.Logger
}

type ReplayResult struct {
	// Actions are ordered by their sequence number
	Actions []*core.Action

	CustomStatus string

	// Version is nil unless the orchestrator is registered with a version or applied a patch
	Version *core.OrchestrationVersion
}

// Replay runs the orchestrator named in the history from the beginning, feeding it past events first
// and then new events. For the same inputs it always produces the same actions.
//
// An error is only returned if the orchestrator panicked. Failures of the orchestration itself are
// reported as a failed CompleteOrchestration action.
func Replay(opts ReplayOptions) (result *ReplayResult, err error) {
	ctx := newOrchestrationContext(opts)

	if len(opts.PastEvents) == 0 && len(opts.NewEvents) == 0 {
		ctx.setAbortFailure(taskerrors.NewFailure(taskerrors.TypeInvalidHistory, "orchestration %q has no history events", opts.InstanceID))
		return ctx.result(), nil
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}

		if r == errTaskBlocked {
			// Expected when the orchestrator waits for a task that has not completed yet
			result = ctx.result()
			return
		}

		if abort, ok := r.(replayAbort); ok {
			ctx.setAbortFailure(taskerrors.FailureDetailsFromError(abort.err))
			result = ctx.result()
			return
		}

		pe := taskerrors.NewPanicError(r)
		result, err = nil, fmt.Errorf("orchestrator %q of instance %q panicked: %w", ctx.name, ctx.instanceID, pe)
	}()

	ctx.drainEvents()

	return ctx.result(), nil
}

// drainEvents applies the remaining history. It does not return if the orchestrator blocks while
// events are processed.
func (ctx *OrchestrationContext) drainEvents() {
	for {
		e, ok := ctx.nextHistoryEvent()
		if !ok {
			break
		}

		if err := ctx.processEvent(e); err != nil {
			ctx.setAbortFailure(taskerrors.FailureDetailsFromError(err))
			return
		}
	}

	if !ctx.started && ctx.completion == nil {
		ctx.setAbortFailure(taskerrors.NewFailure(taskerrors.TypeInvalidHistory, "orchestration %q has no ExecutionStarted event", ctx.instanceID))
	}
}

// processNextEventOrBlock advances the history by one event. It unwinds the orchestrator if no further
// events are available or the event cannot be applied.
func (ctx *OrchestrationContext) processNextEventOrBlock() {
	e, ok := ctx.nextHistoryEvent()
	if !ok {
		panic(errTaskBlocked)
	}

	if err := ctx.processEvent(e); err != nil {
		panic(replayAbort{err})
	}
}

func (ctx *OrchestrationContext) nextHistoryEvent() (*core.HistoryEvent, bool) {
	index := ctx.historyIndex
	if index >= len(ctx.pastEvents)+len(ctx.newEvents) {
		return nil, false
	}

	ctx.historyIndex++

	if index < len(ctx.pastEvents) {
		ctx.isReplaying = true
		return ctx.pastEvents[index], true
	}

	ctx.isReplaying = false
	return ctx.newEvents[index-len(ctx.pastEvents)], true
}

func (ctx *OrchestrationContext) processEvent(e *core.HistoryEvent) error {
	switch a := e.Attributes.(type) {
	case *core.OrchestratorStartedAttributes:
		ctx.currentTime = e.Timestamp
		return nil

	case *core.OrchestratorCompletedAttributes:
		return nil

	case *core.ExecutionStartedAttributes:
		return ctx.onExecutionStarted(a)

	case *core.ExecutionTerminatedAttributes:
		ctx.onExecutionTerminated(a)
		return nil

	case *core.ExecutionCompletedAttributes:
		return nil

	case *core.TaskScheduledAttributes:
		return ctx.onActionAcknowledged(e, core.ActionType_ScheduleTask, a.Name)

	case *core.TaskCompletedAttributes:
		ctx.onTaskResult(a.TaskScheduledID, e, func(t *completableTask) { t.complete(a.Result) })
		return nil

	case *core.TaskFailedAttributes:
		ctx.onTaskResult(a.TaskScheduledID, e, func(t *completableTask) { t.fail(a.FailureDetails) })
		return nil

	case *core.TimerCreatedAttributes:
		return ctx.onActionAcknowledged(e, core.ActionType_CreateTimer, "")

	case *core.TimerFiredAttributes:
		ctx.onTaskResult(a.TimerID, e, func(t *completableTask) { t.complete(nil) })
		return nil

	case *core.SubOrchestrationCreatedAttributes:
		return ctx.onActionAcknowledged(e, core.ActionType_CreateSubOrchestration, a.Name)

	case *core.SubOrchestrationCompletedAttributes:
		ctx.onTaskResult(a.TaskScheduledID, e, func(t *completableTask) { t.complete(a.Result) })
		return nil

	case *core.SubOrchestrationFailedAttributes:
		ctx.onTaskResult(a.TaskScheduledID, e, func(t *completableTask) { t.fail(a.FailureDetails) })
		return nil

	case *core.EventSentAttributes:
		return ctx.onActionAcknowledged(e, core.ActionType_SendEvent, a.Name)

	case *core.EventRaisedAttributes:
		ctx.onEventRaised(e, a)
		return nil

	default:
		return fmt.Errorf("don't know how to handle event %v (%d)", e.Type, e.EventID)
	}
}

func (ctx *OrchestrationContext) onExecutionStarted(a *core.ExecutionStartedAttributes) error {
	if ctx.started {
		return &NonDeterminismError{msg: "history contains more than one ExecutionStarted event"}
	}

	ctx.started = true
	ctx.name = a.Name
	ctx.executionID = a.ExecutionID
	ctx.rawInput = a.Input

	var orchestrator Orchestrator
	ok := false
	if ctx.lookup != nil {
		orchestrator, ctx.version, ok = ctx.lookup(a.Name)
	}

	if !ok {
		ctx.setFailed(taskerrors.NewFailure(taskerrors.TypeOrchestratorNotRegistered, "orchestrator %q is not registered", a.Name))
		return nil
	}

	output, appErr := orchestrator(ctx)

	switch {
	case appErr != nil:
		ctx.setFailed(taskerrors.FailureDetailsFromError(appErr))

	case ctx.continuedAsNew:
		input, err := converter.ToPayload(ctx.converter, ctx.continuedAsNewInput)
		if err != nil {
			ctx.setFailed(taskerrors.FailureDetailsFromError(fmt.Errorf("converting continue-as-new input: %w", err)))
			return nil
		}

		ctx.setCompleteInternal(core.OrchestrationStatusContinuedAsNew, input, nil)

	default:
		result, err := converter.ToPayload(ctx.converter, output)
		if err != nil {
			ctx.setFailed(taskerrors.FailureDetailsFromError(fmt.Errorf("converting orchestration result: %w", err)))
			return nil
		}

		ctx.setCompleteInternal(core.OrchestrationStatusCompleted, result, nil)
	}

	return nil
}

func (ctx *OrchestrationContext) onExecutionTerminated(a *core.ExecutionTerminatedAttributes) {
	if ctx.completion != nil {
		return
	}

	ctx.setCompleteInternal(core.OrchestrationStatusTerminated, a.Reason, nil)
	ctx.completionOnly = true
}

// onActionAcknowledged matches an event recorded for an earlier action against the action the
// orchestrator produced at the same position during this replay.
func (ctx *OrchestrationContext) onActionAcknowledged(e *core.HistoryEvent, actionType core.ActionType, name string) error {
	action, ok := ctx.pendingActions[e.EventID]
	if !ok || action.Type != actionType || (name != "" && actionName(action) != name) {
		return &NonDeterminismError{msg: fmt.Sprintf(
			"a previous execution produced %v %q with sequence number %d at this point in the orchestration, but the current execution did not",
			actionType, name, e.EventID,
		)}
	}

	delete(ctx.pendingActions, e.EventID)

	return nil
}

func (ctx *OrchestrationContext) onTaskResult(id int32, e *core.HistoryEvent, resolve func(t *completableTask)) {
	task, ok := ctx.pendingTasks[id]
	if !ok {
		// Duplicate delivery, or the result of a task this execution no longer waits for
		ctx.logger.Debug("ignoring result for unknown task",
			log.EventTypeKey, e.Type.String(),
			log.TaskIDKey, id,
		)
		return
	}

	delete(ctx.pendingTasks, id)
	resolve(task)
}

func (ctx *OrchestrationContext) onEventRaised(e *core.HistoryEvent, a *core.EventRaisedAttributes) {
	key := strings.ToUpper(a.Name)

	if waiters := ctx.pendingEventTasks[key]; len(waiters) > 0 {
		task := waiters[0]
		ctx.removeEventWaiter(key, task)
		task.complete(a.Input)
		return
	}

	ctx.bufferedEvents = append(ctx.bufferedEvents, e)
}

func (ctx *OrchestrationContext) setFailed(failure *core.FailureDetails) {
	ctx.setCompleteInternal(core.OrchestrationStatusFailed, nil, failure)
}

// setAbortFailure fails the orchestration, discarding every other action of this task.
func (ctx *OrchestrationContext) setAbortFailure(failure *core.FailureDetails) {
	ctx.completion = nil
	ctx.setFailed(failure)
	ctx.completionOnly = true
}

func (ctx *OrchestrationContext) setCompleteInternal(status core.OrchestrationStatus, result *string, failure *core.FailureDetails) {
	// The first completion wins
	if ctx.completion != nil {
		return
	}

	ctx.completion = core.NewCompleteOrchestrationAction(ctx.nextSequenceNumber(), status, result, failure)
}

func (ctx *OrchestrationContext) result() *ReplayResult {
	return &ReplayResult{
		Actions:      ctx.actions(),
		CustomStatus: ctx.customStatus,
		Version:      ctx.orchestrationVersion(),
	}
}

func (ctx *OrchestrationContext) actions() []*core.Action {
	if ctx.completion != nil {
		if ctx.continuedAsNew && ctx.keepUnprocessedEvents {
			if a, ok := ctx.completion.Attributes.(*core.CompleteOrchestrationAttributes); ok &&
				a.Status == core.OrchestrationStatusContinuedAsNew {
				a.CarryoverEvents = append([]*core.HistoryEvent(nil), ctx.bufferedEvents...)
			}
		}

		if ctx.completionOnly {
			return []*core.Action{ctx.completion}
		}
	}

	actions := make([]*core.Action, 0, len(ctx.pendingActions)+1)
	for _, a := range ctx.pendingActions {
		actions = append(actions, a)
	}

	if ctx.completion != nil {
		actions = append(actions, ctx.completion)
	}

	sort.Slice(actions, func(i, j int) bool {
		return actions[i].ID < actions[j].ID
	})

	return actions
}

func (ctx *OrchestrationContext) orchestrationVersion() *core.OrchestrationVersion {
	if ctx.version == "" && len(ctx.appliedPatches) == 0 {
		return nil
	}

	return &core.OrchestrationVersion{
		Name:    ctx.version,
		Patches: append([]string(nil), ctx.appliedPatches...),
	}
}

func actionName(a *core.Action) string {
	switch attr := a.Attributes.(type) {
	case *core.ScheduleTaskAttributes:
		return attr.Name
	case *core.CreateSubOrchestrationAttributes:
		return attr.Name
	case *core.SendEventAttributes:
		return attr.Name
	case *core.CreateTimerAttributes:
		return attr.Name
	default:
		return ""
	}
}

// NonDeterminismError is reported when the history of an instance does not match the actions its
// orchestrator produces.
type NonDeterminismError struct {
	msg string
}

func (e *NonDeterminismError) Error() string {
	return e.msg
}

func (e *NonDeterminismError) ErrorType() string {
	return taskerrors.TypeNonDeterminism
}
