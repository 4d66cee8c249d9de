package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/cschleiden/go-taskhub/converter"
	"github.com/cschleiden/go-taskhub/core"
)

// WaitForExternalEvent returns a task that completes when an event with the given name is raised for
// this instance. Event names are case-insensitive; every raised event completes exactly one task.
//
// A positive timeout cancels the task when it expires, awaiting it then returns ErrTaskCanceled. A
// timeout of zero cancels the task right away unless the event has already been received. A negative
// timeout waits indefinitely.
func (ctx *OrchestrationContext) WaitForExternalEvent(name string, timeout time.Duration) Task {
	key := strings.ToUpper(name)
	task := newTask(ctx, core.NoEventID, name)

	for i, e := range ctx.bufferedEvents {
		a := e.Attributes.(*core.EventRaisedAttributes)
		if strings.ToUpper(a.Name) != key {
			continue
		}

		ctx.bufferedEvents = append(ctx.bufferedEvents[:i:i], ctx.bufferedEvents[i+1:]...)
		task.complete(a.Input)

		return task
	}

	if timeout == 0 {
		task.cancel()
		return task
	}

	ctx.pendingEventTasks[key] = append(ctx.pendingEventTasks[key], task)

	if timeout > 0 {
		ctx.createTimerInternal(name, timeout).onCompleted(func() {
			if task.isCompleted {
				return
			}

			ctx.removeEventWaiter(key, task)
			task.cancel()
		})
	}

	return task
}

func (ctx *OrchestrationContext) removeEventWaiter(key string, task *completableTask) {
	waiters := ctx.pendingEventTasks[key]
	for i, t := range waiters {
		if t == task {
			waiters = append(waiters[:i:i], waiters[i+1:]...)
			break
		}
	}

	if len(waiters) == 0 {
		delete(ctx.pendingEventTasks, key)
		return
	}

	ctx.pendingEventTasks[key] = waiters
}

// SendEvent raises an event on another orchestration instance. The event is sent once this
// orchestration task completes.
func (ctx *OrchestrationContext) SendEvent(instanceID, name string, data any) error {
	payload, err := converter.ToPayload(ctx.converter, data)
	if err != nil {
		return fmt.Errorf("converting event data: %w", err)
	}

	action := core.NewSendEventAction(ctx.nextSequenceNumber(), instanceID, name, payload)
	ctx.pendingActions[action.ID] = action

	return nil
}
