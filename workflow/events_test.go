package workflow

import (
	"testing"
	"time"

	"github.com/cschleiden/go-taskhub/core"
	"github.com/stretchr/testify/require"
)

func approvalOrchestrator(timeout time.Duration) Orchestrator {
	return func(ctx *OrchestrationContext) (any, error) {
		var approver string
		if err := ctx.WaitForExternalEvent("Approval", timeout).Await(&approver); err != nil {
			return nil, err
		}

		return "approved by " + approver, nil
	}
}

func startEvents(name string) []*core.HistoryEvent {
	return []*core.HistoryEvent{
		core.NewOrchestratorStartedEvent(testStart),
		core.NewExecutionStartedEvent(testStart, name, nil, nil),
	}
}

func Test_WaitForExternalEvent_CompletesWhenRaised(t *testing.T) {
	h := newHarness(t)
	h.orchestrators["approval"] = approvalOrchestrator(-1)

	past := startEvents("approval")
	r := h.replay(nil, past)
	require.Empty(t, r.Actions)

	r = h.replay(past, []*core.HistoryEvent{
		core.NewOrchestratorStartedEvent(testStart.Add(time.Minute)),
		core.NewEventRaisedEvent(testStart.Add(time.Minute), "APPROVAL", strptr(`"alice"`)),
	})

	c := completion(t, r)
	require.Equal(t, core.OrchestrationStatusCompleted, c.Status)
	require.Equal(t, "approved by alice", decode[string](t, c.Result))
}

func Test_WaitForExternalEvent_UsesBufferedEvent(t *testing.T) {
	h := newHarness(t)
	h.orchestrators["approval"] = func(ctx *OrchestrationContext) (any, error) {
		if err := ctx.CreateTimer(time.Minute).Await(nil); err != nil {
			return nil, err
		}

		return approvalOrchestrator(0)(ctx)
	}

	past := append(startEvents("approval"), core.NewTimerCreatedEvent(0, testStart, testStart.Add(time.Minute), ""))
	r := h.replay(past, []*core.HistoryEvent{
		core.NewOrchestratorStartedEvent(testStart.Add(time.Minute)),
		core.NewEventRaisedEvent(testStart.Add(30*time.Second), "approval", strptr(`"bob"`)),
		core.NewTimerFiredEvent(testStart.Add(time.Minute), 0, testStart.Add(time.Minute)),
	})

	c := completion(t, r)
	require.Equal(t, core.OrchestrationStatusCompleted, c.Status)
	require.Equal(t, "approved by bob", decode[string](t, c.Result))
}

func Test_WaitForExternalEvent_ZeroTimeoutCancels(t *testing.T) {
	h := newHarness(t)
	h.orchestrators["approval"] = approvalOrchestrator(0)

	r := h.replay(nil, startEvents("approval"))

	c := completion(t, r)
	require.Equal(t, core.OrchestrationStatusFailed, c.Status)
	require.Equal(t, ErrTaskCanceled.Error(), c.FailureDetails.ErrorMessage)
}

func Test_WaitForExternalEvent_TimesOut(t *testing.T) {
	h := newHarness(t)
	h.orchestrators["approval"] = approvalOrchestrator(time.Hour)

	c := h.run("approval", nil)

	require.Equal(t, core.OrchestrationStatusFailed, c.Status)
	require.Equal(t, ErrTaskCanceled.Error(), c.FailureDetails.ErrorMessage)
	require.Equal(t, []time.Duration{time.Hour}, h.timers)
}

func Test_WaitForExternalEvent_EachEventCompletesOneTask(t *testing.T) {
	h := newHarness(t)
	h.orchestrators["twice"] = func(ctx *OrchestrationContext) (any, error) {
		first := ctx.WaitForExternalEvent("vote", -1)
		second := ctx.WaitForExternalEvent("vote", -1)

		var a, b int
		if err := first.Await(&a); err != nil {
			return nil, err
		}
		if err := second.Await(&b); err != nil {
			return nil, err
		}

		return []int{a, b}, nil
	}

	r := h.replay(nil, append(startEvents("twice"),
		core.NewEventRaisedEvent(testStart, "vote", strptr("1")),
		core.NewEventRaisedEvent(testStart, "vote", strptr("2")),
	))

	c := completion(t, r)
	require.Equal(t, []int{1, 2}, decode[[]int](t, c.Result))
}

func Test_ContinueAsNew_CarriesOverUnprocessedEvents(t *testing.T) {
	h := newHarness(t)
	h.orchestrators["counter"] = func(ctx *OrchestrationContext) (any, error) {
		var n int
		if err := ctx.GetInput(&n); err != nil {
			return nil, err
		}

		if err := ctx.WaitForExternalEvent("inc", -1).Await(nil); err != nil {
			return nil, err
		}

		ctx.ContinueAsNew(n+1, WithKeepUnprocessedEvents())
		return nil, nil
	}

	r := h.replay(nil, []*core.HistoryEvent{
		core.NewOrchestratorStartedEvent(testStart),
		core.NewExecutionStartedEvent(testStart, "counter", strptr("41"), nil),
		core.NewEventRaisedEvent(testStart, "inc", nil),
		core.NewEventRaisedEvent(testStart, "inc", nil),
	})

	c := completion(t, r)
	require.Equal(t, core.OrchestrationStatusContinuedAsNew, c.Status)
	require.Equal(t, "42", *c.Result)
	require.Len(t, c.CarryoverEvents, 1)
	require.Equal(t, core.EventType_EventRaised, c.CarryoverEvents[0].Type)
}

func Test_CallSubOrchestrator(t *testing.T) {
	h := newHarness(t)
	h.orchestrators["parent"] = func(ctx *OrchestrationContext) (any, error) {
		var childResult string
		err := ctx.CallSubOrchestrator("child", WithSubOrchestratorInput("x")).Await(&childResult)
		return childResult, err
	}

	r := h.replay(nil, startEvents("parent"))
	require.Len(t, r.Actions, 1)
	require.Equal(t, core.ActionType_CreateSubOrchestration, r.Actions[0].Type)

	a := r.Actions[0].Attributes.(*core.CreateSubOrchestrationAttributes)
	require.Equal(t, "child", a.Name)
	require.Equal(t, testInstanceID+":0000", a.InstanceID)
	require.Equal(t, `"x"`, *a.Input)

	past := append(startEvents("parent"), core.NewHistoryEvent(0, testStart, core.EventType_SubOrchestrationCreated, &core.SubOrchestrationCreatedAttributes{
		Name:       "child",
		InstanceID: a.InstanceID,
		Input:      a.Input,
	}))

	r = h.replay(past, []*core.HistoryEvent{
		core.NewOrchestratorStartedEvent(testStart.Add(time.Second)),
		core.NewSubOrchestrationCompletedEvent(testStart.Add(time.Second), 0, strptr(`"child done"`)),
	})

	c := completion(t, r)
	require.Equal(t, core.OrchestrationStatusCompleted, c.Status)
	require.Equal(t, "child done", decode[string](t, c.Result))
}

func Test_CallSubOrchestrator_Failure(t *testing.T) {
	h := newHarness(t)
	h.orchestrators["parent"] = func(ctx *OrchestrationContext) (any, error) {
		return nil, ctx.CallSubOrchestrator("child", WithSubOrchestrationInstanceID("fixed")).Await(nil)
	}

	past := append(startEvents("parent"), core.NewHistoryEvent(0, testStart, core.EventType_SubOrchestrationCreated, &core.SubOrchestrationCreatedAttributes{
		Name:       "child",
		InstanceID: "fixed",
	}))

	r := h.replay(past, []*core.HistoryEvent{
		core.NewOrchestratorStartedEvent(testStart.Add(time.Second)),
		core.NewSubOrchestrationFailedEvent(testStart.Add(time.Second), 0, &core.FailureDetails{ErrorType: "ChildError", ErrorMessage: "child broke"}),
	})

	c := completion(t, r)
	require.Equal(t, core.OrchestrationStatusFailed, c.Status)
	require.Equal(t, "ChildError", c.FailureDetails.ErrorType)
	require.Equal(t, "child broke", c.FailureDetails.ErrorMessage)
}
