package workflow

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/cschleiden/go-taskhub/core"
	"github.com/cschleiden/go-taskhub/internal/taskerrors"
	"github.com/stretchr/testify/require"
)

func orderOrchestrator(ctx *OrchestrationContext) (any, error) {
	var order string
	if err := ctx.GetInput(&order); err != nil {
		return nil, err
	}

	var reservation string
	if err := ctx.CallActivity("reserve", WithActivityInput(order)).Await(&reservation); err != nil {
		return nil, err
	}

	if err := ctx.CreateTimer(time.Minute).Await(nil); err != nil {
		return nil, err
	}

	var receipt string
	if err := ctx.CallActivity("charge", WithActivityInput(reservation)).Await(&receipt); err != nil {
		return nil, err
	}

	return receipt, nil
}

func newOrderHarness(t *testing.T) *harness {
	h := newHarness(t)
	h.orchestrators["order"] = orderOrchestrator
	h.activities["reserve"] = func(input *string) (any, error) {
		return "reservation:" + decode[string](t, input), nil
	}
	h.activities["charge"] = func(input *string) (any, error) {
		return "receipt:" + decode[string](t, input), nil
	}

	return h
}

func Test_Replay_FirstExecutionSchedulesActivity(t *testing.T) {
	h := newOrderHarness(t)

	r := h.replay(nil, []*core.HistoryEvent{
		core.NewOrchestratorStartedEvent(testStart),
		core.NewExecutionStartedEvent(testStart, "order", strptr(`"o-1"`), nil),
	})

	require.Len(t, r.Actions, 1)
	require.Equal(t, int32(0), r.Actions[0].ID)
	require.Equal(t, core.ActionType_ScheduleTask, r.Actions[0].Type)

	a := r.Actions[0].Attributes.(*core.ScheduleTaskAttributes)
	require.Equal(t, "reserve", a.Name)
	require.Equal(t, `"o-1"`, *a.Input)
	require.NotEmpty(t, a.TaskExecutionID)
	require.Nil(t, r.Version)
}

func Test_Replay_RunsToCompletion(t *testing.T) {
	h := newOrderHarness(t)

	c := h.run("order", "o-1")

	require.Equal(t, core.OrchestrationStatusCompleted, c.Status)
	require.Equal(t, "receipt:reservation:o-1", decode[string](t, c.Result))
	require.Equal(t, []string{"reserve", "charge"}, h.scheduled)
	require.Equal(t, []time.Duration{time.Minute}, h.timers)
}

func Test_Replay_IsDeterministic(t *testing.T) {
	h1 := newOrderHarness(t)
	h1.run("order", "o-1")

	h2 := newOrderHarness(t)
	h2.run("order", "o-1")

	require.Equal(t, h1.past, h2.past)
	require.Equal(t, h1.executionIDs, h2.executionIDs)

	// Replaying the full history at every split point yields identical results
	for split := 0; split <= len(h1.past); split++ {
		r1 := h1.replay(h1.past[:split], h1.past[split:])
		r2 := h2.replay(h1.past[:split], h1.past[split:])
		require.Equal(t, r1, r2)
	}
}

func Test_Replay_TaskExecutionIDsAreUniquePerTask(t *testing.T) {
	h := newOrderHarness(t)
	h.run("order", "o-1")

	require.Len(t, h.executionIDs, 2)
	require.NotEqual(t, h.executionIDs[0], h.executionIDs[1])
}

func Test_Replay_TaskExecutionIDsDifferAcrossExecutions(t *testing.T) {
	h := newOrderHarness(t)

	firstActivity := func(executionID string) string {
		started := core.NewExecutionStartedEvent(testStart, "order", strptr(`"o-1"`), nil)
		started.Attributes.(*core.ExecutionStartedAttributes).ExecutionID = executionID

		r := h.replay(nil, []*core.HistoryEvent{core.NewOrchestratorStartedEvent(testStart), started})
		require.Len(t, r.Actions, 1)

		return r.Actions[0].Attributes.(*core.ScheduleTaskAttributes).TaskExecutionID
	}

	// A continued-as-new execution restarts its sequence numbers
	first := firstActivity("execution-1")
	require.Equal(t, first, firstActivity("execution-1"))
	require.NotEqual(t, first, firstActivity("execution-2"))
}

func Test_Replay_EmptyHistoryFails(t *testing.T) {
	h := newOrderHarness(t)

	r := h.replay(nil, nil)

	require.Len(t, r.Actions, 1)
	c := completion(t, r)
	require.Equal(t, core.OrchestrationStatusFailed, c.Status)
	require.Equal(t, taskerrors.TypeInvalidHistory, c.FailureDetails.ErrorType)
}

func Test_Replay_MissingExecutionStartedFails(t *testing.T) {
	h := newOrderHarness(t)

	r := h.replay(nil, []*core.HistoryEvent{core.NewOrchestratorStartedEvent(testStart)})

	c := completion(t, r)
	require.Equal(t, core.OrchestrationStatusFailed, c.Status)
	require.Equal(t, taskerrors.TypeInvalidHistory, c.FailureDetails.ErrorType)
}

func Test_Replay_UnknownOrchestrator(t *testing.T) {
	h := newHarness(t)

	r := h.replay(nil, []*core.HistoryEvent{
		core.NewOrchestratorStartedEvent(testStart),
		core.NewExecutionStartedEvent(testStart, "missing", nil, nil),
	})

	require.Len(t, r.Actions, 1)
	c := completion(t, r)
	require.Equal(t, core.OrchestrationStatusFailed, c.Status)
	require.Equal(t, taskerrors.TypeOrchestratorNotRegistered, c.FailureDetails.ErrorType)
	require.Contains(t, c.FailureDetails.ErrorMessage, "missing")
}

func Test_Replay_ActivityFailureFailsOrchestration(t *testing.T) {
	h := newOrderHarness(t)
	h.activities["charge"] = func(input *string) (any, error) {
		return nil, errors.New("card declined")
	}

	c := h.run("order", "o-1")

	require.Equal(t, core.OrchestrationStatusFailed, c.Status)
	require.Equal(t, "card declined", c.FailureDetails.ErrorMessage)
}

func Test_Replay_ActivityFailureIsTyped(t *testing.T) {
	h := newHarness(t)
	h.activities["charge"] = func(input *string) (any, error) {
		return nil, taskerrors.NewNonRetriableError(errors.New("card declined"))
	}

	var observed *core.TaskFailedError
	h.orchestrators["typed"] = func(ctx *OrchestrationContext) (any, error) {
		err := ctx.CallActivity("charge").Await(nil)
		if errors.As(err, &observed) {
			return "handled", nil
		}

		return nil, err
	}

	c := h.run("typed", nil)

	require.Equal(t, core.OrchestrationStatusCompleted, c.Status)
	require.NotNil(t, observed)
	require.Equal(t, "charge", observed.TaskName)
	require.Equal(t, "card declined", observed.Details.ErrorMessage)
	require.True(t, observed.Details.IsNonRetriable)
}

func Test_Replay_NonDeterminismFailsOrchestration(t *testing.T) {
	h := newOrderHarness(t)

	r := h.replay([]*core.HistoryEvent{
		core.NewOrchestratorStartedEvent(testStart),
		core.NewExecutionStartedEvent(testStart, "order", strptr(`"o-1"`), nil),
		core.NewTaskScheduledEvent(0, testStart, "ship", nil, "x"),
	}, []*core.HistoryEvent{
		core.NewOrchestratorStartedEvent(testStart.Add(time.Second)),
		core.NewTaskCompletedEvent(testStart.Add(time.Second), 0, strptr(`"r"`), "x"),
	})

	require.Len(t, r.Actions, 1)
	c := completion(t, r)
	require.Equal(t, core.OrchestrationStatusFailed, c.Status)
	require.Equal(t, taskerrors.TypeNonDeterminism, c.FailureDetails.ErrorType)
}

func Test_Replay_PanicIsReturned(t *testing.T) {
	h := newHarness(t)
	h.orchestrators["panics"] = func(ctx *OrchestrationContext) (any, error) {
		panic("unexpected")
	}

	_, err := Replay(ReplayOptions{
		InstanceID: testInstanceID,
		NewEvents: []*core.HistoryEvent{
			core.NewOrchestratorStartedEvent(testStart),
			core.NewExecutionStartedEvent(testStart, "panics", nil, nil),
		},
		Lookup: h.lookup,
	})

	require.Error(t, err)

	var pe *taskerrors.PanicError
	require.ErrorAs(t, err, &pe)
	require.Contains(t, pe.Error(), "unexpected")
	require.NotEmpty(t, pe.Stack())
}

func Test_Replay_TerminationOnlyEmitsCompletion(t *testing.T) {
	h := newOrderHarness(t)

	r := h.replay([]*core.HistoryEvent{
		core.NewOrchestratorStartedEvent(testStart),
		core.NewExecutionStartedEvent(testStart, "order", strptr(`"o-1"`), nil),
		core.NewTaskScheduledEvent(0, testStart, "reserve", nil, "x"),
	}, []*core.HistoryEvent{
		core.NewOrchestratorStartedEvent(testStart.Add(time.Second)),
		core.NewTaskCompletedEvent(testStart.Add(time.Second), 0, strptr(`"r"`), "x"),
		core.NewExecutionTerminatedEvent(testStart.Add(time.Second), strptr(`"operator request"`)),
	})

	require.Len(t, r.Actions, 1)
	c := completion(t, r)
	require.Equal(t, core.OrchestrationStatusTerminated, c.Status)
	require.Equal(t, `"operator request"`, *c.Result)
}

func Test_Replay_CustomStatusAndSendEvent(t *testing.T) {
	h := newHarness(t)
	h.orchestrators["notify"] = func(ctx *OrchestrationContext) (any, error) {
		ctx.SetCustomStatus("notifying")

		if err := ctx.SendEvent("other", "approved", 42); err != nil {
			return nil, err
		}

		return nil, nil
	}

	r := h.replay(nil, []*core.HistoryEvent{
		core.NewOrchestratorStartedEvent(testStart),
		core.NewExecutionStartedEvent(testStart, "notify", nil, nil),
	})

	require.Equal(t, "notifying", r.CustomStatus)
	require.Len(t, r.Actions, 2)
	require.Equal(t, core.ActionType_SendEvent, r.Actions[0].Type)

	se := r.Actions[0].Attributes.(*core.SendEventAttributes)
	require.Equal(t, "other", se.InstanceID)
	require.Equal(t, "approved", se.Name)
	require.Equal(t, "42", *se.Data)

	c := completion(t, r)
	require.Equal(t, core.OrchestrationStatusCompleted, c.Status)
	require.Nil(t, c.Result)
}

func Test_Replay_LoggerSuppressedDuringReplay(t *testing.T) {
	var buf bytes.Buffer

	h := newOrderHarness(t)
	h.logger = slog.New(slog.NewTextHandler(&buf, nil))
	h.orchestrators["order"] = func(ctx *OrchestrationContext) (any, error) {
		ctx.Logger().Info("processing order")
		return orderOrchestrator(ctx)
	}

	c := h.run("order", "o-1")
	require.Equal(t, core.OrchestrationStatusCompleted, c.Status)

	require.Equal(t, 1, strings.Count(buf.String(), "processing order"))
}

func Test_Replay_CurrentTimeComesFromHistory(t *testing.T) {
	h := newHarness(t)

	var observed []time.Time
	h.orchestrators["clock"] = func(ctx *OrchestrationContext) (any, error) {
		observed = append(observed, ctx.CurrentTime())
		if err := ctx.CreateTimer(time.Hour).Await(nil); err != nil {
			return nil, err
		}
		observed = append(observed, ctx.CurrentTime())

		return nil, nil
	}

	h.run("clock", nil)

	// first task, then the replay of the first task and the task after the timer fired
	require.Equal(t, []time.Time{testStart, testStart, testStart.Add(time.Hour)}, observed)
}
