package workflow

import (
	"log/slog"
	"testing"
	"time"

	"github.com/cschleiden/go-taskhub/converter"
	"github.com/cschleiden/go-taskhub/core"
	"github.com/cschleiden/go-taskhub/internal/taskerrors"
	"github.com/stretchr/testify/require"
)

const testInstanceID = "instance-1"

var testStart = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type activityFunc func(input *string) (any, error)

// harness plays the coordinator for an orchestrator: it records acknowledgements for actions, runs
// activities inline, and fires timers.
type harness struct {
	t *testing.T

	now    time.Time
	logger *slog.Logger

	orchestrators map[string]Orchestrator
	activities    map[string]activityFunc

	past         []*core.HistoryEvent
	scheduled    []string
	executionIDs []string
	timers       []time.Duration
}

func newHarness(t *testing.T) *harness {
	return &harness{
		t:             t,
		now:           testStart,
		orchestrators: make(map[string]Orchestrator),
		activities:    make(map[string]activityFunc),
	}
}

func (h *harness) lookup(name string) (Orchestrator, string, bool) {
	o, ok := h.orchestrators[name]
	return o, "", ok
}

func (h *harness) replay(past, newEvents []*core.HistoryEvent) *ReplayResult {
	r, err := Replay(ReplayOptions{
		InstanceID: testInstanceID,
		PastEvents: past,
		NewEvents:  newEvents,
		Lookup:     h.lookup,
		Logger:     h.logger,
	})
	require.NoError(h.t, err)

	return r
}

// run drives the orchestration until it completes and returns the completion attributes.
func (h *harness) run(name string, input any) *core.CompleteOrchestrationAttributes {
	payload, err := converter.ToPayload(converter.DefaultConverter, input)
	require.NoError(h.t, err)

	newEvents := []*core.HistoryEvent{
		core.NewOrchestratorStartedEvent(h.now),
		core.NewExecutionStartedEvent(h.now, name, payload, nil),
	}

	for i := 0; i < 100; i++ {
		result := h.replay(h.past, newEvents)
		h.past = append(h.past, newEvents...)

		next := h.now.Add(time.Second)
		var results []*core.HistoryEvent

		for _, a := range result.Actions {
			switch attr := a.Attributes.(type) {
			case *core.CompleteOrchestrationAttributes:
				return attr

			case *core.ScheduleTaskAttributes:
				h.past = append(h.past, core.NewTaskScheduledEvent(a.ID, h.now, attr.Name, attr.Input, attr.TaskExecutionID))
				h.scheduled = append(h.scheduled, attr.Name)
				h.executionIDs = append(h.executionIDs, attr.TaskExecutionID)

				out, err := h.activities[attr.Name](attr.Input)
				if err != nil {
					results = append(results, core.NewTaskFailedEvent(next, a.ID, taskerrors.FailureDetailsFromError(err), attr.TaskExecutionID))
					continue
				}

				p, err := converter.ToPayload(converter.DefaultConverter, out)
				require.NoError(h.t, err)
				results = append(results, core.NewTaskCompletedEvent(next, a.ID, p, attr.TaskExecutionID))

			case *core.CreateTimerAttributes:
				h.past = append(h.past, core.NewTimerCreatedEvent(a.ID, h.now, attr.FireAt, attr.Name))
				h.timers = append(h.timers, attr.FireAt.Sub(h.now))
				if attr.FireAt.After(next) {
					next = attr.FireAt
				}
				results = append(results, core.NewTimerFiredEvent(attr.FireAt, a.ID, attr.FireAt))

			case *core.SendEventAttributes:
				h.past = append(h.past, core.NewHistoryEvent(a.ID, h.now, core.EventType_EventSent, &core.EventSentAttributes{
					InstanceID: attr.InstanceID,
					Name:       attr.Name,
					Input:      attr.Data,
				}))
			}
		}

		require.NotEmpty(h.t, results, "orchestration is blocked without pending work")

		h.now = next
		newEvents = append([]*core.HistoryEvent{core.NewOrchestratorStartedEvent(h.now)}, results...)
	}

	h.t.Fatal("orchestration did not complete")
	return nil
}

func strptr(s string) *string {
	return &s
}

func decode[T any](t *testing.T, payload *string) T {
	var v T
	require.NotNil(t, payload)
	require.NoError(t, converter.DefaultConverter.From(*payload, &v))
	return v
}

func completion(t *testing.T, r *ReplayResult) *core.CompleteOrchestrationAttributes {
	require.NotEmpty(t, r.Actions)

	last := r.Actions[len(r.Actions)-1]
	require.Equal(t, core.ActionType_CompleteOrchestration, last.Type)

	return last.Attributes.(*core.CompleteOrchestrationAttributes)
}
