package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/cschleiden/go-taskhub/core"
	"github.com/stretchr/testify/require"
)

func TestCompensationLedger_DrainReversesAndEmpties(t *testing.T) {
	var l CompensationLedger

	l.Push("undo-a")
	l.Push("undo-b")

	require.Equal(t, []string{"undo-a", "undo-b"}, l.Tokens())
	require.Equal(t, 2, l.Len())

	require.Equal(t, []string{"undo-b", "undo-a"}, l.Drain())
	require.Equal(t, 0, l.Len())
	require.Empty(t, l.Drain())
}

func newTravelHarness(t *testing.T, failing string) *harness {
	h := newHarness(t)

	for _, name := range []string{"bookFlight", "bookHotel", "bookCar", "cancelFlight", "cancelHotel", "cancelCar"} {
		name := name
		h.activities[name] = func(input *string) (any, error) {
			if name == failing {
				return nil, errors.New(name + " failed")
			}

			return name + " done", nil
		}
	}

	h.orchestrators["travel"] = func(ctx *OrchestrationContext) (any, error) {
		saga := NewSaga(ctx, SagaOptions{CompensationRetryPolicy: NewRetryPolicy(1)})

		err := saga.Run(
			SagaStep{Activity: "bookFlight", Input: "LHR-SFO", Compensation: "cancelFlight", CompensationInput: "LHR-SFO"},
			SagaStep{Activity: "bookHotel", Input: "SFO", Compensation: "cancelHotel", CompensationInput: "SFO"},
			SagaStep{Activity: "bookCar", Input: "SFO", Compensation: "cancelCar", CompensationInput: "SFO"},
		)
		if err != nil {
			return nil, err
		}

		return "booked", nil
	}

	return h
}

func Test_Saga_CompensatesInReverseOrder(t *testing.T) {
	h := newTravelHarness(t, "bookCar")

	c := h.run("travel", nil)

	require.Equal(t, core.OrchestrationStatusFailed, c.Status)
	require.Contains(t, c.FailureDetails.ErrorMessage, "bookCar failed")
	require.Equal(t, []string{"bookFlight", "bookHotel", "bookCar", "cancelHotel", "cancelFlight"}, h.scheduled)
}

func Test_Saga_Succeeds(t *testing.T) {
	h := newTravelHarness(t, "")

	c := h.run("travel", nil)

	require.Equal(t, core.OrchestrationStatusCompleted, c.Status)
	require.Equal(t, []string{"bookFlight", "bookHotel", "bookCar"}, h.scheduled)
}

func Test_Saga_SkipsFailingCompensation(t *testing.T) {
	h := newHarness(t)
	for _, name := range []string{"a", "b", "c", "undoB"} {
		h.activities[name] = func(input *string) (any, error) { return nil, nil }
	}
	h.activities["c"] = func(input *string) (any, error) { return nil, errors.New("c failed") }
	h.activities["undoB"] = func(input *string) (any, error) { return nil, errors.New("undo b failed") }
	h.activities["undoA"] = func(input *string) (any, error) { return nil, nil }

	var aborted *SagaAbortedError
	h.orchestrators["saga"] = func(ctx *OrchestrationContext) (any, error) {
		saga := NewSaga(ctx, SagaOptions{CompensationRetryPolicy: NewRetryPolicy(2, WithFirstRetryInterval(time.Second))})

		err := saga.Run(
			SagaStep{Activity: "a", Compensation: "undoA"},
			SagaStep{Activity: "b", Compensation: "undoB"},
			SagaStep{Activity: "c", Compensation: "undoC"},
		)

		if errors.As(err, &aborted) && errors.Is(err, ErrSagaAborted) {
			return "compensated", nil
		}

		return nil, err
	}

	c := h.run("saga", nil)

	require.Equal(t, core.OrchestrationStatusCompleted, c.Status)
	require.Equal(t, "compensated", decode[string](t, c.Result))

	// undoB is retried once, then skipped, and undoA still runs
	require.Equal(t, []string{"a", "b", "c", "undoB", "undoB", "undoA"}, h.scheduled)

	require.Equal(t, "c", aborted.Step)
	require.Error(t, aborted.CompensationErr)
	require.Contains(t, aborted.CompensationErr.Error(), "undo b failed")
}

func Test_Saga_ManualCompensation(t *testing.T) {
	h := newHarness(t)

	var released []string
	h.activities["release"] = func(input *string) (any, error) {
		released = append(released, decode[string](t, input))
		return nil, nil
	}

	var ledger []string
	h.orchestrators["manual"] = func(ctx *OrchestrationContext) (any, error) {
		saga := NewSaga(ctx, SagaOptions{})
		require.NoError(t, saga.AddCompensation("release", "seat-1"))
		require.NoError(t, saga.AddCompensation("release", "seat-2"))
		ledger = saga.Ledger()

		return nil, saga.Compensate()
	}

	c := h.run("manual", nil)

	require.Equal(t, core.OrchestrationStatusCompleted, c.Status)
	require.Equal(t, []string{"release", "release"}, ledger)
	require.Equal(t, []string{"seat-2", "seat-1"}, released)
}
