package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/cschleiden/go-taskhub/core"
	"github.com/cschleiden/go-taskhub/internal/taskerrors"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_NextDelay(t *testing.T) {
	p := NewRetryPolicy(3,
		WithFirstRetryInterval(time.Second),
		WithMaxRetryInterval(10*time.Second),
		WithBackoffCoefficient(2),
	)
	require.NoError(t, p.Validate())

	tests := []struct {
		attempt   int
		wantDelay time.Duration
		wantRetry bool
	}{
		{attempt: 1, wantDelay: 0, wantRetry: true},
		{attempt: 2, wantDelay: time.Second, wantRetry: true},
		{attempt: 3, wantDelay: 2 * time.Second, wantRetry: true},
		{attempt: 4, wantDelay: 0, wantRetry: false},
	}

	for _, tt := range tests {
		delay, ok := p.NextDelay(tt.attempt, 0)
		require.Equal(t, tt.wantRetry, ok, "attempt %d", tt.attempt)
		require.Equal(t, tt.wantDelay, delay, "attempt %d", tt.attempt)
	}
}

func TestRetryPolicy_NextDelayIsCapped(t *testing.T) {
	p := NewRetryPolicy(5,
		WithFirstRetryInterval(time.Second),
		WithMaxRetryInterval(5*time.Second),
		WithBackoffCoefficient(10),
	)

	delay, ok := p.NextDelay(3, 0)
	require.True(t, ok)
	require.Equal(t, 5*time.Second, delay)
}

func TestRetryPolicy_NextDelayUnboundedInterval(t *testing.T) {
	p := NewRetryPolicy(10, WithBackoffCoefficient(3))

	delay, ok := p.NextDelay(4, 0)
	require.True(t, ok)
	require.Equal(t, 9*time.Second, delay)
}

func TestRetryPolicy_NextDelayRetryTimeout(t *testing.T) {
	p := NewRetryPolicy(10, WithRetryTimeout(time.Minute))

	_, ok := p.NextDelay(2, 30*time.Second)
	require.True(t, ok)

	_, ok = p.NextDelay(2, time.Minute+time.Millisecond)
	require.False(t, ok)
}

func TestRetryPolicy_Validate(t *testing.T) {
	require.ErrorIs(t, NewRetryPolicy(0).Validate(), ErrInvalidRetryPolicy)
	require.ErrorIs(t, NewRetryPolicy(1, WithBackoffCoefficient(0.5)).Validate(), ErrInvalidRetryPolicy)
	require.ErrorIs(t, NewRetryPolicy(1, WithRetryTimeout(-time.Second)).Validate(), ErrInvalidRetryPolicy)
	require.NoError(t, NewRetryPolicy(1).Validate())
}

func flakyActivity(failures int) (activityFunc, *int) {
	calls := 0
	return func(input *string) (any, error) {
		calls++
		if calls <= failures {
			return nil, errors.New("temporarily unavailable")
		}

		return "ok", nil
	}, &calls
}

func Test_CallActivity_RetriesWithBackoff(t *testing.T) {
	h := newHarness(t)

	var calls *int
	h.activities["flaky"], calls = flakyActivity(2)
	h.orchestrators["retry"] = func(ctx *OrchestrationContext) (any, error) {
		policy := NewRetryPolicy(3, WithFirstRetryInterval(time.Second), WithBackoffCoefficient(2))

		var result string
		err := ctx.CallActivity("flaky", WithActivityRetryPolicy(policy)).Await(&result)
		return result, err
	}

	c := h.run("retry", nil)

	require.Equal(t, core.OrchestrationStatusCompleted, c.Status)
	require.Equal(t, "ok", decode[string](t, c.Result))
	require.Equal(t, 3, *calls)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, h.timers)

	// Every attempt is a separate execution of the task
	require.Len(t, h.executionIDs, 3)
	require.NotEqual(t, h.executionIDs[0], h.executionIDs[1])
	require.NotEqual(t, h.executionIDs[1], h.executionIDs[2])
}

func Test_CallActivity_GivesUpAfterMaxAttempts(t *testing.T) {
	h := newHarness(t)

	var calls *int
	h.activities["flaky"], calls = flakyActivity(10)
	h.orchestrators["retry"] = func(ctx *OrchestrationContext) (any, error) {
		return nil, ctx.CallActivity("flaky", WithActivityRetryPolicy(NewRetryPolicy(2))).Await(nil)
	}

	c := h.run("retry", nil)

	require.Equal(t, core.OrchestrationStatusFailed, c.Status)
	require.Equal(t, "temporarily unavailable", c.FailureDetails.ErrorMessage)
	require.Equal(t, 2, *calls)
}

func Test_CallActivity_DoesNotRetryNonRetriableFailures(t *testing.T) {
	h := newHarness(t)

	calls := 0
	h.activities["validate"] = func(input *string) (any, error) {
		calls++
		return nil, taskerrors.NewNonRetriableError(errors.New("invalid order"))
	}
	h.orchestrators["retry"] = func(ctx *OrchestrationContext) (any, error) {
		return nil, ctx.CallActivity("validate", WithActivityRetryPolicy(NewRetryPolicy(5))).Await(nil)
	}

	c := h.run("retry", nil)

	require.Equal(t, core.OrchestrationStatusFailed, c.Status)
	require.Equal(t, 1, calls)
	require.Empty(t, h.timers)
}

func Test_CallActivity_RetryHandlerFiltersFailures(t *testing.T) {
	h := newHarness(t)

	var calls *int
	h.activities["flaky"], calls = flakyActivity(10)
	h.orchestrators["retry"] = func(ctx *OrchestrationContext) (any, error) {
		policy := NewRetryPolicy(5, WithRetryHandler(func(err error) bool { return false }))
		return nil, ctx.CallActivity("flaky", WithActivityRetryPolicy(policy)).Await(nil)
	}

	c := h.run("retry", nil)

	require.Equal(t, core.OrchestrationStatusFailed, c.Status)
	require.Equal(t, 1, *calls)
}

func Test_CallActivity_InvalidRetryPolicy(t *testing.T) {
	h := newHarness(t)
	h.orchestrators["retry"] = func(ctx *OrchestrationContext) (any, error) {
		return nil, ctx.CallActivity("flaky", WithActivityRetryPolicy(NewRetryPolicy(0))).Await(nil)
	}

	c := h.run("retry", nil)

	require.Equal(t, core.OrchestrationStatusFailed, c.Status)
	require.Contains(t, c.FailureDetails.ErrorMessage, "invalid retry policy")
	require.Empty(t, h.scheduled)
}
