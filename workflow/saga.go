package workflow

import (
	"errors"
	"fmt"

	"github.com/cschleiden/go-taskhub/converter"
	"github.com/cschleiden/go-taskhub/internal/fn"
	"github.com/cschleiden/go-taskhub/log"
)

// CompensationLedger is the ordered list of compensation tokens recorded during the forward part of a
// saga. It only lives in the orchestrator's local state and is rebuilt on every replay.
type CompensationLedger struct {
	tokens []string
}

// Push records a compensation token after a forward step succeeded.
func (l *CompensationLedger) Push(token string) {
	l.tokens = append(l.tokens, token)
}

// Tokens returns the recorded tokens in the order they were pushed.
func (l *CompensationLedger) Tokens() []string {
	return append([]string(nil), l.tokens...)
}

func (l *CompensationLedger) Len() int {
	return len(l.tokens)
}

// Drain returns the recorded tokens in reverse order and empties the ledger.
func (l *CompensationLedger) Drain() []string {
	drained := make([]string, 0, len(l.tokens))
	for i := len(l.tokens) - 1; i >= 0; i-- {
		drained = append(drained, l.tokens[i])
	}

	l.tokens = nil

	return drained
}

// ErrSagaAborted matches every error returned by Saga.Run when a forward step failed.
var ErrSagaAborted = errors.New("saga aborted")

// SagaAbortedError is returned by Saga.Run after a forward step failed and the recorded compensations ran.
type SagaAbortedError struct {
	// Step is the name of the forward step that failed
	Step string

	// Cause is the failure of the forward step
	Cause error

	// CompensationErr joins the failures of compensations that were skipped, nil if all succeeded
	CompensationErr error
}

func (e *SagaAbortedError) Error() string {
	if e.CompensationErr != nil {
		return fmt.Sprintf("saga aborted at step %q: %v (compensation failures: %v)", e.Step, e.Cause, e.CompensationErr)
	}

	return fmt.Sprintf("saga aborted at step %q: %v", e.Step, e.Cause)
}

func (e *SagaAbortedError) Unwrap() error {
	return e.Cause
}

func (e *SagaAbortedError) Is(target error) bool {
	return target == ErrSagaAborted
}

type SagaOptions struct {
	// CompensationRetryPolicy is applied to every compensation activity. Nil runs each compensation once
	CompensationRetryPolicy *RetryPolicy
}

// SagaStep is a forward activity call with an optional compensating activity.
type SagaStep struct {
	Activity any
	Input    any

	// Result receives the output of the forward activity, may be nil
	Result any

	RetryPolicy *RetryPolicy

	Compensation      any
	CompensationInput any
}

// Saga runs forward steps and compensates the completed ones in reverse order when a step fails.
type Saga struct {
	ctx    *OrchestrationContext
	opts   SagaOptions
	ledger CompensationLedger

	// inputs holds the serialized compensation inputs, aligned with the ledger tokens
	inputs []*string
}

func NewSaga(ctx *OrchestrationContext, opts SagaOptions) *Saga {
	return &Saga{
		ctx:  ctx,
		opts: opts,
	}
}

// AddCompensation records a compensating activity call. Compensations run in reverse order of registration.
func (s *Saga) AddCompensation(activity any, input any) error {
	payload, err := converter.ToPayload(s.ctx.converter, input)
	if err != nil {
		return fmt.Errorf("converting compensation input: %w", err)
	}

	s.ledger.Push(fn.Name(activity))
	s.inputs = append(s.inputs, payload)

	return nil
}

// Ledger returns the compensation tokens recorded so far.
func (s *Saga) Ledger() []string {
	return s.ledger.Tokens()
}

// Compensate runs all recorded compensations in reverse order. A failing compensation is logged and
// skipped; the failures are returned joined once every compensation was attempted.
func (s *Saga) Compensate() error {
	inputs := s.inputs
	s.inputs = nil

	var errs []error
	for i, token := range s.ledger.Drain() {
		input := inputs[len(inputs)-1-i]

		opts := []CallActivityOption{WithRawActivityInput(input)}
		if s.opts.CompensationRetryPolicy != nil {
			opts = append(opts, WithActivityRetryPolicy(s.opts.CompensationRetryPolicy))
		}

		if err := s.ctx.CallActivity(token, opts...).Await(nil); err != nil {
			s.ctx.Logger().Warn("compensation failed, skipping",
				log.CompensationKey, token,
				"error", err,
			)

			errs = append(errs, fmt.Errorf("compensation %q: %w", token, err))
		}
	}

	return errors.Join(errs...)
}

// Run executes the steps in order. After each successful step its compensation is recorded. If a step
// fails, the recorded compensations run in reverse order and a *SagaAbortedError is returned.
func (s *Saga) Run(steps ...SagaStep) error {
	for _, step := range steps {
		opts := []CallActivityOption{WithActivityInput(step.Input)}
		if step.RetryPolicy != nil {
			opts = append(opts, WithActivityRetryPolicy(step.RetryPolicy))
		}

		if err := s.ctx.CallActivity(step.Activity, opts...).Await(step.Result); err != nil {
			return &SagaAbortedError{
				Step:            fn.Name(step.Activity),
				Cause:           err,
				CompensationErr: s.Compensate(),
			}
		}

		if step.Compensation != nil {
			if err := s.AddCompensation(step.Compensation, step.CompensationInput); err != nil {
				return err
			}
		}
	}

	return nil
}
