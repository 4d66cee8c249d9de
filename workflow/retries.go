package workflow

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cschleiden/go-taskhub/internal/taskerrors"
	"github.com/cschleiden/go-taskhub/log"
)

// RetryPolicy describes how failed activity or sub-orchestration calls are retried.
type RetryPolicy struct {
	// Maximum number of attempts, including the first one
	MaxNumberOfAttempts int

	// Time to wait before the first retry
	FirstRetryInterval time.Duration

	// Maximum delay for any individual retry. Zero means unbounded
	MaxRetryInterval time.Duration

	// Coefficient applied to the delay for every further retry
	BackoffCoefficient float64

	// Time after the first attempt after which no further retries are started. Zero means unbounded
	RetryTimeout time.Duration

	// Handle decides whether a failure is retried. Nil retries every failure that is not marked as
	// non-retriable
	Handle func(error) bool
}

type RetryPolicyOption func(*RetryPolicy)

func WithFirstRetryInterval(d time.Duration) RetryPolicyOption {
	return func(p *RetryPolicy) {
		p.FirstRetryInterval = d
	}
}

func WithMaxRetryInterval(d time.Duration) RetryPolicyOption {
	return func(p *RetryPolicy) {
		p.MaxRetryInterval = d
	}
}

func WithBackoffCoefficient(c float64) RetryPolicyOption {
	return func(p *RetryPolicy) {
		p.BackoffCoefficient = c
	}
}

func WithRetryTimeout(d time.Duration) RetryPolicyOption {
	return func(p *RetryPolicy) {
		p.RetryTimeout = d
	}
}

func WithRetryHandler(handle func(error) bool) RetryPolicyOption {
	return func(p *RetryPolicy) {
		p.Handle = handle
	}
}

// NewRetryPolicy creates a retry policy with the given number of attempts. Unless overridden, retries
// start after one second and use a constant delay without any timeout.
func NewRetryPolicy(maxNumberOfAttempts int, opts ...RetryPolicyOption) *RetryPolicy {
	p := &RetryPolicy{
		MaxNumberOfAttempts: maxNumberOfAttempts,
		FirstRetryInterval:  time.Second,
		BackoffCoefficient:  1,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

var ErrInvalidRetryPolicy = errors.New("invalid retry policy")

func (p *RetryPolicy) Validate() error {
	if p.MaxNumberOfAttempts < 1 {
		return fmt.Errorf("%w: max number of attempts must be at least 1, got %d", ErrInvalidRetryPolicy, p.MaxNumberOfAttempts)
	}

	if p.BackoffCoefficient < 1 {
		return fmt.Errorf("%w: backoff coefficient must be at least 1.0, got %v", ErrInvalidRetryPolicy, p.BackoffCoefficient)
	}

	if p.FirstRetryInterval < 0 || p.MaxRetryInterval < 0 || p.RetryTimeout < 0 {
		return fmt.Errorf("%w: intervals must not be negative", ErrInvalidRetryPolicy)
	}

	return nil
}

// NextDelay returns the delay before the given 1-based attempt, and false if no further attempt should
// be made. elapsed is the time since the first attempt was started.
func (p *RetryPolicy) NextDelay(attempt int, elapsed time.Duration) (time.Duration, bool) {
	if attempt > p.MaxNumberOfAttempts {
		return 0, false
	}

	if p.RetryTimeout > 0 && elapsed > p.RetryTimeout {
		return 0, false
	}

	if attempt <= 1 {
		return 0, true
	}

	delay := float64(p.FirstRetryInterval) * math.Pow(p.BackoffCoefficient, float64(attempt-2))
	if p.MaxRetryInterval > 0 {
		delay = math.Min(delay, float64(p.MaxRetryInterval))
	}

	// Guard against overflowing time.Duration for large exponents
	if delay >= math.MaxInt64 {
		return time.Duration(math.MaxInt64), true
	}

	return time.Duration(delay), true
}

func (p *RetryPolicy) shouldRetry(err error) bool {
	if err == nil || errors.Is(err, ErrTaskCanceled) || taskerrors.IsNonRetriable(err) {
		return false
	}

	if p.Handle != nil {
		return p.Handle(err)
	}

	return true
}

// retryTask schedules a new attempt of an operation whenever the previous attempt failed and the
// policy permits another attempt.
type retryTask struct {
	ctx      *OrchestrationContext
	name     string
	policy   *RetryPolicy
	schedule func() *completableTask

	firstAttempt time.Time
	attempt      int
	current      *completableTask

	isCompleted bool
	err         error
}

var _ Task = (*retryTask)(nil)

func newRetryTask(ctx *OrchestrationContext, name string, policy *RetryPolicy, schedule func() *completableTask) *retryTask {
	return &retryTask{
		ctx:          ctx,
		name:         name,
		policy:       policy,
		schedule:     schedule,
		firstAttempt: ctx.currentTime,
		attempt:      1,
		current:      schedule(),
	}
}

func (t *retryTask) Await(v any) error {
	for !t.isCompleted {
		err := t.current.Await(v)
		if err == nil || !t.policy.shouldRetry(err) {
			t.isCompleted, t.err = true, err
			break
		}

		delay, ok := t.policy.NextDelay(t.attempt+1, t.ctx.currentTime.Sub(t.firstAttempt))
		if !ok {
			t.isCompleted, t.err = true, err
			break
		}

		t.ctx.logger.Debug("retrying failed task",
			log.ActivityNameKey, t.name,
			log.AttemptKey, t.attempt+1,
			log.DurationKey, delay.Milliseconds(),
		)

		if delay > 0 {
			if err := t.ctx.createTimerInternal(t.name+"-retry", delay).Await(nil); err != nil {
				t.isCompleted, t.err = true, err
				break
			}
		}

		t.attempt++
		t.current = t.schedule()
	}

	if t.err != nil {
		return t.err
	}

	return t.current.Await(v)
}

func (t *retryTask) IsComplete() bool {
	return t.isCompleted
}
