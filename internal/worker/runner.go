package worker

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/cschleiden/go-taskhub/coordinator"
	"github.com/cschleiden/go-taskhub/internal/activity"
	"github.com/cschleiden/go-taskhub/log"
	"github.com/cschleiden/go-taskhub/metrics"
	"github.com/cschleiden/go-taskhub/registry"
	"github.com/cschleiden/go-taskhub/workflow/executor"
	"go.opentelemetry.io/otel/trace"
)

// ErrRunnerUsed is returned when Run is called a second time on a runner.
var ErrRunnerUsed = errors.New("runner has already been run")

// State is the lifecycle state of a runner.
type State int

const (
	StateCreated State = iota
	StateExecuting
	StateSucceeded
	StateFailed
	StateReported
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateExecuting:
		return "Executing"
	case StateSucceeded:
		return "Succeeded"
	case StateFailed:
		return "Failed"
	case StateReported:
		return "Reported"
	case StateTerminal:
		return "Terminal"
	default:
		return "Unknown"
	}
}

// Runtime holds what runners share. The reporter is the only part with a connection behind it.
type Runtime struct {
	Reporter coordinator.CompletionReporter

	Activities *activity.Executor

	Orchestrations executor.OrchestrationExecutor

	Logger *slog.Logger

	// Tracer is nil if tracing is disabled.
	Tracer trace.Tracer

	Metrics metrics.Client

	Clock clock.Clock
}

func NewRuntime(reporter coordinator.CompletionReporter, r *registry.Registry, options *coordinator.Options) *Runtime {
	return &Runtime{
		Reporter:       reporter,
		Activities:     activity.NewExecutor(options.Logger, options.Converter, r),
		Orchestrations: executor.NewExecutor(r, options.Converter, options.Logger),
		Logger:         options.Logger,
		Tracer:         options.Tracer(),
		Metrics:        options.Metrics,
		Clock:          options.Clock,
	}
}

type runner struct {
	mu     sync.Mutex
	states []State
	logger *slog.Logger
}

func (r *runner) init(logger *slog.Logger) {
	r.states = []State{StateCreated}
	r.logger = logger
}

// State returns the current state of the runner.
func (r *runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.states[len(r.states)-1]
}

// Transitions returns every state the runner has been in, in order.
func (r *runner) Transitions() []State {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]State(nil), r.states...)
}

func (r *runner) start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.states[len(r.states)-1] != StateCreated {
		return ErrRunnerUsed
	}

	r.states = append(r.states, StateExecuting)

	return nil
}

func (r *runner) transition(to State) {
	r.mu.Lock()
	r.states = append(r.states, to)
	r.mu.Unlock()

	r.logger.Debug("runner state changed", log.RunnerStateKey, to.String())
}
