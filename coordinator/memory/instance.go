package memory

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cschleiden/go-taskhub/core"
	"github.com/google/uuid"
)

// Metadata describes the current state of an orchestration instance.
type Metadata struct {
	InstanceID   string
	Name         string
	Status       core.OrchestrationStatus
	Result       *string
	Failure      *core.FailureDetails
	CustomStatus string
	CreatedAt    time.Time
	CompletedAt  time.Time
}

type parentRef struct {
	instanceID  string
	executionID string
	taskID      int32
}

type instance struct {
	id   string
	name string

	// executionID changes on every continue-as-new, results of earlier executions are dropped
	executionID string

	// dispatch counts orchestrator work items handed out for the instance
	dispatch uint64

	// history holds the events accepted by completed orchestrator work items
	history []*core.HistoryEvent

	// pending events are delivered with the next orchestrator work item
	pending []*core.HistoryEvent

	// delivered events are the new events of the outstanding orchestrator work item
	delivered []*core.HistoryEvent
	inFlight  bool

	status       core.OrchestrationStatus
	result       *string
	failure      *core.FailureDetails
	customStatus string

	parent *parentRef
	trace  *core.TraceContext
	timers []*clock.Timer

	createdAt   time.Time
	completedAt time.Time

	done chan struct{}
}

func newInstance(id, name string, input *string, trace *core.TraceContext, parent *parentRef, now time.Time) *instance {
	inst := &instance{
		id:        id,
		name:      name,
		status:    core.OrchestrationStatusPending,
		parent:    parent,
		trace:     trace,
		createdAt: now,
		done:      make(chan struct{}),
	}

	inst.pending = []*core.HistoryEvent{inst.startExecution(now, input)}

	return inst
}

// startExecution begins a new execution of the instance and returns its ExecutionStarted event.
// Timers of the previous execution are stopped.
func (i *instance) startExecution(now time.Time, input *string) *core.HistoryEvent {
	i.stopTimers()
	i.executionID = uuid.NewString()

	e := core.NewExecutionStartedEvent(now, i.name, input, i.trace)
	a := e.Attributes.(*core.ExecutionStartedAttributes)
	a.ExecutionID = i.executionID
	if i.parent != nil {
		a.ParentInstanceID = i.parent.instanceID
	}

	return e
}

func (i *instance) stopTimers() {
	for _, t := range i.timers {
		t.Stop()
	}

	i.timers = nil
}

func (i *instance) metadata() *Metadata {
	return &Metadata{
		InstanceID:   i.id,
		Name:         i.name,
		Status:       i.status,
		Result:       i.result,
		Failure:      i.failure,
		CustomStatus: i.customStatus,
		CreatedAt:    i.createdAt,
		CompletedAt:  i.completedAt,
	}
}

// carriesOver reports whether a pending event still applies after the instance continued as new.
// Results of tasks, timers and sub-orchestrations belong to the previous execution.
func carriesOver(e *core.HistoryEvent) bool {
	return e.Type == core.EventType_EventRaised || e.Type == core.EventType_ExecutionTerminated
}
