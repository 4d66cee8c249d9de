package core

import (
	"time"
)

type EventType uint

const (
	_ EventType = iota

	EventType_OrchestratorStarted
	EventType_OrchestratorCompleted

	EventType_ExecutionStarted
	EventType_ExecutionCompleted
	EventType_ExecutionTerminated

	EventType_TaskScheduled
	EventType_TaskCompleted
	EventType_TaskFailed

	EventType_TimerCreated
	EventType_TimerFired

	EventType_EventRaised
	EventType_EventSent

	EventType_SubOrchestrationCreated
	EventType_SubOrchestrationCompleted
	EventType_SubOrchestrationFailed
)

func (et EventType) String() string {
	switch et {
	case EventType_OrchestratorStarted:
		return "OrchestratorStarted"
	case EventType_OrchestratorCompleted:
		return "OrchestratorCompleted"

	case EventType_ExecutionStarted:
		return "ExecutionStarted"
	case EventType_ExecutionCompleted:
		return "ExecutionCompleted"
	case EventType_ExecutionTerminated:
		return "ExecutionTerminated"

	case EventType_TaskScheduled:
		return "TaskScheduled"
	case EventType_TaskCompleted:
		return "TaskCompleted"
	case EventType_TaskFailed:
		return "TaskFailed"

	case EventType_TimerCreated:
		return "TimerCreated"
	case EventType_TimerFired:
		return "TimerFired"

	case EventType_EventRaised:
		return "EventRaised"
	case EventType_EventSent:
		return "EventSent"

	case EventType_SubOrchestrationCreated:
		return "SubOrchestrationCreated"
	case EventType_SubOrchestrationCompleted:
		return "SubOrchestrationCompleted"
	case EventType_SubOrchestrationFailed:
		return "SubOrchestrationFailed"

	default:
		return "Unknown"
	}
}

// NoEventID is used for events that do not correlate to an action of the orchestration.
const NoEventID int32 = -1

// HistoryEvent is a single fact in the timeline of an orchestration instance. Events are recorded
// by the coordinator; only the orchestration executor interprets their attributes.
type HistoryEvent struct {
	// EventID is the sequence number of the action that caused this event, or NoEventID.
	EventID int32 `json:"id"`

	Type EventType `json:"type"`

	Timestamp time.Time `json:"ts"`

	// Attributes are event type specific attributes
	Attributes any `json:"attr,omitempty"`
}

func NewHistoryEvent(eventID int32, timestamp time.Time, eventType EventType, attributes any) *HistoryEvent {
	return &HistoryEvent{
		EventID:    eventID,
		Type:       eventType,
		Timestamp:  timestamp,
		Attributes: attributes,
	}
}

type OrchestratorStartedAttributes struct {
	// Version is the version reported by the orchestration task that processed this batch of events.
	Version *OrchestrationVersion `json:"version,omitempty"`
}

type OrchestratorCompletedAttributes struct{}

type ExecutionStartedAttributes struct {
	Name string `json:"name"`

	// ExecutionID identifies this execution of the instance, it changes on every continue-as-new
	ExecutionID string `json:"executionId,omitempty"`

	Input *string `json:"input,omitempty"`

	ParentTraceContext *TraceContext `json:"parentTrace,omitempty"`

	// ParentInstanceID is set for sub-orchestrations
	ParentInstanceID string `json:"parentInstanceId,omitempty"`
}

type ExecutionCompletedAttributes struct {
	Status OrchestrationStatus `json:"status"`

	Result *string `json:"result,omitempty"`

	FailureDetails *FailureDetails `json:"failure,omitempty"`
}

type ExecutionTerminatedAttributes struct {
	Reason *string `json:"reason,omitempty"`
}

type TaskScheduledAttributes struct {
	Name string `json:"name"`

	Input *string `json:"input,omitempty"`

	TaskExecutionID string `json:"taskExecutionId,omitempty"`
}

type TaskCompletedAttributes struct {
	TaskScheduledID int32 `json:"taskScheduledId"`

	Result *string `json:"result,omitempty"`

	TaskExecutionID string `json:"taskExecutionId,omitempty"`
}

type TaskFailedAttributes struct {
	TaskScheduledID int32 `json:"taskScheduledId"`

	FailureDetails *FailureDetails `json:"failure,omitempty"`

	TaskExecutionID string `json:"taskExecutionId,omitempty"`
}

type TimerCreatedAttributes struct {
	FireAt time.Time `json:"fireAt"`

	Name string `json:"name,omitempty"`
}

type TimerFiredAttributes struct {
	TimerID int32 `json:"timerId"`

	FireAt time.Time `json:"fireAt"`
}

type EventRaisedAttributes struct {
	Name string `json:"name"`

	Input *string `json:"input,omitempty"`
}

type EventSentAttributes struct {
	InstanceID string `json:"instanceId"`

	Name string `json:"name"`

	Input *string `json:"input,omitempty"`
}

type SubOrchestrationCreatedAttributes struct {
	Name string `json:"name"`

	InstanceID string `json:"instanceId"`

	Input *string `json:"input,omitempty"`
}

type SubOrchestrationCompletedAttributes struct {
	TaskScheduledID int32 `json:"taskScheduledId"`

	Result *string `json:"result,omitempty"`
}

type SubOrchestrationFailedAttributes struct {
	TaskScheduledID int32 `json:"taskScheduledId"`

	FailureDetails *FailureDetails `json:"failure,omitempty"`
}

func NewOrchestratorStartedEvent(timestamp time.Time) *HistoryEvent {
	return NewHistoryEvent(NoEventID, timestamp, EventType_OrchestratorStarted, &OrchestratorStartedAttributes{})
}

func NewOrchestratorCompletedEvent(timestamp time.Time) *HistoryEvent {
	return NewHistoryEvent(NoEventID, timestamp, EventType_OrchestratorCompleted, &OrchestratorCompletedAttributes{})
}

func NewExecutionStartedEvent(timestamp time.Time, name string, input *string, parentTrace *TraceContext) *HistoryEvent {
	return NewHistoryEvent(NoEventID, timestamp, EventType_ExecutionStarted, &ExecutionStartedAttributes{
		Name:               name,
		Input:              input,
		ParentTraceContext: parentTrace,
	})
}

func NewTaskScheduledEvent(taskID int32, timestamp time.Time, name string, input *string, taskExecutionID string) *HistoryEvent {
	return NewHistoryEvent(taskID, timestamp, EventType_TaskScheduled, &TaskScheduledAttributes{
		Name:            name,
		Input:           input,
		TaskExecutionID: taskExecutionID,
	})
}

func NewTaskCompletedEvent(timestamp time.Time, taskID int32, result *string, taskExecutionID string) *HistoryEvent {
	return NewHistoryEvent(NoEventID, timestamp, EventType_TaskCompleted, &TaskCompletedAttributes{
		TaskScheduledID: taskID,
		Result:          result,
		TaskExecutionID: taskExecutionID,
	})
}

func NewTaskFailedEvent(timestamp time.Time, taskID int32, failure *FailureDetails, taskExecutionID string) *HistoryEvent {
	return NewHistoryEvent(NoEventID, timestamp, EventType_TaskFailed, &TaskFailedAttributes{
		TaskScheduledID: taskID,
		FailureDetails:  failure,
		TaskExecutionID: taskExecutionID,
	})
}

func NewTimerCreatedEvent(timerID int32, timestamp time.Time, fireAt time.Time, name string) *HistoryEvent {
	return NewHistoryEvent(timerID, timestamp, EventType_TimerCreated, &TimerCreatedAttributes{
		FireAt: fireAt,
		Name:   name,
	})
}

func NewTimerFiredEvent(timestamp time.Time, timerID int32, fireAt time.Time) *HistoryEvent {
	return NewHistoryEvent(NoEventID, timestamp, EventType_TimerFired, &TimerFiredAttributes{
		TimerID: timerID,
		FireAt:  fireAt,
	})
}

func NewEventRaisedEvent(timestamp time.Time, name string, input *string) *HistoryEvent {
	return NewHistoryEvent(NoEventID, timestamp, EventType_EventRaised, &EventRaisedAttributes{
		Name:  name,
		Input: input,
	})
}

func NewExecutionTerminatedEvent(timestamp time.Time, reason *string) *HistoryEvent {
	return NewHistoryEvent(NoEventID, timestamp, EventType_ExecutionTerminated, &ExecutionTerminatedAttributes{
		Reason: reason,
	})
}

func NewSubOrchestrationCompletedEvent(timestamp time.Time, taskID int32, result *string) *HistoryEvent {
	return NewHistoryEvent(NoEventID, timestamp, EventType_SubOrchestrationCompleted, &SubOrchestrationCompletedAttributes{
		TaskScheduledID: taskID,
		Result:          result,
	})
}

func NewSubOrchestrationFailedEvent(timestamp time.Time, taskID int32, failure *FailureDetails) *HistoryEvent {
	return NewHistoryEvent(NoEventID, timestamp, EventType_SubOrchestrationFailed, &SubOrchestrationFailedAttributes{
		TaskScheduledID: taskID,
		FailureDetails:  failure,
	})
}
