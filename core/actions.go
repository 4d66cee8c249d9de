package core

import "time"

type ActionType uint

const (
	_ ActionType = iota

	ActionType_ScheduleTask
	ActionType_CreateTimer
	ActionType_CreateSubOrchestration
	ActionType_SendEvent
	ActionType_CompleteOrchestration
)

func (at ActionType) String() string {
	switch at {
	case ActionType_ScheduleTask:
		return "ScheduleTask"
	case ActionType_CreateTimer:
		return "CreateTimer"
	case ActionType_CreateSubOrchestration:
		return "CreateSubOrchestration"
	case ActionType_SendEvent:
		return "SendEvent"
	case ActionType_CompleteOrchestration:
		return "CompleteOrchestration"
	default:
		return "Unknown"
	}
}

type OrchestrationStatus uint

const (
	OrchestrationStatusRunning OrchestrationStatus = iota
	OrchestrationStatusCompleted
	OrchestrationStatusFailed
	OrchestrationStatusTerminated
	OrchestrationStatusContinuedAsNew
	OrchestrationStatusPending
)

func (s OrchestrationStatus) String() string {
	switch s {
	case OrchestrationStatusRunning:
		return "Running"
	case OrchestrationStatusCompleted:
		return "Completed"
	case OrchestrationStatusFailed:
		return "Failed"
	case OrchestrationStatusTerminated:
		return "Terminated"
	case OrchestrationStatusContinuedAsNew:
		return "ContinuedAsNew"
	case OrchestrationStatusPending:
		return "Pending"
	default:
		return "Unknown"
	}
}

// Final returns true if no further work will be done for an instance in this status.
func (s OrchestrationStatus) Final() bool {
	switch s {
	case OrchestrationStatusCompleted, OrchestrationStatusFailed, OrchestrationStatusTerminated:
		return true
	}

	return false
}

// Action is an instruction produced by an orchestration task for the coordinator. The ID is the
// sequence number of the action within the orchestration; the coordinator records it as the EventID
// of the history event acknowledging the action.
type Action struct {
	ID int32 `json:"id"`

	Type ActionType `json:"type"`

	Attributes any `json:"attr,omitempty"`
}

type ScheduleTaskAttributes struct {
	Name string `json:"name"`

	Input *string `json:"input,omitempty"`

	TaskExecutionID string `json:"taskExecutionId"`
}

type CreateTimerAttributes struct {
	FireAt time.Time `json:"fireAt"`

	Name string `json:"name,omitempty"`
}

type CreateSubOrchestrationAttributes struct {
	Name string `json:"name"`

	InstanceID string `json:"instanceId"`

	Input *string `json:"input,omitempty"`
}

type SendEventAttributes struct {
	InstanceID string `json:"instanceId"`

	Name string `json:"name"`

	Data *string `json:"data,omitempty"`
}

type CompleteOrchestrationAttributes struct {
	Status OrchestrationStatus `json:"status"`

	// Result is the output of the orchestration, or the new input when continued as new.
	Result *string `json:"result,omitempty"`

	FailureDetails *FailureDetails `json:"failure,omitempty"`

	// CarryoverEvents are unprocessed external events passed to the next generation when continued as new.
	CarryoverEvents []*HistoryEvent `json:"carryover,omitempty"`
}

func NewScheduleTaskAction(id int32, name string, input *string, taskExecutionID string) *Action {
	return &Action{ID: id, Type: ActionType_ScheduleTask, Attributes: &ScheduleTaskAttributes{
		Name:            name,
		Input:           input,
		TaskExecutionID: taskExecutionID,
	}}
}

func NewCreateTimerAction(id int32, fireAt time.Time, name string) *Action {
	return &Action{ID: id, Type: ActionType_CreateTimer, Attributes: &CreateTimerAttributes{
		FireAt: fireAt,
		Name:   name,
	}}
}

func NewCreateSubOrchestrationAction(id int32, name, instanceID string, input *string) *Action {
	return &Action{ID: id, Type: ActionType_CreateSubOrchestration, Attributes: &CreateSubOrchestrationAttributes{
		Name:       name,
		InstanceID: instanceID,
		Input:      input,
	}}
}

func NewSendEventAction(id int32, instanceID, name string, data *string) *Action {
	return &Action{ID: id, Type: ActionType_SendEvent, Attributes: &SendEventAttributes{
		InstanceID: instanceID,
		Name:       name,
		Data:       data,
	}}
}

func NewCompleteOrchestrationAction(id int32, status OrchestrationStatus, result *string, failure *FailureDetails) *Action {
	return &Action{ID: id, Type: ActionType_CompleteOrchestration, Attributes: &CompleteOrchestrationAttributes{
		Status:         status,
		Result:         result,
		FailureDetails: failure,
	}}
}
