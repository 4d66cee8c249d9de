package core

import (
	"encoding/json"
	"fmt"
)

func (e *HistoryEvent) UnmarshalJSON(data []byte) error {
	type aevent HistoryEvent
	a := &struct {
		// Attributes defers unmarshaling until the event type is known. Has to match the struct tag in HistoryEvent
		Attributes json.RawMessage `json:"attr,omitempty"`
		*aevent
	}{
		aevent: (*aevent)(e),
	}

	if err := json.Unmarshal(data, a); err != nil {
		return err
	}

	attributes, err := deserializeEventAttributes(e.Type, a.Attributes)
	if err != nil {
		return err
	}

	e.Attributes = attributes

	return nil
}

func (a *Action) UnmarshalJSON(data []byte) error {
	type aaction Action
	aa := &struct {
		Attributes json.RawMessage `json:"attr,omitempty"`
		*aaction
	}{
		aaction: (*aaction)(a),
	}

	if err := json.Unmarshal(data, aa); err != nil {
		return err
	}

	attributes, err := deserializeActionAttributes(a.Type, aa.Attributes)
	if err != nil {
		return err
	}

	a.Attributes = attributes

	return nil
}

func deserializeEventAttributes(eventType EventType, data []byte) (any, error) {
	var attr any

	switch eventType {
	case EventType_OrchestratorStarted:
		attr = &OrchestratorStartedAttributes{}
	case EventType_OrchestratorCompleted:
		attr = &OrchestratorCompletedAttributes{}

	case EventType_ExecutionStarted:
		attr = &ExecutionStartedAttributes{}
	case EventType_ExecutionCompleted:
		attr = &ExecutionCompletedAttributes{}
	case EventType_ExecutionTerminated:
		attr = &ExecutionTerminatedAttributes{}

	case EventType_TaskScheduled:
		attr = &TaskScheduledAttributes{}
	case EventType_TaskCompleted:
		attr = &TaskCompletedAttributes{}
	case EventType_TaskFailed:
		attr = &TaskFailedAttributes{}

	case EventType_TimerCreated:
		attr = &TimerCreatedAttributes{}
	case EventType_TimerFired:
		attr = &TimerFiredAttributes{}

	case EventType_EventRaised:
		attr = &EventRaisedAttributes{}
	case EventType_EventSent:
		attr = &EventSentAttributes{}

	case EventType_SubOrchestrationCreated:
		attr = &SubOrchestrationCreatedAttributes{}
	case EventType_SubOrchestrationCompleted:
		attr = &SubOrchestrationCompletedAttributes{}
	case EventType_SubOrchestrationFailed:
		attr = &SubOrchestrationFailedAttributes{}

	default:
		return nil, fmt.Errorf("unknown event type %d when deserializing attributes", eventType)
	}

	if len(data) == 0 {
		return attr, nil
	}

	if err := json.Unmarshal(data, attr); err != nil {
		return nil, fmt.Errorf("deserializing %v attributes: %w", eventType, err)
	}

	return attr, nil
}

func deserializeActionAttributes(actionType ActionType, data []byte) (any, error) {
	var attr any

	switch actionType {
	case ActionType_ScheduleTask:
		attr = &ScheduleTaskAttributes{}
	case ActionType_CreateTimer:
		attr = &CreateTimerAttributes{}
	case ActionType_CreateSubOrchestration:
		attr = &CreateSubOrchestrationAttributes{}
	case ActionType_SendEvent:
		attr = &SendEventAttributes{}
	case ActionType_CompleteOrchestration:
		attr = &CompleteOrchestrationAttributes{}
	default:
		return nil, fmt.Errorf("unknown action type %d when deserializing attributes", actionType)
	}

	if len(data) == 0 {
		return attr, nil
	}

	if err := json.Unmarshal(data, attr); err != nil {
		return nil, fmt.Errorf("deserializing %v attributes: %w", actionType, err)
	}

	return attr, nil
}
