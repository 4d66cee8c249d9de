package core

// TraceContext is a W3C trace context handed from the coordinator to a work item.
type TraceContext struct {
	TraceParent string `json:"traceParent"`

	TraceState *string `json:"traceState,omitempty"`
}

type WorkItemKind int

const (
	WorkItemKindUnknown WorkItemKind = iota
	WorkItemKindOrchestrator
	WorkItemKindActivity
)

func (k WorkItemKind) String() string {
	switch k {
	case WorkItemKindOrchestrator:
		return "orchestrator"
	case WorkItemKindActivity:
		return "activity"
	default:
		return "unknown"
	}
}

// OrchestratorWorkItem asks the worker to replay an orchestration over PastEvents and apply NewEvents.
//
// PastEvents are exactly the events the coordinator accepted for this instance in earlier tasks.
type OrchestratorWorkItem struct {
	InstanceID string `json:"instanceId"`

	PastEvents []*HistoryEvent `json:"pastEvents,omitempty"`

	NewEvents []*HistoryEvent `json:"newEvents,omitempty"`

	// CompletionToken is opaque to the worker and is echoed back with the result.
	CompletionToken []byte `json:"completionToken"`
}

// ActivityWorkItem asks the worker to invoke a single activity.
type ActivityWorkItem struct {
	InstanceID string `json:"instanceId"`

	TaskID int32 `json:"taskId"`

	Name string `json:"name"`

	Input *string `json:"input,omitempty"`

	TaskExecutionID string `json:"taskExecutionId"`

	ParentTraceContext *TraceContext `json:"parentTrace,omitempty"`

	// CompletionToken is opaque to the worker and is echoed back with the result.
	CompletionToken []byte `json:"completionToken"`
}

// WorkItem is a single unit of dispatched work. Exactly one of the fields is set.
type WorkItem struct {
	Orchestrator *OrchestratorWorkItem `json:"orchestrator,omitempty"`

	Activity *ActivityWorkItem `json:"activity,omitempty"`
}

func (wi *WorkItem) Kind() WorkItemKind {
	switch {
	case wi == nil:
		return WorkItemKindUnknown
	case wi.Orchestrator != nil && wi.Activity == nil:
		return WorkItemKindOrchestrator
	case wi.Activity != nil && wi.Orchestrator == nil:
		return WorkItemKindActivity
	default:
		return WorkItemKindUnknown
	}
}

// InstanceID returns the orchestration instance the work item belongs to.
func (wi *WorkItem) InstanceID() string {
	switch wi.Kind() {
	case WorkItemKindOrchestrator:
		return wi.Orchestrator.InstanceID
	case WorkItemKindActivity:
		return wi.Activity.InstanceID
	default:
		return ""
	}
}
