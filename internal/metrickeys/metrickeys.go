package metrickeys

const (
	Prefix = "taskhub."

	// Orchestrations
	OrchestratorTaskProcessed = Prefix + "orchestrator.task.processed"
	OrchestratorTaskDuration  = Prefix + "orchestrator.task.duration"
	OrchestratorActions       = Prefix + "orchestrator.task.actions"

	// Activities
	ActivityTaskProcessed = Prefix + "activity.task.processed"
	ActivityTaskDuration  = Prefix + "activity.task.duration"

	// Completion reporting
	CompletionReportFailed = Prefix + "completion.failed"

	// Dispatch
	WorkItemsReceived = Prefix + "work_items.received"
	WorkItemsActive   = Prefix + "work_items.active"
)

// Tag names
const (
	ActivityName     = "activity"
	WorkItemKind     = "kind"
	Outcome          = "outcome"
	TransportFailure = "transport_failure"
)
