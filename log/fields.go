package log

const (
	NamespaceKey = "taskhub"

	InstanceIDKey          = NamespaceKey + ".instance.id"
	OrchestrationKey       = NamespaceKey + ".orchestration.name"
	CustomStatusKey        = NamespaceKey + ".orchestration.custom_status"
	OrchestrationStatusKey = NamespaceKey + ".orchestration.status"

	ActivityNameKey    = NamespaceKey + ".activity.name"
	TaskIDKey          = NamespaceKey + ".task.id"
	TaskExecutionIDKey = NamespaceKey + ".task.execution_id"

	WorkItemKindKey = NamespaceKey + ".work_item.kind"
	EndpointKey     = NamespaceKey + ".coordinator.endpoint"

	IsReplayingKey  = NamespaceKey + ".is_replaying"
	PastEventsKey   = NamespaceKey + ".task.past_events"
	NewEventsKey    = NamespaceKey + ".task.new_events"
	ActionsKey      = NamespaceKey + ".task.actions"
	EventTypeKey    = NamespaceKey + ".event.type"
	EventIDKey      = NamespaceKey + ".event.id"
	RunnerStateKey  = NamespaceKey + ".runner.state"
	CompensationKey = NamespaceKey + ".saga.compensation"

	AttemptKey  = NamespaceKey + ".attempt"
	DurationKey = NamespaceKey + ".duration_ms"
)
