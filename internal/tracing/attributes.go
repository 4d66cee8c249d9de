package tracing

const (
	InstanceID      = "taskhub.instance_id"
	TaskID          = "taskhub.task_id"
	ActivityName    = "taskhub.activity.name"
	TaskExecutionID = "taskhub.task_execution_id"
)
