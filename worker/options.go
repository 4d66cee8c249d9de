package worker

import "time"

type Options struct {
	// Pollers is the number of goroutines requesting work items from the coordinator. Defaults to 2.
	Pollers int

	// MaxParallelOrchestratorTasks determines the maximum number of concurrent orchestrator work items
	// processed by the worker. The default is 0 which is no limit.
	MaxParallelOrchestratorTasks int

	// MaxParallelActivityTasks determines the maximum number of concurrent activity work items processed
	// by the worker. The default is 0 which is no limit.
	MaxParallelActivityTasks int

	// PollingInterval is the delay before polling again after the coordinator returned an error.
	// Defaults to 200ms.
	PollingInterval time.Duration
}

var DefaultOptions = Options{
	Pollers:                      2,
	MaxParallelOrchestratorTasks: 0,
	MaxParallelActivityTasks:     0,
	PollingInterval:              200 * time.Millisecond,
}
