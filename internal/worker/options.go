package worker

import "time"

type Options struct {
	// Pollers is the number of goroutines requesting work items from the coordinator.
	Pollers int

	// MaxParallelOrchestratorTasks limits concurrently running orchestrator work items. 0 means no limit.
	MaxParallelOrchestratorTasks int

	// MaxParallelActivityTasks limits concurrently running activity work items. 0 means no limit.
	MaxParallelActivityTasks int

	// PollingInterval is the delay before polling again after the coordinator returned an error.
	PollingInterval time.Duration
}

var DefaultOptions = Options{
	Pollers:                      2,
	MaxParallelOrchestratorTasks: 0,
	MaxParallelActivityTasks:     0,
	PollingInterval:              200 * time.Millisecond,
}
