package workflow

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/cschleiden/go-taskhub/converter"
	"github.com/cschleiden/go-taskhub/core"
	"github.com/google/uuid"
)

// Orchestrator is the signature of orchestration functions. An orchestrator is re-executed from the
// beginning for every orchestration task; it must only interact with the outside world through the
// OrchestrationContext.
type Orchestrator func(ctx *OrchestrationContext) (any, error)

// OrchestrationContext is the parameter type for orchestrator functions. It tracks the position of the
// orchestrator in the instance's history and collects the actions produced in the current task.
type OrchestrationContext struct {
	instanceID  string
	executionID string
	name        string
	version     string
	isReplaying bool
	currentTime time.Time

	lookup    LookupFunc
	converter converter.Converter
	logger    *slog.Logger

	rawInput     *string
	pastEvents   []*core.HistoryEvent
	newEvents    []*core.HistoryEvent
	historyIndex int
	started      bool

	sequenceNumber int32
	pendingActions map[int32]*core.Action
	pendingTasks   map[int32]*completableTask

	// completion is the first CompleteOrchestration action produced in this task
	completion     *core.Action
	completionOnly bool

	continuedAsNew        bool
	continuedAsNewInput   any
	keepUnprocessedEvents bool
	customStatus          string

	bufferedEvents    []*core.HistoryEvent
	pendingEventTasks map[string][]*completableTask

	historyPatches     map[string]bool
	encounteredPatches map[string]bool
	appliedPatches     []string
}

// LookupFunc resolves an orchestrator and its registered version by name.
type LookupFunc func(name string) (Orchestrator, string, bool)

var taskExecutionNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/cschleiden/go-taskhub/task-execution"))

func newOrchestrationContext(opts ReplayOptions) *OrchestrationContext {
	c := opts.Converter
	if c == nil {
		c = converter.DefaultConverter
	}

	ctx := &OrchestrationContext{
		instanceID:         opts.InstanceID,
		lookup:             opts.Lookup,
		converter:          c,
		pastEvents:         opts.PastEvents,
		newEvents:          opts.NewEvents,
		pendingActions:     make(map[int32]*core.Action),
		pendingTasks:       make(map[int32]*completableTask),
		pendingEventTasks:  make(map[string][]*completableTask),
		historyPatches:     make(map[string]bool),
		encounteredPatches: make(map[string]bool),
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx.logger = slog.New(&replayHandler{ctx: ctx, h: logger.Handler()})

	// Patches recorded by any earlier task apply to the whole replay
	for _, e := range opts.PastEvents {
		if e.Type != core.EventType_OrchestratorStarted {
			continue
		}

		if a, ok := e.Attributes.(*core.OrchestratorStartedAttributes); ok && a.Version != nil {
			for _, p := range a.Version.Patches {
				ctx.historyPatches[p] = true
			}
		}
	}

	return ctx
}

func (ctx *OrchestrationContext) InstanceID() string {
	return ctx.instanceID
}

// Name returns the name the orchestration was started with.
func (ctx *OrchestrationContext) Name() string {
	return ctx.name
}

// IsReplaying returns true while the orchestrator is re-executing code for events it has already processed.
func (ctx *OrchestrationContext) IsReplaying() bool {
	return ctx.isReplaying
}

// CurrentTime returns the deterministic time of the orchestration task currently being processed.
func (ctx *OrchestrationContext) CurrentTime() time.Time {
	return ctx.currentTime
}

// Logger returns a logger that drops output while the orchestrator is replaying.
func (ctx *OrchestrationContext) Logger() *slog.Logger {
	return ctx.logger
}

// GetInput decodes the orchestration input into v.
func (ctx *OrchestrationContext) GetInput(v any) error {
	return converter.FromPayload(ctx.converter, ctx.rawInput, v)
}

func (ctx *OrchestrationContext) SetCustomStatus(status string) {
	ctx.customStatus = status
}

func (ctx *OrchestrationContext) nextSequenceNumber() int32 {
	current := ctx.sequenceNumber
	ctx.sequenceNumber++
	return current
}

func (ctx *OrchestrationContext) taskExecutionID(id int32) string {
	return uuid.NewSHA1(taskExecutionNamespace, []byte(fmt.Sprintf("%s:%s:%d", ctx.instanceID, ctx.executionID, id))).String()
}

func (ctx *OrchestrationContext) scheduleAction(action *core.Action, name string) *completableTask {
	ctx.pendingActions[action.ID] = action

	task := newTask(ctx, action.ID, name)
	ctx.pendingTasks[action.ID] = task

	return task
}
