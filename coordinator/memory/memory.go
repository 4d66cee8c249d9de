package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cschleiden/go-taskhub/coordinator"
	"github.com/cschleiden/go-taskhub/core"
	"github.com/cschleiden/go-taskhub/internal/tracing"
	"github.com/cschleiden/go-taskhub/log"
	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrInstanceNotFound      = errors.New("orchestration instance not found")
	ErrInstanceAlreadyExists = errors.New("orchestration instance already exists")
	ErrInstanceNotActive     = errors.New("orchestration instance is not active")
)

const endpoint = "memory"

// Coordinator keeps orchestration history in memory and dispatches work items to workers in the same
// process. It serializes orchestrator work items per instance and hands out work items again if
// they are not completed within the lease timeout. Nothing is persisted.
type Coordinator struct {
	options options
	logger  *slog.Logger
	clock   clock.Clock

	mu        sync.Mutex
	instances map[string]*instance
	queue     []*lease
	wake      chan struct{}
	closed    bool

	leases *ttlcache.Cache[string, *lease]
}

// lease is a dispatched work item together with the execution it was produced for.
type lease struct {
	wi          *core.WorkItem
	executionID string

	// dispatch is the orchestrator dispatch of the instance the work item belongs to
	dispatch uint64
}

var _ coordinator.Coordinator = (*Coordinator)(nil)

func New(opts ...Option) *Coordinator {
	o := options{
		Options:      coordinator.ApplyOptions(),
		LeaseTimeout: time.Minute,
	}

	for _, opt := range opts {
		opt(&o)
	}

	c := &Coordinator{
		options:   o,
		logger:    o.Logger.With(slog.String(log.EndpointKey, endpoint)),
		clock:     o.Clock,
		instances: make(map[string]*instance),
		wake:      make(chan struct{}),
		leases: ttlcache.New(
			ttlcache.WithTTL[string, *lease](o.LeaseTimeout),
		),
	}

	c.leases.OnEviction(func(ctx context.Context, er ttlcache.EvictionReason, i *ttlcache.Item[string, *lease]) {
		if er == ttlcache.EvictionReasonExpired {
			// Eviction callbacks can run while the cache is locked
			go c.redeliver(i.Value())
		}
	})

	go c.leases.Start()

	return c
}

func (c *Coordinator) Options() *coordinator.Options {
	return &c.options.Options
}

func (c *Coordinator) Endpoint() string {
	return endpoint
}

func (c *Coordinator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	c.leases.Stop()

	for _, inst := range c.instances {
		inst.stopTimers()
	}

	close(c.wake)

	return nil
}

func errClosed() error {
	return status.Error(codes.Unavailable, "coordinator is closed")
}

// GetWorkItem returns the next work item, blocking until one is ready or ctx is done.
func (c *Coordinator) GetWorkItem(ctx context.Context) (*core.WorkItem, error) {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, errClosed()
		}

		if len(c.queue) > 0 {
			l := c.queue[0]
			c.queue = c.queue[1:]
			c.leases.Set(string(completionToken(l.wi)), l, ttlcache.DefaultTTL)
			c.mu.Unlock()

			return l.wi, nil
		}

		wake := c.wake
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wake:
		}
	}
}

func (c *Coordinator) CompleteActivityTask(ctx context.Context, result *core.ActivityResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errClosed()
	}

	l, ok := c.takeLease(result.CompletionToken)
	if !ok || l.wi.Activity == nil {
		c.logger.DebugContext(ctx, "ignoring activity completion with unknown token", log.InstanceIDKey, result.InstanceID)
		return nil
	}

	a := l.wi.Activity
	now := c.clock.Now()

	var e *core.HistoryEvent
	if result.Failure != nil {
		e = core.NewTaskFailedEvent(now, a.TaskID, result.Failure, a.TaskExecutionID)
	} else {
		e = core.NewTaskCompletedEvent(now, a.TaskID, result.Output, a.TaskExecutionID)
	}

	if !c.addExecutionEvent(a.InstanceID, l.executionID, e) {
		c.logger.DebugContext(ctx, "dropping activity result of a finished execution",
			log.InstanceIDKey, a.InstanceID, log.TaskIDKey, a.TaskID)
	}

	return nil
}

func (c *Coordinator) CompleteOrchestratorTask(ctx context.Context, result *core.OrchestratorResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errClosed()
	}

	l, ok := c.takeLease(result.CompletionToken)
	if !ok || l.wi.Orchestrator == nil {
		c.logger.DebugContext(ctx, "ignoring orchestrator completion with unknown token", log.InstanceIDKey, result.InstanceID)
		return nil
	}

	// Only the outstanding dispatch of the instance may complete
	inst, ok := c.instances[l.wi.Orchestrator.InstanceID]
	if !ok || !inst.inFlight || inst.dispatch != l.dispatch {
		c.logger.DebugContext(ctx, "ignoring completion of a superseded orchestrator work item", log.InstanceIDKey, result.InstanceID)
		return nil
	}

	logger := c.logger.With(slog.String(log.InstanceIDKey, inst.id))
	now := c.clock.Now()

	// Record the version the batch was processed with on its OrchestratorStarted event
	batch := inst.delivered
	batch[0] = core.NewHistoryEvent(core.NoEventID, batch[0].Timestamp, core.EventType_OrchestratorStarted,
		&core.OrchestratorStartedAttributes{Version: result.Version})

	inst.history = append(inst.history, batch...)
	inst.delivered = nil
	inst.inFlight = false
	inst.customStatus = result.CustomStatus

	if inst.status == core.OrchestrationStatusPending {
		inst.status = core.OrchestrationStatusRunning
	}

	for _, action := range result.Actions {
		switch a := action.Attributes.(type) {
		case *core.ScheduleTaskAttributes:
			inst.history = append(inst.history, core.NewTaskScheduledEvent(action.ID, now, a.Name, a.Input, a.TaskExecutionID))
			c.enqueue(&lease{
				wi: &core.WorkItem{Activity: &core.ActivityWorkItem{
					InstanceID:         inst.id,
					TaskID:             action.ID,
					Name:               a.Name,
					Input:              a.Input,
					TaskExecutionID:    a.TaskExecutionID,
					ParentTraceContext: inst.trace,
				}},
				executionID: inst.executionID,
			})

		case *core.CreateTimerAttributes:
			inst.history = append(inst.history, core.NewTimerCreatedEvent(action.ID, now, a.FireAt, a.Name))
			c.scheduleTimer(inst, action.ID, a.FireAt)

		case *core.CreateSubOrchestrationAttributes:
			inst.history = append(inst.history, core.NewHistoryEvent(action.ID, now, core.EventType_SubOrchestrationCreated,
				&core.SubOrchestrationCreatedAttributes{Name: a.Name, InstanceID: a.InstanceID, Input: a.Input}))

			if err := c.createInstance(a.InstanceID, a.Name, a.Input, inst.trace, &parentRef{inst.id, inst.executionID, action.ID}); err != nil {
				inst.pending = append(inst.pending, core.NewSubOrchestrationFailedEvent(now, action.ID, &core.FailureDetails{
					ErrorType:    "SubOrchestrationCreationFailed",
					ErrorMessage: err.Error(),
				}))
			}

		case *core.SendEventAttributes:
			inst.history = append(inst.history, core.NewHistoryEvent(action.ID, now, core.EventType_EventSent,
				&core.EventSentAttributes{InstanceID: a.InstanceID, Name: a.Name, Input: a.Data}))

			if !c.addEvent(a.InstanceID, core.NewEventRaisedEvent(now, a.Name, a.Data)) {
				logger.DebugContext(ctx, "dropping event for unknown or completed instance", "target", a.InstanceID)
			}

		case *core.CompleteOrchestrationAttributes:
			c.complete(inst, a, now)
		}
	}

	c.schedule(inst)

	return nil
}

// CreateOrchestrationInstance starts a new orchestration. The trace context of ctx, if any, is
// propagated to the activities of the orchestration.
func (c *Coordinator) CreateOrchestrationInstance(ctx context.Context, name string, input any, opts ...InstanceOption) (string, error) {
	o := instanceOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.instanceID == "" {
		o.instanceID = uuid.NewString()
	}

	payload, err := c.payload(input)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return "", errClosed()
	}

	if err := c.createInstance(o.instanceID, name, payload, tracing.TraceContextFromContext(ctx), nil); err != nil {
		return "", err
	}

	c.logger.DebugContext(ctx, "created orchestration instance", log.InstanceIDKey, o.instanceID, log.OrchestrationKey, name)

	return o.instanceID, nil
}

// RaiseEvent delivers an external event to a running orchestration instance.
func (c *Coordinator) RaiseEvent(ctx context.Context, instanceID, name string, data any) error {
	payload, err := c.payload(data)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errClosed()
	}

	if _, ok := c.instances[instanceID]; !ok {
		return ErrInstanceNotFound
	}

	if !c.addEvent(instanceID, core.NewEventRaisedEvent(c.clock.Now(), name, payload)) {
		return ErrInstanceNotActive
	}

	return nil
}

// TerminateOrchestration stops a running orchestration instance with the given reason.
func (c *Coordinator) TerminateOrchestration(ctx context.Context, instanceID, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errClosed()
	}

	if _, ok := c.instances[instanceID]; !ok {
		return ErrInstanceNotFound
	}

	if !c.addEvent(instanceID, core.NewExecutionTerminatedEvent(c.clock.Now(), &reason)) {
		return ErrInstanceNotActive
	}

	return nil
}

func (c *Coordinator) GetOrchestrationMetadata(ctx context.Context, instanceID string) (*Metadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	inst, ok := c.instances[instanceID]
	if !ok {
		return nil, ErrInstanceNotFound
	}

	return inst.metadata(), nil
}

// WaitForOrchestrationCompletion blocks until the instance reaches a final status or ctx is done.
func (c *Coordinator) WaitForOrchestrationCompletion(ctx context.Context, instanceID string) (*Metadata, error) {
	c.mu.Lock()
	inst, ok := c.instances[instanceID]
	c.mu.Unlock()

	if !ok {
		return nil, ErrInstanceNotFound
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-inst.done:
		return c.GetOrchestrationMetadata(ctx, instanceID)
	}
}

// History returns the events accepted for the instance so far.
func (c *Coordinator) History(instanceID string) ([]*core.HistoryEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	inst, ok := c.instances[instanceID]
	if !ok {
		return nil, ErrInstanceNotFound
	}

	return append([]*core.HistoryEvent(nil), inst.history...), nil
}

func (c *Coordinator) payload(v any) (*string, error) {
	p, err := c.options.Converter.To(v)
	if err != nil {
		return nil, fmt.Errorf("converting payload: %w", err)
	}

	return &p, nil
}

func (c *Coordinator) createInstance(id, name string, input *string, trace *core.TraceContext, parent *parentRef) error {
	if existing, ok := c.instances[id]; ok && !existing.status.Final() {
		return fmt.Errorf("%w: %s", ErrInstanceAlreadyExists, id)
	}

	inst := newInstance(id, name, input, trace, parent, c.clock.Now())
	c.instances[id] = inst
	c.schedule(inst)

	return nil
}

// addExecutionEvent queues an event that answers an action of the given execution. It returns
// false if the instance has since continued as new.
func (c *Coordinator) addExecutionEvent(instanceID, executionID string, e *core.HistoryEvent) bool {
	if inst, ok := c.instances[instanceID]; !ok || inst.executionID != executionID {
		return false
	}

	return c.addEvent(instanceID, e)
}

// addEvent queues an event for the next orchestrator work item of the instance. It returns false if
// the instance does not exist or has completed.
func (c *Coordinator) addEvent(instanceID string, e *core.HistoryEvent) bool {
	inst, ok := c.instances[instanceID]
	if !ok || inst.status.Final() {
		return false
	}

	inst.pending = append(inst.pending, e)
	c.schedule(inst)

	return true
}

// schedule queues an orchestrator work item for the instance unless one is outstanding.
func (c *Coordinator) schedule(inst *instance) {
	if inst.inFlight || len(inst.pending) == 0 || inst.status.Final() {
		return
	}

	inst.delivered = append([]*core.HistoryEvent{core.NewOrchestratorStartedEvent(c.clock.Now())}, inst.pending...)
	inst.pending = nil
	inst.inFlight = true
	inst.dispatch++

	c.enqueue(&lease{
		wi: &core.WorkItem{Orchestrator: &core.OrchestratorWorkItem{
			InstanceID: inst.id,
			PastEvents: append([]*core.HistoryEvent(nil), inst.history...),
			NewEvents:  append([]*core.HistoryEvent(nil), inst.delivered...),
		}},
		executionID: inst.executionID,
		dispatch:    inst.dispatch,
	})
}

func (c *Coordinator) complete(inst *instance, a *core.CompleteOrchestrationAttributes, now time.Time) {
	if a.Status == core.OrchestrationStatusContinuedAsNew {
		pending := append([]*core.HistoryEvent{inst.startExecution(now, a.Result)}, a.CarryoverEvents...)
		for _, e := range inst.pending {
			if carriesOver(e) {
				pending = append(pending, e)
			}
		}

		inst.history = nil
		inst.pending = pending

		return
	}

	inst.history = append(inst.history, core.NewHistoryEvent(core.NoEventID, now, core.EventType_ExecutionCompleted,
		&core.ExecutionCompletedAttributes{Status: a.Status, Result: a.Result, FailureDetails: a.FailureDetails}))
	inst.status = a.Status
	inst.result = a.Result
	inst.failure = a.FailureDetails
	inst.completedAt = now
	inst.pending = nil
	inst.stopTimers()
	close(inst.done)

	c.logger.Debug("orchestration instance completed",
		log.InstanceIDKey, inst.id,
		log.OrchestrationStatusKey, a.Status.String(),
		log.CustomStatusKey, inst.customStatus,
	)

	if inst.parent != nil {
		var e *core.HistoryEvent
		if a.Status == core.OrchestrationStatusCompleted {
			e = core.NewSubOrchestrationCompletedEvent(now, inst.parent.taskID, a.Result)
		} else {
			failure := a.FailureDetails
			if failure == nil {
				failure = &core.FailureDetails{
					ErrorType:    "SubOrchestrationTerminated",
					ErrorMessage: fmt.Sprintf("sub-orchestration %q ended with status %v", inst.id, a.Status),
				}
			}

			e = core.NewSubOrchestrationFailedEvent(now, inst.parent.taskID, failure)
		}

		c.addExecutionEvent(inst.parent.instanceID, inst.parent.executionID, e)
	}
}

func (c *Coordinator) scheduleTimer(inst *instance, timerID int32, fireAt time.Time) {
	instanceID, executionID := inst.id, inst.executionID

	t := c.clock.AfterFunc(fireAt.Sub(c.clock.Now()), func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.closed {
			return
		}

		if !c.addExecutionEvent(instanceID, executionID, core.NewTimerFiredEvent(c.clock.Now(), timerID, fireAt)) {
			c.logger.Debug("dropping timer of a finished execution", log.InstanceIDKey, instanceID, log.EventIDKey, timerID)
		}
	})

	inst.timers = append(inst.timers, t)
}

// enqueue assigns the work item a fresh completion token and wakes up pollers.
func (c *Coordinator) enqueue(l *lease) {
	token := []byte(uuid.NewString())

	switch {
	case l.wi.Orchestrator != nil:
		l.wi.Orchestrator.CompletionToken = token
	case l.wi.Activity != nil:
		l.wi.Activity.CompletionToken = token
	}

	c.queue = append(c.queue, l)

	// Wake up all waiting pollers
	close(c.wake)
	c.wake = make(chan struct{})
}

func (c *Coordinator) takeLease(token []byte) (*lease, bool) {
	item := c.leases.Get(string(token))
	if item == nil {
		return nil, false
	}

	c.leases.Delete(string(token))

	return item.Value(), true
}

// redeliver queues a work item again after its lease expired.
func (c *Coordinator) redeliver(l *lease) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	wi := l.wi
	c.logger.Warn("work item lease expired, redelivering",
		log.InstanceIDKey, wi.InstanceID(), log.WorkItemKindKey, wi.Kind().String())

	// The copy gets a new token, completions of the expired work item are ignored
	redelivered := &lease{wi: &core.WorkItem{}, executionID: l.executionID, dispatch: l.dispatch}
	if wi.Orchestrator != nil {
		o := *wi.Orchestrator
		redelivered.wi.Orchestrator = &o
	} else {
		a := *wi.Activity
		redelivered.wi.Activity = &a
	}

	c.enqueue(redelivered)
}

func completionToken(wi *core.WorkItem) []byte {
	if wi.Orchestrator != nil {
		return wi.Orchestrator.CompletionToken
	}

	return wi.Activity.CompletionToken
}
