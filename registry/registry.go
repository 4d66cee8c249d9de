package registry

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/cschleiden/go-taskhub/activity"
	"github.com/cschleiden/go-taskhub/internal/fn"
	"github.com/cschleiden/go-taskhub/workflow"
)

type registeredOrchestrator struct {
	fn      workflow.Orchestrator
	version string
}

// Registry maps names to orchestrator and activity functions. Populate it before starting a worker;
// lookups are safe for concurrent use.
type Registry struct {
	sync.Mutex

	orchestratorMap map[string]registeredOrchestrator
	activityMap     map[string]activity.Activity
}

// New creates a new registry instance.
func New() *Registry {
	return &Registry{
		orchestratorMap: make(map[string]registeredOrchestrator),
		activityMap:     make(map[string]activity.Activity),
	}
}

type registerConfig struct {
	Name    string
	Version string
}

func (r *Registry) RegisterOrchestrator(orchestrator workflow.Orchestrator, opts ...RegisterOption) error {
	if orchestrator == nil {
		return &ErrInvalidOrchestrator{"orchestrator must not be nil"}
	}

	cfg := registerOptions(opts).applyRegisterOptions(registerConfig{})
	name := cfg.Name
	if name == "" {
		name = fn.Name(orchestrator)
	}

	r.Lock()
	defer r.Unlock()

	if _, ok := r.orchestratorMap[name]; ok {
		return &ErrOrchestratorAlreadyRegistered{fmt.Sprintf("orchestrator with name %q already registered", name)}
	}

	r.orchestratorMap[name] = registeredOrchestrator{fn: orchestrator, version: cfg.Version}

	return nil
}

func (r *Registry) RegisterActivity(a activity.Activity, opts ...RegisterOption) error {
	if a == nil {
		return &ErrInvalidActivity{"activity must not be nil"}
	}

	cfg := registerOptions(opts).applyRegisterOptions(registerConfig{})
	name := cfg.Name
	if name == "" {
		name = fn.Name(a)
	}

	r.Lock()
	defer r.Unlock()

	if _, ok := r.activityMap[name]; ok {
		return &ErrActivityAlreadyRegistered{fmt.Sprintf("activity with name %q already registered", name)}
	}

	r.activityMap[name] = a

	return nil
}

// RegisterActivities registers every exported method of the given struct pointer that has the
// activity signature. Methods are registered under their method name.
func (r *Registry) RegisterActivities(receiver any) error {
	v := reflect.ValueOf(receiver)
	t := v.Type()

	if t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
		return &ErrInvalidActivity{"activities must be registered from a pointer to a struct"}
	}

	activities := make(map[string]activity.Activity)
	for i := 0; i < v.NumMethod(); i++ {
		mt := t.Method(i)

		// Ignore private methods
		if mt.PkgPath != "" {
			continue
		}

		a, ok := v.Method(i).Interface().(func(activity.Context) (any, error))
		if !ok {
			return &ErrInvalidActivity{fmt.Sprintf("method %q does not have the activity signature", mt.Name)}
		}

		activities[mt.Name] = a
	}

	r.Lock()
	defer r.Unlock()

	for name := range activities {
		if _, ok := r.activityMap[name]; ok {
			return &ErrActivityAlreadyRegistered{fmt.Sprintf("activity with name %q already registered", name)}
		}
	}

	for name, a := range activities {
		r.activityMap[name] = a
	}

	return nil
}

// GetOrchestrator returns the orchestrator registered under name and the version it was registered with.
func (r *Registry) GetOrchestrator(name string) (workflow.Orchestrator, string, error) {
	r.Lock()
	defer r.Unlock()

	if o, ok := r.orchestratorMap[name]; ok {
		return o.fn, o.version, nil
	}

	return nil, "", &ErrNotFound{Kind: "orchestrator", Name: name}
}

func (r *Registry) GetActivity(name string) (activity.Activity, error) {
	r.Lock()
	defer r.Unlock()

	if a, ok := r.activityMap[name]; ok {
		return a, nil
	}

	return nil, &ErrNotFound{Kind: "activity", Name: name}
}

// Orchestrators returns the sorted names of all registered orchestrators.
func (r *Registry) Orchestrators() []string {
	r.Lock()
	defer r.Unlock()

	names := make([]string, 0, len(r.orchestratorMap))
	for name := range r.orchestratorMap {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Activities returns the sorted names of all registered activities.
func (r *Registry) Activities() []string {
	r.Lock()
	defer r.Unlock()

	names := make([]string, 0, len(r.activityMap))
	for name := range r.activityMap {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
