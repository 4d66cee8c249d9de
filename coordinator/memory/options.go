package memory

import (
	"time"

	"github.com/cschleiden/go-taskhub/coordinator"
)

type options struct {
	coordinator.Options

	// LeaseTimeout is how long a dispatched work item may stay uncompleted before it is handed out again.
	LeaseTimeout time.Duration
}

type Option func(*options)

// WithCoordinatorOptions applies the given shared coordinator options.
func WithCoordinatorOptions(opts ...coordinator.Option) Option {
	return func(o *options) {
		for _, opt := range opts {
			opt(&o.Options)
		}
	}
}

func WithLeaseTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.LeaseTimeout = timeout
	}
}

type instanceOptions struct {
	instanceID string
}

type InstanceOption func(*instanceOptions)

// WithInstanceID sets the id of the new instance. By default a random id is used.
func WithInstanceID(id string) InstanceOption {
	return func(o *instanceOptions) {
		o.instanceID = id
	}
}
