// Package metrics defines the client interface the worker reports its metrics through.
package metrics

import (
	"maps"
	"time"
)

// Tags are attached to every observation of a metric.
type Tags map[string]string

// Merge returns a new set of tags containing t overlaid with other.
func (t Tags) Merge(other Tags) Tags {
	merged := make(Tags, len(t)+len(other))
	maps.Copy(merged, t)
	maps.Copy(merged, other)

	return merged
}

type Client interface {
	// Counter adds value to the counter name
	Counter(name string, tags Tags, value int64)

	// Distribution records a single observation, e.g. a duration in milliseconds
	Distribution(name string, tags Tags, value float64)

	// Gauge sets the current value of name
	Gauge(name string, tags Tags, value int64)

	Timing(name string, tags Tags, duration time.Duration)

	// WithTags returns a client that adds tags to every metric it reports
	WithTags(tags Tags) Client
}
