// Package prometheus exports metrics reported through metrics.Client to a Prometheus registry.
package prometheus

import (
	"errors"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cschleiden/go-taskhub/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type vecKind int

const (
	counterKind vecKind = iota
	gaugeKind
	histogramKind
)

type vec struct {
	collector prometheus.Collector
	labels    []string
}

type registry struct {
	reg prometheus.Registerer

	mu   sync.Mutex
	vecs map[string]*vec
}

// Client reports metrics as Prometheus collectors, created on first use of each metric name. The
// label names of a metric are fixed by the tags of its first observation; tags unknown to a metric
// are dropped and missing ones are reported as empty.
type Client struct {
	r    *registry
	tags metrics.Tags
}

var _ metrics.Client = (*Client)(nil)

func New(reg prometheus.Registerer) *Client {
	return &Client{
		r: &registry{
			reg:  reg,
			vecs: make(map[string]*vec),
		},
		tags: metrics.Tags{},
	}
}

func (c *Client) Counter(name string, tags metrics.Tags, value int64) {
	v, values := c.lookup(counterKind, name, tags)
	if cv, ok := v.(*prometheus.CounterVec); ok {
		cv.WithLabelValues(values...).Add(float64(value))
	}
}

func (c *Client) Gauge(name string, tags metrics.Tags, value int64) {
	v, values := c.lookup(gaugeKind, name, tags)
	if cv, ok := v.(*prometheus.GaugeVec); ok {
		cv.WithLabelValues(values...).Set(float64(value))
	}
}

func (c *Client) Distribution(name string, tags metrics.Tags, value float64) {
	v, values := c.lookup(histogramKind, name, tags)
	if cv, ok := v.(*prometheus.HistogramVec); ok {
		cv.WithLabelValues(values...).Observe(value)
	}
}

func (c *Client) Timing(name string, tags metrics.Tags, duration time.Duration) {
	c.Distribution(name+".seconds", tags, duration.Seconds())
}

func (c *Client) WithTags(tags metrics.Tags) metrics.Client {
	return &Client{r: c.r, tags: c.tags.Merge(tags)}
}

func (c *Client) lookup(kind vecKind, name string, tags metrics.Tags) (prometheus.Collector, []string) {
	all := c.tags.Merge(tags)

	v := c.r.get(kind, metricName(name), all)
	if v == nil {
		return nil, nil
	}

	values := make([]string, len(v.labels))
	for i, l := range v.labels {
		values[i] = all[l]
	}

	return v.collector, values
}

func (r *registry) get(kind vecKind, name string, tags metrics.Tags) *vec {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.vecs[name]; ok {
		return v
	}

	keys := slices.Sorted(maps.Keys(tags))
	labels := make([]string, 0, len(keys))
	for _, k := range keys {
		labels = append(labels, labelName(k))
	}

	var collector prometheus.Collector
	switch kind {
	case counterKind:
		collector = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name + "_total", Help: name}, labels)
	case gaugeKind:
		collector = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: name}, labels)
	case histogramKind:
		collector = prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: name}, labels)
	}

	if err := r.reg.Register(collector); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil
		}

		collector = are.ExistingCollector
	}

	v := &vec{collector: collector, labels: keys}
	r.vecs[name] = v

	return v
}

var replacer = strings.NewReplacer(".", "_", "-", "_", "/", "_", " ", "_")

func metricName(name string) string {
	return replacer.Replace(name)
}

func labelName(name string) string {
	return replacer.Replace(name)
}
