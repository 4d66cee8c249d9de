package metrics

import (
	"time"

	m "github.com/cschleiden/go-taskhub/metrics"
)

// noopClient drops every observation. It is used when no metrics client is configured.
type noopClient struct{}

var _ m.Client = (*noopClient)(nil)

func NewNoopClient() m.Client {
	return &noopClient{}
}

func (*noopClient) Counter(string, m.Tags, int64) {}

func (*noopClient) Distribution(string, m.Tags, float64) {}

func (*noopClient) Gauge(string, m.Tags, int64) {}

func (*noopClient) Timing(string, m.Tags, time.Duration) {}

func (c *noopClient) WithTags(m.Tags) m.Client {
	return c
}
