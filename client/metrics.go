package client

import (
	"github.com/rcrowley/go-metrics"

	"smartc/tools"
)

type facadeMetrics struct {
	registry   metrics.Registry
	sent       metrics.Counter
	received   metrics.Counter
	suppressed metrics.Counter
	hubErrors  metrics.Counter
	login      metrics.Timer
}

func newFacadeMetrics(r metrics.Registry) *facadeMetrics {
	return &facadeMetrics{
		registry:   r,
		sent:       metrics.GetOrRegisterCounter("messages.sent", r),
		received:   metrics.GetOrRegisterCounter("messages.received", r),
		suppressed: metrics.GetOrRegisterCounter("messages.suppressed", r),
		hubErrors:  metrics.GetOrRegisterCounter("hub.errors", r),
		login:      metrics.GetOrRegisterTimer("api.login", r),
	}
}

// Snapshot flattens the counters for display.
func (c *Client) Snapshot() map[string]int64 {
	m := c.metrics
	return map[string]int64{
		"messages.sent":       m.sent.Count(),
		"messages.received":   m.received.Count(),
		"messages.suppressed": m.suppressed.Count(),
		"hub.errors":          m.hubErrors.Count(),
		"api.login":           m.login.Count(),
	}
}

func newMessageId() string {
	return tools.GetSnowflakeId()
}
