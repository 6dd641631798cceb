package api

import (
	"context"
	"net/http"

	"smartc/tools"
)

// Health queries one of the backend health probes. A 503 still carries a
// report, so it is returned together with a service error.
func (c *Client) Health(ctx context.Context, probe Probe) (*Health, error) {
	const op = "health"
	p := healthPath
	if probe != ProbeOverall {
		p += "/" + string(probe)
	}
	status, data, err := c.send(ctx, op, http.MethodGet, p, nil)
	if err != nil {
		return nil, err
	}
	var h Health
	switch {
	case success(status):
		if err := decode(op, status, data, &h); err != nil {
			return nil, err
		}
		return &h, nil
	case status == http.StatusServiceUnavailable:
		if decode(op, status, data, &h) != nil {
			h = Health{Status: "unhealthy"}
		}
		return &h, &tools.Error{Kind: tools.KindService, Op: op, Status: status, Body: h.Message}
	}
	return nil, tools.FromStatus(op, status, string(data))
}
