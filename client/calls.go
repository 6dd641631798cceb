package client

import (
	"context"

	"github.com/pion/webrtc/v4"

	"smartc/api"
	"smartc/tools"
)

// StartCall creates a call session and makes it the current call.
func (c *Client) StartCall(ctx context.Context, name, description string) (*api.Session, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if _, err := c.requireUser("start call"); err != nil {
		return nil, err
	}
	s, err := c.api.CreateSession(ctx, name, description)
	if err != nil {
		return nil, err
	}
	c.setCall(s)
	c.log.WithField("session_id", s.Id).Info("call started")
	return s, nil
}

// JoinCall makes an existing session the current call. A missing session
// is a NotFound error and the current call is kept.
func (c *Client) JoinCall(ctx context.Context, id int) (*api.Session, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if _, err := c.requireUser("join call"); err != nil {
		return nil, err
	}
	s, err := c.api.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	c.setCall(s)
	c.log.WithField("session_id", s.Id).Info("call joined")
	return s, nil
}

// EndCall forgets the current call. The backend keeps the session.
func (c *Client) EndCall(ctx context.Context) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	call := c.call
	c.call = nil
	c.mu.Unlock()
	if call != nil {
		c.log.WithField("session_id", call.Id).Info("call ended")
	}
}

// CurrentCall returns a copy of the current call, or nil.
func (c *Client) CurrentCall() *api.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.call == nil {
		return nil
	}
	s := *c.call
	return &s
}

func (c *Client) AvailableCalls(ctx context.Context) ([]api.Session, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if _, err := c.requireUser("available calls"); err != nil {
		return nil, err
	}
	return c.api.ListSessions(ctx)
}

func (c *Client) CallDetails(ctx context.Context, id int) (*api.Session, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if _, err := c.requireUser("call details"); err != nil {
		return nil, err
	}
	return c.api.GetSession(ctx, id)
}

// IceServers never fails; the configured fallback is used when the backend
// has nothing to offer.
func (c *Client) IceServers(ctx context.Context) []api.IceServer {
	return c.api.GetIceServers(ctx)
}

func (c *Client) IceConfiguration(ctx context.Context) webrtc.Configuration {
	return c.api.IceConfiguration(ctx)
}

func (c *Client) Health(ctx context.Context, probe api.Probe) (*api.Health, error) {
	if c.State() == StateClosed {
		return nil, tools.Validation("health", "client closed")
	}
	return c.api.Health(ctx, probe)
}

func (c *Client) setCall(s *api.Session) {
	cp := *s
	c.mu.Lock()
	c.call = &cp
	c.mu.Unlock()
}
