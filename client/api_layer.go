package client

import (
	"context"
	"time"

	"smartc/api"
	"smartc/tools"
)

// Register creates an account with the configured role. An existing
// username is reported as api.RegisterAlreadyExists, not as an error.
// State is untouched.
func (c *Client) Register(ctx context.Context, username, password string) (api.RegisterOutcome, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.api.Register(ctx, username, password, c.conf.Client.Role)
}

// Login authenticates and moves Idle or LoggedIn to LoggedIn. On failure the
// previous user, if any, is kept.
func (c *Client) Login(ctx context.Context, username, password string) (*User, error) {
	const op = "login"
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if st := c.State(); st != StateIdle && st != StateLoggedIn {
		return nil, tools.Validation(op, "not allowed while %s", st)
	}
	start := time.Now()
	res, err := c.api.Login(ctx, username, password)
	c.metrics.login.UpdateSince(start)
	if err != nil {
		c.log.WithError(err).WithField("username", username).
			WithField("kind", tools.KindOf(err).String()).Warn("login failed")
		return nil, err
	}

	u := &User{Id: res.UserId, Username: username, Token: res.Token}
	c.mu.Lock()
	c.user = u
	c.state = StateLoggedIn
	c.mu.Unlock()
	c.log.WithField("username", username).WithField("user_id", res.UserId).Info("logged in")
	cp := *u
	return &cp, nil
}

// Logout ends the current call, tears the hub down and forgets the user.
// The client returns to Idle and can log in again.
func (c *Client) Logout(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	switch c.State() {
	case StateClosed:
		return tools.Validation("logout", "client closed")
	case StateIdle:
		return nil
	}
	wasConnected := c.teardown(ctx)

	c.mu.Lock()
	c.user = nil
	c.state = StateIdle
	c.mu.Unlock()
	c.api.Logout()
	c.log.Info("logged out")
	if wasConnected {
		c.observer.OnDisconnected("")
	}
	return nil
}

// requireUser returns the current user when op may run in the current
// state, that is any authenticated state before Closed.
func (c *Client) requireUser(op string) (*User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil || c.state == StateIdle || c.state == StateClosed {
		return nil, &tools.Error{Kind: tools.KindAuthentication, Op: op, Body: "not logged in"}
	}
	u := *c.user
	return &u, nil
}
