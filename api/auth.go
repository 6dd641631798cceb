package api

import (
	"context"
	"net/http"

	"smartc/tools"
)

// Register creates an account. A 409 means the username is taken and is
// reported as RegisterAlreadyExists with a nil error.
func (c *Client) Register(ctx context.Context, username, password, role string) (RegisterOutcome, error) {
	const op = "register"
	if username == "" || password == "" {
		return 0, tools.Validation(op, "username or password empty")
	}
	status, data, err := c.send(ctx, op, http.MethodPost, registerPath, &registerRequest{
		Username: username,
		Password: password,
		Role:     role,
	})
	if err != nil {
		return 0, err
	}
	switch {
	case success(status):
		return RegisterCreated, nil
	case status == http.StatusConflict:
		c.log.WithField("username", username).Info("register: user already exists")
		return RegisterAlreadyExists, nil
	case status == http.StatusTooManyRequests:
		return 0, tools.FromStatus(op, status, string(data))
	}
	// 401 and 404 make no sense for register; keep them generic
	e := tools.FromStatus(op, status, string(data))
	e.Kind = tools.KindService
	return 0, e
}

// Login authenticates and keeps the returned token for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	const op = "login"
	if username == "" || password == "" {
		return nil, tools.Validation(op, "username or password empty")
	}
	var res LoginResult
	if err := c.call(ctx, op, http.MethodPost, loginPath, &loginRequest{
		Username: username,
		Password: password,
	}, &res); err != nil {
		return nil, err
	}
	if res.Token == "" {
		return nil, &tools.Error{Kind: tools.KindService, Op: op, Status: http.StatusOK, Body: "empty token"}
	}
	c.SetToken(res.Token)
	return &res, nil
}
