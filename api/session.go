package api

import (
	"context"
	"fmt"
	"net/http"

	"smartc/tools"
)

func (c *Client) CreateSession(ctx context.Context, name, description string) (*Session, error) {
	const op = "create session"
	if name == "" {
		return nil, tools.Validation(op, "session name empty")
	}
	var s Session
	if err := c.call(ctx, op, http.MethodPost, sessionPath, &createSessionRequest{
		Name:        name,
		Description: description,
	}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) GetSession(ctx context.Context, id int) (*Session, error) {
	var s Session
	if err := c.call(ctx, "get session", http.MethodGet, fmt.Sprintf("%s/%d", sessionPath, id), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	var sessions []Session
	if err := c.call(ctx, "list sessions", http.MethodGet, sessionPath, nil, &sessions); err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []Session{}
	}
	return sessions, nil
}
