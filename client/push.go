package client

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"

	"smartc/connect"
	"smartc/tools"
)

const chatType = "chat"

// chatPayload is the signal body exchanged through SendSignalToSession.
type chatPayload struct {
	Type      string `json:"type"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// SendMessage broadcasts text to the current room, then echoes it locally
// through OnMessage. It fails without touching the hub unless the client is
// in a room.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	const op = "send message"
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	st, hub, room, user := c.state, c.hub, c.room, c.user
	c.mu.Unlock()
	if st != StateInRoom || hub == nil || user == nil {
		return tools.Validation(op, "not in a room")
	}
	if strings.TrimSpace(text) == "" {
		return tools.Validation(op, "message empty")
	}

	now := time.Now()
	data, err := json.Marshal(&chatPayload{
		Type:      chatType,
		Sender:    user.Username,
		Content:   text,
		Timestamp: tools.FormatISO(now),
	})
	if err != nil {
		return &tools.Error{Kind: tools.KindValidation, Op: op, Err: errors.Wrap(err, "encode payload")}
	}
	if err := hub.Send(ctx, connect.MethodSendSignalToSession, room, string(data), user.Username); err != nil {
		return err
	}
	c.metrics.sent.Inc(1)
	c.emitMessage(ChatMessage{Sender: user.Username, Content: text, Timestamp: now})
	return nil
}
