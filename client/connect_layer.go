package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"smartc/connect"
	"smartc/tools"
)

// ConnectToHub opens a hub session with the user's token and wires its
// events to the observer. It moves LoggedIn to HubConnected only when the
// hub reports open; calling it while connected is a no-op.
func (c *Client) ConnectToHub(ctx context.Context) error {
	const op = "connect to hub"
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	st, user := c.state, c.user
	if st == StateHubConnected || st == StateInRoom {
		c.mu.Unlock()
		return nil
	}
	if st != StateLoggedIn || user == nil {
		c.mu.Unlock()
		return tools.Validation(op, "not allowed while %s", st)
	}
	hub := c.newHub(user.Token)
	c.hub = hub
	c.mu.Unlock()

	hub.On(connect.EventSignal, func(args ...string) { c.onSignal(hub, args...) })
	hub.On(connect.EventUserJoined, func(args ...string) { c.onPresence(hub, true, args...) })
	hub.On(connect.EventUserLeft, func(args ...string) { c.onPresence(hub, false, args...) })
	hub.On(connect.EventClosed, func(args ...string) { c.onClosed(hub, args...) })

	if err := hub.Open(ctx); err != nil {
		c.mu.Lock()
		if c.hub == hub {
			c.hub = nil
		}
		c.mu.Unlock()
		if cerr := hub.Close(); cerr != nil {
			c.log.WithError(cerr).Warn("hub close failed")
		}
		c.log.WithError(err).Warn("hub connection failed")
		return err
	}

	c.mu.Lock()
	if c.hub != hub {
		// closed again before we got here
		c.mu.Unlock()
		return tools.Network(op, errors.New("hub closed while opening"))
	}
	c.state = StateHubConnected
	c.mu.Unlock()

	c.log.WithField("username", user.Username).Info("connected to hub")
	c.observer.OnConnected()
	return nil
}

// JoinRoom enters room. Only one room at a time: joining while in a room is
// rejected and the current room is kept.
func (c *Client) JoinRoom(ctx context.Context, room string) error {
	const op = "join room"
	c.opMu.Lock()
	defer c.opMu.Unlock()

	room = strings.TrimSpace(room)
	if room == "" {
		return tools.Validation(op, "room name empty")
	}
	c.mu.Lock()
	st, hub, current, user := c.state, c.hub, c.room, c.user
	c.mu.Unlock()
	switch {
	case st == StateInRoom:
		return tools.Validation(op, "already in room %s, leave it first", current)
	case st != StateHubConnected || hub == nil:
		return tools.Validation(op, "not connected to hub")
	}

	if err := hub.Send(ctx, connect.MethodJoinSession, room, user.Username); err != nil {
		return err
	}
	if !c.commit(hub, StateHubConnected, StateInRoom, room) {
		return tools.Network(op, errors.New("hub closed"))
	}

	c.log.WithField("room", room).Info("joined room")
	c.emitMessage(systemMessage(fmt.Sprintf("%s joined the room %s", user.Username, room)))
	return nil
}

// LeaveRoom leaves the current room. Outside a room it does nothing.
func (c *Client) LeaveRoom(ctx context.Context) error {
	const op = "leave room"
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	st, hub, room, user := c.state, c.hub, c.room, c.user
	c.mu.Unlock()
	if st != StateInRoom || hub == nil {
		return nil
	}
	if err := hub.Send(ctx, connect.MethodLeaveSession, room, user.Username); err != nil {
		return err
	}
	if !c.commit(hub, StateInRoom, StateHubConnected, "") {
		return tools.Network(op, errors.New("hub closed"))
	}
	c.log.WithField("room", room).Info("left room")
	return nil
}

// Disconnect leaves the room, closes the hub and forgets the user. It works
// from any state, never fails, and leaves the client Closed.
func (c *Client) Disconnect(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.State() == StateClosed {
		return nil
	}
	wasConnected := c.teardown(ctx)

	c.mu.Lock()
	c.user = nil
	c.state = StateClosed
	c.mu.Unlock()
	c.api.Logout()
	c.log.Info("disconnected")
	if wasConnected {
		c.observer.OnDisconnected("")
	}
	return nil
}

// commit moves from one state to the next after a hub call, unless the hub
// was closed meanwhile.
func (c *Client) commit(hub Hub, from, to State, room string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hub != hub || c.state != from {
		return false
	}
	c.state = to
	c.room = room
	return true
}

// teardown drops the call, leaves the room and closes the hub. Failures are
// logged only. It reports whether a hub was open.
func (c *Client) teardown(ctx context.Context) bool {
	c.mu.Lock()
	hub, room, user := c.hub, c.room, c.user
	c.hub, c.room, c.call = nil, "", nil
	c.mu.Unlock()

	if hub == nil {
		return false
	}
	if room != "" && user != nil {
		if err := hub.Send(ctx, connect.MethodLeaveSession, room, user.Username); err != nil {
			c.log.WithError(err).WithField("room", room).Warn("leave on teardown failed")
		}
	}
	if err := hub.Close(); err != nil {
		c.log.WithError(err).Warn("hub close failed")
	}
	return true
}

// current reports whether hub is still the live session and returns the
// local username.
func (c *Client) current(hub Hub) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hub != hub || c.user == nil {
		return "", false
	}
	return c.user.Username, true
}

func (c *Client) onSignal(hub Hub, args ...string) {
	me, ok := c.current(hub)
	if !ok || len(args) == 0 {
		return
	}
	var p chatPayload
	if err := json.Unmarshal([]byte(args[0]), &p); err != nil {
		c.emitError(&tools.Error{Kind: tools.KindService, Op: "receive signal", Err: errors.Wrap(err, "decode payload")})
		return
	}
	if p.Type != chatType {
		c.log.WithField("type", p.Type).Debug("ignoring signal")
		return
	}
	if p.Sender == me {
		c.metrics.suppressed.Inc(1)
		return
	}
	sender := p.Sender
	if sender == "" {
		sender = "Unknown"
	}
	ts, ok := tools.ParseISO(p.Timestamp)
	if !ok {
		ts = time.Now()
	}
	c.metrics.received.Inc(1)
	c.emitMessage(ChatMessage{Sender: sender, Content: p.Content, Timestamp: ts})
}

func (c *Client) onPresence(hub Hub, joined bool, args ...string) {
	if _, ok := c.current(hub); !ok || len(args) == 0 {
		return
	}
	username := args[0]
	if joined {
		c.observer.OnUserJoined(username)
		c.emitMessage(systemMessage(username + " joined the room"))
		return
	}
	c.observer.OnUserLeft(username)
	c.emitMessage(systemMessage(username + " left the room"))
}

// onClosed handles the transport giving up. The user stays logged in and
// may connect again.
func (c *Client) onClosed(hub Hub, args ...string) {
	c.mu.Lock()
	if c.hub != hub {
		c.mu.Unlock()
		return
	}
	c.hub, c.room = nil, ""
	if c.state == StateHubConnected || c.state == StateInRoom {
		c.state = StateLoggedIn
	}
	c.mu.Unlock()

	reason := ""
	if len(args) > 0 {
		reason = args[0]
	}
	c.log.WithField("reason", reason).Warn("hub connection lost")
	c.observer.OnDisconnected(reason)
	if reason != "" {
		c.emitError(tools.Network("hub", errors.New(reason)))
	}
}

func systemMessage(content string) ChatMessage {
	return ChatMessage{Sender: SystemSender, Content: content, Timestamp: time.Now(), System: true}
}
