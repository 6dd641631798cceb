package connect

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"smartc/tools"
)

// wsConnection is a signalr.Connection over a directly dialed websocket,
// used when the hub is reached without the negotiate round trip.
type wsConnection struct {
	ctx    context.Context
	cancel context.CancelFunc
	conn   *websocket.Conn

	mu      sync.Mutex // guards id and timeout
	id      string
	timeout time.Duration

	wLock  sync.Mutex
	reader io.Reader // current frame, touched only by the read loop
}

// dialWebsocket connects to the hub's websocket endpoint. The connection
// closes when ctx is done.
func dialWebsocket(ctx context.Context, hubURL, token string) (*wsConnection, error) {
	wsURL, err := tools.WebsocketURL(hubURL, token)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, errors.Wrap(err, "dial hub websocket")
	}
	return newWsConnection(ctx, conn), nil
}

func newWsConnection(ctx context.Context, conn *websocket.Conn) *wsConnection {
	c := &wsConnection{conn: conn, id: tools.NewConnectionId()}
	c.ctx, c.cancel = context.WithCancel(ctx)
	go func() {
		<-c.ctx.Done()
		conn.Close()
	}()
	return c
}

func (c *wsConnection) Context() context.Context { return c.ctx }

func (c *wsConnection) ConnectionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

func (c *wsConnection) SetConnectionID(id string) {
	c.mu.Lock()
	c.id = id
	c.mu.Unlock()
}

func (c *wsConnection) Timeout() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeout
}

// SetTimeout bounds each write. Reads block until a frame arrives or the
// connection is closed.
func (c *wsConnection) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	c.timeout = timeout
	c.mu.Unlock()
}

// Read streams frame payloads back to back. SignalR messages carry their
// own record separator, so frame boundaries need not be preserved.
func (c *wsConnection) Read(p []byte) (int, error) {
	for {
		if c.reader == nil {
			_, r, err := c.conn.NextReader()
			if err != nil {
				c.cancel()
				return 0, err
			}
			c.reader = r
		}
		n, err := c.reader.Read(p)
		if err == io.EOF {
			c.reader = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (c *wsConnection) Write(p []byte) (int, error) {
	c.wLock.Lock()
	defer c.wLock.Unlock()
	if timeout := c.Timeout(); timeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *wsConnection) Close() error {
	c.cancel()
	return nil
}
