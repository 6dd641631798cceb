// Package connect wraps the SignalR hub connection used for real-time
// signaling. Transport, keep-alive and reconnection are left to the
// signalr client; this package only opens, dispatches and closes.
package connect

import (
	"context"
	"net/http"
	"sync"

	"github.com/philippseith/signalr"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"smartc/config"
	"smartc/tools"
)

type Event string

// Inbound hub events, named as the hub invokes them. EventClosed is raised
// locally when the transport gives up on the connection.
const (
	EventSignal     Event = "SendSignal"
	EventUserJoined Event = "NewUserArrived"
	EventUserLeft   Event = "UserLeft"
	EventClosed     Event = "closed"
)

// Outbound hub methods.
const (
	MethodJoinSession         = "JoinSession"
	MethodLeaveSession        = "LeaveSession"
	MethodSendSignalToSession = "SendSignalToSession"
)

// Handler receives the string arguments of an event. It runs on the
// transport's goroutine.
type Handler func(args ...string)

type Connector func(ctx context.Context) (signalr.Connection, error)

type Session struct {
	Id        string
	conf      config.HubConfig
	token     string
	log       *logrus.Entry
	connector Connector

	mu          sync.RWMutex
	handlers    map[Event][]Handler
	client      signalr.Client
	cancel      context.CancelFunc
	stopObserve context.CancelFunc
	connected   bool
	closed      bool
}

type Option func(*Session)

// WithToken sets the bearer token presented to the hub.
func WithToken(token string) Option {
	return func(s *Session) { s.token = token }
}

func WithLogger(l *logrus.Entry) Option {
	return func(s *Session) { s.log = l }
}

// WithConnector overrides how the underlying connection is made.
func WithConnector(c Connector) Option {
	return func(s *Session) { s.connector = c }
}

func New(conf config.HubConfig, opts ...Option) *Session {
	s := &Session{
		Id:       tools.NewConnectionId(),
		conf:     conf,
		handlers: map[Event][]Handler{},
	}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = logrus.WithField("component", "hub")
	}
	s.log = s.log.WithField("hub_session", s.Id)
	return s
}

// On registers a handler. Handlers registered after Open still receive
// later events.
func (s *Session) On(event Event, h Handler) {
	s.mu.Lock()
	s.handlers[event] = append(s.handlers[event], h)
	s.mu.Unlock()
}

func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Open starts the hub client and waits, at most hub.openTimeout, for the
// transport to report it is connected. Opening an open session is a no-op.
func (s *Session) Open(ctx context.Context) error {
	const op = "hub open"
	s.mu.Lock()
	if s.connected {
		s.mu.Unlock()
		return nil
	}
	s.closed = false
	s.mu.Unlock()

	runCtx, cancel := context.WithCancel(context.Background())
	options := []func(signalr.Party) error{
		signalr.WithConnector(func() (signalr.Connection, error) {
			return s.connect(runCtx)
		}),
		signalr.WithReceiver(&receiver{s: s}),
		signalr.Logger(&logAdapter{log: s.log}, s.log.Logger.IsLevelEnabled(logrus.TraceLevel)),
	}
	if s.conf.KeepAliveInterval > 0 {
		options = append(options, signalr.KeepAliveInterval(s.conf.KeepAliveInterval))
	}
	client, err := signalr.NewClient(runCtx, options...)
	if err != nil {
		cancel()
		return tools.Network(op, errors.Wrap(err, "create client"))
	}

	states := make(chan signalr.ClientState, 8)
	stopObserve := client.ObserveStateChanged(states)
	go s.watch(runCtx, client, states)

	s.log.WithField("url", s.conf.URL).Info("opening hub connection")
	client.Start()

	openCtx, cancelOpen := context.WithTimeout(ctx, s.conf.OpenTimeout)
	defer cancelOpen()
	if err := <-client.WaitForState(openCtx, signalr.ClientConnected); err != nil {
		stopObserve()
		client.Stop()
		cancel()
		s.log.WithError(err).Warn("hub did not open in time")
		return tools.Network(op, errors.Wrap(err, "wait for connected state"))
	}

	s.mu.Lock()
	s.client = client
	s.cancel = cancel
	s.stopObserve = stopObserve
	s.connected = true
	s.mu.Unlock()
	s.log.Info("hub connected")
	return nil
}

func (s *Session) connect(ctx context.Context) (signalr.Connection, error) {
	if s.connector != nil {
		return s.connector(ctx)
	}
	if s.conf.SkipNegotiation {
		conn, err := dialWebsocket(ctx, s.conf.URL, s.token)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	return signalr.NewHTTPConnection(ctx, s.conf.URL,
		signalr.WithHTTPHeaders(func() http.Header {
			h := http.Header{}
			if s.token != "" {
				h.Set("Authorization", "Bearer "+s.token)
			}
			return h
		}))
}

// watch turns a final ClientClosed state into EventClosed. Reconnect
// attempts show up as ClientConnecting and are not reported.
func (s *Session) watch(ctx context.Context, client signalr.Client, states <-chan signalr.ClientState) {
	for {
		var state signalr.ClientState
		var ok bool
		select {
		case <-ctx.Done():
			return
		case state, ok = <-states:
		}
		if !ok {
			return
		}
		if state != signalr.ClientClosed {
			continue
		}
		s.mu.Lock()
		mine := s.client == client && s.connected
		if mine {
			s.connected = false
		}
		s.mu.Unlock()
		if !mine {
			return
		}
		reason := ""
		if err := client.Err(); err != nil {
			reason = err.Error()
		}
		s.log.WithField("reason", reason).Warn("hub connection closed")
		s.dispatch(EventClosed, reason)
		return
	}
}

// Send invokes a hub method without waiting for a result, but waits for the
// write to complete, bounded by hub.sendTimeout.
func (s *Session) Send(ctx context.Context, method string, args ...interface{}) error {
	op := "hub send " + method
	s.mu.RLock()
	client, connected := s.client, s.connected
	s.mu.RUnlock()
	if !connected || client == nil {
		return tools.Network(op, errors.New("hub not connected"))
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.conf.SendTimeout)
	defer cancel()
	select {
	case err := <-client.Send(method, args...):
		if err != nil {
			return tools.Network(op, err)
		}
		return nil
	case <-sendCtx.Done():
		return tools.Network(op, sendCtx.Err())
	}
}

// Close stops the client. No handler is called afterwards. Closing twice is
// harmless.
func (s *Session) Close() error {
	s.mu.Lock()
	client, cancel, stopObserve := s.client, s.cancel, s.stopObserve
	s.client, s.cancel, s.stopObserve = nil, nil, nil
	s.connected = false
	s.closed = true
	s.mu.Unlock()

	if client == nil {
		return nil
	}
	stopObserve()
	client.Stop()
	cancel()
	s.log.Info("hub closed")
	return nil
}

func (s *Session) dispatch(event Event, args ...string) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return
	}
	handlers := append([]Handler(nil), s.handlers[event]...)
	s.mu.RUnlock()

	if len(handlers) == 0 {
		s.log.WithField("event", event).Debug("no handler")
		return
	}
	for _, h := range handlers {
		h(args...)
	}
}
