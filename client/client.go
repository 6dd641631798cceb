// Package client is the chat facade: it walks a user from login through the
// hub connection into a room and back out, composing the REST client and
// the hub session behind one small state machine.
package client

import (
	"context"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"

	"smartc/api"
	"smartc/config"
	"smartc/connect"
)

type State int

const (
	StateIdle State = iota
	StateLoggedIn
	StateHubConnected
	StateInRoom
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoggedIn:
		return "logged in"
	case StateHubConnected:
		return "hub connected"
	case StateInRoom:
		return "in room"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// SystemSender is the sender of synthesized join/leave notices.
const SystemSender = "System"

type User struct {
	Id       int
	Username string
	Token    string
}

type ChatMessage struct {
	Id        string
	Sender    string
	Content   string
	Timestamp time.Time
	System    bool
}

// API is the part of api.Client the facade relies on.
type API interface {
	Register(ctx context.Context, username, password, role string) (api.RegisterOutcome, error)
	Login(ctx context.Context, username, password string) (*api.LoginResult, error)
	Logout()
	CreateSession(ctx context.Context, name, description string) (*api.Session, error)
	GetSession(ctx context.Context, id int) (*api.Session, error)
	ListSessions(ctx context.Context) ([]api.Session, error)
	GetIceServers(ctx context.Context) []api.IceServer
	IceConfiguration(ctx context.Context) webrtc.Configuration
	Health(ctx context.Context, probe api.Probe) (*api.Health, error)
}

// Hub is the part of connect.Session the facade relies on.
type Hub interface {
	Open(ctx context.Context) error
	On(event connect.Event, h connect.Handler)
	Send(ctx context.Context, method string, args ...interface{}) error
	Close() error
	Connected() bool
}

// HubFactory builds a fresh hub session for the given bearer token.
type HubFactory func(token string) Hub

type Client struct {
	conf     config.Config
	api      API
	newHub   HubFactory
	observer Observer
	log      *logrus.Entry
	metrics  *facadeMetrics

	// opMu serializes public operations; mu guards the fields below and is
	// shared with hub handlers. Observer callbacks never run under either.
	opMu  sync.Mutex
	mu    sync.Mutex
	state State
	user  *User
	room  string
	hub   Hub
	call  *api.Session
}

type Option func(*Client)

func WithAPI(a API) Option {
	return func(c *Client) { c.api = a }
}

func WithHubFactory(f HubFactory) Option {
	return func(c *Client) { c.newHub = f }
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

func WithLogger(l *logrus.Entry) Option {
	return func(c *Client) { c.log = l }
}

// WithMetrics registers the facade counters in r instead of a private
// registry.
func WithMetrics(r metrics.Registry) Option {
	return func(c *Client) { c.metrics = newFacadeMetrics(r) }
}

func New(conf config.Config, opts ...Option) *Client {
	c := &Client{conf: conf, state: StateIdle}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = logrus.WithField("component", "client")
	}
	if c.api == nil {
		c.api = api.New(conf, api.WithLogger(c.log.WithField("component", "api")))
	}
	if c.newHub == nil {
		hubLog := c.log.WithField("component", "hub")
		c.newHub = func(token string) Hub {
			return connect.New(conf.Hub, connect.WithToken(token), connect.WithLogger(hubLog))
		}
	}
	if c.observer == nil {
		c.observer = Handlers{}
	}
	if c.metrics == nil {
		c.metrics = newFacadeMetrics(metrics.NewRegistry())
	}
	return c
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return ""
	}
	return c.user.Username
}

// User returns a copy of the authenticated user, or nil.
func (c *Client) User() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

func (c *Client) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateHubConnected || c.state == StateInRoom
}

func (c *Client) LoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user != nil && c.state != StateClosed
}

func (c *Client) Metrics() metrics.Registry {
	return c.metrics.registry
}

// emitMessage is the single delivery path for inbound, echoed and system
// messages.
func (c *Client) emitMessage(msg ChatMessage) {
	if msg.Id == "" {
		msg.Id = newMessageId()
	}
	c.observer.OnMessage(msg)
}

func (c *Client) emitError(err error) {
	c.metrics.hubErrors.Inc(1)
	c.observer.OnError(err)
}
