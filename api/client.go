package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"smartc/config"
	"smartc/tools"
)

const maxBodySize = 1 << 20

// Client talks to the SmaRTC REST backend. Every method is a single attempt:
// failures are mapped to *tools.Error and handed back, never retried.
type Client struct {
	base     string
	http     *http.Client
	fallback []IceServer
	log      *logrus.Entry

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

// WithHTTPClient replaces the transport; its Timeout is overwritten by the
// configured api timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *logrus.Entry) Option {
	return func(c *Client) { c.log = l }
}

func New(conf config.Config, opts ...Option) *Client {
	c := &Client{
		base:     conf.Api.BaseURL,
		http:     &http.Client{},
		fallback: fallbackServers(conf.Ice),
		log:      logrus.WithField("component", "api"),
	}
	for _, o := range opts {
		o(c)
	}
	c.http.Timeout = conf.Api.Timeout
	return c
}

func fallbackServers(ic config.IceConfig) []IceServer {
	servers := make([]IceServer, 0, len(ic.StunServers)+len(ic.TurnServers))
	for _, s := range ic.StunServers {
		servers = append(servers, IceServer{URLs: []string{s}})
	}
	for _, t := range ic.TurnServers {
		servers = append(servers, IceServer{
			URLs:       append([]string(nil), t.URLs...),
			Username:   t.Username,
			Credential: t.Credential,
		})
	}
	return servers
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Logout forgets the bearer token. The backend keeps no server-side session.
func (c *Client) Logout() {
	c.SetToken("")
}

// send performs one request and returns the status and body. Only transport
// failures produce an error here; status mapping is left to the caller.
func (c *Client) send(ctx context.Context, op, method, p string, in interface{}) (int, []byte, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, nil, tools.Validation(op, "encode request: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, tools.JoinURL(c.base, p), body)
	if err != nil {
		return 0, nil, tools.Validation(op, "build request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithError(err).WithField("op", op).Debug("request failed")
		return 0, nil, tools.Network(op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, tools.Network(op, errors.Wrap(err, "read body"))
	}
	c.log.WithFields(logrus.Fields{"op": op, "status": resp.StatusCode}).Debug("request done")
	return resp.StatusCode, data, nil
}

func success(status int) bool {
	return status >= 200 && status < 300
}

// call is send plus the default status mapping and JSON decoding into out.
func (c *Client) call(ctx context.Context, op, method, p string, in, out interface{}) error {
	status, data, err := c.send(ctx, op, method, p, in)
	if err != nil {
		return err
	}
	if !success(status) {
		return tools.FromStatus(op, status, string(data))
	}
	return decode(op, status, data, out)
}

func decode(op string, status int, data []byte, out interface{}) error {
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &tools.Error{Kind: tools.KindService, Op: op, Status: status, Err: errors.Wrap(err, "decode response")}
	}
	return nil
}
