package api

import (
	"context"
	"net/http"

	"github.com/pion/webrtc/v4"
)

// GetIceServers asks the backend for STUN/TURN servers. It never fails: any
// error, or an empty answer, yields the configured fallback list.
func (c *Client) GetIceServers(ctx context.Context) []IceServer {
	var res iceResponse
	err := c.call(ctx, "ice servers", http.MethodGet, icePath, nil, &res)
	if err != nil || len(res.IceServers) == 0 {
		if err != nil {
			c.log.WithError(err).Warn("ice servers unavailable, using fallback")
		}
		return c.Fallback()
	}
	return res.IceServers
}

// Fallback returns a copy of the configured STUN/TURN list.
func (c *Client) Fallback() []IceServer {
	out := make([]IceServer, len(c.fallback))
	for i, s := range c.fallback {
		s.URLs = append([]string(nil), s.URLs...)
		out[i] = s
	}
	return out
}

// IceConfiguration returns a peer connection configuration carrying the
// current ICE servers.
func (c *Client) IceConfiguration(ctx context.Context) webrtc.Configuration {
	servers := c.GetIceServers(ctx)
	conf := webrtc.Configuration{
		ICEServers: make([]webrtc.ICEServer, 0, len(servers)),
	}
	for _, s := range servers {
		conf.ICEServers = append(conf.ICEServers, s.WebRTC())
	}
	return conf
}
