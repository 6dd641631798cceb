package tools

import (
	"fmt"
	"net/url"
	"strings"
)

// JoinURL appends an API path to a base address, tolerating a trailing slash
// on the base.
func JoinURL(base, p string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(p, "/")
}

// WebsocketURL maps a hub address to the address used for a direct websocket
// dial: http becomes ws, https becomes wss. A non-empty token is added as the
// access_token query parameter, which is how SignalR hubs accept bearer
// tokens on websocket upgrades.
func WebsocketURL(hubURL, token string) (string, error) {
	u, err := url.Parse(hubURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("hub url: \"%s\" error, scheme must be http, https, ws or wss", hubURL)
	}
	if token != "" {
		q := u.Query()
		q.Set("access_token", token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
