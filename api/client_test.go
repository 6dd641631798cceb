package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"smartc/api/apitest"
	"smartc/config"
	"smartc/tools"
)

func newTestClient(t *testing.T) (*Client, *apitest.Server) {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	conf := config.Default()
	conf.Api.BaseURL = srv.URL
	conf.Api.Timeout = 2 * time.Second
	conf.Ice.StunServers = []string{"stun:fallback.test:3478"}
	return New(conf), srv
}

func TestRegister(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	outcome, err := c.Register(ctx, "alice", "Secret1!", "")
	require.NoError(t, err)
	require.Equal(t, RegisterCreated, outcome)
	require.True(t, srv.HasUser("alice"))

	// taking an existing name is success-equivalent
	outcome, err = c.Register(ctx, "alice", "other", "User")
	require.NoError(t, err)
	require.Equal(t, RegisterAlreadyExists, outcome)
}

func TestRegisterRateLimited(t *testing.T) {
	c, srv := newTestClient(t)
	srv.RateLimit(registerPath, true)

	_, err := c.Register(context.Background(), "bob", "pw", "")
	require.Error(t, err)
	require.True(t, errors.Is(err, tools.ErrRateLimited))
}

func TestRegisterServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database down", http.StatusInternalServerError)
	}))
	defer ts.Close()
	conf := config.Default()
	conf.Api.BaseURL = ts.URL

	_, err := New(conf).Register(context.Background(), "bob", "pw", "")
	var e *tools.Error
	require.True(t, errors.As(err, &e))
	require.Equal(t, tools.KindService, e.Kind)
	require.Equal(t, http.StatusInternalServerError, e.Status)
	require.Equal(t, "database down", e.Body)
}

func TestLogin(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	res, err := c.Login(ctx, apitest.DemoUser, apitest.DemoPassword)
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	require.Equal(t, 1, res.UserId)
	require.Equal(t, res.Token, c.Token())
}

func TestLoginFailures(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	_, err := c.Login(ctx, apitest.DemoUser, "wrong")
	require.True(t, errors.Is(err, tools.ErrAuthentication))

	_, err = c.Login(ctx, "ghost", "whatever")
	require.True(t, errors.Is(err, tools.ErrNotFound))

	srv.RateLimit(loginPath, true)
	_, err = c.Login(ctx, apitest.DemoUser, apitest.DemoPassword)
	require.True(t, errors.Is(err, tools.ErrRateLimited))

	_, err = c.Login(ctx, "", "")
	require.True(t, errors.Is(err, tools.ErrValidation))
	require.Empty(t, c.Token())
}

func TestSessions(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	// no token yet
	_, err := c.ListSessions(ctx)
	require.True(t, errors.Is(err, tools.ErrAuthentication))

	res, err := c.Login(ctx, apitest.DemoUser, apitest.DemoPassword)
	require.NoError(t, err)

	created, err := c.CreateSession(ctx, "Standup", "daily sync")
	require.NoError(t, err)
	require.Equal(t, "Standup", created.Name)
	require.Equal(t, res.UserId, created.CreatorId)
	require.Equal(t, "Bearer "+res.Token, srv.LastAuthorization())
	_, ok := created.Created()
	require.True(t, ok)

	list, err := c.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, created.Id, list[0].Id)

	got, err := c.GetSession(ctx, created.Id)
	require.NoError(t, err)
	require.Equal(t, *created, *got)

	_, err = c.GetSession(ctx, 999)
	require.True(t, errors.Is(err, tools.ErrNotFound))

	c.Logout()
	_, err = c.GetSession(ctx, created.Id)
	require.True(t, errors.Is(err, tools.ErrAuthentication))
}

func TestListSessionsEmpty(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	_, err := c.Login(ctx, apitest.DemoUser, apitest.DemoPassword)
	require.NoError(t, err)

	list, err := c.ListSessions(ctx)
	require.NoError(t, err)
	require.NotNil(t, list)
	require.Empty(t, list)
}

func TestIceServers(t *testing.T) {
	c, _ := newTestClient(t)

	servers := c.GetIceServers(context.Background())
	require.Len(t, servers, 2)
	require.Equal(t, []string{"stun:stun.smartc.test:3478"}, servers[0].URLs)
	require.Equal(t, []string{"turn:turn.smartc.test:3478"}, servers[1].URLs)
	require.Equal(t, "turn-user", servers[1].Username)

	conf := c.IceConfiguration(context.Background())
	require.Len(t, conf.ICEServers, 2)
	require.Equal(t, "turn-pass", conf.ICEServers[1].Credential)
}

func TestIceServersFallback(t *testing.T) {
	c, srv := newTestClient(t)
	want := []IceServer{{URLs: []string{"stun:fallback.test:3478"}}}

	srv.SetIceStatus(http.StatusInternalServerError)
	require.Equal(t, want, c.GetIceServers(context.Background()))

	srv.SetIceStatus(http.StatusOK)
	srv.SetIceServers([]gin.H{})
	require.Equal(t, want, c.GetIceServers(context.Background()))

	// unreachable backend
	srv.Close()
	require.Equal(t, want, c.GetIceServers(context.Background()))
}

func TestFallbackIncludesTurn(t *testing.T) {
	conf := config.Default()
	conf.Ice.StunServers = []string{"stun:a"}
	conf.Ice.TurnServers = []config.TurnServer{{URLs: []string{"turn:b"}, Username: "u", Credential: "p"}}
	c := New(conf)

	fb := c.Fallback()
	require.Len(t, fb, 2)
	require.Equal(t, "p", fb[1].Credential)
	fb[0].URLs[0] = "mutated"
	require.Equal(t, "stun:a", c.Fallback()[0].URLs[0])
}

func TestHealth(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	h, err := c.Health(ctx, ProbeOverall)
	require.NoError(t, err)
	require.True(t, h.Healthy())
	require.Contains(t, h.Components, "database")

	_, err = c.Health(ctx, ProbeLive)
	require.NoError(t, err)
	require.Equal(t, 1, srv.Hits("/api/health/live"))

	srv.SetHealthy(false)
	h, err = c.Health(ctx, ProbeReady)
	require.True(t, errors.Is(err, tools.ErrService))
	require.NotNil(t, h)
	require.Equal(t, "unhealthy", h.Status)
	require.Equal(t, "database unreachable", h.Message)
}

func TestTimeoutIsNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer ts.Close()
	conf := config.Default()
	conf.Api.BaseURL = ts.URL
	conf.Api.Timeout = 20 * time.Millisecond

	_, err := New(conf).Login(context.Background(), "a", "b")
	require.True(t, errors.Is(err, tools.ErrNetwork))
}

func TestIceServerUnmarshal(t *testing.T) {
	var s IceServer
	require.NoError(t, s.UnmarshalJSON([]byte(`{"urls":"stun:x"}`)))
	require.Equal(t, []string{"stun:x"}, s.URLs)
	require.NoError(t, s.UnmarshalJSON([]byte(`{"urls":["turn:a","turn:b"],"username":"u","credential":"c"}`)))
	require.Equal(t, []string{"turn:a", "turn:b"}, s.URLs)
	require.Equal(t, "c", s.Credential)
	require.Error(t, s.UnmarshalJSON([]byte(`{"urls":42}`)))
}
