package connect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/philippseith/signalr"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"smartc/config"
	"smartc/tools"
)

// roomHub mimics the SmaRTC signal hub closely enough for round trips:
// every call is echoed to all clients as the matching event.
type roomHub struct {
	signalr.Hub
}

func (h *roomHub) JoinSession(room, username string) {
	h.Clients().All().Send(string(EventUserJoined), username)
}

func (h *roomHub) LeaveSession(room, username string) {
	h.Clients().All().Send(string(EventUserLeft), username)
}

func (h *roomHub) SendSignalToSession(room, signal, username string) {
	h.Clients().All().Send(string(EventSignal), signal, username)
}

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return logrus.NewEntry(l)
}

func newHubServer(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	server, err := signalr.NewServer(ctx,
		signalr.SimpleHubFactory(&roomHub{}),
		signalr.Logger(&logAdapter{log: quietLog()}, false))
	require.NoError(t, err)
	mux := http.NewServeMux()
	server.MapHTTP(signalr.WithHTTPServeMux(mux), "/signalhub")
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts.URL + "/signalhub"
}

func testHubConfig(url string) config.HubConfig {
	conf := config.Default().Hub
	conf.URL = url
	conf.OpenTimeout = 5 * time.Second
	conf.SendTimeout = 5 * time.Second
	return conf
}

func expectArgs(t *testing.T, ch <-chan []string, want ...string) {
	t.Helper()
	select {
	case got := <-ch:
		require.Equal(t, want, got)
	case <-time.After(5 * time.Second):
		t.Fatalf("no event, want %v", want)
	}
}

func roundTrip(t *testing.T, s *Session) {
	t.Helper()
	ctx := context.Background()
	joined := make(chan []string, 4)
	left := make(chan []string, 4)
	signals := make(chan []string, 4)
	s.On(EventUserJoined, func(args ...string) { joined <- args })
	s.On(EventUserLeft, func(args ...string) { left <- args })
	s.On(EventSignal, func(args ...string) { signals <- args })

	require.NoError(t, s.Open(ctx))
	require.True(t, s.Connected())
	// already open
	require.NoError(t, s.Open(ctx))

	require.NoError(t, s.Send(ctx, MethodJoinSession, "R1", "alice"))
	expectArgs(t, joined, "alice")

	payload := `{"type":"chat","sender":"alice","content":"hi","timestamp":"2026-01-02T03:04:05Z"}`
	require.NoError(t, s.Send(ctx, MethodSendSignalToSession, "R1", payload, "alice"))
	expectArgs(t, signals, payload, "alice")

	require.NoError(t, s.Send(ctx, MethodLeaveSession, "R1", "alice"))
	expectArgs(t, left, "alice")

	require.NoError(t, s.Close())
	require.False(t, s.Connected())
	require.True(t, errors.Is(s.Send(ctx, MethodJoinSession, "R1", "alice"), tools.ErrNetwork))
}

func TestSessionNegotiated(t *testing.T) {
	url := newHubServer(t)
	roundTrip(t, New(testHubConfig(url), WithToken("token"), WithLogger(quietLog())))
}

func TestSessionDirectWebsocket(t *testing.T) {
	url := newHubServer(t)
	conf := testHubConfig(url)
	conf.SkipNegotiation = true
	roundTrip(t, New(conf, WithLogger(quietLog())))
}

func TestOpenTimesOut(t *testing.T) {
	conf := testHubConfig("http://127.0.0.1:1/signalhub")
	conf.OpenTimeout = 200 * time.Millisecond
	s := New(conf, WithLogger(quietLog()), WithConnector(func(ctx context.Context) (signalr.Connection, error) {
		return nil, errors.New("connection refused")
	}))

	start := time.Now()
	err := s.Open(context.Background())
	require.True(t, errors.Is(err, tools.ErrNetwork))
	require.False(t, s.Connected())
	require.Less(t, time.Since(start), 3*time.Second)
	require.NoError(t, s.Close())
}

func TestSendRequiresOpen(t *testing.T) {
	s := New(testHubConfig("http://localhost/signalhub"), WithLogger(quietLog()))
	err := s.Send(context.Background(), MethodJoinSession, "R1", "alice")
	require.True(t, errors.Is(err, tools.ErrNetwork))
}

func TestCloseIsIdempotent(t *testing.T) {
	s := New(testHubConfig("http://localhost/signalhub"), WithLogger(quietLog()))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestReceiverDispatch(t *testing.T) {
	s := New(testHubConfig("http://localhost/signalhub"), WithLogger(quietLog()))
	var got [][]string
	s.On(EventSignal, func(args ...string) { got = append(got, args) })
	s.On(EventUserJoined, func(args ...string) { got = append(got, args) })
	s.On(EventUserLeft, func(args ...string) { got = append(got, args) })

	r := &receiver{s: s}
	r.SendSignal("payload", "bob")
	r.NewUserArrived("carol")
	r.UserLeft("dave")
	require.Equal(t, [][]string{{"payload", "bob"}, {"carol"}, {"dave"}}, got)

	// nothing is delivered once closed
	require.NoError(t, s.Close())
	r.NewUserArrived("erin")
	require.Len(t, got, 3)
}

func TestLogAdapter(t *testing.T) {
	a := &logAdapter{log: quietLog()}
	require.NoError(t, a.Log("level", "error", "message", "boom", "connection", "c1"))
	// odd key count is tolerated
	require.NoError(t, a.Log("dangling"))
}
