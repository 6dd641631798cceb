package api

import (
	"encoding/json"
	"time"

	"github.com/pion/webrtc/v4"

	"smartc/tools"
)

// REST routes consumed by the SDK.
const (
	registerPath = "/api/auth/register"
	loginPath    = "/api/auth/login"
	sessionPath  = "/api/session"
	icePath      = "/api/webrtc/ice"
	healthPath   = "/api/health"
)

type RegisterOutcome int

const (
	RegisterCreated RegisterOutcome = iota + 1
	// the username was taken; callers treat this like success
	RegisterAlreadyExists
)

func (o RegisterOutcome) String() string {
	switch o {
	case RegisterCreated:
		return "created"
	case RegisterAlreadyExists:
		return "already exists"
	}
	return "unknown"
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResult struct {
	UserId int    `json:"userId"`
	Token  string `json:"token"`
}

type createSessionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Session is a call session as the backend reports it.
type Session struct {
	Id          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatorId   int    `json:"creatorId"`
	CreatedAt   string `json:"createdAt"`
}

// Created parses CreatedAt; the backend emits zone-less timestamps.
func (s Session) Created() (time.Time, bool) {
	return tools.ParseISO(s.CreatedAt)
}

type IceServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

// UnmarshalJSON accepts urls as a single string or an array, both of which
// appear in RTCIceServer dictionaries.
func (s *IceServer) UnmarshalJSON(b []byte) error {
	var raw struct {
		URLs       json.RawMessage `json:"urls"`
		Username   string          `json:"username"`
		Credential string          `json:"credential"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	s.Username = raw.Username
	s.Credential = raw.Credential
	s.URLs = nil
	if len(raw.URLs) == 0 || string(raw.URLs) == "null" {
		return nil
	}
	var one string
	if err := json.Unmarshal(raw.URLs, &one); err == nil {
		s.URLs = []string{one}
		return nil
	}
	return json.Unmarshal(raw.URLs, &s.URLs)
}

// WebRTC converts to the pion representation.
func (s IceServer) WebRTC() webrtc.ICEServer {
	out := webrtc.ICEServer{
		URLs:     append([]string(nil), s.URLs...),
		Username: s.Username,
	}
	if s.Credential != "" {
		out.Credential = s.Credential
	}
	return out
}

type iceResponse struct {
	IceServers []IceServer `json:"iceServers"`
}

type Probe string

const (
	ProbeOverall Probe = ""
	ProbeLive    Probe = "live"
	ProbeReady   Probe = "ready"
)

type ComponentHealth struct {
	Status         string `json:"status"`
	Details        string `json:"details,omitempty"`
	ResponseTimeMs *int64 `json:"responseTimeMs,omitempty"`
}

type Health struct {
	Status     string                     `json:"status"` // healthy, degraded, unhealthy
	Timestamp  string                     `json:"timestamp,omitempty"`
	Message    string                     `json:"message,omitempty"`
	Uptime     string                     `json:"uptime,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

func (h Health) Healthy() bool { return h.Status == "healthy" }
