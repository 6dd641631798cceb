// Package apitest runs an in-memory SmaRTC REST backend for tests and demos.
// It answers the same routes and status codes as the real service.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"smartc/tools"
)

const (
	DemoUser     = "demo"
	DemoPassword = "Demo123!"
)

type user struct {
	Id       int
	Username string
	Password string
	Role     string
}

type session struct {
	Id          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatorId   int    `json:"creatorId"`
	CreatedAt   string `json:"createdAt"`
}

type Server struct {
	*httptest.Server

	mu          sync.Mutex
	users       map[string]*user
	tokens      map[string]int // token => user id
	sessions    []session
	nextUser    int
	nextSession int
	limited     map[string]bool
	iceStatus   int
	iceServers  []gin.H
	healthy     bool
	lastAuth    string
	hits        map[string]int
}

// NewServer starts the backend with the demo account already registered.
func NewServer() *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{
		users:     map[string]*user{},
		tokens:    map[string]int{},
		limited:   map[string]bool{},
		hits:      map[string]int{},
		iceStatus: http.StatusOK,
		iceServers: []gin.H{
			{"urls": "stun:stun.smartc.test:3478"},
			{"urls": []string{"turn:turn.smartc.test:3478"}, "username": "turn-user", "credential": "turn-pass"},
		},
		healthy: true,
	}
	s.addUser(DemoUser, DemoPassword, "User")
	s.Server = httptest.NewServer(s.Register())
	return s
}

func (s *Server) addUser(username, password, role string) *user {
	s.nextUser++
	u := &user{Id: s.nextUser, Username: username, Password: password, Role: role}
	s.users[username] = u
	return u
}

func (s *Server) Register() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.trace(), s.rateLimit())
	s.initAuthRouter(r)
	s.initSessionRouter(r)
	r.GET("/api/webrtc/ice", s.ice)
	health := r.Group("/api/health")
	{
		health.GET("", s.health)
		health.GET("/live", s.health)
		health.GET("/ready", s.health)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "please check request url !"})
	})
	return r
}

func (s *Server) initAuthRouter(r *gin.Engine) {
	authGroup := r.Group("/api/auth")
	authGroup.POST("/register", s.register)
	authGroup.POST("/login", s.login)
}

func (s *Server) initSessionRouter(r *gin.Engine) {
	sessionGroup := r.Group("/api/session")
	sessionGroup.Use(s.checkToken())
	{
		sessionGroup.POST("", s.createSession)
		sessionGroup.GET("", s.listSessions)
		sessionGroup.GET("/:id", s.getSession)
	}
}

func (s *Server) trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		s.lastAuth = c.GetHeader("Authorization")
		s.hits[c.Request.URL.Path]++
		s.mu.Unlock()
		c.Next()
	}
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		limited := s.limited[c.Request.URL.Path]
		s.mu.Unlock()
		if limited {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "too many requests"})
			return
		}
		c.Next()
	}
}

// checkToken is the bearer middleware guarding session routes.
func (s *Server) checkToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		s.mu.Lock()
		userId, ok := s.tokens[token]
		s.mu.Unlock()
		if token == "" || !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
			return
		}
		c.Set("userId", userId)
		c.Next()
	}
}

type formRegister struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

func (s *Server) register(c *gin.Context) {
	var form formRegister
	if err := c.ShouldBindBodyWith(&form, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if form.Role == "" {
		form.Role = "User"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[form.Username]; ok {
		c.String(http.StatusConflict, "Username already exists.")
		return
	}
	s.addUser(form.Username, form.Password, form.Role)
	c.JSON(http.StatusOK, gin.H{"message": "User registered successfully"})
}

type formLogin struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) login(c *gin.Context) {
	var form formLogin
	if err := c.ShouldBindBodyWith(&form, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[form.Username]
	if !ok {
		c.String(http.StatusNotFound, "User not found.")
		return
	}
	if u.Password != form.Password {
		c.String(http.StatusUnauthorized, "Invalid credentials.")
		return
	}
	token := tools.GetRandomToken(32)
	s.tokens[token] = u.Id
	c.JSON(http.StatusOK, gin.H{"userId": u.Id, "token": token})
}

type formSession struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (s *Server) createSession(c *gin.Context) {
	var form formSession
	if err := c.ShouldBindBodyWith(&form, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSession++
	ses := session{
		Id:          s.nextSession,
		Name:        form.Name,
		Description: form.Description,
		CreatorId:   c.GetInt("userId"),
		// the real backend serializes DateTime without a zone
		CreatedAt: time.Now().UTC().Format("2006-01-02T15:04:05.000000"),
	}
	s.sessions = append(s.sessions, ses)
	c.JSON(http.StatusCreated, ses)
}

func (s *Server) listSessions(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]session, len(s.sessions))
	copy(out, s.sessions)
	c.JSON(http.StatusOK, out)
}

func (s *Server) getSession(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "bad session id"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ses := range s.sessions {
		if ses.Id == id {
			c.JSON(http.StatusOK, ses)
			return
		}
	}
	c.String(http.StatusNotFound, "Session not found.")
}

func (s *Server) ice(c *gin.Context) {
	s.mu.Lock()
	status, servers := s.iceStatus, s.iceServers
	s.mu.Unlock()
	if status != http.StatusOK {
		c.String(status, "ice unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"iceServers": servers})
}

func (s *Server) health(c *gin.Context) {
	s.mu.Lock()
	healthy := s.healthy
	s.mu.Unlock()
	report := gin.H{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    "00:01:00",
		"components": gin.H{
			"database": gin.H{"status": "healthy", "responseTimeMs": 3},
			"cache":    gin.H{"status": "healthy", "responseTimeMs": 1},
		},
	}
	if !healthy {
		report["status"] = "unhealthy"
		report["message"] = "database unreachable"
		c.JSON(http.StatusServiceUnavailable, report)
		return
	}
	report["status"] = "healthy"
	c.JSON(http.StatusOK, report)
}

// RateLimit makes every request to path answer 429 until cleared.
func (s *Server) RateLimit(path string, on bool) {
	s.mu.Lock()
	s.limited[path] = on
	s.mu.Unlock()
}

// SetIceStatus forces the ICE route to fail with status when not 200.
func (s *Server) SetIceStatus(status int) {
	s.mu.Lock()
	s.iceStatus = status
	s.mu.Unlock()
}

func (s *Server) SetIceServers(servers []gin.H) {
	s.mu.Lock()
	s.iceServers = servers
	s.mu.Unlock()
}

func (s *Server) SetHealthy(healthy bool) {
	s.mu.Lock()
	s.healthy = healthy
	s.mu.Unlock()
}

// LastAuthorization is the Authorization header of the latest request.
func (s *Server) LastAuthorization() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuth
}

func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *Server) HasUser(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[username]
	return ok
}
