package server

import (
	"context"
	"net/http"
	"time"

	"ctchen222/Finger-Auth/internal/api/controller"
	"ctchen222/Finger-Auth/internal/api/middleware"
	"ctchen222/Finger-Auth/internal/api/service"
	"ctchen222/Finger-Auth/internal/landmark"
	"ctchen222/Finger-Auth/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("server")

const streamPath = "/challenge/stream"

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Deps is everything the HTTP surface needs.
type Deps struct {
	Codec               *session.Codec
	Sessions            session.Store
	UserController      *controller.UserController
	ChallengeController *controller.ChallengeController
	Challenges          service.ChallengeService
	HealthChecks        map[string]HealthCheck
	// StreamIdleTimeout closes a frame stream that stays silent this long.
	StreamIdleTimeout time.Duration
}

type Server struct {
	engine      *gin.Engine
	upgrader    websocket.Upgrader
	challenges  service.ChallengeService
	checks      map[string]HealthCheck
	idleTimeout time.Duration
}

func NewServer(deps Deps) *Server {
	s := &Server{
		engine: gin.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// CheckOrigin is left nil so only same-origin pages can stream
			// frames with the session cookie.
		},
		challenges:  deps.Challenges,
		checks:      deps.HealthChecks,
		idleTimeout: deps.StreamIdleTimeout,
	}
	if s.idleTimeout <= 0 {
		s.idleTimeout = time.Minute
	}

	s.engine.Use(gin.Recovery())
	s.registerHandlers(deps)
	return s
}

func (s *Server) registerHandlers(deps Deps) {
	s.engine.GET("/health", s.health)

	r := s.engine.Group("/")
	r.Use(middleware.Session(deps.Codec))

	uc := deps.UserController
	r.GET("/", uc.Index)
	r.POST("/register", uc.Register)
	r.POST("/login", uc.Login)
	r.POST("/complete-challenge", uc.CompleteChallenge)
	r.GET("/dashboard", middleware.RequireAuthenticated(deps.Sessions, "/"), uc.Dashboard)
	r.GET("/logout", uc.Logout)
	r.GET("/cancel-auth", uc.CancelAuth)

	cc := deps.ChallengeController
	r.GET("/challenge/generate", cc.Generate)
	r.POST("/challenge/fingers", bodyLimit(2*landmark.MaxImageBytes), cc.Fingers)
	r.GET(streamPath, s.handleStream)
}

// Engine returns the root handler, instrumented with otelhttp. The frame
// stream is left out of request tracing; it traces its own lifetime.
func (s *Server) Engine() http.Handler {
	return otelhttp.NewHandler(s.engine, "finger-auth",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != streamPath
		}),
	)
}

func (s *Server) health(c *gin.Context) {
	status := http.StatusOK
	report := gin.H{}
	for name, check := range s.checks {
		if err := check(c.Request.Context()); err != nil {
			status = http.StatusServiceUnavailable
			report[name] = err.Error()
			continue
		}
		report[name] = "ok"
	}
	c.JSON(status, gin.H{"success": status == http.StatusOK, "checks": report})
}

// bodyLimit caps request bodies; base64 frames are about a third larger
// than the raw image.
func bodyLimit(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}
