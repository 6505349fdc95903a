// Package api provides the HTTP server: REST API, websocket rooms and health probes.
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/good-yellow-bee/devroom/internal/api/ai"
	"github.com/good-yellow-bee/devroom/internal/api/auth"
	"github.com/good-yellow-bee/devroom/internal/api/health"
	"github.com/good-yellow-bee/devroom/internal/api/middleware"
	"github.com/good-yellow-bee/devroom/internal/realtime"
	"github.com/good-yellow-bee/devroom/internal/storage"
)

// Config contains HTTP server configuration.
type Config struct {
	Address          string
	RateLimitPerIP   int // auth requests per minute per client IP
	RateLimitPerUser int // API requests per minute per user
	LockoutThreshold int
	LockoutDuration  time.Duration
	HistoryLimit     int // messages returned with a project
	AITimeout        time.Duration
	Realtime         realtime.Config
	Verbose          bool
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.RateLimitPerIP == 0 {
		c.RateLimitPerIP = 10
	}
	if c.RateLimitPerUser == 0 {
		c.RateLimitPerUser = 120
	}
	if c.LockoutThreshold == 0 {
		c.LockoutThreshold = 5
	}
	if c.LockoutDuration == 0 {
		c.LockoutDuration = 15 * time.Minute
	}
	if c.HistoryLimit == 0 {
		c.HistoryLimit = 200
	}
	if c.AITimeout == 0 {
		c.AITimeout = 2 * time.Minute
	}
}

// Deps are the collaborators the server routes to.
type Deps struct {
	Storage   storage.Storage
	Tokens    *auth.TokenService
	Chat      realtime.Chat
	Generator ai.Generator // nil when the assistant is disabled
}

// Server is the HTTP server.
type Server struct {
	config        *Config
	deps          Deps
	server        *http.Server
	listener      net.Listener
	healthHandler *health.Handler
	realtime      *realtime.Handler

	ipLimiter   *middleware.RateLimiter
	userLimiter *middleware.RateLimiter
	lockout     *auth.LockoutTracker
}

// New creates a new server.
func New(cfg *Config, deps Deps) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if deps.Tokens == nil {
		return nil, fmt.Errorf("token service is required")
	}
	if deps.Chat == nil {
		return nil, fmt.Errorf("chat service is required")
	}

	cfg.SetDefaults()

	s := &Server{
		config:        cfg,
		deps:          deps,
		healthHandler: health.NewHandler(),
		ipLimiter:     middleware.NewRateLimiter(cfg.RateLimitPerIP),
		userLimiter:   middleware.NewRateLimiter(cfg.RateLimitPerUser),
		lockout:       auth.NewLockoutTracker(cfg.LockoutThreshold, cfg.LockoutDuration),
	}

	s.server = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.setupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
		// No WriteTimeout: websocket connections are long-lived and the AI
		// endpoint is bounded by its own context.
		IdleTimeout: 60 * time.Second,
	}

	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Listen binds the configured address. Run calls it if it has not been called.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Address, err)
	}
	s.listener = ln
	return nil
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		log.Printf("http server listening on %s", s.Address())
		if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Printf("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := s.server.Shutdown(shutdownCtx)
		s.Close()
		log.Printf("http server stopped")
		return err
	case err := <-errChan:
		s.Close()
		return err
	}
}

// Close ends live websocket connections, which Shutdown does not track, and
// stops the background sweepers of the rate limiters and lockout tracker.
func (s *Server) Close() {
	if s.realtime != nil {
		s.realtime.Close()
	}
	s.ipLimiter.Close()
	s.userLimiter.Close()
	s.lockout.Close()
}

// Address returns the bound address, or the configured one before Listen.
func (s *Server) Address() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Address
}

// RegisterHealthChecker adds a readiness checker.
func (s *Server) RegisterHealthChecker(c health.Checker) {
	s.healthHandler.RegisterChecker(c)
}
