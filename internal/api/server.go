package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/smartlight-core/internal/audit"
	"github.com/nerrad567/smartlight-core/internal/auth"
	"github.com/nerrad567/smartlight-core/internal/infrastructure/config"
	"github.com/nerrad567/smartlight-core/internal/infrastructure/logging"
	"github.com/nerrad567/smartlight-core/internal/lighting"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker is a component whose health is reported by GET /health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	Logger    *logging.Logger
	Auth      *auth.Service
	Gateway   *lighting.Gateway
	Dashboard *lighting.Dashboard

	// AuditRepo is optional. Without it nothing is recorded and
	// GET /api/audit returns 500.
	AuditRepo audit.Repository

	// Health maps component names ("database", "mqtt") to their checks.
	Health map[string]HealthChecker

	Version string
}

// Server is the HTTP API server for Smart Lighting Core.
//
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	auth      *auth.Service
	gateway   *lighting.Gateway
	dashboard *lighting.Dashboard
	auditRepo audit.Repository
	auditCh   chan *audit.Entry
	health    map[string]HealthChecker
	version   string
	server    *http.Server
	cancel    context.CancelFunc // stops the audit drain on Close()
	drained   chan struct{}

	// auditMu guards auditStopped. Senders hold the read lock so no
	// entry is queued once Close has stopped the writer.
	auditMu      sync.RWMutex
	auditStopped bool
	auditDropped atomic.Int64
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("auth service is required")
	}
	if deps.Gateway == nil {
		return nil, fmt.Errorf("device gateway is required")
	}
	if deps.Dashboard == nil {
		return nil, fmt.Errorf("dashboard is required")
	}

	s := &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		auth:      deps.Auth,
		gateway:   deps.Gateway,
		dashboard: deps.Dashboard,
		auditRepo: deps.AuditRepo,
		health:    deps.Health,
		version:   deps.Version,
	}
	if s.auditRepo != nil {
		s.auditCh = make(chan *audit.Entry, auditChanSize)
	}

	return s, nil
}

// Handler returns the fully routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections.
//
// It starts the audit writer and launches the HTTP listener in a
// background goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.auditCh != nil {
		s.drained = make(chan struct{})
		go func() {
			defer close(s.drained)
			s.drainAuditLog(srvCtx)
		}()
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.Timeouts.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.Timeouts.ReadTimeout(),
		WriteTimeout:      s.cfg.Timeouts.WriteTimeout(),
		IdleTimeout:       s.cfg.Timeouts.IdleTimeout(),
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete, then
// flushes queued audit entries.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	err := s.server.Shutdown(ctx)

	s.stopAudit()
	if s.cancel != nil {
		s.cancel()
	}
	if s.drained != nil {
		<-s.drained
	}
	if n := s.auditDropped.Load(); n > 0 {
		s.logger.Warn("audit entries dropped", "count", n)
	}

	if err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
