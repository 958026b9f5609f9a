// Package api provides the HTTP REST API and WebSocket server for Autofill Core.
//
// It exposes step authoring, replay runs and their results, and live run
// progress to user interfaces and scripts.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/autofill-core/internal/audit"
	"github.com/nerrad567/autofill-core/internal/infrastructure/config"
	"github.com/nerrad567/autofill-core/internal/infrastructure/database"
	"github.com/nerrad567/autofill-core/internal/infrastructure/logging"
	"github.com/nerrad567/autofill-core/internal/replay"
	"github.com/nerrad567/autofill-core/internal/step"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker is implemented by every infrastructure client.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Logger      *logging.Logger
	Steps       *step.Registry
	Engine      *replay.Engine
	Results     replay.ResultRepository
	Audit       audit.Repository         // optional; nil disables the audit trail
	DB          *database.DB             // optional; pool stats in GET /metrics
	Checks      map[string]HealthChecker // reported by GET /health
	ExternalHub *Hub                     // If set, the server uses this hub instead of creating its own
	Version     string

	// DefaultStepTimeout replaces the built-in execution timeout of steps
	// created without one (seconds). Zero keeps the built-in default.
	DefaultStepTimeout float64
}

// Server is the HTTP API server for Autofill Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	logger      *logging.Logger
	steps       *step.Registry
	engine      *replay.Engine
	results     replay.ResultRepository
	audit       audit.Repository
	db          *database.DB
	checks      map[string]HealthChecker
	version     string
	stepTimeout float64
	startTime   time.Time
	server      *http.Server
	hub         *Hub
	cancel      context.CancelFunc // cancels background goroutines on Close()

	// runCtx outlives individual requests so async runs survive the
	// request that started them. Cancelled by Close.
	runCtx context.Context
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Steps == nil {
		return nil, fmt.Errorf("step registry is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("replay engine is required")
	}
	if deps.Results == nil {
		return nil, fmt.Errorf("result repository is required")
	}

	s := &Server{
		cfg:         deps.Config,
		wsCfg:       deps.WS,
		logger:      deps.Logger,
		steps:       deps.Steps,
		engine:      deps.Engine,
		results:     deps.Results,
		audit:       deps.Audit,
		db:          deps.DB,
		checks:      deps.Checks,
		version:     deps.Version,
		stepTimeout: deps.DefaultStepTimeout,
		startTime:   time.Now(),
		runCtx:      context.Background(),
	}

	// The engine broadcasts through the hub, so main usually creates it
	// first and injects it here.
	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
	}

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub if none was injected and launches the HTTP
// listener in a background goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	s.runCtx = srvCtx

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
		go s.hub.Run(srvCtx)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
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
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections. Background runs started
// through the API are cancelled.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
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

// Handler returns the router without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}
