// Package server exposes the generation service over HTTP with an
// OpenAI-compatible surface: /v1/images/{generations,edits,variations},
// /v1/models and /v1/health, plus static serving of persisted images.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"flux_backend/admission"
	"flux_backend/fluxruntime"
	"flux_backend/logging"
	"flux_backend/metrics"
	"flux_backend/service"
)

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Host to bind to.
	Host string

	// Port to listen on.
	Port int

	// ReadTimeout for HTTP requests.
	ReadTimeout time.Duration

	// WriteTimeout for HTTP responses. Generation is synchronous and can
	// take minutes per batch, so this is much longer than usual.
	WriteTimeout time.Duration

	// IdleTimeout for keep-alive connections.
	IdleTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// MaxRequestBytes caps the request body size.
	MaxRequestBytes int64

	// RateLimitCount and RateLimitWindow describe the admission policy;
	// used for error messages (the Limiter itself enforces it).
	RateLimitCount  int
	RateLimitWindow time.Duration

	// StaticDir is the output directory served under StaticPrefix.
	StaticDir string

	// StaticPrefix is the URL prefix for persisted images.
	StaticPrefix string

	// LogSkipPaths are paths excluded from request logging.
	LogSkipPaths []string
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8000,
		ReadTimeout:     60 * time.Second,
		WriteTimeout:    10 * time.Minute,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		MaxRequestBytes: 50 * 1024 * 1024,
		RateLimitCount:  100,
		RateLimitWindow: time.Hour,
		StaticDir:       "static/outputs",
		StaticPrefix:    "static/outputs",
		LogSkipPaths:    []string{"/v1/health", "/ping"},
	}
}

// Server wires the middleware chain, routes and graceful shutdown around
// the ImageService.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	config     ServerConfig
	svc        *service.ImageService
	runtime    *fluxruntime.Runtime
	limiter    *admission.Limiter
	catalog    *ModelCatalog
	stats      *metrics.Store
	log        *logging.Logger
}

// NewServer creates a Server over the given collaborators. limiter and
// stats may be nil to disable rate limiting and the stats endpoint.
func NewServer(
	config ServerConfig,
	svc *service.ImageService,
	runtime *fluxruntime.Runtime,
	limiter *admission.Limiter,
	catalog *ModelCatalog,
	stats *metrics.Store,
	log *logging.Logger,
) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("server: image service is required")
	}
	if runtime == nil {
		return nil, fmt.Errorf("server: model runtime is required")
	}
	if log == nil {
		log = logging.NewNop()
	}

	s := &Server{
		mux:     http.NewServeMux(),
		config:  config,
		svc:     svc,
		runtime: runtime,
		limiter: limiter,
		catalog: catalog,
		stats:   stats,
		log:     log.Named("server"),
	}
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.rootHandler(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	s.log.Info("Server created", zap.String("addr", addr))
	return s, nil
}

// setupRoutes configures all the HTTP routes.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("POST /v1/images/generations", s.handleGenerations)
	s.mux.HandleFunc("POST /v1/images/edits", s.handleEdits)
	s.mux.HandleFunc("POST /v1/images/variations", s.handleVariations)

	s.mux.HandleFunc("GET /v1/models", s.handleListModels)
	s.mux.HandleFunc("GET /v1/models/{id}", s.handleGetModel)
	s.mux.HandleFunc("GET /v1/health", s.handleHealth)
	if s.stats != nil {
		s.mux.HandleFunc("GET /v1/stats", s.handleStats)
	}

	s.mux.HandleFunc("GET /ping", s.handlePing)
	s.mux.HandleFunc("/", s.handleRoot)

	if s.config.StaticDir != "" {
		prefix := "/" + strings.Trim(s.config.StaticPrefix, "/") + "/"
		s.mux.Handle("GET "+prefix,
			http.StripPrefix(prefix, http.FileServer(http.Dir(s.config.StaticDir))))
	}
}

// rootHandler wraps the mux with the middleware chain. Order matters:
// rate limiting runs before the body is read so rejected requests cost
// nothing, and logging wraps everything to capture the final status.
func (s *Server) rootHandler() http.Handler {
	var handler http.Handler = s.mux

	handler = bodyLimitMiddleware(s.config.MaxRequestBytes)(handler)
	if s.limiter != nil {
		handler = rateLimitMiddleware(s.limiter, s.config.RateLimitCount, s.config.RateLimitWindow)(handler)
	}
	handler = securityHeadersMiddleware(handler)
	handler = corsMiddleware(handler)
	handler = loggingMiddleware(s.log, skipSet(s.config.LogSkipPaths))(handler)

	return handler
}

func skipSet(paths []string) map[string]bool {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	return set
}

// Handler returns the fully wrapped handler, exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for HTTP requests and blocks until the server
// is shut down.
func (s *Server) Start() error {
	s.log.Info("Server starting", zap.String("addr", s.httpServer.Addr))
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: http server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server, waiting up to ShutdownTimeout for
// in-flight requests to complete.
func (s *Server) Shutdown(ctx context.Context) error {
	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.log.Info("Server shutting down")
	return s.httpServer.Shutdown(shutdownCtx)
}
