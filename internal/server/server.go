package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackzampolin/pcr/internal/api"
	"github.com/jackzampolin/pcr/internal/config"
	"github.com/jackzampolin/pcr/internal/extract"
	"github.com/jackzampolin/pcr/internal/home"
	"github.com/jackzampolin/pcr/internal/metrics"
	"github.com/jackzampolin/pcr/internal/providers"
	"github.com/jackzampolin/pcr/internal/server/endpoints"
	"github.com/jackzampolin/pcr/internal/svcctx"
)

// Server is the main pcr HTTP server.
type Server struct {
	httpServer *http.Server
	registry   *providers.Registry
	extractor  *extract.Holder
	configMgr  *config.Manager
	metrics    *metrics.Recorder
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	cors atomic.Pointer[corsPolicy]

	mu      sync.RWMutex
	running bool
	addr    string
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8000, "0" picks a free port)
	Port string
	// CORSOrigins lists allowed origins; "*" allows any (default: any)
	CORSOrigins []string
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Registry overrides the config-driven provider registry
	Registry *providers.Registry
	// Extractor overrides the agent built from config
	Extractor *extract.Holder
	// Metrics overrides the store sized from metrics.window
	Metrics *metrics.Store
	// Home is the pcr home directory
	Home *home.Dir
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8000"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ConfigManager == nil && (cfg.Registry == nil || cfg.Extractor == nil) {
		return nil, errors.New("server needs a config manager, or both a registry and an extractor")
	}

	registry := cfg.Registry
	if registry == nil {
		registry = providers.NewRegistry()
		registry.SetLogger(cfg.Logger)
		registry.Reload(cfg.ConfigManager.Get().ToProviderRegistryConfig())
	}

	store := cfg.Metrics
	if store == nil && cfg.ConfigManager != nil {
		if window := cfg.ConfigManager.Get().Metrics.Window; window > 0 {
			store = metrics.NewStore(window)
		}
	}
	var recorder *metrics.Recorder
	if store != nil {
		recorder = metrics.NewRecorder(store)
	}

	extractor := cfg.Extractor
	if extractor == nil {
		agent, err := extract.FromConfig(registry, cfg.ConfigManager.Get(), extract.Options{
			Logger:  cfg.Logger,
			Metrics: recorder,
		})
		if err != nil {
			cfg.Logger.Warn("no LLM client for extraction; /report_create will return 503", "error", err)
		}
		extractor = extract.NewHolder(agent)
	}

	s := &Server{
		registry:  registry,
		extractor: extractor,
		configMgr: cfg.ConfigManager,
		metrics:   recorder,
		logger:    cfg.Logger,
	}
	s.cors.Store(newCORSPolicy(cfg.CORSOrigins))

	// Watch for config changes
	if cfg.ConfigManager != nil {
		cfg.ConfigManager.OnChange(s.reload)
	}

	s.services = &svcctx.Services{
		Extractor: extractor,
		Registry:  registry,
		Config:    cfg.ConfigManager,
		Metrics:   store,
		Logger:    cfg.Logger,
		Home:      cfg.Home,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		s.endpointRegistry.Register(ep)
	}

	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	// No WriteTimeout: a model call has no deadline unless extraction.timeout is set.
	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:           s.withCORS(s.withServices(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s, nil
}

// reload rebuilds provider clients and the extraction agent from a new config.
func (s *Server) reload(c *config.Config) {
	if s.registry == nil {
		return
	}
	s.registry.Reload(c.ToProviderRegistryConfig())

	agent, err := extract.FromConfig(s.registry, c, extract.Options{
		Logger:  s.logger,
		Metrics: s.metrics,
	})
	if err != nil {
		s.logger.Warn("no LLM client for extraction after reload", "error", err)
	}
	s.extractor.Store(agent)
	s.cors.Store(newCORSPolicy(c.Server.CORSOrigins))
	s.logger.Info("provider registry reloaded from config",
		"provider", agent.ProviderName(),
		"validation", agent.Validation())
}

// Start starts the server.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			s.setNotRunning()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown performs graceful shutdown of the HTTP server.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return err
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the bound address once started, else the configured one.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.addr != "" {
		return s.addr
	}
	return s.httpServer.Addr
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// Extractor returns the extraction agent holder.
func (s *Server) Extractor() *extract.Holder {
	return s.extractor
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures an LLM client is configured.
// Returns 503 Service Unavailable otherwise.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.extractor.Ready() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"no LLM provider configured"}`))
			return
		}
		next(w, r)
	}
}
