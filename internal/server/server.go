// Package server hosts the extraction session API. It owns the HTTP
// lifecycle, connects the backing stores on start, keeps the provider
// registry in sync with config reloads, and enriches request contexts with
// the service set the endpoints pull from.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/PadsterH2012/extractor/internal/api"
	"github.com/PadsterH2012/extractor/internal/catalog"
	"github.com/PadsterH2012/extractor/internal/config"
	"github.com/PadsterH2012/extractor/internal/dedup"
	"github.com/PadsterH2012/extractor/internal/docstore"
	"github.com/PadsterH2012/extractor/internal/pipeline"
	"github.com/PadsterH2012/extractor/internal/providers"
	"github.com/PadsterH2012/extractor/internal/server/endpoints"
	"github.com/PadsterH2012/extractor/internal/session"
	"github.com/PadsterH2012/extractor/internal/svcctx"
	"github.com/PadsterH2012/extractor/internal/vector"
)

// Server is the extractor HTTP server.
type Server struct {
	httpServer *http.Server
	configMgr  *config.Manager
	catalog    *catalog.Catalog
	registry   *providers.Registry
	sessions   *session.Registry
	logger     *slog.Logger

	// services holds all core services for context enrichment. Store
	// clients are attached on Start once connections are up.
	services *svcctx.Services

	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// New creates a Server from a loaded config manager.
func New(mgr *config.Manager, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := mgr.Get()

	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}

	registry := providers.NewRegistry(cat, logger)
	if err := registry.Reload(cfg.ProviderConfig()); err != nil {
		return nil, fmt.Errorf("failed to build providers: %w", err)
	}
	// Hot reload keeps the provider set in sync with the config file.
	mgr.OnChange(func(c *config.Config) {
		if err := registry.Reload(c.ProviderConfig()); err != nil {
			logger.Error("provider reload failed", "error", err)
			return
		}
		logger.Info("provider registry reloaded from config")
	})

	sessions := session.NewRegistry(time.Duration(cfg.Server.SessionTTLSeconds)*time.Second, logger)

	s := &Server{
		configMgr: mgr,
		catalog:   cat,
		registry:  registry,
		sessions:  sessions,
		logger:    logger,
	}

	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		s.endpointRegistry.Register(ep)
	}

	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireStores)

	s.httpServer = &http.Server{
		Addr:        cfg.Server.Addr,
		Handler:     s.withServices(mux),
		ReadTimeout: 30 * time.Second,
		// Long write timeout: progress streams stay open for whole runs.
		WriteTimeout: 30 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// EndpointRegistry exposes the endpoint set for CLI command building.
func (s *Server) EndpointRegistry() *api.Registry {
	return s.endpointRegistry
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start connects the stores and serves HTTP until ctx is cancelled. Store
// connection failures are logged, not fatal: the pipeline degrades to
// partial or no persistence and the health surface reports the gap.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	cfg := s.configMgr.Get()
	s.configMgr.Watch()

	vec := vector.NewClient(cfg.Stores.VectorURL)
	if err := vec.HealthCheck(ctx); err != nil {
		s.logger.Warn("vector store unreachable at startup", "url", cfg.Stores.VectorURL, "error", err)
	}

	var (
		docs  *docstore.Store
		guard *dedup.Guard
	)
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	docs, err := docstore.Connect(connectCtx, cfg.Stores.DocumentURL)
	cancel()
	if err != nil {
		s.logger.Warn("document store unreachable at startup", "url", cfg.Stores.DocumentURL, "error", err)
		docs = nil
	} else {
		guard = dedup.New(docs, s.logger)
	}

	orch := &pipeline.Orchestrator{
		Catalog:   s.catalog,
		Providers: s.registry,
		Guard:     guard,
		Logger:    s.logger,
	}
	if docs != nil {
		orch.Docs = docs
	}
	orch.Vector = vec

	s.mu.Lock()
	s.services = &svcctx.Services{
		ConfigManager: s.configMgr,
		Catalog:       s.catalog,
		Providers:     s.registry,
		Sessions:      s.sessions,
		Orchestrator:  orch,
		Vector:        vec,
		Docs:          docs,
		Guard:         guard,
		Logger:        s.logger,
	}
	s.mu.Unlock()

	s.sessions.StartSweeper(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			s.shutdown(docs)
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	s.shutdown(docs)
	return nil
}

func (s *Server) shutdown(docs *docstore.Store) {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}
	if docs != nil {
		if err := docs.Close(shutdownCtx); err != nil {
			s.logger.Error("document store close error", "error", err)
		}
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.logger.Info("server stopped")
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		services := s.services
		s.mu.RUnlock()
		ctx := r.Context()
		if services != nil {
			ctx = svcctx.WithServices(ctx, services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireStores is middleware for endpoints that cannot serve without at
// least one connected store.
func (s *Server) requireStores(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		services := s.services
		s.mu.RUnlock()
		if services == nil || (services.Vector == nil && services.Docs == nil) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"no backing store connected"}`))
			return
		}
		next(w, r)
	}
}

// loadCatalog builds the game catalog, applying the configured overlay file
// when present.
func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.Extract.CatalogOverlay == "" {
		return catalog.New(), nil
	}
	overlay, err := catalog.LoadOverlay(cfg.Extract.CatalogOverlay)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog overlay: %w", err)
	}
	return catalog.New(overlay), nil
}
