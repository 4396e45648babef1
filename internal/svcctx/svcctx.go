// Package svcctx provides service context for dependency injection via
// context. It is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/PadsterH2012/extractor/internal/catalog"
	"github.com/PadsterH2012/extractor/internal/config"
	"github.com/PadsterH2012/extractor/internal/dedup"
	"github.com/PadsterH2012/extractor/internal/docstore"
	"github.com/PadsterH2012/extractor/internal/pipeline"
	"github.com/PadsterH2012/extractor/internal/providers"
	"github.com/PadsterH2012/extractor/internal/session"
	"github.com/PadsterH2012/extractor/internal/vector"
)

// Services holds all core services that flow through context. Components
// extract what they need via the individual extractors.
type Services struct {
	ConfigManager *config.Manager
	Catalog       *catalog.Catalog
	Providers     *providers.Registry
	Sessions      *session.Registry
	Orchestrator  *pipeline.Orchestrator
	Vector        *vector.Client
	Docs          *docstore.Store
	Guard         *dedup.Guard
	Logger        *slog.Logger
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context. Returns nil
// if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.ConfigManager
	}
	return nil
}

// SessionsFrom extracts the session registry from context.
func SessionsFrom(ctx context.Context) *session.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Sessions
	}
	return nil
}

// ProvidersFrom extracts the provider registry from context.
func ProvidersFrom(ctx context.Context) *providers.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Providers
	}
	return nil
}

// OrchestratorFrom extracts the pipeline orchestrator from context.
func OrchestratorFrom(ctx context.Context) *pipeline.Orchestrator {
	if s := ServicesFrom(ctx); s != nil {
		return s.Orchestrator
	}
	return nil
}

// VectorFrom extracts the vector store client from context.
func VectorFrom(ctx context.Context) *vector.Client {
	if s := ServicesFrom(ctx); s != nil {
		return s.Vector
	}
	return nil
}

// DocsFrom extracts the document store from context.
func DocsFrom(ctx context.Context) *docstore.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Docs
	}
	return nil
}

// LoggerFrom extracts the logger from context, falling back to the default.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil && s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
