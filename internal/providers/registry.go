package providers

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/PadsterH2012/extractor/internal/catalog"
)

// Config selects and parameterizes the provider backends. Values come from
// the config layer; the registry only consumes them.
type Config struct {
	Variant       string
	MaxConcurrent int

	CloudAKey   string
	CloudAModel string
	CloudAURL   string

	CloudBKey   string
	CloudBModel string
	CloudBURL   string

	LocalURL   string
	LocalModel string

	OCREnabled bool
	OCRModel   string
}

// Registry owns the live provider set. The mock is always present; the
// configured variant becomes the active provider, falling back to the mock
// when its backend cannot be built. Reload swaps providers under the lock
// without disturbing in-flight calls on the old ones.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Provider
	active Provider
	ocr    *OCR
	logger *slog.Logger
}

// NewRegistry creates a registry with the mock registered and active.
func NewRegistry(cat *catalog.Catalog, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	mock := NewMock(cat)
	return &Registry{
		byName: map[string]Provider{MockName: mock},
		active: mock,
		logger: logger,
	}
}

// Reload rebuilds providers from cfg. A backend that cannot be built is
// logged and skipped; the active provider falls back to the mock so the
// pipeline keeps working.
func (r *Registry) Reload(cfg Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	variant := ParseVariant(cfg.Variant)
	fresh := map[string]Provider{MockName: r.byName[MockName]}

	if p, err := NewCloudA(CloudAConfig{
		APIKey:  cfg.CloudAKey,
		Model:   cfg.CloudAModel,
		BaseURL: cfg.CloudAURL,
	}, cfg.MaxConcurrent, r.logger); err == nil {
		fresh[cloudAName] = p
	} else if variant == VariantCloudA {
		r.logger.Warn("cloud_a provider unavailable, falling back to mock", "error", err)
	}

	if p, err := NewCloudB(CloudBConfig{
		APIKey:  cfg.CloudBKey,
		Model:   cfg.CloudBModel,
		BaseURL: cfg.CloudBURL,
	}, cfg.MaxConcurrent, r.logger); err == nil {
		fresh[cloudBName] = p
	} else if variant == VariantCloudB {
		r.logger.Warn("cloud_b provider unavailable, falling back to mock", "error", err)
	}

	if cfg.LocalURL != "" || variant == VariantLocal {
		if p, err := NewLocal(LocalConfig{
			BaseURL: cfg.LocalURL,
			Model:   cfg.LocalModel,
		}, cfg.MaxConcurrent, r.logger); err == nil {
			fresh[localName] = p
		}
	}

	if cfg.OCREnabled {
		r.ocr = NewOCR(LocalConfig{BaseURL: cfg.LocalURL, Model: cfg.OCRModel}, cfg.MaxConcurrent)
	} else {
		r.ocr = nil
	}

	r.byName = fresh
	if p, ok := fresh[string(variant)]; ok {
		r.active = p
	} else {
		r.active = fresh[MockName]
	}
	r.logger.Info("providers reloaded", "active", r.active.Name(), "registered", len(fresh))
	return nil
}

// Active returns the provider the pipeline should use.
func (r *Registry) Active() Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Get returns a registered provider by name. Hyphenated spellings resolve to
// their underscore forms, so cloud-a and cloud_a name the same provider.
func (r *Registry) Get(name string) (Provider, bool) {
	name = strings.ReplaceAll(name, "-", "_")
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byName[name]
	return p, ok
}

// List returns registered provider names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	return names
}

// OCRClient returns the configured OCR client, nil when OCR is disabled.
// The pdf package accepts it as its OCRClient capability.
func (r *Registry) OCRClient() *OCR {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ocr
}

// Health probes every registered provider. The map carries nil for healthy
// entries.
func (r *Registry) Health(ctx context.Context) map[string]error {
	r.mu.RLock()
	providers := make(map[string]Provider, len(r.byName))
	for name, p := range r.byName {
		providers[name] = p
	}
	r.mu.RUnlock()

	out := make(map[string]error, len(providers))
	for name, p := range providers {
		out[name] = p.Healthy(ctx)
	}
	return out
}
