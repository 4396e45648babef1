// Package config loads and hot-reloads configuration: YAML file, environment
// variables, and defaults, in that order of precedence. Every tunable the
// pipeline reads lives here.
package config

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	yaml "gopkg.in/yaml.v2"

	"github.com/PadsterH2012/extractor/internal/providers"
)

// Config is the full runtime configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Stores  StoresConfig  `mapstructure:"stores" yaml:"stores"`
	AI      AIConfig      `mapstructure:"ai" yaml:"ai"`
	Extract ExtractConfig `mapstructure:"extract" yaml:"extract"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig covers the HTTP session API.
type ServerConfig struct {
	Addr              string `mapstructure:"addr" yaml:"addr"`
	UploadMaxBytes    int64  `mapstructure:"upload_max_bytes" yaml:"upload_max_bytes"`
	SessionTTLSeconds int    `mapstructure:"session_ttl_seconds" yaml:"session_ttl_seconds"`
}

// StoresConfig points at the two backing stores.
type StoresConfig struct {
	VectorURL   string `mapstructure:"vector_url" yaml:"vector_url"`
	DocumentURL string `mapstructure:"document_url" yaml:"document_url"`
	// Layout selects collection addressing: "separate" or "single".
	Layout string `mapstructure:"layout" yaml:"layout"`
}

// AIConfig selects and tunes the provider backends.
type AIConfig struct {
	Provider      string  `mapstructure:"provider" yaml:"provider"`
	Temperature   float64 `mapstructure:"temperature" yaml:"temperature"` // identify; categorize always runs at zero
	MaxTokens     int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	TimeoutMS     int     `mapstructure:"timeout_ms" yaml:"timeout_ms"`
	Retries       int     `mapstructure:"retries" yaml:"retries"`
	MaxConcurrent int     `mapstructure:"max_concurrent" yaml:"max_concurrent"`
	CacheEnabled  bool    `mapstructure:"cache_enabled" yaml:"cache_enabled"`

	CloudAKey   string `mapstructure:"cloud_a_key" yaml:"cloud_a_key"`
	CloudAModel string `mapstructure:"cloud_a_model" yaml:"cloud_a_model"`
	CloudBKey   string `mapstructure:"cloud_b_key" yaml:"cloud_b_key"`
	CloudBModel string `mapstructure:"cloud_b_model" yaml:"cloud_b_model"`
	LocalURL    string `mapstructure:"local_url" yaml:"local_url"`
	LocalModel  string `mapstructure:"local_model" yaml:"local_model"`

	OCREnabled bool   `mapstructure:"ocr_enabled" yaml:"ocr_enabled"`
	OCRModel   string `mapstructure:"ocr_model" yaml:"ocr_model"`
}

// ExtractConfig tunes the page extraction stage.
type ExtractConfig struct {
	MaxPageWorkers int    `mapstructure:"max_page_workers" yaml:"max_page_workers"`
	EnhanceMode    string `mapstructure:"enhance_mode" yaml:"enhance_mode"`
	CatalogOverlay string `mapstructure:"catalog_overlay" yaml:"catalog_overlay"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":8087",
			UploadMaxBytes:    200 << 20,
			SessionTTLSeconds: 3600,
		},
		Stores: StoresConfig{
			VectorURL:   "http://localhost:8000",
			DocumentURL: "mongodb://localhost:27017",
			Layout:      "separate",
		},
		AI: AIConfig{
			Provider:      "mock",
			Temperature:   providers.DefaultIdentifyTemperature,
			MaxTokens:     providers.DefaultMaxTokens,
			TimeoutMS:     int(providers.DefaultTimeout / time.Millisecond),
			Retries:       providers.DefaultRetries,
			MaxConcurrent: providers.DefaultMaxConcurrent,
			CacheEnabled:  true,
		},
		Extract: ExtractConfig{
			MaxPageWorkers: 8,
			EnhanceMode:    "normal",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// envBindings maps config keys to their exact environment variable names.
// These take precedence over the EXTRACTOR_ prefixed forms.
var envBindings = map[string]string{
	"stores.vector_url":          "VECTOR_STORE_URL",
	"stores.document_url":        "DOCUMENT_STORE_URL",
	"ai.cloud_a_key":             "PROVIDER_A_KEY",
	"ai.cloud_b_key":             "PROVIDER_B_KEY",
	"ai.local_url":               "LOCAL_PROVIDER_URL",
	"ai.local_model":             "LOCAL_PROVIDER_MODEL",
	"ai.temperature":             "AI_TEMPERATURE",
	"ai.max_tokens":              "AI_MAX_TOKENS",
	"ai.timeout_ms":              "AI_TIMEOUT_MS",
	"ai.retries":                 "AI_RETRIES",
	"extract.max_page_workers":   "MAX_PAGE_WORKERS",
	"server.upload_max_bytes":    "UPLOAD_MAX_BYTES",
	"server.session_ttl_seconds": "SESSION_TTL_SECONDS",
}

// Manager loads config and notifies subscribers on file changes.
type Manager struct {
	v *viper.Viper

	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager loads configuration, optionally from an explicit file.
func NewManager(cfgFile string) (*Manager, error) {
	m := &Manager{v: viper.New()}
	if err := m.initViper(cfgFile); err != nil {
		return nil, err
	}
	cfg, err := m.load()
	if err != nil {
		return nil, err
	}
	m.config = cfg
	return m, nil
}

func (m *Manager) initViper(cfgFile string) error {
	defaults := DefaultConfig()
	m.v.SetDefault("server", structToMap(defaults.Server))
	m.v.SetDefault("stores", structToMap(defaults.Stores))
	m.v.SetDefault("ai", structToMap(defaults.AI))
	m.v.SetDefault("extract", structToMap(defaults.Extract))
	m.v.SetDefault("logging", structToMap(defaults.Logging))

	m.v.SetEnvPrefix("EXTRACTOR")
	m.v.AutomaticEnv()
	for key, env := range envBindings {
		if err := m.v.BindEnv(key, env); err != nil {
			return err
		}
	}

	if cfgFile != "" {
		m.v.SetConfigFile(cfgFile)
	} else {
		m.v.SetConfigName("config")
		m.v.SetConfigType("yaml")
		m.v.AddConfigPath(".")
		m.v.AddConfigPath("$HOME/.extractor")
	}

	// A missing config file is fine; env and defaults still apply.
	if err := m.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

func (m *Manager) load() (*Config, error) {
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// OnChange registers a callback run after each successful reload.
func (m *Manager) OnChange(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// Watch enables hot reloading of the config file.
func (m *Manager) Watch() {
	m.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := m.load()
		if err != nil {
			return
		}
		m.mu.Lock()
		m.config = cfg
		callbacks := make([]func(*Config), len(m.callbacks))
		copy(callbacks, m.callbacks)
		m.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	m.v.WatchConfig()
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Server.UploadMaxBytes <= 0 {
		return fmt.Errorf("server.upload_max_bytes must be positive")
	}
	if c.Server.SessionTTLSeconds <= 0 {
		return fmt.Errorf("server.session_ttl_seconds must be positive")
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		return fmt.Errorf("ai.temperature %v out of range [0,2]", c.AI.Temperature)
	}
	if c.AI.Retries < 0 {
		return fmt.Errorf("ai.retries must not be negative")
	}
	if c.Extract.MaxPageWorkers <= 0 {
		return fmt.Errorf("extract.max_page_workers must be positive")
	}
	switch c.Stores.Layout {
	case "", "separate", "single", "single_with_folder":
	default:
		return fmt.Errorf("stores.layout %q unknown", c.Stores.Layout)
	}
	return nil
}

// ProviderConfig maps config onto the provider registry's input.
func (c *Config) ProviderConfig() providers.Config {
	return providers.Config{
		Variant:       c.AI.Provider,
		MaxConcurrent: c.AI.MaxConcurrent,
		CloudAKey:     c.AI.CloudAKey,
		CloudAModel:   c.AI.CloudAModel,
		CloudBKey:     c.AI.CloudBKey,
		CloudBModel:   c.AI.CloudBModel,
		LocalURL:      c.AI.LocalURL,
		LocalModel:    c.AI.LocalModel,
		OCREnabled:    c.AI.OCREnabled,
		OCRModel:      c.AI.OCRModel,
	}
}

// IdentifyOptions builds identify-call options from config.
func (c *Config) IdentifyOptions() providers.Options {
	o := providers.IdentifyOptions()
	c.applyAI(&o)
	o.Temperature = c.AI.Temperature
	return o
}

// CategorizeOptions builds categorize-call options from config. Temperature
// stays pinned at zero regardless of the identify setting.
func (c *Config) CategorizeOptions() providers.Options {
	o := providers.CategorizeOptions()
	c.applyAI(&o)
	return o
}

func (c *Config) applyAI(o *providers.Options) {
	if c.AI.MaxTokens > 0 {
		o.MaxTokens = c.AI.MaxTokens
	}
	if c.AI.TimeoutMS > 0 {
		o.Timeout = time.Duration(c.AI.TimeoutMS) * time.Millisecond
	}
	if c.AI.Retries >= 0 {
		o.Retries = c.AI.Retries
	}
	o.Cache = c.AI.CacheEnabled
}

// WriteDefault writes the default configuration as YAML, refusing to
// overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// structToMap flattens a config section for viper defaults via its yaml
// tags.
func structToMap(section any) map[string]any {
	raw, err := yaml.Marshal(section)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
