package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsLoadWithoutFile(t *testing.T) {
	m, err := NewManager("")
	if err != nil {
		t.Fatal(err)
	}
	cfg := m.Get()
	if cfg.Server.UploadMaxBytes != 200<<20 {
		t.Errorf("upload_max_bytes = %d", cfg.Server.UploadMaxBytes)
	}
	if cfg.Server.SessionTTLSeconds != 3600 {
		t.Errorf("session_ttl_seconds = %d", cfg.Server.SessionTTLSeconds)
	}
	if cfg.AI.Provider != "mock" {
		t.Errorf("provider = %q", cfg.AI.Provider)
	}
	if cfg.Stores.Layout != "separate" {
		t.Errorf("layout = %q", cfg.Stores.Layout)
	}
}

func TestFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
stores:
  vector_url: http://vectors:9000
  layout: single
ai:
  provider: cloud_a
  retries: 5
extract:
  max_page_workers: 4
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := NewManager(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg := m.Get()
	if cfg.Stores.VectorURL != "http://vectors:9000" {
		t.Errorf("vector_url = %q", cfg.Stores.VectorURL)
	}
	if cfg.Stores.Layout != "single" {
		t.Errorf("layout = %q", cfg.Stores.Layout)
	}
	if cfg.AI.Provider != "cloud_a" || cfg.AI.Retries != 5 {
		t.Errorf("ai = %+v", cfg.AI)
	}
	if cfg.Extract.MaxPageWorkers != 4 {
		t.Errorf("max_page_workers = %d", cfg.Extract.MaxPageWorkers)
	}
	// Untouched sections keep defaults.
	if cfg.Server.UploadMaxBytes != 200<<20 {
		t.Errorf("upload_max_bytes = %d", cfg.Server.UploadMaxBytes)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VECTOR_STORE_URL", "http://env-vectors:8000")
	t.Setenv("PROVIDER_A_KEY", "sk-env")
	t.Setenv("AI_TIMEOUT_MS", "1500")
	t.Setenv("MAX_PAGE_WORKERS", "2")

	m, err := NewManager("")
	if err != nil {
		t.Fatal(err)
	}
	cfg := m.Get()
	if cfg.Stores.VectorURL != "http://env-vectors:8000" {
		t.Errorf("vector_url = %q", cfg.Stores.VectorURL)
	}
	if cfg.AI.CloudAKey != "sk-env" {
		t.Errorf("cloud_a_key = %q", cfg.AI.CloudAKey)
	}
	if cfg.AI.TimeoutMS != 1500 {
		t.Errorf("timeout_ms = %d", cfg.AI.TimeoutMS)
	}
	if cfg.Extract.MaxPageWorkers != 2 {
		t.Errorf("max_page_workers = %d", cfg.Extract.MaxPageWorkers)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.Server.UploadMaxBytes = 0 },
		func(c *Config) { c.Server.SessionTTLSeconds = -1 },
		func(c *Config) { c.AI.Temperature = 3 },
		func(c *Config) { c.AI.Retries = -1 },
		func(c *Config) { c.Extract.MaxPageWorkers = 0 },
		func(c *Config) { c.Stores.Layout = "scattered" },
	}
	for i, mutate := range cases {
		cfg := DefaultConfig()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestProviderOptionsFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AI.TimeoutMS = 2000
	cfg.AI.MaxTokens = 1234
	cfg.AI.Temperature = 0.4

	id := cfg.IdentifyOptions()
	if id.Temperature != 0.4 {
		t.Errorf("identify temperature = %v", id.Temperature)
	}
	if id.Timeout != 2*time.Second || id.MaxTokens != 1234 {
		t.Errorf("identify opts = %+v", id)
	}

	cat := cfg.CategorizeOptions()
	if cat.Temperature != 0 {
		t.Errorf("categorize temperature = %v, must stay 0", cat.Temperature)
	}
	if cat.MaxTokens != 1234 {
		t.Errorf("categorize opts = %+v", cat)
	}
}

func TestWriteDefaultRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatal(err)
	}
	if err := WriteDefault(path); err == nil {
		t.Fatal("expected refusal to overwrite")
	}

	// The written file round-trips through the manager.
	m, err := NewManager(path)
	if err != nil {
		t.Fatal(err)
	}
	if m.Get().Server.SessionTTLSeconds != 3600 {
		t.Errorf("round-trip lost defaults: %+v", m.Get().Server)
	}
}

func TestOnChangeCallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("ai:\n  provider: mock\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := NewManager(path)
	if err != nil {
		t.Fatal(err)
	}

	changed := make(chan *Config, 1)
	m.OnChange(func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	})
	m.Watch()

	if err := os.WriteFile(path, []byte("ai:\n  provider: local\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-changed:
		if cfg.AI.Provider != "local" {
			t.Errorf("provider = %q", cfg.AI.Provider)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("config change callback not invoked")
	}
}
