package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("store backend = %q", cfg.Store.Backend)
	}
	if cfg.Provider.Name != "openai" {
		t.Errorf("provider = %q", cfg.Provider.Name)
	}
	if cfg.Engine.MaxSteps != 50 || cfg.Engine.FanOutWorkers != 4 {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	if cfg.Retry.Attempts != 3 || cfg.Retry.BaseDelay != 500*time.Millisecond {
		t.Errorf("retry = %+v", cfg.Retry)
	}
	if cfg.Prompts.Timeout != 30*time.Second {
		t.Errorf("prompts timeout = %v", cfg.Prompts.Timeout)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
store:
  backend: sqlite
  path: /tmp/flow.db
provider:
  name: anthropic
  chat_model: claude-3-5-sonnet-20241022
prompts:
  mode: http
  base_url: http://prompts.internal
  timeout: 10s
artifacts:
  backend: fs
  root: /var/artifacts
  base_url: http://files.internal
engine:
  max_steps: 25
  fanout_workers: 8
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Backend != "sqlite" || cfg.Store.Path != "/tmp/flow.db" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Provider.Name != "anthropic" {
		t.Errorf("provider = %+v", cfg.Provider)
	}
	if cfg.Prompts.Mode != "http" || cfg.Prompts.Timeout != 10*time.Second {
		t.Errorf("prompts = %+v", cfg.Prompts)
	}
	if cfg.Artifacts.Root != "/var/artifacts" {
		t.Errorf("artifacts = %+v", cfg.Artifacts)
	}
	if cfg.Engine.MaxSteps != 25 || cfg.Engine.FanOutWorkers != 8 {
		t.Errorf("engine = %+v", cfg.Engine)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("STUDYFLOW_PROVIDER_NAME", "google")
	t.Setenv("STUDYFLOW_ENGINE_MAX_STEPS", "10")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider.Name != "google" {
		t.Errorf("provider = %q", cfg.Provider.Name)
	}
	if cfg.Engine.MaxSteps != 10 {
		t.Errorf("max steps = %d", cfg.Engine.MaxSteps)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown store backend", func(c *Config) { c.Store.Backend = "redis" }},
		{"sqlite without path", func(c *Config) { c.Store.Backend = "sqlite"; c.Store.Path = "" }},
		{"mysql without dsn", func(c *Config) { c.Store.Backend = "mysql" }},
		{"unknown provider", func(c *Config) { c.Provider.Name = "llama" }},
		{"http prompts without url", func(c *Config) { c.Prompts.Mode = "http" }},
		{"fs artifacts without root", func(c *Config) { c.Artifacts.Backend = "fs" }},
		{"zero max steps", func(c *Config) { c.Engine.MaxSteps = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
