// Package config loads workflow service configuration from YAML with
// environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Store     StoreConfig     `mapstructure:"store"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Prompts   PromptsConfig   `mapstructure:"prompts"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// StoreConfig selects the checkpoint backend.
type StoreConfig struct {
	Backend string `mapstructure:"backend"` // memory | sqlite | mysql
	Path    string `mapstructure:"path"`    // sqlite file path
	DSN     string `mapstructure:"dsn"`     // mysql DSN, needs parseTime=true
}

// ProviderConfig selects the model provider and credentials.
type ProviderConfig struct {
	Name        string `mapstructure:"name"` // openai | anthropic | google
	APIKey      string `mapstructure:"api_key"`
	ChatModel   string `mapstructure:"chat_model"`
	VisionModel string `mapstructure:"vision_model"`
}

// PromptsConfig selects where prompts come from.
type PromptsConfig struct {
	Mode    string        `mapstructure:"mode"` // static | http
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ArtifactsConfig selects the artifact store.
type ArtifactsConfig struct {
	Backend string `mapstructure:"backend"` // memory | fs
	Root    string `mapstructure:"root"`    // fs root directory
	BaseURL string `mapstructure:"base_url"`
}

// EngineConfig tunes the workflow executor.
type EngineConfig struct {
	MaxSteps      int `mapstructure:"max_steps"`
	FanOutWorkers int `mapstructure:"fanout_workers"`
}

// RetryConfig tunes model call retries.
type RetryConfig struct {
	Attempts  int           `mapstructure:"attempts"`
	BaseDelay time.Duration `mapstructure:"base_delay"`
}

// LogConfig tunes event emission.
type LogConfig struct {
	Format string `mapstructure:"format"` // text | json
}

// TracingConfig enables OpenTelemetry export.
type TracingConfig struct {
	Enable      bool   `mapstructure:"enable"`
	ServiceName string `mapstructure:"service_name"`
	Endpoint    string `mapstructure:"endpoint"`
}

// MetricsConfig enables the Prometheus endpoint.
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Addr   string `mapstructure:"addr"`
}

// Load reads configuration from path (optional, "" skips the file) and
// the environment. Environment variables use the STUDYFLOW prefix with
// underscores, e.g. STUDYFLOW_STORE_BACKEND=sqlite.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("STUDYFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.backend", "memory")
	v.SetDefault("store.path", "studyflow.db")
	v.SetDefault("provider.name", "openai")
	v.SetDefault("prompts.mode", "static")
	v.SetDefault("prompts.timeout", "30s")
	v.SetDefault("artifacts.backend", "memory")
	v.SetDefault("artifacts.base_url", "http://localhost:8080")
	v.SetDefault("engine.max_steps", 50)
	v.SetDefault("engine.fanout_workers", 4)
	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.base_delay", "500ms")
	v.SetDefault("log.format", "text")
	v.SetDefault("tracing.service_name", "studyflow")
	v.SetDefault("metrics.addr", ":9090")
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("config: store.path required for sqlite backend")
		}
	case "mysql":
		if c.Store.DSN == "" {
			return fmt.Errorf("config: store.dsn required for mysql backend")
		}
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}

	switch c.Provider.Name {
	case "openai", "anthropic", "google":
	default:
		return fmt.Errorf("config: unknown provider %q", c.Provider.Name)
	}

	switch c.Prompts.Mode {
	case "static":
	case "http":
		if c.Prompts.BaseURL == "" {
			return fmt.Errorf("config: prompts.base_url required for http mode")
		}
	default:
		return fmt.Errorf("config: unknown prompts mode %q", c.Prompts.Mode)
	}

	switch c.Artifacts.Backend {
	case "memory":
	case "fs":
		if c.Artifacts.Root == "" {
			return fmt.Errorf("config: artifacts.root required for fs backend")
		}
	default:
		return fmt.Errorf("config: unknown artifacts backend %q", c.Artifacts.Backend)
	}

	if c.Engine.MaxSteps <= 0 {
		return fmt.Errorf("config: engine.max_steps must be positive")
	}
	if c.Engine.FanOutWorkers <= 0 {
		return fmt.Errorf("config: engine.fanout_workers must be positive")
	}
	return nil
}
