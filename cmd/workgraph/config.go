package main

import (
	"fmt"
	"os"
	"time"

	yaml "go.yaml.in/yaml/v2"
)

// Config is the YAML configuration file. Every section is optional.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Engine     EngineConfig     `yaml:"engine"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Store      StoreConfig      `yaml:"store"`
	Model      ModelConfig      `yaml:"model"`
	Extractor  ExtractorConfig  `yaml:"extractor"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn or error
	Format string `yaml:"format"` // text or json
}

// EngineConfig holds workflow defaults.
type EngineConfig struct {
	MaxSteps    int           `yaml:"max_steps"`
	NodeTimeout time.Duration `yaml:"node_timeout"` // e.g. "30s"
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// TracingConfig turns run events into OpenTelemetry spans.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// StoreConfig selects the memory store backend.
type StoreConfig struct {
	Driver string `yaml:"driver"` // memory, sqlite, mysql or postgres
	DSN    string `yaml:"dsn"`
}

// ModelConfig selects the chat model used by the supervisor pipeline.
type ModelConfig struct {
	Provider  string `yaml:"provider"` // none, mock, anthropic, openai or google
	Name      string `yaml:"name"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// ExtractorConfig points the intake pipeline at an OCR endpoint. Without a
// URL sample license fields are used.
type ExtractorConfig struct {
	URL    string            `yaml:"url"`
	Fields map[string]string `yaml:"fields"`
}

// SupervisorConfig tunes the supervisor pipeline.
type SupervisorConfig struct {
	MaxRevisions   int `yaml:"max_revisions"`
	MinDraftLength int `yaml:"min_draft_length"`
}

func defaultConfig() *Config {
	return &Config{
		Log:    LogConfig{Level: "info", Format: "text"},
		Engine: EngineConfig{MaxSteps: 50},
		Store:  StoreConfig{Driver: "memory"},
		Model:  ModelConfig{Provider: "none"},
	}
}

// loadConfig reads path over the defaults. An empty path returns the
// defaults.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return cfg, nil
}

// apiKeyEnv returns the environment variable holding the provider's key.
func (m ModelConfig) apiKeyEnv() string {
	if m.APIKeyEnv != "" {
		return m.APIKeyEnv
	}
	switch m.Provider {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "google":
		return "GOOGLE_API_KEY"
	}
	return ""
}
