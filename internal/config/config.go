// Package config loads cx configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all cx configuration.
type Config struct {
	// Backend selection and credentials
	Backend BackendConfig `yaml:"backend"`

	// Ask history persistence
	History HistoryConfig `yaml:"history"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// BackendConfig configures the AI backend fallback chain.
type BackendConfig struct {
	// Unix socket of the local cx daemon, tried first.
	DaemonSocket string `yaml:"daemon_socket"`

	// Anthropic API
	AnthropicAPIKey  string `yaml:"anthropic_api_key"`
	AnthropicBaseURL string `yaml:"anthropic_base_url"`
	AnthropicModel   string `yaml:"anthropic_model"`

	// Google Gemini
	GeminiAPIKey string `yaml:"gemini_api_key"`
	GeminiModel  string `yaml:"gemini_model"`

	// Ollama
	OllamaHost  string `yaml:"ollama_host"`
	OllamaModel string `yaml:"ollama_model"`

	// Request timeout, parsed as a Go duration.
	Timeout string `yaml:"timeout"`
}

// HistoryConfig configures the sqlite ask-history store.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Backend: BackendConfig{
			DaemonSocket:     "/var/run/cx/daemon.sock",
			AnthropicBaseURL: "https://api.anthropic.com/v1",
			AnthropicModel:   "claude-sonnet-4-20250514",
			GeminiModel:      "gemini-2.0-flash",
			OllamaHost:       "http://localhost:11434",
			Timeout:          "120s",
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(home, ".local", "share", "cx", "history.db"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the standard config file location.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "cx", "config.yaml")
}

// Load loads configuration from a YAML file, returning defaults when the
// file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides lets environment variables win over file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.Backend.AnthropicAPIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Backend.GeminiAPIKey = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		c.Backend.OllamaHost = v
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		c.Backend.OllamaModel = v
	}
	if v := os.Getenv("CX_DAEMON_SOCKET"); v != "" {
		c.Backend.DaemonSocket = v
	}
	if v := os.Getenv("CX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}
