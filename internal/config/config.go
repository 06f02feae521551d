// Package config provides configuration loading for geminid.
//
// Configuration is loaded from an optional YAML file overridden by
// environment variables. The only required value is the Gemini API key;
// everything else has a sensible default.
package config

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey indicates no Gemini API key was configured. This is a
// fatal startup condition: nothing can execute without a credential.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY environment variable required")

// Config holds the complete geminid configuration.
type Config struct {
	Gemini GeminiConfig `koanf:"gemini"`
	Log    LogConfig    `koanf:"log"`
}

// GeminiConfig holds remote-service and orchestration settings.
type GeminiConfig struct {
	// APIKey authenticates against the Generative Language API. Required.
	APIKey string `koanf:"api_key"`

	// BaseURL overrides the API endpoint (tests, proxies).
	BaseURL string `koanf:"base_url"`

	// Provider selects the generation backend: native or langchain.
	Provider string `koanf:"provider"`

	// Model is the default model for tasks that don't name one.
	Model string `koanf:"model"`

	// FallbackModel absorbs quota exhaustion on the primary model.
	FallbackModel string `koanf:"fallback_model"`

	// MaxConcurrent bounds in-flight executions in one parallel batch.
	MaxConcurrent int `koanf:"max_concurrent"`

	// TimeoutSeconds bounds each remote call.
	TimeoutSeconds int `koanf:"timeout_seconds"`

	// RequestsPerSecond and Burst configure client-side rate limiting.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is "json" or "console".
	Format string `koanf:"format"`
}

// applyDefaults fills zero values with defaults.
func applyDefaults(cfg *Config) {
	if cfg.Gemini.Provider == "" {
		cfg.Gemini.Provider = "native"
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = "gemini-2.5-pro"
	}
	if cfg.Gemini.FallbackModel == "" {
		cfg.Gemini.FallbackModel = "gemini-2.5-flash"
	}
	if cfg.Gemini.MaxConcurrent <= 0 {
		cfg.Gemini.MaxConcurrent = 3
	}
	if cfg.Gemini.TimeoutSeconds <= 0 {
		cfg.Gemini.TimeoutSeconds = 60
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

// Validate checks the configuration for fatal problems.
func (c *Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Gemini.Provider != "native" && c.Gemini.Provider != "langchain" {
		return fmt.Errorf("unknown gemini provider: %s", c.Gemini.Provider)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format: %s", c.Log.Format)
	}
	return nil
}
