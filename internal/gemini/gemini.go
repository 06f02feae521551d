// Package gemini executes tasks against the Gemini text-generation service.
//
// The package separates two concerns: a Generator makes exactly one remote
// generation call, while the Executor owns task lifecycle, the quota-fallback
// policy, and bounded-concurrency fan-out across many tasks.
package gemini

import (
	"context"
	"errors"
	"fmt"
)

// ErrQuotaExhausted is the distinguished failure the remote service reports
// when the requested model's quota is spent. The Executor reacts to it by
// retrying once on the fallback model; every other error fails the task.
var ErrQuotaExhausted = errors.New("model quota exhausted")

// Generator makes a single generation call against a model.
//
// Implementations must return an error wrapping ErrQuotaExhausted when the
// service signals quota exhaustion, so the caller can tell it apart from
// generic failures with errors.Is.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// Config holds settings shared by the Generator backends.
type Config struct {
	// APIKey authenticates against the Generative Language API. Required.
	APIKey string `koanf:"api_key"`

	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string `koanf:"base_url"`

	// Provider selects the backend: "native" (default) or "langchain".
	Provider string `koanf:"provider"`

	// TimeoutSeconds bounds each remote call so a hung request cannot hold
	// a concurrency slot forever.
	TimeoutSeconds int `koanf:"timeout_seconds"`

	// RequestsPerSecond and Burst configure client-side rate limiting.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`
}

// NewGenerator builds the Generator backend named by cfg.Provider.
func NewGenerator(cfg Config) (Generator, error) {
	switch cfg.Provider {
	case "", "native":
		return newClient(cfg)
	case "langchain":
		return newLangchainGenerator(cfg)
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}
