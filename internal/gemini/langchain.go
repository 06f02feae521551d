package gemini

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// openAICompatBaseURL is Gemini's OpenAI-compatible endpoint.
const openAICompatBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

// langchainGenerator is an alternative backend built on langchaingo's OpenAI
// client pointed at Gemini's OpenAI-compatible endpoint. One LLM instance is
// created per model name and cached, since langchaingo binds the model at
// construction time.
type langchainGenerator struct {
	apiKey  string
	baseURL string

	mu     sync.Mutex
	models map[string]*openai.LLM
}

func newLangchainGenerator(cfg Config) (*langchainGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openAICompatBaseURL
	}

	return &langchainGenerator{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		models:  make(map[string]*openai.LLM),
	}, nil
}

// model returns the cached LLM for a model name, creating it on first use.
func (g *langchainGenerator) model(name string) (*openai.LLM, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if llm, ok := g.models[name]; ok {
		return llm, nil
	}

	llm, err := openai.New(
		openai.WithBaseURL(g.baseURL),
		openai.WithModel(name),
		openai.WithToken(g.apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating client for model %s: %w", name, err)
	}

	g.models[name] = llm
	return llm, nil
}

// Generate runs one completion. langchaingo surfaces API failures as opaque
// errors, so quota exhaustion is classified by inspecting the error text.
func (g *langchainGenerator) Generate(ctx context.Context, model, prompt string) (string, error) {
	llm, err := g.model(model)
	if err != nil {
		return "", err
	}

	text, err := llms.GenerateFromSinglePrompt(ctx, llm, prompt)
	if err != nil {
		if isQuotaError(err) {
			return "", fmt.Errorf("%w: model %s: %v", ErrQuotaExhausted, model, err)
		}
		return "", fmt.Errorf("generation failed: %w", err)
	}
	return text, nil
}

// isQuotaError detects quota exhaustion in an error message.
func isQuotaError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "quota")
}

var _ Generator = (*langchainGenerator)(nil)
