// Package providers abstracts the language model backends used for
// metadata generation. Every backend supports free-form completion and
// schema-constrained structured output.
package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iscc/iscc-metagen/internal/config"
)

// Sentinel errors callers branch on.
var (
	ErrNoAPIKey     = errors.New("api key not configured")
	ErrEmptyPrompt  = errors.New("empty prompt")
	ErrNoCompletion = errors.New("no completion returned")
)

// Request is a single completion request.
type Request struct {
	System string
	Prompt string
	// Temperature overrides the provider's configured sampling temperature
	// when non-nil; nil keeps the provider default.
	Temperature *float64
	MaxTokens   int
}

// Temp is a convenience for setting Request.Temperature.
func Temp(v float64) *float64 { return &v }

// Provider is the interface every model backend implements.
type Provider interface {
	// Name identifies the backend ("openai", "ollama", "gemini").
	Name() string
	// Complete returns the raw text answer for the request.
	Complete(ctx context.Context, req Request) (string, error)
	// CompleteStructured asks the model for output conforming to the
	// given JSON Schema and returns the raw JSON bytes. Callers validate
	// and unmarshal; the provider only guarantees best-effort conformance.
	CompleteStructured(ctx context.Context, req Request, schema map[string]any) ([]byte, error)
	// ListModels enumerates models available on the backend.
	ListModels(ctx context.Context) ([]string, error)
}

// New builds the provider selected in the config.
func New(cfg *config.Config) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAI(cfg.OpenAI)
	case "ollama":
		return NewOllama(cfg.Ollama), nil
	case "gemini":
		return NewGemini(cfg.Gemini)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

// All builds every provider that is configured well enough to be usable.
// Used by the models command to enumerate across backends.
func All(cfg *config.Config) []Provider {
	var out []Provider
	if p, err := NewOpenAI(cfg.OpenAI); err == nil {
		out = append(out, p)
	}
	out = append(out, NewOllama(cfg.Ollama))
	if p, err := NewGemini(cfg.Gemini); err == nil {
		out = append(out, p)
	}
	return out
}

// StripFences removes a surrounding markdown code fence from a model
// response. Some models wrap JSON output in ```json fences even when asked
// not to.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
