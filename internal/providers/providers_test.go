package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iscc/iscc-metagen/internal/config"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"{\"a\": 1}", "{\"a\": 1}"},
		{"```json\n{\"a\": 1}\n```", "{\"a\": 1}"},
		{"```\n{\"a\": 1}\n```", "{\"a\": 1}"},
		{"  {\"a\": 1}  ", "{\"a\": 1}"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripFences(tt.in))
	}
}

func TestNewSelectsProvider(t *testing.T) {
	cfg := &config.Config{
		Provider: "ollama",
		Ollama:   config.OllamaConfig{BaseURL: "http://localhost:11434", Model: "qwen2.5:7b"},
	}
	p, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())
}

func TestNewRejectsMissingKey(t *testing.T) {
	cfg := &config.Config{Provider: "openai"}
	_, err := New(cfg)
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(&config.Config{Provider: "anthropic"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported provider")
}

func TestAllSkipsUnconfiguredBackends(t *testing.T) {
	cfg := &config.Config{
		Ollama: config.OllamaConfig{BaseURL: "http://localhost:11434", Model: "qwen2.5:7b"},
	}
	all := All(cfg)
	// Without API keys only the Ollama backend is usable.
	require.Len(t, all, 1)
	assert.Equal(t, "ollama", all[0].Name())
}
