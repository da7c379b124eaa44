package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("METAGEN_HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.BaseURL)
	assert.Equal(t, 8192, cfg.Ollama.NumCtx)
	assert.Equal(t, -1, cfg.Ollama.NumPredict)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, "thema", cfg.Qdrant.Collection)
	assert.NotEmpty(t, cfg.Thema.URL)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("METAGEN_HOME", dir)

	path := filepath.Join(dir, "metagen.toml")
	content := `
provider = "ollama"
max_retries = 5

[ollama]
model = "llama3.2"
num_ctx = 4096
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.Provider)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, "llama3.2", cfg.Ollama.Model)
	assert.Equal(t, 4096, cfg.Ollama.NumCtx)
	// Untouched defaults survive partial config files.
	assert.Equal(t, 100, cfg.Ollama.NumGPU)
	assert.Equal(t, "llama3.2", cfg.Model())
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("METAGEN_HOME", t.TempDir())
	t.Setenv("METAGEN_PROVIDER", "gemini")
	t.Setenv("METAGEN_GEMINI_MODEL", "gemini-1.5-pro")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, "gemini-1.5-pro", cfg.Gemini.Model)
}

func TestEnvAPIKeys(t *testing.T) {
	t.Setenv("METAGEN_HOME", t.TempDir())
	t.Setenv("METAGEN_OPENAI_API_KEY", "sk-prefixed")
	t.Setenv("METAGEN_GEMINI_API_KEY", "g-prefixed")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sk-prefixed", cfg.OpenAI.APIKey)
	assert.Equal(t, "g-prefixed", cfg.Gemini.APIKey)
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := &Config{Provider: "litellm"}
	assert.Error(t, cfg.Validate())
}
