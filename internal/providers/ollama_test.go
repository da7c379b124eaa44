package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iscc/iscc-metagen/internal/config"
)

func testOllama(baseURL string) *Ollama {
	return NewOllama(config.OllamaConfig{
		BaseURL:     baseURL,
		Model:       "qwen2.5:7b",
		NumCtx:      8192,
		NumGPU:      100,
		NumPredict:  -1,
		Temperature: 0.4,
	})
}

func TestOllamaComplete(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": "hello back"},
		})
	}))
	defer srv.Close()

	p := testOllama(srv.URL)
	out, err := p.Complete(context.Background(), Request{
		System: "be brief",
		Prompt: "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello back", out)

	assert.Equal(t, "qwen2.5:7b", captured["model"])
	assert.Equal(t, false, captured["stream"])

	messages := captured["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])

	options := captured["options"].(map[string]any)
	assert.Equal(t, float64(8192), options["num_ctx"])
	assert.Equal(t, float64(100), options["num_gpu"])
}

func TestOllamaTemperatureDefaults(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"content": "ok"},
		})
	}))
	defer srv.Close()

	p := testOllama(srv.URL)

	// Without an explicit temperature the configured value goes on the wire.
	_, err := p.Complete(context.Background(), Request{Prompt: "hi"})
	require.NoError(t, err)
	options := captured["options"].(map[string]any)
	assert.Equal(t, 0.4, options["temperature"])

	// An explicit request temperature overrides it.
	_, err = p.Complete(context.Background(), Request{Prompt: "hi", Temperature: Temp(0.1)})
	require.NoError(t, err)
	options = captured["options"].(map[string]any)
	assert.Equal(t, 0.1, options["temperature"])
}

func TestOllamaCompleteStructuredSendsSchema(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"content": "```json\n{\"title\": \"x\"}\n```"},
		})
	}))
	defer srv.Close()

	p := testOllama(srv.URL)
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"title": map[string]any{"type": "string"}},
	}

	raw, err := p.CompleteStructured(context.Background(), Request{Prompt: "classify"}, schema)
	require.NoError(t, err)
	// Code fences are stripped from the response.
	assert.JSONEq(t, `{"title": "x"}`, string(raw))

	format := captured["format"].(map[string]any)
	assert.Equal(t, "object", format["type"])
}

func TestOllamaErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	p := testOllama(srv.URL)
	_, err := p.Complete(context.Background(), Request{Prompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestOllamaEmptyPrompt(t *testing.T) {
	p := testOllama("http://localhost:11434")
	_, err := p.Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestOllamaListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]any{
				{"name": "qwen2.5:7b"},
				{"name": "nomic-embed-text"},
			},
		})
	}))
	defer srv.Close()

	p := testOllama(srv.URL)
	names, err := p.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"qwen2.5:7b", "nomic-embed-text"}, names)
}
