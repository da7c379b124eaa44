package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iscc/iscc-metagen/internal/config"
)

// Ollama talks to a local Ollama server. Structured output uses the native
// format field, which constrains decoding server-side to the JSON Schema.
type Ollama struct {
	baseURL string
	model   string
	system  string
	options ollamaOptions
	client  *http.Client
}

// ollamaOptions is the options block sent with every request. NumCtx and
// NumGPU control how the model is loaded, not just sampling, so they are
// part of the provider rather than the request.
type ollamaOptions struct {
	NumCtx      int     `json:"num_ctx,omitempty"`
	NumGPU      int     `json:"num_gpu,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

func NewOllama(cfg config.OllamaConfig) *Ollama {
	return &Ollama{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		system:  cfg.System,
		options: ollamaOptions{
			NumCtx:      cfg.NumCtx,
			NumGPU:      cfg.NumGPU,
			NumPredict:  cfg.NumPredict,
			Temperature: cfg.Temperature,
		},
		client: &http.Client{Timeout: 300 * time.Second},
	}
}

func (p *Ollama) Name() string { return "ollama" }

func (p *Ollama) Complete(ctx context.Context, req Request) (string, error) {
	return p.chat(ctx, req, nil)
}

func (p *Ollama) CompleteStructured(ctx context.Context, req Request, schema map[string]any) ([]byte, error) {
	content, err := p.chat(ctx, req, schema)
	if err != nil {
		return nil, err
	}
	return []byte(StripFences(content)), nil
}

func (p *Ollama) chat(ctx context.Context, req Request, schema map[string]any) (string, error) {
	if req.Prompt == "" {
		return "", fmt.Errorf("ollama: %w", ErrEmptyPrompt)
	}

	system := req.System
	if system == "" {
		system = p.system
	}
	var messages []map[string]string
	if system != "" {
		messages = append(messages, map[string]string{"role": "system", "content": system})
	}
	messages = append(messages, map[string]string{"role": "user", "content": req.Prompt})

	options := p.options
	if req.Temperature != nil {
		options.Temperature = *req.Temperature
	}
	if req.MaxTokens > 0 {
		options.NumPredict = req.MaxTokens
	}

	body := map[string]any{
		"model":    p.model,
		"messages": messages,
		"stream":   false,
		"options":  options,
	}
	if schema != nil {
		body["format"] = schema
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to call Ollama API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama API returned status %d: %s", resp.StatusCode, string(b))
	}

	var ollamaResp struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return "", fmt.Errorf("failed to decode Ollama response: %w", err)
	}
	if ollamaResp.Message.Content == "" {
		return "", fmt.Errorf("ollama: %w", ErrNoCompletion)
	}
	return ollamaResp.Message.Content, nil
}

func (p *Ollama) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call Ollama API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API returned status %d: %s", resp.StatusCode, string(b))
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("failed to decode Ollama response: %w", err)
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}
