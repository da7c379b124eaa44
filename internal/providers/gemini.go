package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/iscc/iscc-metagen/internal/config"
)

// Gemini uses the Google generative AI SDK. The API has no JSON Schema
// request parameter comparable to OpenAI's, so structured requests set the
// JSON response MIME type and carry the schema in the prompt.
type Gemini struct {
	apiKey string
	model  string
}

func NewGemini(cfg config.GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w (set GEMINI_API_KEY)", ErrNoAPIKey)
	}
	return &Gemini{apiKey: cfg.APIKey, model: cfg.Model}, nil
}

func (p *Gemini) Name() string { return "gemini" }

func (p *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	return p.generate(ctx, req, false)
}

func (p *Gemini) CompleteStructured(ctx context.Context, req Request, schema map[string]any) ([]byte, error) {
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	structured := req
	structured.Prompt = fmt.Sprintf(
		"%s\n\nAnswer with a single JSON object conforming to this JSON Schema:\n%s",
		req.Prompt, schemaJSON,
	)

	content, err := p.generate(ctx, structured, true)
	if err != nil {
		return nil, err
	}
	return []byte(StripFences(content)), nil
}

func (p *Gemini) generate(ctx context.Context, req Request, jsonOutput bool) (string, error) {
	if req.Prompt == "" {
		return "", fmt.Errorf("gemini: %w", ErrEmptyPrompt)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(p.model)
	if req.Temperature != nil {
		model.SetTemperature(float32(*req.Temperature))
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if jsonOutput {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini: %w", ErrNoCompletion)
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: %w: empty content", ErrNoCompletion)
	}
	if txt, ok := candidate.Content.Parts[0].(genai.Text); ok {
		return string(txt), nil
	}
	return "", fmt.Errorf("unexpected response format from Gemini")
}

func (p *Gemini) ListModels(ctx context.Context) ([]string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	var names []string
	it := client.ListModels(ctx)
	for {
		m, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gemini list models: %w", err)
		}
		names = append(names, m.Name)
	}
	return names, nil
}
