// Package metagen orchestrates metadata generation: PDF text extraction,
// schema-constrained model calls, validation, and retries.
package metagen

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iscc/iscc-metagen/internal/config"
	"github.com/iscc/iscc-metagen/internal/metadata"
	"github.com/iscc/iscc-metagen/internal/pages"
	"github.com/iscc/iscc-metagen/internal/pdf"
	"github.com/iscc/iscc-metagen/internal/prompt"
	"github.com/iscc/iscc-metagen/internal/providers"
	"github.com/iscc/iscc-metagen/internal/tokens"
)

const systemPrompt = "You are a Metadata expert responsible for collecting comprehensive and precise metadata!"

// Page ranges extracted for metadata generation.
const (
	firstPages = 8
	lastPages  = 3
)

const contextTrimRatio = 0.75

type Service struct {
	cfg      *config.Config
	provider providers.Provider
	prompts  *prompt.Registry
}

func New(cfg *config.Config) (*Service, error) {
	provider, err := providers.New(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithProvider(cfg, provider), nil
}

// NewWithProvider wires an explicit provider; used by tests and by callers
// that already hold one.
func NewWithProvider(cfg *config.Config, provider providers.Provider) *Service {
	return &Service{
		cfg:      cfg,
		provider: provider,
		prompts:  prompt.NewRegistry(),
	}
}

func (s *Service) Provider() providers.Provider { return s.provider }

func (s *Service) Prompts() *prompt.Registry { return s.prompts }

// GenerateFile produces metadata for a PDF file.
func (s *Service) GenerateFile(ctx context.Context, path string) (*metadata.BookMetadata, error) {
	doc, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	slog.Debug("Opened document", "doc", doc.Name(), "pages", doc.PageCount())

	text, err := doc.ExtractParts(firstPages, 0, lastPages)
	if err != nil {
		return nil, err
	}
	return s.GenerateText(ctx, text)
}

// GenerateFileClassified produces metadata from classified pages instead of
// fixed page ranges: the model scans the book for title page, imprint and
// table of contents, and only those pages feed the generation prompt.
func (s *Service) GenerateFileClassified(ctx context.Context, path string) (*metadata.BookMetadata, error) {
	doc, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}

	collected, err := pages.NewCollector(s.provider, s.prompts, systemPrompt).Collect(ctx, doc)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	for _, p := range collected {
		fmt.Fprintf(&sb, "--- page %d (%s) ---\n%s\n", p.PageType.PageNumber, p.PageType.PageType, p.Content)
	}
	return s.GenerateText(ctx, sb.String())
}

// GenerateText produces metadata from already-extracted text. Invalid model
// output is retried up to the configured limit, with the validation errors
// appended to the prompt so the model can correct itself.
func (s *Service) GenerateText(ctx context.Context, text string) (*metadata.BookMetadata, error) {
	model := s.cfg.Model()
	budget := tokens.MaxTokens(model, contextTrimRatio)
	if n := tokens.Count(text, model); n > budget {
		slog.Debug("Trimming input to context budget", "tokens", n, "budget", budget)
		text = tokens.Truncate(text, model, budget)
	}

	userPrompt, err := s.prompts.Render(prompt.KeyExtractMetadata, map[string]any{"Text": text})
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			slog.Warn("Retrying metadata generation", "attempt", attempt, "err", lastErr)
			userPrompt, err = s.prompts.Render(prompt.KeyRetryMetadata, map[string]any{
				"Text":     text,
				"Problems": lastErr.Error(),
			})
			if err != nil {
				return nil, err
			}
		}

		m, err := s.generateOnce(ctx, userPrompt)
		if err == nil {
			return m, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("metadata generation failed after %d attempts: %w", s.cfg.MaxRetries+1, lastErr)
}

func (s *Service) generateOnce(ctx context.Context, userPrompt string) (*metadata.BookMetadata, error) {
	schema := metadata.BookMetadataSchema()
	raw, err := s.provider.CompleteStructured(ctx, providers.Request{
		System:      systemPrompt,
		Prompt:      userPrompt,
		Temperature: providers.Temp(0.1),
	}, schema)
	if err != nil {
		return nil, err
	}

	if err := metadata.ValidateJSON(schema, raw); err != nil {
		return nil, err
	}

	var m metadata.BookMetadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	slog.Info("Generated metadata", "provider", s.provider.Name(), "title", m.Title)
	return &m, nil
}
