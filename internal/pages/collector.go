// Package pages finds the pages of a book that carry metadata: the title
// page, the imprint, and the table of contents.
package pages

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/iscc/iscc-metagen/internal/metadata"
	"github.com/iscc/iscc-metagen/internal/prompt"
	"github.com/iscc/iscc-metagen/internal/providers"
)

// Source yields page text. *pdf.Document satisfies it.
type Source interface {
	Name() string
	PageCount() int
	Page(n int) (string, error)
}

// Collector classifies pages with the model and keeps the relevant ones.
type Collector struct {
	provider providers.Provider
	prompts  *prompt.Registry
	system   string

	// MinChars skips near-empty pages, MaxFront bounds the forward scan,
	// MaxBack bounds the backward imprint search, and MaxOther aborts the
	// forward scan once the body of the book is clearly reached.
	MinChars int
	MaxFront int
	MaxBack  int
	MaxOther int
}

func NewCollector(provider providers.Provider, prompts *prompt.Registry, system string) *Collector {
	return &Collector{
		provider: provider,
		prompts:  prompts,
		system:   system,
		MinChars: 5,
		MaxFront: 20,
		MaxBack:  10,
		MaxOther: 8,
	}
}

// Collect scans the front of the book for title page, imprint, and table of
// contents. If no imprint turned up it searches the last pages backwards,
// where some publishers place it. Classification failures on single pages
// are logged and skipped.
func (c *Collector) Collect(ctx context.Context, src Source) ([]metadata.Page, error) {
	slog.Debug("Scanning for relevant content", "doc", src.Name())

	seen := make(map[string]bool)
	var pages []metadata.Page
	otherCount := 0

	count := src.PageCount()
	// MaxFront is an inclusive bound: pages 0 through MaxFront are scanned.
	front := c.MaxFront + 1
	if front > count {
		front = count
	}

	for n := 0; n < front; n++ {
		page, ok := c.classify(ctx, src, n)
		if !ok {
			continue
		}
		if c.keep(page, seen, &pages) {
			continue
		}
		if page.PageType.PageType == metadata.PageOther {
			otherCount++
			if otherCount > c.MaxOther {
				slog.Debug("Reached body of book, stopping forward scan", "doc", src.Name(), "page", n)
				break
			}
		}
	}

	if seen[metadata.PageImprint] {
		return pages, nil
	}

	slog.Debug("Scanning backwards for imprint", "doc", src.Name())
	back := c.MaxBack
	if back > count {
		back = count
	}
	for i := 0; i < back; i++ {
		n := count - 1 - i
		page, ok := c.classify(ctx, src, n)
		if !ok {
			continue
		}
		c.keep(page, seen, &pages)
		if seen[metadata.PageImprint] {
			break
		}
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("no relevant pages found in %s", src.Name())
	}
	return pages, nil
}

// keep appends the page when its type is one we collect and it is the first
// of that type. Reports whether the page was a collectible type.
func (c *Collector) keep(page metadata.Page, seen map[string]bool, pages *[]metadata.Page) bool {
	switch page.PageType.PageType {
	case metadata.PageTitlePage, metadata.PageImprint, metadata.PageTableOfContents:
		if !seen[page.PageType.PageType] {
			seen[page.PageType.PageType] = true
			*pages = append(*pages, page)
		}
		return true
	}
	return false
}

func (c *Collector) classify(ctx context.Context, src Source, n int) (metadata.Page, bool) {
	content, err := src.Page(n)
	if err != nil {
		slog.Warn("Failed to extract page", "doc", src.Name(), "page", n, "err", err)
		return metadata.Page{}, false
	}
	if len(content) < c.MinChars {
		slog.Debug("Skipping near-empty page", "doc", src.Name(), "page", n)
		return metadata.Page{}, false
	}

	pt, err := c.ClassifyPage(ctx, content, n)
	if err != nil {
		slog.Warn("Failed to classify page", "doc", src.Name(), "page", n, "err", err)
		return metadata.Page{}, false
	}
	slog.Debug("Classified page", "doc", src.Name(), "page", n, "type", pt.PageType, "confidence", pt.Confidence)

	return metadata.Page{PageType: pt, Content: content}, true
}

// ClassifyPage performs single-label page-type classification on one page.
func (c *Collector) ClassifyPage(ctx context.Context, content string, pageNumber int) (metadata.PageType, error) {
	userPrompt, err := c.prompts.Render(prompt.KeyClassifyPage, map[string]any{
		"HasPageNumber": pageNumber >= 0,
		"PageNumber":    pageNumber,
		"Text":          content,
	})
	if err != nil {
		return metadata.PageType{}, err
	}

	raw, err := c.provider.CompleteStructured(ctx, providers.Request{
		System: c.system,
		Prompt: userPrompt,
	}, metadata.PageTypeSchema())
	if err != nil {
		return metadata.PageType{}, err
	}

	if err := metadata.ValidateJSON(metadata.PageTypeSchema(), raw); err != nil {
		return metadata.PageType{}, err
	}

	var pt metadata.PageType
	if err := json.Unmarshal(raw, &pt); err != nil {
		return metadata.PageType{}, fmt.Errorf("unmarshal page type: %w", err)
	}
	if err := pt.Validate(); err != nil {
		return metadata.PageType{}, err
	}
	return pt, nil
}
