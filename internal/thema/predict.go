package thema

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/iscc/iscc-metagen/internal/metadata"
	"github.com/iscc/iscc-metagen/internal/prompt"
	"github.com/iscc/iscc-metagen/internal/providers"
	"github.com/iscc/iscc-metagen/internal/text"
)

// Selection is one predicted category with the model's reasoning.
type Selection struct {
	Reason          string `json:"reason"`
	CategoryCode    string `json:"category_code"`
	CategoryHeading string `json:"category_heading"`
	Confidence      string `json:"confidence"`
}

// Categories is the structured prediction result. The first entry is the
// primary category.
type Categories struct {
	Categories []Selection `json:"categories"`
}

// CategoriesSchema constrains the category selection response.
func CategoriesSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"categories": map[string]any{
				"type":     "array",
				"minItems": 1,
				"maxItems": 4,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"reason":           map[string]any{"type": "string", "description": "Reason for selection"},
						"category_code":    map[string]any{"type": "string", "description": "Category code"},
						"category_heading": map[string]any{"type": "string", "description": "Category heading"},
						"confidence": map[string]any{
							"type":        "string",
							"enum":        []string{"LOW", "MEDIUM", "HIGH"},
							"description": "How confident you are that the selected category is relevant",
						},
					},
					"required": []string{"reason", "category_code", "category_heading", "confidence"},
				},
			},
		},
		"required": []string{"categories"},
	}
}

const selectionSystemPrompt = "You are a helpful assistant that selects Thema categories for books."

// excerptChars bounds each excerpt slice handed to a selection prompt, so
// tree descent does not re-send the full document on every level.
const excerptChars = 2000

func boundExcerpts(excerpts string) string {
	start, middle, end := text.ExtractParts(excerpts, excerptChars)
	if start == end {
		return start
	}
	return start + "\n...\n" + middle + "\n...\n" + end
}

// Predictor runs category prediction strategies over a loaded vocabulary.
type Predictor struct {
	thema    *Thema
	provider providers.Provider
	prompts  *prompt.Registry

	// MaxDepth bounds top-down traversal of the category tree.
	MaxDepth int
}

func NewPredictor(t *Thema, provider providers.Provider, prompts *prompt.Registry) *Predictor {
	return &Predictor{
		thema:    t,
		provider: provider,
		prompts:  prompts,
		MaxDepth: 3,
	}
}

// Predict selects 1 to 4 categories from the top-level subject headings
// based on document excerpts.
func (p *Predictor) Predict(ctx context.Context, excerpts string) (*Categories, error) {
	return p.selectFrom(ctx, prompt.KeySelectCategories, p.thema.MainSubjects(), excerpts)
}

// PredictTopDown walks the category tree: it selects top-level categories,
// descends into their sub-categories level by level, and finally has the
// model rank the collected leaves.
func (p *Predictor) PredictTopDown(ctx context.Context, excerpts string) (*Categories, error) {
	frontier, err := p.Predict(ctx, excerpts)
	if err != nil {
		return nil, err
	}

	leaves := make(map[string]Code)
	current := frontier.Categories
	for depth := 0; depth < p.MaxDepth && len(current) > 0; depth++ {
		var candidates []Code
		for _, sel := range current {
			children := p.thema.SubCategories(sel.CategoryCode)
			if len(children) == 0 {
				if c, ok := p.thema.Lookup(sel.CategoryCode); ok {
					leaves[c.Value] = *c
				}
				continue
			}
			candidates = append(candidates, children...)
		}
		if len(candidates) == 0 {
			break
		}

		selected, err := p.selectFrom(ctx, prompt.KeySelectCategories, candidates, excerpts)
		if err != nil {
			return nil, err
		}
		current = selected.Categories
		slog.Debug("Descended category tree", "depth", depth+1, "selected", len(current))
	}

	for _, sel := range current {
		if c, ok := p.thema.Lookup(sel.CategoryCode); ok {
			leaves[c.Value] = *c
		}
	}

	if len(leaves) == 0 {
		return frontier, nil
	}
	collected := make([]Code, 0, len(leaves))
	for _, c := range leaves {
		collected = append(collected, c)
	}
	return p.selectFrom(ctx, prompt.KeyRerankCategories, collected, excerpts)
}

// Searcher is the retrieval side of RAG prediction.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Code, error)
}

// PredictRAG retrieves candidate categories from a vector index and has the
// model rerank them.
func (p *Predictor) PredictRAG(ctx context.Context, searcher Searcher, excerpts string, limit int) (*Categories, error) {
	candidates, err := searcher.Search(ctx, excerpts, limit)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no candidate categories retrieved")
	}
	return p.selectFrom(ctx, prompt.KeyRerankCategories, candidates, excerpts)
}

func (p *Predictor) selectFrom(ctx context.Context, promptKey string, codes []Code, excerpts string) (*Categories, error) {
	if len(codes) == 0 {
		return nil, fmt.Errorf("no categories to select from")
	}

	userPrompt, err := p.prompts.Render(promptKey, map[string]any{
		"Categories": RenderList(codes),
		"Pages":      boundExcerpts(excerpts),
	})
	if err != nil {
		return nil, err
	}

	schema := CategoriesSchema()
	raw, err := p.provider.CompleteStructured(ctx, providers.Request{
		System:      selectionSystemPrompt,
		Prompt:      userPrompt,
		Temperature: providers.Temp(0.1),
	}, schema)
	if err != nil {
		return nil, err
	}

	if err := metadata.ValidateJSON(schema, raw); err != nil {
		return nil, err
	}

	var result Categories
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("unmarshal categories: %w", err)
	}

	// Drop selections the model invented; only codes from the offered list
	// are valid answers.
	offered := make(map[string]bool, len(codes))
	for _, c := range codes {
		offered[c.Value] = true
	}
	kept := result.Categories[:0]
	for _, sel := range result.Categories {
		if offered[sel.CategoryCode] {
			kept = append(kept, sel)
		} else {
			slog.Warn("Model selected unknown category, dropping", "code", sel.CategoryCode)
		}
	}
	result.Categories = kept

	if len(result.Categories) == 0 {
		return nil, fmt.Errorf("model selected no valid categories")
	}
	return &result, nil
}
