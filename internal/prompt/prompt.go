// Package prompt holds the prompt templates sent to language models and a
// small registry for rendering them with strict missing-key checks.
package prompt

import (
	"bytes"
	"fmt"
	"sync"
	"text/template"
)

// Template keys.
const (
	KeyClassifyPage     = "classify_page"
	KeyExtractMetadata  = "extract_metadata"
	KeyRetryMetadata    = "retry_metadata"
	KeySelectCategories = "select_categories"
	KeyRerankCategories = "rerank_categories"
)

// Registry maps template keys to template text. Defaults are registered at
// construction and can be overridden, e.g. from a config directory.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]string
}

func NewRegistry() *Registry {
	r := &Registry{templates: make(map[string]string)}
	for key, text := range defaults {
		r.templates[key] = text
	}
	return r
}

// Set overrides the template for a key.
func (r *Registry) Set(key, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[key] = text
}

// Render executes the template for key with the given data. Unknown keys
// and unresolved template fields are errors; a prompt silently rendered
// with a missing value is worse than a failed request.
func (r *Registry) Render(key string, data any) (string, error) {
	r.mu.RLock()
	text, ok := r.templates[key]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("prompt template not found for key: %s", key)
	}

	tmpl, err := template.New(key).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse prompt template %s: %w", key, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt template %s: %w", key, err)
	}
	return buf.String(), nil
}

var defaults = map[string]string{
	KeyClassifyPage: `Classify the following page:

{{if .HasPageNumber}}<page_number>{{.PageNumber}}</page_number>
{{end}}<page_text>{{.Text}}</page_text>

Classify the page-type of the book page. Also take note of the page number
when predicting the page type. For example, it is quite unlikely that page 0
is an IMPRINT.`,

	KeyExtractMetadata: `{{.Text}}`,

	KeyRetryMetadata: `{{.Text}}

Your previous answer was rejected with the following validation errors:

{{.Problems}}

Correct these issues and answer again with metadata that satisfies the schema.`,

	KeySelectCategories: `You are tasked with selecting the most relevant Thema categories for a document based on
excerpts from its beginning, middle, and end. Your goal is to choose 1 to 4 categories that
best represent the document's content, ensuring the first category is the most relevant.

Here is the list of Thema categories to choose from:
{{.Categories}}

Now, carefully read the following excerpts from the document:
{{.Pages}}

Analyze these excerpts to understand the main themes, topics, and focus of the document.
Consider the following:
1. What are the primary subjects discussed?
2. Are there any recurring themes or ideas?
3. What is the overall tone or approach of the document?

Based on your analysis, select 1 to 4 relevant Thema categories from the provided list.
Remember:
- Choose categories that best represent the document's content.
- Ensure the first category you list is the most relevant and important.
- Only select categories if they are truly applicable to the document.
- It's acceptable to choose fewer than 4 categories if that better represents the document.

Remember to base your selection and explanation solely on the provided excerpts and Thema
categories.`,

	KeyRerankCategories: `The following Thema categories were collected as candidates for a document.

Candidates:
{{.Categories}}

Document excerpts:
{{.Pages}}

Rank the candidates and answer with the 1 to 4 categories that best describe
the document, most relevant first. Only pick from the candidate list.`,
}
