// Package metadata defines the structured metadata records extracted from
// digital media assets and the JSON Schemas used to constrain model output.
package metadata

// Contributor is a person or organization credited in the work.
type Contributor struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// BookISBN pairs an ISBN with the edition it identifies.
type BookISBN struct {
	ISBN    string `json:"isbn"`
	Edition string `json:"edition,omitempty"`
}

// BookMetadata is the schema-validated metadata record for a book.
type BookMetadata struct {
	Title            string        `json:"title"`
	Subtitle         string        `json:"subtitle,omitempty"`
	Description      string        `json:"description"`
	Keywords         []string      `json:"keywords"`
	Publisher        string        `json:"publisher,omitempty"`
	PublisherWebsite string        `json:"publisher_website,omitempty"`
	YearPublished    int           `json:"year_published,omitempty"`
	Language         string        `json:"language"`
	Contributors     []Contributor `json:"contributors,omitempty"`
	ISBNs            []BookISBN    `json:"isbns,omitempty"`
}

// Page type labels produced by the classifier.
const (
	PageTitlePage       = "TITLE_PAGE"
	PageImprint         = "IMPRINT"
	PageTableOfContents = "TABLE_OF_CONTENTS"
	PageOther           = "OTHER"
)

// PageType is a single-label classification of one book page. The model is
// asked for its reasoning and a confidence grade alongside the label.
type PageType struct {
	ChainOfThought string `json:"chain_of_thought"`
	PageType       string `json:"page_type"`
	Confidence     string `json:"confidence"`
	PageNumber     int    `json:"page_number"`
}

// Page is a classified page together with its extracted text.
type Page struct {
	PageType PageType `json:"page_type"`
	Content  string   `json:"content"`
}

// BookMetadataSchema returns the JSON Schema sent to providers that support
// schema-constrained output, and used to validate every raw response.
func BookMetadataSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":       map[string]any{"type": "string", "description": "The title of the book"},
			"subtitle":    map[string]any{"type": "string", "description": "The subtitle of the book"},
			"description": map[string]any{"type": "string", "description": "A short and concise description of the book"},
			"keywords": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"minItems":    3,
				"maxItems":    7,
				"description": "Keywords that apply to the books topic",
			},
			"publisher":         map[string]any{"type": "string", "description": "The name of the publisher of the book"},
			"publisher_website": map[string]any{"type": "string", "description": "Website URL of the publisher"},
			"year_published":    map[string]any{"type": "integer", "description": "The year of publication"},
			"language":          map[string]any{"type": "string", "description": "The language of the book (as ISO 639-1 alpha-2)"},
			"contributors": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name": map[string]any{"type": "string", "description": "The full name of the contributor"},
						"role": map[string]any{"type": "string", "description": "The role of the contributor"},
					},
					"required": []string{"name", "role"},
				},
			},
			"isbns": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"isbn":    map[string]any{"type": "string", "description": "The ISBN number (only the number without prefix or dashes)"},
						"edition": map[string]any{"type": "string", "description": "The book edition to which the ISBN belongs"},
					},
					"required": []string{"isbn"},
				},
			},
		},
		"required": []string{"title", "description", "keywords", "language"},
	}
}

// PageTypeSchema constrains the page classification response.
func PageTypeSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"chain_of_thought": map[string]any{"type": "string", "description": "The chain of thought that led to the prediction"},
			"page_type": map[string]any{
				"type":        "string",
				"enum":        []string{PageTitlePage, PageImprint, PageTableOfContents, PageOther},
				"description": "The predicted page type",
			},
			"confidence": map[string]any{
				"type":        "string",
				"enum":        []string{"LOW", "MEDIUM", "HIGH"},
				"description": "The confidence score of the prediction",
			},
			"page_number": map[string]any{"type": "integer", "description": "The page number"},
		},
		"required": []string{"chain_of_thought", "page_type", "confidence", "page_number"},
	}
}
