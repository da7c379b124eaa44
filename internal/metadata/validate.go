package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidateJSON validates raw model output against the given JSON Schema.
func ValidateJSON(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// Validate applies domain rules that JSON Schema cannot express. The
// resulting error message is fed back to the model on retry, so it spells
// out what was wrong rather than just naming the field.
func (m *BookMetadata) Validate() error {
	var problems []string

	if strings.TrimSpace(m.Title) == "" {
		problems = append(problems, "title must not be empty")
	}
	if strings.TrimSpace(m.Description) == "" {
		problems = append(problems, "description must not be empty")
	}
	if len(m.Keywords) < 3 || len(m.Keywords) > 7 {
		problems = append(problems, fmt.Sprintf("expected 3 to 7 keywords, got %d", len(m.Keywords)))
	}
	if !isAlpha2(m.Language) {
		problems = append(problems, fmt.Sprintf("language %q is not an ISO 639-1 alpha-2 code", m.Language))
	}
	if m.PublisherWebsite != "" {
		u, err := url.Parse(m.PublisherWebsite)
		if err != nil || u.Scheme == "" || u.Host == "" {
			problems = append(problems, fmt.Sprintf("publisher_website %q is not an absolute URL", m.PublisherWebsite))
		}
	}
	if m.YearPublished != 0 {
		if m.YearPublished < 1450 || m.YearPublished > time.Now().Year()+1 {
			problems = append(problems, fmt.Sprintf("year_published %d is not a plausible publication year", m.YearPublished))
		}
	}
	for _, entry := range m.ISBNs {
		if err := ValidateISBN(entry.ISBN); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid metadata: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ValidateISBN checks the check digit of an ISBN-10 or ISBN-13 after
// stripping separators.
func ValidateISBN(isbn string) error {
	s := strings.NewReplacer("-", "", " ", "").Replace(isbn)
	switch len(s) {
	case 10:
		sum := 0
		for i, r := range s {
			var v int
			switch {
			case r >= '0' && r <= '9':
				v = int(r - '0')
			case (r == 'X' || r == 'x') && i == 9:
				v = 10
			default:
				return fmt.Errorf("isbn %q contains invalid character %q", isbn, r)
			}
			sum += v * (10 - i)
		}
		if sum%11 != 0 {
			return fmt.Errorf("isbn %q has an invalid check digit", isbn)
		}
	case 13:
		sum := 0
		for i, r := range s {
			if r < '0' || r > '9' {
				return fmt.Errorf("isbn %q contains invalid character %q", isbn, r)
			}
			v := int(r - '0')
			if i%2 == 1 {
				v *= 3
			}
			sum += v
		}
		if sum%10 != 0 {
			return fmt.Errorf("isbn %q has an invalid check digit", isbn)
		}
	default:
		return fmt.Errorf("isbn %q must have 10 or 13 digits, got %d", isbn, len(s))
	}
	return nil
}

// Validate rejects labels and confidence grades outside the closed sets the
// classifier is allowed to answer with.
func (p *PageType) Validate() error {
	switch p.PageType {
	case PageTitlePage, PageImprint, PageTableOfContents, PageOther:
	default:
		return fmt.Errorf("unknown page type %q", p.PageType)
	}
	switch p.Confidence {
	case "LOW", "MEDIUM", "HIGH":
	default:
		return fmt.Errorf("unknown confidence grade %q", p.Confidence)
	}
	return nil
}

func isAlpha2(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, r := range code {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
