package metadata

import (
	"encoding/json"
	"strings"
	"testing"
)

func validBook() BookMetadata {
	return BookMetadata{
		Title:         "The Go Programming Language",
		Description:   "A comprehensive introduction to Go.",
		Keywords:      []string{"go", "programming", "software"},
		Publisher:     "Addison-Wesley",
		Language:      "en",
		YearPublished: 2015,
		ISBNs:         []BookISBN{{ISBN: "9780134190440"}},
	}
}

func TestValidateAcceptsGoodRecord(t *testing.T) {
	m := validBook()
	if err := m.Validate(); err != nil {
		t.Fatalf("expected valid metadata, got %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*BookMetadata)
		want   string
	}{
		{"empty title", func(m *BookMetadata) { m.Title = " " }, "title"},
		{"too few keywords", func(m *BookMetadata) { m.Keywords = []string{"go"} }, "keywords"},
		{"too many keywords", func(m *BookMetadata) {
			m.Keywords = []string{"a", "b", "c", "d", "e", "f", "g", "h"}
		}, "keywords"},
		{"bad language", func(m *BookMetadata) { m.Language = "english" }, "language"},
		{"uppercase language", func(m *BookMetadata) { m.Language = "EN" }, "language"},
		{"bad url", func(m *BookMetadata) { m.PublisherWebsite = "informit.com" }, "publisher_website"},
		{"implausible year", func(m *BookMetadata) { m.YearPublished = 123 }, "year_published"},
		{"bad isbn", func(m *BookMetadata) { m.ISBNs = []BookISBN{{ISBN: "9780134190441"}} }, "isbn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validBook()
			tt.mutate(&m)
			err := m.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidateISBN(t *testing.T) {
	valid := []string{"9780134190440", "978-0-13-419044-0", "0306406152", "080442957X"}
	for _, isbn := range valid {
		if err := ValidateISBN(isbn); err != nil {
			t.Errorf("ValidateISBN(%q) = %v, want nil", isbn, err)
		}
	}

	invalid := []string{"9780134190441", "0306406153", "12345", "03064061ab"}
	for _, isbn := range invalid {
		if err := ValidateISBN(isbn); err == nil {
			t.Errorf("ValidateISBN(%q) = nil, want error", isbn)
		}
	}
}

func TestValidateJSONAgainstBookSchema(t *testing.T) {
	good := `{
		"title": "Example",
		"description": "An example book.",
		"keywords": ["one", "two", "three"],
		"language": "de"
	}`
	if err := ValidateJSON(BookMetadataSchema(), []byte(good)); err != nil {
		t.Fatalf("expected schema-valid payload, got %v", err)
	}

	missingRequired := `{"title": "Example"}`
	if err := ValidateJSON(BookMetadataSchema(), []byte(missingRequired)); err == nil {
		t.Fatal("expected schema violation for missing required fields")
	}

	wrongType := `{
		"title": "Example",
		"description": "x",
		"keywords": "not-an-array",
		"language": "de"
	}`
	if err := ValidateJSON(BookMetadataSchema(), []byte(wrongType)); err == nil {
		t.Fatal("expected schema violation for keywords type")
	}
}

func TestPageTypeRoundTrip(t *testing.T) {
	raw := `{
		"chain_of_thought": "Publisher and ISBN listed, likely the imprint.",
		"page_type": "IMPRINT",
		"confidence": "HIGH",
		"page_number": 4
	}`
	if err := ValidateJSON(PageTypeSchema(), []byte(raw)); err != nil {
		t.Fatalf("schema validation failed: %v", err)
	}

	var pt PageType
	if err := json.Unmarshal([]byte(raw), &pt); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if err := pt.Validate(); err != nil {
		t.Fatalf("expected valid page type, got %v", err)
	}

	pt.PageType = "COVER"
	if err := pt.Validate(); err == nil {
		t.Fatal("expected error for unknown page type")
	}
}
