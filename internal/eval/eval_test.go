package eval

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iscc/iscc-metagen/internal/metadata"
)

func refRecord() Record {
	return Record{
		Barcode:  "39002012345678",
		Title:    "Thinking in Systems: A Primer",
		Author:   "Meadows, Donella H.",
		Date1:    "2008",
		Language: "eng",
		Topic:    "System analysis",
		ISBN:     []string{"978-1-60358-055-7"},
		TextByPage: []string{
			"THINKING IN SYSTEMS", "A Primer", "Donella H. Meadows",
			"Copyright 2008", "Contents", "Chapter One", "Chapter Two",
			"More text", "Even more", "Appendix", "Bibliography", "Index",
		},
	}
}

func generated() *metadata.BookMetadata {
	return &metadata.BookMetadata{
		Title:         "Thinking in Systems: A Primer",
		Description:   "An introduction to systems thinking.",
		Keywords:      []string{"systems", "system analysis", "complexity"},
		YearPublished: 2008,
		Language:      "en",
		Contributors:  []metadata.Contributor{{Name: "Donella H. Meadows", Role: "author"}},
		ISBNs:         []metadata.BookISBN{{ISBN: "9781603580557"}},
	}
}

func TestCompareExactMatches(t *testing.T) {
	c := Compare(refRecord(), generated())

	for _, field := range []string{"title", "year", "language", "isbn"} {
		if got := c.Fields[field]; got.Score != 1.0 {
			t.Errorf("%s score = %.2f (%s), want 1.0", field, got.Score, got.Match)
		}
	}
	// "system analysis" keyword is contained in the catalog topic.
	if got := c.Fields["keywords"]; got.Score != 1.0 || got.Match != "substring" {
		t.Errorf("keywords score = %.2f (%s), want substring match", got.Score, got.Match)
	}
	if c.OverallScore < 0.9 {
		t.Errorf("overall score = %.2f", c.OverallScore)
	}
}

func TestCompareAuthorNameOrder(t *testing.T) {
	// Catalog names are inverted ("Meadows, Donella H."); token order must
	// not matter.
	c := Compare(refRecord(), generated())
	author := c.Fields["author"]
	if author.Score != 1.0 {
		t.Errorf("author score = %.2f (%s), want 1.0", author.Score, author.Match)
	}
	if author.Expected != "Meadows, Donella H." {
		t.Errorf("expected value rewritten to %q", author.Expected)
	}
}

func TestCompareMissingFields(t *testing.T) {
	m := &metadata.BookMetadata{
		Title:       "Thinking in Systems",
		Description: "x",
		Keywords:    []string{"ecology"},
		Language:    "de",
	}
	c := Compare(refRecord(), m)

	if got := c.Fields["isbn"]; got.Match != "missing" {
		t.Errorf("isbn match = %s, want missing", got.Match)
	}
	if got := c.Fields["language"]; got.Score != 0 {
		t.Errorf("language score = %.2f, want 0", got.Score)
	}
	if c.FieldsMissing == 0 {
		t.Error("expected missing fields to be counted")
	}
}

func TestCompareUnmappedLanguage(t *testing.T) {
	ref := refRecord()
	ref.Language = "epo" // not in the ISO 639-3 mapping
	m := generated()
	m.Language = "eo"

	lang := Compare(ref, m).Fields["language"]
	if lang.Match == "no_reference" {
		t.Fatal("unmapped code treated as missing reference")
	}
	if lang.Score <= 0.5 {
		t.Errorf("language score = %.2f (%s), want fuzzy match", lang.Score, lang.Match)
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"book", "back", 2},
	}
	for _, tt := range tests {
		if got := levenshteinDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestExcerptText(t *testing.T) {
	r := refRecord()

	text := r.ExcerptText(2, 1)
	if !strings.Contains(text, "--- page 1 ---") || !strings.Contains(text, "--- page 2 ---") {
		t.Error("first pages missing")
	}
	if !strings.Contains(text, "--- page 12 ---\nIndex") {
		t.Error("last page missing")
	}
	if strings.Contains(text, "Chapter One") {
		t.Error("middle pages should be skipped")
	}

	// Short documents are returned whole.
	short := Record{TextByPage: []string{"a", "b"}}
	if got := short.ExcerptText(8, 3); !strings.Contains(got, "a") || !strings.Contains(got, "b") {
		t.Errorf("short excerpt = %q", got)
	}
}

type fixedGenerator struct {
	m   *metadata.BookMetadata
	err error
}

func (g *fixedGenerator) GenerateText(ctx context.Context, text string) (*metadata.BookMetadata, error) {
	return g.m, g.err
}

func TestRunnerCollectsFailures(t *testing.T) {
	records := []Record{refRecord(), refRecord()}

	ok, err := NewRunner(&fixedGenerator{m: generated()}).Run(context.Background(), records)
	if err != nil {
		t.Fatal(err)
	}
	failed, err := NewRunner(&fixedGenerator{err: fmt.Errorf("model unavailable")}).Run(context.Background(), records)
	if err != nil {
		t.Fatal(err)
	}

	agg := AggregateResults(append(ok, failed...))
	if agg.TotalRecords != 4 || agg.SuccessCount != 2 || agg.FailureCount != 2 {
		t.Errorf("aggregate = %+v", agg)
	}
	if agg.OverallScore < 0.9 {
		t.Errorf("overall score = %.2f", agg.OverallScore)
	}
	if agg.FieldScores["title"] != 1.0 {
		t.Errorf("title field score = %.2f", agg.FieldScores["title"])
	}
}

func TestSaveReport(t *testing.T) {
	dir := t.TempDir()
	results := []Result{
		{
			Barcode:        "123",
			Title:          "Test Book",
			Generated:      generated(),
			Comparison:     Compare(refRecord(), generated()),
			ProcessingTime: 2 * time.Second,
		},
		{Barcode: "456", Title: "Broken Book", Error: "generation failed"},
	}

	path, err := SaveReport(dir, ReportConfig{
		Provider:    "openai",
		Model:       "openrouter/qwen3:8b",
		DatasetPath: "sample.parquet",
		SampleSize:  2,
	}, results)
	if err != nil {
		t.Fatal(err)
	}

	// Slashes in gateway-style model names must not escape the report dir.
	if filepath.Dir(path) != dir {
		t.Errorf("report written to %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	for _, want := range []string{"provider: openai", "barcode: \"123\"", "error: generation failed", "overall_score:"} {
		if !strings.Contains(content, want) {
			t.Errorf("report missing %q:\n%s", want, content)
		}
	}

	rep, err := LoadReport(path)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Config.Model != "openrouter/qwen3:8b" {
		t.Errorf("loaded model = %q", rep.Config.Model)
	}
	if len(rep.Results) != 2 || rep.Results[1].Error != "generation failed" {
		t.Errorf("loaded results = %+v", rep.Results)
	}
}

func TestLoaderJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.jsonl")
	lines := `{"barcode_src":"1","title_src":"First","language_src":"eng","text_by_page_gen":["page one"]}
{"barcode_src":"2","title_src":"Second","language_src":"ger","text_by_page_gen":["seite eins"]}
`
	if err := os.WriteFile(path, []byte(lines), 0644); err != nil {
		t.Fatal(err)
	}

	records, err := NewLoader(path).Load(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[1].Title != "Second" {
		t.Errorf("records = %+v", records)
	}

	limited, err := NewLoader(path).Load(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("limited load returned %d records", len(limited))
	}
}

func TestParquetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.parquet")
	records := []Record{refRecord()}

	if err := SaveParquet(path, records); err != nil {
		t.Fatal(err)
	}
	loaded, err := NewLoader(path).Load(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 || loaded[0].Barcode != records[0].Barcode || len(loaded[0].TextByPage) != 12 {
		t.Errorf("loaded = %+v", loaded)
	}
}
