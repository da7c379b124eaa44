package pages

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/iscc/iscc-metagen/internal/metadata"
	"github.com/iscc/iscc-metagen/internal/prompt"
	"github.com/iscc/iscc-metagen/internal/providers"
)

// fakeSource serves pages from a slice.
type fakeSource struct {
	pages []string
}

func (f *fakeSource) Name() string   { return "fake.pdf" }
func (f *fakeSource) PageCount() int { return len(f.pages) }
func (f *fakeSource) Page(n int) (string, error) {
	if n < 0 || n >= len(f.pages) {
		return "", fmt.Errorf("page %d out of range", n)
	}
	return f.pages[n], nil
}

// fakeClassifier labels pages by looking for markers in the page text.
type fakeClassifier struct {
	calls int
}

func (f *fakeClassifier) Name() string { return "fake" }

func (f *fakeClassifier) Complete(ctx context.Context, req providers.Request) (string, error) {
	return "", fmt.Errorf("not implemented")
}

func (f *fakeClassifier) CompleteStructured(ctx context.Context, req providers.Request, schema map[string]any) ([]byte, error) {
	f.calls++
	label := metadata.PageOther
	switch {
	case strings.Contains(req.Prompt, "TITLE-MARKER"):
		label = metadata.PageTitlePage
	case strings.Contains(req.Prompt, "IMPRINT-MARKER"):
		label = metadata.PageImprint
	case strings.Contains(req.Prompt, "TOC-MARKER"):
		label = metadata.PageTableOfContents
	}
	return json.Marshal(metadata.PageType{
		ChainOfThought: "marker match",
		PageType:       label,
		Confidence:     "HIGH",
	})
}

func (f *fakeClassifier) ListModels(ctx context.Context) ([]string, error) {
	return nil, nil
}

func newTestCollector(p providers.Provider) *Collector {
	return NewCollector(p, prompt.NewRegistry(), "test system")
}

func TestCollectFindsFrontMatter(t *testing.T) {
	src := &fakeSource{pages: []string{
		"half title page",
		"TITLE-MARKER The Example Book",
		"IMPRINT-MARKER Copyright 2020 Example Press",
		"TOC-MARKER Contents 1. Introduction",
		"chapter one body text",
	}}

	c := newTestCollector(&fakeClassifier{})
	pages, err := c.Collect(context.Background(), src)
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}

	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	want := []string{metadata.PageTitlePage, metadata.PageImprint, metadata.PageTableOfContents}
	for i, w := range want {
		if pages[i].PageType.PageType != w {
			t.Errorf("page %d type = %s, want %s", i, pages[i].PageType.PageType, w)
		}
	}
}

func TestCollectSearchesBackwardsForImprint(t *testing.T) {
	pages := make([]string, 30)
	for i := range pages {
		pages[i] = fmt.Sprintf("body text of page %d", i)
	}
	pages[1] = "TITLE-MARKER The Example Book"
	pages[28] = "IMPRINT-MARKER Copyright 2020 Example Press"

	c := newTestCollector(&fakeClassifier{})
	got, err := c.Collect(context.Background(), &fakeSource{pages: pages})
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}

	var types []string
	for _, p := range got {
		types = append(types, p.PageType.PageType)
	}
	if len(types) != 2 || types[0] != metadata.PageTitlePage || types[1] != metadata.PageImprint {
		t.Errorf("got types %v, want [TITLE_PAGE IMPRINT]", types)
	}
}

func TestCollectScansThroughMaxFrontInclusive(t *testing.T) {
	pages := make([]string, 6)
	for i := range pages {
		pages[i] = fmt.Sprintf("body text of page %d", i)
	}
	// The page at index MaxFront is still part of the forward scan.
	pages[3] = "TITLE-MARKER The Example Book"

	c := newTestCollector(&fakeClassifier{})
	c.MaxFront = 3
	c.MaxOther = 100
	c.MaxBack = 0

	got, err := c.Collect(context.Background(), &fakeSource{pages: pages})
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if len(got) != 1 || got[0].PageType.PageType != metadata.PageTitlePage {
		t.Errorf("got %v, want the title page at the scan boundary", got)
	}
}

func TestCollectStopsAfterTooManyOtherPages(t *testing.T) {
	pages := make([]string, 20)
	for i := range pages {
		pages[i] = fmt.Sprintf("body text of page %d", i)
	}

	f := &fakeClassifier{}
	c := newTestCollector(f)
	c.MaxOther = 3
	c.MaxBack = 0

	if _, err := c.Collect(context.Background(), &fakeSource{pages: pages}); err == nil {
		t.Fatal("expected error when no relevant pages exist")
	}
	// Forward scan stops after MaxOther+1 OTHER classifications.
	if f.calls != 4 {
		t.Errorf("classifier called %d times, want 4", f.calls)
	}
}

func TestCollectSkipsShortPages(t *testing.T) {
	src := &fakeSource{pages: []string{
		"",
		"TITLE-MARKER The Example Book",
		"IMPRINT-MARKER Copyright",
	}}

	f := &fakeClassifier{}
	c := newTestCollector(f)
	got, err := c.Collect(context.Background(), src)
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 pages, got %d", len(got))
	}
	if f.calls != 2 {
		t.Errorf("classifier called %d times, want 2 (empty page skipped)", f.calls)
	}
}
