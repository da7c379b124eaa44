package thema

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/iscc/iscc-metagen/internal/prompt"
	"github.com/iscc/iscc-metagen/internal/providers"
)

// treeProvider descends one level per call: it always answers with the
// first category offered in the prompt.
type treeProvider struct {
	calls   int
	prompts []string
}

func (p *treeProvider) Name() string { return "tree" }

func (p *treeProvider) Complete(ctx context.Context, req providers.Request) (string, error) {
	return "", nil
}

func (p *treeProvider) CompleteStructured(ctx context.Context, req providers.Request, schema map[string]any) ([]byte, error) {
	p.calls++
	p.prompts = append(p.prompts, req.Prompt)

	// The prompt lists candidates as "CODE: heading" lines; pick the first.
	var code, heading string
	for _, line := range strings.Split(req.Prompt, "\n") {
		if i := strings.Index(line, ": "); i > 0 && !strings.ContainsAny(line[:i], " \t") {
			code, heading = line[:i], line[i+2:]
			break
		}
	}

	return json.Marshal(Categories{Categories: []Selection{{
		Reason:          "first candidate",
		CategoryCode:    code,
		CategoryHeading: heading,
		Confidence:      "HIGH",
	}}})
}

func (p *treeProvider) ListModels(ctx context.Context) ([]string, error) { return nil, nil }

func newTestPredictor(t *testing.T, p providers.Provider) *Predictor {
	t.Helper()
	return NewPredictor(parseSample(t), p, prompt.NewRegistry())
}

func TestPredict(t *testing.T) {
	fake := &treeProvider{}
	pred := newTestPredictor(t, fake)

	got, err := pred.Predict(context.Background(), "a book about art history")
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if len(got.Categories) != 1 || got.Categories[0].CategoryCode != "A" {
		t.Errorf("got %+v, want selection of A", got.Categories)
	}
	if !strings.Contains(fake.prompts[0], "a book about art history") {
		t.Error("excerpts missing from prompt")
	}
	// Only main subjects are offered at the top level.
	if strings.Contains(fake.prompts[0], "1A:") {
		t.Error("qualifier code offered as main subject")
	}
}

func TestPredictTopDownReachesLeaf(t *testing.T) {
	fake := &treeProvider{}
	pred := newTestPredictor(t, fake)

	got, err := pred.PredictTopDown(context.Background(), "a book about art theory")
	if err != nil {
		t.Fatalf("top-down predict failed: %v", err)
	}
	// A -> AB -> ABA, then a final rerank over collected leaves.
	if got.Categories[0].CategoryCode != "ABA" {
		t.Errorf("primary category = %s, want ABA", got.Categories[0].CategoryCode)
	}
}

// inventingProvider answers with a code that was never offered.
type inventingProvider struct{ treeProvider }

func (p *inventingProvider) CompleteStructured(ctx context.Context, req providers.Request, schema map[string]any) ([]byte, error) {
	return json.Marshal(Categories{Categories: []Selection{{
		Reason:          "made up",
		CategoryCode:    "ZZZ",
		CategoryHeading: "Invented",
		Confidence:      "HIGH",
	}}})
}

func TestPredictRejectsInventedCodes(t *testing.T) {
	pred := newTestPredictor(t, &inventingProvider{})
	if _, err := pred.Predict(context.Background(), "excerpt"); err == nil {
		t.Fatal("expected error when all selections are invented")
	}
}

// stubSearcher returns fixed candidates.
type stubSearcher struct{ codes []Code }

func (s *stubSearcher) Search(ctx context.Context, query string, limit int) ([]Code, error) {
	return s.codes, nil
}

func TestPredictRAG(t *testing.T) {
	fake := &treeProvider{}
	pred := newTestPredictor(t, fake)
	th := parseSample(t)
	ab, _ := th.Lookup("AB")
	aba, _ := th.Lookup("ABA")

	got, err := pred.PredictRAG(context.Background(), &stubSearcher{codes: []Code{*ab, *aba}}, "excerpt", 10)
	if err != nil {
		t.Fatalf("rag predict failed: %v", err)
	}
	if got.Categories[0].CategoryCode != "AB" {
		t.Errorf("primary category = %s, want AB", got.Categories[0].CategoryCode)
	}
}
