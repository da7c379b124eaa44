package eval

import (
	"context"
	"log/slog"
	"time"

	"github.com/iscc/iscc-metagen/internal/metadata"
)

// Generator produces metadata from already-extracted text.
type Generator interface {
	GenerateText(ctx context.Context, text string) (*metadata.BookMetadata, error)
}

// Result is one evaluated record.
type Result struct {
	Barcode        string                 `json:"barcode"`
	Title          string                 `json:"title"`
	Generated      *metadata.BookMetadata `json:"generated,omitempty"`
	Comparison     *Comparison            `json:"comparison,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Error          string                 `json:"error,omitempty"`
}

// Page ranges fed to the generator, mirroring PDF extraction defaults.
const (
	excerptFirstPages = 8
	excerptLastPages  = 3
)

// Runner evaluates a generator over reference records.
type Runner struct {
	generator Generator
}

func NewRunner(generator Generator) *Runner {
	return &Runner{generator: generator}
}

// Run generates metadata for every record and scores it against the
// reference. Failed generations are recorded, not fatal.
func (r *Runner) Run(ctx context.Context, records []Record) ([]Result, error) {
	results := make([]Result, 0, len(records))
	for i, record := range records {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		slog.Info("Evaluating record", "n", i+1, "total", len(records), "barcode", record.Barcode, "title", record.Title)
		result := Result{Barcode: record.Barcode, Title: record.Title}

		start := time.Now()
		m, err := r.generator.GenerateText(ctx, record.ExcerptText(excerptFirstPages, excerptLastPages))
		result.ProcessingTime = time.Since(start)

		if err != nil {
			slog.Error("Generation failed", "barcode", record.Barcode, "err", err)
			result.Error = err.Error()
		} else {
			result.Generated = m
			result.Comparison = Compare(record, m)
			slog.Info("Scored record", "barcode", record.Barcode, "summary", result.Comparison.String())
		}
		results = append(results, result)
	}
	return results, nil
}

// Aggregate summarizes per-field accuracy over a set of results.
type Aggregate struct {
	TotalRecords int `json:"total_records"`
	SuccessCount int `json:"success_count"`
	FailureCount int `json:"failure_count"`

	OverallScore float64            `json:"overall_score"`
	FieldScores  map[string]float64 `json:"field_scores"`

	TotalProcessingTime   time.Duration `json:"total_processing_time"`
	AverageProcessingTime time.Duration `json:"average_processing_time"`
}

func AggregateResults(results []Result) *Aggregate {
	agg := &Aggregate{
		TotalRecords: len(results),
		FieldScores:  make(map[string]float64),
	}

	fieldTotals := make(map[string]float64)
	overallTotal := 0.0
	for _, r := range results {
		agg.TotalProcessingTime += r.ProcessingTime
		if r.Error != "" {
			agg.FailureCount++
			continue
		}
		agg.SuccessCount++
		if r.Comparison == nil {
			continue
		}
		overallTotal += r.Comparison.OverallScore
		for name, f := range r.Comparison.Fields {
			fieldTotals[name] += f.Score
		}
	}

	if agg.SuccessCount > 0 {
		agg.OverallScore = overallTotal / float64(agg.SuccessCount)
		for name, total := range fieldTotals {
			agg.FieldScores[name] = total / float64(agg.SuccessCount)
		}
	}
	if agg.TotalRecords > 0 {
		agg.AverageProcessingTime = agg.TotalProcessingTime / time.Duration(agg.TotalRecords)
	}
	return agg
}
