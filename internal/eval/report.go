package eval

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ReportConfig records the run parameters alongside the results.
type ReportConfig struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	DatasetPath string `yaml:"dataset_path"`
	SampleSize  int    `yaml:"sample_size"`
	Timestamp   string `yaml:"timestamp"`
}

// ReportResult is one record's row in a saved report.
type ReportResult struct {
	Barcode        string             `yaml:"barcode"`
	Title          string             `yaml:"title"`
	GeneratedTitle string             `yaml:"generated_title,omitempty"`
	OverallScore   float64            `yaml:"overall_score"`
	FieldScores    map[string]float64 `yaml:"field_scores,omitempty"`
	ProcessingSecs float64            `yaml:"processing_seconds"`
	Error          string             `yaml:"error,omitempty"`
}

// Report is the persisted form of an evaluation run.
type Report struct {
	Config  ReportConfig   `yaml:"config"`
	Summary map[string]any `yaml:"summary"`
	Results []ReportResult `yaml:"results"`
}

// SaveReport writes a YAML evaluation report and returns its path.
func SaveReport(dir string, cfg ReportConfig, results []Result) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	if cfg.Timestamp == "" {
		cfg.Timestamp = time.Now().Format("2006-01-02_15-04-05")
	}

	agg := AggregateResults(results)
	rep := Report{
		Config: cfg,
		Summary: map[string]any{
			"total_records": agg.TotalRecords,
			"success_count": agg.SuccessCount,
			"failure_count": agg.FailureCount,
			"overall_score": agg.OverallScore,
			"field_scores":  agg.FieldScores,
			"avg_seconds":   agg.AverageProcessingTime.Seconds(),
		},
		Results: make([]ReportResult, 0, len(results)),
	}

	for _, r := range results {
		rr := ReportResult{
			Barcode:        r.Barcode,
			Title:          r.Title,
			ProcessingSecs: r.ProcessingTime.Seconds(),
			Error:          r.Error,
		}
		if r.Generated != nil {
			rr.GeneratedTitle = r.Generated.Title
		}
		if r.Comparison != nil {
			rr.OverallScore = r.Comparison.OverallScore
			rr.FieldScores = make(map[string]float64, len(r.Comparison.Fields))
			for name, f := range r.Comparison.Fields {
				rr.FieldScores[name] = f.Score
			}
		}
		rep.Results = append(rep.Results, rr)
	}

	data, err := yaml.Marshal(&rep)
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	// Gateway-style model names contain slashes; keep the filename flat.
	model := strings.NewReplacer("/", "-", string(os.PathSeparator), "-").Replace(cfg.Model)
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.yaml", model, cfg.Timestamp))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// LoadReport reads a previously saved YAML report.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var rep Report
	if err := yaml.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return &rep, nil
}
