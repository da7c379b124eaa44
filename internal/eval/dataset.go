// Package eval benchmarks metadata generation against reference records
// from the Institutional Books 1.0 dataset.
// Dataset: https://huggingface.co/datasets/instdin/institutional-books-1.0
package eval

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// Record is one reference book with its library-catalog metadata as ground
// truth and OCR text as generation input.
type Record struct {
	Barcode  string `json:"barcode_src" parquet:"barcode_src"`
	Title    string `json:"title_src" parquet:"title_src"`
	Author   string `json:"author_src" parquet:"author_src"`
	Date1    string `json:"date1_src" parquet:"date1_src"`
	Language string `json:"language_src" parquet:"language_src"` // ISO 639-3
	Topic    string `json:"topic_or_subject_src" parquet:"topic_or_subject_src"`

	ISBN []string `json:"isbn_src" parquet:"isbn_src,list"`

	// Post-processed OCR text, one entry per page.
	TextByPage []string `json:"text_by_page_gen" parquet:"text_by_page_gen,list"`
}

// ExcerptText concatenates the first and last pages of the OCR text the same
// way generation extracts them from a PDF.
func (r *Record) ExcerptText(first, last int) string {
	pages := r.TextByPage
	if len(pages) == 0 {
		return ""
	}

	var sb strings.Builder
	write := func(n int) {
		fmt.Fprintf(&sb, "--- page %d ---\n%s\n", n+1, pages[n])
	}

	if first+last >= len(pages) {
		for i := range pages {
			write(i)
		}
		return sb.String()
	}
	for i := 0; i < first; i++ {
		write(i)
	}
	for i := len(pages) - last; i < len(pages); i++ {
		write(i)
	}
	return sb.String()
}

// Loader reads reference records from a Parquet or JSONL file.
type Loader struct {
	path string
}

func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load reads up to limit records; limit <= 0 means all.
func (l *Loader) Load(limit int) ([]Record, error) {
	switch ext := strings.ToLower(filepath.Ext(l.path)); ext {
	case ".parquet":
		return l.loadParquet(limit)
	case ".jsonl", ".json":
		return l.loadJSONL(limit)
	default:
		return nil, fmt.Errorf("unsupported dataset format: %s (supported: .parquet, .jsonl)", ext)
	}
}

func (l *Loader) loadJSONL(limit int) ([]Record, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)

	// OCR text makes for very large lines.
	const maxCapacity = 10 * 1024 * 1024
	scanner.Buffer(make([]byte, maxCapacity), maxCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record Record
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		records = append(records, record)

		if limit > 0 && len(records) >= limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading dataset: %w", err)
	}

	slog.Debug("Loaded JSONL dataset", "path", l.path, "records", len(records))
	return records, nil
}

func (l *Loader) loadParquet(limit int) ([]Record, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}
	slog.Debug("Opened parquet dataset", "path", l.path, "rows", pf.NumRows())

	reader := parquet.NewGenericReader[Record](pf)
	defer reader.Close()

	var records []Record
	rows := make([]Record, 128)
	for limit <= 0 || len(records) < limit {
		n, err := reader.Read(rows)
		if n > 0 {
			if limit > 0 && len(records)+n > limit {
				n = limit - len(records)
			}
			records = append(records, rows[:n]...)
		}
		if err != nil {
			break
		}
	}

	slog.Debug("Loaded parquet dataset", "path", l.path, "records", len(records))
	return records, nil
}

// SaveParquet writes records to a Parquet file, typically to snapshot a
// sample of a larger dataset for repeatable runs.
func SaveParquet(path string, records []Record) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[Record](file)
	if _, err := writer.Write(records); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}

	slog.Info("Saved dataset sample", "path", path, "records", len(records))
	return nil
}
