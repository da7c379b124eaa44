// Package pdf extracts plain text from PDF documents.
package pdf

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	pdflib "github.com/dslipak/pdf"
)

// Document is an open PDF file. Page numbers in this package are zero-based
// to match how pages are referenced in classification results.
type Document struct {
	name string
	r    *pdflib.Reader
}

func Open(path string) (*Document, error) {
	r, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	return &Document{name: filepath.Base(path), r: r}, nil
}

func (d *Document) Name() string { return d.name }

func (d *Document) PageCount() int { return d.r.NumPage() }

// Page returns the plain text of a single page.
func (d *Document) Page(n int) (string, error) {
	if n < 0 || n >= d.r.NumPage() {
		return "", fmt.Errorf("page %d out of range (document has %d pages)", n, d.r.NumPage())
	}
	p := d.r.Page(n + 1)
	if p.V.IsNull() {
		return "", fmt.Errorf("page %d has no content", n)
	}
	text, err := p.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("failed to get text from page %d of %s: %w", n, d.name, err)
	}
	return text, nil
}

// ExtractPages concatenates the text of the given pages, each prefixed with
// a page marker. Pages that fail to extract are logged and skipped so a
// single broken page does not lose the rest of the document.
func (d *Document) ExtractPages(pages []int) (string, error) {
	var buf strings.Builder
	extracted := 0
	for _, n := range pages {
		text, err := d.Page(n)
		if err != nil {
			slog.Warn("Skipping page", "doc", d.name, "page", n, "err", err)
			continue
		}
		fmt.Fprintf(&buf, "--- page %d ---\n", n)
		buf.WriteString(strings.TrimSpace(text))
		buf.WriteString("\n\n")
		extracted++
	}
	if extracted == 0 {
		return "", fmt.Errorf("no text extracted from %s", d.name)
	}
	return buf.String(), nil
}

// ExtractParts extracts the first, middle, and last page ranges as one text
// blob. The defaults used for metadata generation are 8 front pages and 3
// back pages.
func (d *Document) ExtractParts(first, middle, last int) (string, error) {
	return d.ExtractPages(PartsPageNumbers(d.PageCount(), first, middle, last))
}

// PartsPageNumbers returns the zero-based page numbers covering the first,
// middle, and last sections of a document with count pages. Ranges are
// clamped to the document and duplicates removed while preserving order.
func PartsPageNumbers(count, first, middle, last int) []int {
	var pages []int
	for i := 0; i < first && i < count; i++ {
		pages = append(pages, i)
	}
	center := count / 2
	for i := center; i < center+middle && i < count; i++ {
		pages = append(pages, i)
	}
	for i := count - last; i < count; i++ {
		if i >= 0 {
			pages = append(pages, i)
		}
	}

	seen := make(map[int]bool, len(pages))
	out := pages[:0]
	for _, p := range pages {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
