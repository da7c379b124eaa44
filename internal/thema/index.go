package thema

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/iscc/iscc-metagen/internal/vdb"
)

// Point IDs are derived from category codes so re-ingesting updates in
// place instead of duplicating.
var pointNamespace = uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8")

const ingestBatchSize = 64

// Index connects the vocabulary to the vector store for RAG prediction.
type Index struct {
	store    *vdb.Store
	embedder *vdb.Embedder
	thema    *Thema
}

func NewIndex(store *vdb.Store, embedder *vdb.Embedder, t *Thema) *Index {
	return &Index{store: store, embedder: embedder, thema: t}
}

// Ingest embeds every category document and upserts it with its code
// metadata as payload.
func (x *Index) Ingest(ctx context.Context) (int, error) {
	docs := x.thema.BuildDocs()

	total := 0
	for start := 0; start < len(docs); start += ingestBatchSize {
		end := start + ingestBatchSize
		if end > len(docs) {
			end = len(docs)
		}

		vectors, err := x.embedder.Embed(ctx, docs[start:end])
		if err != nil {
			return total, fmt.Errorf("embed batch at %d: %w", start, err)
		}

		if total == 0 {
			if err := x.store.EnsureCollection(ctx, uint64(len(vectors[0]))); err != nil {
				return total, err
			}
		}

		points := make([]vdb.Point, len(vectors))
		for i, vec := range vectors {
			code := &x.thema.Codes[start+i]
			points[i] = vdb.Point{
				ID:     uuid.NewSHA1(pointNamespace, []byte(code.Value)).String(),
				Vector: vec,
				Payload: map[string]string{
					"category_code":    code.Value,
					"category_heading": code.Heading,
					"parent_code":      code.Parent,
					"document":         docs[start+i],
				},
			}
		}

		if err := x.store.Upsert(ctx, points); err != nil {
			return total, fmt.Errorf("upsert batch at %d: %w", start, err)
		}
		total += len(points)
		slog.Debug("Ingested thema batch", "done", total, "total", len(docs))
	}

	slog.Info("Ingested thema categories", "count", total)
	return total, nil
}

// Search embeds the query and returns the matched categories, satisfying
// the Searcher interface used by RAG prediction.
func (x *Index) Search(ctx context.Context, query string, limit int) ([]Code, error) {
	vectors, err := x.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}

	hits, err := x.store.Search(ctx, vectors[0], uint64(limit))
	if err != nil {
		return nil, err
	}

	var codes []Code
	for _, hit := range hits {
		value := hit.Payload["category_code"]
		if c, ok := x.thema.Lookup(value); ok {
			codes = append(codes, *c)
		}
	}
	return codes, nil
}
