package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iscc/iscc-metagen/internal/config"
	"github.com/iscc/iscc-metagen/internal/pdf"
	"github.com/iscc/iscc-metagen/internal/prompt"
	"github.com/iscc/iscc-metagen/internal/providers"
	"github.com/iscc/iscc-metagen/internal/thema"
	"github.com/iscc/iscc-metagen/internal/vdb"
)

func newThemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "thema",
		Short: "Thema subject category tools",
		Long: `Tools for working with the EDItEUR Thema subject category vocabulary:
ingesting it into a vector index and predicting categories for documents.`,
	}

	cmd.AddCommand(newThemaIngestCmd())
	cmd.AddCommand(newThemaPredictCmd())

	return cmd
}

func loadThema(ctx context.Context, cfg *config.Config) (*thema.Thema, error) {
	return thema.NewLoader(cfg.Thema, cfg.CacheDir).Load(ctx)
}

func openIndex(cfg *config.Config, t *thema.Thema) (*thema.Index, *vdb.Store, error) {
	store, err := vdb.NewStore(cfg.Qdrant.URL, cfg.Qdrant.Collection)
	if err != nil {
		return nil, nil, err
	}
	embedder := vdb.NewEmbedder(cfg.Ollama.BaseURL, cfg.Embedding.Model)
	return thema.NewIndex(store, embedder, t), store, nil
}

func newThemaIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Embed the Thema vocabulary into the vector index",
		Long: `Downloads the Thema vocabulary (or reads a local copy), embeds every
category with the configured embedding model, and upserts the vectors
into Qdrant. Re-running updates existing points in place.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			t, err := loadThema(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			index, store, err := openIndex(cfg, t)
			if err != nil {
				return err
			}
			defer store.Close()

			count, err := index.Ingest(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ingested %d categories into %s\n", count, cfg.Qdrant.Collection)
			return nil
		},
	}
}

func newThemaPredictCmd() *cobra.Command {
	var (
		strategy string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "predict FILE",
		Short: "Predict Thema categories for a PDF file",
		Example: `  # Pick from the top-level subject headings
  metagen thema predict book.pdf

  # Walk the category tree down to specific categories
  metagen thema predict --strategy tree book.pdf

  # Retrieve candidates from the vector index, then rerank
  metagen thema predict --strategy rag book.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			t, err := loadThema(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			provider, err := providers.New(cfg)
			if err != nil {
				return err
			}

			doc, err := pdf.Open(args[0])
			if err != nil {
				return err
			}
			excerpts, err := doc.ExtractParts(8, 0, 3)
			if err != nil {
				return err
			}

			predictor := thema.NewPredictor(t, provider, prompt.NewRegistry())

			var result *thema.Categories
			switch strategy {
			case "single":
				result, err = predictor.Predict(cmd.Context(), excerpts)
			case "tree":
				result, err = predictor.PredictTopDown(cmd.Context(), excerpts)
			case "rag":
				index, store, ierr := openIndex(cfg, t)
				if ierr != nil {
					return ierr
				}
				defer store.Close()
				result, err = predictor.PredictRAG(cmd.Context(), index, excerpts, limit)
			default:
				return fmt.Errorf("unsupported strategy: %s (supported: single, tree, rag)", strategy)
			}
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&strategy, "strategy", "s", "single", "Prediction strategy (single, tree, rag)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "Candidate count for RAG retrieval")

	return cmd
}
