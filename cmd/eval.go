package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iscc/iscc-metagen/internal/eval"
	"github.com/iscc/iscc-metagen/internal/metagen"
)

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate metadata generation against reference records",
		Long: `Evaluation tools for measuring generation accuracy against the
Institutional Books dataset. Generated metadata is scored field by field
against professional catalog records.`,
	}

	cmd.AddCommand(newEvalRunCmd())
	cmd.AddCommand(newEvalReportCmd())
	cmd.AddCommand(newEvalSampleCmd())

	return cmd
}

func newEvalRunCmd() *cobra.Command {
	var (
		datasetPath string
		limit       int
		reportDir   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an evaluation and write a YAML report",
		Example: `  # Evaluate 10 records with the configured provider
  metagen eval run --dataset books.parquet --limit 10

  # Sweep a local model over the full sample
  metagen eval run --dataset sample.jsonl --provider ollama --model qwen3:8b`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			records, err := eval.NewLoader(datasetPath).Load(limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return fmt.Errorf("dataset %s contains no records", datasetPath)
			}

			service, err := metagen.New(cfg)
			if err != nil {
				return err
			}

			results, err := eval.NewRunner(service).Run(cmd.Context(), records)
			if err != nil {
				return err
			}

			path, err := eval.SaveReport(reportDir, eval.ReportConfig{
				Provider:    cfg.Provider,
				Model:       cfg.Model(),
				DatasetPath: datasetPath,
				SampleSize:  len(records),
			}, results)
			if err != nil {
				return err
			}

			agg := eval.AggregateResults(results)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "evaluated %d records (%d failed)\n", agg.TotalRecords, agg.FailureCount)
			fmt.Fprintf(out, "overall score: %.3f\n", agg.OverallScore)
			for field, score := range agg.FieldScores {
				fmt.Fprintf(out, "  %s: %.3f\n", field, score)
			}
			fmt.Fprintf(out, "report: %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&datasetPath, "dataset", "d", "", "Reference dataset (.parquet or .jsonl)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "Evaluate at most N records (0 = all)")
	cmd.Flags().StringVar(&reportDir, "report-dir", "evals", "Directory for YAML reports")
	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

func newEvalReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report FILE",
		Short: "Print a summary of a saved evaluation report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := eval.LoadReport(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "provider: %s  model: %s  dataset: %s (%d records)\n",
				rep.Config.Provider, rep.Config.Model, rep.Config.DatasetPath, rep.Config.SampleSize)
			for key, value := range rep.Summary {
				fmt.Fprintf(out, "  %s: %v\n", key, value)
			}
			for _, r := range rep.Results {
				if r.Error != "" {
					fmt.Fprintf(out, "FAIL  %s %s: %s\n", r.Barcode, r.Title, r.Error)
					continue
				}
				fmt.Fprintf(out, "%.3f %s %s\n", r.OverallScore, r.Barcode, r.Title)
			}
			return nil
		},
	}
}

func newEvalSampleCmd() *cobra.Command {
	var (
		datasetPath string
		limit       int
		output      string
	)

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Snapshot a dataset sample to Parquet for repeatable runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := eval.NewLoader(datasetPath).Load(limit)
			if err != nil {
				return err
			}
			if err := eval.SaveParquet(output, records); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records to %s\n", len(records), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&datasetPath, "dataset", "d", "", "Source dataset (.parquet or .jsonl)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 100, "Number of records to keep")
	cmd.Flags().StringVarP(&output, "output", "o", "sample.parquet", "Output parquet file")
	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}
