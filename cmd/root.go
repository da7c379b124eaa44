package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/iscc/iscc-metagen/internal/config"
)

var (
	configPath   string
	providerFlag string
	modelFlag    string
	verbose      bool
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metagen [FILE]",
		Short: "Generate structured metadata for digital media assets using LLMs",
		Long: `MetaGen extracts bibliographic metadata from books and other digital
media. It reads the beginning and end of a PDF, asks a language model for
schema-constrained metadata, validates the answer, and retries with the
validation errors until the result is clean.

Beyond core metadata it can classify Thema subject categories, either by
walking the category tree or by retrieval against a vector index.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
		// A bare PDF path is a shortcut for `metagen generate FILE`.
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runGenerate(cmd, args[0], "json", "", false)
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to metagen.toml (default: ./metagen.toml, ~/.metagen/metagen.toml)")
	cmd.PersistentFlags().StringVar(&providerFlag, "provider", "", "Override the configured provider (openai, ollama, gemini)")
	cmd.PersistentFlags().StringVar(&modelFlag, "model", "", "Override the configured model")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	// Add subcommands
	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newModelsCmd())
	cmd.AddCommand(newThemaCmd())
	cmd.AddCommand(newEvalCmd())

	return cmd
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if providerFlag != "" {
		cfg.Provider = providerFlag
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if modelFlag != "" {
		switch cfg.Provider {
		case "openai":
			cfg.OpenAI.Model = modelFlag
		case "ollama":
			cfg.Ollama.Model = modelFlag
		case "gemini":
			cfg.Gemini.Model = modelFlag
		}
	}
	return cfg, nil
}
