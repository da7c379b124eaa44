package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/iscc/iscc-metagen/internal/metadata"
	"github.com/iscc/iscc-metagen/internal/metagen"
)

func newGenerateCmd() *cobra.Command {
	var (
		format   string
		output   string
		classify bool
	)

	cmd := &cobra.Command{
		Use:   "generate FILE",
		Short: "Generate metadata for a PDF file",
		Long: `Extracts text from the beginning and end of a PDF and generates
schema-validated bibliographic metadata with the configured LLM provider.`,
		Example: `  # Generate metadata as JSON on stdout
  metagen generate book.pdf

  # Generate with a local Ollama model, as YAML
  metagen generate --provider ollama --model qwen3:8b --format yaml book.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args[0], format, output, classify)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format (json, yaml)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write output to file instead of stdout")
	cmd.Flags().BoolVar(&classify, "classify", false, "Select input pages by classifying them instead of fixed ranges")

	return cmd
}

func runGenerate(cmd *cobra.Command, path, format, output string, classify bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	service, err := metagen.New(cfg)
	if err != nil {
		return err
	}

	var m *metadata.BookMetadata
	if classify {
		m, err = service.GenerateFileClassified(cmd.Context(), path)
	} else {
		m, err = service.GenerateFile(cmd.Context(), path)
	}
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case "json":
		data, err = json.MarshalIndent(m, "", "  ")
		if err == nil {
			data = append(data, '\n')
		}
	case "yaml":
		data, err = yaml.Marshal(m)
	default:
		return fmt.Errorf("unsupported format: %s (supported: json, yaml)", format)
	}
	if err != nil {
		return err
	}

	if output != "" {
		return os.WriteFile(output, data, 0644)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
