package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iscc/iscc-metagen/internal/providers"
)

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List models available on the configured providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, p := range providers.All(cfg) {
				models, err := p.ListModels(cmd.Context())
				if err != nil {
					fmt.Fprintf(out, "%s: unavailable (%v)\n", p.Name(), err)
					continue
				}
				for _, m := range models {
					fmt.Fprintf(out, "%s/%s\n", p.Name(), m)
				}
			}
			return nil
		},
	}
}
