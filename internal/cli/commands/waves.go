package commands

import (
	"github.com/spf13/cobra"

	"github.com/AmalBilal1/covid19-anomaly-detection/internal/cli/output"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/waves"
)

// NewWavesCommand creates the waves command.
func NewWavesCommand() *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "waves",
		Short: "Show the wave catalog used for evaluation",
		Long: `Show the documented mortality waves detections are scored against.

Without waves_file (or --waves) the built-in Brazil catalog is used.`,
		Example: `  # Built-in catalog
  mortwatch waves

  # Dump it as YAML to start a custom catalog
  mortwatch waves --yaml > waves.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContextWithoutStore(cmd)
			if err != nil {
				return err
			}

			catalog, err := cc.Cfg.Catalog()
			if err != nil {
				return err
			}

			if asYAML {
				data, err := waves.Marshal(catalog)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(catalog)
			}
			renderWaves(r, catalog)
			if cc.Cfg.WavesFile != "" {
				r.Println("")
				r.Muted("Loaded from " + cc.Cfg.WavesFile)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print the catalog as YAML")

	return cmd
}
