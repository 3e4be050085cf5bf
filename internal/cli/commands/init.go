package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AmalBilal1/covid19-anomaly-detection/internal/cli/config"
	"github.com/AmalBilal1/covid19-anomaly-detection/internal/cli/output"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/waves"
)

// wavesFileName is the catalog written by init --waves.
const wavesFileName = "waves.yaml"

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var withWaves bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a starter mortwatch.yaml",
		Long: `Create a starter configuration in the given directory (default: current).

This creates:
  - mortwatch.yaml with the stock detector parameters and a tuning grid
  - .gitignore excluding the state directory

Use --waves to also write the built-in Brazil wave catalog to waves.yaml
so it can be edited.`,
		Example: `  # Initialize in current directory
  mortwatch init

  # New directory with an editable wave catalog
  mortwatch init analysis --waves

  # Force overwrite existing config
  mortwatch init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			mode, _ := cmd.Flags().GetString("output")
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(mode))

			return runInit(r, dir, force, withWaves)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	cmd.Flags().BoolVar(&withWaves, "waves", false, "Also write the built-in wave catalog to waves.yaml")

	return cmd
}

func runInit(r *output.Renderer, dir string, force, withWaves bool) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", config.ConfigFileName)
	}

	files, err := copyTemplate("starter", dir, force)
	if err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	if withWaves {
		if err := writeWaves(dir, configPath); err != nil {
			return err
		}
		files = append(files, wavesFileName)
	}

	for _, f := range files {
		r.StatusLine(f, "success", "")
	}

	r.Println("")
	r.Success("mortwatch initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Point source.csv at your mortality data")
	r.Println("  2. Run 'mortwatch detect' to find spikes and turning points")
	r.Println("  3. Run 'mortwatch tune' to search better detector parameters")

	return nil
}

// writeWaves writes the built-in catalog and points the config at it.
func writeWaves(dir, configPath string) error {
	data, err := waves.Marshal(waves.Brazil())
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, wavesFileName), data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", wavesFileName, err)
	}

	f, err := os.OpenFile(configPath, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", config.ConfigFileName, err)
	}
	defer func() { _ = f.Close() }()
	_, err = fmt.Fprintf(f, "\nwaves_file: %s\n", wavesFileName)
	return err
}
