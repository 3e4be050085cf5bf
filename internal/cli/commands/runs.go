package commands

import (
	"github.com/spf13/cobra"

	"github.com/AmalBilal1/covid19-anomaly-detection/internal/cli/output"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded detect and tune runs",
		Example: `  # Last 20 runs
  mortwatch runs

  # Everything
  mortwatch runs --limit 0`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			runs, err := cc.Store.ListRuns(limit)
			if err != nil {
				return err
			}

			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(runs)
			}
			renderRuns(r, runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")

	return cmd
}
