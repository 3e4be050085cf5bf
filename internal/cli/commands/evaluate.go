package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AmalBilal1/covid19-anomaly-detection/internal/cli/output"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/core"
)

// NewEvaluateCommand creates the evaluate command.
func NewEvaluateCommand() *cobra.Command {
	var runID string
	var showDetections bool

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Show the stored evaluation of a detect run",
		Long: `Show precision, recall and F1 of a past detect run without reloading data.

Defaults to the most recent detect run.`,
		Example: `  # Latest detect run
  mortwatch evaluate

  # A specific run, with its detections
  mortwatch evaluate --run 3f2c9a1e-... --detections`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			var run *core.Run
			if runID != "" {
				run, err = cc.Store.GetRun(runID)
			} else {
				run, err = cc.Store.GetLatestRun(core.CommandDetect)
			}
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("no detect runs recorded yet; run 'mortwatch detect' first")
			}
			if run.Command != core.CommandDetect {
				return fmt.Errorf("run %s is a %s run; only detect runs have evaluations", run.ID, run.Command)
			}

			evals, err := cc.Store.GetEvaluations(run.ID)
			if err != nil {
				return err
			}
			var detections []core.Detection
			if showDetections || cc.Renderer.EffectiveMode() == output.ModeJSON {
				if detections, err = cc.Store.GetDetections(run.ID); err != nil {
					return err
				}
			}

			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(struct {
					Run         *core.Run         `json:"run"`
					Detections  []core.Detection  `json:"detections"`
					Evaluations []core.Evaluation `json:"evaluations"`
				}{run, detections, evals})
			}

			r.Header(1, "Evaluation of run "+shortID(run.ID))
			if run.Status == core.RunStatusFailed {
				r.Warning("run failed: " + run.Error)
			}
			if showDetections {
				renderDetections(r, detections)
				r.Println("")
			}
			renderEvaluations(r, evals)
			runFooter(r, run)
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run ID (default: latest detect run)")
	cmd.Flags().BoolVar(&showDetections, "detections", false, "Also list the run's detections")

	return cmd
}
