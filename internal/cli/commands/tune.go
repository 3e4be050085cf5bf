package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AmalBilal1/covid19-anomaly-detection/internal/cli/output"
	"github.com/AmalBilal1/covid19-anomaly-detection/internal/pipeline"
)

// NewTuneCommand creates the tune command.
func NewTuneCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tune",
		Short: "Search detector parameters that best match the wave catalog",
		Long: `Run a grid search over detector parameters. Every combination is scored
by an objective expression over the pooled evaluation; the best trials are
printed and stored with the run.

The objective is a Starlark expression with these names predeclared:
  precision, recall, f1, detections, aligned, waves_hit, waves_total

The grid comes from tune.grid in mortwatch.yaml, or a built-in grid around
the stock parameters.`,
		Example: `  # Maximize F1 (default)
  mortwatch tune

  # Favor recall, penalize noisy settings
  mortwatch tune --objective "recall - 0.01 * detections"

  # Keep the 5 best trials, 8 workers
  mortwatch tune --top 5 --workers 8`,
		RunE: runTune,
	}

	cmd.Flags().String("objective", "", "Starlark objective expression (default: f1)")
	cmd.Flags().Int("top", 0, "Number of trials to keep (default: 10)")
	cmd.Flags().Int("workers", 0, "Concurrent trials (default: number of CPUs)")
	cmd.Flags().Int("tolerance", 0, "Weeks a detection may fall outside a wave and still count")

	return cmd
}

func runTune(cmd *cobra.Command, _ []string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := cc.Pipeline()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	tc := cc.Cfg.Tune
	res, err := p.Tune(ctx, pipeline.TuneOptions{
		Grid:      tc.Grid,
		Objective: tc.Objective,
		Workers:   tc.Workers,
		Top:       tc.Top,
	})
	if err != nil {
		return err
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(res)
	}

	r.Header(1, fmt.Sprintf("Tuning: %d combinations, objective %q", tc.Grid.Size(), tc.Objective))
	renderTrials(r, res.Trials)
	if len(res.Trials) > 0 {
		best := res.Trials[0].Params
		r.Println("")
		r.Header(2, "Best parameters")
		r.Println(output.FormatKeyValue("spike.q_up", formatValue(best.Spike.QUp)))
		r.Println(output.FormatKeyValue("spike.transform", string(best.Spike.Transform)))
		r.Println(output.FormatKeyValue("turn.w_pre", fmt.Sprint(best.Turn.WPre)))
		r.Println(output.FormatKeyValue("turn.w_post", fmt.Sprint(best.Turn.WPost)))
		r.Println(output.FormatKeyValue("turn.q_h", formatValue(best.Turn.QH)))
		r.Println(output.FormatKeyValue("turn.q_flat", formatValue(best.Turn.QFlat)))
		r.Println(output.FormatKeyValue("turn.q_trend", formatValue(best.Turn.QTrend)))
		r.Println(output.FormatKeyValue("turn.transform", string(best.Turn.Transform)))
	}
	runFooter(r, res.Run)
	return nil
}
