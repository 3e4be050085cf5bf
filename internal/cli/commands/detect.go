package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AmalBilal1/covid19-anomaly-detection/internal/cli/output"
	"github.com/AmalBilal1/covid19-anomaly-detection/internal/pipeline"
	"github.com/AmalBilal1/covid19-anomaly-detection/internal/watch"
)

// NewDetectCommand creates the detect command.
func NewDetectCommand() *cobra.Command {
	var watchInput bool

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect mortality spikes and turning points",
		Long: `Load weekly mortality series, run the spike and turn detectors on every
region and score the detections against the wave catalog.

Every invocation is recorded as a run in the state database. Use
'mortwatch runs' to list past runs and 'mortwatch evaluate' to show a stored
evaluation again.

Output adapts to environment:
  - Terminal: Styled tables
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json`,
		Example: `  # Detect on a CSV of daily deaths
  mortwatch detect --source-path data/obitos.csv

  # Allow detections up to two weeks outside a wave
  mortwatch detect --tolerance 2

  # Re-run whenever the CSV changes
  mortwatch detect --watch

  # JSON for scripts
  mortwatch detect -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDetect(cmd, watchInput)
		},
	}

	cmd.Flags().Int("tolerance", 0, "Weeks a detection may fall outside a wave and still count")
	cmd.Flags().BoolVarP(&watchInput, "watch", "w", false, "Re-run detection when the CSV input changes")

	return cmd
}

func runDetect(cmd *cobra.Command, watchInput bool) error {
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

	if watchInput && cc.Cfg.Source.CSV == "" {
		return fmt.Errorf("--watch requires a CSV source (source.csv)")
	}

	if err := detectOnce(ctx, cc, p); err != nil {
		if !watchInput {
			return err
		}
		cc.Renderer.Error(err.Error())
	}
	if !watchInput {
		return nil
	}

	cc.Renderer.Muted(fmt.Sprintf("Watching %s for changes (Ctrl+C to stop)", cc.Cfg.Source.CSV))
	return watch.File(ctx, cc.Cfg.Source.CSV, watch.DefaultDebounce, cc.Logger, func(ctx context.Context) {
		if err := detectOnce(ctx, cc, p); err != nil {
			cc.Renderer.Error(err.Error())
		}
	})
}

// detectOnce runs one detection and prints its results.
func detectOnce(ctx context.Context, cc *CommandContext, p *pipeline.Pipeline) error {
	res, err := p.Detect(ctx)
	if err != nil {
		return err
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(res)
	}

	r.Header(1, fmt.Sprintf("Detection over %d regions", len(res.Series)))
	renderDetections(r, res.Detections)
	r.Println("")
	renderEvaluations(r, res.Evaluations)
	runFooter(r, res.Run)
	return nil
}
