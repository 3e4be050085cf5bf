package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/AmalBilal1/covid19-anomaly-detection/internal/cli/output"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/core"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/waves"
)

// Table renderers shared by commands. Each one prints a header and a table
// in text or markdown; JSON output is handled by the commands themselves.

const weekLayout = waves.DateLayout

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func renderDetections(r *output.Renderer, ds []core.Detection) {
	r.Header(2, fmt.Sprintf("Detections (%d)", len(ds)))

	rows := make([][]string, 0, len(ds))
	for _, d := range ds {
		pattern := "-"
		if d.Pattern != "" {
			pattern = output.Title(string(d.Pattern))
		}
		rows = append(rows, []string{
			d.Region,
			d.Week.Format(weekLayout),
			output.Title(string(d.Kind)),
			pattern,
			formatValue(d.Value),
		})
	}
	r.Table([]string{"Region", "Week", "Kind", "Pattern", "Value"}, rows)
}

func renderEvaluations(r *output.Renderer, evals []core.Evaluation) {
	r.Header(2, "Evaluation")

	rows := make([][]string, 0, len(evals))
	for _, ev := range evals {
		region := ev.Region
		if region == core.PooledRegion {
			region = "all regions"
		}
		rows = append(rows, []string{
			region,
			strconv.Itoa(ev.Detections),
			strconv.Itoa(ev.Aligned),
			fmt.Sprintf("%d/%d", ev.WavesHit, ev.WavesTotal),
			formatScore(ev.Precision),
			formatScore(ev.Recall),
			formatScore(ev.F1),
		})
	}
	r.Table([]string{"Region", "Detections", "Aligned", "Waves", "Precision", "Recall", "F1"}, rows)
}

func renderTrials(r *output.Renderer, trials []core.Trial) {
	r.Header(2, fmt.Sprintf("Top %d trials", len(trials)))

	rows := make([][]string, 0, len(trials))
	for _, tr := range trials {
		p := tr.Params
		rows = append(rows, []string{
			strconv.Itoa(tr.Rank),
			formatScore(tr.Score),
			formatScore(tr.Precision),
			formatScore(tr.Recall),
			formatScore(tr.F1),
			strconv.Itoa(tr.Detections),
			formatValue(p.Spike.QUp),
			fmt.Sprintf("%d/%d", p.Turn.WPre, p.Turn.WPost),
			formatValue(p.Turn.QH),
			formatValue(p.Turn.QFlat),
			formatValue(p.Turn.QTrend),
		})
	}
	r.Table([]string{"Rank", "Score", "Precision", "Recall", "F1", "Detections", "q_up", "w_pre/w_post", "q_h", "q_flat", "q_trend"}, rows)
}

func renderRuns(r *output.Renderer, runs []*core.Run) {
	r.Header(2, fmt.Sprintf("Runs (%d)", len(runs)))

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			run.Command,
			string(run.Status),
			formatTime(&run.StartedAt),
			formatTime(run.CompletedAt),
			run.Source,
			run.Error,
		})
	}
	r.Table([]string{"ID", "Command", "Status", "Started", "Completed", "Source", "Error"}, rows)
}

func renderWaves(r *output.Renderer, c *waves.Catalog) {
	r.Header(2, fmt.Sprintf("Waves (%s)", c.Country))

	rows := make([][]string, 0, len(c.Waves))
	for _, w := range c.Waves {
		weeks := int(w.End.Sub(w.Start).Hours()/24)/7 + 1
		rows = append(rows, []string{
			w.Name,
			w.Start.Format(weekLayout),
			w.End.Format(weekLayout),
			strconv.Itoa(weeks),
		})
	}
	r.Table([]string{"Wave", "Start", "End", "Weeks"}, rows)
}

// runFooter prints a muted line identifying the run.
func runFooter(r *output.Renderer, run *core.Run) {
	if run == nil {
		return
	}
	r.Println("")
	r.Muted(fmt.Sprintf("Run %s (%s) from %s", run.ID, run.Status, run.Source))
}
