package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/core"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/detect"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/evaluate"
)

// DetectResult is the outcome of a detect run. Series is left out of JSON
// since missing weeks are NaN.
type DetectResult struct {
	Run         *core.Run         `json:"run"`
	Series      []core.Series     `json:"-"`
	Detections  []core.Detection  `json:"detections"`
	Evaluations []core.Evaluation `json:"evaluations"`
}

// Detect loads the series, runs both detectors on every region, evaluates
// the detections against the catalog and persists everything under a new run.
func (p *Pipeline) Detect(ctx context.Context) (*DetectResult, error) {
	p.logger.Info("starting detect run", "source", p.source.Describe())

	run, err := p.store.CreateRun(core.CommandDetect, p.source.Describe(), p.params)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	p.logger.Debug("created run", "run_id", run.ID)

	res := &DetectResult{Run: run}
	runErr := p.detect(ctx, res)
	res.Run = p.finish(run, runErr)
	return res, runErr
}

func (p *Pipeline) detect(ctx context.Context, res *DetectResult) error {
	series, err := p.LoadSeries(ctx)
	if err != nil {
		return err
	}
	res.Series = series

	d, err := detect.New(p.params)
	if err != nil {
		return err
	}

	perRegion := make([][]core.Detection, len(series))
	eg, egctx := errgroup.WithContext(ctx)
	for i, s := range series {
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}
			ds, err := d.Run(s)
			if err != nil {
				return fmt.Errorf("region %s: %w", s.Region, err)
			}
			perRegion[i] = ds
			p.logger.Debug("detected", "region", s.Region, "points", s.Len(), "detections", len(ds))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	regions := make([]string, len(series))
	for i, s := range series {
		regions[i] = s.Region
		res.Detections = append(res.Detections, perRegion[i]...)
	}
	res.Evaluations = evaluate.ByRegion(res.Detections, regions, p.catalog, p.tolerance)

	if err := p.store.SaveDetections(res.Run.ID, res.Detections); err != nil {
		return fmt.Errorf("failed to save detections: %w", err)
	}
	if err := p.store.SaveEvaluations(res.Run.ID, res.Evaluations); err != nil {
		return fmt.Errorf("failed to save evaluations: %w", err)
	}
	return nil
}
