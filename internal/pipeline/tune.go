package pipeline

import (
	"context"
	"fmt"

	"github.com/AmalBilal1/covid19-anomaly-detection/internal/objective"
	"github.com/AmalBilal1/covid19-anomaly-detection/internal/tuning"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/core"
)

// TuneOptions controls a grid search.
type TuneOptions struct {
	Grid      tuning.Grid
	Objective string // Starlark expression; empty uses objective.Default
	Workers   int
	Top       int
}

// TuneResult is the outcome of a tune run.
type TuneResult struct {
	Run    *core.Run    `json:"run"`
	Trials []core.Trial `json:"trials"`
}

// Tune loads the series once and runs a grid search around the configured
// parameters. Ranked trials are persisted under a new run.
func (p *Pipeline) Tune(ctx context.Context, opts TuneOptions) (*TuneResult, error) {
	expr := opts.Objective
	if expr == "" {
		expr = objective.Default
	}
	obj, err := objective.New(expr)
	if err != nil {
		return nil, err
	}
	if opts.Grid.IsEmpty() {
		return nil, tuning.ErrEmptyGrid
	}

	p.logger.Info("starting tune run", "source", p.source.Describe(), "combinations", opts.Grid.Size())

	run, err := p.store.CreateRun(core.CommandTune, p.source.Describe(), p.params)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	res := &TuneResult{Run: run}
	runErr := p.tune(ctx, res, obj, opts)
	res.Run = p.finish(run, runErr)
	return res, runErr
}

func (p *Pipeline) tune(ctx context.Context, res *TuneResult, obj *objective.Objective, opts TuneOptions) error {
	series, err := p.LoadSeries(ctx)
	if err != nil {
		return err
	}

	tuner := &tuning.Tuner{
		Catalog:   p.catalog,
		Tolerance: p.tolerance,
		Objective: obj,
		Workers:   opts.Workers,
		Top:       opts.Top,
		Logger:    p.logger,
	}
	trials, err := tuner.Run(ctx, series, opts.Grid, p.params)
	if err != nil {
		return err
	}
	res.Trials = trials

	if err := p.store.SaveTrials(res.Run.ID, trials); err != nil {
		return fmt.Errorf("failed to save trials: %w", err)
	}
	return nil
}
