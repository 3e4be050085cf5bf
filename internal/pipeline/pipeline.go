// Package pipeline wires sources, detectors, evaluation and state together.
// Every Detect or Tune call is recorded as a run in the state store, and the
// run is marked failed with the error message when any step fails.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/core"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/evaluate"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/source"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/waves"
)

// Pipeline orchestrates detect and tune runs.
type Pipeline struct {
	store     core.Store
	source    core.SourceConfig
	params    core.Params
	catalog   *waves.Catalog
	tolerance time.Duration
	logger    *slog.Logger
}

// Config holds pipeline configuration.
type Config struct {
	// Source describes where weekly series are loaded from.
	Source core.SourceConfig
	// Params are the detector settings for Detect and the base for Tune.
	Params core.Params
	// Catalog is the reference wave catalog (Brazil when nil).
	Catalog *waves.Catalog
	// ToleranceWeeks widens every wave window on both sides.
	ToleranceWeeks int
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates a pipeline that records runs in store.
func New(cfg Config, store core.Store) (*Pipeline, error) {
	if store == nil {
		return nil, fmt.Errorf("pipeline requires a state store")
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}
	if cfg.ToleranceWeeks < 0 {
		return nil, fmt.Errorf("tolerance must be >= 0 weeks, got %d", cfg.ToleranceWeeks)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = waves.Brazil()
	}

	return &Pipeline{
		store:     store,
		source:    cfg.Source,
		params:    cfg.Params,
		catalog:   catalog,
		tolerance: time.Duration(cfg.ToleranceWeeks) * evaluate.Week,
		logger:    logger,
	}, nil
}

// Catalog returns the wave catalog used for evaluation.
func (p *Pipeline) Catalog() *waves.Catalog {
	return p.catalog
}

// LoadSeries connects to the configured source and loads every regional
// series. The connection is closed before returning.
func (p *Pipeline) LoadSeries(ctx context.Context) ([]core.Series, error) {
	src, err := source.New(p.source, p.logger)
	if err != nil {
		return nil, err
	}
	if err := src.Connect(ctx, p.source); err != nil {
		return nil, fmt.Errorf("failed to connect to source: %w", err)
	}
	defer func() { _ = src.Close() }()

	series, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load series: %w", err)
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("source %s returned no series", p.source.Describe())
	}
	return series, nil
}

// finish records the outcome of a run and returns the stored copy.
func (p *Pipeline) finish(run *core.Run, runErr error) *core.Run {
	status, msg := core.RunStatusCompleted, ""
	if runErr != nil {
		status, msg = core.RunStatusFailed, runErr.Error()
		p.logger.Info("run failed", "run_id", run.ID, "error", msg)
	} else {
		p.logger.Info("run completed", "run_id", run.ID)
	}

	if err := p.store.CompleteRun(run.ID, status, msg); err != nil {
		p.logger.Error("failed to record run status; run left as running",
			"run_id", run.ID, "status", status, "error", err)
		return run
	}

	if stored, err := p.store.GetRun(run.ID); err == nil {
		return stored
	}
	return run
}
