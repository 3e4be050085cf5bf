// Package tuning searches detector hyperparameters for the combination whose
// detections best line up with a wave catalog.
//
// Every grid combination is a trial. A trial runs both detectors over every
// regional series, evaluates the pooled detections against the catalog and
// scores the evaluation with an objective expression. Trials run concurrently
// on a bounded worker pool.
package tuning

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AmalBilal1/covid19-anomaly-detection/internal/objective"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/core"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/detect"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/evaluate"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/waves"
)

// Tuner runs grid searches.
type Tuner struct {
	Catalog   *waves.Catalog
	Tolerance time.Duration
	Objective *objective.Objective
	Workers   int // <= 0 uses GOMAXPROCS
	Top       int // <= 0 keeps every trial
	Logger    *slog.Logger
}

// Run evaluates every combination of grid over base and returns the trials
// ranked by score.
func (t *Tuner) Run(ctx context.Context, series []core.Series, grid Grid, base core.Params) ([]core.Trial, error) {
	if t.Catalog == nil {
		return nil, fmt.Errorf("tuner requires a wave catalog")
	}
	obj := t.Objective
	if obj == nil {
		var err error
		if obj, err = objective.New(objective.Default); err != nil {
			return nil, err
		}
	}
	logger := t.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	combos, err := grid.Expand(base)
	if err != nil {
		return nil, err
	}

	workers := t.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	logger.Debug("starting grid search",
		slog.Int("trials", len(combos)),
		slog.Int("workers", workers),
		slog.String("objective", obj.String()))

	trials := make([]core.Trial, len(combos))

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, p := range combos {
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}
			trial, err := t.trial(series, p, obj)
			if err != nil {
				return fmt.Errorf("trial %d: %w", i, err)
			}
			trials[i] = trial
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	Rank(trials)
	if t.Top > 0 && len(trials) > t.Top {
		trials = trials[:t.Top]
	}

	if len(trials) > 0 {
		logger.Debug("grid search finished",
			slog.Float64("best_score", trials[0].Score),
			slog.Int("best_detections", trials[0].Detections))
	}
	return trials, nil
}

func (t *Tuner) trial(series []core.Series, p core.Params, obj *objective.Objective) (core.Trial, error) {
	d, err := detect.New(p)
	if err != nil {
		return core.Trial{}, err
	}

	var all []core.Detection
	for _, s := range series {
		ds, err := d.Run(s)
		if err != nil {
			return core.Trial{}, fmt.Errorf("region %s: %w", s.Region, err)
		}
		all = append(all, ds...)
	}

	ev := evaluate.Evaluate(all, t.Catalog, t.Tolerance)
	score, err := obj.Score(ev)
	if err != nil {
		return core.Trial{}, err
	}

	return core.Trial{
		Params:     p,
		Score:      score,
		Precision:  ev.Precision,
		Recall:     ev.Recall,
		F1:         ev.F1,
		Detections: ev.Detections,
	}, nil
}

// Rank sorts trials best first and numbers them from 1. Ties prefer higher
// recall, then fewer detections; remaining ties keep their input order.
func Rank(trials []core.Trial) {
	slices.SortStableFunc(trials, func(a, b core.Trial) int {
		return cmp.Or(
			cmp.Compare(b.Score, a.Score),
			cmp.Compare(b.Recall, a.Recall),
			cmp.Compare(a.Detections, b.Detections),
		)
	})
	for i := range trials {
		trials[i].Rank = i + 1
	}
}
