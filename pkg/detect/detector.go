// Package detect implements the two mortality anomaly detectors: upward
// spikes above a quantile threshold, and classified turning points.
package detect

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/core"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/series"
)

// Detector runs both detectors over a series with a fixed configuration.
type Detector struct {
	Params core.Params
}

// New creates a detector after validating its parameters.
func New(p core.Params) (*Detector, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Detector{Params: p}, nil
}

// Run applies each detector's transform and returns all detections for the
// series, sorted by week and then kind.
func (d *Detector) Run(s core.Series) ([]core.Detection, error) {
	raw := valuesByWeek(s)

	spikeIn, err := series.Apply(s, d.Params.Spike.Transform)
	if err != nil {
		return nil, fmt.Errorf("spike transform: %w", err)
	}
	turnIn, err := series.Apply(s, d.Params.Turn.Transform)
	if err != nil {
		return nil, fmt.Errorf("turn transform: %w", err)
	}

	var out []core.Detection
	for _, week := range SpikeUp(spikeIn, d.Params.Spike.QUp) {
		out = append(out, core.Detection{
			Region: s.Region,
			Week:   week,
			Kind:   core.KindSpikeUp,
			Value:  raw[week],
		})
	}
	turns := TurnPatterns(turnIn, d.Params.Turn)
	for _, pattern := range core.Patterns() {
		for _, week := range turns[pattern] {
			out = append(out, core.Detection{
				Region:  s.Region,
				Week:    week,
				Kind:    core.KindTurn,
				Pattern: pattern,
				Value:   raw[week],
			})
		}
	}

	SortDetections(out)
	return out, nil
}

// SortDetections orders detections by region, week, kind and pattern.
func SortDetections(ds []core.Detection) {
	slices.SortFunc(ds, func(a, b core.Detection) int {
		return cmp.Or(
			cmp.Compare(a.Region, b.Region),
			a.Week.Compare(b.Week),
			cmp.Compare(a.Kind, b.Kind),
			cmp.Compare(a.Pattern, b.Pattern),
		)
	})
}

func valuesByWeek(s core.Series) map[time.Time]float64 {
	m := make(map[time.Time]float64, len(s.Points))
	for _, p := range s.Points {
		m[p.Week] = p.Value
	}
	return m
}
