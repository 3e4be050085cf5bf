package tuning

import (
	"errors"

	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/core"
)

// ErrEmptyGrid is returned when a grid yields no valid parameter combination.
var ErrEmptyGrid = errors.New("tuning grid has no valid combinations")

// Grid lists candidate values per detector parameter. An empty list keeps the
// base value for that parameter.
type Grid struct {
	QUp             []float64        `koanf:"q_up" json:"q_up,omitempty"`
	SpikeTransforms []core.Transform `koanf:"spike_transform" json:"spike_transform,omitempty"`
	WPre            []int            `koanf:"w_pre" json:"w_pre,omitempty"`
	WPost           []int            `koanf:"w_post" json:"w_post,omitempty"`
	QH              []float64        `koanf:"q_h" json:"q_h,omitempty"`
	QFlat           []float64        `koanf:"q_flat" json:"q_flat,omitempty"`
	QTrend          []float64        `koanf:"q_trend" json:"q_trend,omitempty"`
	TurnTransforms  []core.Transform `koanf:"turn_transform" json:"turn_transform,omitempty"`
}

// DefaultGrid returns the search space used when none is configured.
func DefaultGrid() Grid {
	return Grid{
		QUp:    []float64{0.95, 0.975, 0.99},
		WPre:   []int{2, 3, 4},
		WPost:  []int{2, 3, 4},
		QH:     []float64{0.8, 0.9, 0.95},
		QFlat:  []float64{0.1, 0.2, 0.3},
		QTrend: []float64{0.6, 0.7, 0.8},
	}
}

// IsEmpty reports whether no parameter has candidates.
func (g Grid) IsEmpty() bool {
	return len(g.QUp) == 0 && len(g.SpikeTransforms) == 0 &&
		len(g.WPre) == 0 && len(g.WPost) == 0 &&
		len(g.QH) == 0 && len(g.QFlat) == 0 && len(g.QTrend) == 0 &&
		len(g.TurnTransforms) == 0
}

// Size returns the number of combinations before validation.
func (g Grid) Size() int {
	n := 1
	for _, l := range []int{
		len(g.QUp), len(g.SpikeTransforms), len(g.WPre), len(g.WPost),
		len(g.QH), len(g.QFlat), len(g.QTrend), len(g.TurnTransforms),
	} {
		n *= max(l, 1)
	}
	return n
}

// Expand returns every valid combination of the grid applied over base, in a
// stable order. Invalid combinations are skipped.
func (g Grid) Expand(base core.Params) ([]core.Params, error) {
	if g.IsEmpty() {
		return nil, ErrEmptyGrid
	}

	out := make([]core.Params, 0, g.Size())
	for _, qUp := range orBase(g.QUp, base.Spike.QUp) {
		for _, st := range orBase(g.SpikeTransforms, base.Spike.Transform) {
			for _, wPre := range orBase(g.WPre, base.Turn.WPre) {
				for _, wPost := range orBase(g.WPost, base.Turn.WPost) {
					for _, qH := range orBase(g.QH, base.Turn.QH) {
						for _, qFlat := range orBase(g.QFlat, base.Turn.QFlat) {
							for _, qTrend := range orBase(g.QTrend, base.Turn.QTrend) {
								for _, tt := range orBase(g.TurnTransforms, base.Turn.Transform) {
									p := core.Params{
										Spike: core.SpikeParams{QUp: qUp, Transform: st},
										Turn: core.TurnParams{
											WPre: wPre, WPost: wPost,
											QH: qH, QFlat: qFlat, QTrend: qTrend,
											Transform: tt,
										},
									}
									if p.Validate() != nil {
										continue
									}
									out = append(out, p)
								}
							}
						}
					}
				}
			}
		}
	}

	if len(out) == 0 {
		return nil, ErrEmptyGrid
	}
	return out, nil
}

func orBase[T any](values []T, base T) []T {
	if len(values) == 0 {
		return []T{base}
	}
	return values
}
