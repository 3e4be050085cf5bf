package core

import (
	"errors"
	"fmt"
	"math"
)

// Transform names a preprocessing step applied to a series before detection.
type Transform string

// Supported transforms.
const (
	TransformNone      Transform = "none"
	TransformDiff      Transform = "diff"
	TransformPctChange Transform = "pct_change"
	TransformLogGrowth Transform = "log_growth"
)

// Valid reports whether the transform is known. The empty transform means none.
func (t Transform) Valid() bool {
	switch t {
	case "", TransformNone, TransformDiff, TransformPctChange, TransformLogGrowth:
		return true
	}
	return false
}

// SpikeParams configures the upward spike detector.
type SpikeParams struct {
	QUp       float64   `json:"q_up" koanf:"q_up"`
	Transform Transform `json:"transform" koanf:"transform"`
}

// TurnParams configures the turn pattern detector.
type TurnParams struct {
	WPre      int       `json:"w_pre" koanf:"w_pre"`
	WPost     int       `json:"w_post" koanf:"w_post"`
	QH        float64   `json:"q_h" koanf:"q_h"`
	QFlat     float64   `json:"q_flat" koanf:"q_flat"`
	QTrend    float64   `json:"q_trend" koanf:"q_trend"`
	Transform Transform `json:"transform" koanf:"transform"`
}

// Params bundles both detectors' settings.
type Params struct {
	Spike SpikeParams `json:"spike" koanf:"spike"`
	Turn  TurnParams  `json:"turn" koanf:"turn"`
}

// Default detector settings.
const (
	DefaultQUp    = 0.99
	DefaultWPre   = 3
	DefaultWPost  = 3
	DefaultQH     = 0.9
	DefaultQFlat  = 0.2
	DefaultQTrend = 0.7
)

// DefaultParams returns the stock detector configuration.
func DefaultParams() Params {
	return Params{
		Spike: SpikeParams{QUp: DefaultQUp, Transform: TransformNone},
		Turn: TurnParams{
			WPre:      DefaultWPre,
			WPost:     DefaultWPost,
			QH:        DefaultQH,
			QFlat:     DefaultQFlat,
			QTrend:    DefaultQTrend,
			Transform: TransformLogGrowth,
		},
	}
}

// ErrInvalidParams is wrapped by every parameter validation failure.
var ErrInvalidParams = errors.New("invalid detector parameters")

// Validate checks the spike parameters.
func (p SpikeParams) Validate() error {
	if err := checkQuantile("spike.q_up", p.QUp); err != nil {
		return err
	}
	if !p.Transform.Valid() {
		return fmt.Errorf("%w: spike.transform %q", ErrInvalidParams, p.Transform)
	}
	return nil
}

// Validate checks the turn parameters.
func (p TurnParams) Validate() error {
	if p.WPre < 1 {
		return fmt.Errorf("%w: turn.w_pre must be >= 1, got %d", ErrInvalidParams, p.WPre)
	}
	if p.WPost < 1 {
		return fmt.Errorf("%w: turn.w_post must be >= 1, got %d", ErrInvalidParams, p.WPost)
	}
	if err := checkQuantile("turn.q_h", p.QH); err != nil {
		return err
	}
	if err := checkQuantile("turn.q_flat", p.QFlat); err != nil {
		return err
	}
	if err := checkQuantile("turn.q_trend", p.QTrend); err != nil {
		return err
	}
	if !p.Transform.Valid() {
		return fmt.Errorf("%w: turn.transform %q", ErrInvalidParams, p.Transform)
	}
	return nil
}

// Validate checks both detectors' parameters.
func (p Params) Validate() error {
	if err := p.Spike.Validate(); err != nil {
		return err
	}
	return p.Turn.Validate()
}

// MinTurnPoints is the shortest series the turn detector will examine.
func (p TurnParams) MinTurnPoints() int {
	return p.WPre + p.WPost + 4
}

func checkQuantile(name string, q float64) error {
	if math.IsNaN(q) || q < 0 || q > 1 {
		return fmt.Errorf("%w: %s must be within [0, 1], got %v", ErrInvalidParams, name, q)
	}
	return nil
}
