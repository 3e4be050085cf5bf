package core

import "time"

// DetectionKind identifies which detector produced a detection.
type DetectionKind string

// Detection kinds.
const (
	KindSpikeUp DetectionKind = "spike_up"
	KindTurn    DetectionKind = "turn"
)

// Trend is the direction label given to a local mean.
type Trend string

// Trend labels.
const (
	TrendFlat Trend = "flat"
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
)

// Pattern is a classified turning point: the trend before and after a turn.
type Pattern string

// Reported turn patterns. Other trend combinations are never reported.
const (
	PatternDownTurnFlat Pattern = "down_turn_flat"
	PatternFlatTurnDown Pattern = "flat_turn_down"
	PatternFlatTurnUp   Pattern = "flat_turn_up"
	PatternUpTurnFlat   Pattern = "up_turn_flat"
)

// Patterns lists every reported pattern in display order.
func Patterns() []Pattern {
	return []Pattern{PatternDownTurnFlat, PatternFlatTurnDown, PatternFlatTurnUp, PatternUpTurnFlat}
}

// PatternFor maps a (pre, post) trend pair to a pattern.
// The boolean is false for combinations that are not reported.
func PatternFor(pre, post Trend) (Pattern, bool) {
	switch {
	case pre == TrendDown && post == TrendFlat:
		return PatternDownTurnFlat, true
	case pre == TrendFlat && post == TrendDown:
		return PatternFlatTurnDown, true
	case pre == TrendFlat && post == TrendUp:
		return PatternFlatTurnUp, true
	case pre == TrendUp && post == TrendFlat:
		return PatternUpTurnFlat, true
	}
	return "", false
}

// Detection is a single anomalous week flagged by a detector.
type Detection struct {
	Region  string        `json:"region"`
	Week    time.Time     `json:"week"`
	Kind    DetectionKind `json:"kind"`
	Pattern Pattern       `json:"pattern,omitempty"` // empty for spikes
	Value   float64       `json:"value"`
}
