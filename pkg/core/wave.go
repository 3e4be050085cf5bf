package core

import "time"

// Wave is a documented period of elevated mortality. Start and End are inclusive.
type Wave struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Covers reports whether t falls inside the wave widened by tolerance on both sides.
func (w Wave) Covers(t time.Time, tolerance time.Duration) bool {
	return !t.Before(w.Start.Add(-tolerance)) && !t.After(w.End.Add(tolerance))
}

// Evaluation summarises how a set of detections lines up with a wave catalog.
type Evaluation struct {
	Region     string  `json:"region"`
	Detections int     `json:"detections"`
	Aligned    int     `json:"aligned"`
	WavesHit   int     `json:"waves_hit"`
	WavesTotal int     `json:"waves_total"`
	Precision  float64 `json:"precision"`
	Recall     float64 `json:"recall"`
	F1         float64 `json:"f1"`
}

// PooledRegion is the region name used for an evaluation over all regions.
const PooledRegion = "*"
