package core

import (
	"math"
	"time"
)

// Point is one weekly observation. A missing value is NaN.
type Point struct {
	Week  time.Time `json:"week"`
	Value float64   `json:"value"`
}

// Missing reports whether the point carries no observation.
func (p Point) Missing() bool {
	return math.IsNaN(p.Value)
}

// Series is a weekly mortality series for a single region, ordered by week.
type Series struct {
	Region string  `json:"region"`
	Points []Point `json:"points"`
}

// Len returns the number of points, missing ones included.
func (s Series) Len() int {
	return len(s.Points)
}

// Values returns the raw values in week order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

