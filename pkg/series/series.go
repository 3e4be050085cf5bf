// Package series provides the numeric operations the detectors run on
// weekly mortality series: missing-value handling, quantiles, differencing
// and growth transforms.
package series

import (
	"fmt"
	"math"
	"slices"

	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/core"
)

// DropMissing returns a copy of s without NaN points.
func DropMissing(s core.Series) core.Series {
	out := core.Series{Region: s.Region, Points: make([]core.Point, 0, len(s.Points))}
	for _, p := range s.Points {
		if !p.Missing() {
			out.Points = append(out.Points, p)
		}
	}
	return out
}

// Finite returns the non-NaN values of v.
func Finite(v []float64) []float64 {
	out := make([]float64, 0, len(v))
	for _, x := range v {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

// Quantile returns the q-th quantile of v using linear interpolation between
// the two closest ranks. NaN values are ignored; an empty input yields NaN.
func Quantile(v []float64, q float64) float64 {
	sorted := Finite(v)
	if len(sorted) == 0 {
		return math.NaN()
	}
	slices.Sort(sorted)
	q = min(max(q, 0), 1)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Diff returns first differences; the first element is NaN.
func Diff(v []float64) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = v[i] - v[i-1]
	}
	return out
}

// Abs returns |v| element-wise.
func Abs(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = math.Abs(x)
	}
	return out
}

// Mean returns the arithmetic mean of the finite values of v, or NaN.
func Mean(v []float64) float64 {
	var sum float64
	var n int
	for _, x := range v {
		if math.IsNaN(x) {
			continue
		}
		sum += x
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// Apply runs the named transform over s, keeping the week index.
// Differencing transforms leave the first point NaN.
func Apply(s core.Series, t core.Transform) (core.Series, error) {
	var f func(prev, cur float64) float64
	switch t {
	case "", core.TransformNone:
		return s, nil
	case core.TransformDiff:
		f = func(prev, cur float64) float64 { return cur - prev }
	case core.TransformPctChange:
		f = func(prev, cur float64) float64 {
			if prev == 0 {
				return math.NaN()
			}
			return (cur - prev) / prev
		}
	case core.TransformLogGrowth:
		f = func(prev, cur float64) float64 {
			if prev <= 0 || cur <= 0 {
				return math.NaN()
			}
			return math.Log(cur) - math.Log(prev)
		}
	default:
		return core.Series{}, fmt.Errorf("unknown transform %q", t)
	}

	out := core.Series{Region: s.Region, Points: make([]core.Point, len(s.Points))}
	for i, p := range s.Points {
		out.Points[i].Week = p.Week
		if i == 0 {
			out.Points[i].Value = math.NaN()
			continue
		}
		// NaN operands propagate through f
		out.Points[i].Value = f(s.Points[i-1].Value, p.Value)
	}
	return out, nil
}
