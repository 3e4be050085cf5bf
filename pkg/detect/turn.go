package detect

import (
	"math"
	"time"

	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/core"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/series"
)

// thresholds are the quantile cut-offs derived from one series.
type thresholds struct {
	h     float64 // minimum |Δg| for a turn
	flat  float64 // |μ| at or below this is flat
	trend float64 // |μ| at or above this is a trend
}

func (th thresholds) label(mu float64) core.Trend {
	switch {
	case math.Abs(mu) <= th.flat:
		return core.TrendFlat
	case mu >= th.trend:
		return core.TrendUp
	case mu <= -th.trend:
		return core.TrendDown
	default:
		return core.TrendFlat
	}
}

// TurnPatterns finds local turning points where the series changes sign with
// a large step, and classifies them by the mean trend of the WPre points
// before and the WPost points after.
//
// The returned map only holds patterns that occurred; each list is in week order.
func TurnPatterns(s core.Series, p core.TurnParams) map[core.Pattern][]time.Time {
	labels := make(map[core.Pattern][]time.Time)

	s = series.DropMissing(s)
	n := s.Len()
	if n < p.MinTurnPoints() {
		return labels
	}

	g := s.Values()
	h := series.Diff(g)
	absG := series.Abs(g)

	th := thresholds{
		h:     math.Inf(1),
		flat:  series.Quantile(absG, p.QFlat),
		trend: series.Quantile(absG, p.QTrend),
	}
	if finite := series.Finite(h); len(finite) > 0 {
		th.h = series.Quantile(series.Abs(finite), p.QH)
	}
	th.trend = math.Max(th.trend, th.flat*1.1)

	for t := 1; t < n-1; t++ {
		gPrev, gCur, hCur := g[t-1], g[t], h[t]

		if gPrev*gCur > 0 || math.Abs(hCur) < th.h {
			continue
		}

		pre := series.Mean(g[max(0, t-p.WPre):t])
		post := series.Mean(g[t+1 : min(n, t+1+p.WPost)])

		pattern, ok := core.PatternFor(th.label(pre), th.label(post))
		if !ok {
			continue
		}
		labels[pattern] = append(labels[pattern], s.Points[t].Week)
	}

	return labels
}
