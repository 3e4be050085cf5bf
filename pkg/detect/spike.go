package detect

import (
	"time"

	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/core"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/series"
)

// MinSpikePoints is the shortest series the spike detector will examine.
const MinSpikePoints = 5

// SpikeUp returns the weeks whose value is strictly above the qUp quantile of
// the series. Missing values are dropped first; short series yield nothing.
func SpikeUp(s core.Series, qUp float64) []time.Time {
	s = series.DropMissing(s)
	if s.Len() < MinSpikePoints {
		return nil
	}

	th := series.Quantile(s.Values(), qUp)
	var out []time.Time
	for _, p := range s.Points {
		if p.Value > th {
			out = append(out, p.Week)
		}
	}
	return out
}
