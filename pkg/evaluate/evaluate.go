// Package evaluate scores detections against a catalog of pandemic waves.
//
// A detection is aligned when its week falls inside a wave (widened by the
// tolerance). Precision is the aligned share of detections, recall is the
// share of waves hit by at least one detection.
package evaluate

import (
	"sort"
	"time"

	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/core"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/waves"
)

// Week is the tolerance unit used on the command line.
const Week = 7 * 24 * time.Hour

// Evaluate scores one set of detections. The region of the result is left empty.
func Evaluate(detections []core.Detection, catalog *waves.Catalog, tolerance time.Duration) core.Evaluation {
	ev := core.Evaluation{
		Detections: len(detections),
		WavesTotal: len(catalog.Waves),
	}

	hit := make(map[string]bool, len(catalog.Waves))
	for _, d := range detections {
		w, ok := catalog.Find(d.Week, tolerance)
		if !ok {
			continue
		}
		ev.Aligned++
		hit[w.Name] = true
	}
	ev.WavesHit = len(hit)

	if ev.Detections > 0 {
		ev.Precision = float64(ev.Aligned) / float64(ev.Detections)
	}
	if ev.WavesTotal > 0 {
		ev.Recall = float64(ev.WavesHit) / float64(ev.WavesTotal)
	}
	if ev.Precision+ev.Recall > 0 {
		ev.F1 = 2 * ev.Precision * ev.Recall / (ev.Precision + ev.Recall)
	}
	return ev
}

// ByRegion evaluates each region separately, sorted by region name, followed
// by a pooled row over every detection (region core.PooledRegion).
// Regions listed in regions but without detections get an empty row.
func ByRegion(detections []core.Detection, regions []string, catalog *waves.Catalog, tolerance time.Duration) []core.Evaluation {
	grouped := make(map[string][]core.Detection)
	for _, r := range regions {
		grouped[r] = nil
	}
	for _, d := range detections {
		grouped[d.Region] = append(grouped[d.Region], d)
	}

	names := make([]string, 0, len(grouped))
	for r := range grouped {
		names = append(names, r)
	}
	sort.Strings(names)

	out := make([]core.Evaluation, 0, len(names)+1)
	for _, r := range names {
		ev := Evaluate(grouped[r], catalog, tolerance)
		ev.Region = r
		out = append(out, ev)
	}

	pooled := Evaluate(detections, catalog, tolerance)
	pooled.Region = core.PooledRegion
	return append(out, pooled)
}

// Pooled returns the pooled row of a ByRegion result.
func Pooled(evals []core.Evaluation) (core.Evaluation, bool) {
	for _, ev := range evals {
		if ev.Region == core.PooledRegion {
			return ev, true
		}
	}
	return core.Evaluation{}, false
}
