package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"
)

// FixtureStart is the first day of the synthetic mortality fixture. It is a
// Monday so fixture weeks line up with date_trunc('week', ...).
var FixtureStart = time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC)

// MortalityCSV returns daily observations for the given regions. Each region
// reports one death per day except during its peak weeks, when it reports
// peak deaths per day. Weeks are counted from FixtureStart.
func MortalityCSV(weeks int, peaks map[string][]int, peak int) string {
	var b strings.Builder
	b.WriteString("date,region,deaths\n")

	regions := make([]string, 0, len(peaks))
	for r := range peaks {
		regions = append(regions, r)
	}
	sort.Strings(regions)

	for _, region := range regions {
		inPeak := make(map[int]bool)
		for _, w := range peaks[region] {
			inPeak[w] = true
		}
		for d := 0; d < weeks*7; d++ {
			deaths := 1
			if inPeak[d/7] {
				deaths = peak
			}
			fmt.Fprintf(&b, "%s,%s,%d\n", FixtureStart.AddDate(0, 0, d).Format("2006-01-02"), region, deaths)
		}
	}
	return b.String()
}

// WriteFile writes content to name inside a fresh temp dir and returns the path.
func WriteFile(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}
