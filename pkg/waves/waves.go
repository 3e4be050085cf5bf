// Package waves holds catalogs of pandemic wave periods and loads them from YAML.
package waves

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/core"
)

// DateLayout is the date format used in catalog files.
const DateLayout = "2006-01-02"

// Catalog is an ordered set of waves for one country.
type Catalog struct {
	Country string      `json:"country"`
	Waves   []core.Wave `json:"waves"`
}

// Brazil returns the built-in catalog of Brazil's four COVID-19 mortality waves.
func Brazil() *Catalog {
	return &Catalog{
		Country: "BR",
		Waves: []core.Wave{
			{Name: "wave-1", Start: date(2020, 3, 15), End: date(2020, 10, 31)},
			{Name: "wave-2", Start: date(2020, 11, 1), End: date(2021, 7, 31)},
			{Name: "wave-3", Start: date(2021, 12, 26), End: date(2022, 4, 2)},
			{Name: "wave-4", Start: date(2022, 5, 29), End: date(2022, 8, 27)},
		},
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Find returns the first wave covering t, widened by tolerance on both sides.
func (c *Catalog) Find(t time.Time, tolerance time.Duration) (core.Wave, bool) {
	for _, w := range c.Waves {
		if w.Covers(t, tolerance) {
			return w, true
		}
	}
	return core.Wave{}, false
}

// Validate checks names and date ranges and sorts waves by start date.
func (c *Catalog) Validate() error {
	if len(c.Waves) == 0 {
		return errors.New("catalog has no waves")
	}
	seen := make(map[string]bool, len(c.Waves))
	for i, w := range c.Waves {
		if w.Name == "" {
			return fmt.Errorf("wave %d: name is required", i)
		}
		if seen[w.Name] {
			return fmt.Errorf("wave %q: duplicate name", w.Name)
		}
		seen[w.Name] = true
		if w.End.Before(w.Start) {
			return fmt.Errorf("wave %q: end %s is before start %s", w.Name, w.End.Format(DateLayout), w.Start.Format(DateLayout))
		}
	}
	slices.SortStableFunc(c.Waves, func(a, b core.Wave) int { return a.Start.Compare(b.Start) })
	return nil
}

type fileCatalog struct {
	Country string     `yaml:"country"`
	Waves   []fileWave `yaml:"waves"`
}

type fileWave struct {
	Name  string `yaml:"name"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Parse decodes a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var fc fileCatalog
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse wave catalog: %w", err)
	}

	c := &Catalog{Country: fc.Country, Waves: make([]core.Wave, 0, len(fc.Waves))}
	for i, fw := range fc.Waves {
		start, err := time.Parse(DateLayout, fw.Start)
		if err != nil {
			return nil, fmt.Errorf("wave %d (%s): invalid start: %w", i, fw.Name, err)
		}
		end, err := time.Parse(DateLayout, fw.End)
		if err != nil {
			return nil, fmt.Errorf("wave %d (%s): invalid end: %w", i, fw.Name, err)
		}
		c.Waves = append(c.Waves, core.Wave{Name: fw.Name, Start: start, End: end})
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFile reads a YAML catalog from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read wave catalog: %w", err)
	}
	return Parse(data)
}

// Load returns the catalog at path, or the built-in Brazil catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Brazil(), nil
	}
	return LoadFile(path)
}

// Marshal encodes a catalog in the file format accepted by Parse.
func Marshal(c *Catalog) ([]byte, error) {
	fc := fileCatalog{Country: c.Country}
	for _, w := range c.Waves {
		fc.Waves = append(fc.Waves, fileWave{
			Name:  w.Name,
			Start: w.Start.Format(DateLayout),
			End:   w.End.Format(DateLayout),
		})
	}
	return yaml.Marshal(fc)
}
