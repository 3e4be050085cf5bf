package waves

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrazil(t *testing.T) {
	c := Brazil()
	require.NoError(t, c.Validate())
	assert.Equal(t, "BR", c.Country)
	assert.Len(t, c.Waves, 4)

	for i := 1; i < len(c.Waves); i++ {
		assert.True(t, c.Waves[i-1].End.Before(c.Waves[i].Start), "waves must not overlap")
	}
}

func TestCatalog_Find(t *testing.T) {
	c := Brazil()
	week := 7 * 24 * time.Hour

	tests := []struct {
		name      string
		t         time.Time
		tolerance time.Duration
		wantWave  string
		wantOK    bool
	}{
		{"inside first wave", date(2020, 6, 7), 0, "wave-1", true},
		{"on start boundary", date(2021, 12, 26), 0, "wave-3", true},
		{"on end boundary", date(2022, 8, 27), 0, "wave-4", true},
		{"between waves", date(2021, 10, 3), 0, "", false},
		{"before catalog", date(2020, 1, 5), 0, "", false},
		{"inside tolerance", date(2021, 12, 12), 2 * week, "wave-3", true},
		{"outside tolerance", date(2021, 12, 5), 2 * week, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, ok := c.Find(tt.t, tt.tolerance)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantWave, w.Name)
		})
	}
}

func TestParse(t *testing.T) {
	data := []byte(`country: BR-SP
waves:
  - name: second
    start: 2021-01-03
    end: 2021-06-26
  - name: first
    start: 2020-04-05
    end: 2020-09-26
`)
	c, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "BR-SP", c.Country)
	require.Len(t, c.Waves, 2)
	assert.Equal(t, "first", c.Waves[0].Name, "waves are sorted by start")
	assert.Equal(t, date(2020, 4, 5), c.Waves[0].Start)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		errSubstr string
	}{
		{"bad yaml", "waves: [", "failed to parse"},
		{"no waves", "country: BR\n", "no waves"},
		{"bad start", "waves:\n  - {name: a, start: 2020-13-01, end: 2020-12-01}\n", "invalid start"},
		{"bad end", "waves:\n  - {name: a, start: 2020-01-01, end: soon}\n", "invalid end"},
		{"missing name", "waves:\n  - {start: 2020-01-01, end: 2020-02-01}\n", "name is required"},
		{"end before start", "waves:\n  - {name: a, start: 2020-03-01, end: 2020-02-01}\n", "before start"},
		{"duplicate", "waves:\n  - {name: a, start: 2020-01-01, end: 2020-02-01}\n  - {name: a, start: 2020-03-01, end: 2020-04-01}\n", "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestLoad(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Brazil(), c)

	data, err := Marshal(Brazil())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "waves.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Brazil(), loaded)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read wave catalog")
}
