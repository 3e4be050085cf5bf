package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmalBilal1/covid19-anomaly-detection/internal/state"
	"github.com/AmalBilal1/covid19-anomaly-detection/internal/testutil"
	"github.com/AmalBilal1/covid19-anomaly-detection/internal/tuning"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/core"

	_ "github.com/AmalBilal1/covid19-anomaly-detection/pkg/sources/duckdb"
)

func setupPipeline(t *testing.T, csvPath string) (*Pipeline, *state.SQLiteStore) {
	t.Helper()

	logger := testutil.NewTestLogger(t)
	store, err := state.OpenAndMigrate(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	p, err := New(Config{
		Source: core.SourceConfig{Type: "duckdb", CSV: csvPath},
		Params: core.DefaultParams(),
		Logger: logger,
	}, store)
	require.NoError(t, err)
	return p, store
}

func fixtureCSV(t *testing.T) string {
	t.Helper()
	csv := testutil.MortalityCSV(20, map[string][]int{"SP": {10}, "RJ": {12}}, 10)
	return testutil.WriteFile(t, "obitos.csv", csv)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Params: core.DefaultParams()}, nil)
	require.Error(t, err)

	store := state.NewSQLiteStore(nil)

	bad := core.DefaultParams()
	bad.Turn.WPre = 0
	_, err = New(Config{Params: bad}, store)
	require.ErrorIs(t, err, core.ErrInvalidParams)

	_, err = New(Config{Params: core.DefaultParams(), ToleranceWeeks: -1}, store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tolerance")

	p, err := New(Config{Params: core.DefaultParams()}, store)
	require.NoError(t, err)
	assert.Equal(t, "BR", p.Catalog().Country)
}

func TestPipeline_Detect(t *testing.T) {
	p, store := setupPipeline(t, fixtureCSV(t))

	res, err := p.Detect(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res.Run)

	assert.Equal(t, core.RunStatusCompleted, res.Run.Status)
	assert.Equal(t, core.CommandDetect, res.Run.Command)
	assert.NotNil(t, res.Run.CompletedAt)
	require.Len(t, res.Series, 2)

	var spikes int
	for _, d := range res.Detections {
		if d.Kind == core.KindSpikeUp {
			spikes++
			assert.Equal(t, 70.0, d.Value)
		}
	}
	assert.Equal(t, 2, spikes)

	// regions plus the pooled row
	require.Len(t, res.Evaluations, 3)
	pooled := res.Evaluations[2]
	assert.Equal(t, core.PooledRegion, pooled.Region)
	assert.Equal(t, len(res.Detections), pooled.Detections)
	assert.Equal(t, 1.0, pooled.Precision)
	assert.Equal(t, 1, pooled.WavesHit)
	assert.Equal(t, 4, pooled.WavesTotal)

	stored, err := store.GetDetections(res.Run.ID)
	require.NoError(t, err)
	assert.Len(t, stored, len(res.Detections))

	evals, err := store.GetEvaluations(res.Run.ID)
	require.NoError(t, err)
	assert.Len(t, evals, 3)
}

func TestPipeline_DetectSourceFailure(t *testing.T) {
	p, store := setupPipeline(t, filepath.Join(t.TempDir(), "missing.csv"))

	res, err := p.Detect(context.Background())
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, core.RunStatusFailed, res.Run.Status)
	assert.Contains(t, res.Run.Error, "failed to connect to source")

	latest, err := store.GetLatestRun(core.CommandDetect)
	require.NoError(t, err)
	assert.Equal(t, res.Run.ID, latest.ID)
	assert.Equal(t, core.RunStatusFailed, latest.Status)
}

func TestPipeline_LoadSeriesUnknownSource(t *testing.T) {
	store := state.NewSQLiteStore(nil)
	p, err := New(Config{Source: core.SourceConfig{Type: "sqlserver"}, Params: core.DefaultParams()}, store)
	require.NoError(t, err)

	_, err = p.LoadSeries(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source type")
}

func TestPipeline_Tune(t *testing.T) {
	p, store := setupPipeline(t, fixtureCSV(t))

	res, err := p.Tune(context.Background(), TuneOptions{
		Grid:    tuning.Grid{QUp: []float64{0.5, 0.99}},
		Workers: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusCompleted, res.Run.Status)
	assert.Equal(t, core.CommandTune, res.Run.Command)
	require.Len(t, res.Trials, 2)
	assert.Equal(t, 1, res.Trials[0].Rank)
	assert.GreaterOrEqual(t, res.Trials[0].Score, res.Trials[1].Score)

	trials, err := store.GetTrials(res.Run.ID)
	require.NoError(t, err)
	assert.Len(t, trials, 2)
}

func TestPipeline_TuneErrors(t *testing.T) {
	p, _ := setupPipeline(t, fixtureCSV(t))
	ctx := context.Background()

	_, err := p.Tune(ctx, TuneOptions{})
	require.ErrorIs(t, err, tuning.ErrEmptyGrid)

	_, err = p.Tune(ctx, TuneOptions{Grid: tuning.DefaultGrid(), Objective: "f1 +"})
	require.Error(t, err)
}

// brokenCompleteStore fails every CompleteRun.
type brokenCompleteStore struct {
	*state.SQLiteStore
}

func (brokenCompleteStore) CompleteRun(string, core.RunStatus, string) error {
	return assert.AnError
}

func TestPipeline_DetectLogsStatusFailure(t *testing.T) {
	logger, logs := testutil.NewCaptureLogger()
	store, err := state.OpenAndMigrate(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	p, err := New(Config{
		Source: core.SourceConfig{Type: "duckdb", CSV: fixtureCSV(t)},
		Params: core.DefaultParams(),
		Logger: logger,
	}, brokenCompleteStore{store})
	require.NoError(t, err)

	res, err := p.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusRunning, res.Run.Status)
	assert.Contains(t, logs.String(), "level=ERROR")
	assert.Contains(t, logs.String(), "failed to record run status")
	assert.Contains(t, logs.String(), res.Run.ID)
}
