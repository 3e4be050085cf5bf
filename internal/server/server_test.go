package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmalBilal1/covid19-anomaly-detection/internal/pipeline"
	"github.com/AmalBilal1/covid19-anomaly-detection/internal/state"
	"github.com/AmalBilal1/covid19-anomaly-detection/internal/testutil"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/core"
)

func setupStore(t *testing.T) *state.SQLiteStore {
	t.Helper()
	store, err := state.OpenAndMigrate(":memory:", testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// seedRun stores a completed detect run with one detection and evaluation.
func seedRun(t *testing.T, store *state.SQLiteStore) *core.Run {
	t.Helper()
	run, err := store.CreateRun(core.CommandDetect, "duckdb:obitos.csv", core.DefaultParams())
	require.NoError(t, err)

	week := time.Date(2020, 5, 11, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveDetections(run.ID, []core.Detection{
		{Region: "SP", Week: week, Kind: core.KindSpikeUp, Value: 70},
	}))
	require.NoError(t, store.SaveEvaluations(run.ID, []core.Evaluation{
		{Region: "SP", Detections: 1, Aligned: 1, WavesHit: 1, WavesTotal: 4, Precision: 1, Recall: 0.25, F1: 0.4},
		{Region: core.PooledRegion, Detections: 1, Aligned: 1, WavesHit: 1, WavesTotal: 4, Precision: 1, Recall: 0.25, F1: 0.4},
	}))
	require.NoError(t, store.CompleteRun(run.ID, core.RunStatusCompleted, ""))
	return run
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer_Health(t *testing.T) {
	srv := New(Config{Store: setupStore(t)})
	rec := get(t, srv.Handler(), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_Waves(t *testing.T) {
	srv := New(Config{Store: setupStore(t)})
	rec := get(t, srv.Handler(), "/api/waves")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Country string `json:"country"`
		Waves   []core.Wave
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "BR", body.Country)
	assert.Len(t, body.Waves, 4)
}

func TestServer_Runs(t *testing.T) {
	store := setupStore(t)
	run := seedRun(t, store)
	_, err := store.CreateRun(core.CommandTune, "duckdb:obitos.csv", core.DefaultParams())
	require.NoError(t, err)

	h := New(Config{Store: store}).Handler()

	tests := []struct {
		name   string
		path   string
		status int
		check  func(t *testing.T, body []byte)
	}{
		{
			name:   "list",
			path:   "/api/runs",
			status: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var runs []core.Run
				require.NoError(t, json.Unmarshal(body, &runs))
				assert.Len(t, runs, 2)
			},
		},
		{
			name:   "list filtered by command",
			path:   "/api/runs?command=detect",
			status: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var runs []core.Run
				require.NoError(t, json.Unmarshal(body, &runs))
				require.Len(t, runs, 1)
				assert.Equal(t, run.ID, runs[0].ID)
			},
		},
		{
			name:   "list with bad limit",
			path:   "/api/runs?limit=abc",
			status: http.StatusBadRequest,
		},
		{
			name:   "latest detect",
			path:   "/api/runs/latest?command=detect",
			status: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var got core.Run
				require.NoError(t, json.Unmarshal(body, &got))
				assert.Equal(t, run.ID, got.ID)
				assert.Equal(t, core.RunStatusCompleted, got.Status)
			},
		},
		{
			name:   "latest with no matching runs",
			path:   "/api/runs/latest?command=backfill",
			status: http.StatusNotFound,
		},
		{
			name:   "get run",
			path:   "/api/runs/" + run.ID,
			status: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var got core.Run
				require.NoError(t, json.Unmarshal(body, &got))
				assert.Equal(t, core.CommandDetect, got.Command)
			},
		},
		{
			name:   "detections",
			path:   "/api/runs/" + run.ID + "/detections",
			status: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var ds []core.Detection
				require.NoError(t, json.Unmarshal(body, &ds))
				require.Len(t, ds, 1)
				assert.Equal(t, core.KindSpikeUp, ds[0].Kind)
			},
		},
		{
			name:   "evaluations",
			path:   "/api/runs/" + run.ID + "/evaluations",
			status: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var evs []core.Evaluation
				require.NoError(t, json.Unmarshal(body, &evs))
				assert.Len(t, evs, 2)
			},
		},
		{
			name:   "trials of a detect run are empty",
			path:   "/api/runs/" + run.ID + "/trials",
			status: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				assert.JSONEq(t, `[]`, string(body))
			},
		},
		{
			name:   "unknown run",
			path:   "/api/runs/does-not-exist",
			status: http.StatusNotFound,
		},
		{
			name:   "unknown run detections",
			path:   "/api/runs/does-not-exist/detections",
			status: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, tt.path)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			if tt.check != nil {
				tt.check(t, rec.Body.Bytes())
			}
		})
	}
}

type fakeDetector struct {
	res *pipeline.DetectResult
	err error
}

func (f *fakeDetector) Detect(context.Context) (*pipeline.DetectResult, error) {
	return f.res, f.err
}

func TestServer_DetectRoute(t *testing.T) {
	store := setupStore(t)

	t.Run("disabled without detector", func(t *testing.T) {
		h := New(Config{Store: store}).Handler()
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/detect", nil))
		assert.NotEqual(t, http.StatusCreated, rec.Code)
	})

	t.Run("success notifies listeners", func(t *testing.T) {
		det := &fakeDetector{res: &pipeline.DetectResult{
			Run:        &core.Run{ID: "run-1", Status: core.RunStatusCompleted},
			Detections: make([]core.Detection, 3),
		}}
		srv := New(Config{Store: store, Detector: det})
		updates := srv.Notifier().Subscribe()
		defer srv.Notifier().Unsubscribe(updates)

		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/detect", nil))

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), `"detections":3`)
		assert.Equal(t, "run-1", <-updates)
	})

	t.Run("failed run", func(t *testing.T) {
		det := &fakeDetector{
			res: &pipeline.DetectResult{Run: &core.Run{ID: "run-2", Status: core.RunStatusFailed}},
			err: errors.New("failed to load series"),
		}
		rec := httptest.NewRecorder()
		New(Config{Store: store, Detector: det}).Handler().
			ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/detect", nil))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "failed to load series")
	})
}

func TestServer_Events(t *testing.T) {
	srv := New(Config{Store: setupStore(t)})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)

	type result struct {
		resp *http.Response
		err  error
	}
	respCh := make(chan result, 1)
	go func() {
		resp, err := http.DefaultClient.Do(req)
		respCh <- result{resp, err}
	}()

	require.Eventually(t, func() bool { return srv.Notifier().Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	srv.Notifier().Broadcast("run-42")

	res := <-respCh
	require.NoError(t, res.err)
	resp := res.resp
	defer func() { _ = resp.Body.Close() }()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	scanner := bufio.NewScanner(resp.Body)
	found := false
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), "run-42") {
			found = true
			break
		}
	}
	assert.True(t, found, "event stream should carry the run id")
}

func TestServer_ServeShutdown(t *testing.T) {
	srv := New(Config{Store: setupStore(t), Host: "127.0.0.1", Port: 0})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestNotifier_Broadcast(t *testing.T) {
	n := NewNotifier()
	ch := n.Subscribe()
	assert.Equal(t, 1, n.Len())

	n.Broadcast("a")
	n.Broadcast("b")
	assert.Equal(t, "b", <-ch, "slow listeners see the newest run")

	n.Unsubscribe(ch)
	assert.Equal(t, 0, n.Len())
	n.Broadcast("c") // no listeners, must not block
}
