package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/AmalBilal1/covid19-anomaly-detection/internal/state"
	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/core"
)

const defaultRunLimit = 50

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeStoreError maps store errors to HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, state.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listWaves(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	command := r.URL.Query().Get("command")

	// Over-fetch when filtering so the limit applies to matching runs.
	fetch := limit
	if command != "" {
		fetch = 0
	}
	runs, err := s.store.ListRuns(fetch)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	out := make([]*core.Run, 0, len(runs))
	for _, run := range runs {
		if command != "" && run.Command != command {
			continue
		}
		out = append(out, run)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) latestRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetLatestRun(r.URL.Query().Get("command"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, errors.New("no runs recorded"))
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// runResults serves one result list of a run, 404 when the run is unknown.
func runResults[T any](s *Server, get func(runID string) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := s.store.GetRun(id); err != nil {
			writeStoreError(w, err)
			return
		}
		items, err := get(id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if items == nil {
			items = []T{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func (s *Server) getDetections(w http.ResponseWriter, r *http.Request) {
	runResults(s, s.store.GetDetections)(w, r)
}

func (s *Server) getEvaluations(w http.ResponseWriter, r *http.Request) {
	runResults(s, s.store.GetEvaluations)(w, r)
}

func (s *Server) getTrials(w http.ResponseWriter, r *http.Request) {
	runResults(s, s.store.GetTrials)(w, r)
}

// detectResponse summarizes a detect run triggered over HTTP.
type detectResponse struct {
	Run         *core.Run         `json:"run"`
	Detections  int               `json:"detections"`
	Evaluations []core.Evaluation `json:"evaluations"`
}

func (s *Server) runDetect(w http.ResponseWriter, r *http.Request) {
	res, err := s.detect(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if res != nil && res.Run != nil {
			// The run was recorded as failed.
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusCreated, detectResponse{
		Run:         res.Run,
		Detections:  len(res.Detections),
		Evaluations: res.Evaluations,
	})
}

// events streams a latestRun signal whenever a run finishes.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case runID := <-updates:
			if err := sse.MarshalAndPatchSignals(map[string]string{"latestRun": runID}); err != nil {
				s.logger.Debug("event stream closed", "error", err)
				return
			}
		}
	}
}
