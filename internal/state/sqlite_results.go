package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/core"
)

// SaveDetections stores the detections of a run in a single transaction.
func (s *SQLiteStore) SaveDetections(runID string, detections []core.Detection) error {
	if s.db == nil {
		return errNotOpened
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT INTO detections (run_id, region, week, kind, pattern, value) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare detection insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, d := range detections {
		value := sql.NullFloat64{Float64: d.Value, Valid: !math.IsNaN(d.Value)}
		if _, err := stmt.Exec(runID, d.Region, d.Week.Format(weekLayout), string(d.Kind), string(d.Pattern), value); err != nil {
			return fmt.Errorf("failed to insert detection: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Debug("saved detections", slog.String("run_id", runID), slog.Int("count", len(detections)))
	return nil
}

// GetDetections retrieves a run's detections ordered by region, week, kind and pattern.
func (s *SQLiteStore) GetDetections(runID string) ([]core.Detection, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.Query(
		`SELECT region, week, kind, pattern, value FROM detections WHERE run_id = ? ORDER BY region, week, kind, pattern`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get detections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.Detection
	for rows.Next() {
		var (
			d             core.Detection
			week          string
			kind, pattern string
			value         sql.NullFloat64
		)
		if err := rows.Scan(&d.Region, &week, &kind, &pattern, &value); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		if d.Week, err = time.Parse(weekLayout, week); err != nil {
			return nil, fmt.Errorf("invalid stored week %q: %w", week, err)
		}
		d.Kind = core.DetectionKind(kind)
		d.Pattern = core.Pattern(pattern)
		d.Value = math.NaN()
		if value.Valid {
			d.Value = value.Float64
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get detections: %w", err)
	}
	return out, nil
}

// SaveEvaluations stores per-region evaluations of a run, replacing existing rows.
func (s *SQLiteStore) SaveEvaluations(runID string, evals []core.Evaluation) error {
	if s.db == nil {
		return errNotOpened
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, ev := range evals {
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO evaluations
				(run_id, region, detections, aligned, waves_hit, waves_total, precision, recall, f1)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, ev.Region, ev.Detections, ev.Aligned, ev.WavesHit, ev.WavesTotal, ev.Precision, ev.Recall, ev.F1,
		)
		if err != nil {
			return fmt.Errorf("failed to insert evaluation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetEvaluations retrieves a run's evaluations. The pooled row sorts last.
func (s *SQLiteStore) GetEvaluations(runID string) ([]core.Evaluation, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.Query(
		`SELECT region, detections, aligned, waves_hit, waves_total, precision, recall, f1
		FROM evaluations WHERE run_id = ?
		ORDER BY region = ?, region`,
		runID, core.PooledRegion,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.Evaluation
	for rows.Next() {
		var ev core.Evaluation
		if err := rows.Scan(&ev.Region, &ev.Detections, &ev.Aligned, &ev.WavesHit, &ev.WavesTotal, &ev.Precision, &ev.Recall, &ev.F1); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get evaluations: %w", err)
	}
	return out, nil
}

// SaveTrials stores the ranked trials of a tuning run.
func (s *SQLiteStore) SaveTrials(runID string, trials []core.Trial) error {
	if s.db == nil {
		return errNotOpened
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, tr := range trials {
		params, err := json.Marshal(tr.Params)
		if err != nil {
			return fmt.Errorf("failed to encode trial params: %w", err)
		}
		_, err = tx.Exec(
			`INSERT INTO tuning_trials (run_id, rank, params, score, precision, recall, f1, detections)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, tr.Rank, string(params), tr.Score, tr.Precision, tr.Recall, tr.F1, tr.Detections,
		)
		if err != nil {
			return fmt.Errorf("failed to insert trial: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetTrials retrieves a tuning run's trials ordered by rank.
func (s *SQLiteStore) GetTrials(runID string) ([]core.Trial, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.Query(
		`SELECT rank, params, score, precision, recall, f1, detections
		FROM tuning_trials WHERE run_id = ? ORDER BY rank`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get trials: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.Trial
	for rows.Next() {
		var (
			tr     core.Trial
			params string
		)
		if err := rows.Scan(&tr.Rank, &params, &tr.Score, &tr.Precision, &tr.Recall, &tr.F1, &tr.Detections); err != nil {
			return nil, fmt.Errorf("failed to scan trial: %w", err)
		}
		if err := json.Unmarshal([]byte(params), &tr.Params); err != nil {
			return nil, fmt.Errorf("invalid stored trial params: %w", err)
		}
		out = append(out, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get trials: %w", err)
	}
	return out, nil
}
