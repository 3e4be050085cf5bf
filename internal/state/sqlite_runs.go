package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/core"
)

const runColumns = `id, command, source, status, started_at, completed_at, error, params`

// CreateRun creates a new run in the running state.
func (s *SQLiteStore) CreateRun(command, source string, params core.Params) (*core.Run, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode run params: %w", err)
	}

	run := &core.Run{
		ID:        generateID(),
		Command:   command,
		Source:    source,
		Status:    core.RunStatusRunning,
		StartedAt: time.Now().UTC(),
		Params:    params,
	}

	s.logger.Debug("creating run", slog.String("id", run.ID), slog.String("command", command))

	_, err = s.db.Exec(
		`INSERT INTO runs (id, command, source, status, started_at, params) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Command, run.Source, string(run.Status), formatTime(run.StartedAt), string(paramsJSON),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return run, nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*core.Run, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// CompleteRun marks a run as finished with the given status.
func (s *SQLiteStore) CompleteRun(id string, status core.RunStatus, errMsg string) error {
	if s.db == nil {
		return errNotOpened
	}

	var errorPtr *string
	if errMsg != "" {
		errorPtr = &errMsg
	}

	result, err := s.db.Exec(
		`UPDATE runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(status), formatTime(time.Now()), errorPtr, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// GetLatestRun retrieves the most recent run of a command.
// An empty command matches every run. Returns nil without error when none exist.
func (s *SQLiteStore) GetLatestRun(command string) (*core.Run, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	row := s.db.QueryRow(
		`SELECT `+runColumns+` FROM runs WHERE (? = '' OR command = ?) ORDER BY started_at DESC, rowid DESC LIMIT 1`,
		command, command,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves the most recent runs up to the given limit.
func (s *SQLiteStore) ListRuns(limit int) ([]*core.Run, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	if limit <= 0 {
		limit = -1 // no limit in SQLite
	}

	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*core.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*core.Run, error) {
	var (
		run         core.Run
		status      string
		startedAt   string
		completedAt sql.NullString
		errMsg      sql.NullString
		params      string
	)
	if err := sc.Scan(&run.ID, &run.Command, &run.Source, &status, &startedAt, &completedAt, &errMsg, &params); err != nil {
		return nil, err
	}

	run.Status = core.RunStatus(status)

	var err error
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return nil, err
		}
		run.CompletedAt = &t
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	if err := json.Unmarshal([]byte(params), &run.Params); err != nil {
		return nil, fmt.Errorf("invalid stored params for run %s: %w", run.ID, err)
	}

	return &run, nil
}
