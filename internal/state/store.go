// Package state persists mortwatch runs and their results in SQLite.
// It tracks detect and tune runs, their detections, per-region evaluations
// and ranked tuning trials.
package state

import (
	"errors"

	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/core"
)

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// errNotOpened is returned by every operation before Open succeeds.
var errNotOpened = errors.New("database not opened")

var _ core.Store = (*SQLiteStore)(nil)
