package core

import "time"

// Store defines the interface for state management operations.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	// Run operations
	CreateRun(command, source string, params Params) (*Run, error)
	GetRun(id string) (*Run, error)
	CompleteRun(id string, status RunStatus, errMsg string) error
	GetLatestRun(command string) (*Run, error)
	ListRuns(limit int) ([]*Run, error)

	// Result operations
	SaveDetections(runID string, detections []Detection) error
	GetDetections(runID string) ([]Detection, error)
	SaveEvaluations(runID string, evals []Evaluation) error
	GetEvaluations(runID string) ([]Evaluation, error)
	SaveTrials(runID string, trials []Trial) error
	GetTrials(runID string) ([]Trial, error)
}

// RunStatus represents the status of a run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Commands that create runs.
const (
	CommandDetect = "detect"
	CommandTune   = "tune"
)

// Run represents one detect or tune execution.
type Run struct {
	ID          string     `json:"id"`
	Command     string     `json:"command"`
	Source      string     `json:"source"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	Params      Params     `json:"params"`
}

// Trial is one scored parameter combination from a tuning run.
type Trial struct {
	Rank       int     `json:"rank"`
	Params     Params  `json:"params"`
	Score      float64 `json:"score"`
	Precision  float64 `json:"precision"`
	Recall     float64 `json:"recall"`
	F1         float64 `json:"f1"`
	Detections int     `json:"detections"`
}
