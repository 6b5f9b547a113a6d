package model

import "time"

// RunState tracks the orchestrator lifecycle.
type RunState string

const (
	RunStateIdle      RunState = "idle"
	RunStateRunning   RunState = "running"
	RunStateResuming  RunState = "resuming"
	RunStateCompleted RunState = "completed"
	RunStateFailed    RunState = "failed"
)

// Checkpoint is written after every processed unit and read back on resume.
// The field names are a stable on-disk contract.
type Checkpoint struct {
	LastUnitProcessed int     `json:"last_unit_processed"`
	CaseCount         int     `json:"case_count"`
	DuplicateCount    int     `json:"duplicate_count"`
	Timestamp         float64 `json:"timestamp"`
}

// Stages at which a unit error can be recorded.
const (
	StageExtract = "extract"
	StageParse   = "parse"
)

// UnitError records one failed work unit for end-of-run reporting.
type UnitError struct {
	Unit     int       `json:"unit"`
	Stage    string    `json:"stage"`
	Reason   string    `json:"reason"`
	Attempts int       `json:"attempts"`
	At       time.Time `json:"at"`
}

// RunSummary is the final accounting for one pipeline run.
type RunSummary struct {
	State          RunState      `json:"state"`
	Source         string        `json:"source"`
	StartUnit      int           `json:"start_unit"`
	EndUnit        int           `json:"end_unit"`
	UnitsProcessed int           `json:"units_processed"`
	UnitsSkipped   int           `json:"units_skipped"`
	CaseCount      int           `json:"case_count"`
	DuplicateCount int           `json:"duplicate_count"`
	ErrorCount     int           `json:"error_count"`
	Elapsed        time.Duration `json:"elapsed"`
}

// Run is the persisted record of one pipeline invocation in the run store.
type Run struct {
	ID             string     `json:"id"`
	Source         string     `json:"source"`
	State          RunState   `json:"state"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	UnitsProcessed int        `json:"units_processed"`
	UnitsSkipped   int        `json:"units_skipped"`
	CaseCount      int        `json:"case_count"`
	DuplicateCount int        `json:"duplicate_count"`
	ErrorCount     int        `json:"error_count"`
}
