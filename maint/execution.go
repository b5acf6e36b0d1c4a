package maint

import "time"

// Execution statuses. A pending row is a generator-seeded placeholder that no
// operator has actioned yet; completed and failed are terminal.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Actions an operator can take on a due task.
const (
	ActionComplete = "complete"
	ActionFail     = "fail"
)

// Execution is one row of the execution log: an assignment actioned (or
// pending) for one shift window. DueAt is the shift-start timestamp and forms
// the dedup key together with AssignmentID.
type Execution struct {
	ID           int64
	AssignmentID int64
	OperatorID   *int64
	Status       string
	ExecutedAt   *time.Time
	DueAt        time.Time
	Comment      string
	CreatedAt    time.Time
}

// ReportRow is one line of the shift report surface: an execution joined with
// its work and sector names.
type ReportRow struct {
	ExecutionID  int64      `json:"execution_id"`
	AssignmentID int64      `json:"assignment_id"`
	WorkName     string     `json:"work_name"`
	SectorID     int64      `json:"sector_id"`
	SectorName   string     `json:"sector_name"`
	Status       string     `json:"status"`
	OperatorID   *int64     `json:"operator_id,omitempty"`
	ExecutedAt   *time.Time `json:"executed_at,omitempty"`
	DueAt        time.Time  `json:"due_at"`
	Comment      string     `json:"comment,omitempty"`
}
