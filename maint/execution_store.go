package maint

import (
	"database/sql"
	"time"

	"github.com/teranos/floorcheck/errors"
)

// ExecutionStore handles the execution log
type ExecutionStore struct {
	db *sql.DB
}

// NewExecutionStore creates a new execution store
func NewExecutionStore(db *sql.DB) *ExecutionStore {
	return &ExecutionStore{db: db}
}

// ExistsForShift reports whether any execution row, pending included, exists
// for (assignment, shift window). The resolver keys its exclusion on this:
// a row under the window's dedup key means the task is either done or already
// scheduled there.
func (s *ExecutionStore) ExistsForShift(assignmentID int64, dueAt time.Time) (bool, error) {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM executions
		 WHERE assignment_id = ? AND due_at = ?
		 LIMIT 1`,
		assignmentID, dueAt.Format(time.RFC3339),
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to check execution existence")
	}
	return true, nil
}

// Get retrieves an execution by id.
func (s *ExecutionStore) Get(id int64) (*Execution, error) {
	row := s.db.QueryRow(
		`SELECT id, assignment_id, operator_id, status, executed_at, due_at, comment, created_at
		 FROM executions WHERE id = ?`, id)

	e, err := scanExecution(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("execution %d not found", id)
		}
		return nil, errors.Wrap(err, "failed to get execution")
	}
	return e, nil
}

// GetForShift retrieves the execution row for (assignment, shift window), if
// any. Returns ErrNotFound when none exists.
func (s *ExecutionStore) GetForShift(assignmentID int64, dueAt time.Time) (*Execution, error) {
	row := s.db.QueryRow(
		`SELECT id, assignment_id, operator_id, status, executed_at, due_at, comment, created_at
		 FROM executions WHERE assignment_id = ? AND due_at = ?`,
		assignmentID, dueAt.Format(time.RFC3339))

	e, err := scanExecution(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("no execution for assignment %d at %s",
				assignmentID, dueAt.Format(time.RFC3339))
		}
		return nil, errors.Wrap(err, "failed to get execution for shift")
	}
	return e, nil
}

func scanExecution(row interface{ Scan(...interface{}) error }) (*Execution, error) {
	var e Execution
	var operatorID sql.NullInt64
	var executedAt sql.NullString
	var dueAt, createdAt string

	err := row.Scan(&e.ID, &e.AssignmentID, &operatorID, &e.Status,
		&executedAt, &dueAt, &e.Comment, &createdAt)
	if err != nil {
		return nil, err
	}

	if operatorID.Valid {
		e.OperatorID = &operatorID.Int64
	}
	if executedAt.Valid {
		t, err := time.Parse(time.RFC3339, executedAt.String)
		if err != nil {
			return nil, errors.Wrap(err, "invalid executed_at timestamp")
		}
		e.ExecutedAt = &t
	}
	e.DueAt, _ = time.Parse(time.RFC3339, dueAt)
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &e, nil
}

// ReportFilter narrows ListReport. Zero values mean "any".
type ReportFilter struct {
	SectorID int64
	Status   string
	// From/To bound due_at, half-open [From, To)
	From time.Time
	To   time.Time
}

// ListReport returns execution log rows joined with work and sector names,
// newest first.
func (s *ExecutionStore) ListReport(f ReportFilter) ([]ReportRow, error) {
	query := `
		SELECT e.id, e.assignment_id, w.name, sec.id, sec.name,
		       e.status, e.operator_id, e.executed_at, e.due_at, e.comment
		FROM executions e
		JOIN assignments a ON a.id = e.assignment_id
		JOIN works w ON w.id = a.work_id
		JOIN sectors sec ON sec.id = a.sector_id
		WHERE 1=1`
	var args []interface{}

	if f.SectorID != 0 {
		query += ` AND a.sector_id = ?`
		args = append(args, f.SectorID)
	}
	if f.Status != "" {
		query += ` AND e.status = ?`
		args = append(args, f.Status)
	}
	if !f.From.IsZero() {
		query += ` AND e.due_at >= ?`
		args = append(args, f.From.Format(time.RFC3339))
	}
	if !f.To.IsZero() {
		query += ` AND e.due_at < ?`
		args = append(args, f.To.Format(time.RFC3339))
	}
	query += ` ORDER BY e.due_at DESC, e.id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query report")
	}
	defer rows.Close()

	var report []ReportRow
	for rows.Next() {
		var r ReportRow
		var operatorID sql.NullInt64
		var executedAt sql.NullString
		var dueAt string

		if err := rows.Scan(&r.ExecutionID, &r.AssignmentID, &r.WorkName,
			&r.SectorID, &r.SectorName, &r.Status, &operatorID, &executedAt,
			&dueAt, &r.Comment); err != nil {
			return nil, errors.Wrap(err, "failed to scan report row")
		}

		if operatorID.Valid {
			r.OperatorID = &operatorID.Int64
		}
		if executedAt.Valid {
			t, err := time.Parse(time.RFC3339, executedAt.String)
			if err != nil {
				return nil, errors.Wrap(err, "invalid executed_at timestamp")
			}
			r.ExecutedAt = &t
		}
		r.DueAt, _ = time.Parse(time.RFC3339, dueAt)
		report = append(report, r)
	}
	return report, rows.Err()
}
