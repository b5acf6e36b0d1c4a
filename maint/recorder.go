package maint

import (
	"context"
	"database/sql"
	"time"

	"github.com/teranos/floorcheck/db"
	"github.com/teranos/floorcheck/errors"
	"github.com/teranos/floorcheck/logger"
	"github.com/teranos/floorcheck/shift"
)

// recordMaxAttempts bounds retries on transient lock contention. A UNIQUE
// violation is never retried: it means someone else already recorded this
// task, which is a final answer.
const (
	recordMaxAttempts = 3
	recordRetryDelay  = 50 * time.Millisecond
)

// Recorder writes execution outcomes. All writes for one recording happen in
// a single immediate transaction so that two kiosks racing on the same task
// produce exactly one recorded outcome.
type Recorder struct {
	db *sql.DB
}

// NewRecorder creates a new execution recorder
func NewRecorder(database *sql.DB) *Recorder {
	return &Recorder{db: database}
}

// RecordExecution records the outcome of a due task for the shift window
// containing now. action is ActionComplete or ActionFail; failing requires a
// non-empty comment stating the reason.
//
// Returns ErrAlreadyProcessed when the task was already actioned this shift
// window, by anyone. The assignment's last_exec_at is set to the shift start
// in the same transaction.
func (r *Recorder) RecordExecution(ctx context.Context, assignmentID, operatorID int64, action, comment string, now time.Time) (*Execution, error) {
	var status string
	switch action {
	case ActionComplete:
		status = StatusCompleted
	case ActionFail:
		if comment == "" {
			return nil, errors.NewInvalidRequestError("failing a task requires a reason")
		}
		status = StatusFailed
	default:
		return nil, errors.NewInvalidRequestError("unknown action %q", action)
	}

	shiftStart := shift.Start(now)

	var lastErr error
	for attempt := 1; attempt <= recordMaxAttempts; attempt++ {
		exec, err := r.recordOnce(ctx, assignmentID, operatorID, status, comment, shiftStart, now)
		if err == nil {
			return exec, nil
		}
		if !db.IsBusy(err) {
			return nil, err
		}
		lastErr = err
		logger.Logger.Warnw("Execution record hit lock contention, retrying",
			"assignment_id", assignmentID,
			"attempt", attempt)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(recordRetryDelay * time.Duration(attempt)):
		}
	}
	return nil, errors.Wrapf(lastErr, "failed to record execution for assignment %d after %d attempts",
		assignmentID, recordMaxAttempts)
}

func (r *Recorder) recordOnce(ctx context.Context, assignmentID, operatorID int64, status, comment string, shiftStart, now time.Time) (*Execution, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to acquire connection")
	}
	defer conn.Close()

	// BEGIN IMMEDIATE takes the write lock up front so the actioned check and
	// the insert cannot interleave with another recorder.
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return nil, errors.Wrap(err, "failed to begin immediate transaction")
	}
	committed := false
	defer func() {
		if !committed {
			conn.ExecContext(ctx, "ROLLBACK")
		}
	}()

	var canceled int
	err = conn.QueryRowContext(ctx,
		`SELECT canceled FROM assignments WHERE id = ?`, assignmentID).Scan(&canceled)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("assignment %d not found", assignmentID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load assignment")
	}
	if canceled != 0 {
		return nil, errors.NewInvalidRequestError("assignment %d is canceled", assignmentID)
	}

	actioned, err := connActionedExists(ctx, conn, assignmentID, shiftStart)
	if err != nil {
		return nil, err
	}
	if actioned {
		return nil, errors.WithStack(errors.ErrAlreadyProcessed)
	}

	dueAtStr := shiftStart.Format(time.RFC3339)
	nowStr := now.Format(time.RFC3339)

	// Claim the generator's pending placeholder if one exists for this shift
	// window; otherwise insert a fresh row. Either way the UNIQUE
	// (assignment_id, due_at) key holds.
	res, err := conn.ExecContext(ctx,
		`UPDATE executions
		 SET operator_id = ?, status = ?, executed_at = ?, comment = ?
		 WHERE assignment_id = ? AND due_at = ? AND status = ?`,
		operatorID, status, nowStr, comment, assignmentID, dueAtStr, StatusPending,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to claim pending execution")
	}
	claimed, err := res.RowsAffected()
	if err != nil {
		return nil, errors.Wrap(err, "failed to check claim result")
	}

	var executionID int64
	if claimed > 0 {
		err = conn.QueryRowContext(ctx,
			`SELECT id FROM executions WHERE assignment_id = ? AND due_at = ?`,
			assignmentID, dueAtStr).Scan(&executionID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load claimed execution")
		}
	} else {
		res, err := conn.ExecContext(ctx,
			`INSERT INTO executions (assignment_id, operator_id, status, executed_at, due_at, comment, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			assignmentID, operatorID, status, nowStr, dueAtStr, comment, nowStr,
		)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return nil, errors.WithStack(errors.ErrAlreadyProcessed)
			}
			return nil, errors.Wrap(err, "failed to insert execution")
		}
		executionID, err = res.LastInsertId()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get execution id")
		}
	}

	if err := updateLastExec(ctx, conn, assignmentID, shiftStart); err != nil {
		return nil, err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return nil, errors.Wrap(err, "failed to commit execution record")
	}
	committed = true

	logger.Logger.Infow("Execution recorded",
		"assignment_id", assignmentID,
		"operator_id", operatorID,
		"status", status,
		"shift_start", dueAtStr)

	executedAt := now
	return &Execution{
		ID:           executionID,
		AssignmentID: assignmentID,
		OperatorID:   &operatorID,
		Status:       status,
		ExecutedAt:   &executedAt,
		DueAt:        shiftStart,
		Comment:      comment,
		CreatedAt:    now,
	}, nil
}

func connActionedExists(ctx context.Context, conn *sql.Conn, assignmentID int64, dueAt time.Time) (bool, error) {
	var one int
	err := conn.QueryRowContext(ctx,
		`SELECT 1 FROM executions
		 WHERE assignment_id = ? AND due_at = ? AND status != ?
		 LIMIT 1`,
		assignmentID, dueAt.Format(time.RFC3339), StatusPending,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to check actioned execution")
	}
	return true, nil
}
