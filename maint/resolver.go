package maint

import (
	"context"
	"database/sql"
	"time"

	"github.com/teranos/floorcheck/catalog"
	"github.com/teranos/floorcheck/errors"
	"github.com/teranos/floorcheck/shift"
)

// Resolver computes the due-task list an operator sees when they sit down at
// a kiosk.
type Resolver struct {
	db          *sql.DB
	assignments *AssignmentStore
	executions  *ExecutionStore
	catalog     *catalog.Store
}

// NewResolver creates a new due-task resolver
func NewResolver(db *sql.DB) *Resolver {
	return &Resolver{
		db:          db,
		assignments: NewAssignmentStore(db),
		executions:  NewExecutionStore(db),
		catalog:     catalog.NewStore(db),
	}
}

// ResolveDue returns the tasks due for a role in the shift window containing
// now, ordered by assignment id. A nil sectorID spans every sector the role
// works; a concrete one narrows the list to that sector.
//
// Administrators manage the catalog and never receive tasks. An assignment is
// due when its frequency recurs every shift, or when its recurrence interval
// has elapsed since the last recorded execution (never executed counts as
// elapsed). Assignments with any execution row for this shift window are
// excluded: an actioned row means the task is done, a pending placeholder
// means it is already scheduled under this window's dedup key.
func (r *Resolver) ResolveDue(ctx context.Context, roleID int64, sectorID *int64, now time.Time) ([]DueTask, error) {
	if roleID == catalog.RoleAdministrator {
		return nil, nil
	}

	shiftStart := shift.Start(now)

	assignments, err := r.assignments.ListActive(roleID, sectorID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load assignments for due resolution")
	}

	var due []DueTask
	for _, a := range assignments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		freq, err := r.catalog.GetFrequency(a.FreqID)
		if err != nil {
			return nil, errors.Wrapf(err, "assignment %d references unknown frequency", a.ID)
		}

		if !isDue(a, freq, now) {
			continue
		}

		exists, err := r.executions.ExistsForShift(a.ID, shiftStart)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		work, err := r.catalog.GetWork(a.WorkID)
		if err != nil {
			return nil, errors.Wrapf(err, "assignment %d references unknown work", a.ID)
		}
		workType, err := workTypeName(r.db, a.WorkTypeID)
		if err != nil {
			return nil, err
		}

		due = append(due, DueTask{
			AssignmentID: a.ID,
			WorkID:       a.WorkID,
			WorkName:     work.Name,
			WorkType:     workType,
			SectorID:     a.SectorID,
			DueAt:        shiftStart,
		})
	}
	return due, nil
}

// HasDue reports whether at least one task is due; the sector failover check
// needs only this.
func (r *Resolver) HasDue(ctx context.Context, roleID int64, sectorID *int64, now time.Time) (bool, error) {
	due, err := r.ResolveDue(ctx, roleID, sectorID, now)
	if err != nil {
		return false, err
	}
	return len(due) > 0, nil
}

func isDue(a *Assignment, freq *catalog.Frequency, now time.Time) bool {
	if freq.Kind == catalog.FreqKindShift {
		return true
	}
	if a.LastExecAt == nil {
		return true
	}
	interval := freq.Interval()
	if interval <= 0 {
		return true
	}
	return !a.LastExecAt.Add(interval).After(now)
}

func workTypeName(db *sql.DB, workTypeID int64) (string, error) {
	var name string
	err := db.QueryRow(`SELECT name FROM work_types WHERE id = ?`, workTypeID).Scan(&name)
	if err == sql.ErrNoRows {
		return "", errors.NewNotFoundError("work type %d not found", workTypeID)
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to get work type")
	}
	return name, nil
}
