package maint

import (
	"context"
	"database/sql"
	"time"

	"github.com/teranos/floorcheck/db"
	"github.com/teranos/floorcheck/errors"
)

// AssignmentStore handles persistence of standing assignments
type AssignmentStore struct {
	db *sql.DB
}

// NewAssignmentStore creates a new assignment store
func NewAssignmentStore(db *sql.DB) *AssignmentStore {
	return &AssignmentStore{db: db}
}

const assignmentColumns = `id, work_id, freq_id, role_id, work_type_id, sector_id, canceled, last_exec_at, created_at, updated_at`

func scanAssignment(row interface{ Scan(...interface{}) error }) (*Assignment, error) {
	var a Assignment
	var canceled int
	var lastExecAt sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&a.ID, &a.WorkID, &a.FreqID, &a.RoleID, &a.WorkTypeID,
		&a.SectorID, &canceled, &lastExecAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	a.Canceled = canceled != 0
	if lastExecAt.Valid {
		t, err := time.Parse(time.RFC3339, lastExecAt.String)
		if err != nil {
			return nil, errors.Wrap(err, "invalid last_exec_at timestamp")
		}
		a.LastExecAt = &t
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &a, nil
}

// Create inserts a new active assignment. The schema's partial unique index
// rejects a second active assignment for the same (work, sector); that case
// surfaces as ErrConflict.
func (s *AssignmentStore) Create(a *Assignment) (int64, error) {
	now := time.Now().Format(time.RFC3339)

	res, err := s.db.Exec(`
		INSERT INTO assignments (work_id, freq_id, role_id, work_type_id, sector_id, canceled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		a.WorkID, a.FreqID, a.RoleID, a.WorkTypeID, a.SectorID, now, now,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, errors.Wrapf(errors.ErrConflict,
				"active assignment already exists for work %d in sector %d", a.WorkID, a.SectorID)
		}
		return 0, errors.Wrap(err, "failed to create assignment")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get assignment id")
	}
	return id, nil
}

// Get retrieves an assignment by id.
func (s *AssignmentStore) Get(id int64) (*Assignment, error) {
	row := s.db.QueryRow(`SELECT `+assignmentColumns+` FROM assignments WHERE id = ?`, id)

	a, err := scanAssignment(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("assignment %d not found", id)
		}
		return nil, errors.Wrap(err, "failed to get assignment")
	}
	return a, nil
}

// ListActive returns non-canceled assignments for a role, ordered by id. A
// nil sectorID returns the role's assignments across all sectors. This is the
// resolver's working set.
func (s *AssignmentStore) ListActive(roleID int64, sectorID *int64) ([]*Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments
		 WHERE canceled = 0 AND role_id = ?`
	args := []interface{}{roleID}
	if sectorID != nil {
		query += ` AND sector_id = ?`
		args = append(args, *sectorID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list active assignments")
	}
	defer rows.Close()

	var assignments []*Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan assignment")
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// ListAll returns every assignment, canceled included. Admin surface.
func (s *AssignmentStore) ListAll() ([]*Assignment, error) {
	rows, err := s.db.Query(`SELECT ` + assignmentColumns + ` FROM assignments ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list assignments")
	}
	defer rows.Close()

	var assignments []*Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan assignment")
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// ExistsForWorkSector reports whether any assignment, canceled or not, exists
// for (work, sector). The generator checks this before creating one, so a
// deliberately canceled assignment is never resurrected.
func (s *AssignmentStore) ExistsForWorkSector(workID, sectorID int64) (bool, error) {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM assignments WHERE work_id = ? AND sector_id = ? LIMIT 1`,
		workID, sectorID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to check assignment existence")
	}
	return true, nil
}

// Cancel soft-deletes an assignment. History stays; the resolver stops
// offering it.
func (s *AssignmentStore) Cancel(id int64) error {
	res, err := s.db.Exec(
		`UPDATE assignments SET canceled = 1, updated_at = ? WHERE id = ? AND canceled = 0`,
		time.Now().Format(time.RFC3339), id,
	)
	if err != nil {
		return errors.Wrap(err, "failed to cancel assignment")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to check cancel result")
	}
	if affected == 0 {
		// Either unknown id or already canceled
		if _, err := s.Get(id); err != nil {
			return err
		}
		return nil
	}
	return nil
}

// updateLastExec sets last_exec_at inside the recorder's transaction.
func updateLastExec(ctx context.Context, conn *sql.Conn, assignmentID int64, shiftStart time.Time) error {
	res, err := conn.ExecContext(ctx,
		`UPDATE assignments SET last_exec_at = ?, updated_at = ? WHERE id = ?`,
		shiftStart.Format(time.RFC3339), time.Now().Format(time.RFC3339), assignmentID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update last execution time")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to check last execution update")
	}
	if affected == 0 {
		return errors.NewNotFoundError("assignment %d not found", assignmentID)
	}
	return nil
}
