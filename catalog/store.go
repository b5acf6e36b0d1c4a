package catalog

import (
	"database/sql"
	"time"

	"github.com/teranos/floorcheck/errors"
)

// Store handles persistence of the reference dictionaries
type Store struct {
	db *sql.DB
}

// NewStore creates a new catalog store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ListRoles returns all roles ordered by id.
func (s *Store) ListRoles() ([]Role, error) {
	rows, err := s.db.Query(`SELECT id, name FROM roles ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list roles")
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, errors.Wrap(err, "failed to scan role")
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

// ListSectors returns all sectors ordered by id.
func (s *Store) ListSectors() ([]Sector, error) {
	rows, err := s.db.Query(`SELECT id, name FROM sectors ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sectors")
	}
	defer rows.Close()

	var sectors []Sector
	for rows.Next() {
		var sec Sector
		if err := rows.Scan(&sec.ID, &sec.Name); err != nil {
			return nil, errors.Wrap(err, "failed to scan sector")
		}
		sectors = append(sectors, sec)
	}
	return sectors, rows.Err()
}

// GetRole retrieves a role by id.
func (s *Store) GetRole(id int64) (*Role, error) {
	var r Role
	err := s.db.QueryRow(`SELECT id, name FROM roles WHERE id = ?`, id).Scan(&r.ID, &r.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("role %d not found", id)
		}
		return nil, errors.Wrap(err, "failed to get role")
	}
	return &r, nil
}

// GetSector retrieves a sector by id.
func (s *Store) GetSector(id int64) (*Sector, error) {
	var sec Sector
	err := s.db.QueryRow(`SELECT id, name FROM sectors WHERE id = ?`, id).Scan(&sec.ID, &sec.Name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("sector %d not found", id)
		}
		return nil, errors.Wrap(err, "failed to get sector")
	}
	return &sec, nil
}

// GetFrequency retrieves a frequency by id.
func (s *Store) GetFrequency(id int64) (*Frequency, error) {
	query := `SELECT id, name, kind, interval_days, interval_hours FROM frequencies WHERE id = ?`

	var f Frequency
	var intervalDays, intervalHours sql.NullInt64
	err := s.db.QueryRow(query, id).Scan(&f.ID, &f.Name, &f.Kind, &intervalDays, &intervalHours)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("frequency %d not found", id)
		}
		return nil, errors.Wrap(err, "failed to get frequency")
	}
	f.IntervalDays = int(intervalDays.Int64)
	f.IntervalHours = int(intervalHours.Int64)
	return &f, nil
}

// ListFrequencies returns all frequencies ordered by id.
func (s *Store) ListFrequencies() ([]Frequency, error) {
	rows, err := s.db.Query(`SELECT id, name, kind, interval_days, interval_hours FROM frequencies ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list frequencies")
	}
	defer rows.Close()

	var freqs []Frequency
	for rows.Next() {
		var f Frequency
		var intervalDays, intervalHours sql.NullInt64
		if err := rows.Scan(&f.ID, &f.Name, &f.Kind, &intervalDays, &intervalHours); err != nil {
			return nil, errors.Wrap(err, "failed to scan frequency")
		}
		f.IntervalDays = int(intervalDays.Int64)
		f.IntervalHours = int(intervalHours.Int64)
		freqs = append(freqs, f)
	}
	return freqs, rows.Err()
}

// GetWork retrieves a work definition by id.
func (s *Store) GetWork(id int64) (*Work, error) {
	query := `SELECT id, name, description, created_at FROM works WHERE id = ?`

	var w Work
	var createdAt string
	err := s.db.QueryRow(query, id).Scan(&w.ID, &w.Name, &w.Description, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("work %d not found", id)
		}
		return nil, errors.Wrap(err, "failed to get work")
	}
	w.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &w, nil
}

// ListWorks returns all work definitions ordered by id.
func (s *Store) ListWorks() ([]Work, error) {
	rows, err := s.db.Query(`SELECT id, name, description, created_at FROM works ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list works")
	}
	defer rows.Close()

	var works []Work
	for rows.Next() {
		var w Work
		var createdAt string
		if err := rows.Scan(&w.ID, &w.Name, &w.Description, &createdAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan work")
		}
		w.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		works = append(works, w)
	}
	return works, rows.Err()
}

// CreateWork inserts a new work definition and returns its id. Explicit ids
// are honored so seeded works keep their dictionary keys; pass 0 to let
// SQLite assign one.
func (s *Store) CreateWork(w *Work) (int64, error) {
	now := time.Now().Format(time.RFC3339)

	if w.ID != 0 {
		_, err := s.db.Exec(
			`INSERT INTO works (id, name, description, created_at) VALUES (?, ?, ?, ?)`,
			w.ID, w.Name, w.Description, now,
		)
		if err != nil {
			return 0, errors.Wrap(err, "failed to create work")
		}
		return w.ID, nil
	}

	res, err := s.db.Exec(
		`INSERT INTO works (name, description, created_at) VALUES (?, ?, ?)`,
		w.Name, w.Description, now,
	)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create work")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get work id")
	}
	return id, nil
}

// DeleteWorkCascade removes a work definition together with everything hanging
// off it: execution history first, then assignments, then the work row itself.
// Runs in a single transaction so a failed delete leaves no orphans.
func (s *Store) DeleteWorkCascade(workID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM executions WHERE assignment_id IN (SELECT id FROM assignments WHERE work_id = ?)`,
		workID,
	); err != nil {
		return errors.Wrap(err, "failed to delete executions for work")
	}

	if _, err := tx.Exec(`DELETE FROM assignments WHERE work_id = ?`, workID); err != nil {
		return errors.Wrap(err, "failed to delete assignments for work")
	}

	res, err := tx.Exec(`DELETE FROM works WHERE id = ?`, workID)
	if err != nil {
		return errors.Wrap(err, "failed to delete work")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to check delete result")
	}
	if affected == 0 {
		return errors.NewNotFoundError("work %d not found", workID)
	}

	return errors.Wrap(tx.Commit(), "failed to commit work delete")
}
