package directory

import (
	"database/sql"
	"time"

	"github.com/teranos/floorcheck/errors"
)

// CacheStore persists directory entries in the local employees table.
type CacheStore struct {
	db *sql.DB
}

// NewCacheStore creates a new directory cache store
func NewCacheStore(db *sql.DB) *CacheStore {
	return &CacheStore{db: db}
}

// GetByCard retrieves a cached employee by card id.
func (s *CacheStore) GetByCard(cardID string) (*Employee, error) {
	row := s.db.QueryRow(
		`SELECT id, card_id, personnel_number, full_name, department, role_id, synced_at
		 FROM employees WHERE card_id = ?`, cardID)
	return scanEmployee(row, "card %s", cardID)
}

// GetByPersonnelNumber retrieves a cached employee by personnel number.
func (s *CacheStore) GetByPersonnelNumber(personnelNumber string) (*Employee, error) {
	row := s.db.QueryRow(
		`SELECT id, card_id, personnel_number, full_name, department, role_id, synced_at
		 FROM employees WHERE personnel_number = ?`, personnelNumber)
	return scanEmployee(row, "personnel number %s", personnelNumber)
}

func scanEmployee(row *sql.Row, notFoundFormat string, arg interface{}) (*Employee, error) {
	var e Employee
	var department sql.NullString
	var roleID sql.NullInt64
	var syncedAt string

	err := row.Scan(&e.ID, &e.CardID, &e.PersonnelNumber, &e.FullName, &department, &roleID, &syncedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("employee for "+notFoundFormat+" not found", arg)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get cached employee")
	}

	e.Department = department.String
	if roleID.Valid {
		e.RoleID = &roleID.Int64
	}
	e.SyncedAt, _ = time.Parse(time.RFC3339, syncedAt)
	return &e, nil
}

// Save upserts a directory entry, stamping synced_at.
func (s *CacheStore) Save(e *Employee) error {
	var roleID interface{}
	if e.RoleID != nil {
		roleID = *e.RoleID
	}

	_, err := s.db.Exec(
		`INSERT INTO employees (card_id, personnel_number, full_name, department, role_id, synced_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(card_id) DO UPDATE SET
		   personnel_number = excluded.personnel_number,
		   full_name = excluded.full_name,
		   department = excluded.department,
		   role_id = excluded.role_id,
		   synced_at = excluded.synced_at`,
		e.CardID, e.PersonnelNumber, e.FullName, e.Department, roleID,
		time.Now().Format(time.RFC3339),
	)
	return errors.Wrap(err, "failed to save employee")
}
