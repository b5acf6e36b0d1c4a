package catalog

import (
	"database/sql"

	"github.com/teranos/floorcheck/errors"
)

// KioskStore maps kiosk workstations to the sectors they serve.
type KioskStore struct {
	db *sql.DB
}

// NewKioskStore creates a new kiosk store
func NewKioskStore(db *sql.DB) *KioskStore {
	return &KioskStore{db: db}
}

// SectorsFor returns the sectors a kiosk serves, in failover order. The first
// sector is the kiosk's home sector.
func (s *KioskStore) SectorsFor(kioskName string) ([]Sector, error) {
	query := `
		SELECT sec.id, sec.name
		FROM kiosk_sectors ks
		JOIN sectors sec ON sec.id = ks.sector_id
		WHERE ks.kiosk_name = ?
		ORDER BY ks.position, sec.id
	`
	rows, err := s.db.Query(query, kioskName)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list kiosk sectors")
	}
	defer rows.Close()

	var sectors []Sector
	for rows.Next() {
		var sec Sector
		if err := rows.Scan(&sec.ID, &sec.Name); err != nil {
			return nil, errors.Wrap(err, "failed to scan kiosk sector")
		}
		sectors = append(sectors, sec)
	}
	return sectors, rows.Err()
}

// Assign binds a kiosk to a sector at the given failover position.
// Re-assigning an existing binding updates its position.
func (s *KioskStore) Assign(kioskName string, sectorID int64, position int) error {
	_, err := s.db.Exec(
		`INSERT INTO kiosk_sectors (kiosk_name, sector_id, position) VALUES (?, ?, ?)
		 ON CONFLICT(kiosk_name, sector_id) DO UPDATE SET position = excluded.position`,
		kioskName, sectorID, position,
	)
	return errors.Wrap(err, "failed to assign kiosk sector")
}

// Unassign removes a kiosk-to-sector binding.
func (s *KioskStore) Unassign(kioskName string, sectorID int64) error {
	_, err := s.db.Exec(
		`DELETE FROM kiosk_sectors WHERE kiosk_name = ? AND sector_id = ?`,
		kioskName, sectorID,
	)
	return errors.Wrap(err, "failed to unassign kiosk sector")
}
