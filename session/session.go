// Package session drives the kiosk session lifecycle: card on the pad
// authenticates an operator and pins their task list; card off the pad ends
// the session.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Session is an authenticated kiosk session. It is an immutable value:
// every reader event that changes who is at the kiosk replaces the session
// wholesale rather than mutating it.
type Session struct {
	ID              uuid.UUID `json:"id"`
	OperatorID      int64     `json:"operator_id"`
	PersonnelNumber string    `json:"personnel_number"`
	FullName        string    `json:"full_name"`
	RoleID          int64     `json:"role_id"`
	SectorID        int64     `json:"sector_id"`
	AuthenticatedAt time.Time `json:"authenticated_at"`
}

// WithSector returns a copy of the session pinned to a different sector.
// Sector failover is the only legal session transition short of replacement.
func (s Session) WithSector(sectorID int64) Session {
	s.SectorID = sectorID
	return s
}
