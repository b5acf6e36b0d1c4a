// Package directory resolves access cards to employees. The source of truth
// is the HR system's HTTP endpoint; a local sqlite cache keeps kiosks working
// through HR outages.
package directory

import (
	"context"
	"time"
)

// Employee is a directory entry keyed by access card.
type Employee struct {
	ID              int64     `json:"id"`
	CardID          string    `json:"card_id"`
	PersonnelNumber string    `json:"personnel_number"`
	FullName        string    `json:"full_name"`
	Department      string    `json:"department,omitempty"`
	RoleID          *int64    `json:"role_id,omitempty"`
	SyncedAt        time.Time `json:"-"`
}

// Resolver resolves an access card to an employee. Returns an error wrapping
// errors.ErrNotFound when the card is unknown.
type Resolver interface {
	ResolveEmployee(ctx context.Context, cardID string) (*Employee, error)
}
