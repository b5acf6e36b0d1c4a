package maint

import (
	"context"
	"time"
)

// NextSectorWithWork scans the candidate sectors in order and returns the id
// of the first one, other than excluding, that has at least one due task for
// the role. Returns nil when no candidate qualifies; the kiosk ends the
// session in that case.
func (r *Resolver) NextSectorWithWork(ctx context.Context, roleID int64, candidates []int64, excluding int64, now time.Time) (*int64, error) {
	for _, sectorID := range candidates {
		if sectorID == excluding {
			continue
		}
		id := sectorID
		has, err := r.HasDue(ctx, roleID, &id, now)
		if err != nil {
			return nil, err
		}
		if has {
			return &id, nil
		}
	}
	return nil, nil
}
