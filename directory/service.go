package directory

import (
	"context"
	"time"

	"github.com/teranos/floorcheck/errors"
	"github.com/teranos/floorcheck/logger"
)

// Service resolves cards through the local cache, falling through to the HR
// endpoint and writing back on a miss or a stale entry. HR being down does
// not lock operators out: a stale cache entry still authenticates.
type Service struct {
	cache  *CacheStore
	remote Resolver
	ttl    time.Duration
}

// NewService creates a directory service. remote may be nil, in which case
// only the cache answers. ttl <= 0 means cached entries never go stale.
func NewService(cache *CacheStore, remote Resolver, ttl time.Duration) *Service {
	return &Service{cache: cache, remote: remote, ttl: ttl}
}

// ResolveEmployee implements Resolver.
func (s *Service) ResolveEmployee(ctx context.Context, cardID string) (*Employee, error) {
	cached, cacheErr := s.cache.GetByCard(cardID)
	if cacheErr == nil && s.fresh(cached) {
		return cached, nil
	}
	if cacheErr != nil && !errors.IsNotFound(cacheErr) {
		return nil, cacheErr
	}

	if s.remote == nil {
		if cached != nil {
			return cached, nil
		}
		return nil, cacheErr
	}

	remote, err := s.remote.ResolveEmployee(ctx, cardID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, err
		}
		// HR unreachable: serve the stale entry if we have one
		if cached != nil {
			logger.Logger.Warnw("HR directory unreachable, serving cached employee",
				"card_id", cardID,
				"synced_at", cached.SyncedAt,
				"error", err)
			return cached, nil
		}
		return nil, err
	}

	if err := s.cache.Save(remote); err != nil {
		logger.Logger.Warnw("Failed to cache employee", "card_id", cardID, "error", err)
	}
	return remote, nil
}

// OperatorID returns the local id for a personnel number, for attributing
// executions.
func (s *Service) OperatorID(ctx context.Context, personnelNumber string) (int64, error) {
	e, err := s.cache.GetByPersonnelNumber(personnelNumber)
	if err != nil {
		return 0, err
	}
	return e.ID, nil
}

func (s *Service) fresh(e *Employee) bool {
	if s.ttl <= 0 {
		return true
	}
	return time.Since(e.SyncedAt) < s.ttl
}
