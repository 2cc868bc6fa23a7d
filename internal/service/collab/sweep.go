package collab

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gridwise/layout-backend/internal/domain"
)

// Run drives the background sweep that reaps expired locks and stale
// presence records. Lazy reaping at acquire time already keeps locks
// correct; the sweep bounds how long abandoned state stays visible to the
// room. Blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	s.log.InfoContext(ctx, "collab sweeper started",
		slog.Duration("interval", s.cfg.SweepInterval),
	)

	for {
		select {
		case <-ctx.Done():
			s.log.InfoContext(ctx, "collab sweeper stopped")
			return ctx.Err()
		case <-ticker.Chan():
			s.Sweep()
		}
	}
}

// Sweep runs one reap pass over every room.
func (s *Service) Sweep() {
	now := s.clock.Now()

	s.mu.RLock()
	rooms := make(map[uuid.UUID]*room, len(s.rooms))
	for layoutID, r := range s.rooms {
		rooms[layoutID] = r
	}
	s.mu.RUnlock()

	for layoutID, r := range rooms {
		var releasedRegions []uuid.UUID
		touchedRegions := make(map[uuid.UUID]struct{})

		r.mu.Lock()
		for regionID, lock := range r.locks {
			if !lock.Expired(now) {
				continue
			}
			key := sessionRegion{SessionID: lock.HolderSessionID, RegionID: regionID}
			delete(r.locks, regionID)
			delete(r.bases, key)
			if rec, ok := r.presence[key]; ok {
				rec.IsEditing = false
			}
			releasedRegions = append(releasedRegions, regionID)
			touchedRegions[regionID] = struct{}{}
		}
		for key, rec := range r.presence {
			if rec.Stale(now, s.cfg.PresenceTTL) {
				delete(r.presence, key)
				touchedRegions[key.RegionID] = struct{}{}
			}
		}
		rosters := make(map[uuid.UUID][]domain.PresenceRecord, len(touchedRegions))
		for regionID := range touchedRegions {
			rosters[regionID] = r.regionPresence(regionID)
		}
		r.mu.Unlock()

		for _, regionID := range releasedRegions {
			s.events.LockReleased(layoutID, regionID)
			s.log.Info("expired lock reaped",
				slog.String("layout_id", layoutID.String()),
				slog.String("region_id", regionID.String()),
			)
		}
		for regionID, roster := range rosters {
			s.events.PresenceUpdated(layoutID, regionID, roster)
		}
	}
}
