package collab

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gridwise/layout-backend/internal/domain"
	"github.com/gridwise/layout-backend/pkg/ctxutil"
)

// Join registers the calling session as present in a region with
// isEditing=false and broadcasts the region's presence roster. Idempotent:
// a repeated join from the same session refreshes lastSeen instead of
// creating a second record.
func (s *Service) Join(ctx context.Context, layoutID, regionID uuid.UUID) error {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return domain.ErrUnauthorized
	}
	sessionID, ok := ctxutil.SessionIDFromCtx(ctx)
	if !ok {
		return domain.ErrUnauthorized
	}

	r := s.roomFor(layoutID, sessionID)
	key := sessionRegion{SessionID: sessionID, RegionID: regionID}
	now := s.clock.Now()

	r.mu.Lock()
	rec, exists := r.presence[key]
	if exists {
		rec.LastSeen = now
	} else {
		r.presence[key] = &domain.PresenceRecord{
			RegionID:  regionID,
			UserID:    userID,
			SessionID: sessionID,
			IsEditing: false,
			LastSeen:  now,
		}
	}
	roster := r.regionPresence(regionID)
	r.mu.Unlock()

	s.events.PresenceUpdated(layoutID, regionID, roster)

	if !exists {
		s.log.InfoContext(ctx, "session joined region",
			slog.String("layout_id", layoutID.String()),
			slog.String("region_id", regionID.String()),
			slog.String("session_id", sessionID.String()),
		)
	}

	return nil
}

// Leave removes the session's presence record for a region and releases its
// lock on that region if it holds one. Best-effort: leaving a region the
// session never joined is a no-op.
func (s *Service) Leave(ctx context.Context, layoutID, regionID uuid.UUID) error {
	sessionID, ok := ctxutil.SessionIDFromCtx(ctx)
	if !ok {
		return domain.ErrUnauthorized
	}

	r, ok := s.lookupRoom(layoutID)
	if !ok {
		return nil
	}
	key := sessionRegion{SessionID: sessionID, RegionID: regionID}

	r.mu.Lock()
	delete(r.presence, key)
	lockReleased := false
	if lock, held := r.locks[regionID]; held && lock.HeldBy(sessionID) {
		delete(r.locks, regionID)
		delete(r.bases, key)
		lockReleased = true
	}
	roster := r.regionPresence(regionID)
	r.mu.Unlock()

	if lockReleased {
		s.events.LockReleased(layoutID, regionID)
	}
	s.events.PresenceUpdated(layoutID, regionID, roster)

	return nil
}

// Heartbeat refreshes lastSeen for all of the session's presence records and
// extends the expiry of every lock the session holds, across every layout it
// has joined.
func (s *Service) Heartbeat(ctx context.Context) error {
	sessionID, ok := ctxutil.SessionIDFromCtx(ctx)
	if !ok {
		return domain.ErrUnauthorized
	}

	now := s.clock.Now()
	expiry := now.Add(s.cfg.LockTTL)

	for _, layoutID := range s.sessionLayouts(sessionID) {
		r, ok := s.lookupRoom(layoutID)
		if !ok {
			continue
		}

		r.mu.Lock()
		for key, rec := range r.presence {
			if key.SessionID == sessionID {
				rec.LastSeen = now
			}
		}
		for _, lock := range r.locks {
			if lock.HeldBy(sessionID) && !lock.Expired(now) {
				lock.ExpiresAt = expiry
			}
		}
		r.mu.Unlock()
	}

	return nil
}

// UpdatePresence flips the session's editing flag for a region and
// broadcasts the updated roster. A missing record is created, which makes
// the REST fallback's periodic presence refresh equivalent to join.
func (s *Service) UpdatePresence(ctx context.Context, layoutID, regionID uuid.UUID, isEditing bool) error {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return domain.ErrUnauthorized
	}
	sessionID, ok := ctxutil.SessionIDFromCtx(ctx)
	if !ok {
		return domain.ErrUnauthorized
	}

	r := s.roomFor(layoutID, sessionID)
	key := sessionRegion{SessionID: sessionID, RegionID: regionID}
	now := s.clock.Now()

	r.mu.Lock()
	rec, ok := r.presence[key]
	if !ok {
		rec = &domain.PresenceRecord{
			RegionID:  regionID,
			UserID:    userID,
			SessionID: sessionID,
		}
		r.presence[key] = rec
	}
	rec.IsEditing = isEditing
	rec.LastSeen = now
	roster := r.regionPresence(regionID)
	r.mu.Unlock()

	s.events.PresenceUpdated(layoutID, regionID, roster)

	return nil
}

// DisconnectSession drops every presence record, lock, base snapshot, and
// pending conflict the session owns, in every layout it joined, broadcasting
// the resulting state. Called by the channel transport when a connection
// closes; the TTL sweep covers sessions whose disconnect was never observed.
func (s *Service) DisconnectSession(sessionID uuid.UUID) {
	for _, layoutID := range s.sessionLayouts(sessionID) {
		r, ok := s.lookupRoom(layoutID)
		if !ok {
			continue
		}

		var releasedRegions []uuid.UUID
		touchedRegions := make(map[uuid.UUID]struct{})

		r.mu.Lock()
		for key := range r.presence {
			if key.SessionID == sessionID {
				delete(r.presence, key)
				touchedRegions[key.RegionID] = struct{}{}
			}
		}
		for regionID, lock := range r.locks {
			if lock.HeldBy(sessionID) {
				delete(r.locks, regionID)
				releasedRegions = append(releasedRegions, regionID)
				touchedRegions[regionID] = struct{}{}
			}
		}
		for key := range r.bases {
			if key.SessionID == sessionID {
				delete(r.bases, key)
			}
		}
		for key := range r.conflicts {
			if key.SessionID == sessionID {
				delete(r.conflicts, key)
			}
		}
		rosters := make(map[uuid.UUID][]domain.PresenceRecord, len(touchedRegions))
		for regionID := range touchedRegions {
			rosters[regionID] = r.regionPresence(regionID)
		}
		r.mu.Unlock()

		for _, regionID := range releasedRegions {
			s.events.LockReleased(layoutID, regionID)
		}
		for regionID, roster := range rosters {
			s.events.PresenceUpdated(layoutID, regionID, roster)
		}
	}

	s.forgetSession(sessionID)

	s.log.Info("session disconnected", slog.String("session_id", sessionID.String()))
}
