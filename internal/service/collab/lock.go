package collab

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gridwise/layout-backend/internal/domain"
	"github.com/gridwise/layout-backend/pkg/ctxutil"
)

// AcquireLock attempts to take the region's edit lock for the calling
// session. The grant condition is: no live lock exists, the existing lock
// has expired (reaped lazily here, in addition to the background sweep), or
// the caller already holds it (re-acquire extends the expiry). On grant the
// region's current persisted state is captured as the session's edit base,
// presence flips to isEditing=true, and lock-acquired is broadcast.
//
// A denial is not an error: the result carries the current holder's user id
// so the caller can render who is editing.
func (s *Service) AcquireLock(ctx context.Context, layoutID, regionID uuid.UUID) (domain.LockResult, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return domain.LockResult{}, domain.ErrUnauthorized
	}
	sessionID, ok := ctxutil.SessionIDFromCtx(ctx)
	if !ok {
		return domain.LockResult{}, domain.ErrUnauthorized
	}

	// Read the edit base before taking the room mutex; only the winner's
	// snapshot is kept.
	base, err := s.regions.GetByID(ctx, layoutID, regionID)
	if err != nil {
		return domain.LockResult{}, fmt.Errorf("acquire lock: %w", err)
	}

	r := s.roomFor(layoutID, sessionID)
	key := sessionRegion{SessionID: sessionID, RegionID: regionID}
	now := s.clock.Now()

	r.mu.Lock()
	if existing, held := r.locks[regionID]; held {
		if !existing.Expired(now) {
			if !existing.HeldBy(sessionID) {
				holder := existing.HolderUserID
				r.mu.Unlock()
				return domain.LockResult{Granted: false, Holder: &holder}, nil
			}
			existing.ExpiresAt = now.Add(s.cfg.LockTTL)
			r.mu.Unlock()
			return domain.LockResult{Granted: true}, nil
		}
		// Taking over an expired lock reaps the previous holder the same
		// way the sweep would: its edit base is discarded and its presence
		// flips out of editing, so the roster broadcast below is correct.
		oldKey := sessionRegion{SessionID: existing.HolderSessionID, RegionID: regionID}
		delete(r.bases, oldKey)
		if rec, ok := r.presence[oldKey]; ok {
			rec.IsEditing = false
		}
	}

	lock := &domain.Lock{
		RegionID:        regionID,
		HolderUserID:    userID,
		HolderSessionID: sessionID,
		AcquiredAt:      now,
		ExpiresAt:       now.Add(s.cfg.LockTTL),
	}
	r.locks[regionID] = lock
	r.bases[key] = base.Clone()

	rec, ok := r.presence[key]
	if !ok {
		rec = &domain.PresenceRecord{
			RegionID:  regionID,
			UserID:    userID,
			SessionID: sessionID,
		}
		r.presence[key] = rec
	}
	rec.IsEditing = true
	rec.LastSeen = now

	granted := *lock
	roster := r.regionPresence(regionID)
	r.mu.Unlock()

	s.events.LockAcquired(layoutID, granted)
	s.events.PresenceUpdated(layoutID, regionID, roster)

	s.log.InfoContext(ctx, "lock acquired",
		slog.String("layout_id", layoutID.String()),
		slog.String("region_id", regionID.String()),
		slog.String("session_id", sessionID.String()),
	)

	return domain.LockResult{Granted: true}, nil
}

// ReleaseLock releases the region's lock if the calling session holds it and
// flips presence back to isEditing=false. A non-holder release returns
// ErrLockNotHeld to the caller only; the room sees nothing.
func (s *Service) ReleaseLock(ctx context.Context, layoutID, regionID uuid.UUID) error {
	sessionID, ok := ctxutil.SessionIDFromCtx(ctx)
	if !ok {
		return domain.ErrUnauthorized
	}

	r, found := s.lookupRoom(layoutID)
	if !found {
		return fmt.Errorf("release lock: %w", domain.ErrLockNotHeld)
	}
	key := sessionRegion{SessionID: sessionID, RegionID: regionID}
	now := s.clock.Now()

	r.mu.Lock()
	lock, held := r.locks[regionID]
	if !held || !lock.HeldBy(sessionID) || lock.Expired(now) {
		r.mu.Unlock()
		return fmt.Errorf("release lock: %w", domain.ErrLockNotHeld)
	}
	delete(r.locks, regionID)
	delete(r.bases, key)
	if rec, ok := r.presence[key]; ok {
		rec.IsEditing = false
		rec.LastSeen = now
	}
	roster := r.regionPresence(regionID)
	r.mu.Unlock()

	s.events.LockReleased(layoutID, regionID)
	s.events.PresenceUpdated(layoutID, regionID, roster)

	s.log.InfoContext(ctx, "lock released",
		slog.String("layout_id", layoutID.String()),
		slog.String("region_id", regionID.String()),
		slog.String("session_id", sessionID.String()),
	)

	return nil
}

// lockStatus reports how the session stands with respect to the region's
// lock: holding, denied by another live holder, or not holding at all.
func (r *room) lockStatus(regionID, sessionID uuid.UUID, now time.Time) (holding bool, holder *domain.Lock) {
	lock, held := r.locks[regionID]
	if !held || lock.Expired(now) {
		return false, nil
	}
	if lock.HeldBy(sessionID) {
		return true, lock
	}
	return false, lock
}
