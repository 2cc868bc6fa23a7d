package collab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gridwise/layout-backend/internal/domain"
	"github.com/gridwise/layout-backend/pkg/ctxutil"
)

// SubmitRegionWrite commits a partial region update at the given base
// revision. The caller must hold the region's live lock: a live lock held by
// another session yields ErrLockDenied, no live lock yields ErrLockNotHeld.
// The lock check only prevents contention; the revision-checked update is
// what guarantees no silent overwrite.
//
// A revision mismatch stashes a ConflictData keyed by session and region,
// pushes conflict-detected to the initiating session only, and returns
// ErrConflict. The write is then completed through ResolveConflict.
func (s *Service) SubmitRegionWrite(ctx context.Context, layoutID uuid.UUID, input WriteInput) (*domain.Region, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	sessionID, ok := ctxutil.SessionIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	r, found := s.lookupRoom(layoutID)
	if !found {
		return nil, fmt.Errorf("submit write: %w", domain.ErrLockNotHeld)
	}
	now := s.clock.Now()

	r.mu.Lock()
	holding, lock := r.lockStatus(input.RegionID, sessionID, now)
	r.mu.Unlock()

	if !holding {
		if lock != nil {
			return nil, fmt.Errorf("submit write: region held by %s: %w", lock.HolderUserID, domain.ErrLockDenied)
		}
		s.log.WarnContext(ctx, "write without lock",
			slog.String("layout_id", layoutID.String()),
			slog.String("region_id", input.RegionID.String()),
			slog.String("session_id", sessionID.String()),
		)
		return nil, fmt.Errorf("submit write: %w", domain.ErrLockNotHeld)
	}

	updated, err := s.regions.UpdateWithRevision(ctx, layoutID, input.RegionID, input.BaseRevision, input.Changes, userID)
	if err == nil {
		s.events.RegionUpdated(layoutID, *updated)
		return updated, nil
	}
	if !errors.Is(err, domain.ErrConflict) {
		return nil, fmt.Errorf("submit write: %w", err)
	}

	conflict, stashErr := s.stashConflict(ctx, layoutID, sessionID, input)
	if stashErr != nil {
		return nil, fmt.Errorf("submit write: %w", stashErr)
	}

	s.events.ConflictDetected(layoutID, sessionID, conflict)

	s.log.InfoContext(ctx, "write conflict detected",
		slog.String("layout_id", layoutID.String()),
		slog.String("region_id", input.RegionID.String()),
		slog.String("session_id", sessionID.String()),
		slog.Int64("base_revision", input.BaseRevision),
		slog.Int64("server_revision", conflict.ServerVersion.Revision),
	)

	return nil, fmt.Errorf("submit write: %w", domain.ErrConflict)
}

// stashConflict builds and stores the pending ConflictData for a failed
// write. LocalVersion is the edit base captured at lock acquisition; if the
// lock was re-granted without a capture the current server state stands in,
// which degrades local resolution to merge but never invents content.
func (s *Service) stashConflict(ctx context.Context, layoutID, sessionID uuid.UUID, input WriteInput) (domain.ConflictData, error) {
	server, err := s.regions.GetByID(ctx, layoutID, input.RegionID)
	if err != nil {
		return domain.ConflictData{}, err
	}

	r, found := s.lookupRoom(layoutID)
	if !found {
		return domain.ConflictData{}, domain.ErrLockNotHeld
	}
	key := sessionRegion{SessionID: sessionID, RegionID: input.RegionID}

	r.mu.Lock()
	local, ok := r.bases[key]
	if !ok {
		local = server.Clone()
	}
	conflict := domain.ConflictData{
		RegionID:      input.RegionID,
		LocalVersion:  local,
		ServerVersion: server.Clone(),
		LocalChanges:  input.Changes,
		DetectedAt:    s.clock.Now(),
	}
	r.conflicts[key] = conflict
	r.mu.Unlock()

	return conflict, nil
}
