package collab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/gridwise/layout-backend/internal/domain"
	"github.com/gridwise/layout-backend/pkg/ctxutil"
)

const resolveBackoff = 25 * time.Millisecond

// ResolveConflict applies the chosen strategy to the session's pending
// conflict for a region.
//
//   - server: the client adopts the current server state; nothing is written.
//   - local: the client's changes are re-applied on top of its original edit
//     base and force-written, discarding server-side changes made since.
//   - merge: for each field the client touched the local value wins, every
//     other field takes the current server value.
//
// local and merge each produce a new revision-checked write carrying the
// server's latest revision as base, and so require the caller to still hold
// the region's live lock; server adopts without writing and needs none.
// If another writer races in, the attempt
// is retried up to the configured bound, after which ErrRetryExhausted is
// returned and the conflict stays pending for a manual retry.
func (s *Service) ResolveConflict(ctx context.Context, layoutID uuid.UUID, input ResolveInput) (*domain.Region, error) {
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
		return nil, fmt.Errorf("resolve conflict: no pending conflict: %w", domain.ErrNotFound)
	}
	key := sessionRegion{SessionID: sessionID, RegionID: input.RegionID}

	r.mu.Lock()
	conflict, pending := r.conflicts[key]
	r.mu.Unlock()
	if !pending {
		return nil, fmt.Errorf("resolve conflict: no pending conflict: %w", domain.ErrNotFound)
	}

	if input.Strategy == domain.ResolutionServer {
		server, err := s.regions.GetByID(ctx, layoutID, input.RegionID)
		if err != nil {
			return nil, fmt.Errorf("resolve conflict: %w", err)
		}
		s.dropConflict(r, key)
		s.log.InfoContext(ctx, "conflict resolved",
			slog.String("layout_id", layoutID.String()),
			slog.String("region_id", input.RegionID.String()),
			slog.String("strategy", string(input.Strategy)),
		)
		return server, nil
	}

	// local and merge write; they demand the same live lock SubmitRegionWrite
	// does. A session whose lock expired mid-conflict must re-acquire before
	// resolving: the conflict stays pending across the denial.
	now := s.clock.Now()
	r.mu.Lock()
	holding, lock := r.lockStatus(input.RegionID, sessionID, now)
	r.mu.Unlock()
	if !holding {
		if lock != nil {
			return nil, fmt.Errorf("resolve conflict: region held by %s: %w", lock.HolderUserID, domain.ErrLockDenied)
		}
		return nil, fmt.Errorf("resolve conflict: %w", domain.ErrLockNotHeld)
	}

	var resolved *domain.Region
	backoff := retry.WithMaxRetries(uint64(s.cfg.MaxResolveRetries), retry.NewConstant(resolveBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		server, err := s.regions.GetByID(ctx, layoutID, input.RegionID)
		if err != nil {
			return err
		}

		var target domain.Region
		switch input.Strategy {
		case domain.ResolutionLocal:
			target = conflict.LocalChanges.ApplyTo(conflict.LocalVersion)
		case domain.ResolutionMerge:
			target = conflict.LocalChanges.ApplyTo(*server)
		}

		resolved, err = s.regions.ReplaceWithRevision(ctx, layoutID, target, server.Revision, userID)
		if errors.Is(err, domain.ErrConflict) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			s.log.WarnContext(ctx, "conflict resolution retries exhausted",
				slog.String("layout_id", layoutID.String()),
				slog.String("region_id", input.RegionID.String()),
				slog.String("strategy", string(input.Strategy)),
				slog.Int("max_retries", s.cfg.MaxResolveRetries),
			)
			return nil, fmt.Errorf("resolve conflict: %w", domain.ErrRetryExhausted)
		}
		return nil, fmt.Errorf("resolve conflict: %w", err)
	}

	s.dropConflict(r, key)
	s.events.RegionUpdated(layoutID, *resolved)

	s.log.InfoContext(ctx, "conflict resolved",
		slog.String("layout_id", layoutID.String()),
		slog.String("region_id", input.RegionID.String()),
		slog.String("strategy", string(input.Strategy)),
		slog.Int64("revision", resolved.Revision),
	)

	return resolved, nil
}

func (s *Service) dropConflict(r *room, key sessionRegion) {
	r.mu.Lock()
	delete(r.conflicts, key)
	r.mu.Unlock()
}
