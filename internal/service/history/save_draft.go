package history

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gridwise/layout-backend/internal/domain"
	"github.com/gridwise/layout-backend/pkg/ctxutil"
)

// SaveDraft snapshots the layout's current working copy into a new DRAFT
// version and points the layout at it. The snapshot is taken inside the same
// transaction that allocates the version number, under the layout row lock,
// so concurrent saves are linearized and never interleave half-written
// working copies.
func (s *Service) SaveDraft(ctx context.Context, layoutID uuid.UUID, input SaveDraftInput) (*domain.LayoutVersion, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	tenantID, ok := ctxutil.TenantIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	var version *domain.LayoutVersion
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.layouts.GetByID(ctx, tenantID, layoutID); err != nil {
			return fmt.Errorf("get layout: %w", err)
		}
		if err := s.layouts.LockForVersioning(ctx, layoutID); err != nil {
			return fmt.Errorf("lock layout: %w", err)
		}

		regions, err := s.regions.ListByLayout(ctx, layoutID)
		if err != nil {
			return fmt.Errorf("snapshot working copy: %w", err)
		}
		if err := domain.ValidateSnapshot(regions); err != nil {
			return err
		}

		version, err = s.versions.Create(ctx, &domain.LayoutVersion{
			LayoutID:  layoutID,
			Status:    domain.VersionStatusDraft,
			Regions:   regions,
			Notes:     input.Notes,
			CreatedBy: userID,
		})
		if err != nil {
			return fmt.Errorf("create version: %w", err)
		}

		return s.layouts.SetCurrentVersion(ctx, layoutID, version.ID)
	})
	if err != nil {
		return nil, err
	}

	s.events.VersionCreated(layoutID, *version)

	s.log.InfoContext(ctx, "draft saved",
		slog.String("layout_id", layoutID.String()),
		slog.Int("version_number", version.VersionNumber),
	)

	return version, nil
}
