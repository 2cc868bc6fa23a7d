package history

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gridwise/layout-backend/internal/domain"
	"github.com/gridwise/layout-backend/pkg/ctxutil"
)

// PromoteVersion moves a version to the target status along the
// DRAFT → PREVIEW → PUBLISHED state machine. Publishing archives the
// previously published version of the same layout in the same transaction
// (PUBLISHED → ARCHIVED happens only by supersession) and points the layout
// at the newly published version. Promotion flips status only; the
// version's snapshot is immutable.
func (s *Service) PromoteVersion(ctx context.Context, layoutID, versionID uuid.UUID, target domain.VersionStatus) (*domain.LayoutVersion, error) {
	tenantID, ok := ctxutil.TenantIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	if !target.Valid() {
		return nil, domain.NewValidationError("status", "unknown status")
	}

	var promoted *domain.LayoutVersion
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.layouts.GetByID(ctx, tenantID, layoutID); err != nil {
			return fmt.Errorf("get layout: %w", err)
		}
		if err := s.layouts.LockForVersioning(ctx, layoutID); err != nil {
			return fmt.Errorf("lock layout: %w", err)
		}

		version, err := s.versions.GetByID(ctx, versionID)
		if err != nil {
			return fmt.Errorf("get version: %w", err)
		}
		if version.LayoutID != layoutID {
			return fmt.Errorf("version %s: %w", versionID, domain.ErrNotFound)
		}
		if !version.Status.CanTransitionTo(target) {
			return domain.NewValidationError("status",
				fmt.Sprintf("cannot move %s to %s", version.Status, target))
		}

		if target == domain.VersionStatusPublished {
			if err := s.archivePublished(ctx, layoutID, versionID); err != nil {
				return err
			}
		}

		if err := s.versions.UpdateStatus(ctx, versionID, target); err != nil {
			return fmt.Errorf("update status: %w", err)
		}

		if target == domain.VersionStatusPublished {
			if err := s.layouts.SetCurrentVersion(ctx, layoutID, versionID); err != nil {
				return fmt.Errorf("set current version: %w", err)
			}
		}

		version.Status = target
		promoted = version
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "version promoted",
		slog.String("layout_id", layoutID.String()),
		slog.String("version_id", versionID.String()),
		slog.String("status", string(target)),
	)

	return promoted, nil
}

// archivePublished archives every published version of the layout except the
// one being promoted. At most one exists when the state machine is honored;
// the loop also repairs any historical double-publish.
func (s *Service) archivePublished(ctx context.Context, layoutID, exceptID uuid.UUID) error {
	published := domain.VersionStatusPublished
	current, err := s.versions.ListByLayout(ctx, layoutID, domain.VersionFilter{Status: &published})
	if err != nil {
		return fmt.Errorf("find published versions: %w", err)
	}
	for _, v := range current {
		if v.ID == exceptID {
			continue
		}
		if err := s.versions.UpdateStatus(ctx, v.ID, domain.VersionStatusArchived); err != nil {
			return fmt.Errorf("archive superseded version: %w", err)
		}
	}
	return nil
}
