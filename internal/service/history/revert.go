package history

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gridwise/layout-backend/internal/domain"
	"github.com/gridwise/layout-backend/pkg/ctxutil"
)

// RevertToVersion restores a past version by cloning its snapshot into a
// brand-new version and pointing the layout at it. History is never deleted
// or rewritten; reverting adds a version that looks like an old one. The new
// version's status matches the layout's publish posture: reverting while
// published creates a new PUBLISHED version (archiving the superseded one),
// anything else creates a DRAFT. The working copy is replaced to match, all
// inside one transaction, so a failed revert leaves the current pointer and
// the working copy untouched.
func (s *Service) RevertToVersion(ctx context.Context, layoutID, versionID uuid.UUID) (*domain.LayoutVersion, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	tenantID, ok := ctxutil.TenantIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	var created *domain.LayoutVersion
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		layout, err := s.layouts.GetByID(ctx, tenantID, layoutID)
		if err != nil {
			return fmt.Errorf("get layout: %w", err)
		}
		if err := s.layouts.LockForVersioning(ctx, layoutID); err != nil {
			return fmt.Errorf("lock layout: %w", err)
		}

		target, err := s.versions.GetByID(ctx, versionID)
		if err != nil {
			return fmt.Errorf("get target version: %w", err)
		}
		if target.LayoutID != layoutID {
			return fmt.Errorf("version %s: %w", versionID, domain.ErrNotFound)
		}
		if err := domain.ValidateSnapshot(target.Regions); err != nil {
			return fmt.Errorf("target version %d: %w", target.VersionNumber, err)
		}

		status, err := s.revertStatus(ctx, layout)
		if err != nil {
			return err
		}

		notes := fmt.Sprintf("revert to version %d", target.VersionNumber)
		created, err = s.versions.Create(ctx, &domain.LayoutVersion{
			LayoutID:  layoutID,
			Status:    status,
			Regions:   domain.CloneSnapshot(target.Regions),
			Notes:     &notes,
			CreatedBy: userID,
		})
		if err != nil {
			return fmt.Errorf("create revert version: %w", err)
		}

		if status == domain.VersionStatusPublished {
			if err := s.archivePublished(ctx, layoutID, created.ID); err != nil {
				return err
			}
		}

		if err := s.regions.ReplaceAll(ctx, layoutID, created.Regions, userID); err != nil {
			return fmt.Errorf("restore working copy: %w", err)
		}

		return s.layouts.SetCurrentVersion(ctx, layoutID, created.ID)
	})
	if err != nil {
		return nil, err
	}

	s.events.VersionCreated(layoutID, *created)

	s.log.InfoContext(ctx, "layout reverted",
		slog.String("layout_id", layoutID.String()),
		slog.String("target_version_id", versionID.String()),
		slog.Int("new_version_number", created.VersionNumber),
		slog.String("status", string(created.Status)),
	)

	return created, nil
}

// revertStatus derives the new version's status from the layout's current
// publish posture.
func (s *Service) revertStatus(ctx context.Context, layout *domain.DashboardLayout) (domain.VersionStatus, error) {
	if layout.CurrentVersionID == nil {
		return domain.VersionStatusDraft, nil
	}
	current, err := s.versions.GetByID(ctx, *layout.CurrentVersionID)
	if err != nil {
		return "", fmt.Errorf("get current version: %w", err)
	}
	if current.Status == domain.VersionStatusPublished {
		return domain.VersionStatusPublished, nil
	}
	return domain.VersionStatusDraft, nil
}
