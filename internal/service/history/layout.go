package history

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gridwise/layout-backend/internal/domain"
	"github.com/gridwise/layout-backend/pkg/ctxutil"
)

// LayoutView is a layout together with its current working-copy regions.
type LayoutView struct {
	Layout  *domain.DashboardLayout
	Regions []domain.Region
}

// CreateLayout creates a dashboard layout with its initial regions and a
// version 1 DRAFT snapshot of them, atomically.
func (s *Service) CreateLayout(ctx context.Context, input CreateLayoutInput) (*LayoutView, error) {
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

	var (
		created *domain.DashboardLayout
		version *domain.LayoutVersion
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.layouts.Create(ctx, &domain.DashboardLayout{
			TenantID: tenantID,
			OwnerID:  userID,
			Name:     input.Name,
		})
		if err != nil {
			return fmt.Errorf("create layout: %w", err)
		}

		if len(input.Regions) > 0 {
			if err := s.regions.ReplaceAll(ctx, created.ID, input.Regions, userID); err != nil {
				return fmt.Errorf("seed regions: %w", err)
			}
		}

		version, err = s.versions.Create(ctx, &domain.LayoutVersion{
			LayoutID:  created.ID,
			Status:    domain.VersionStatusDraft,
			Regions:   domain.CloneSnapshot(input.Regions),
			CreatedBy: userID,
		})
		if err != nil {
			return fmt.Errorf("create initial version: %w", err)
		}

		if err := s.layouts.SetCurrentVersion(ctx, created.ID, version.ID); err != nil {
			return fmt.Errorf("set current version: %w", err)
		}
		created.CurrentVersionID = &version.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.VersionCreated(created.ID, *version)

	s.log.InfoContext(ctx, "layout created",
		slog.String("layout_id", created.ID.String()),
		slog.String("tenant_id", tenantID.String()),
		slog.String("name", created.Name),
	)

	regions, err := s.regions.ListByLayout(ctx, created.ID)
	if err != nil {
		return nil, fmt.Errorf("list regions: %w", err)
	}

	return &LayoutView{Layout: created, Regions: regions}, nil
}

// GetLayout returns a layout and its current working-copy regions.
func (s *Service) GetLayout(ctx context.Context, layoutID uuid.UUID) (*LayoutView, error) {
	tenantID, ok := ctxutil.TenantIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	layout, err := s.layouts.GetByID(ctx, tenantID, layoutID)
	if err != nil {
		return nil, fmt.Errorf("get layout: %w", err)
	}
	regions, err := s.regions.ListByLayout(ctx, layoutID)
	if err != nil {
		return nil, fmt.Errorf("list regions: %w", err)
	}

	return &LayoutView{Layout: layout, Regions: regions}, nil
}

// ListLayouts returns the tenant's layouts, newest first.
func (s *Service) ListLayouts(ctx context.Context) ([]*domain.DashboardLayout, error) {
	tenantID, ok := ctxutil.TenantIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	layouts, err := s.layouts.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list layouts: %w", err)
	}
	return layouts, nil
}
