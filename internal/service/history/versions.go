package history

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gridwise/layout-backend/internal/domain"
	"github.com/gridwise/layout-backend/pkg/ctxutil"
)

// ListVersions returns a layout's version history, newest number first.
func (s *Service) ListVersions(ctx context.Context, layoutID uuid.UUID, filter domain.VersionFilter) ([]*domain.LayoutVersion, error) {
	tenantID, ok := ctxutil.TenantIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	if _, err := s.layouts.GetByID(ctx, tenantID, layoutID); err != nil {
		return nil, fmt.Errorf("get layout: %w", err)
	}

	versions, err := s.versions.ListByLayout(ctx, layoutID, filter)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return versions, nil
}

// GetVersion returns one version of a layout, snapshot included.
func (s *Service) GetVersion(ctx context.Context, layoutID, versionID uuid.UUID) (*domain.LayoutVersion, error) {
	tenantID, ok := ctxutil.TenantIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	if _, err := s.layouts.GetByID(ctx, tenantID, layoutID); err != nil {
		return nil, fmt.Errorf("get layout: %w", err)
	}

	version, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return nil, fmt.Errorf("get version: %w", err)
	}
	if version.LayoutID != layoutID {
		return nil, fmt.Errorf("version %s: %w", versionID, domain.ErrNotFound)
	}
	return version, nil
}

// GetVersionDiff computes the structural diff between two versions of the
// same layout, matching regions by stable id. Pure apart from the loads; a
// snapshot that fails structural validation surfaces ErrMalformedSnapshot
// rather than an empty diff.
func (s *Service) GetVersionDiff(ctx context.Context, layoutID, versionA, versionB uuid.UUID) (*domain.VersionDiff, error) {
	a, err := s.GetVersion(ctx, layoutID, versionA)
	if err != nil {
		return nil, err
	}
	b, err := s.GetVersion(ctx, layoutID, versionB)
	if err != nil {
		return nil, err
	}

	diff, err := domain.DiffSnapshots(a.Regions, b.Regions)
	if err != nil {
		return nil, fmt.Errorf("diff versions %d..%d: %w", a.VersionNumber, b.VersionNumber, err)
	}
	return &diff, nil
}
