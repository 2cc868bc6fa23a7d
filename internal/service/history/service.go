// Package history implements the append-only version history: snapshot
// creation, the promotion state machine, structural diffs, non-destructive
// revert, and retention pruning. Version rows are never mutated in place;
// every content change creates a new row and moves the layout's
// current-version pointer inside one transaction.
package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gridwise/layout-backend/internal/config"
	"github.com/gridwise/layout-backend/internal/domain"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type layoutRepo interface {
	Create(ctx context.Context, layout *domain.DashboardLayout) (*domain.DashboardLayout, error)
	GetByID(ctx context.Context, tenantID, layoutID uuid.UUID) (*domain.DashboardLayout, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.DashboardLayout, error)
	SetCurrentVersion(ctx context.Context, layoutID, versionID uuid.UUID) error
	LockForVersioning(ctx context.Context, layoutID uuid.UUID) error
}

type versionRepo interface {
	Create(ctx context.Context, v *domain.LayoutVersion) (*domain.LayoutVersion, error)
	GetByID(ctx context.Context, versionID uuid.UUID) (*domain.LayoutVersion, error)
	ListByLayout(ctx context.Context, layoutID uuid.UUID, filter domain.VersionFilter) ([]*domain.LayoutVersion, error)
	UpdateStatus(ctx context.Context, versionID uuid.UUID, status domain.VersionStatus) error
	PruneArchived(ctx context.Context, threshold time.Time, keepPerLayout int) (int64, error)
}

type regionRepo interface {
	ListByLayout(ctx context.Context, layoutID uuid.UUID) ([]domain.Region, error)
	ReplaceAll(ctx context.Context, layoutID uuid.UUID, regions []domain.Region, updatedBy uuid.UUID) error
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// eventSink announces new versions to the layout's room.
type eventSink interface {
	VersionCreated(layoutID uuid.UUID, version domain.LayoutVersion)
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service implements the version-history business logic.
type Service struct {
	layouts   layoutRepo
	versions  versionRepo
	regions   regionRepo
	tx        txManager
	events    eventSink
	log       *slog.Logger
	retention config.RetentionConfig
}

// NewService creates a new history service.
func NewService(
	log *slog.Logger,
	layouts layoutRepo,
	versions versionRepo,
	regions regionRepo,
	tx txManager,
	events eventSink,
	retention config.RetentionConfig,
) *Service {
	return &Service{
		layouts:   layouts,
		versions:  versions,
		regions:   regions,
		tx:        tx,
		events:    events,
		log:       log.With("service", "history"),
		retention: retention,
	}
}
