// Package layout implements the DashboardLayout repository using PostgreSQL.
// A layout row is mutated only by moving its current_version_id pointer;
// region content lives in layout_versions and the regions working copy.
package layout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/gridwise/layout-backend/internal/adapter/postgres"
	"github.com/gridwise/layout-backend/internal/domain"
)

// Repo provides layout persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new layout repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const layoutColumns = `id, tenant_id, owner_id, name, current_version_id, created_at, updated_at`

const createSQL = `
INSERT INTO layouts (tenant_id, owner_id, name)
VALUES ($1, $2, $3)
RETURNING ` + layoutColumns

const getByIDSQL = `
SELECT ` + layoutColumns + `
FROM layouts
WHERE id = $1 AND tenant_id = $2`

const listByTenantSQL = `
SELECT ` + layoutColumns + `
FROM layouts
WHERE tenant_id = $1
ORDER BY created_at DESC`

const setCurrentVersionSQL = `
UPDATE layouts
SET current_version_id = $2, updated_at = now()
WHERE id = $1`

const lockForVersioningSQL = `
SELECT id FROM layouts WHERE id = $1 FOR UPDATE`

// Create inserts a new layout row owned by the given tenant.
func (r *Repo) Create(ctx context.Context, layout *domain.DashboardLayout) (*domain.DashboardLayout, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, createSQL, layout.TenantID, layout.OwnerID, layout.Name)
	created, err := scanLayout(row)
	if err != nil {
		return nil, fmt.Errorf("create layout: %w", err)
	}

	return created, nil
}

// GetByID returns a layout by primary key with tenant_id filter.
// Returns domain.ErrNotFound if the layout does not exist or belongs to
// another tenant.
func (r *Repo) GetByID(ctx context.Context, tenantID, layoutID uuid.UUID) (*domain.DashboardLayout, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, getByIDSQL, layoutID, tenantID)
	layout, err := scanLayout(row)
	if err != nil {
		return nil, postgres.MapError(err, "layout", layoutID)
	}

	return layout, nil
}

// ListByTenant returns all layouts of a tenant, newest first.
// Returns an empty slice (not nil) when the tenant has no layouts.
func (r *Repo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.DashboardLayout, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, listByTenantSQL, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list layouts: %w", err)
	}
	defer rows.Close()

	layouts := []*domain.DashboardLayout{}
	for rows.Next() {
		layout, err := scanLayout(rows)
		if err != nil {
			return nil, fmt.Errorf("list layouts: %w", err)
		}
		layouts = append(layouts, layout)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list layouts: %w", err)
	}

	return layouts, nil
}

// SetCurrentVersion moves the layout's current-version pointer.
// Intended to be called inside the same transaction that created the version
// row, so "create version + repoint" is atomic.
func (r *Repo) SetCurrentVersion(ctx context.Context, layoutID, versionID uuid.UUID) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := querier.Exec(ctx, setCurrentVersionSQL, layoutID, versionID)
	if err != nil {
		return postgres.MapError(err, "layout", layoutID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("layout %s: %w", layoutID, domain.ErrNotFound)
	}

	return nil
}

// LockForVersioning takes the layout's row lock. Version-number allocation
// runs under this lock, which linearizes version creation per layout.
// Must be called inside a transaction.
func (r *Repo) LockForVersioning(ctx context.Context, layoutID uuid.UUID) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	var id uuid.UUID
	if err := querier.QueryRow(ctx, lockForVersioningSQL, layoutID).Scan(&id); err != nil {
		return postgres.MapError(err, "layout", layoutID)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLayout(row rowScanner) (*domain.DashboardLayout, error) {
	var (
		layout           domain.DashboardLayout
		currentVersionID *uuid.UUID
		createdAt        time.Time
		updatedAt        time.Time
	)

	err := row.Scan(
		&layout.ID,
		&layout.TenantID,
		&layout.OwnerID,
		&layout.Name,
		&currentVersionID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	layout.CurrentVersionID = currentVersionID
	layout.CreatedAt = createdAt
	layout.UpdatedAt = updatedAt

	return &layout, nil
}
