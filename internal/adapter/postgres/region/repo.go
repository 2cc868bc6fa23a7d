// Package region implements the working-copy Region repository using
// PostgreSQL. The revision column is the optimistic-concurrency token: every
// write is a compare-and-swap against the revision the client based its edit
// on, so concurrent writers can never silently overwrite each other even if
// both briefly believe they hold the edit lock.
package region

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/gridwise/layout-backend/internal/adapter/postgres"
	"github.com/gridwise/layout-backend/internal/domain"
)

// Repo provides region persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new region repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const regionColumns = `id, region_type, grid_row, grid_col, row_span, col_span, widget_config, revision, updated_at, updated_by`

const getByIDSQL = `
SELECT ` + regionColumns + `
FROM regions
WHERE layout_id = $1 AND id = $2`

const listByLayoutSQL = `
SELECT ` + regionColumns + `
FROM regions
WHERE layout_id = $1
ORDER BY grid_row, grid_col, id`

const createSQL = `
INSERT INTO regions (id, layout_id, region_type, grid_row, grid_col, row_span, col_span, widget_config, updated_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + regionColumns

const deleteSQL = `
DELETE FROM regions
WHERE layout_id = $1 AND id = $2`

const replaceSQL = `
UPDATE regions
SET region_type = $4,
    grid_row = $5,
    grid_col = $6,
    row_span = $7,
    col_span = $8,
    widget_config = $9,
    revision = $3 + 1,
    updated_at = now(),
    updated_by = $10
WHERE layout_id = $1 AND id = $2 AND revision = $3
RETURNING ` + regionColumns

// Upsert used by ReplaceAll (revert). Existing rows keep their monotonic
// revision counter by bumping it; resurrected rows restart at 1.
const upsertSQL = `
INSERT INTO regions (id, layout_id, region_type, grid_row, grid_col, row_span, col_span, widget_config, updated_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (layout_id, id) DO UPDATE
SET region_type = EXCLUDED.region_type,
    grid_row = EXCLUDED.grid_row,
    grid_col = EXCLUDED.grid_col,
    row_span = EXCLUDED.row_span,
    col_span = EXCLUDED.col_span,
    widget_config = EXCLUDED.widget_config,
    revision = regions.revision + 1,
    updated_at = now(),
    updated_by = EXCLUDED.updated_by`

const deleteMissingSQL = `
DELETE FROM regions
WHERE layout_id = $1 AND NOT (id = ANY($2::uuid[]))`

// GetByID returns one region of a layout.
func (r *Repo) GetByID(ctx context.Context, layoutID, regionID uuid.UUID) (*domain.Region, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, getByIDSQL, layoutID, regionID)
	region, err := scanRegion(row)
	if err != nil {
		return nil, postgres.MapError(err, "region", regionID)
	}

	return region, nil
}

// ListByLayout returns the layout's working-copy regions in grid order.
// Returns an empty slice (not nil) when the layout has no regions.
func (r *Repo) ListByLayout(ctx context.Context, layoutID uuid.UUID) ([]domain.Region, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	rows, err := querier.Query(ctx, listByLayoutSQL, layoutID)
	if err != nil {
		return nil, fmt.Errorf("list regions: %w", err)
	}
	defer rows.Close()

	regions := []domain.Region{}
	for rows.Next() {
		region, err := scanRegion(rows)
		if err != nil {
			return nil, fmt.Errorf("list regions: %w", err)
		}
		regions = append(regions, *region)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list regions: %w", err)
	}

	return regions, nil
}

// Create inserts a new region into the layout's working copy with revision 1.
func (r *Repo) Create(ctx context.Context, layoutID uuid.UUID, region domain.Region) (*domain.Region, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	config, err := marshalConfig(region.WidgetConfig)
	if err != nil {
		return nil, fmt.Errorf("create region: %w", err)
	}

	row := querier.QueryRow(ctx, createSQL,
		region.ID, layoutID, region.RegionType,
		region.GridRow, region.GridCol, region.RowSpan, region.ColSpan,
		config, region.UpdatedBy,
	)
	created, err := scanRegion(row)
	if err != nil {
		return nil, postgres.MapError(err, "region", region.ID)
	}

	return created, nil
}

// Delete removes a region from the working copy.
func (r *Repo) Delete(ctx context.Context, layoutID, regionID uuid.UUID) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := querier.Exec(ctx, deleteSQL, layoutID, regionID)
	if err != nil {
		return postgres.MapError(err, "region", regionID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("region %s: %w", regionID, domain.ErrNotFound)
	}

	return nil
}

// UpdateWithRevision applies a partial patch as a compare-and-swap: the row
// is updated only if its revision still equals baseRevision, and the
// revision is bumped by one in the same statement. A revision mismatch
// returns domain.ErrConflict; a missing row returns domain.ErrNotFound.
func (r *Repo) UpdateWithRevision(
	ctx context.Context,
	layoutID, regionID uuid.UUID,
	baseRevision int64,
	patch domain.RegionPatch,
	updatedBy uuid.UUID,
) (*domain.Region, error) {
	builder := sq.Update("regions").
		Set("revision", baseRevision+1).
		Set("updated_at", sq.Expr("now()")).
		Set("updated_by", updatedBy).
		Where(sq.Eq{"layout_id": layoutID, "id": regionID, "revision": baseRevision}).
		Suffix("RETURNING " + regionColumns).
		PlaceholderFormat(sq.Dollar)

	if patch.RegionType != nil {
		builder = builder.Set("region_type", *patch.RegionType)
	}
	if patch.GridRow != nil {
		builder = builder.Set("grid_row", *patch.GridRow)
	}
	if patch.GridCol != nil {
		builder = builder.Set("grid_col", *patch.GridCol)
	}
	if patch.RowSpan != nil {
		builder = builder.Set("row_span", *patch.RowSpan)
	}
	if patch.ColSpan != nil {
		builder = builder.Set("col_span", *patch.ColSpan)
	}
	if patch.WidgetConfig != nil {
		config, err := marshalConfig(patch.WidgetConfig)
		if err != nil {
			return nil, fmt.Errorf("update region: %w", err)
		}
		builder = builder.Set("widget_config", config)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("update region: build query: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.pool)
	row := querier.QueryRow(ctx, query, args...)

	updated, err := scanRegion(row)
	if err != nil {
		return nil, r.classifyCASFailure(ctx, layoutID, regionID, err)
	}

	return updated, nil
}

// ReplaceWithRevision overwrites every content field of the region as a
// compare-and-swap against baseRevision. Used by conflict resolution, where
// the resolved state is computed in full before writing.
func (r *Repo) ReplaceWithRevision(
	ctx context.Context,
	layoutID uuid.UUID,
	region domain.Region,
	baseRevision int64,
	updatedBy uuid.UUID,
) (*domain.Region, error) {
	config, err := marshalConfig(region.WidgetConfig)
	if err != nil {
		return nil, fmt.Errorf("replace region: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.pool)
	row := querier.QueryRow(ctx, replaceSQL,
		layoutID, region.ID, baseRevision,
		region.RegionType, region.GridRow, region.GridCol, region.RowSpan, region.ColSpan,
		config, updatedBy,
	)

	updated, err := scanRegion(row)
	if err != nil {
		return nil, r.classifyCASFailure(ctx, layoutID, region.ID, err)
	}

	return updated, nil
}

// ReplaceAll makes the working copy match the given snapshot: rows absent
// from the snapshot are deleted, the rest are upserted. Surviving rows keep
// their monotonic revision counters (bumped by one). Intended to run inside
// the revert transaction.
func (r *Repo) ReplaceAll(ctx context.Context, layoutID uuid.UUID, regions []domain.Region, updatedBy uuid.UUID) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	keep := make([]uuid.UUID, len(regions))
	for i, region := range regions {
		keep[i] = region.ID
	}

	if _, err := querier.Exec(ctx, deleteMissingSQL, layoutID, keep); err != nil {
		return fmt.Errorf("replace regions: delete missing: %w", err)
	}

	batch := &pgx.Batch{}
	for _, region := range regions {
		config, err := marshalConfig(region.WidgetConfig)
		if err != nil {
			return fmt.Errorf("replace regions: %w", err)
		}
		batch.Queue(upsertSQL,
			region.ID, layoutID, region.RegionType,
			region.GridRow, region.GridCol, region.RowSpan, region.ColSpan,
			config, updatedBy,
		)
	}

	results := querier.SendBatch(ctx, batch)
	defer results.Close()

	for range regions {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("replace regions: upsert: %w", err)
		}
	}

	return nil
}

// classifyCASFailure distinguishes "row gone" from "revision mismatch" after
// a compare-and-swap returned no row.
func (r *Repo) classifyCASFailure(ctx context.Context, layoutID, regionID uuid.UUID, casErr error) error {
	if !errors.Is(casErr, pgx.ErrNoRows) {
		return postgres.MapError(casErr, "region", regionID)
	}

	if _, err := r.GetByID(ctx, layoutID, regionID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("region %s: %w", regionID, domain.ErrNotFound)
		}
		return err
	}

	return fmt.Errorf("region %s: stale revision: %w", regionID, domain.ErrConflict)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegion(row rowScanner) (*domain.Region, error) {
	var (
		region    domain.Region
		config    []byte
		updatedAt time.Time
	)

	err := row.Scan(
		&region.ID,
		&region.RegionType,
		&region.GridRow,
		&region.GridCol,
		&region.RowSpan,
		&region.ColSpan,
		&config,
		&region.Revision,
		&updatedAt,
		&region.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}

	if len(config) > 0 {
		if err := json.Unmarshal(config, &region.WidgetConfig); err != nil {
			return nil, fmt.Errorf("decode widget_config: %w", err)
		}
	}
	region.UpdatedAt = updatedAt

	return &region, nil
}

func marshalConfig(config map[string]any) ([]byte, error) {
	if config == nil {
		config = map[string]any{}
	}
	data, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("marshal widget_config: %w", err)
	}
	return data, nil
}
