// Package version implements the append-only LayoutVersion repository using
// PostgreSQL. Version rows are immutable once created; the only in-place
// mutation is a status flip, which carries no content. Content corrections
// always produce a new row with a fresh, strictly increasing version_number.
package version

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/gridwise/layout-backend/internal/adapter/postgres"
	"github.com/gridwise/layout-backend/internal/domain"
)

// Repo provides layout-version persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new version repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const versionColumns = `id, layout_id, version_number, status, regions_snapshot, notes, created_at, created_by`

// The version number is allocated inside the insert, under the layout row
// lock the caller is expected to hold (layout.Repo.LockForVersioning).
// A failed transaction therefore never consumes a number.
const createSQL = `
INSERT INTO layout_versions (layout_id, version_number, status, regions_snapshot, notes, created_by)
SELECT $1, COALESCE(MAX(version_number), 0) + 1, $2, $3, $4, $5
FROM layout_versions
WHERE layout_id = $1
RETURNING ` + versionColumns

const getByIDSQL = `
SELECT ` + versionColumns + `
FROM layout_versions
WHERE id = $1`

const updateStatusSQL = `
UPDATE layout_versions
SET status = $2
WHERE id = $1`

const pruneArchivedSQL = `
DELETE FROM layout_versions
WHERE status = 'ARCHIVED'
  AND created_at < $1
  AND id NOT IN (
      SELECT id FROM layout_versions lv
      WHERE lv.layout_id = layout_versions.layout_id
      ORDER BY lv.version_number DESC
      LIMIT $2
  )`

const (
	defaultLimit = 50
	maxLimit     = 200
)

func normalizeFilter(f domain.VersionFilter) domain.VersionFilter {
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// Create appends a new version row for the layout, allocating the next
// version_number. Callers must hold the layout row lock in the surrounding
// transaction; see layout.Repo.LockForVersioning.
func (r *Repo) Create(ctx context.Context, v *domain.LayoutVersion) (*domain.LayoutVersion, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	snapshot, err := marshalSnapshot(v.Regions)
	if err != nil {
		return nil, fmt.Errorf("create version: %w", err)
	}

	row := querier.QueryRow(ctx, createSQL, v.LayoutID, v.Status, snapshot, v.Notes, v.CreatedBy)
	created, err := scanVersion(row)
	if err != nil {
		return nil, postgres.MapError(err, "version", v.LayoutID)
	}

	return created, nil
}

// GetByID returns a version by primary key.
func (r *Repo) GetByID(ctx context.Context, versionID uuid.UUID) (*domain.LayoutVersion, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	row := querier.QueryRow(ctx, getByIDSQL, versionID)
	v, err := scanVersion(row)
	if err != nil {
		return nil, postgres.MapError(err, "version", versionID)
	}

	return v, nil
}

// ListByLayout returns a layout's versions, newest number first.
// Returns an empty slice (not nil) when nothing matches.
func (r *Repo) ListByLayout(ctx context.Context, layoutID uuid.UUID, filter domain.VersionFilter) ([]*domain.LayoutVersion, error) {
	filter = normalizeFilter(filter)

	builder := sq.Select(
		"id", "layout_id", "version_number", "status", "regions_snapshot", "notes", "created_at", "created_by",
	).
		From("layout_versions").
		Where(sq.Eq{"layout_id": layoutID}).
		OrderBy("version_number DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		PlaceholderFormat(sq.Dollar)

	if filter.Status != nil {
		builder = builder.Where(sq.Eq{"status": *filter.Status})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("list versions: build query: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.pool)
	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	versions := []*domain.LayoutVersion{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("list versions: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}

	return versions, nil
}

// UpdateStatus flips a version's promotion status in place. Content is
// untouched; the history service enforces the state machine before calling.
func (r *Repo) UpdateStatus(ctx context.Context, versionID uuid.UUID, status domain.VersionStatus) error {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := querier.Exec(ctx, updateStatusSQL, versionID, status)
	if err != nil {
		return postgres.MapError(err, "version", versionID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("version %s: %w", versionID, domain.ErrNotFound)
	}

	return nil
}

// PruneArchived removes ARCHIVED versions created before the threshold,
// always keeping at least keepPerLayout most recent versions of each layout
// regardless of status. Returns the number of rows deleted.
func (r *Repo) PruneArchived(ctx context.Context, threshold time.Time, keepPerLayout int) (int64, error) {
	querier := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := querier.Exec(ctx, pruneArchivedSQL, threshold, keepPerLayout)
	if err != nil {
		return 0, fmt.Errorf("prune archived versions: %w", err)
	}

	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (*domain.LayoutVersion, error) {
	var (
		v        domain.LayoutVersion
		snapshot []byte
	)

	err := row.Scan(
		&v.ID,
		&v.LayoutID,
		&v.VersionNumber,
		&v.Status,
		&snapshot,
		&v.Notes,
		&v.CreatedAt,
		&v.CreatedBy,
	)
	if err != nil {
		return nil, err
	}

	regions, err := unmarshalSnapshot(snapshot)
	if err != nil {
		return nil, err
	}
	v.Regions = regions

	return &v, nil
}

func marshalSnapshot(regions []domain.Region) ([]byte, error) {
	if regions == nil {
		regions = []domain.Region{}
	}
	data, err := json.Marshal(regions)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

// unmarshalSnapshot decodes a stored snapshot. A snapshot that does not
// decode is reported as domain.ErrMalformedSnapshot rather than a raw JSON
// error so callers can distinguish structural corruption from IO failures.
func unmarshalSnapshot(data []byte) ([]domain.Region, error) {
	var regions []domain.Region
	if err := json.Unmarshal(data, &regions); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w: %v", domain.ErrMalformedSnapshot, err)
	}
	if regions == nil {
		regions = []domain.Region{}
	}
	return regions, nil
}
