package testhelper

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SeedLayout inserts a bare layout row and returns its id.
func SeedLayout(t *testing.T, pool *pgxpool.Pool, tenantID, ownerID uuid.UUID) uuid.UUID {
	t.Helper()

	var id uuid.UUID
	err := pool.QueryRow(context.Background(),
		`INSERT INTO layouts (tenant_id, owner_id, name) VALUES ($1, $2, 'test layout') RETURNING id`,
		tenantID, ownerID,
	).Scan(&id)
	if err != nil {
		t.Fatalf("seed layout: %v", err)
	}

	return id
}

// SeedRegion inserts a working-copy region at revision 1 and returns its id.
func SeedRegion(t *testing.T, pool *pgxpool.Pool, layoutID, updatedBy uuid.UUID, row, col int) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO regions (id, layout_id, region_type, grid_row, grid_col, row_span, col_span, widget_config, updated_by)
		 VALUES ($1, $2, 'chart', $3, $4, 1, 1, '{"metric":"revenue"}', $5)`,
		id, layoutID, row, col, updatedBy,
	)
	if err != nil {
		t.Fatalf("seed region: %v", err)
	}

	return id
}
