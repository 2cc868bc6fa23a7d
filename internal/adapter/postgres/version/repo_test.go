package version

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gridwise/layout-backend/internal/adapter/postgres/testhelper"
	"github.com/gridwise/layout-backend/internal/domain"
)

func TestCreate_AllocatesSequentialNumbers(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	repo := New(pool)
	ctx := context.Background()

	userID := uuid.New()
	layoutID := testhelper.SeedLayout(t, pool, uuid.New(), userID)

	for want := 1; want <= 3; want++ {
		v, err := repo.Create(ctx, &domain.LayoutVersion{
			LayoutID:  layoutID,
			Status:    domain.VersionStatusDraft,
			Regions:   []domain.Region{},
			CreatedBy: userID,
		})
		if err != nil {
			t.Fatalf("create version %d: %v", want, err)
		}
		if v.VersionNumber != want {
			t.Errorf("version number: got %d, want %d", v.VersionNumber, want)
		}
	}
}

func TestCreate_NumbersAreIndependentPerLayout(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	repo := New(pool)
	ctx := context.Background()

	userID := uuid.New()
	layoutA := testhelper.SeedLayout(t, pool, uuid.New(), userID)
	layoutB := testhelper.SeedLayout(t, pool, uuid.New(), userID)

	if _, err := repo.Create(ctx, &domain.LayoutVersion{LayoutID: layoutA, Status: domain.VersionStatusDraft, CreatedBy: userID}); err != nil {
		t.Fatalf("create on A: %v", err)
	}
	v, err := repo.Create(ctx, &domain.LayoutVersion{LayoutID: layoutB, Status: domain.VersionStatusDraft, CreatedBy: userID})
	if err != nil {
		t.Fatalf("create on B: %v", err)
	}
	if v.VersionNumber != 1 {
		t.Errorf("layout B first version: got %d, want 1", v.VersionNumber)
	}
}

func TestCreate_RoundTripsSnapshot(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	repo := New(pool)
	ctx := context.Background()

	userID := uuid.New()
	layoutID := testhelper.SeedLayout(t, pool, uuid.New(), userID)

	regions := []domain.Region{
		{
			ID:           uuid.New(),
			RegionType:   "chart",
			GridRow:      0,
			GridCol:      0,
			RowSpan:      2,
			ColSpan:      3,
			WidgetConfig: map[string]any{"metric": "revenue", "window": "30d"},
			Revision:     4,
		},
	}

	created, err := repo.Create(ctx, &domain.LayoutVersion{
		LayoutID:  layoutID,
		Status:    domain.VersionStatusDraft,
		Regions:   regions,
		CreatedBy: userID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	loaded, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(loaded.Regions) != 1 {
		t.Fatalf("got %d regions, want 1", len(loaded.Regions))
	}
	if !loaded.Regions[0].Equal(regions[0]) {
		t.Errorf("snapshot content changed in round trip:\ngot  %+v\nwant %+v", loaded.Regions[0], regions[0])
	}
}

func TestGetByID_Missing(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	repo := New(pool)

	_, err := repo.GetByID(context.Background(), uuid.New())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestListByLayout_FiltersAndOrders(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	repo := New(pool)
	ctx := context.Background()

	userID := uuid.New()
	layoutID := testhelper.SeedLayout(t, pool, uuid.New(), userID)

	statuses := []domain.VersionStatus{
		domain.VersionStatusArchived,
		domain.VersionStatusPublished,
		domain.VersionStatusDraft,
	}
	for _, status := range statuses {
		if _, err := repo.Create(ctx, &domain.LayoutVersion{LayoutID: layoutID, Status: status, CreatedBy: userID}); err != nil {
			t.Fatalf("create %s: %v", status, err)
		}
	}

	all, err := repo.ListByLayout(ctx, layoutID, domain.VersionFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d versions, want 3", len(all))
	}
	for i, want := range []int{3, 2, 1} {
		if all[i].VersionNumber != want {
			t.Errorf("position %d: got number %d, want %d", i, all[i].VersionNumber, want)
		}
	}

	published := domain.VersionStatusPublished
	filtered, err := repo.ListByLayout(ctx, layoutID, domain.VersionFilter{Status: &published})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Status != domain.VersionStatusPublished {
		t.Errorf("status filter: got %+v", filtered)
	}

	page, err := repo.ListByLayout(ctx, layoutID, domain.VersionFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if len(page) != 1 || page[0].VersionNumber != 2 {
		t.Errorf("pagination: got %+v", page)
	}
}

func TestUpdateStatus(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	repo := New(pool)
	ctx := context.Background()

	userID := uuid.New()
	layoutID := testhelper.SeedLayout(t, pool, uuid.New(), userID)

	v, err := repo.Create(ctx, &domain.LayoutVersion{LayoutID: layoutID, Status: domain.VersionStatusDraft, CreatedBy: userID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := repo.UpdateStatus(ctx, v.ID, domain.VersionStatusPreview); err != nil {
		t.Fatalf("update status: %v", err)
	}

	reloaded, err := repo.GetByID(ctx, v.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.Status != domain.VersionStatusPreview {
		t.Errorf("status: got %s, want %s", reloaded.Status, domain.VersionStatusPreview)
	}

	if err := repo.UpdateStatus(ctx, uuid.New(), domain.VersionStatusArchived); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing version: got %v, want ErrNotFound", err)
	}
}

func TestPruneArchived(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	repo := New(pool)
	ctx := context.Background()

	userID := uuid.New()
	layoutID := testhelper.SeedLayout(t, pool, uuid.New(), userID)

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		v, err := repo.Create(ctx, &domain.LayoutVersion{LayoutID: layoutID, Status: domain.VersionStatusArchived, CreatedBy: userID})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, v.ID)
	}
	backdate(t, pool, ids, time.Now().Add(-48*time.Hour))

	// Threshold covers everything but the retention floor keeps the two
	// highest-numbered versions.
	deleted, err := repo.PruneArchived(ctx, time.Now(), 2)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted: got %d, want 3", deleted)
	}

	remaining, err := repo.ListByLayout(ctx, layoutID, domain.VersionFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("got %d versions left, want 2", len(remaining))
	}
	if remaining[0].VersionNumber != 5 || remaining[1].VersionNumber != 4 {
		t.Errorf("retention floor kept wrong versions: %d, %d", remaining[0].VersionNumber, remaining[1].VersionNumber)
	}
}

func TestPruneArchived_SkipsRecentAndNonArchived(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	repo := New(pool)
	ctx := context.Background()

	userID := uuid.New()
	layoutID := testhelper.SeedLayout(t, pool, uuid.New(), userID)

	published, err := repo.Create(ctx, &domain.LayoutVersion{LayoutID: layoutID, Status: domain.VersionStatusPublished, CreatedBy: userID})
	if err != nil {
		t.Fatalf("create published: %v", err)
	}
	recent, err := repo.Create(ctx, &domain.LayoutVersion{LayoutID: layoutID, Status: domain.VersionStatusArchived, CreatedBy: userID})
	if err != nil {
		t.Fatalf("create archived: %v", err)
	}
	backdate(t, pool, []uuid.UUID{published.ID}, time.Now().Add(-72*time.Hour))

	deleted, err := repo.PruneArchived(ctx, time.Now().Add(-24*time.Hour), 0)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted: got %d, want 0", deleted)
	}

	if _, err := repo.GetByID(ctx, recent.ID); err != nil {
		t.Errorf("recent archived version must survive: %v", err)
	}
}

func backdate(t *testing.T, pool *pgxpool.Pool, ids []uuid.UUID, to time.Time) {
	t.Helper()
	for _, id := range ids {
		if _, err := pool.Exec(context.Background(), `UPDATE layout_versions SET created_at = $2 WHERE id = $1`, id, to); err != nil {
			t.Fatalf("backdate version %s: %v", id, err)
		}
	}
}
