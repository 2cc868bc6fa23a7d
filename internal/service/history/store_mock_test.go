package history

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gridwise/layout-backend/internal/domain"
)

// memStore is an in-memory stand-in for the three repositories with the same
// observable semantics: per-layout version numbering, tenant-scoped lookups,
// and revision-bumping working-copy replacement. The repo methods share names
// (Create, GetByID, ListByLayout), so the service sees it through the three
// view types below. RunInTx just runs the function; failure injection happens
// at the repo methods instead.
type memStore struct {
	mu       sync.Mutex
	layouts  map[uuid.UUID]*domain.DashboardLayout
	versions map[uuid.UUID]*domain.LayoutVersion
	regions  map[uuid.UUID]map[uuid.UUID]domain.Region

	failCreateVersion error
	failReplaceAll    error
}

func newMemStore() *memStore {
	return &memStore{
		layouts:  make(map[uuid.UUID]*domain.DashboardLayout),
		versions: make(map[uuid.UUID]*domain.LayoutVersion),
		regions:  make(map[uuid.UUID]map[uuid.UUID]domain.Region),
	}
}

type layoutStore struct{ *memStore }
type versionStore struct{ *memStore }
type regionStore struct{ *memStore }

var (
	_ layoutRepo  = layoutStore{}
	_ versionRepo = versionStore{}
	_ regionRepo  = regionStore{}
	_ txManager   = &memStore{}
)

func (m *memStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- layoutRepo ---

func (s layoutStore) Create(ctx context.Context, layout *domain.DashboardLayout) (*domain.DashboardLayout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := *layout
	created.ID = uuid.New()
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	s.layouts[created.ID] = &created
	s.regions[created.ID] = make(map[uuid.UUID]domain.Region)

	out := created
	return &out, nil
}

func (s layoutStore) GetByID(ctx context.Context, tenantID, layoutID uuid.UUID) (*domain.DashboardLayout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	layout, ok := s.layouts[layoutID]
	if !ok || layout.TenantID != tenantID {
		return nil, fmt.Errorf("layout %s: %w", layoutID, domain.ErrNotFound)
	}
	out := *layout
	return &out, nil
}

func (s layoutStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.DashboardLayout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*domain.DashboardLayout{}
	for _, layout := range s.layouts {
		if layout.TenantID == tenantID {
			copied := *layout
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s layoutStore) SetCurrentVersion(ctx context.Context, layoutID, versionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	layout, ok := s.layouts[layoutID]
	if !ok {
		return fmt.Errorf("layout %s: %w", layoutID, domain.ErrNotFound)
	}
	id := versionID
	layout.CurrentVersionID = &id
	return nil
}

func (s layoutStore) LockForVersioning(ctx context.Context, layoutID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.layouts[layoutID]; !ok {
		return fmt.Errorf("layout %s: %w", layoutID, domain.ErrNotFound)
	}
	return nil
}

// --- versionRepo ---

func (s versionStore) Create(ctx context.Context, v *domain.LayoutVersion) (*domain.LayoutVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failCreateVersion != nil {
		return nil, s.failCreateVersion
	}

	next := 1
	for _, existing := range s.versions {
		if existing.LayoutID == v.LayoutID && existing.VersionNumber >= next {
			next = existing.VersionNumber + 1
		}
	}

	created := *v
	created.ID = uuid.New()
	created.VersionNumber = next
	created.CreatedAt = time.Now()
	created.Regions = domain.CloneSnapshot(v.Regions)
	s.versions[created.ID] = &created

	out := created
	out.Regions = domain.CloneSnapshot(created.Regions)
	return &out, nil
}

func (s versionStore) GetByID(ctx context.Context, versionID uuid.UUID) (*domain.LayoutVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.versions[versionID]
	if !ok {
		return nil, fmt.Errorf("version %s: %w", versionID, domain.ErrNotFound)
	}
	out := *v
	out.Regions = domain.CloneSnapshot(v.Regions)
	return &out, nil
}

func (s versionStore) ListByLayout(ctx context.Context, layoutID uuid.UUID, filter domain.VersionFilter) ([]*domain.LayoutVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*domain.LayoutVersion{}
	for _, v := range s.versions {
		if v.LayoutID != layoutID {
			continue
		}
		if filter.Status != nil && v.Status != *filter.Status {
			continue
		}
		copied := *v
		copied.Regions = domain.CloneSnapshot(v.Regions)
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber > out[j].VersionNumber })
	return out, nil
}

func (s versionStore) UpdateStatus(ctx context.Context, versionID uuid.UUID, status domain.VersionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.versions[versionID]
	if !ok {
		return fmt.Errorf("version %s: %w", versionID, domain.ErrNotFound)
	}
	v.Status = status
	return nil
}

func (s versionStore) PruneArchived(ctx context.Context, threshold time.Time, keepPerLayout int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, v := range s.versions {
		if v.Status == domain.VersionStatusArchived && v.CreatedAt.Before(threshold) {
			delete(s.versions, id)
			deleted++
		}
	}
	return deleted, nil
}

// --- regionRepo ---

func (s regionStore) ListByLayout(ctx context.Context, layoutID uuid.UUID) ([]domain.Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.Region{}
	for _, r := range s.regions[layoutID] {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (s regionStore) ReplaceAll(ctx context.Context, layoutID uuid.UUID, regions []domain.Region, updatedBy uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failReplaceAll != nil {
		return s.failReplaceAll
	}

	existing := s.regions[layoutID]
	next := make(map[uuid.UUID]domain.Region, len(regions))
	for _, r := range regions {
		replaced := r.Clone()
		if prev, ok := existing[r.ID]; ok {
			replaced.Revision = prev.Revision + 1
		} else {
			replaced.Revision = 1
		}
		replaced.UpdatedBy = updatedBy
		next[r.ID] = replaced
	}
	s.regions[layoutID] = next
	return nil
}
