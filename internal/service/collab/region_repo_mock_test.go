package collab

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/gridwise/layout-backend/internal/domain"
)

var _ regionRepo = &regionRepoMock{}

type regionRepoMock struct {
	GetByIDFunc             func(ctx context.Context, layoutID, regionID uuid.UUID) (*domain.Region, error)
	UpdateWithRevisionFunc  func(ctx context.Context, layoutID, regionID uuid.UUID, baseRevision int64, patch domain.RegionPatch, updatedBy uuid.UUID) (*domain.Region, error)
	ReplaceWithRevisionFunc func(ctx context.Context, layoutID uuid.UUID, region domain.Region, baseRevision int64, updatedBy uuid.UUID) (*domain.Region, error)

	calls struct {
		GetByID []struct {
			Ctx      context.Context
			LayoutID uuid.UUID
			RegionID uuid.UUID
		}
		UpdateWithRevision []struct {
			Ctx          context.Context
			LayoutID     uuid.UUID
			RegionID     uuid.UUID
			BaseRevision int64
			Patch        domain.RegionPatch
			UpdatedBy    uuid.UUID
		}
		ReplaceWithRevision []struct {
			Ctx          context.Context
			LayoutID     uuid.UUID
			Region       domain.Region
			BaseRevision int64
			UpdatedBy    uuid.UUID
		}
	}
	lockGetByID             sync.RWMutex
	lockUpdateWithRevision  sync.RWMutex
	lockReplaceWithRevision sync.RWMutex
}

func (mock *regionRepoMock) GetByID(ctx context.Context, layoutID, regionID uuid.UUID) (*domain.Region, error) {
	if mock.GetByIDFunc == nil {
		panic("regionRepoMock.GetByIDFunc: method is nil but regionRepo.GetByID was just called")
	}
	callInfo := struct {
		Ctx      context.Context
		LayoutID uuid.UUID
		RegionID uuid.UUID
	}{Ctx: ctx, LayoutID: layoutID, RegionID: regionID}
	mock.lockGetByID.Lock()
	mock.calls.GetByID = append(mock.calls.GetByID, callInfo)
	mock.lockGetByID.Unlock()
	return mock.GetByIDFunc(ctx, layoutID, regionID)
}

func (mock *regionRepoMock) GetByIDCalls() []struct {
	Ctx      context.Context
	LayoutID uuid.UUID
	RegionID uuid.UUID
} {
	mock.lockGetByID.RLock()
	calls := mock.calls.GetByID
	mock.lockGetByID.RUnlock()
	return calls
}

func (mock *regionRepoMock) UpdateWithRevision(ctx context.Context, layoutID, regionID uuid.UUID, baseRevision int64, patch domain.RegionPatch, updatedBy uuid.UUID) (*domain.Region, error) {
	if mock.UpdateWithRevisionFunc == nil {
		panic("regionRepoMock.UpdateWithRevisionFunc: method is nil but regionRepo.UpdateWithRevision was just called")
	}
	callInfo := struct {
		Ctx          context.Context
		LayoutID     uuid.UUID
		RegionID     uuid.UUID
		BaseRevision int64
		Patch        domain.RegionPatch
		UpdatedBy    uuid.UUID
	}{Ctx: ctx, LayoutID: layoutID, RegionID: regionID, BaseRevision: baseRevision, Patch: patch, UpdatedBy: updatedBy}
	mock.lockUpdateWithRevision.Lock()
	mock.calls.UpdateWithRevision = append(mock.calls.UpdateWithRevision, callInfo)
	mock.lockUpdateWithRevision.Unlock()
	return mock.UpdateWithRevisionFunc(ctx, layoutID, regionID, baseRevision, patch, updatedBy)
}

func (mock *regionRepoMock) UpdateWithRevisionCalls() []struct {
	Ctx          context.Context
	LayoutID     uuid.UUID
	RegionID     uuid.UUID
	BaseRevision int64
	Patch        domain.RegionPatch
	UpdatedBy    uuid.UUID
} {
	mock.lockUpdateWithRevision.RLock()
	calls := mock.calls.UpdateWithRevision
	mock.lockUpdateWithRevision.RUnlock()
	return calls
}

func (mock *regionRepoMock) ReplaceWithRevision(ctx context.Context, layoutID uuid.UUID, region domain.Region, baseRevision int64, updatedBy uuid.UUID) (*domain.Region, error) {
	if mock.ReplaceWithRevisionFunc == nil {
		panic("regionRepoMock.ReplaceWithRevisionFunc: method is nil but regionRepo.ReplaceWithRevision was just called")
	}
	callInfo := struct {
		Ctx          context.Context
		LayoutID     uuid.UUID
		Region       domain.Region
		BaseRevision int64
		UpdatedBy    uuid.UUID
	}{Ctx: ctx, LayoutID: layoutID, Region: region, BaseRevision: baseRevision, UpdatedBy: updatedBy}
	mock.lockReplaceWithRevision.Lock()
	mock.calls.ReplaceWithRevision = append(mock.calls.ReplaceWithRevision, callInfo)
	mock.lockReplaceWithRevision.Unlock()
	return mock.ReplaceWithRevisionFunc(ctx, layoutID, region, baseRevision, updatedBy)
}

func (mock *regionRepoMock) ReplaceWithRevisionCalls() []struct {
	Ctx          context.Context
	LayoutID     uuid.UUID
	Region       domain.Region
	BaseRevision int64
	UpdatedBy    uuid.UUID
} {
	mock.lockReplaceWithRevision.RLock()
	calls := mock.calls.ReplaceWithRevision
	mock.lockReplaceWithRevision.RUnlock()
	return calls
}
