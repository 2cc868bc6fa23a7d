package collab

import (
	"sync"

	"github.com/google/uuid"

	"github.com/gridwise/layout-backend/internal/domain"
)

var _ eventSink = &sinkRecorder{}

// sinkRecorder records every pushed event for assertions. Fire-and-forget
// pushes have no behavior to stub, so a recorder is all the tests need.
type sinkRecorder struct {
	mu sync.Mutex

	presenceUpdated []presenceEvent
	lockAcquired    []lockEvent
	lockReleased    []regionEvent
	regionUpdated   []regionUpdateEvent
	conflicts       []conflictEvent
}

type presenceEvent struct {
	LayoutID uuid.UUID
	RegionID uuid.UUID
	Records  []domain.PresenceRecord
}

type lockEvent struct {
	LayoutID uuid.UUID
	Lock     domain.Lock
}

type regionEvent struct {
	LayoutID uuid.UUID
	RegionID uuid.UUID
}

type regionUpdateEvent struct {
	LayoutID uuid.UUID
	Region   domain.Region
}

type conflictEvent struct {
	LayoutID  uuid.UUID
	SessionID uuid.UUID
	Conflict  domain.ConflictData
}

func (r *sinkRecorder) PresenceUpdated(layoutID, regionID uuid.UUID, records []domain.PresenceRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presenceUpdated = append(r.presenceUpdated, presenceEvent{LayoutID: layoutID, RegionID: regionID, Records: records})
}

func (r *sinkRecorder) LockAcquired(layoutID uuid.UUID, lock domain.Lock) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lockAcquired = append(r.lockAcquired, lockEvent{LayoutID: layoutID, Lock: lock})
}

func (r *sinkRecorder) LockReleased(layoutID, regionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lockReleased = append(r.lockReleased, regionEvent{LayoutID: layoutID, RegionID: regionID})
}

func (r *sinkRecorder) RegionUpdated(layoutID uuid.UUID, region domain.Region) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regionUpdated = append(r.regionUpdated, regionUpdateEvent{LayoutID: layoutID, Region: region})
}

func (r *sinkRecorder) ConflictDetected(layoutID, sessionID uuid.UUID, conflict domain.ConflictData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conflicts = append(r.conflicts, conflictEvent{LayoutID: layoutID, SessionID: sessionID, Conflict: conflict})
}

func (r *sinkRecorder) PresenceUpdatedCalls() []presenceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]presenceEvent(nil), r.presenceUpdated...)
}

func (r *sinkRecorder) LockAcquiredCalls() []lockEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]lockEvent(nil), r.lockAcquired...)
}

func (r *sinkRecorder) LockReleasedCalls() []regionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]regionEvent(nil), r.lockReleased...)
}

func (r *sinkRecorder) RegionUpdatedCalls() []regionUpdateEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]regionUpdateEvent(nil), r.regionUpdated...)
}

func (r *sinkRecorder) ConflictDetectedCalls() []conflictEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]conflictEvent(nil), r.conflicts...)
}
