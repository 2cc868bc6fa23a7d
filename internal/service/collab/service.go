// Package collab implements the presence and lock coordinator together with
// the optimistic-concurrency conflict detector. All presence, lock, and
// pending-conflict state is held in memory; the server is the single source
// of truth for it. Region content goes through the region repository, whose
// revision-checked writes are what actually prevent silent overwrites; the
// lock only prevents contention.
package collab

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/gridwise/layout-backend/internal/config"
	"github.com/gridwise/layout-backend/internal/domain"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type regionRepo interface {
	GetByID(ctx context.Context, layoutID, regionID uuid.UUID) (*domain.Region, error)
	UpdateWithRevision(ctx context.Context, layoutID, regionID uuid.UUID, baseRevision int64, patch domain.RegionPatch, updatedBy uuid.UUID) (*domain.Region, error)
	ReplaceWithRevision(ctx context.Context, layoutID uuid.UUID, region domain.Region, baseRevision int64, updatedBy uuid.UUID) (*domain.Region, error)
}

// eventSink pushes coordinator events to connected clients. Broadcasts are
// fire-and-forget; ConflictDetected goes only to the initiating session.
type eventSink interface {
	PresenceUpdated(layoutID, regionID uuid.UUID, records []domain.PresenceRecord)
	LockAcquired(layoutID uuid.UUID, lock domain.Lock)
	LockReleased(layoutID, regionID uuid.UUID)
	RegionUpdated(layoutID uuid.UUID, region domain.Region)
	ConflictDetected(layoutID, sessionID uuid.UUID, conflict domain.ConflictData)
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// sessionRegion keys per-session, per-region state: presence records, lock
// base snapshots, and pending conflicts.
type sessionRegion struct {
	SessionID uuid.UUID
	RegionID  uuid.UUID
}

// room holds the ephemeral collaboration state of one layout. The room mutex
// guards the maps only; repository calls never run under it, so writes to
// different regions of the same layout still proceed concurrently.
type room struct {
	mu        sync.Mutex
	presence  map[sessionRegion]*domain.PresenceRecord
	locks     map[uuid.UUID]*domain.Lock // keyed by region id
	bases     map[sessionRegion]domain.Region
	conflicts map[sessionRegion]domain.ConflictData
}

func newRoom() *room {
	return &room{
		presence:  make(map[sessionRegion]*domain.PresenceRecord),
		locks:     make(map[uuid.UUID]*domain.Lock),
		bases:     make(map[sessionRegion]domain.Region),
		conflicts: make(map[sessionRegion]domain.ConflictData),
	}
}

// Service implements the collaboration business logic.
type Service struct {
	regions regionRepo
	events  eventSink
	clock   clockwork.Clock
	cfg     config.CollabConfig
	log     *slog.Logger

	mu      sync.RWMutex
	rooms   map[uuid.UUID]*room                  // keyed by layout id
	members map[uuid.UUID]map[uuid.UUID]struct{} // session id -> layout ids
}

// NewService creates a new collaboration service.
func NewService(
	log *slog.Logger,
	regions regionRepo,
	events eventSink,
	clock clockwork.Clock,
	cfg config.CollabConfig,
) *Service {
	return &Service{
		regions: regions,
		events:  events,
		clock:   clock,
		cfg:     cfg,
		log:     log.With("service", "collab"),
		rooms:   make(map[uuid.UUID]*room),
		members: make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

// roomFor returns the layout's room, creating it on first use, and records
// the session's membership so disconnect cleanup can find it.
func (s *Service) roomFor(layoutID, sessionID uuid.UUID) *room {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[layoutID]
	if !ok {
		r = newRoom()
		s.rooms[layoutID] = r
	}

	layouts, ok := s.members[sessionID]
	if !ok {
		layouts = make(map[uuid.UUID]struct{})
		s.members[sessionID] = layouts
	}
	layouts[layoutID] = struct{}{}

	return r
}

// lookupRoom returns the layout's room without creating one.
func (s *Service) lookupRoom(layoutID uuid.UUID) (*room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[layoutID]
	return r, ok
}

// sessionLayouts snapshots the layouts a session has joined.
func (s *Service) sessionLayouts(sessionID uuid.UUID) []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	layouts := make([]uuid.UUID, 0, len(s.members[sessionID]))
	for id := range s.members[sessionID] {
		layouts = append(layouts, id)
	}
	return layouts
}

func (s *Service) forgetSession(sessionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members, sessionID)
}

// regionPresence snapshots the presence records of one region.
// Callers must hold r.mu.
func (r *room) regionPresence(regionID uuid.UUID) []domain.PresenceRecord {
	records := make([]domain.PresenceRecord, 0, 4)
	for key, rec := range r.presence {
		if key.RegionID == regionID {
			records = append(records, *rec)
		}
	}
	return records
}
