// Package ws is the real-time collaboration channel: one websocket per
// editing session, rooms keyed by layout id, JSON envelopes both ways.
// Every command the channel accepts has a REST twin; the hub is only a
// delivery fabric and holds no collaboration state of its own.
package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/gridwise/layout-backend/internal/domain"
)

// Hub tracks connected clients per layout room and fans events out to them.
// It implements the event sinks of both the collaboration and the history
// services.
type Hub struct {
	log *slog.Logger

	mu       sync.RWMutex
	rooms    map[uuid.UUID]map[*Client]struct{}
	sessions map[uuid.UUID]*Client
}

// NewHub creates a new Hub.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:      log.With("component", "ws_hub"),
		rooms:    make(map[uuid.UUID]map[*Client]struct{}),
		sessions: make(map[uuid.UUID]*Client),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.rooms[c.layoutID]
	if !ok {
		clients = make(map[*Client]struct{})
		h.rooms[c.layoutID] = clients
	}
	clients[c] = struct{}{}
	h.sessions[c.sessionID] = c
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.rooms[c.layoutID]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, c.layoutID)
		}
	}
	if h.sessions[c.sessionID] == c {
		delete(h.sessions, c.sessionID)
	}
}

// RoomSize returns the number of live connections in a layout's room.
func (h *Hub) RoomSize(layoutID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[layoutID])
}

// broadcast delivers an event to every client in the layout's room. A client
// whose send buffer is full misses the frame; the connection itself is left
// to the ping/pong deadline to reap.
func (h *Hub) broadcast(layoutID uuid.UUID, evt Event) {
	frame, err := json.Marshal(evt)
	if err != nil {
		h.log.Error("marshal event", slog.String("type", evt.Type), slog.Any("error", err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[layoutID] {
		c.trySend(frame)
	}
}

// sendToSession delivers an event to one session only, wherever it is
// connected. The lock is held across the send, like in broadcast: teardown
// closes the client's send channel only after unregister, so a client found
// under the lock cannot have a closed channel.
func (h *Hub) sendToSession(sessionID uuid.UUID, evt Event) {
	frame, err := json.Marshal(evt)
	if err != nil {
		h.log.Error("marshal event", slog.String("type", evt.Type), slog.Any("error", err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if c, ok := h.sessions[sessionID]; ok {
		c.trySend(frame)
	}
}

// --- collaboration event sink ---

// PresenceUpdated broadcasts a region's refreshed presence roster.
func (h *Hub) PresenceUpdated(layoutID, regionID uuid.UUID, records []domain.PresenceRecord) {
	h.broadcast(layoutID, Event{
		Type:    EvtPresenceUpdated,
		Payload: presencePayload{RegionID: regionID, Presence: records},
	})
}

// LockAcquired broadcasts a granted region edit lock.
func (h *Hub) LockAcquired(layoutID uuid.UUID, lock domain.Lock) {
	h.broadcast(layoutID, Event{Type: EvtLockAcquired, Payload: lock})
}

// LockReleased broadcasts a released or reaped region edit lock.
func (h *Hub) LockReleased(layoutID, regionID uuid.UUID) {
	h.broadcast(layoutID, Event{
		Type:    EvtLockReleased,
		Payload: lockReleasedPayload{RegionID: regionID},
	})
}

// RegionUpdated broadcasts a region's new committed state.
func (h *Hub) RegionUpdated(layoutID uuid.UUID, region domain.Region) {
	h.broadcast(layoutID, Event{Type: EvtRegionUpdated, Payload: region})
}

// ConflictDetected notifies only the session whose write conflicted.
func (h *Hub) ConflictDetected(layoutID, sessionID uuid.UUID, conflict domain.ConflictData) {
	h.sendToSession(sessionID, Event{Type: EvtConflictDetected, Payload: conflict})
}

// --- history event sink ---

// VersionCreated broadcasts a new version to the layout's room.
func (h *Hub) VersionCreated(layoutID uuid.UUID, version domain.LayoutVersion) {
	h.broadcast(layoutID, Event{
		Type: EvtVersionCreated,
		Payload: versionSummary{
			LayoutID:      layoutID,
			VersionID:     version.ID,
			VersionNumber: version.VersionNumber,
			Status:        version.Status,
			CreatedBy:     version.CreatedBy,
			CreatedAt:     version.CreatedAt,
		},
	})
}
