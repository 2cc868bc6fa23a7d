package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/gridwise/layout-backend/internal/domain"
	"github.com/gridwise/layout-backend/internal/service/collab"
	"github.com/gridwise/layout-backend/pkg/ctxutil"
)

// SessionHeader carries the client's collaboration session id on REST
// fallback requests. Websocket connections get a server-assigned session id
// instead; REST clients mint a uuid once and reuse it for their editing
// session.
const SessionHeader = "X-Session-Id"

// collabService defines the minimal interface needed by CollabHandler.
type collabService interface {
	Join(ctx context.Context, layoutID, regionID uuid.UUID) error
	Leave(ctx context.Context, layoutID, regionID uuid.UUID) error
	Heartbeat(ctx context.Context) error
	UpdatePresence(ctx context.Context, layoutID, regionID uuid.UUID, isEditing bool) error
	AcquireLock(ctx context.Context, layoutID, regionID uuid.UUID) (domain.LockResult, error)
	ReleaseLock(ctx context.Context, layoutID, regionID uuid.UUID) error
	SubmitRegionWrite(ctx context.Context, layoutID uuid.UUID, input collab.WriteInput) (*domain.Region, error)
	ResolveConflict(ctx context.Context, layoutID uuid.UUID, input collab.ResolveInput) (*domain.Region, error)
	DisconnectSession(sessionID uuid.UUID)
}

// CollabHandler is the REST fallback for the realtime channel: every
// websocket command has an endpoint here with the same semantics, for
// clients whose websocket is blocked or down.
type CollabHandler struct {
	svc collabService
	log *slog.Logger
}

// NewCollabHandler creates a CollabHandler.
func NewCollabHandler(svc collabService, logger *slog.Logger) *CollabHandler {
	return &CollabHandler{svc: svc, log: logger.With("handler", "collab")}
}

type updatePresenceRequest struct {
	IsEditing bool `json:"isEditing"`
}

type submitWriteRequest struct {
	BaseRevision int64              `json:"baseRevision"`
	Changes      domain.RegionPatch `json:"changes"`
}

type resolveConflictRequest struct {
	Strategy domain.ResolutionStrategy `json:"strategy"`
}

// Join handles POST /api/layouts/{layout_id}/regions/{region_id}/presence.
func (h *CollabHandler) Join(w http.ResponseWriter, r *http.Request) {
	ctx, layoutID, regionID, ok := h.sessionScope(w, r)
	if !ok {
		return
	}

	if err := h.svc.Join(ctx, layoutID, regionID); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "joined"})
}

// Leave handles DELETE /api/layouts/{layout_id}/regions/{region_id}/presence.
func (h *CollabHandler) Leave(w http.ResponseWriter, r *http.Request) {
	ctx, layoutID, regionID, ok := h.sessionScope(w, r)
	if !ok {
		return
	}

	if err := h.svc.Leave(ctx, layoutID, regionID); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

// UpdatePresence handles PUT /api/layouts/{layout_id}/regions/{region_id}/presence.
func (h *CollabHandler) UpdatePresence(w http.ResponseWriter, r *http.Request) {
	ctx, layoutID, regionID, ok := h.sessionScope(w, r)
	if !ok {
		return
	}

	var req updatePresenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.UpdatePresence(ctx, layoutID, regionID, req.IsEditing); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Heartbeat handles POST /api/sessions/heartbeat.
func (h *CollabHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	ctx, ok := h.sessionCtx(w, r)
	if !ok {
		return
	}

	if err := h.svc.Heartbeat(ctx); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Disconnect handles DELETE /api/sessions. It releases everything the
// session holds, the REST twin of a websocket close.
func (h *CollabHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	h.svc.DisconnectSession(sessionID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}

// AcquireLock handles POST /api/layouts/{layout_id}/regions/{region_id}/lock.
// A denial is a 200 with granted=false and the holder, not an error: being
// beaten to a lock is a normal outcome.
func (h *CollabHandler) AcquireLock(w http.ResponseWriter, r *http.Request) {
	ctx, layoutID, regionID, ok := h.sessionScope(w, r)
	if !ok {
		return
	}

	result, err := h.svc.AcquireLock(ctx, layoutID, regionID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ReleaseLock handles DELETE /api/layouts/{layout_id}/regions/{region_id}/lock.
func (h *CollabHandler) ReleaseLock(w http.ResponseWriter, r *http.Request) {
	ctx, layoutID, regionID, ok := h.sessionScope(w, r)
	if !ok {
		return
	}

	if err := h.svc.ReleaseLock(ctx, layoutID, regionID); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "released"})
}

// SubmitWrite handles PUT /api/layouts/{layout_id}/regions/{region_id}.
func (h *CollabHandler) SubmitWrite(w http.ResponseWriter, r *http.Request) {
	ctx, layoutID, regionID, ok := h.sessionScope(w, r)
	if !ok {
		return
	}

	var req submitWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	region, err := h.svc.SubmitRegionWrite(ctx, layoutID, collab.WriteInput{
		RegionID:     regionID,
		BaseRevision: req.BaseRevision,
		Changes:      req.Changes,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, region)
}

// ResolveConflict handles POST /api/layouts/{layout_id}/regions/{region_id}/conflict.
func (h *CollabHandler) ResolveConflict(w http.ResponseWriter, r *http.Request) {
	ctx, layoutID, regionID, ok := h.sessionScope(w, r)
	if !ok {
		return
	}

	var req resolveConflictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	region, err := h.svc.ResolveConflict(ctx, layoutID, collab.ResolveInput{
		RegionID: regionID,
		Strategy: req.Strategy,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, region)
}

// sessionScope resolves the session context plus the layout and region path
// ids common to most collaboration endpoints.
func (h *CollabHandler) sessionScope(w http.ResponseWriter, r *http.Request) (context.Context, uuid.UUID, uuid.UUID, bool) {
	ctx, ok := h.sessionCtx(w, r)
	if !ok {
		return nil, uuid.Nil, uuid.Nil, false
	}
	layoutID, ok := pathUUID(w, r, "layout_id")
	if !ok {
		return nil, uuid.Nil, uuid.Nil, false
	}
	regionID, ok := pathUUID(w, r, "region_id")
	if !ok {
		return nil, uuid.Nil, uuid.Nil, false
	}
	return ctx, layoutID, regionID, true
}

func (h *CollabHandler) sessionCtx(w http.ResponseWriter, r *http.Request) (context.Context, bool) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return nil, false
	}
	return ctxutil.WithSessionID(r.Context(), sessionID), true
}

func (h *CollabHandler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get(SessionHeader)
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing "+SessionHeader+" header")
		return uuid.Nil, false
	}
	sessionID, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+SessionHeader+" header")
		return uuid.Nil, false
	}
	return sessionID, true
}
