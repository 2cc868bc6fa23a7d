package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/gridwise/layout-backend/internal/domain"
	"github.com/gridwise/layout-backend/internal/service/history"
)

// historyService defines the minimal interface needed by LayoutHandler.
type historyService interface {
	CreateLayout(ctx context.Context, input history.CreateLayoutInput) (*history.LayoutView, error)
	GetLayout(ctx context.Context, layoutID uuid.UUID) (*history.LayoutView, error)
	ListLayouts(ctx context.Context) ([]*domain.DashboardLayout, error)
	SaveDraft(ctx context.Context, layoutID uuid.UUID, input history.SaveDraftInput) (*domain.LayoutVersion, error)
	ListVersions(ctx context.Context, layoutID uuid.UUID, filter domain.VersionFilter) ([]*domain.LayoutVersion, error)
	GetVersion(ctx context.Context, layoutID, versionID uuid.UUID) (*domain.LayoutVersion, error)
	GetVersionDiff(ctx context.Context, layoutID, versionA, versionB uuid.UUID) (*domain.VersionDiff, error)
	PromoteVersion(ctx context.Context, layoutID, versionID uuid.UUID, target domain.VersionStatus) (*domain.LayoutVersion, error)
	RevertToVersion(ctx context.Context, layoutID, versionID uuid.UUID) (*domain.LayoutVersion, error)
}

// LayoutHandler serves layout and version-history REST endpoints.
type LayoutHandler struct {
	svc historyService
	log *slog.Logger
}

// NewLayoutHandler creates a LayoutHandler.
func NewLayoutHandler(svc historyService, logger *slog.Logger) *LayoutHandler {
	return &LayoutHandler{svc: svc, log: logger.With("handler", "layouts")}
}

type createLayoutRequest struct {
	Name    string          `json:"name"`
	Regions []domain.Region `json:"regions"`
}

type saveDraftRequest struct {
	Notes *string `json:"notes,omitempty"`
}

type promoteRequest struct {
	Status domain.VersionStatus `json:"status"`
}

type layoutResponse struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	OwnerID          uuid.UUID       `json:"ownerId"`
	CurrentVersionID *uuid.UUID      `json:"currentVersionId,omitempty"`
	Regions          []domain.Region `json:"regions,omitempty"`
}

type versionResponse struct {
	ID            uuid.UUID            `json:"id"`
	LayoutID      uuid.UUID            `json:"layoutId"`
	VersionNumber int                  `json:"versionNumber"`
	Status        domain.VersionStatus `json:"status"`
	Notes         *string              `json:"notes,omitempty"`
	CreatedBy     uuid.UUID            `json:"createdBy"`
	CreatedAt     string               `json:"createdAt"`
	Regions       []domain.Region      `json:"regions,omitempty"`
}

func toLayoutResponse(view *history.LayoutView) layoutResponse {
	return layoutResponse{
		ID:               view.Layout.ID,
		Name:             view.Layout.Name,
		OwnerID:          view.Layout.OwnerID,
		CurrentVersionID: view.Layout.CurrentVersionID,
		Regions:          view.Regions,
	}
}

func toVersionResponse(v *domain.LayoutVersion, withSnapshot bool) versionResponse {
	resp := versionResponse{
		ID:            v.ID,
		LayoutID:      v.LayoutID,
		VersionNumber: v.VersionNumber,
		Status:        v.Status,
		Notes:         v.Notes,
		CreatedBy:     v.CreatedBy,
		CreatedAt:     v.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
	if withSnapshot {
		resp.Regions = v.Regions
	}
	return resp
}

// Create handles POST /api/layouts.
func (h *LayoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createLayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := h.svc.CreateLayout(r.Context(), history.CreateLayoutInput{
		Name:    req.Name,
		Regions: req.Regions,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, toLayoutResponse(view))
}

// List handles GET /api/layouts.
func (h *LayoutHandler) List(w http.ResponseWriter, r *http.Request) {
	layouts, err := h.svc.ListLayouts(r.Context())
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	out := make([]layoutResponse, 0, len(layouts))
	for _, l := range layouts {
		out = append(out, layoutResponse{
			ID:               l.ID,
			Name:             l.Name,
			OwnerID:          l.OwnerID,
			CurrentVersionID: l.CurrentVersionID,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// Get handles GET /api/layouts/{layout_id}.
func (h *LayoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	layoutID, ok := pathUUID(w, r, "layout_id")
	if !ok {
		return
	}

	view, err := h.svc.GetLayout(r.Context(), layoutID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toLayoutResponse(view))
}

// SaveDraft handles POST /api/layouts/{layout_id}/versions.
func (h *LayoutHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	layoutID, ok := pathUUID(w, r, "layout_id")
	if !ok {
		return
	}

	var req saveDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	version, err := h.svc.SaveDraft(r.Context(), layoutID, history.SaveDraftInput{Notes: req.Notes})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toVersionResponse(version, true))
}

// ListVersions handles GET /api/layouts/{layout_id}/versions.
// Optional query parameters: status, limit, offset.
func (h *LayoutHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	layoutID, ok := pathUUID(w, r, "layout_id")
	if !ok {
		return
	}

	var filter domain.VersionFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.VersionStatus(raw)
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "unknown status filter")
			return
		}
		filter.Status = &status
	}
	filter.Limit = queryInt(r, "limit")
	filter.Offset = queryInt(r, "offset")

	versions, err := h.svc.ListVersions(r.Context(), layoutID, filter)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	out := make([]versionResponse, 0, len(versions))
	for _, v := range versions {
		out = append(out, toVersionResponse(v, false))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetVersion handles GET /api/layouts/{layout_id}/versions/{version_id}.
func (h *LayoutHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	layoutID, ok := pathUUID(w, r, "layout_id")
	if !ok {
		return
	}
	versionID, ok := pathUUID(w, r, "version_id")
	if !ok {
		return
	}

	version, err := h.svc.GetVersion(r.Context(), layoutID, versionID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toVersionResponse(version, true))
}

// Promote handles POST /api/layouts/{layout_id}/versions/{version_id}/status.
func (h *LayoutHandler) Promote(w http.ResponseWriter, r *http.Request) {
	layoutID, ok := pathUUID(w, r, "layout_id")
	if !ok {
		return
	}
	versionID, ok := pathUUID(w, r, "version_id")
	if !ok {
		return
	}

	var req promoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	version, err := h.svc.PromoteVersion(r.Context(), layoutID, versionID, req.Status)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toVersionResponse(version, false))
}

// Diff handles GET /api/layouts/{layout_id}/versions/{version_a}/diff/{version_b}.
func (h *LayoutHandler) Diff(w http.ResponseWriter, r *http.Request) {
	layoutID, ok := pathUUID(w, r, "layout_id")
	if !ok {
		return
	}
	versionA, ok := pathUUID(w, r, "version_a")
	if !ok {
		return
	}
	versionB, ok := pathUUID(w, r, "version_b")
	if !ok {
		return
	}

	diff, err := h.svc.GetVersionDiff(r.Context(), layoutID, versionA, versionB)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, diff)
}

// Revert handles POST /api/layouts/{layout_id}/versions/{version_id}/revert.
func (h *LayoutHandler) Revert(w http.ResponseWriter, r *http.Request) {
	layoutID, ok := pathUUID(w, r, "layout_id")
	if !ok {
		return
	}
	versionID, ok := pathUUID(w, r, "version_id")
	if !ok {
		return
	}

	version, err := h.svc.RevertToVersion(r.Context(), layoutID, versionID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toVersionResponse(version, true))
}

// pathUUID parses a uuid path segment, writing a 400 on failure.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(r *http.Request, name string) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
