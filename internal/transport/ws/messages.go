package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/gridwise/layout-backend/internal/domain"
)

// Commands (client → server). Every command is also available as a REST
// endpoint for clients whose websocket is blocked or down.
const (
	CmdJoin            = "join"
	CmdLeave           = "leave"
	CmdHeartbeat       = "heartbeat"
	CmdUpdatePresence  = "update_presence"
	CmdAcquireLock     = "acquire_lock"
	CmdReleaseLock     = "release_lock"
	CmdSubmitWrite     = "submit_write"
	CmdResolveConflict = "resolve_conflict"
)

// Events (server → client).
const (
	EvtPresenceUpdated  = "presence_updated"
	EvtLockAcquired     = "lock_acquired"
	EvtLockReleased     = "lock_released"
	EvtRegionUpdated    = "region_updated"
	EvtConflictDetected = "conflict_detected"
	EvtVersionCreated   = "version_created"
	EvtAck              = "ack"
	EvtError            = "error"
)

// Envelope is one inbound websocket frame. Ref is an optional client
// correlation id echoed back on the matching ack or error.
type Envelope struct {
	Type    string          `json:"type"`
	Ref     string          `json:"ref,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Event is one outbound websocket frame.
type Event struct {
	Type    string `json:"type"`
	Ref     string `json:"ref,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// --- command payloads ---

type regionRef struct {
	RegionID uuid.UUID `json:"regionId"`
}

type updatePresencePayload struct {
	RegionID  uuid.UUID `json:"regionId"`
	IsEditing bool      `json:"isEditing"`
}

type submitWritePayload struct {
	RegionID     uuid.UUID          `json:"regionId"`
	BaseRevision int64              `json:"baseRevision"`
	Changes      domain.RegionPatch `json:"changes"`
}

type resolveConflictPayload struct {
	RegionID uuid.UUID                 `json:"regionId"`
	Strategy domain.ResolutionStrategy `json:"strategy"`
}

// --- event payloads ---

type presencePayload struct {
	RegionID uuid.UUID               `json:"regionId"`
	Presence []domain.PresenceRecord `json:"presence"`
}

type lockReleasedPayload struct {
	RegionID uuid.UUID `json:"regionId"`
}

// versionSummary announces a new version without shipping its full region
// snapshot to every room member; clients fetch the snapshot on demand.
type versionSummary struct {
	LayoutID      uuid.UUID            `json:"layoutId"`
	VersionID     uuid.UUID            `json:"versionId"`
	VersionNumber int                  `json:"versionNumber"`
	Status        domain.VersionStatus `json:"status"`
	CreatedBy     uuid.UUID            `json:"createdBy"`
	CreatedAt     time.Time            `json:"createdAt"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
