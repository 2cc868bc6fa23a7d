package domain

import (
	"time"

	"github.com/google/uuid"
)

// PresenceRecord marks one session viewing (or editing) a region. Ephemeral:
// held in memory only and reaped once LastSeen falls outside the TTL window.
// A region has many records, one per active session.
type PresenceRecord struct {
	RegionID  uuid.UUID `json:"regionId"`
	UserID    uuid.UUID `json:"userId"`
	SessionID uuid.UUID `json:"sessionId"`
	IsEditing bool      `json:"isEditing"`
	LastSeen  time.Time `json:"lastSeen"`
}

// Stale reports whether the record has outlived ttl at the given instant.
func (p PresenceRecord) Stale(now time.Time, ttl time.Duration) bool {
	return now.Sub(p.LastSeen) > ttl
}
