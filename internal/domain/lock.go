package domain

import (
	"time"

	"github.com/google/uuid"
)

// Lock is a time-bounded mutual-exclusion grant giving one session exclusive
// write intent over a region. At most one live Lock exists per region; the
// server is the single source of truth. Ephemeral, never persisted.
type Lock struct {
	RegionID        uuid.UUID `json:"regionId"`
	HolderUserID    uuid.UUID `json:"holderUserId"`
	HolderSessionID uuid.UUID `json:"holderSessionId"`
	AcquiredAt      time.Time `json:"acquiredAt"`
	ExpiresAt       time.Time `json:"expiresAt"`
}

// Expired reports whether the lock's TTL has passed. An expired lock is
// acquirable by a new requester even without an explicit release.
func (l Lock) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// HeldBy reports whether the given session is the current holder.
func (l Lock) HeldBy(sessionID uuid.UUID) bool {
	return l.HolderSessionID == sessionID
}

// LockResult is the outcome of an acquire attempt. When not granted, Holder
// identifies the user currently holding the lock.
type LockResult struct {
	Granted bool       `json:"granted"`
	Holder  *uuid.UUID `json:"holder,omitempty"`
}
