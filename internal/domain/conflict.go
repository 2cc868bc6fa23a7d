package domain

import (
	"time"

	"github.com/google/uuid"
)

// ResolutionStrategy selects how a detected write conflict is resolved.
type ResolutionStrategy string

const (
	// ResolutionLocal force-writes the client's intended state on top of the
	// current server state; server-side changes since the client's base are
	// discarded.
	ResolutionLocal ResolutionStrategy = "local"

	// ResolutionServer discards the client's changes entirely; the client
	// adopts the current server state.
	ResolutionServer ResolutionStrategy = "server"

	// ResolutionMerge takes the local value for every field the client
	// touched and the server value for every other field. Field-granular
	// ownership only; no content-aware merging within a field.
	ResolutionMerge ResolutionStrategy = "merge"
)

// Valid reports whether s is a known strategy.
func (s ResolutionStrategy) Valid() bool {
	switch s {
	case ResolutionLocal, ResolutionServer, ResolutionMerge:
		return true
	}
	return false
}

// ConflictData captures one optimistic-concurrency failure for the initiating
// session. Transient: created when a write's revision token no longer matches
// the server's, discarded after resolution.
type ConflictData struct {
	RegionID      uuid.UUID   `json:"regionId"`
	LocalVersion  Region      `json:"localVersion"`
	ServerVersion Region      `json:"serverVersion"`
	LocalChanges  RegionPatch `json:"localChanges"`
	DetectedAt    time.Time   `json:"detectedAt"`
}
