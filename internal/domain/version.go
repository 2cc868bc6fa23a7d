package domain

import (
	"time"

	"github.com/google/uuid"
)

// VersionStatus is the promotion state of a layout version.
type VersionStatus string

const (
	VersionStatusDraft     VersionStatus = "DRAFT"
	VersionStatusPreview   VersionStatus = "PREVIEW"
	VersionStatusPublished VersionStatus = "PUBLISHED"
	VersionStatusArchived  VersionStatus = "ARCHIVED"
)

// Valid reports whether s is a known status.
func (s VersionStatus) Valid() bool {
	switch s {
	case VersionStatusDraft, VersionStatusPreview, VersionStatusPublished, VersionStatusArchived:
		return true
	}
	return false
}

// CanTransitionTo reports whether the promotion state machine allows moving
// from s to target. PUBLISHED may only be archived when superseded by a newer
// PUBLISHED version; that guard lives in the history service, which is the
// only caller passing PUBLISHED→ARCHIVED.
func (s VersionStatus) CanTransitionTo(target VersionStatus) bool {
	switch s {
	case VersionStatusDraft:
		return target == VersionStatusPreview || target == VersionStatusArchived
	case VersionStatusPreview:
		return target == VersionStatusPublished || target == VersionStatusArchived
	case VersionStatusPublished:
		return target == VersionStatusArchived
	default:
		return false
	}
}

// LayoutVersion is an immutable snapshot of all regions in a layout at a
// point in promotion history. VersionNumber is strictly increasing per
// layout, assigned at creation, never reused. Corrections produce new
// versions; existing rows are never rewritten (status flips excepted, since
// they carry no content).
type LayoutVersion struct {
	ID            uuid.UUID
	LayoutID      uuid.UUID
	VersionNumber int
	Status        VersionStatus
	Regions       []Region
	Notes         *string
	CreatedAt     time.Time
	CreatedBy     uuid.UUID
}

// ValidateSnapshot checks the structural integrity of a region snapshot:
// non-nil stable ids, no duplicates, sane grid placement. A failure means
// the snapshot must not be diffed or reverted to.
func ValidateSnapshot(regions []Region) error {
	seen := make(map[uuid.UUID]struct{}, len(regions))
	for _, r := range regions {
		if r.ID == uuid.Nil {
			return ErrMalformedSnapshot
		}
		if _, dup := seen[r.ID]; dup {
			return ErrMalformedSnapshot
		}
		seen[r.ID] = struct{}{}
		if r.RowSpan < 1 || r.ColSpan < 1 || r.GridRow < 0 || r.GridCol < 0 {
			return ErrMalformedSnapshot
		}
	}
	return nil
}

// CloneSnapshot deep-copies a region snapshot.
func CloneSnapshot(regions []Region) []Region {
	out := make([]Region, len(regions))
	for i, r := range regions {
		out[i] = r.Clone()
	}
	return out
}

// VersionFilter narrows a layout's version-history listing.
type VersionFilter struct {
	// Status restricts results to a single promotion status. nil = all.
	Status *VersionStatus

	// Limit is the maximum number of versions to return.
	Limit int

	// Offset is the number of versions to skip.
	Offset int
}
