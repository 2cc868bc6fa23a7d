package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// ModifiedRegion carries the old and new states of a region present in both
// snapshots with at least one differing content field.
type ModifiedRegion struct {
	Old Region `json:"old"`
	New Region `json:"new"`
}

// VersionDiff is the structural difference between two version snapshots.
// The three partitions are pairwise disjoint over region ids and their union
// covers exactly ids(A) ∪ ids(B). Pure and derived; never stored.
type VersionDiff struct {
	Added    []Region         `json:"added"`
	Removed  []Region         `json:"removed"`
	Modified []ModifiedRegion `json:"modified"`
}

// Empty reports whether the diff has no entries.
func (d VersionDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Modified) == 0
}

// DiffSnapshots computes the structural diff from snapshot a to snapshot b.
// Regions are matched by stable id, never by position, so reordering alone
// produces an empty diff. Both snapshots are validated first; a malformed
// snapshot yields ErrMalformedSnapshot rather than a silently empty diff.
func DiffSnapshots(a, b []Region) (VersionDiff, error) {
	if err := ValidateSnapshot(a); err != nil {
		return VersionDiff{}, fmt.Errorf("snapshot a: %w", err)
	}
	if err := ValidateSnapshot(b); err != nil {
		return VersionDiff{}, fmt.Errorf("snapshot b: %w", err)
	}

	inA := make(map[uuid.UUID]Region, len(a))
	for _, r := range a {
		inA[r.ID] = r
	}
	inB := make(map[uuid.UUID]Region, len(b))
	for _, r := range b {
		inB[r.ID] = r
	}

	diff := VersionDiff{
		Added:    []Region{},
		Removed:  []Region{},
		Modified: []ModifiedRegion{},
	}

	// Iterate snapshots, not maps, to keep output order deterministic.
	for _, r := range b {
		old, ok := inA[r.ID]
		if !ok {
			diff.Added = append(diff.Added, r)
			continue
		}
		if !old.Equal(r) {
			diff.Modified = append(diff.Modified, ModifiedRegion{Old: old, New: r})
		}
	}
	for _, r := range a {
		if _, ok := inB[r.ID]; !ok {
			diff.Removed = append(diff.Removed, r)
		}
	}

	return diff, nil
}
