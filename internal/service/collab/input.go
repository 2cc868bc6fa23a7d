package collab

import (
	"github.com/google/uuid"

	"github.com/gridwise/layout-backend/internal/domain"
)

// WriteInput carries one revision-checked region write.
type WriteInput struct {
	RegionID     uuid.UUID
	BaseRevision int64
	Changes      domain.RegionPatch
}

// Validate checks the input.
func (in WriteInput) Validate() error {
	var errs []domain.FieldError
	if in.RegionID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "regionId", Message: "must not be empty"})
	}
	if in.BaseRevision < 1 {
		errs = append(errs, domain.FieldError{Field: "baseRevision", Message: "must be >= 1"})
	}
	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return in.Changes.Validate()
}

// ResolveInput selects the strategy for a pending conflict.
type ResolveInput struct {
	RegionID uuid.UUID
	Strategy domain.ResolutionStrategy
}

// Validate checks the input.
func (in ResolveInput) Validate() error {
	var errs []domain.FieldError
	if in.RegionID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "regionId", Message: "must not be empty"})
	}
	if !in.Strategy.Valid() {
		errs = append(errs, domain.FieldError{Field: "strategy", Message: "must be one of local, server, merge"})
	}
	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}
