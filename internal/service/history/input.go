package history

import (
	"strings"

	"github.com/gridwise/layout-backend/internal/domain"
)

const maxNameLength = 120

// CreateLayoutInput carries a new dashboard layout and its initial regions.
type CreateLayoutInput struct {
	Name    string
	Regions []domain.Region
}

// Validate checks the input.
func (in CreateLayoutInput) Validate() error {
	var errs []domain.FieldError
	name := strings.TrimSpace(in.Name)
	if name == "" {
		errs = append(errs, domain.FieldError{Field: "name", Message: "must not be empty"})
	}
	if len(name) > maxNameLength {
		errs = append(errs, domain.FieldError{Field: "name", Message: "too long"})
	}
	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return domain.ValidateSnapshot(in.Regions)
}

// SaveDraftInput carries an optional annotation for a draft snapshot.
type SaveDraftInput struct {
	Notes *string
}

// Validate checks the input.
func (in SaveDraftInput) Validate() error {
	if in.Notes != nil && len(*in.Notes) > 1000 {
		return domain.NewValidationError("notes", "too long")
	}
	return nil
}
