package domain

import (
	"maps"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Region is a positioned, sized widget slot within a dashboard layout.
// Its ID is stable: it survives moves and resizes, so history diffing and
// presence tracking key on it rather than on grid position.
type Region struct {
	ID           uuid.UUID      `json:"id"`
	RegionType   string         `json:"regionType"`
	GridRow      int            `json:"gridRow"`
	GridCol      int            `json:"gridCol"`
	RowSpan      int            `json:"rowSpan"`
	ColSpan      int            `json:"colSpan"`
	WidgetConfig map[string]any `json:"widgetConfig,omitempty"`
	Revision     int64          `json:"revision"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	UpdatedBy    uuid.UUID      `json:"updatedBy"`
}

// Equal reports whether two regions carry the same content.
// Revision, UpdatedAt, and UpdatedBy are bookkeeping, not content, and are
// deliberately excluded so that history diffs don't flag untouched regions.
func (r Region) Equal(other Region) bool {
	return r.ID == other.ID &&
		r.RegionType == other.RegionType &&
		r.GridRow == other.GridRow &&
		r.GridCol == other.GridCol &&
		r.RowSpan == other.RowSpan &&
		r.ColSpan == other.ColSpan &&
		widgetConfigEqual(r.WidgetConfig, other.WidgetConfig)
}

// widgetConfigEqual compares widget configs treating nil and empty as equal.
// Values may be nested (decoded JSON), so deep comparison is required.
func widgetConfigEqual(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

// Clone returns a copy of the region with its own WidgetConfig map.
func (r Region) Clone() Region {
	out := r
	if r.WidgetConfig != nil {
		out.WidgetConfig = maps.Clone(r.WidgetConfig)
	}
	return out
}

// Validate checks grid placement constraints.
func (r Region) Validate() error {
	var errs []FieldError
	if r.ID == uuid.Nil {
		errs = append(errs, FieldError{Field: "id", Message: "must not be empty"})
	}
	if r.RegionType == "" {
		errs = append(errs, FieldError{Field: "regionType", Message: "must not be empty"})
	}
	if r.GridRow < 0 {
		errs = append(errs, FieldError{Field: "gridRow", Message: "must be >= 0"})
	}
	if r.GridCol < 0 {
		errs = append(errs, FieldError{Field: "gridCol", Message: "must be >= 0"})
	}
	if r.RowSpan < 1 {
		errs = append(errs, FieldError{Field: "rowSpan", Message: "must be >= 1"})
	}
	if r.ColSpan < 1 {
		errs = append(errs, FieldError{Field: "colSpan", Message: "must be >= 1"})
	}
	if len(errs) > 0 {
		return NewValidationErrors(errs)
	}
	return nil
}
