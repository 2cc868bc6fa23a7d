package domain

import "maps"

// RegionPatch is the partial field diff a client intends to apply to a
// region. Nil fields are untouched; WidgetConfig replaces the whole map when
// set (field-granular ownership, no sub-field merging).
type RegionPatch struct {
	RegionType   *string        `json:"regionType,omitempty"`
	GridRow      *int           `json:"gridRow,omitempty"`
	GridCol      *int           `json:"gridCol,omitempty"`
	RowSpan      *int           `json:"rowSpan,omitempty"`
	ColSpan      *int           `json:"colSpan,omitempty"`
	WidgetConfig map[string]any `json:"widgetConfig,omitempty"`
}

// IsEmpty reports whether the patch touches no fields.
func (p RegionPatch) IsEmpty() bool {
	return p.RegionType == nil &&
		p.GridRow == nil &&
		p.GridCol == nil &&
		p.RowSpan == nil &&
		p.ColSpan == nil &&
		p.WidgetConfig == nil
}

// ApplyTo returns a copy of base with each field the patch touches replaced
// by the patched value. Untouched fields keep base's values, which makes this
// the merge primitive: ApplyTo(serverVersion) is the three-way merge with the
// local-changed-fields-win tie-break.
func (p RegionPatch) ApplyTo(base Region) Region {
	out := base.Clone()
	if p.RegionType != nil {
		out.RegionType = *p.RegionType
	}
	if p.GridRow != nil {
		out.GridRow = *p.GridRow
	}
	if p.GridCol != nil {
		out.GridCol = *p.GridCol
	}
	if p.RowSpan != nil {
		out.RowSpan = *p.RowSpan
	}
	if p.ColSpan != nil {
		out.ColSpan = *p.ColSpan
	}
	if p.WidgetConfig != nil {
		out.WidgetConfig = maps.Clone(p.WidgetConfig)
	}
	return out
}

// Validate checks the patched values without needing the base region.
func (p RegionPatch) Validate() error {
	var errs []FieldError
	if p.IsEmpty() {
		errs = append(errs, FieldError{Field: "patch", Message: "must touch at least one field"})
	}
	if p.RegionType != nil && *p.RegionType == "" {
		errs = append(errs, FieldError{Field: "regionType", Message: "must not be empty"})
	}
	if p.GridRow != nil && *p.GridRow < 0 {
		errs = append(errs, FieldError{Field: "gridRow", Message: "must be >= 0"})
	}
	if p.GridCol != nil && *p.GridCol < 0 {
		errs = append(errs, FieldError{Field: "gridCol", Message: "must be >= 0"})
	}
	if p.RowSpan != nil && *p.RowSpan < 1 {
		errs = append(errs, FieldError{Field: "rowSpan", Message: "must be >= 1"})
	}
	if p.ColSpan != nil && *p.ColSpan < 1 {
		errs = append(errs, FieldError{Field: "colSpan", Message: "must be >= 1"})
	}
	if len(errs) > 0 {
		return NewValidationErrors(errs)
	}
	return nil
}
