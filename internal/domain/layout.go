package domain

import (
	"time"

	"github.com/google/uuid"
)

// DashboardLayout is the tenant-owned root of a dashboard. It is mutated only
// by moving its CurrentVersionID pointer; region content lives in versions
// and in the working copy.
type DashboardLayout struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	OwnerID          uuid.UUID
	Name             string
	CurrentVersionID *uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
