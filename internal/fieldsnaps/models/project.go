package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultGeofenceRadiusM is applied to projects created without a radius.
const DefaultGeofenceRadiusM = 150

// Project is a job site. Coordinates are optional; without them the project
// has no geofence.
type Project struct {
	ID              uuid.UUID
	CompanyID       uuid.UUID
	Name            string
	Description     string
	Address         string
	Latitude        *float64
	Longitude       *float64
	GeofenceRadiusM int
	Completed       bool
	CreatedBy       uuid.UUID
	PhotoCount      int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasLocation reports whether both coordinates are set.
func (p *Project) HasLocation() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// ProjectUpdate represents the fields that can be updated for a Project.
type ProjectUpdate struct {
	ID              uuid.UUID
	Name            *string
	Description     *string
	Address         *string
	Latitude        *float64
	Longitude       *float64
	GeofenceRadiusM *int
	Completed       *bool
}

// ProjectFilter narrows project listings.
type ProjectFilter struct {
	IncludeCompleted bool
}
