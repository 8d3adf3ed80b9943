// Package models contains the persistence records for the application,
// configured to work using GORM as the ORM. Domain types live in
// internal/fieldsnaps/models; the db package converts between the two.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User is keyed by the auth provider's subject.
type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email     string     `gorm:"size:320;index"`
	FullName  string     `gorm:"size:200"`
	CompanyID *uuid.UUID `gorm:"type:uuid;index"`
	Role      string     `gorm:"size:16"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Company stores billing state next to the company profile.
type Company struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name                 string    `gorm:"size:120;uniqueIndex"`
	OwnerID              uuid.UUID `gorm:"type:uuid;index"`
	InviteCode           string    `gorm:"size:16;uniqueIndex"`
	SubscriptionStatus   string    `gorm:"size:16;index"`
	TrialEndsAt          time.Time
	CurrentPeriodEnd     *time.Time
	StripeCustomerID     *string `gorm:"size:64;uniqueIndex"`
	StripeSubscriptionID *string `gorm:"size:64"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
	DeletedAt            gorm.DeletedAt `gorm:"index"`
}

// Project is a job site.
type Project struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID       uuid.UUID `gorm:"type:uuid;index"`
	Name            string    `gorm:"size:120"`
	Description     string    `gorm:"size:3000"`
	Address         string    `gorm:"size:300"`
	Latitude        *float64
	Longitude       *float64
	GeofenceRadiusM int  `gorm:"check:geofence_radius_m >= 0"`
	Completed       bool `gorm:"index"`
	CreatedBy       uuid.UUID `gorm:"type:uuid"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       gorm.DeletedAt `gorm:"index"`
}

// Photo references the stored image and thumbnail blobs.
type Photo struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_photos_client"`
	ProjectID    uuid.UUID `gorm:"type:uuid;index"`
	UploadedBy   uuid.UUID `gorm:"type:uuid"`
	Caption      string    `gorm:"size:1000"`
	ContentType  string    `gorm:"size:64"`
	Width        int
	Height       int
	SizeBytes    int64
	Quality      float64
	StorageKey   string `gorm:"size:300"`
	ThumbnailKey string `gorm:"size:300"`
	TakenAt      time.Time `gorm:"index"`
	Latitude     *float64
	Longitude    *float64
	ClientID     *string `gorm:"size:64;uniqueIndex:idx_photos_client"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

// Task is a to-do.
type Task struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CompanyID   uuid.UUID  `gorm:"type:uuid;index;uniqueIndex:idx_tasks_client"`
	ProjectID   *uuid.UUID `gorm:"type:uuid;index"`
	PhotoID     *uuid.UUID `gorm:"type:uuid"`
	Title       string     `gorm:"size:200"`
	Description string     `gorm:"size:5000"`
	AssignedTo  *uuid.UUID `gorm:"type:uuid;index"`
	CreatedBy   uuid.UUID  `gorm:"type:uuid"`
	Status      string     `gorm:"size:16;index"`
	DueDate     *time.Time
	CompletedAt *time.Time
	CompletedBy *uuid.UUID `gorm:"type:uuid"`
	ClientID    *string    `gorm:"size:64;uniqueIndex:idx_tasks_client"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

// Contractor is a subcontractor contact.
type Contractor struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID uuid.UUID `gorm:"type:uuid;index"`
	Name      string    `gorm:"size:200"`
	Trade     string    `gorm:"size:100"`
	Email     string    `gorm:"size:320"`
	Phone     string    `gorm:"size:40"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TimeEntry is an append-only clock punch.
type TimeEntry struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CompanyID       uuid.UUID  `gorm:"type:uuid;index;uniqueIndex:idx_time_entries_client"`
	UserID          uuid.UUID  `gorm:"type:uuid;index:idx_time_entries_user_ts"`
	ProjectID       *uuid.UUID `gorm:"type:uuid"`
	Type            string     `gorm:"size:16"`
	Timestamp       time.Time  `gorm:"index:idx_time_entries_user_ts"`
	Latitude        *float64
	Longitude       *float64
	Source          string `gorm:"size:16"`
	OutsideGeofence bool
	ClientID        *string `gorm:"size:64;uniqueIndex:idx_time_entries_client"`
	CreatedAt       time.Time
}

// ActivityLog is one feed entry.
type ActivityLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CompanyID  uuid.UUID  `gorm:"type:uuid;index:idx_activity_company_created"`
	ProjectID  *uuid.UUID `gorm:"type:uuid;index"`
	UserID     uuid.UUID  `gorm:"type:uuid"`
	Action     string     `gorm:"size:64"`
	EntityType string     `gorm:"size:32"`
	EntityID   uuid.UUID  `gorm:"type:uuid"`
	Summary    string     `gorm:"size:500"`
	Metadata   datatypes.JSON
	CreatedAt  time.Time `gorm:"index:idx_activity_company_created"`
}

// Notification is addressed to one user.
type Notification struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID  uuid.UUID `gorm:"type:uuid"`
	UserID     uuid.UUID `gorm:"type:uuid;index:idx_notifications_user_created"`
	Type       string    `gorm:"size:64"`
	Title      string    `gorm:"size:200"`
	Body       string    `gorm:"size:1000"`
	EntityType string    `gorm:"size:32"`
	EntityID   uuid.UUID `gorm:"type:uuid"`
	ReadAt     *time.Time
	CreatedAt  time.Time `gorm:"index:idx_notifications_user_created"`
}

// All lists every record for migrations.
func All() []any {
	return []any{
		&User{}, &Company{}, &Project{}, &Photo{}, &Task{},
		&Contractor{}, &TimeEntry{}, &ActivityLog{}, &Notification{},
	}
}
