package models

import (
	"time"

	"github.com/google/uuid"
)

// Photo is a compressed job-site photo and its thumbnail.
type Photo struct {
	ID           uuid.UUID
	CompanyID    uuid.UUID
	ProjectID    uuid.UUID
	UploadedBy   uuid.UUID
	Caption      string
	ContentType  string
	Width        int
	Height       int
	SizeBytes    int64
	Quality      float64
	StorageKey   string
	ThumbnailKey string
	TakenAt      time.Time
	Latitude     *float64
	Longitude    *float64
	ClientID     string
	CreatedAt    time.Time
}

// PhotoUpload is the metadata sent alongside the image bytes.
type PhotoUpload struct {
	ProjectID uuid.UUID
	Caption   string
	TakenAt   *time.Time
	Latitude  *float64
	Longitude *float64
	ClientID  string
}

// Page selects a window of a listing ordered newest first.
type Page struct {
	Limit  int
	Offset int
}
