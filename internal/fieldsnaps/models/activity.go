package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityLog is one entry of the team activity feed.
type ActivityLog struct {
	ID         uuid.UUID
	CompanyID  uuid.UUID
	ProjectID  *uuid.UUID
	UserID     uuid.UUID
	Action     string
	EntityType string
	EntityID   uuid.UUID
	Summary    string
	Metadata   map[string]any
	CreatedAt  time.Time
}

// FeedCursor points at the last entry of the previous feed page. The zero
// value starts from the newest entry; a zero ID pages by time alone.
type FeedCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

func (c FeedCursor) IsZero() bool {
	return c.CreatedAt.IsZero()
}

// CursorAfter returns the cursor that continues below entry.
func CursorAfter(entry *ActivityLog) FeedCursor {
	return FeedCursor{CreatedAt: entry.CreatedAt, ID: entry.ID}
}

// Notification is addressed to a single user.
type Notification struct {
	ID         uuid.UUID
	CompanyID  uuid.UUID
	UserID     uuid.UUID
	Type       string
	Title      string
	Body       string
	EntityType string
	EntityID   uuid.UUID
	ReadAt     *time.Time
	CreatedAt  time.Time
}
