package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of a to-do.
type TaskStatus string

const (
	TaskOpen      TaskStatus = "open"
	TaskCompleted TaskStatus = "completed"
)

// Task is a to-do, usually captured in the field from a voice note and a
// photo.
type Task struct {
	ID          uuid.UUID
	CompanyID   uuid.UUID
	ProjectID   *uuid.UUID
	PhotoID     *uuid.UUID
	Title       string
	Description string
	AssignedTo  *uuid.UUID
	CreatedBy   uuid.UUID
	Status      TaskStatus
	DueDate     *time.Time
	CompletedAt *time.Time
	CompletedBy *uuid.UUID
	ClientID    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskUpdate represents the fields that can be updated for a Task.
// ClearAssignee unassigns the task when set.
type TaskUpdate struct {
	ID            uuid.UUID
	Title         *string
	Description   *string
	ProjectID     *uuid.UUID
	AssignedTo    *uuid.UUID
	ClearAssignee bool
	DueDate       *time.Time
	Status        *TaskStatus
	CompletedAt   *time.Time
	CompletedBy   *uuid.UUID
	ClearComplete bool
}

// TaskFilter narrows task listings.
type TaskFilter struct {
	CompanyID  uuid.UUID
	ProjectID  *uuid.UUID
	AssignedTo *uuid.UUID
	Status     *TaskStatus
	Limit      int
}
