// Package events carries domain events from the services to the projector,
// either over Kafka or through an in-process dispatcher.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	ProjectCreated      EventType = "project.created"
	ProjectDeleted      EventType = "project.deleted"
	PhotoUploaded       EventType = "photo.uploaded"
	PhotoDeleted        EventType = "photo.deleted"
	TaskCreated         EventType = "task.created"
	TaskAssigned        EventType = "task.assigned"
	TaskCompleted       EventType = "task.completed"
	ClockIn             EventType = "clock.in"
	ClockOut            EventType = "clock.out"
	SubscriptionChanged EventType = "subscription.changed"
)

// Payload keys read by the projector.
const (
	KeyAssigneeID = "assignee_id"
	KeyCreatedBy  = "created_by"
	KeyStatus     = "status"
	KeyPrevious   = "previous_status"
)

// Event is the wire format, JSON encoded and keyed by company ID.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Type       EventType      `json:"type"`
	CompanyID  uuid.UUID      `json:"company_id"`
	ProjectID  *uuid.UUID     `json:"project_id,omitempty"`
	ActorID    uuid.UUID      `json:"actor_id"`
	EntityType string         `json:"entity_type"`
	EntityID   uuid.UUID      `json:"entity_id"`
	Summary    string         `json:"summary"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// New stamps an event with a fresh ID and the current time.
func New(eventType EventType, companyID, actorID uuid.UUID, entityType string, entityID uuid.UUID, summary string) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		CompanyID:  companyID,
		ActorID:    actorID,
		EntityType: entityType,
		EntityID:   entityID,
		Summary:    summary,
		OccurredAt: time.Now().UTC(),
	}
}

// WithProject sets the project the event belongs to.
func (e Event) WithProject(projectID *uuid.UUID) Event {
	e.ProjectID = projectID
	return e
}

// With adds a payload value. UUIDs are stored as strings so the payload looks
// the same before and after a trip through JSON.
func (e Event) With(key string, value any) Event {
	payload := make(map[string]any, len(e.Payload)+1)
	for k, v := range e.Payload {
		payload[k] = v
	}
	if id, ok := value.(uuid.UUID); ok {
		value = id.String()
	}
	payload[key] = value
	e.Payload = payload
	return e
}

// UUID reads a payload value written by With.
func (e Event) UUID(key string) (uuid.UUID, bool) {
	s, ok := e.Payload[key].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	return id, err == nil
}

// String reads a string payload value.
func (e Event) String(key string) string {
	s, _ := e.Payload[key].(string)
	return s
}

// Handler processes one event.
type Handler func(ctx context.Context, event Event) error

// Publisher accepts events without blocking the caller.
type Publisher interface {
	Produce(event Event)
	Close()
}
