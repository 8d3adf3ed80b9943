package events

import (
	"context"
	"errors"
	"fmt"

	fserrors "github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/errors"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FeedRepository is the storage the projector writes to.
type FeedRepository interface {
	CreateActivity(ctx context.Context, activity *models.ActivityLog) error
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error)
}

// Projector turns events into activity feed entries and notifications.
// Record IDs derive from the event ID, so redelivered events are no-ops.
type Projector struct {
	repo   FeedRepository
	logger *zap.Logger
}

func NewProjector(repo FeedRepository, logger *zap.Logger) *Projector {
	return &Projector{repo: repo, logger: logger.Named("projector")}
}

// Handle is an events.Handler.
func (p *Projector) Handle(ctx context.Context, event Event) error {
	err := p.repo.CreateActivity(ctx, &models.ActivityLog{
		ID:         event.ID,
		CompanyID:  event.CompanyID,
		ProjectID:  event.ProjectID,
		UserID:     event.ActorID,
		Action:     string(event.Type),
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		Summary:    event.Summary,
		Metadata:   event.Payload,
		CreatedAt:  event.OccurredAt,
	})
	if errors.Is(err, fserrors.ErrDuplicateName) {
		p.logger.Debug("activity already recorded", zap.String("event_id", event.ID.String()))
	} else if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}

	recipient, title, ok, err := p.recipient(ctx, event)
	if err != nil || !ok {
		return err
	}
	err = p.repo.CreateNotification(ctx, &models.Notification{
		ID:         uuid.NewSHA1(event.ID, recipient[:]),
		CompanyID:  event.CompanyID,
		UserID:     recipient,
		Type:       string(event.Type),
		Title:      title,
		Body:       event.Summary,
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		CreatedAt:  event.OccurredAt,
	})
	if err != nil && !errors.Is(err, fserrors.ErrDuplicateName) {
		return fmt.Errorf("create notification: %w", err)
	}
	p.logger.Debug("notification created",
		zap.String("event_type", string(event.Type)),
		zap.String("user_id", recipient.String()),
	)
	return nil
}

func (p *Projector) recipient(ctx context.Context, event Event) (uuid.UUID, string, bool, error) {
	switch event.Type {
	case TaskAssigned:
		assignee, ok := event.UUID(KeyAssigneeID)
		if !ok || assignee == event.ActorID {
			return uuid.Nil, "", false, nil
		}
		return assignee, "New task assigned to you", true, nil
	case TaskCompleted:
		creator, ok := event.UUID(KeyCreatedBy)
		if !ok || creator == event.ActorID {
			return uuid.Nil, "", false, nil
		}
		return creator, "Task completed", true, nil
	case SubscriptionChanged:
		company, err := p.repo.GetCompany(ctx, event.CompanyID)
		if errors.Is(err, fserrors.ErrNotFound) {
			return uuid.Nil, "", false, nil
		}
		if err != nil {
			return uuid.Nil, "", false, fmt.Errorf("load company: %w", err)
		}
		return company.OwnerID, "Subscription updated", true, nil
	default:
		return uuid.Nil, "", false, nil
	}
}
