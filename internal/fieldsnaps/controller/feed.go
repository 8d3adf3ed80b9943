package controller

import (
	"context"

	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultFeedLimit = 50
	maxFeedLimit     = 100
)

func feedLimit(limit int) int {
	if limit <= 0 {
		return defaultFeedLimit
	}
	return min(limit, maxFeedLimit)
}

type NotificationService struct {
	base
}

func NewNotificationService(repo Repository, logger *zap.Logger) *NotificationService {
	return &NotificationService{base: newBase(repo, nil, logger, "notification_service")}
}

func (s *NotificationService) List(ctx context.Context, actor *Actor, unreadOnly bool, limit int) ([]*models.Notification, error) {
	out, err := s.repo.ListNotifications(ctx, actor.UserID, unreadOnly, feedLimit(limit))
	if err != nil {
		return nil, wrap("list notifications", err)
	}
	return out, nil
}

// MarkRead is idempotent; another user's notification is not found.
func (s *NotificationService) MarkRead(ctx context.Context, actor *Actor, id uuid.UUID) error {
	if err := s.repo.MarkNotificationRead(ctx, actor.UserID, id, s.now()); err != nil {
		return wrap("mark notification read", err)
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, actor *Actor) (int64, error) {
	n, err := s.repo.MarkAllNotificationsRead(ctx, actor.UserID, s.now())
	if err != nil {
		return 0, wrap("mark notifications read", err)
	}
	return n, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, actor *Actor) (int64, error) {
	n, err := s.repo.CountUnreadNotifications(ctx, actor.UserID)
	if err != nil {
		return 0, wrap("count notifications", err)
	}
	return n, nil
}

type ActivityService struct {
	base
}

func NewActivityService(repo Repository, logger *zap.Logger) *ActivityService {
	return &ActivityService{base: newBase(repo, nil, logger, "activity_service")}
}

// Feed pages backwards from cursor (zero means newest), optionally for one
// project.
func (s *ActivityService) Feed(ctx context.Context, actor *Actor, projectID *uuid.UUID, cursor models.FeedCursor, limit int) ([]*models.ActivityLog, error) {
	companyID, err := actor.Company()
	if err != nil {
		return nil, err
	}
	if projectID != nil {
		project, err := s.repo.GetProject(ctx, *projectID)
		if err != nil {
			return nil, wrap("get project", err)
		}
		if err := s.scope(actor, project.CompanyID); err != nil {
			return nil, err
		}
	}
	out, err := s.repo.ListActivity(ctx, companyID, projectID, cursor, feedLimit(limit))
	if err != nil {
		return nil, wrap("list activity", err)
	}
	return out, nil
}
