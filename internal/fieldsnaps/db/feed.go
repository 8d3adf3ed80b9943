package db

import (
	"context"
	"time"

	rec "github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/db/models"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/models"
	"github.com/google/uuid"
)

func (r *Repository) CreateActivity(ctx context.Context, activity *models.ActivityLog) error {
	record, err := activityToRecord(activity)
	if err != nil {
		return err
	}
	return translate(r.db.WithContext(ctx).Create(record).Error)
}

// ListActivity pages backwards through the company feed ordered by
// (created_at, id), so entries sharing a timestamp are never skipped.
func (r *Repository) ListActivity(ctx context.Context, companyID uuid.UUID, projectID *uuid.UUID, cursor models.FeedCursor, limit int) ([]*models.ActivityLog, error) {
	query := r.db.WithContext(ctx).Where("company_id = ?", companyID)
	if projectID != nil {
		query = query.Where("project_id = ?", *projectID)
	}
	switch {
	case cursor.IsZero():
	case cursor.ID == uuid.Nil:
		query = query.Where("created_at < ?", cursor.CreatedAt)
	default:
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var records []rec.ActivityLog
	if err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, translate(err)
	}
	out := make([]*models.ActivityLog, 0, len(records))
	for i := range records {
		out = append(out, activityFromRecord(&records[i]))
	}
	return out, nil
}

func (r *Repository) CreateNotification(ctx context.Context, n *models.Notification) error {
	return translate(r.db.WithContext(ctx).Create(notificationToRecord(n)).Error)
}

func (r *Repository) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*models.Notification, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}
	var records []rec.Notification
	if err := query.Order("created_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, translate(err)
	}
	out := make([]*models.Notification, 0, len(records))
	for i := range records {
		out = append(out, notificationFromRecord(&records[i]))
	}
	return out, nil
}

// MarkNotificationRead is idempotent; already-read notifications keep their
// original read time.
func (r *Repository) MarkNotificationRead(ctx context.Context, userID, id uuid.UUID, at time.Time) error {
	var n rec.Notification
	if err := r.db.WithContext(ctx).First(&n, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return translate(err)
	}
	if n.ReadAt != nil {
		return nil
	}
	return translate(r.db.WithContext(ctx).Model(&rec.Notification{}).
		Where("id = ?", id).
		Update("read_at", at).Error)
}

func (r *Repository) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&rec.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", at)
	return result.RowsAffected, translate(result.Error)
}

func (r *Repository) CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&rec.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	return count, translate(err)
}
