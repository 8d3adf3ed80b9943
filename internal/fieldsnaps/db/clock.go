package db

import (
	"context"
	"time"

	rec "github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/db/models"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/models"
	"github.com/google/uuid"
)

func (r *Repository) CreateTimeEntry(ctx context.Context, entry *models.TimeEntry) error {
	record := timeEntryToRecord(entry)
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return translate(err)
	}
	entry.CreatedAt = record.CreatedAt
	return nil
}

func (r *Repository) GetTimeEntryByClientID(ctx context.Context, companyID uuid.UUID, clientID string) (*models.TimeEntry, error) {
	var entry rec.TimeEntry
	err := r.db.WithContext(ctx).
		First(&entry, "company_id = ? AND client_id = ?", companyID, clientID).Error
	if err != nil {
		return nil, translate(err)
	}
	return timeEntryFromRecord(&entry), nil
}

// LastTimeEntry returns the user's latest punch, or ErrNotFound.
func (r *Repository) LastTimeEntry(ctx context.Context, userID uuid.UUID) (*models.TimeEntry, error) {
	var entry rec.TimeEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp DESC").
		Order("created_at DESC").
		First(&entry).Error
	if err != nil {
		return nil, translate(err)
	}
	return timeEntryFromRecord(&entry), nil
}

// LastTimeEntryBefore returns the user's latest punch strictly before at, or
// ErrNotFound.
func (r *Repository) LastTimeEntryBefore(ctx context.Context, userID uuid.UUID, at time.Time) (*models.TimeEntry, error) {
	var entry rec.TimeEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND timestamp < ?", userID, at).
		Order("timestamp DESC").
		Order("created_at DESC").
		First(&entry).Error
	if err != nil {
		return nil, translate(err)
	}
	return timeEntryFromRecord(&entry), nil
}

// ListTimeEntries returns the user's punches in [from, to), oldest first.
func (r *Repository) ListTimeEntries(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.TimeEntry, error) {
	var records []rec.TimeEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND timestamp >= ? AND timestamp < ?", userID, from, to).
		Order("timestamp ASC").
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, translate(err)
	}
	entries := make([]*models.TimeEntry, 0, len(records))
	for i := range records {
		entries = append(entries, timeEntryFromRecord(&records[i]))
	}
	return entries, nil
}
