package db

import (
	"context"

	rec "github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/db/models"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/models"
	"github.com/google/uuid"
)

func (r *Repository) CreatePhoto(ctx context.Context, photo *models.Photo) error {
	record := photoToRecord(photo)
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return translate(err)
	}
	photo.CreatedAt = record.CreatedAt
	return nil
}

func (r *Repository) GetPhoto(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	var photo rec.Photo
	if err := r.db.WithContext(ctx).First(&photo, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return photoFromRecord(&photo), nil
}

// GetPhotoByClientID finds an upload replayed from a client's offline queue.
func (r *Repository) GetPhotoByClientID(ctx context.Context, companyID uuid.UUID, clientID string) (*models.Photo, error) {
	var photo rec.Photo
	err := r.db.WithContext(ctx).
		First(&photo, "company_id = ? AND client_id = ?", companyID, clientID).Error
	if err != nil {
		return nil, translate(err)
	}
	return photoFromRecord(&photo), nil
}

func (r *Repository) ListPhotos(ctx context.Context, projectID uuid.UUID, page models.Page) ([]*models.Photo, error) {
	var records []rec.Photo
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("taken_at DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&records).Error
	if err != nil {
		return nil, translate(err)
	}
	photos := make([]*models.Photo, 0, len(records))
	for i := range records {
		photos = append(photos, photoFromRecord(&records[i]))
	}
	return photos, nil
}

func (r *Repository) UpdatePhotoCaption(ctx context.Context, id uuid.UUID, caption string) error {
	result := r.db.WithContext(ctx).Model(&rec.Photo{}).
		Where("id = ?", id).
		Update("caption", caption)
	return updateResult(result)
}

func (r *Repository) DeletePhoto(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&rec.Photo{}, "id = ?", id)
	return updateResult(result)
}

func (r *Repository) CountPhotos(ctx context.Context, projectID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&rec.Photo{}).
		Where("project_id = ?", projectID).
		Count(&count).Error
	return count, translate(err)
}
