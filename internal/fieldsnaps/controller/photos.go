package controller

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	e "github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/errors"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/events"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/imaging"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/models"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// MaxUploadBytes bounds the raw image accepted from a client.
	MaxUploadBytes = 25 << 20

	defaultPhotoPage = 50
	maxPhotoPage     = 200
	maxCaption       = 500
)

type PhotoService struct {
	base
	store       storage.BlobStore
	targetBytes int
}

func NewPhotoService(repo Repository, store storage.BlobStore, producer EventProducer, targetBytes int, logger *zap.Logger) *PhotoService {
	return &PhotoService{
		base:        newBase(repo, producer, logger, "photo_service"),
		store:       store,
		targetBytes: targetBytes,
	}
}

// UploadPhoto compresses the image and stores it with its thumbnail. A
// repeated upload with the same client ID returns the stored photo and
// created=false.
func (s *PhotoService) UploadPhoto(ctx context.Context, actor *Actor, upload models.PhotoUpload, r io.Reader) (photo *models.Photo, created bool, err error) {
	company, err := s.writable(ctx, actor)
	if err != nil {
		return nil, false, err
	}
	project, err := s.repo.GetProject(ctx, upload.ProjectID)
	if err != nil {
		return nil, false, wrap("get project", err)
	}
	if err := s.scope(actor, project.CompanyID); err != nil {
		return nil, false, err
	}
	if len(upload.Caption) > maxCaption {
		return nil, false, fmt.Errorf("%w: caption too long", e.ErrInvalidInput)
	}
	if err := validCoordinates(upload.Latitude, upload.Longitude); err != nil {
		return nil, false, err
	}
	if upload.ClientID != "" {
		existing, err := s.repo.GetPhotoByClientID(ctx, company.ID, upload.ClientID)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, e.ErrNotFound) {
			return nil, false, wrap("look up photo", err)
		}
	}

	raw, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, false, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(raw) > MaxUploadBytes {
		return nil, false, fmt.Errorf("%w: image larger than %d bytes", e.ErrInvalidInput, MaxUploadBytes)
	}
	img, _, err := imaging.Decode(raw)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", e.ErrInvalidInput, err)
	}
	full, err := imaging.Compress(img, imaging.Options{TargetBytes: s.targetBytes})
	if err != nil {
		return nil, false, fmt.Errorf("failed to compress photo: %w", err)
	}
	thumb, err := imaging.Thumbnail(img, imaging.ThumbnailLongEdge, imaging.ThumbnailQuality)
	if err != nil {
		return nil, false, fmt.Errorf("failed to render thumbnail: %w", err)
	}
	if full.FloorHit {
		s.logger.Warn("photo above target size at quality and dimension floors",
			zap.String("project_id", project.ID.String()),
			zap.Int("bytes", full.Size()),
			zap.Int("target", s.targetBytes),
		)
	}

	id := uuid.New()
	photo = &models.Photo{
		ID:           id,
		CompanyID:    company.ID,
		ProjectID:    project.ID,
		UploadedBy:   actor.UserID,
		Caption:      strings.TrimSpace(upload.Caption),
		ContentType:  "image/jpeg",
		Width:        full.Width,
		Height:       full.Height,
		SizeBytes:    int64(full.Size()),
		Quality:      full.Quality,
		StorageKey:   storage.PhotoKey(company.ID, project.ID, id),
		ThumbnailKey: storage.ThumbnailKey(company.ID, project.ID, id),
		TakenAt:      s.now(),
		Latitude:     upload.Latitude,
		Longitude:    upload.Longitude,
		ClientID:     upload.ClientID,
	}
	if upload.TakenAt != nil {
		photo.TakenAt = upload.TakenAt.UTC()
	}

	if _, err := s.store.Put(ctx, photo.StorageKey, bytes.NewReader(full.Data)); err != nil {
		return nil, false, fmt.Errorf("failed to store photo: %w", err)
	}
	if _, err := s.store.Put(ctx, photo.ThumbnailKey, bytes.NewReader(thumb.Data)); err != nil {
		s.removeBlobs(ctx, photo)
		return nil, false, fmt.Errorf("failed to store thumbnail: %w", err)
	}

	if err := s.repo.CreatePhoto(ctx, photo); err != nil {
		s.removeBlobs(ctx, photo)
		if errors.Is(err, e.ErrDuplicateName) && upload.ClientID != "" {
			// Lost a race with a concurrent replay of the same upload.
			existing, lookupErr := s.repo.GetPhotoByClientID(ctx, company.ID, upload.ClientID)
			if lookupErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, wrap("create photo", err)
	}

	s.logger.Info("photo uploaded",
		zap.String("photo_id", photo.ID.String()),
		zap.String("project_id", project.ID.String()),
		zap.Int("raw_bytes", len(raw)),
		zap.Int64("bytes", photo.SizeBytes),
		zap.Int("attempts", full.Attempts),
	)
	s.emit(events.New(events.PhotoUploaded, company.ID, actor.UserID, "photo", photo.ID,
		fmt.Sprintf("added a photo to %s", project.Name)).WithProject(&project.ID))
	return photo, true, nil
}

func (s *PhotoService) removeBlobs(ctx context.Context, photo *models.Photo) {
	for _, key := range []string{photo.StorageKey, photo.ThumbnailKey} {
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.Warn("Failed to remove blob", zap.String("key", key), zap.Error(err))
		}
	}
}

func (s *PhotoService) GetPhoto(ctx context.Context, actor *Actor, id uuid.UUID) (*models.Photo, error) {
	photo, err := s.repo.GetPhoto(ctx, id)
	if err != nil {
		return nil, wrap("get photo", err)
	}
	if err := s.scope(actor, photo.CompanyID); err != nil {
		return nil, err
	}
	return photo, nil
}

func (s *PhotoService) ListPhotos(ctx context.Context, actor *Actor, projectID uuid.UUID, page models.Page) ([]*models.Photo, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, wrap("get project", err)
	}
	if err := s.scope(actor, project.CompanyID); err != nil {
		return nil, err
	}
	if page.Limit <= 0 {
		page.Limit = defaultPhotoPage
	}
	if page.Limit > maxPhotoPage {
		page.Limit = maxPhotoPage
	}
	if page.Offset < 0 {
		page.Offset = 0
	}
	photos, err := s.repo.ListPhotos(ctx, projectID, page)
	if err != nil {
		return nil, wrap("list photos", err)
	}
	return photos, nil
}

func (s *PhotoService) UpdateCaption(ctx context.Context, actor *Actor, id uuid.UUID, caption string) (*models.Photo, error) {
	if _, err := s.writable(ctx, actor); err != nil {
		return nil, err
	}
	if _, err := s.GetPhoto(ctx, actor, id); err != nil {
		return nil, err
	}
	caption = strings.TrimSpace(caption)
	if len(caption) > maxCaption {
		return nil, fmt.Errorf("%w: caption too long", e.ErrInvalidInput)
	}
	if err := s.repo.UpdatePhotoCaption(ctx, id, caption); err != nil {
		return nil, wrap("update caption", err)
	}
	return s.repo.GetPhoto(ctx, id)
}

// DeletePhoto soft-deletes the record; blobs stay so the delete can be
// undone from the database.
func (s *PhotoService) DeletePhoto(ctx context.Context, actor *Actor, id uuid.UUID) error {
	if _, err := s.writable(ctx, actor); err != nil {
		return err
	}
	photo, err := s.GetPhoto(ctx, actor, id)
	if err != nil {
		return err
	}
	if photo.UploadedBy != actor.UserID && !actor.Role.CanManage() {
		return fmt.Errorf("%w: only the uploader or an admin can delete a photo", e.ErrForbidden)
	}
	if err := s.repo.DeletePhoto(ctx, id); err != nil {
		return wrap("delete photo", err)
	}
	s.emit(events.New(events.PhotoDeleted, photo.CompanyID, actor.UserID, "photo", photo.ID,
		"deleted a photo").WithProject(&photo.ProjectID))
	return nil
}

// OpenContent streams the compressed photo or its thumbnail.
func (s *PhotoService) OpenContent(ctx context.Context, actor *Actor, id uuid.UUID, thumbnail bool) (io.ReadCloser, *models.Photo, error) {
	photo, err := s.GetPhoto(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	key := photo.StorageKey
	if thumbnail {
		key = photo.ThumbnailKey
	}
	rc, err := s.store.Open(ctx, key)
	if err != nil {
		return nil, nil, wrap("open photo", err)
	}
	return rc, photo, nil
}
