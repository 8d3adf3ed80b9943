package controller

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	e "github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/errors"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/events"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/models"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x ^ y), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newPhotoService(t *testing.T, f *fixture) (*PhotoService, storage.BlobStore) {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)
	return NewPhotoService(f.repo, store, f.producer, 1<<20, zaptest.NewLogger(t)), store
}

func TestPhotoService_Upload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc, store := newPhotoService(t, f)
	project := f.project(t, nil, nil)
	f.producer.reset()

	takenAt := time.Date(2026, 5, 4, 15, 30, 0, 0, time.UTC)
	upload := models.PhotoUpload{ProjectID: project.ID, Caption: " north wall ", TakenAt: &takenAt, ClientID: "offline-1"}

	photo, created, err := svc.UploadPhoto(ctx, f.member, upload, bytes.NewReader(pngBytes(t, 800, 600)))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "north wall", photo.Caption)
	assert.Equal(t, "image/jpeg", photo.ContentType)
	assert.Equal(t, 800, photo.Width)
	assert.Equal(t, takenAt, photo.TakenAt)
	assert.LessOrEqual(t, photo.SizeBytes, int64(1<<20))
	assert.Equal(t, []events.EventType{events.PhotoUploaded}, f.producer.types())

	rc, err := store.Open(ctx, photo.ThumbnailKey)
	require.NoError(t, err)
	thumb, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	cfg, format, err := image.DecodeConfig(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 320, cfg.Width)

	t.Run("replay returns the stored photo", func(t *testing.T) {
		f.producer.reset()
		again, created, err := svc.UploadPhoto(ctx, f.member, upload, strings.NewReader("ignored"))
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, photo.ID, again.ID)
		assert.Empty(t, f.producer.types())
	})

	t.Run("not an image", func(t *testing.T) {
		_, _, err := svc.UploadPhoto(ctx, f.member, models.PhotoUpload{ProjectID: project.ID}, strings.NewReader("%PDF-1.4"))
		assert.ErrorIs(t, err, e.ErrInvalidInput)
	})

	t.Run("other company's project", func(t *testing.T) {
		_, _, err := svc.UploadPhoto(ctx, f.outsider, models.PhotoUpload{ProjectID: project.ID}, bytes.NewReader(pngBytes(t, 10, 10)))
		assert.ErrorIs(t, err, e.ErrForbidden)
	})
}

func TestPhotoService_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc, _ := newPhotoService(t, f)
	project := f.project(t, nil, nil)

	for i := 0; i < 3; i++ {
		_, _, err := svc.UploadPhoto(ctx, f.owner, models.PhotoUpload{ProjectID: project.ID}, bytes.NewReader(pngBytes(t, 64, 48)))
		require.NoError(t, err)
	}

	page, err := svc.ListPhotos(ctx, f.member, project.ID, models.Page{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	_, err = svc.ListPhotos(ctx, f.outsider, project.ID, models.Page{})
	assert.ErrorIs(t, err, e.ErrForbidden)

	photo, err := svc.GetPhoto(ctx, f.member, page[0].ID)
	require.NoError(t, err)

	updated, err := svc.UpdateCaption(ctx, f.member, photo.ID, "rebar before pour")
	require.NoError(t, err)
	assert.Equal(t, "rebar before pour", updated.Caption)

	rc, _, err := svc.OpenContent(ctx, f.member, photo.ID, false)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	assert.ErrorIs(t, svc.DeletePhoto(ctx, f.member, photo.ID), e.ErrForbidden, "members delete only their own photos")

	f.producer.reset()
	require.NoError(t, svc.DeletePhoto(ctx, f.owner, photo.ID))
	assert.Equal(t, []events.EventType{events.PhotoDeleted}, f.producer.types())

	_, err = svc.GetPhoto(ctx, f.owner, photo.ID)
	assert.ErrorIs(t, err, e.ErrNotFound)
}
