// Package storage keeps photo blobs outside the database.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	fserrors "github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BlobStore reads and writes opaque blobs by key.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// PhotoKey returns the key of a compressed photo.
func PhotoKey(companyID, projectID, photoID uuid.UUID) string {
	return fmt.Sprintf("companies/%s/projects/%s/%s.jpg", companyID, projectID, photoID)
}

// ThumbnailKey returns the key of a photo thumbnail.
func ThumbnailKey(companyID, projectID, photoID uuid.UUID) string {
	return fmt.Sprintf("companies/%s/projects/%s/%s_thumb.jpg", companyID, projectID, photoID)
}

// LocalStore is a BlobStore on the local filesystem.
type LocalStore struct {
	root   string
	logger *zap.Logger
}

// NewLocalStore creates the root directory if needed.
func NewLocalStore(root string, logger *zap.Logger) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStore{root: abs, logger: logger.Named("blob_store")}, nil
}

func (s *LocalStore) path(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: invalid blob key %q", fserrors.ErrInvalidInput, key)
	}
	p := filepath.Join(s.root, filepath.FromSlash(key))
	if !strings.HasPrefix(p, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: blob key escapes root %q", fserrors.ErrInvalidInput, key)
	}
	return p, nil
}

// Put writes the blob atomically: a temp file in the same directory is
// renamed over the key once fully written.
func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	p, err := s.path(key)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return 0, fmt.Errorf("create blob dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("create temp blob: %w", err)
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return 0, fmt.Errorf("write blob %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		_ = os.Remove(tmp.Name())
		return 0, fmt.Errorf("commit blob %s: %w", key, err)
	}
	s.logger.Debug("blob stored", zap.String("key", key), zap.Int64("bytes", n))
	return n, nil
}

// Open returns ErrNotFound for missing keys.
func (s *LocalStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: blob %s", fserrors.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("open blob %s: %w", key, err)
	}
	return f, nil
}

// Delete is idempotent.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete blob %s: %w", key, err)
	}
	return nil
}
