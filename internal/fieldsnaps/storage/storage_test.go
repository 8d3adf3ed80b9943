package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	fserrors "github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestKeys(t *testing.T) {
	c, p, ph := uuid.New(), uuid.New(), uuid.New()
	assert.Equal(t, "companies/"+c.String()+"/projects/"+p.String()+"/"+ph.String()+".jpg", PhotoKey(c, p, ph))
	assert.True(t, strings.HasSuffix(ThumbnailKey(c, p, ph), ph.String()+"_thumb.jpg"))
}

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)

	key := PhotoKey(uuid.New(), uuid.New(), uuid.New())
	n, err := store.Put(ctx, key, strings.NewReader("jpeg bytes"))
	require.NoError(t, err)
	assert.EqualValues(t, 10, n)

	rc, err := store.Open(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "jpeg bytes", string(data))

	_, err = store.Put(ctx, key, strings.NewReader("replaced"))
	require.NoError(t, err)
	rc, err = store.Open(ctx, key)
	require.NoError(t, err)
	data, _ = io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, "replaced", string(data))

	require.NoError(t, store.Delete(ctx, key))
	require.NoError(t, store.Delete(ctx, key), "delete is idempotent")

	_, err = store.Open(ctx, key)
	assert.ErrorIs(t, err, fserrors.ErrNotFound)
}

func TestLocalStoreRejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)

	for _, key := range []string{"", "/etc/passwd", "../outside.jpg", "a/../../b"} {
		_, err := store.Put(context.Background(), key, strings.NewReader("x"))
		assert.ErrorIs(t, err, fserrors.ErrInvalidInput, key)
	}
}
