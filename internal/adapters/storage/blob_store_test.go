package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"

	apperrors "github.com/zatekoja/underwritingcasedesk/backend/pkg/errors"
)

func TestBlobStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewBlobStore(memblob.OpenBucket(nil), nil)
	defer store.Close()

	require.NoError(t, store.Put(ctx, "c1.pdf", []byte("%PDF-1.4"), "application/pdf"))

	ok, err := store.Exists(ctx, "c1.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := store.Get(ctx, "c1.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	require.NoError(t, store.Delete(ctx, "c1.pdf"))
	ok, _ = store.Exists(ctx, "c1.pdf")
	assert.False(t, ok)
}

func TestBlobStore_MissingObject(t *testing.T) {
	ctx := context.Background()
	store := NewBlobStore(memblob.OpenBucket(nil), nil)

	_, err := store.Get(ctx, "nope.pdf")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	assert.NoError(t, store.Delete(ctx, "nope.pdf"))
}

func TestOpenBlobStore_FileBucket(t *testing.T) {
	ctx := context.Background()
	store, err := OpenBlobStore(ctx, "file://"+t.TempDir(), nil)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put(ctx, "doc.pdf", []byte("x"), "application/pdf"))
	data, err := store.Get(ctx, "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}
