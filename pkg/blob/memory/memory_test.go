package memory

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittovault/pkg/blob"
)

func TestPutGetRoundtrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "content/ab/abcd", []byte("payload")))

	reader, err := store.Get(ctx, "content/ab/abcd")
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}

func TestGet_NotFound(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, blob.ErrNotFound)
}

func TestGet_ReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	original := []byte("immutable")
	require.NoError(t, store.Put(ctx, "obj", original))

	// Mutating the caller's slice must not affect the stored bytes.
	original[0] = 'X'

	reader, err := store.Get(ctx, "obj")
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, []byte("immutable"), data)
}

func TestDelete_AbsentIsNoError(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "obj", []byte("x")))
	require.NoError(t, store.Delete(ctx, "obj"))
	assert.NoError(t, store.Delete(ctx, "obj"))

	exists, err := store.Exists(ctx, "obj")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFailPuts(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.FailPuts(true)
	err := store.Put(ctx, "obj", []byte("x"))
	assert.ErrorIs(t, err, blob.ErrWriteFailed)
	assert.Zero(t, store.Len())

	store.FailPuts(false)
	assert.NoError(t, store.Put(ctx, "obj", []byte("x")))
	assert.Equal(t, 1, store.Len())
}

func TestPut_CancelledContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, store.Put(ctx, "obj", []byte("x")))
	assert.Zero(t, store.Len())
}
