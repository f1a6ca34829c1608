package blobstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStoreLifecycle(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	data := []byte(`[{"id":1,"name":"Lisbon"}]`)
	require.NoError(t, store.Put(ctx, "runs/cities-1.json", data))
	require.NoError(t, store.Put(ctx, "runs/cities-2.json.zst", []byte("x")))
	require.NoError(t, store.Put(ctx, "other.json", []byte("y")))

	got, err := store.Get(ctx, "runs/cities-1.json")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	// Mutating the input after Put must not change the stored blob.
	data[0] = '{'
	got, err = store.Get(ctx, "runs/cities-1.json")
	require.NoError(t, err)
	assert.Equal(t, byte('['), got[0])

	names, err := store.List(ctx, "runs/")
	require.NoError(t, err)
	assert.Equal(t, []string{"runs/cities-1.json", "runs/cities-2.json.zst"}, names)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// Overwrite replaces.
	require.NoError(t, store.Put(ctx, "other.json", []byte("z")))
	got, err = store.Get(ctx, "other.json")
	require.NoError(t, err)
	assert.Equal(t, []byte("z"), got)

	require.NoError(t, store.Delete(ctx, "other.json"))
	require.NoError(t, store.Delete(ctx, "other.json"))

	_, err = store.Get(ctx, "other.json")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLocalStore_Lifecycle(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir)
	testStoreLifecycle(t, store)

	_, err := os.Stat(filepath.Join(dir, "runs", "cities-1.json"))
	require.NoError(t, err)
}

func TestLocalStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir)
	require.NoError(t, store.Put(context.Background(), "a.json", []byte("1")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.json", entries[0].Name())
}

func TestLocalStore_ListMissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "missing"))
	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	store := NewMemoryStore()
	testStoreLifecycle(t, store)
	assert.Equal(t, 2, store.Len())
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Put(ctx, "a", nil), context.Canceled)
	_, err := store.Get(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
}
