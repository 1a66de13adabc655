package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocalStorage(t *testing.T) {
	t.Run("CreatesBaseDir", func(t *testing.T) {
		basePath := filepath.Join(t.TempDir(), "out")

		storage, err := NewLocalStorage(basePath)
		require.NoError(t, err)
		require.NotNil(t, storage)

		info, err := os.Stat(basePath)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("EmptyPathWritesBesideInput", func(t *testing.T) {
		storage, err := NewLocalStorage("")
		require.NoError(t, err)
		assert.Empty(t, storage.GetBasePath())
		assert.Equal(t, filepath.Join("a", "B.class.alt"), storage.GetURL("a/./B.class.alt"))
	})
}

func TestLocalStorage_Put(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	storage, err := NewLocalStorage("")
	require.NoError(t, err)

	key := filepath.Join(dir, "com", "example", "A.class.alt")
	require.NoError(t, storage.Put(ctx, key, []byte{0xca, 0xfe, 0xba, 0xbe}))

	data, err := os.ReadFile(key)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xca, 0xfe, 0xba, 0xbe}, data)

	// Overwrite replaces content and leaves no temp files behind.
	require.NoError(t, storage.Put(ctx, key, []byte("second")))
	data, err = os.ReadFile(key)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Dir(key))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	info, err := os.Stat(key)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestLocalStorage_WithBasePath(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	storage, err := NewLocalStorage(base)
	require.NoError(t, err)

	require.NoError(t, storage.Put(ctx, "pkg/A.class.alt", []byte("x")))
	assert.FileExists(t, filepath.Join(base, "pkg", "A.class.alt"))
	assert.Equal(t, filepath.Join(base, "pkg", "A.class.alt"), storage.GetURL("pkg/A.class.alt"))

	data, err := storage.Get(ctx, "pkg/A.class.alt")
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestLocalStorage_GetMissing(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = storage.Get(context.Background(), "absent.alt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found")
}

func TestLocalStorage_ExistsAndDelete(t *testing.T) {
	ctx := context.Background()
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ok, err := storage.Exists(ctx, "A.alt")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, storage.Put(ctx, "A.alt", []byte("a")))
	ok, err = storage.Exists(ctx, "A.alt")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, storage.Delete(ctx, "A.alt"))
	ok, err = storage.Exists(ctx, "A.alt")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting again is not an error.
	assert.NoError(t, storage.Delete(ctx, "A.alt"))
}

func TestLocalStorage_CancelledContext(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, storage.Put(ctx, "A.alt", []byte("a")), context.Canceled)
	_, err = storage.Get(ctx, "A.alt")
	assert.ErrorIs(t, err, context.Canceled)
}
