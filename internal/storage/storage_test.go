package storage

import (
	"os"
	"path/filepath"
	"testing"

	"forex-signal-bot/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_LoadMissing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "models", "forex_model.model"))

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models", "forex_model.model")
	store := NewFileStore(path)

	require.NoError(t, store.Save([]byte("first")))
	require.NoError(t, store.Save([]byte("second")))

	data, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data, "last write wins")
	assert.Equal(t, path, store.Location())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStore_EmptyFileIsNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forex_model.model")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	_, err := NewFileStore(path).Load()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_SaveIntoFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	// parent "directory" is a regular file
	store := NewFileStore(filepath.Join(blocker, "forex_model.model"))
	assert.Error(t, store.Save([]byte("data")))
}

func TestBoltStore_SaveLoad(t *testing.T) {
	store, err := NewBoltStore(filepath.Join(t.TempDir(), "models.db"))
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save([]byte{1, 2, 3}))
	data, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)

	require.NoError(t, store.Save([]byte{4}))
	data, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, []byte{4}, data)

	assert.Contains(t, store.Location(), "models.db")
}

func TestBoltStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.db")

	store, err := NewBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save([]byte("persisted")))
	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "closing twice is allowed")

	reopened, err := NewBoltStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	data, err := reopened.Load()
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), data)
}

func TestBoltStore_InvalidPath(t *testing.T) {
	_, err := NewBoltStore(filepath.Join(t.TempDir(), "missing", "dir", "models.db"))
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(common.StoreBackendFile, filepath.Join(dir, "m.model"), dir)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)
	assert.NoError(t, Close(s))

	s, err = Open(common.StoreBackendBolt, "", filepath.Join(dir, "data"))
	require.NoError(t, err)
	assert.IsType(t, &BoltStore{}, s)
	assert.NoError(t, Close(s))

	_, err = Open("redis", "", dir)
	assert.Error(t, err)
}
