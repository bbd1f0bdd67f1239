package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemDBMissingKey(t *testing.T) {
	db := NewMemDB()
	_, err := db.Get([]byte("absent"))
	require.True(t, errors.Is(err, ErrNotFound))
	ok, err := db.Has([]byte("absent"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOverlayCommitAndDiscard(t *testing.T) {
	parent := NewMemDB()
	require.NoError(t, parent.Put([]byte("a"), []byte("1")))

	overlay := NewOverlay(parent)
	require.NoError(t, overlay.Put([]byte("b"), []byte("2")))
	require.NoError(t, overlay.Delete([]byte("a")))
	require.NoError(t, overlay.Put([]byte("b"), []byte("2")))
	require.Equal(t, 2, overlay.Dirty())

	_, err := overlay.Get([]byte("a"))
	require.ErrorIs(t, err, ErrNotFound)
	got, err := parent.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), got)

	require.NoError(t, overlay.Commit())
	_, err = parent.Get([]byte("a"))
	require.ErrorIs(t, err, ErrNotFound)
	got, err = parent.Get([]byte("b"))
	require.NoError(t, err)
	require.Equal(t, []byte("2"), got)

	discarded := NewOverlay(parent)
	require.NoError(t, discarded.Put([]byte("c"), []byte("3")))
	discarded.Discard()
	ok, err := parent.Has([]byte("c"))
	require.NoError(t, err)
	require.False(t, ok)
	require.Error(t, discarded.Put([]byte("d"), []byte("4")))
}

func TestLevelDBBatchPersists(t *testing.T) {
	dir := t.TempDir()

	db1, err := NewLevelDB(dir)
	require.NoError(t, err)
	overlay := NewOverlay(db1)
	require.NoError(t, overlay.Put([]byte("key"), []byte("value")))
	require.NoError(t, overlay.Commit())
	db1.Close()

	db2, err := NewLevelDB(dir)
	require.NoError(t, err)
	defer db2.Close()
	got, err := db2.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), got)
	_, err = db2.Get([]byte("missing"))
	require.ErrorIs(t, err, ErrNotFound)
}
