package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/iconlens/internal/store"
)

// setupTestStore creates a new DB and returns its entry store.
// The DB is closed when the test completes.
func setupTestStore(t *testing.T) *EntryStore {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err, "Failed to create test database")
	t.Cleanup(func() { db.Close() })
	return db.EntryStore()
}

func TestEntryStore_ReadMissing(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.Read(t.Context(), "collections/mdi")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntryStore_WriteOverwrites(t *testing.T) {
	s := setupTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.Write(ctx, "collections/mdi", []byte(`{"v":1}`)))
	require.NoError(t, s.Write(ctx, "collections/mdi", []byte(`{"v":2}`)))

	got, err := s.Read(ctx, "collections/mdi")
	require.NoError(t, err)
	require.Equal(t, []byte(`{"v":2}`), got)

	var count int
	require.NoError(t, s.db.conn.QueryRow("SELECT COUNT(*) FROM entries").Scan(&count))
	require.Equal(t, 1, count)
}

func TestEntryStore_DeleteNamespace(t *testing.T) {
	s := setupTestStore(t)
	ctx := t.Context()

	for _, key := range []string{"collections", "collections/mdi", "collections/mdi-light", "collections-old", "icons-mdi"} {
		require.NoError(t, s.Write(ctx, key, []byte(key)))
	}

	require.NoError(t, s.DeleteNamespace(ctx, "collections"))

	keys, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{"collections-old", "icons-mdi"}, keys)
}

func TestEntryStore_List(t *testing.T) {
	s := setupTestStore(t)
	ctx := t.Context()

	for _, key := range []string{"icons-mdi", "icons-carbon", "collections/mdi", "icons_x"} {
		require.NoError(t, s.Write(ctx, key, []byte("{}")))
	}

	keys, err := s.List(ctx, "icons-")
	require.NoError(t, err)
	require.Equal(t, []string{"icons-carbon", "icons-mdi"}, keys)

	keys, err = s.List(ctx, "nothing/")
	require.NoError(t, err)
	require.Empty(t, keys)
}
