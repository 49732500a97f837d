package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_ValidationErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		dbPath      string
		expectedErr string
	}{
		{"empty_path", "", "empty database path"},
		{"whitespace_path", "   ", "empty database path"},
		{"tabs_path", "\t\t", "empty database path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Open(ctx, tt.dbPath)
			assert.Nil(t, store)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestOpen_Success(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := Open(ctx, dbPath)
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.NotNil(t, store.DB())

	assert.NoError(t, store.Close())
}

func TestOpen_DirectoryCreation(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "deep", "test.db")

	store, err := Open(ctx, dbPath)
	require.NoError(t, err)
	defer store.Close()

	assert.DirExists(t, filepath.Dir(dbPath))
}

func TestMigrations_Schema(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer store.Close()

	var ver int
	require.NoError(t, store.DB().QueryRowContext(ctx, "PRAGMA user_version;").Scan(&ver))
	assert.Equal(t, 3, ver)

	for _, table := range []string{"prefs", "audit_log", "draft_cache"} {
		var name string
		err := store.DB().QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		assert.NoError(t, err, "table %s must exist", table)
	}
}

func TestPrefStore_GetSet(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer store.Close()

	ps := NewPrefStore(store)
	require.NotNil(t, ps)

	// Absent keys are omitted, not errors.
	got, err := ps.Get(ctx, "threadEnabled:T1")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, ps.Set(ctx, map[string]string{
		"threadEnabled:T1": "true",
		"threadEnabled:T2": "false",
	}))

	got, err = ps.Get(ctx, "threadEnabled:T1", "threadEnabled:T2", "threadEnabled:T3")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"threadEnabled:T1": "true",
		"threadEnabled:T2": "false",
	}, got)

	// Upsert overwrites.
	require.NoError(t, ps.Set(ctx, map[string]string{"threadEnabled:T1": "false"}))
	got, err = ps.Get(ctx, "threadEnabled:T1")
	require.NoError(t, err)
	assert.Equal(t, "false", got["threadEnabled:T1"])
}

func TestPrefStore_Validation(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer store.Close()

	ps := NewPrefStore(store)
	assert.Error(t, ps.Set(ctx, map[string]string{"": "x"}))
	assert.NoError(t, ps.Set(ctx, nil))

	assert.Nil(t, NewPrefStore(nil))
}

func TestAuditStore_AppendAndRecent(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer store.Close()

	as := NewAuditStore(store)
	require.NotNil(t, as)

	require.NoError(t, as.Append(ctx, "surface_attached", "T1", ""))
	require.NoError(t, as.Append(ctx, "reply_generated", "T1", "142 chars"))
	assert.Error(t, as.Append(ctx, "  ", "T1", ""))

	events, err := as.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "reply_generated", events[0].Event, "newest first")
	assert.Equal(t, "surface_attached", events[1].Event)
	assert.Equal(t, "T1", events[0].ThreadID)
	assert.False(t, events[0].CreatedAt.IsZero())
}

func TestDraftCache_SaveLoad(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer store.Close()

	dc := NewDraftCache(store)
	hash := InputHash("conversation text")

	_, _, ok, err := dc.Load(ctx, "T1", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, dc.Save(ctx, "T1", hash, "draft one", "ollama"))
	draft, provider, ok, err := dc.Load(ctx, "T1", hash)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "draft one", draft)
	assert.Equal(t, "ollama", provider)

	// Upsert replaces the stored draft.
	require.NoError(t, dc.Save(ctx, "T1", hash, "draft two", "bedrock"))
	draft, provider, ok, err = dc.Load(ctx, "T1", hash)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "draft two", draft)
	assert.Equal(t, "bedrock", provider)

	// A changed conversation misses.
	_, _, ok, err = dc.Load(ctx, "T1", InputHash("conversation text plus a new message"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, dc.DeleteThread(ctx, "T1"))
	_, _, ok, err = dc.Load(ctx, "T1", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDraftCache_Validation(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer store.Close()

	dc := NewDraftCache(store)
	assert.Error(t, dc.Save(ctx, "", "h", "draft", "p"))
	assert.Error(t, dc.Save(ctx, "T1", "", "draft", "p"))
	assert.Error(t, dc.Save(ctx, "T1", "h", "   ", "p"))

	var nilCache *DraftCache
	assert.Nil(t, NewDraftCache(nil))
	assert.Error(t, nilCache.Save(ctx, "T1", "h", "draft", "p"))
	_, _, _, err = nilCache.Load(ctx, "T1", "h")
	assert.Error(t, err)
}
