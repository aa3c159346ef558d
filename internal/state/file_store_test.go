package state

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/arkit/pkg/connect"
)

func TestFileStore_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested", "state")
	store := NewFileStore(dir)

	rec, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec, "empty store")

	want := connect.Record{
		StrategyID:  "keyfile",
		SessionID:   "8f1b5a1e-2f9d-4a47-9d1c-0a7c7f3e51a2",
		ConnectedAt: time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)

	// Saving again replaces the session
	want.StrategyID = "keychain"
	require.NoError(t, store.Save(ctx, want))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "keychain", got.StrategyID)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")

	require.NoError(t, store.Clear(ctx))
	rec, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)

	require.NoError(t, store.Clear(ctx), "clearing an empty store")
}

func TestFileStore_FileFormat(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewFileStore(t.TempDir())

	require.NoError(t, store.Save(ctx, connect.Record{
		StrategyID:  "readonly",
		SessionID:   "abc",
		ConnectedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"strategy_id": "readonly",
		"session_id": "abc",
		"connected_at": "2026-01-02T03:04:05Z"
	}`, string(data))
}

func TestFileStore_Permissions(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}

	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "state")
	store := NewFileStore(dir)
	require.NoError(t, store.Save(ctx, connect.Record{StrategyID: "keyfile"}))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	info, err = os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestFileStore_CorruptFile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewFileStore(t.TempDir())
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0600))

	_, err := store.Load(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse session file")

	require.NoError(t, store.Clear(ctx))
	rec, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestFileStore_EmptyRecordIsNoSession(t *testing.T) {
	t.Parallel()

	store := NewFileStore(t.TempDir())
	require.NoError(t, os.WriteFile(store.Path(), []byte(`{"strategy_id":""}`), 0600))

	rec, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestDefaultStateDir(t *testing.T) {
	// Not parallel: t.Setenv
	t.Setenv("ARKIT_STATE_DIR", "/custom/state")
	assert.Equal(t, "/custom/state", DefaultStateDir())

	t.Setenv("ARKIT_STATE_DIR", "")
	t.Setenv("XDG_STATE_HOME", "/xdg/state")
	assert.Equal(t, filepath.Join("/xdg/state", "arkit"), DefaultStateDir())

	t.Setenv("XDG_STATE_HOME", "")
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".local", "state", "arkit"), DefaultStateDir())
}
