package settings

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	s, err := Load(context.Background(), NewMemoryStore())
	require.NoError(t, err)
	assert.Equal(t, Defaults, s)
}

func TestLoadIgnoresBadValues(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, keyColor, "not-a-colour"))
	require.NoError(t, store.Set(ctx, keySize, "1.5"))

	s, err := Load(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, Defaults.Color, s.Color)
	assert.Equal(t, 1.5, s.TextSizeMultiplier)

	require.NoError(t, store.Set(ctx, keySize, "abc"))
	s, err = Load(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.TextSizeMultiplier)
}

func TestSaveValidates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	assert.ErrorIs(t, Save(ctx, store, Settings{Color: "cyan", TextSizeMultiplier: 1}), ErrInvalid)
	assert.Error(t, Save(ctx, store, Settings{Color: "#22c55e", TextSizeMultiplier: 0}))
	assert.Error(t, Save(ctx, store, Settings{Color: "#22c55e", TextSizeMultiplier: 4}))

	_, ok, err := store.Get(ctx, keyColor)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.db")

	store, err := OpenSQLite(path)
	require.NoError(t, err)
	want := Settings{Color: "#eab308", TextSizeMultiplier: 1.25}
	require.NoError(t, Save(ctx, store, want))
	require.NoError(t, Save(ctx, store, Settings{Color: "#f43f5e", TextSizeMultiplier: 1.25}))
	require.NoError(t, store.Close())

	// reopen to prove values survive a restart
	store, err = OpenSQLite(path)
	require.NoError(t, err)
	defer store.Close()

	got, err := Load(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, Settings{Color: "#f43f5e", TextSizeMultiplier: 1.25}, got)
}

func TestSQLiteSaveIsAtomic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	defer store.Close()

	_, err = store.db.ExecContext(ctx, `
		CREATE TRIGGER reject_size BEFORE INSERT ON settings
		WHEN NEW.key = 'hudSize'
		BEGIN SELECT RAISE(ABORT, 'size rejected'); END;
	`)
	require.NoError(t, err)

	err = Save(ctx, store, Settings{Color: "#22c55e", TextSizeMultiplier: 2})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)

	// the colour written in the same transaction was rolled back
	_, ok, err := store.Get(ctx, keyColor)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreSetAll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, Save(ctx, store, Settings{Color: "#fafafa", TextSizeMultiplier: 0.75}))

	got, err := Load(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, Settings{Color: "#fafafa", TextSizeMultiplier: 0.75}, got)
}
