package sources_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kvadapter "sheetnotes/internal/notes/adapters/kv"
	"sheetnotes/internal/notes/app/sources"
	"sheetnotes/internal/notes/domain/entities"
	"sheetnotes/internal/notes/ports/kv"
)

func stores(t *testing.T) map[string]func(t *testing.T) kv.Store {
	t.Helper()
	return map[string]func(t *testing.T) kv.Store{
		"memory": func(*testing.T) kv.Store { return kvadapter.NewMemoryStore() },
		"redis": func(t *testing.T) kv.Store {
			srv := miniredis.RunT(t)
			client := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			return kvadapter.NewRedisStore(client, "test:")
		},
	}
}

func TestManager_Lifecycle(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			m := sources.NewManager(newStore(t))

			active, err := m.Active(ctx)
			require.NoError(t, err)
			assert.Nil(t, active)

			work, err := m.Add(ctx, " Work ", " sheet-work ")
			require.NoError(t, err)
			assert.NotEmpty(t, work.ID)
			assert.Equal(t, "Work", work.Name)
			assert.Equal(t, "sheet-work", work.SpreadsheetID)

			home, err := m.Add(ctx, "Home", "sheet-home")
			require.NoError(t, err)

			active, err = m.Active(ctx)
			require.NoError(t, err)
			require.NotNil(t, active)
			assert.Equal(t, work.ID, active.ID, "first source becomes active")

			list, err := m.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []entities.NoteSource{*work, *home}, list)

			_, err = m.SetActive(ctx, home.ID)
			require.NoError(t, err)
			active, err = m.Active(ctx)
			require.NoError(t, err)
			assert.Equal(t, home.ID, active.ID)

			updated, err := m.Update(ctx, home.ID, "Personal", "sheet-personal")
			require.NoError(t, err)
			assert.Equal(t, "Personal", updated.Name)
			got, err := m.Get(ctx, home.ID)
			require.NoError(t, err)
			assert.Equal(t, "sheet-personal", got.SpreadsheetID)

			require.NoError(t, m.Remove(ctx, home.ID))
			active, err = m.Active(ctx)
			require.NoError(t, err)
			assert.Equal(t, work.ID, active.ID, "active moves to first remaining")

			require.NoError(t, m.Remove(ctx, work.ID))
			active, err = m.Active(ctx)
			require.NoError(t, err)
			assert.Nil(t, active)
		})
	}
}

func TestManager_Errors(t *testing.T) {
	ctx := context.Background()
	m := sources.NewManager(kvadapter.NewMemoryStore())

	tests := []struct {
		name    string
		call    func() error
		wantErr error
	}{
		{
			name:    "add without name",
			call:    func() error { _, err := m.Add(ctx, " ", "sheet"); return err },
			wantErr: sources.ErrInvalidSource,
		},
		{
			name:    "add without spreadsheet",
			call:    func() error { _, err := m.Add(ctx, "Work", ""); return err },
			wantErr: sources.ErrInvalidSource,
		},
		{
			name:    "get unknown",
			call:    func() error { _, err := m.Get(ctx, "missing"); return err },
			wantErr: sources.ErrSourceNotFound,
		},
		{
			name:    "update unknown",
			call:    func() error { _, err := m.Update(ctx, "missing", "a", "b"); return err },
			wantErr: sources.ErrSourceNotFound,
		},
		{
			name:    "remove unknown",
			call:    func() error { return m.Remove(ctx, "missing") },
			wantErr: sources.ErrSourceNotFound,
		},
		{
			name:    "activate unknown",
			call:    func() error { _, err := m.SetActive(ctx, "missing"); return err },
			wantErr: sources.ErrSourceNotFound,
		},
		{
			name:    "bad view mode",
			call:    func() error { return m.SetViewMode(ctx, "table") },
			wantErr: sources.ErrInvalidViewMode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.call(), tt.wantErr)
		})
	}
}

func TestManager_ActiveFallsBackToFirst(t *testing.T) {
	ctx := context.Background()
	store := kvadapter.NewMemoryStore()
	m := sources.NewManager(store)

	first, err := m.Add(ctx, "First", "s1")
	require.NoError(t, err)
	_, err = m.Add(ctx, "Second", "s2")
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, sources.KeyActiveSource, "stale-id"))

	active, err := m.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)
}

func TestManager_CorruptListIsEmpty(t *testing.T) {
	ctx := context.Background()
	store := kvadapter.NewMemoryStore()
	require.NoError(t, store.Set(ctx, sources.KeySources, "{not json"))

	list, err := sources.NewManager(store).List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestManager_MigrateLegacy(t *testing.T) {
	ctx := context.Background()
	store := kvadapter.NewMemoryStore()
	m := sources.NewManager(store)

	migrated, err := m.MigrateLegacy(ctx)
	require.NoError(t, err)
	assert.False(t, migrated, "nothing to migrate")

	require.NoError(t, store.Set(ctx, sources.KeyLegacySheetID, "legacy-sheet"))
	migrated, err = m.MigrateLegacy(ctx)
	require.NoError(t, err)
	assert.True(t, migrated)

	active, err := m.Active(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, entities.NoteSource{
		ID:            entities.LegacySourceID,
		Name:          entities.LegacySourceName,
		SpreadsheetID: "legacy-sheet",
	}, *active)

	_, err = store.Get(ctx, sources.KeyLegacySheetID)
	require.ErrorIs(t, err, kv.ErrKeyNotFound)

	migrated, err = m.MigrateLegacy(ctx)
	require.NoError(t, err)
	assert.False(t, migrated)
	list, err := m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestManager_ViewMode(t *testing.T) {
	ctx := context.Background()
	m := sources.NewManager(kvadapter.NewMemoryStore())

	mode, err := m.ViewMode(ctx)
	require.NoError(t, err)
	assert.Equal(t, entities.ViewModeList, mode)

	require.NoError(t, m.SetViewMode(ctx, entities.ViewModeKanban))
	mode, err = m.ViewMode(ctx)
	require.NoError(t, err)
	assert.Equal(t, entities.ViewModeKanban, mode)
}
