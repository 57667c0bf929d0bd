package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetnotes/internal/notes/adapters/sqlite"
	"sheetnotes/internal/notes/domain/entities"
	"sheetnotes/internal/notes/ports/repositories"
)

var created = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	ctx := context.Background()
	s, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "cache", "notes.db"), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(ctx) })
	return s
}

func TestOpen_MigratesSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "notes.db")

	s, err := sqlite.Open(ctx, path, 0)
	require.NoError(t, err)
	v, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, sqlite.SchemaVersion(), v)
	require.NoError(t, s.Close(ctx))

	// повторное открытие не применяет миграции заново
	s, err = sqlite.Open(ctx, path, 0)
	require.NoError(t, err)
	defer s.Close(ctx)
	v, err = s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, sqlite.SchemaVersion(), v)
}

func TestNoteRepository(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	repo := s.Notes()

	got, err := repo.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	n := entities.NewNote("n1", "S1", "A", "B", "x,y", created)
	require.NoError(t, repo.Put(ctx, n))

	got, err = repo.Get(ctx, "n1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "A", got.Title)
	assert.Equal(t, "x,y", got.Tags)
	assert.True(t, got.CreatedAt.Equal(created))
	assert.Nil(t, got.DeletedAt)

	n.Title = "A2"
	n.MarkDeleted(created.Add(time.Hour))
	require.NoError(t, repo.Put(ctx, n))

	got, err = repo.Get(ctx, "n1")
	require.NoError(t, err)
	require.NotNil(t, got.DeletedAt)
	assert.Equal(t, "A2", got.Title)
	assert.True(t, got.DeletedAt.Equal(created.Add(time.Hour)))

	list, err := repo.ListBySource(ctx, "S1")
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, repo.Put(ctx, entities.NewNote("n2", "S1", "old", "", "", created)))
	require.NoError(t, repo.Put(ctx, entities.NewNote("n3", "S1", "new", "", "", created.Add(time.Minute))))
	require.NoError(t, repo.Put(ctx, entities.NewNote("n4", "S2", "other", "", "", created)))

	list, err = repo.ListBySource(ctx, "S1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "n3", list[0].ID)
	assert.Equal(t, "n2", list[1].ID)

	require.NoError(t, repo.Delete(ctx, "n3"))
	require.NoError(t, repo.ClearBySource(ctx, "S2"))

	got, err = repo.Get(ctx, "n4")
	require.NoError(t, err)
	assert.Nil(t, got)
	list, err = repo.ListBySource(ctx, "S1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPendingRepository(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	q := s.Pending()

	payload := entities.NewNote("n1", "S1", "A", "B", "", created)
	require.NoError(t, q.Add(ctx, &entities.PendingSync{
		ID: "p2", SourceID: "S1", NoteID: "n1", Operation: entities.OperationUpdate, Payload: payload, Timestamp: created.Add(time.Second),
	}))
	require.NoError(t, q.Add(ctx, &entities.PendingSync{
		ID: "p1", SourceID: "S1", NoteID: "n1", Operation: entities.OperationCreate, Payload: payload, Timestamp: created,
	}))
	require.NoError(t, q.Add(ctx, &entities.PendingSync{
		ID: "p3", SourceID: "S2", NoteID: "n9", Operation: entities.OperationDelete, Timestamp: created,
	}))

	list, err := q.ListBySource(ctx, "S1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "p1", list[0].ID)
	assert.Equal(t, entities.OperationCreate, list[0].Operation)
	require.NotNil(t, list[0].Payload)
	assert.Equal(t, "A", list[0].Payload.Title)

	other, err := q.ListBySource(ctx, "S2")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Nil(t, other[0].Payload)

	sources, err := q.SourcesWithPending(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"S1", "S2"}, sources)

	count, err := q.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, q.Remove(ctx, "p1"))
	require.NoError(t, q.ClearBySource(ctx, "S2"))
	count, err = q.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStore_RunInTx(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	errBoom := errors.New("boom")

	err := s.RunInTx(ctx, func(tx repositories.Store) error {
		if err := tx.Notes().Put(ctx, entities.NewNote("n1", "S1", "A", "", "", created)); err != nil {
			return err
		}
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	got, err := s.Notes().Get(ctx, "n1")
	require.NoError(t, err)
	assert.Nil(t, got)

	err = s.RunInTx(ctx, func(tx repositories.Store) error {
		if err := tx.Notes().Put(ctx, entities.NewNote("n1", "S1", "A", "", "", created)); err != nil {
			return err
		}
		// вложенный вызов переиспользует транзакцию
		return tx.RunInTx(ctx, func(inner repositories.Store) error {
			return inner.Pending().Add(ctx, &entities.PendingSync{
				ID: "p1", SourceID: "S1", NoteID: "n1", Operation: entities.OperationCreate, Timestamp: created,
			})
		})
	})
	require.NoError(t, err)

	got, err = s.Notes().Get(ctx, "n1")
	require.NoError(t, err)
	assert.NotNil(t, got)
	count, err := s.Pending().CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
