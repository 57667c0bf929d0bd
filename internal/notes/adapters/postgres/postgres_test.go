package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetnotes/internal/notes/adapters/postgres"
	"sheetnotes/internal/notes/domain/entities"
	"sheetnotes/internal/notes/ports/repositories"
	"sheetnotes/pkg/logger"
)

var (
	errDatabaseConnection = errors.New("database connection failed")
	created               = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	updated               = created.Add(time.Hour)
	noteColumns           = []string{"id", "source_id", "title", "content", "tags", "created_at", "updated_at", "deleted_at"}
)

const (
	selectNoteSQL   = `SELECT id, source_id, title, content, tags, created_at, updated_at, deleted_at FROM notes WHERE id = \$1`
	upsertNoteSQL   = `INSERT INTO notes \(id, source_id, title, content, tags, created_at, updated_at, deleted_at\)`
	listNotesSQL    = `SELECT .+ FROM notes\s+WHERE source_id = \$1 AND deleted_at IS NULL\s+ORDER BY created_at DESC`
	deleteNoteSQL   = `DELETE FROM notes WHERE id = \$1`
	clearNotesSQL   = `DELETE FROM notes WHERE source_id = \$1`
	insertPending   = `INSERT INTO pending_sync \(id, source_id, note_id, operation, payload, queued_at\)`
	listPendingSQL  = `SELECT id, source_id, note_id, operation, payload, queued_at\s+FROM pending_sync\s+WHERE source_id = \$1\s+ORDER BY queued_at ASC`
	deletePending   = `DELETE FROM pending_sync WHERE id = \$1`
	countPendingSQL = `SELECT COUNT\(\*\) FROM pending_sync`
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	testLogger, err := logger.NewLogger(logger.Development, "debug")
	require.NoError(t, err)
	return logger.NewContext(context.Background(), testLogger)
}

func sampleNote() *entities.Note {
	return &entities.Note{
		ID:        "note-1",
		SourceID:  "S1",
		Title:     "A",
		Content:   "B",
		Tags:      "x,y",
		CreatedAt: created,
		UpdatedAt: updated,
	}
}

// putArgs аргументы upsert заметки в порядке колонок.
func putArgs(note *entities.Note) []any {
	return []any{note.ID, note.SourceID, note.Title, note.Content, note.Tags, note.CreatedAt, note.UpdatedAt, note.DeletedAt}
}

func TestStoreImplementsPort(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	assert.Implements(t, (*repositories.Store)(nil), postgres.NewStore(mock, nil))
}

func TestNoteRepository_Get(t *testing.T) {
	ctx := testContext(t)

	tests := []struct {
		name       string
		setupMocks func(mock pgxmock.PgxPoolIface)
		want       *entities.Note
		wantErr    bool
	}{
		{
			name: "found",
			setupMocks: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(selectNoteSQL).
					WithArgs("note-1").
					WillReturnRows(pgxmock.NewRows(noteColumns).
						AddRow("note-1", "S1", "A", "B", "x,y", created, updated, nil))
			},
			want: sampleNote(),
		},
		{
			name: "not found returns nil",
			setupMocks: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(selectNoteSQL).
					WithArgs("note-1").
					WillReturnRows(pgxmock.NewRows(noteColumns))
			},
		},
		{
			name: "database error",
			setupMocks: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(selectNoteSQL).
					WithArgs("note-1").
					WillReturnError(errDatabaseConnection)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()
			tt.setupMocks(mock)

			got, err := postgres.NewNoteRepository(mock).Get(ctx, "note-1")
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, repositories.ErrLocalStorage)
				assert.ErrorIs(t, err, errDatabaseConnection)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestNoteRepository_Put(t *testing.T) {
	ctx := testContext(t)
	note := sampleNote()

	t.Run("upsert", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(upsertNoteSQL).
			WithArgs(putArgs(note)...).
			WillReturnResult(pgconn.NewCommandTag("INSERT 0 1"))

		require.NoError(t, postgres.NewNoteRepository(mock).Put(ctx, note))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(upsertNoteSQL).WithArgs(putArgs(note)...).WillReturnError(errDatabaseConnection)

		err = postgres.NewNoteRepository(mock).Put(ctx, note)
		require.ErrorIs(t, err, repositories.ErrLocalStorage)
		assert.Contains(t, err.Error(), postgres.ErrPutNote)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestNoteRepository_ListBySource(t *testing.T) {
	ctx := testContext(t)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(listNotesSQL).
		WithArgs("S1").
		WillReturnRows(pgxmock.NewRows(noteColumns).
			AddRow("note-2", "S1", "Second", "", "", updated, updated, nil).
			AddRow("note-1", "S1", "A", "B", "x,y", created, updated, nil))

	notes, err := postgres.NewNoteRepository(mock).ListBySource(ctx, "S1")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "note-2", notes[0].ID)
	assert.Equal(t, sampleNote(), notes[1])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepository_DeleteAndClear(t *testing.T) {
	ctx := testContext(t)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(deleteNoteSQL).WithArgs("note-1").WillReturnResult(pgconn.NewCommandTag("DELETE 0"))
	mock.ExpectExec(clearNotesSQL).WithArgs("S1").WillReturnResult(pgconn.NewCommandTag("DELETE 3"))
	mock.ExpectExec(clearNotesSQL).WithArgs("S2").WillReturnError(errDatabaseConnection)

	repo := postgres.NewNoteRepository(mock)
	require.NoError(t, repo.Delete(ctx, "note-1"))
	require.NoError(t, repo.ClearBySource(ctx, "S1"))
	require.ErrorIs(t, repo.ClearBySource(ctx, "S2"), repositories.ErrLocalStorage)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingRepository(t *testing.T) {
	ctx := testContext(t)

	t.Run("add", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		entry := &entities.PendingSync{
			ID: "p1", SourceID: "S1", NoteID: "note-1",
			Operation: entities.OperationCreate, Payload: sampleNote(), Timestamp: updated,
		}
		mock.ExpectExec(insertPending).
			WithArgs("p1", "S1", "note-1", "create", pgxmock.AnyArg(), updated).
			WillReturnResult(pgconn.NewCommandTag("INSERT 0 1"))

		require.NoError(t, postgres.NewPendingRepository(mock).Add(ctx, entry))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("list decodes payload", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		payload := []byte(`{"id":"note-1","sourceId":"S1","title":"A","content":"B","tags":"x,y","createdAt":"2025-04-01T09:00:00Z","updatedAt":"2025-04-01T10:00:00Z"}`)
		mock.ExpectQuery(listPendingSQL).
			WithArgs("S1").
			WillReturnRows(pgxmock.NewRows([]string{"id", "source_id", "note_id", "operation", "payload", "queued_at"}).
				AddRow("p1", "S1", "note-1", "update", payload, created).
				AddRow("p2", "S1", "note-2", "delete", []byte(nil), updated))

		entries, err := postgres.NewPendingRepository(mock).ListBySource(ctx, "S1")
		require.NoError(t, err)
		require.Len(t, entries, 2)

		assert.Equal(t, entities.OperationUpdate, entries[0].Operation)
		require.NotNil(t, entries[0].Payload)
		assert.Equal(t, "x,y", entries[0].Payload.Tags)
		assert.True(t, entries[0].Payload.UpdatedAt.Equal(updated))

		assert.Equal(t, entities.OperationDelete, entries[1].Operation)
		assert.Nil(t, entries[1].Payload)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("remove and count", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(deletePending).WithArgs("p1").WillReturnResult(pgconn.NewCommandTag("DELETE 1"))
		mock.ExpectQuery(countPendingSQL).WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(4))

		repo := postgres.NewPendingRepository(mock)
		require.NoError(t, repo.Remove(ctx, "p1"))
		count, err := repo.CountAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, count)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_RunInTx(t *testing.T) {
	ctx := testContext(t)
	note := sampleNote()

	t.Run("commit", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec(upsertNoteSQL).WithArgs(putArgs(note)...).WillReturnResult(pgconn.NewCommandTag("INSERT 0 1"))
		mock.ExpectExec(insertPending).
			WithArgs("p1", "S1", note.ID, "create", pgxmock.AnyArg(), updated).
			WillReturnResult(pgconn.NewCommandTag("INSERT 0 1"))
		mock.ExpectCommit()

		err = postgres.NewStore(mock, nil).RunInTx(ctx, func(tx repositories.Store) error {
			if err := tx.Notes().Put(ctx, note); err != nil {
				return err
			}
			return tx.Pending().Add(ctx, &entities.PendingSync{
				ID: "p1", SourceID: "S1", NoteID: note.ID, Operation: entities.OperationCreate, Payload: note, Timestamp: updated,
			})
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback on failure", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec(upsertNoteSQL).WithArgs(putArgs(note)...).WillReturnResult(pgconn.NewCommandTag("INSERT 0 1"))
		mock.ExpectExec(insertPending).
			WithArgs("p1", "S1", note.ID, "create", pgxmock.AnyArg(), updated).
			WillReturnError(errDatabaseConnection)
		mock.ExpectRollback()

		err = postgres.NewStore(mock, nil).RunInTx(ctx, func(tx repositories.Store) error {
			if err := tx.Notes().Put(ctx, note); err != nil {
				return err
			}
			return tx.Pending().Add(ctx, &entities.PendingSync{
				ID: "p1", SourceID: "S1", NoteID: note.ID, Operation: entities.OperationCreate, Timestamp: updated,
			})
		})
		require.ErrorIs(t, err, errDatabaseConnection)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin().WillReturnError(errDatabaseConnection)

		called := false
		err = postgres.NewStore(mock, nil).RunInTx(ctx, func(repositories.Store) error {
			called = true
			return nil
		})
		require.ErrorIs(t, err, repositories.ErrLocalStorage)
		assert.False(t, called)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
