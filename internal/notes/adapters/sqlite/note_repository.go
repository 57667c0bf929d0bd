package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"sheetnotes/internal/notes/domain/entities"
	"sheetnotes/internal/notes/ports/repositories"
	"sheetnotes/pkg/logger"
)

// Константы ошибок репозитория заметок.
const (
	ErrGetNote    = "failed to get note"
	ErrPutNote    = "failed to put note"
	ErrDeleteNote = "failed to delete note"
	ErrListNotes  = "failed to list notes"
	ErrClearNotes = "failed to clear notes"
)

const (
	liveNotes   = "deleted_at IS NULL"
	noteColumns = "id, source_id, title, content, tags, created_at, updated_at, deleted_at"
)

// NoteRepository реализует repositories.NoteRepository.
type NoteRepository struct {
	q querier
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Get возвращает заметку по ID или nil, если ее нет.
func (r *NoteRepository) Get(ctx context.Context, id string) (*entities.Note, error) {
	note, err := scanNote(r.q.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.Log(ctx).Error(ctx, ErrGetNote, zap.Error(err), zap.String("noteID", id))
		return nil, repositories.Wrap(ErrGetNote, err)
	}
	return note, nil
}

// Put вставляет заметку или перезаписывает существующую.
func (r *NoteRepository) Put(ctx context.Context, note *entities.Note) error {
	var deletedAt sql.NullInt64
	if note.DeletedAt != nil {
		deletedAt = sql.NullInt64{Int64: toUnix(*note.DeletedAt), Valid: true}
	}

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO notes (`+noteColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT (id) DO UPDATE SET
             source_id = excluded.source_id,
             title = excluded.title,
             content = excluded.content,
             tags = excluded.tags,
             created_at = excluded.created_at,
             updated_at = excluded.updated_at,
             deleted_at = excluded.deleted_at`,
		note.ID, note.SourceID, note.Title, note.Content, note.Tags,
		toUnix(note.CreatedAt), toUnix(note.UpdatedAt), deletedAt,
	)
	if err != nil {
		logger.Log(ctx).Error(ctx, ErrPutNote, zap.Error(err), zap.String("noteID", note.ID))
		return repositories.Wrap(ErrPutNote, err)
	}
	return nil
}

// Delete физически удаляет заметку.
func (r *NoteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id); err != nil {
		logger.Log(ctx).Error(ctx, ErrDeleteNote, zap.Error(err), zap.String("noteID", id))
		return repositories.Wrap(ErrDeleteNote, err)
	}
	return nil
}

// ListBySource возвращает неудаленные заметки источника, новые первыми.
func (r *NoteRepository) ListBySource(ctx context.Context, sourceID string) ([]*entities.Note, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE source_id = ? AND `+liveNotes+` ORDER BY created_at DESC`,
		sourceID)
	if err != nil {
		logger.Log(ctx).Error(ctx, ErrListNotes, zap.Error(err))
		return nil, repositories.Wrap(ErrListNotes, err)
	}
	defer rows.Close()

	notes := make([]*entities.Note, 0)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, repositories.Wrap(ErrListNotes, err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, repositories.Wrap(ErrListNotes, err)
	}
	return notes, nil
}

// ClearBySource удаляет все заметки источника.
func (r *NoteRepository) ClearBySource(ctx context.Context, sourceID string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM notes WHERE source_id = ?`, sourceID); err != nil {
		logger.Log(ctx).Error(ctx, ErrClearNotes, zap.Error(err))
		return repositories.Wrap(ErrClearNotes, err)
	}
	return nil
}

func scanNote(row rowScanner) (*entities.Note, error) {
	var (
		note               entities.Note
		createdAt, updated int64
		deletedAt          sql.NullInt64
	)
	if err := row.Scan(&note.ID, &note.SourceID, &note.Title, &note.Content, &note.Tags,
		&createdAt, &updated, &deletedAt); err != nil {
		return nil, err
	}
	note.CreatedAt = fromUnix(createdAt)
	note.UpdatedAt = fromUnix(updated)
	if deletedAt.Valid {
		t := fromUnix(deletedAt.Int64)
		note.DeletedAt = &t
	}
	return &note, nil
}
