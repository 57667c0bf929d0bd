package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"sheetnotes/internal/notes/domain/entities"
	"sheetnotes/pkg/logger"
)

// Константы ошибок репозитория заметок.
const (
	ErrGetNote    = "failed to get note"
	ErrPutNote    = "failed to put note"
	ErrDeleteNote = "failed to delete note"
	ErrListNotes  = "failed to list notes"
	ErrScanNote   = "failed to scan note"
	ErrClearNotes = "failed to clear notes"
)

// liveNotes условие, которым все выборки отсекают мягко удаленные заметки.
const liveNotes = "deleted_at IS NULL"

const noteColumns = "id, source_id, title, content, tags, created_at, updated_at, deleted_at"

// NoteRepository реализует repositories.NoteRepository.
type NoteRepository struct {
	q Querier
}

// NewNoteRepository создает репозиторий заметок поверх пула или транзакции.
func NewNoteRepository(q Querier) *NoteRepository {
	return &NoteRepository{q: q}
}

// Get возвращает заметку по ID или nil, если ее нет.
func (r *NoteRepository) Get(ctx context.Context, id string) (*entities.Note, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteRepository.Get"))

	note, err := scanNote(r.q.QueryRow(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Debug(ctx, "note not found", zap.String("noteID", id))
			return nil, nil
		}
		log.Error(ctx, ErrGetNote, zap.Error(err))
		return nil, wrap(ErrGetNote, err)
	}
	return note, nil
}

// Put вставляет заметку или перезаписывает существующую.
func (r *NoteRepository) Put(ctx context.Context, note *entities.Note) error {
	log := logger.Log(ctx).With(zap.String("method", "NoteRepository.Put"))
	log.Debug(ctx, "putting note", zap.String("noteID", note.ID), zap.String("sourceID", note.SourceID))

	_, err := r.q.Exec(ctx,
		`INSERT INTO notes (`+noteColumns+`)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
         ON CONFLICT (id) DO UPDATE SET
             source_id = EXCLUDED.source_id,
             title = EXCLUDED.title,
             content = EXCLUDED.content,
             tags = EXCLUDED.tags,
             created_at = EXCLUDED.created_at,
             updated_at = EXCLUDED.updated_at,
             deleted_at = EXCLUDED.deleted_at`,
		note.ID, note.SourceID, note.Title, note.Content, note.Tags,
		note.CreatedAt, note.UpdatedAt, note.DeletedAt,
	)
	if err != nil {
		log.Error(ctx, ErrPutNote, zap.Error(err))
		return wrap(ErrPutNote, err)
	}
	return nil
}

// Delete физически удаляет заметку. Отсутствие строки ошибкой не считается.
func (r *NoteRepository) Delete(ctx context.Context, id string) error {
	log := logger.Log(ctx).With(zap.String("method", "NoteRepository.Delete"))

	if _, err := r.q.Exec(ctx, `DELETE FROM notes WHERE id = $1`, id); err != nil {
		log.Error(ctx, ErrDeleteNote, zap.Error(err))
		return wrap(ErrDeleteNote, err)
	}
	return nil
}

// ListBySource возвращает неудаленные заметки источника, новые первыми.
func (r *NoteRepository) ListBySource(ctx context.Context, sourceID string) ([]*entities.Note, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteRepository.ListBySource"))

	rows, err := r.q.Query(ctx,
		`SELECT `+noteColumns+` FROM notes
         WHERE source_id = $1 AND `+liveNotes+`
         ORDER BY created_at DESC`,
		sourceID,
	)
	if err != nil {
		log.Error(ctx, ErrListNotes, zap.Error(err))
		return nil, wrap(ErrListNotes, err)
	}
	defer rows.Close()

	notes := make([]*entities.Note, 0)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			log.Error(ctx, ErrScanNote, zap.Error(err))
			return nil, wrap(ErrScanNote, err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		log.Error(ctx, ErrListNotes, zap.Error(err))
		return nil, wrap(ErrListNotes, err)
	}

	log.Debug(ctx, "notes listed", zap.String("sourceID", sourceID), zap.Int("count", len(notes)))
	return notes, nil
}

// ClearBySource удаляет все заметки источника, включая мягко удаленные.
func (r *NoteRepository) ClearBySource(ctx context.Context, sourceID string) error {
	log := logger.Log(ctx).With(zap.String("method", "NoteRepository.ClearBySource"))

	tag, err := r.q.Exec(ctx, `DELETE FROM notes WHERE source_id = $1`, sourceID)
	if err != nil {
		log.Error(ctx, ErrClearNotes, zap.Error(err))
		return wrap(ErrClearNotes, err)
	}

	log.Info(ctx, "local notes cleared", zap.String("sourceID", sourceID), zap.Int64("rows", tag.RowsAffected()))
	return nil
}

func scanNote(row pgx.Row) (*entities.Note, error) {
	var (
		note      entities.Note
		deletedAt pgtype.Timestamptz
	)
	if err := row.Scan(&note.ID, &note.SourceID, &note.Title, &note.Content, &note.Tags,
		&note.CreatedAt, &note.UpdatedAt, &deletedAt); err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		note.DeletedAt = &t
	}
	return &note, nil
}
