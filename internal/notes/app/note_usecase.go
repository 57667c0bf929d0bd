// Package app implements application business logic for the notes service.
package app

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"sheetnotes/internal/notes/app/syncer"
	"sheetnotes/internal/notes/domain/entities"
	"sheetnotes/internal/notes/ports/repositories"
	"sheetnotes/pkg/logger"
)

// Константы сообщений use case.
const (
	LogNotesExported = "notes exported"
	ErrListNotes     = "failed to list notes"
	ErrGetNote       = "failed to get note"
	ErrWriteCSV      = "failed to write csv"
)

// ExportColumns заголовок CSV выгрузки.
var ExportColumns = []string{"id", "title", "content", "tags", "createdAt", "updatedAt", "deletedAt"}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SourceLookup находит источник по идентификатору.
type SourceLookup interface {
	Get(ctx context.Context, id string) (*entities.NoteSource, error)
}

// NoteUseCase представляет собой бизнес-логику работы с заметками источника.
type NoteUseCase struct {
	engine  *syncer.Engine
	notes   repositories.NoteRepository
	sources SourceLookup
	now     func() time.Time
}

// NewNoteUseCase создает новый экземпляр NoteUseCase.
func NewNoteUseCase(engine *syncer.Engine, notes repositories.NoteRepository, sources SourceLookup) *NoteUseCase {
	return &NoteUseCase{
		engine:  engine,
		notes:   notes,
		sources: sources,
		now:     time.Now,
	}
}

// NoteInput поля заметки из запроса; nil означает "не менять".
type NoteInput struct {
	Title   *string
	Content *string
	Tags    *string
}

// List возвращает неудаленные заметки источника с фильтрами и сортировкой.
func (uc *NoteUseCase) List(ctx context.Context, sourceID string, opts entities.ListOptions) ([]*entities.Note, error) {
	if _, err := uc.sources.Get(ctx, sourceID); err != nil {
		return nil, err
	}
	notes, err := uc.notes.ListBySource(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrListNotes, err)
	}
	return opts.Apply(notes), nil
}

// Get возвращает неудаленную заметку источника.
func (uc *NoteUseCase) Get(ctx context.Context, sourceID, noteID string) (*entities.Note, error) {
	note, err := uc.notes.Get(ctx, noteID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrGetNote, err)
	}
	if note == nil || note.SourceID != sourceID || note.IsDeleted() {
		return nil, ErrNotFound
	}
	return note, nil
}

// Create создает заметку. Заголовок и содержимое не могут быть пустыми одновременно.
func (uc *NoteUseCase) Create(ctx context.Context, sourceID string, in NoteInput) (*syncer.Receipt, error) {
	source, err := uc.sources.Get(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	draft := syncer.Draft{
		Title:   strings.TrimSpace(deref(in.Title)),
		Content: deref(in.Content),
		Tags:    entities.NormalizeTags(deref(in.Tags)),
	}
	if draft.Title == "" && strings.TrimSpace(draft.Content) == "" {
		return nil, fmt.Errorf("%w: title or content is required", ErrInvalidParams)
	}
	return uc.engine.Create(ctx, *source, draft)
}

// Update меняет переданные поля заметки.
func (uc *NoteUseCase) Update(ctx context.Context, sourceID, noteID string, in NoteInput) (*syncer.Receipt, error) {
	if in.Title == nil && in.Content == nil && in.Tags == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidParams)
	}
	source, err := uc.sources.Get(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	patch := syncer.Patch{Content: in.Content}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		patch.Title = &title
	}
	if in.Tags != nil {
		tags := entities.NormalizeTags(*in.Tags)
		patch.Tags = &tags
	}
	return uc.engine.Update(ctx, *source, noteID, patch)
}

// Delete мягко удаляет заметку.
func (uc *NoteUseCase) Delete(ctx context.Context, sourceID, noteID string) (*syncer.Receipt, error) {
	source, err := uc.sources.Get(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	return uc.engine.Delete(ctx, *source, noteID)
}

// Tags возвращает отсортированное множество тегов источника.
func (uc *NoteUseCase) Tags(ctx context.Context, sourceID string) ([]string, error) {
	notes, err := uc.List(ctx, sourceID, entities.ListOptions{})
	if err != nil {
		return nil, err
	}
	return entities.UniqueTags(notes), nil
}

// Templates возвращает шаблоны источника.
func (uc *NoteUseCase) Templates(ctx context.Context, sourceID string) ([]entities.Template, error) {
	notes, err := uc.List(ctx, sourceID, entities.ListOptions{})
	if err != nil {
		return nil, err
	}
	return entities.Templates(notes), nil
}

// ExportCSV пишет заметки источника в w и возвращает имя файла выгрузки.
func (uc *NoteUseCase) ExportCSV(ctx context.Context, sourceID string, w io.Writer) (string, error) {
	source, err := uc.sources.Get(ctx, sourceID)
	if err != nil {
		return "", err
	}
	notes, err := uc.List(ctx, sourceID, entities.ListOptions{Sort: entities.SortOldest})
	if err != nil {
		return "", err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportColumns); err != nil {
		return "", fmt.Errorf("%s: %w", ErrWriteCSV, err)
	}
	for _, n := range notes {
		deletedAt := ""
		if n.DeletedAt != nil {
			deletedAt = formatTime(*n.DeletedAt)
		}
		record := []string{n.ID, n.Title, n.Content, n.Tags, formatTime(n.CreatedAt), formatTime(n.UpdatedAt), deletedAt}
		if err := cw.Write(record); err != nil {
			return "", fmt.Errorf("%s: %w", ErrWriteCSV, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("%s: %w", ErrWriteCSV, err)
	}

	name := ExportFileName(source.Name, uc.now())
	logger.Log(ctx).Info(ctx, LogNotesExported,
		zap.String("method", "NoteUseCase.ExportCSV"),
		zap.String("source_id", sourceID),
		zap.Int("count", len(notes)))
	return name, nil
}

// ExportFileName строит имя файла выгрузки: notes-export-<name>-<YYYY-MM-DD>.csv.
func ExportFileName(sourceName string, now time.Time) string {
	safe := strings.ToLower(unsafeFileChars.ReplaceAllString(sourceName, "-"))
	return fmt.Sprintf("notes-export-%s-%s.csv", safe, now.UTC().Format(time.DateOnly))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
