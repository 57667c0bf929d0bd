// Package repositories defines local storage interfaces for the notes service.
package repositories

import (
	"context"
	"errors"
	"fmt"

	"sheetnotes/internal/notes/domain/entities"
)

// ErrLocalStorage оборачивает любой сбой локального хранилища.
var ErrLocalStorage = errors.New("local storage failure")

// NoteRepository локальная таблица заметок, разбитая по источникам.
type NoteRepository interface {
	// Get возвращает заметку, включая мягко удаленную, или nil, nil при отсутствии.
	Get(ctx context.Context, id string) (*entities.Note, error)
	Put(ctx context.Context, note *entities.Note) error
	Delete(ctx context.Context, id string) error
	// ListBySource не возвращает мягко удаленные заметки.
	ListBySource(ctx context.Context, sourceID string) ([]*entities.Note, error)
	ClearBySource(ctx context.Context, sourceID string) error
}

// PendingRepository очередь изменений, ожидающих подтверждения таблицей.
type PendingRepository interface {
	Add(ctx context.Context, entry *entities.PendingSync) error
	Remove(ctx context.Context, id string) error
	// ListBySource возвращает записи в порядке времени.
	ListBySource(ctx context.Context, sourceID string) ([]*entities.PendingSync, error)
	SourcesWithPending(ctx context.Context) ([]string, error)
	CountAll(ctx context.Context) (int, error)
	ClearBySource(ctx context.Context, sourceID string) error
}

// Store объединяет таблицы локального хранилища.
type Store interface {
	Notes() NoteRepository
	Pending() PendingRepository
	// RunInTx выполняет fn атомарно: запись заметки и записи очереди не разъезжаются.
	RunInTx(ctx context.Context, fn func(tx Store) error) error
	Close(ctx context.Context) error
}

// Wrap помечает ошибку драйвера как сбой локального хранилища.
func Wrap(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrLocalStorage, err)
}
