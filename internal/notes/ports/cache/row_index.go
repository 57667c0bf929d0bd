// Package cache defines the row index cache.
package cache

import (
	"context"

	"sheetnotes/internal/notes/domain/entities"
)

// RowIndexCache отображение noteID -> номер строки таблицы в пределах scope (entities.NoteSource.RowScope).
// Промах не означает отсутствия строки: вызывающий обязан перечитать таблицу.
type RowIndexCache interface {
	Get(ctx context.Context, scope, noteID string) (int, bool, error)
	Set(ctx context.Context, scope, noteID string, rowIndex int) error
	Delete(ctx context.Context, scope, noteID string) error
	// PopulateFromListing заменяет отображение scope по полному списку строк.
	PopulateFromListing(ctx context.Context, scope string, rows []*entities.Note) error
	Invalidate(ctx context.Context, scope string) error
	// Clear удаляет все отображения. Вызывается при старте: кэш живет не дольше процесса.
	Clear(ctx context.Context) error
}
