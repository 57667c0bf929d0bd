// Package remote defines the row-oriented remote store the notes are mirrored to.
package remote

import (
	"context"
	"errors"

	"sheetnotes/internal/notes/domain/entities"
)

// Классы сбоев удаленной стороны. Адаптер оборачивает ими все ошибки.
var (
	ErrUnreachable      = errors.New("remote store is unreachable")
	ErrPermissionDenied = errors.New("permission denied by remote store")
	ErrNotFound         = errors.New("row or sheet not found in remote store")
	ErrServer           = errors.New("remote store server error")
	ErrRemote           = errors.New("remote store request failed")
)

// NoteColumns колонки листа заметок в порядке заголовка.
var NoteColumns = []string{"id", "title", "content", "tags", "createdAt", "updatedAt"}

// Store клиент таблицы с заголовком в первой строке. rowIndex абсолютный номер строки.
type Store interface {
	CreateRow(ctx context.Context, spreadsheetID string, note *entities.Note) (int, error)
	UpdateRow(ctx context.Context, spreadsheetID string, rowIndex int, note *entities.Note) error
	DeleteRow(ctx context.Context, spreadsheetID string, rowIndex int) error
	// ListRows возвращает строки данных в порядке таблицы.
	ListRows(ctx context.Context, spreadsheetID string) ([]*entities.Note, error)
	// HealthCheck возвращает nil, если прокси доступен.
	HealthCheck(ctx context.Context) error
}

// SheetAdmin операции подготовки таблицы при подключении источника.
type SheetAdmin interface {
	ListSheets(ctx context.Context, spreadsheetID string) ([]string, error)
	CreateSheet(ctx context.Context, spreadsheetID, name string, columns []string) error
}
