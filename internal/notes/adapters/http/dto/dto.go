// Package dto содержит структуры запросов и ответов HTTP API.
package dto

import (
	"time"

	"sheetnotes/internal/notes/domain/entities"
)

// NoteRequest поля заметки; отсутствующее поле не меняется.
type NoteRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Tags    *string `json:"tags"`
}

// NoteResponse заметка и признак подтверждения таблицей.
type NoteResponse struct {
	Note   *entities.Note `json:"note"`
	Synced bool           `json:"synced"`
}

// ListNotesResponse список заметок источника.
type ListNotesResponse struct {
	Notes []*entities.Note `json:"notes"`
	Total int              `json:"total"`
}

// SourceRequest данные источника.
type SourceRequest struct {
	Name          string `json:"name"`
	SpreadsheetID string `json:"spreadsheetId"`
}

// ActiveSourceRequest выбор активного источника.
type ActiveSourceRequest struct {
	ID string `json:"id"`
}

// ListSourcesResponse источники и активный источник.
type ListSourcesResponse struct {
	Sources  []entities.NoteSource `json:"sources"`
	ActiveID string                `json:"activeId,omitempty"`
}

// ViewModeRequest режим отображения.
type ViewModeRequest struct {
	Mode entities.ViewMode `json:"mode"`
}

// ResetResponse шаги сброса кэша.
type ResetResponse struct {
	Steps []string `json:"steps"`
	Error string   `json:"error,omitempty"`
}

// PendingResponse число неподтвержденных изменений.
type PendingResponse struct {
	Pending int `json:"pending"`
}

// Notice уведомление об отмененном изменении.
type Notice struct {
	Kind      string    `json:"kind"`
	SourceID  string    `json:"sourceId"`
	NoteID    string    `json:"noteId"`
	Operation string    `json:"operation"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}
