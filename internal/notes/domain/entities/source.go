package entities

// Идентификатор и имя источника, создаваемого из устаревшей настройки с одной таблицей.
const (
	LegacySourceID   = "default"
	LegacySourceName = "Primary Notes"
)

// NoteSource именованная удаленная таблица, в которой хранится группа заметок.
type NoteSource struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	SpreadsheetID string `json:"spreadsheetId"`
}

// RowScope ключ кэша номеров строк. Включает таблицу: после смены таблицы источника старые номера не используются.
func (s NoteSource) RowScope() string {
	return s.ID + "/" + s.SpreadsheetID
}

// ViewMode режим отображения списка заметок.
type ViewMode string

// Режимы отображения.
const (
	ViewModeList   ViewMode = "list"
	ViewModeGrid   ViewMode = "grid"
	ViewModeKanban ViewMode = "kanban"
)

// Valid проверяет режим отображения.
func (v ViewMode) Valid() bool {
	switch v {
	case ViewModeList, ViewModeGrid, ViewModeKanban:
		return true
	}
	return false
}
