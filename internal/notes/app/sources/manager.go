// Package sources manages the configured note sources and UI settings.
package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sheetnotes/internal/notes/domain/entities"
	"sheetnotes/internal/notes/ports/kv"
	"sheetnotes/pkg/logger"
)

// Ключи хранилища настроек.
const (
	KeySources       = "notesSources"
	KeyActiveSource  = "notesActiveSourceId"
	KeyLegacySheetID = "notesSpreadsheetId"
	KeyViewMode      = "notesViewMode"
)

// Ошибки менеджера источников.
var (
	ErrSourceNotFound  = errors.New("source not found")
	ErrInvalidSource   = errors.New("source name and spreadsheet id are required")
	ErrInvalidViewMode = errors.New("unknown view mode")
)

// Константы сообщений.
const (
	LogSourceAdded    = "source added"
	LogSourceUpdated  = "source updated"
	LogSourceRemoved  = "source removed"
	LogActiveChanged  = "active source changed"
	LogLegacyMigrated = "legacy spreadsheet setting migrated to source"
	LogCorruptSources = "stored source list is corrupt, treating as empty"
	ErrReadSources    = "failed to read sources"
	ErrWriteSources   = "failed to write sources"
	ErrReadActive     = "failed to read active source"
	ErrWriteActive    = "failed to write active source"
	ErrReadLegacy     = "failed to read legacy spreadsheet id"
	ErrDropLegacy     = "failed to delete legacy spreadsheet id"
	ErrReadViewMode   = "failed to read view mode"
	ErrWriteViewMode  = "failed to write view mode"
	ErrMarshalSources = "failed to encode sources"
)

// Manager хранит список источников и выбранный источник в key-value хранилище.
type Manager struct {
	store kv.Store
	newID func() string
	mu    sync.Mutex
}

// NewManager создает менеджер поверх store.
func NewManager(store kv.Store) *Manager {
	return &Manager{store: store, newID: uuid.NewString}
}

// List возвращает все источники в порядке добавления.
func (m *Manager) List(ctx context.Context) ([]entities.NoteSource, error) {
	return m.load(ctx)
}

// Get возвращает источник по id.
func (m *Manager) Get(ctx context.Context, id string) (*entities.NoteSource, error) {
	list, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexOf(list, id); i >= 0 {
		source := list[i]
		return &source, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, id)
}

// Active возвращает выбранный источник. Если выбор не сохранен или устарел, берется первый.
// При пустом списке возвращает nil, nil.
func (m *Manager) Active(ctx context.Context) (*entities.NoteSource, error) {
	list, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}

	activeID, err := m.get(ctx, KeyActiveSource)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrReadActive, err)
	}
	if i := indexOf(list, activeID); i >= 0 {
		source := list[i]
		return &source, nil
	}
	source := list[0]
	return &source, nil
}

// Add добавляет источник. Первый добавленный источник становится активным.
func (m *Manager) Add(ctx context.Context, name, spreadsheetID string) (*entities.NoteSource, error) {
	name, spreadsheetID = strings.TrimSpace(name), strings.TrimSpace(spreadsheetID)
	if name == "" || spreadsheetID == "" {
		return nil, ErrInvalidSource
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	list, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	source := entities.NoteSource{ID: m.newID(), Name: name, SpreadsheetID: spreadsheetID}
	list = append(list, source)
	if err := m.save(ctx, list); err != nil {
		return nil, err
	}
	if len(list) == 1 {
		if err := m.store.Set(ctx, KeyActiveSource, source.ID); err != nil {
			return nil, fmt.Errorf("%s: %w", ErrWriteActive, err)
		}
	}

	logger.Log(ctx).Info(ctx, LogSourceAdded,
		zap.String("method", "Manager.Add"), zap.String("source_id", source.ID))
	return &source, nil
}

// Update меняет имя и таблицу источника.
func (m *Manager) Update(ctx context.Context, id, name, spreadsheetID string) (*entities.NoteSource, error) {
	name, spreadsheetID = strings.TrimSpace(name), strings.TrimSpace(spreadsheetID)
	if name == "" || spreadsheetID == "" {
		return nil, ErrInvalidSource
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	list, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(list, id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, id)
	}
	list[i].Name = name
	list[i].SpreadsheetID = spreadsheetID
	if err := m.save(ctx, list); err != nil {
		return nil, err
	}

	logger.Log(ctx).Info(ctx, LogSourceUpdated,
		zap.String("method", "Manager.Update"), zap.String("source_id", id))
	source := list[i]
	return &source, nil
}

// Remove удаляет источник. Если он был активным, активным становится первый из оставшихся.
func (m *Manager) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list, err := m.load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(list, id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, id)
	}
	list = append(list[:i], list[i+1:]...)
	if err := m.save(ctx, list); err != nil {
		return err
	}

	activeID, err := m.get(ctx, KeyActiveSource)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrReadActive, err)
	}
	if activeID == id || activeID == "" {
		if len(list) == 0 {
			err = m.store.Delete(ctx, KeyActiveSource)
		} else {
			err = m.store.Set(ctx, KeyActiveSource, list[0].ID)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", ErrWriteActive, err)
		}
	}

	logger.Log(ctx).Info(ctx, LogSourceRemoved,
		zap.String("method", "Manager.Remove"), zap.String("source_id", id))
	return nil
}

// SetActive делает источник активным.
func (m *Manager) SetActive(ctx context.Context, id string) (*entities.NoteSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(list, id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, id)
	}
	if err := m.store.Set(ctx, KeyActiveSource, id); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrWriteActive, err)
	}

	logger.Log(ctx).Info(ctx, LogActiveChanged,
		zap.String("method", "Manager.SetActive"), zap.String("source_id", id))
	source := list[i]
	return &source, nil
}

// MigrateLegacy превращает настройку с одной таблицей в источник "default".
// Повторный вызов ничего не меняет.
func (m *Manager) MigrateLegacy(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	legacy, err := m.get(ctx, KeyLegacySheetID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", ErrReadLegacy, err)
	}
	legacy = strings.TrimSpace(legacy)
	if legacy == "" {
		return false, nil
	}

	list, err := m.load(ctx)
	if err != nil {
		return false, err
	}
	if indexOf(list, entities.LegacySourceID) < 0 {
		list = append(list, entities.NoteSource{
			ID:            entities.LegacySourceID,
			Name:          entities.LegacySourceName,
			SpreadsheetID: legacy,
		})
		if err := m.save(ctx, list); err != nil {
			return false, err
		}
	}
	if err := m.store.Set(ctx, KeyActiveSource, entities.LegacySourceID); err != nil {
		return false, fmt.Errorf("%s: %w", ErrWriteActive, err)
	}
	if err := m.store.Delete(ctx, KeyLegacySheetID); err != nil {
		return false, fmt.Errorf("%s: %w", ErrDropLegacy, err)
	}

	logger.Log(ctx).Info(ctx, LogLegacyMigrated, zap.String("method", "Manager.MigrateLegacy"))
	return true, nil
}

// ViewMode возвращает сохраненный режим отображения, по умолчанию список.
func (m *Manager) ViewMode(ctx context.Context) (entities.ViewMode, error) {
	raw, err := m.get(ctx, KeyViewMode)
	if err != nil {
		return "", fmt.Errorf("%s: %w", ErrReadViewMode, err)
	}
	mode := entities.ViewMode(raw)
	if !mode.Valid() {
		return entities.ViewModeList, nil
	}
	return mode, nil
}

// SetViewMode сохраняет режим отображения.
func (m *Manager) SetViewMode(ctx context.Context, mode entities.ViewMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidViewMode, mode)
	}
	if err := m.store.Set(ctx, KeyViewMode, string(mode)); err != nil {
		return fmt.Errorf("%s: %w", ErrWriteViewMode, err)
	}
	return nil
}

// get возвращает значение ключа или пустую строку при его отсутствии.
func (m *Manager) get(ctx context.Context, key string) (string, error) {
	value, err := m.store.Get(ctx, key)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return "", nil
	}
	return value, err
}

func (m *Manager) load(ctx context.Context) ([]entities.NoteSource, error) {
	raw, err := m.get(ctx, KeySources)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrReadSources, err)
	}
	if raw == "" {
		return []entities.NoteSource{}, nil
	}
	var list []entities.NoteSource
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		logger.Log(ctx).Warn(ctx, LogCorruptSources, zap.String("method", "Manager.load"), zap.Error(err))
		return []entities.NoteSource{}, nil
	}
	return list, nil
}

func (m *Manager) save(ctx context.Context, list []entities.NoteSource) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMarshalSources, err)
	}
	if err := m.store.Set(ctx, KeySources, string(raw)); err != nil {
		return fmt.Errorf("%s: %w", ErrWriteSources, err)
	}
	return nil
}

func indexOf(list []entities.NoteSource, id string) int {
	if id == "" {
		return -1
	}
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}
