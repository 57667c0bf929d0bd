// Package cache содержит реализации кэша номеров строк.
package cache

import (
	"context"
	"sync"

	"sheetnotes/internal/notes/domain/entities"
	"sheetnotes/internal/notes/ports/cache"
)

var _ cache.RowIndexCache = (*MemoryRowIndex)(nil)

// MemoryRowIndex кэш номеров строк в памяти процесса.
type MemoryRowIndex struct {
	mu      sync.RWMutex
	sources map[string]map[string]int
}

// NewMemoryRowIndex создает пустой кэш.
func NewMemoryRowIndex() *MemoryRowIndex {
	return &MemoryRowIndex{sources: make(map[string]map[string]int)}
}

// Get возвращает номер строки заметки.
func (c *MemoryRowIndex) Get(_ context.Context, scope, noteID string) (int, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	row, ok := c.sources[scope][noteID]
	return row, ok, nil
}

// Set запоминает номер строки.
func (c *MemoryRowIndex) Set(_ context.Context, scope, noteID string, rowIndex int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	rows, ok := c.sources[scope]
	if !ok {
		rows = make(map[string]int)
		c.sources[scope] = rows
	}
	rows[noteID] = rowIndex
	return nil
}

// Delete забывает номер строки.
func (c *MemoryRowIndex) Delete(_ context.Context, scope, noteID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sources[scope], noteID)
	return nil
}

// PopulateFromListing заменяет отображение источника.
func (c *MemoryRowIndex) PopulateFromListing(_ context.Context, scope string, rows []*entities.Note) error {
	fresh := indexRows(rows)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[scope] = fresh
	return nil
}

// Invalidate очищает отображение источника.
func (c *MemoryRowIndex) Invalidate(_ context.Context, scope string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sources, scope)
	return nil
}

// Clear очищает весь кэш.
func (c *MemoryRowIndex) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources = make(map[string]map[string]int)
	return nil
}

// indexRows строит noteID -> номер строки; строки без id пропускаются.
func indexRows(rows []*entities.Note) map[string]int {
	out := make(map[string]int, len(rows))
	for i, row := range rows {
		if row == nil || row.ID == "" {
			continue
		}
		out[row.ID] = entities.SheetRow(i)
	}
	return out
}
