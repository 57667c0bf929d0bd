package syncer

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"sheetnotes/internal/notes/domain/entities"
	"sheetnotes/internal/notes/ports/cache"
	"sheetnotes/internal/notes/ports/remote"
	"sheetnotes/pkg/logger"
)

// Resolver находит номер строки заметки: сначала в кэше, при промахе по полному списку строк.
type Resolver struct {
	remote remote.Store
	rows   cache.RowIndexCache
	group  singleflight.Group
}

// NewResolver создает резолвер.
func NewResolver(remoteStore remote.Store, rows cache.RowIndexCache) *Resolver {
	return &Resolver{remote: remoteStore, rows: rows}
}

// Resolve возвращает номер строки. remote.ErrNotFound только после перечитывания таблицы.
func (r *Resolver) Resolve(ctx context.Context, source entities.NoteSource, noteID string) (int, error) {
	log := logger.Log(ctx).With(
		zap.String("method", "Resolver.Resolve"),
		zap.String("source_id", source.ID),
		zap.String("note_id", noteID),
	)

	row, ok, err := r.rows.Get(ctx, source.RowScope(), noteID)
	if err != nil {
		log.Warn(ctx, LogRowIndexFailed, zap.Error(err))
	}
	if err == nil && ok {
		return row, nil
	}

	index, err := r.Refresh(ctx, source)
	if err != nil {
		return 0, err
	}
	row, ok = index[noteID]
	if !ok {
		return 0, fmt.Errorf("%s %s: %w", ErrResolveRow, noteID, remote.ErrNotFound)
	}
	return row, nil
}

// Refresh перечитывает таблицу источника и заполняет кэш. Параллельные вызовы для источника объединяются.
func (r *Resolver) Refresh(ctx context.Context, source entities.NoteSource) (map[string]int, error) {
	scope := source.RowScope()
	v, err, _ := r.group.Do(scope, func() (any, error) {
		rows, err := r.remote.ListRows(ctx, source.SpreadsheetID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrListRemote, err)
		}
		r.populate(ctx, scope, rows)
		return indexOf(rows), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]int), nil
}

func (r *Resolver) populate(ctx context.Context, scope string, rows []*entities.Note) {
	if err := r.rows.PopulateFromListing(ctx, scope, rows); err != nil {
		logger.Log(ctx).Warn(ctx, LogRowIndexFailed, zap.String("scope", scope), zap.Error(err))
	}
}

func indexOf(rows []*entities.Note) map[string]int {
	out := make(map[string]int, len(rows))
	for i, row := range rows {
		if row.ID != "" {
			out[row.ID] = entities.SheetRow(i)
		}
	}
	return out
}
