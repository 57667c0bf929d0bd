package syncer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sheetnotes/internal/notes/domain/entities"
	"sheetnotes/pkg/logger"
)

// PullResult итог применения строк таблицы к локальному кэшу.
type PullResult struct {
	Updated int `json:"updated"`
	Removed int `json:"removed"`
	Skipped int `json:"skipped"`
}

// Pull применяет строки таблицы к локальному кэшу по правилу last-write-wins.
// Строки без id, заметки с неподтвержденными изменениями и заметки, занятые мутацией, пропускаются.
func (e *Engine) Pull(ctx context.Context, source entities.NoteSource) (PullResult, error) {
	var result PullResult
	if source.SpreadsheetID == "" {
		return result, ErrInvalidSource
	}

	log := logger.Log(ctx).With(
		zap.String("method", "Engine.Pull"),
		zap.String("source_id", source.ID),
	)

	gate := e.gates.get(source.ID)
	gate.RLock()
	defer gate.RUnlock()

	rows, err := e.remote.ListRows(ctx, source.SpreadsheetID)
	if err != nil {
		return result, fmt.Errorf("%s: %w", ErrListRemote, err)
	}
	e.resolver.populate(ctx, source.RowScope(), rows)

	pending, err := e.pendingNotes(ctx, source.ID)
	if err != nil {
		return result, err
	}

	for _, row := range rows {
		if row.ID == "" {
			result.Skipped++
			continue
		}
		if _, ok := pending[row.ID]; ok {
			result.Skipped++
			continue
		}

		unlock, ok := e.locks.TryLock(row.ID)
		if !ok {
			result.Skipped++
			continue
		}
		outcome, err := e.applyRow(ctx, source, row)
		unlock()
		if err != nil {
			return result, err
		}

		switch outcome {
		case rowUpdated:
			result.Updated++
		case rowRemoved:
			result.Removed++
		}
	}

	log.Info(ctx, LogPullCompleted,
		zap.Int("rows", len(rows)),
		zap.Int("updated", result.Updated),
		zap.Int("removed", result.Removed),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

type rowOutcome int

const (
	rowUnchanged rowOutcome = iota
	rowUpdated
	rowRemoved
)

// applyRow вызывается под блокировкой заметки: сравнение updatedAt идет с актуальной локальной копией.
func (e *Engine) applyRow(ctx context.Context, source entities.NoteSource, row *entities.Note) (rowOutcome, error) {
	local, err := e.store.Notes().Get(ctx, row.ID)
	if err != nil {
		return rowUnchanged, fmt.Errorf("%s: %w", ErrReadLocal, err)
	}
	if local != nil && local.SourceID != source.ID {
		return rowUnchanged, nil
	}

	if row.IsDeleted() {
		if local == nil {
			return rowUnchanged, nil
		}
		if err := e.store.Notes().Delete(ctx, row.ID); err != nil {
			return rowUnchanged, fmt.Errorf("%s: %w", ErrPullApply, err)
		}
		return rowRemoved, nil
	}

	if local != nil && !row.NewerThan(local) {
		return rowUnchanged, nil
	}

	fresh := row.Clone()
	fresh.SourceID = source.ID
	if err := e.store.Notes().Put(ctx, fresh); err != nil {
		return rowUnchanged, fmt.Errorf("%s: %w", ErrPullApply, err)
	}
	return rowUpdated, nil
}

func (e *Engine) pendingNotes(ctx context.Context, sourceID string) (map[string]struct{}, error) {
	entries, err := e.store.Pending().ListBySource(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrListPending, err)
	}
	out := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		out[entry.NoteID] = struct{}{}
	}
	return out, nil
}
