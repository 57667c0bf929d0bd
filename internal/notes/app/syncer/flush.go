package syncer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"sheetnotes/internal/notes/domain/entities"
	"sheetnotes/pkg/logger"
)

// FlushResult итог повторной доставки неподтвержденных изменений.
type FlushResult struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// SyncResult итог полной синхронизации источника.
type SyncResult struct {
	Flush FlushResult `json:"flush"`
	Pull  PullResult  `json:"pull"`
}

// SourceLookup находит источник по идентификатору.
type SourceLookup interface {
	Get(ctx context.Context, id string) (*entities.NoteSource, error)
}

// Flush доставляет оставшиеся в очереди изменения источника. Ждет завершения текущих мутаций.
func (e *Engine) Flush(ctx context.Context, source entities.NoteSource) (FlushResult, error) {
	if source.SpreadsheetID == "" {
		return FlushResult{}, ErrInvalidSource
	}
	gate := e.gates.get(source.ID)
	gate.Lock()
	defer gate.Unlock()
	return e.flushLocked(ctx, source)
}

// flushLocked повторяет последнюю запись каждой заметки как upsert:
// строка ищется в таблице, CreateRow вызывается только при ее отсутствии.
func (e *Engine) flushLocked(ctx context.Context, source entities.NoteSource) (FlushResult, error) {
	var result FlushResult
	log := logger.Log(ctx).With(
		zap.String("method", "Engine.Flush"),
		zap.String("source_id", source.ID),
	)

	entries, err := e.store.Pending().ListBySource(ctx, source.ID)
	if err != nil {
		return result, fmt.Errorf("%s: %w", ErrListPending, err)
	}
	if len(entries) == 0 {
		return result, nil
	}

	latest, superseded := entities.CompactPending(entries)
	for _, entry := range superseded {
		if err := e.store.Pending().Remove(ctx, entry.ID); err != nil {
			return result, fmt.Errorf("%s: %w", ErrRemovePending, err)
		}
	}

	index, err := e.resolver.Refresh(ctx, source)
	if err != nil {
		result.Failed = len(latest)
		return result, err
	}

	for _, entry := range latest {
		if err := e.replayEntry(ctx, source, entry, index); err != nil {
			result.Failed++
			log.Warn(ctx, LogFlushEntryFailed,
				zap.String("note_id", entry.NoteID),
				zap.String("operation", string(entry.Operation)),
				zap.Error(err))
			continue
		}
		if err := e.store.Pending().Remove(ctx, entry.ID); err != nil {
			result.Failed++
			log.Error(ctx, LogPendingRemoveFail, zap.Error(err))
			continue
		}
		result.Succeeded++
	}

	log.Info(ctx, LogFlushCompleted,
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed))
	return result, nil
}

func (e *Engine) replayEntry(ctx context.Context, source entities.NoteSource, entry *entities.PendingSync, index map[string]int) error {
	note := entry.Payload
	if note == nil {
		local, err := e.store.Notes().Get(ctx, entry.NoteID)
		if err != nil {
			return fmt.Errorf("%s: %w", ErrReadLocal, err)
		}
		if local == nil {
			// локальной копии нет: доставлять нечего
			return nil
		}
		note = local
	}
	note = note.Clone()
	note.SourceID = source.ID

	row, ok := index[note.ID]
	if !ok {
		if note.IsDeleted() {
			return nil
		}
		created, err := e.remote.CreateRow(ctx, source.SpreadsheetID, note)
		if err != nil {
			return fmt.Errorf("%s: %w", ErrWriteRemote, err)
		}
		index[note.ID] = created
		e.setRow(ctx, source.RowScope(), note.ID, created)
		return nil
	}

	if err := e.remote.UpdateRow(ctx, source.SpreadsheetID, row, note); err != nil {
		return fmt.Errorf("%s: %w", ErrWriteRemote, err)
	}
	return nil
}

// Sync доставляет очередь и затем применяет строки таблицы.
func (e *Engine) Sync(ctx context.Context, source entities.NoteSource) (SyncResult, error) {
	var result SyncResult
	flushed, err := e.Flush(ctx, source)
	result.Flush = flushed
	if err != nil {
		return result, err
	}
	pulled, err := e.Pull(ctx, source)
	result.Pull = pulled
	return result, err
}

// Recover доставляет изменения, оставшиеся от прошлого запуска. Очередь не очищается молча:
// каждый источник с записями логируется, а недоставленные записи остаются до следующей попытки.
func (e *Engine) Recover(ctx context.Context, sources SourceLookup) error {
	log := logger.Log(ctx).With(zap.String("method", "Engine.Recover"))

	ids, err := e.store.Pending().SourcesWithPending(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrListPending, err)
	}

	var errs []error
	for _, id := range ids {
		entries, err := e.store.Pending().ListBySource(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ErrListPending, err))
			continue
		}
		log.Warn(ctx, LogRecoverPending, zap.String("source_id", id), zap.Int("entries", len(entries)))

		source, err := sources.Get(ctx, id)
		if err == nil && source == nil {
			err = ErrInvalidSource
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("source %s: %w", id, err))
			continue
		}
		result, err := e.Flush(ctx, *source)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if result.Failed > 0 {
			errs = append(errs, fmt.Errorf("source %s: %w", id, ErrPendingNotFlushed))
		}
	}
	return errors.Join(errs...)
}
