package syncer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"sheetnotes/internal/notes/domain/entities"
	"sheetnotes/internal/notes/ports/remote"
	"sheetnotes/internal/notes/ports/repositories"
	"sheetnotes/pkg/logger"
)

// Reset заменяет локальный кэш источника свежими строками таблицы.
// До успешного чтения таблицы локальные данные не меняются; очистка и запись идут в одной транзакции.
// progress получает текст каждого шага и пустую строку по завершении.
func (e *Engine) Reset(ctx context.Context, source entities.NoteSource, progress func(step string)) error {
	if source.SpreadsheetID == "" {
		return ErrInvalidSource
	}

	log := logger.Log(ctx).With(
		zap.String("method", "Engine.Reset"),
		zap.String("source_id", source.ID),
	)
	report := func(step string) {
		if step != StepDone {
			log.Info(ctx, LogResetStep, zap.String("step", step))
		}
		if progress != nil {
			progress(step)
		}
	}

	gate := e.gates.get(source.ID)
	gate.Lock()
	defer gate.Unlock()

	report(StepCheckingConnection)
	if err := e.remote.HealthCheck(ctx); err != nil {
		if !errors.Is(err, remote.ErrUnreachable) {
			err = fmt.Errorf("%w: %w", remote.ErrUnreachable, err)
		}
		return fmt.Errorf("%s: %w", MsgAPIUnreachable, err)
	}

	flushed, err := e.flushLocked(ctx, source)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPendingNotFlushed, err)
	}
	if flushed.Failed > 0 {
		return fmt.Errorf("%w: %d entries failed", ErrPendingNotFlushed, flushed.Failed)
	}

	report(StepFetching)
	rows, err := e.remote.ListRows(ctx, source.SpreadsheetID)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrListRemote, err)
	}

	report(StepClearing)
	written := 0
	err = e.store.RunInTx(ctx, func(tx repositories.Store) error {
		if err := tx.Notes().ClearBySource(ctx, source.ID); err != nil {
			return fmt.Errorf("%s: %w", ErrResetClear, err)
		}
		if err := tx.Pending().ClearBySource(ctx, source.ID); err != nil {
			return fmt.Errorf("%s: %w", ErrResetClear, err)
		}

		report(StepWriting)
		for _, row := range rows {
			if row.ID == "" || row.IsDeleted() {
				continue
			}
			fresh := row.Clone()
			fresh.SourceID = source.ID
			if err := tx.Notes().Put(ctx, fresh); err != nil {
				return fmt.Errorf("%s: %w", ErrResetWrite, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := e.rows.Invalidate(ctx, source.RowScope()); err != nil {
		log.Warn(ctx, LogRowIndexFailed, zap.Error(err))
	}
	e.resolver.populate(ctx, source.RowScope(), rows)

	log.Info(ctx, LogResetCompleted, zap.Int("rows", len(rows)), zap.Int("written", written))
	report(StepDone)
	return nil
}
