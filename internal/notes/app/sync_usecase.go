package app

import (
	"context"

	"sheetnotes/internal/notes/app/syncer"
)

// SyncUseCase запускает синхронизацию источников по их идентификатору.
type SyncUseCase struct {
	engine  *syncer.Engine
	sources SourceLookup
}

// NewSyncUseCase создает новый экземпляр SyncUseCase.
func NewSyncUseCase(engine *syncer.Engine, sources SourceLookup) *SyncUseCase {
	return &SyncUseCase{engine: engine, sources: sources}
}

// Sync доставляет очередь и подтягивает таблицу.
func (uc *SyncUseCase) Sync(ctx context.Context, sourceID string) (syncer.SyncResult, error) {
	source, err := uc.sources.Get(ctx, sourceID)
	if err != nil {
		return syncer.SyncResult{}, err
	}
	return uc.engine.Sync(ctx, *source)
}

// Pull подтягивает строки таблицы в локальный кэш.
func (uc *SyncUseCase) Pull(ctx context.Context, sourceID string) (syncer.PullResult, error) {
	source, err := uc.sources.Get(ctx, sourceID)
	if err != nil {
		return syncer.PullResult{}, err
	}
	return uc.engine.Pull(ctx, *source)
}

// Flush доставляет неподтвержденные изменения источника.
func (uc *SyncUseCase) Flush(ctx context.Context, sourceID string) (syncer.FlushResult, error) {
	source, err := uc.sources.Get(ctx, sourceID)
	if err != nil {
		return syncer.FlushResult{}, err
	}
	return uc.engine.Flush(ctx, *source)
}

// Reset перезаливает кэш источника и возвращает пройденные шаги.
func (uc *SyncUseCase) Reset(ctx context.Context, sourceID string) ([]string, error) {
	source, err := uc.sources.Get(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	steps := make([]string, 0, 4)
	err = uc.engine.Reset(ctx, *source, func(step string) {
		if step != syncer.StepDone {
			steps = append(steps, step)
		}
	})
	return steps, err
}

// PendingCount число неподтвержденных изменений во всех источниках.
func (uc *SyncUseCase) PendingCount(ctx context.Context) (int, error) {
	return uc.engine.PendingCount(ctx)
}

// Notices последние уведомления об отмененных изменениях.
func (uc *SyncUseCase) Notices() []syncer.Notice {
	return uc.engine.Notices().Recent()
}
