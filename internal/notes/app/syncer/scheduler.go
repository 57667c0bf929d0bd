package syncer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"sheetnotes/internal/notes/domain/entities"
	"sheetnotes/pkg/logger"
)

// Константы сообщений планировщика.
const (
	LogSchedulerStarted = "periodic sync started"
	LogSchedulerStopped = "periodic sync stopped"
	LogScheduledSync    = "periodic sync failed"
	LogNoActiveSource   = "no active source, periodic sync skipped"

	DefaultInterval = 30 * time.Second
)

// ActiveSource возвращает текущий источник или nil.
type ActiveSource interface {
	Active(ctx context.Context) (*entities.NoteSource, error)
}

// Scheduler периодически синхронизирует активный источник.
type Scheduler struct {
	engine   *Engine
	sources  ActiveSource
	interval time.Duration
}

// NewScheduler создает планировщик; interval <= 0 означает DefaultInterval.
func NewScheduler(engine *Engine, sources ActiveSource, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{engine: engine, sources: sources, interval: interval}
}

// Run синхронизирует по таймеру до отмены ctx.
func (s *Scheduler) Run(ctx context.Context) error {
	log := logger.Log(ctx).With(zap.String("method", "Scheduler.Run"))
	log.Info(ctx, LogSchedulerStarted, zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info(ctx, LogSchedulerStopped)
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick выполняет одну синхронизацию активного источника.
func (s *Scheduler) Tick(ctx context.Context) {
	log := logger.Log(ctx).With(zap.String("method", "Scheduler.Tick"))

	source, err := s.sources.Active(ctx)
	if err != nil {
		log.Warn(ctx, LogScheduledSync, zap.Error(err))
		return
	}
	if source == nil {
		log.Debug(ctx, LogNoActiveSource)
		return
	}

	if _, err := s.engine.Sync(ctx, *source); err != nil {
		log.Warn(ctx, LogScheduledSync, zap.String("source_id", source.ID), zap.Error(err))
	}
}
