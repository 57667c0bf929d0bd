// Package shutdown ожидает сигнал завершения и выполняет хуки остановки.
package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"sheetnotes/pkg/logger"
)

const (
	msgSignalReceived   = "shutdown signal received"
	msgContextCancelled = "context cancelled, shutting down"
	msgHookFailed       = "shutdown hook failed"
	msgShutdownTimeout  = "shutdown timed out"
	msgShutdownDone     = "shutdown completed"
)

// Hook один шаг остановки.
type Hook func(context.Context) error

// Wait блокируется до SIGINT/SIGTERM или отмены ctx, затем выполняет хуки по порядку
// в пределах timeout. Хуки идут последовательно: сначала транспорт, потом то, чем он пользуется.
func Wait(ctx context.Context, timeout time.Duration, hooks ...Hook) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	log := logger.Log(ctx)

	select {
	case sig := <-sigCh:
		log.Info(ctx, msgSignalReceived, zap.String("signal", sig.String()))
	case <-ctx.Done():
		log.Info(ctx, msgContextCancelled)
	}

	return Run(context.WithoutCancel(ctx), timeout, hooks...)
}

// Run выполняет хуки по порядку, пока не истечет timeout. Ошибки хуков объединяются.
func Run(ctx context.Context, timeout time.Duration, hooks ...Hook) error {
	log := logger.Log(ctx)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		var errs []error
		for _, hook := range hooks {
			if err := hook(ctx); err != nil {
				log.Error(ctx, msgHookFailed, zap.Error(err))
				errs = append(errs, err)
			}
		}
		done <- errors.Join(errs...)
	}()

	select {
	case err := <-done:
		log.Info(ctx, msgShutdownDone)
		return err
	case <-ctx.Done():
		log.Warn(ctx, msgShutdownTimeout, zap.Duration("timeout", timeout))
		return ctx.Err()
	}
}
