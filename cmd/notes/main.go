// Package main реализует точку входа службы заметок.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httpadapter "sheetnotes/internal/notes/adapters/http"
	"sheetnotes/internal/notes/adapters/services"
	"sheetnotes/internal/notes/app"
	"sheetnotes/internal/notes/app/sources"
	"sheetnotes/internal/notes/app/syncer"
	"sheetnotes/internal/notes/config"
	"sheetnotes/pkg/logger"
	"sheetnotes/pkg/shutdown"
)

// Константы для переменных окружения.
const (
	EnvLoggerMode  = "NOTES_LOGGER_MODE"
	EnvLoggerLevel = "NOTES_LOGGER_LEVEL"
)

// Константы для сообщений об ошибках.
const (
	ErrInitLogger           = "failed to initialize logger"
	ErrSyncLogger           = "failed to sync logger"
	ErrLoadConfig           = "failed to load configuration"
	ErrInitLoggerWithConfig = "failed to initialize logger with configuration settings"
	ErrInitStorage          = "failed to initialize storage"
	ErrMigrateLegacy        = "failed to migrate legacy source setting"
	ErrClearRowIndex        = "failed to clear row index cache"
	ErrRecoverPending       = "failed to replay pending changes"
	ErrServe                = "service stopped with error"
)

// Константы для игнорируемых ошибок.
const (
	ErrSyncStderr = "sync /dev/stderr: invalid argument"
	ErrSyncStdout = "sync /dev/stdout: invalid argument"
)

// Константы для сообщений сервиса.
const (
	LogServiceStarted      = "note service started"
	LogServiceShutdownDone = "note service shutdown complete"
	LogClosingStore        = "closing local store"
	LogClosingRedis        = "closing Redis connection"
	LogStoppingHTTP        = "stopping HTTP server"
	LogStoppingScheduler   = "stopping periodic sync"
	LogClosingEngine       = "waiting for in-flight remote writes"
	LogInitServices        = "initializing services"
	LogInitHTTPServer      = "initializing HTTP server"
	LogStartingHTTP        = "starting HTTP server"
	LogAuthDisabled        = "NOTES_JWT_SECRET is empty, API authentication disabled"
)

func main() {
	env := logger.Development
	if strings.ToLower(os.Getenv(EnvLoggerMode)) == "production" {
		env = logger.Production
	}

	log, err := logger.NewLogger(env, os.Getenv(EnvLoggerLevel))
	if err != nil {
		panic(ErrInitLogger + ": " + err.Error())
	}

	logger.SetGlobalLogger(log)

	ctx := logger.NewRequestIDContext(context.Background(), "")

	var exitCode int

	func() {
		defer func() {
			if err := log.Sync(); err != nil {
				errMsg := err.Error()
				if strings.Contains(errMsg, ErrSyncStderr) || strings.Contains(errMsg, ErrSyncStdout) {
					return
				}
				if _, writeErr := fmt.Fprintf(os.Stderr, "%s: %v\n", ErrSyncLogger, err); writeErr != nil {
					panic(writeErr)
				}
			}
		}()

		cfg, err := config.Load(ctx)
		if err != nil {
			log.Error(ctx, ErrLoadConfig, zap.Error(err))
			exitCode = 1
			return
		}

		finalLogger, err := logger.NewLogger(cfg.Logging.GetEnvironment(), cfg.Logging.Level, cfg.Logging.Options()...)
		if err != nil {
			log.Error(ctx, ErrInitLoggerWithConfig, zap.Error(err))
			exitCode = 1
			return
		}
		logger.SetGlobalLogger(finalLogger)
		log = finalLogger

		log.Info(ctx, LogServiceStarted,
			zap.String("environment", string(cfg.Logging.GetEnvironment())),
			zap.String("log_level", cfg.Logging.Level),
			zap.String("startup_time", time.Now().Format(time.RFC3339)))

		store, storeHealth, err := openStore(ctx, cfg)
		if err != nil {
			log.Error(ctx, ErrInitStorage, zap.Error(err))
			exitCode = 1
			return
		}
		redisClient, err := openRedis(ctx, cfg)
		if err != nil {
			log.Error(ctx, ErrInitStorage, zap.Error(err))
			_ = store.Close(ctx)
			exitCode = 1
			return
		}

		log.Info(ctx, LogInitServices)
		remoteStore, sheetName := newRemote(&cfg.Sheets)
		manager := sources.NewManager(newKV(cfg, redisClient))
		if _, err := manager.MigrateLegacy(ctx); err != nil {
			log.Warn(ctx, ErrMigrateLegacy, zap.Error(err))
		}

		rowIndex := newRowIndex(cfg, redisClient)
		if err := rowIndex.Clear(ctx); err != nil {
			log.Warn(ctx, ErrClearRowIndex, zap.Error(err))
		}

		engine := syncer.NewEngine(store, remoteStore, rowIndex,
			syncer.WithNotifier(syncer.NewNotifier(cfg.Sync.NoticeBuffer)))
		scheduler := syncer.NewScheduler(engine, manager, cfg.Sync.Interval)

		deps := httpadapter.Deps{
			Notes:        app.NewNoteUseCase(engine, store.Notes(), manager),
			Sources:      manager,
			Provisioner:  sources.NewProvisioner(remoteStore, remoteStore, sheetName),
			Sync:         app.NewSyncUseCase(engine, manager),
			CORSOrigins:  cfg.HTTP.CORSOrigins,
			HealthChecks: map[string]httpadapter.HealthCheck{"remote": remoteStore.HealthCheck},
		}
		if storeHealth != nil {
			deps.HealthChecks["store"] = httpadapter.HealthCheck(storeHealth)
		}
		if redisClient != nil {
			deps.HealthChecks["redis"] = redisClient.Ping
		}
		if cfg.JWT.Enabled() {
			deps.Tokens = services.NewJWT(cfg.JWT.SecretKey)
		} else {
			log.Warn(ctx, LogAuthDisabled)
		}

		log.Info(ctx, LogInitHTTPServer)
		fiberApp := fiber.New(fiber.Config{
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
		})
		httpadapter.SetupRouter(fiberApp, deps)

		runCtx, stopRun := context.WithCancel(ctx)
		defer stopRun()
		group, groupCtx := errgroup.WithContext(runCtx)

		if cfg.Sync.RecoverOnBoot {
			group.Go(func() error {
				if err := engine.Recover(groupCtx, manager); err != nil {
					log.Warn(groupCtx, ErrRecoverPending, zap.Error(err))
				}
				return nil
			})
		}
		group.Go(func() error {
			return scheduler.Run(groupCtx)
		})
		group.Go(func() error {
			log.Info(ctx, LogStartingHTTP, zap.String("address", cfg.HTTP.GetAddress()))
			return fiberApp.Listen(cfg.HTTP.GetAddress(), fiber.ListenConfig{DisableStartupMessage: true})
		})

		err = shutdown.Wait(groupCtx, cfg.Shutdown.Timeout,
			// Остановка HTTP сервера.
			func(ctx context.Context) error {
				log.Info(ctx, LogStoppingHTTP)
				return fiberApp.ShutdownWithContext(ctx)
			},
			// Остановка периодической синхронизации.
			func(context.Context) error {
				log.Info(ctx, LogStoppingScheduler)
				stopRun()
				return nil
			},
			// Ожидание фоновых записей в таблицу.
			func(ctx context.Context) error {
				log.Info(ctx, LogClosingEngine)
				drainCtx, cancel := context.WithTimeout(ctx, cfg.Shutdown.DrainTimeout)
				defer cancel()
				return engine.Close(drainCtx)
			},
			// Закрытие локального хранилища.
			func(ctx context.Context) error {
				log.Info(ctx, LogClosingStore)
				return store.Close(ctx)
			},
			// Закрытие Redis соединения.
			func(ctx context.Context) error {
				if redisClient == nil {
					return nil
				}
				log.Info(ctx, LogClosingRedis)
				return redisClient.Close(ctx)
			},
		)
		if err != nil {
			exitCode = 1
		}

		if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			log.Error(ctx, ErrServe, zap.Error(err))
			exitCode = 1
		}

		log.Info(ctx, LogServiceShutdownDone)
	}()

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
