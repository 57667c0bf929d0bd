package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	cacheadapter "sheetnotes/internal/notes/adapters/cache"
	kvadapter "sheetnotes/internal/notes/adapters/kv"
	"sheetnotes/internal/notes/adapters/memory"
	"sheetnotes/internal/notes/adapters/postgres"
	"sheetnotes/internal/notes/adapters/sheets"
	"sheetnotes/internal/notes/adapters/sqlite"
	"sheetnotes/internal/notes/config"
	"sheetnotes/internal/notes/db"
	"sheetnotes/internal/notes/ports/cache"
	"sheetnotes/internal/notes/ports/kv"
	"sheetnotes/internal/notes/ports/repositories"
	"sheetnotes/internal/notes/resilience"
	"sheetnotes/pkg/db/redis"
	"sheetnotes/pkg/logger"
)

// Константы сообщений инициализации хранилищ.
const (
	LogOpenStore    = "opening local store"
	LogSchemaReady  = "local schema ready"
	ErrOpenStore    = "failed to open local store"
	ErrConnectRedis = "failed to connect to Redis"
)

// healthCheck проверка зависимости для /health.
type healthCheck func(ctx context.Context) error

// openStore открывает локальное хранилище выбранного драйвера.
func openStore(ctx context.Context, cfg *config.Config) (repositories.Store, healthCheck, error) {
	logger.Log(ctx).Info(ctx, LogOpenStore, zap.String("driver", cfg.Storage.Driver))

	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		database, err := db.New(ctx, &cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", ErrOpenStore, err)
		}
		migration := database.Migration()
		logger.Log(ctx).Info(ctx, LogSchemaReady,
			zap.Uint("from", migration.From),
			zap.Uint("to", migration.To),
			zap.Bool("applied", migration.Applied),
		)
		return postgres.NewStore(database.Pool(), database.Close), database.Ping, nil
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLite.Path, cfg.SQLite.BusyTimeout)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", ErrOpenStore, err)
		}
		return store, func(ctx context.Context) error {
			_, err := store.SchemaVersion(ctx)
			return err
		}, nil
	default:
		return memory.NewStore(), nil, nil
	}
}

// openRedis подключается к Redis, если он нужен выбранным драйверам.
func openRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if !cfg.UsesRedis() {
		return nil, nil
	}
	client, err := redis.NewClient(ctx, cfg.Redis.ClientConfig())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrConnectRedis, err)
	}
	return client, nil
}

func newRowIndex(cfg *config.Config, client *redis.Client) cache.RowIndexCache {
	if cfg.Storage.RowIndexCache == config.DriverRedis {
		return cacheadapter.NewRedisRowIndex(client.RawClient(), cfg.Redis.KeyPrefix)
	}
	return cacheadapter.NewMemoryRowIndex()
}

func newKV(cfg *config.Config, client *redis.Client) kv.Store {
	if cfg.Storage.KV == config.DriverRedis {
		return kvadapter.NewRedisStore(client.RawClient(), cfg.Redis.KeyPrefix)
	}
	return kvadapter.NewMemoryStore()
}

// newRemote собирает клиента прокси таблиц с лимитером, Circuit Breaker и повторами.
func newRemote(cfg *config.SheetsConfig) (*sheets.ResilientClient, string) {
	client := sheets.NewClient(cfg.BaseURL,
		sheets.WithSheetName(cfg.SheetName),
		sheets.WithTimeout(cfg.Timeout))

	exec := resilience.NewExecutor("sheets", sheets.ResilienceConfig(resilience.Config{
		RequestsPerSec: cfg.RequestsPerSec,
		Burst:          cfg.Burst,
		Breaker: resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.FailureThreshold,
			ResetTimeout:     cfg.ResetTimeout,
			HalfOpenMaxCalls: cfg.HalfOpenMaxCalls,
		},
		Retry: resilience.RetryConfig{
			MaxAttempts:    cfg.RetryAttempts,
			InitialBackoff: cfg.RetryBaseDelay,
			MaxBackoff:     cfg.RetryMaxDelay,
		},
	}))
	return sheets.NewResilientClient(client, exec), client.SheetName()
}
