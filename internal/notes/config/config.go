// Package config содержит конфигурацию сервиса заметок.
package config

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	pkgconfig "sheetnotes/pkg/config"
	"sheetnotes/pkg/logger"
)

// Константы ошибок и сообщений для конфигурации.
const (
	ServiceName = "notes"

	// ConfigPathEnv переменная окружения с путем к необязательному файлу конфигурации.
	ConfigPathEnv = "NOTES_CONFIG_PATH"

	LogConfigSummary    = "notes configuration"
	ErrFailedLoadConfig = "failed to load notes configuration"
	ErrInvalidConfig    = "invalid notes configuration"
)

// Config представляет полную конфигурацию сервиса.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Postgres PostgresConfig `yaml:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Redis    RedisConfig    `yaml:"redis"`
	Sheets   SheetsConfig   `yaml:"sheets"`
	Sync     SyncConfig     `yaml:"sync"`
	HTTP     HTTPConfig     `yaml:"http"`
	JWT      JWTConfig      `yaml:"jwt"`
	Logging  LoggingConfig  `yaml:"logging"`
	Shutdown ShutdownConfig `yaml:"shutdown"`
}

// Load загружает конфигурацию из окружения и файла NOTES_CONFIG_PATH, если он задан.
func Load(ctx context.Context) (*Config, error) {
	cfg, err := pkgconfig.Load[Config](ctx, ServiceName, os.Getenv(ConfigPathEnv))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrFailedLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrInvalidConfig, err)
	}

	logger.Log(ctx).Info(ctx, LogConfigSummary,
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.String("row_index_cache", cfg.Storage.RowIndexCache),
		zap.String("kv_driver", cfg.Storage.KV),
		zap.String("sheets_url", cfg.Sheets.BaseURL),
		zap.Duration("sync_interval", cfg.Sync.Interval),
		zap.String("http_address", cfg.HTTP.GetAddress()),
		zap.Bool("auth_enabled", cfg.JWT.Enabled()),
		zap.String("log_level", cfg.Logging.Level),
		zap.String("log_mode", cfg.Logging.Mode),
		zap.Duration("shutdown_timeout", cfg.Shutdown.Timeout))

	return cfg, nil
}

// Validate проверяет согласованность выбранных драйверов и сроков остановки.
func (c *Config) Validate() error {
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	return c.Shutdown.Validate()
}

// UsesRedis сообщает, нужен ли процессу Redis.
func (c *Config) UsesRedis() bool {
	return c.Storage.RowIndexCache == DriverRedis || c.Storage.KV == DriverRedis
}
