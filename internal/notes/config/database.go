package config

import (
	"errors"
	"fmt"
	"time"
)

// Драйверы хранилищ.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
)

// Ошибки валидации драйверов.
var (
	ErrUnknownStorageDriver = errors.New("unknown storage driver")
	ErrUnknownCacheDriver   = errors.New("unknown row index cache driver")
	ErrUnknownKVDriver      = errors.New("unknown key-value driver")
)

// StorageConfig выбирает реализации локального хранилища, кэша индексов строк и key-value хранилища.
type StorageConfig struct {
	Driver        string `yaml:"driver" env:"NOTES_STORAGE_DRIVER" env-default:"postgres"`
	RowIndexCache string `yaml:"row_index_cache" env:"NOTES_ROW_INDEX_CACHE" env-default:"memory"`
	KV            string `yaml:"kv" env:"NOTES_KV_DRIVER" env-default:"redis"`
}

// Validate проверяет названия драйверов.
func (s *StorageConfig) Validate() error {
	switch s.Driver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStorageDriver, s.Driver)
	}
	switch s.RowIndexCache {
	case DriverMemory, DriverRedis:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCacheDriver, s.RowIndexCache)
	}
	switch s.KV {
	case DriverMemory, DriverRedis:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKVDriver, s.KV)
	}
	return nil
}

// PostgresConfig содержит настройки подключения к базе данных.
type PostgresConfig struct {
	Host            string        `yaml:"host" env:"NOTES_POSTGRES_HOST" env-default:"0.0.0.0"`
	Port            int           `yaml:"port" env:"NOTES_POSTGRES_PORT" env-default:"5433"`
	User            string        `yaml:"user" env:"NOTES_POSTGRES_USER" env-default:"postgres"`
	Password        string        `yaml:"password" env:"NOTES_POSTGRES_PASSWORD" env-default:"postgres"`
	Database        string        `yaml:"database" env:"NOTES_POSTGRES_DB" env-default:"notes"`
	MinConn         int           `yaml:"min_conn" env:"NOTES_POSTGRES_MIN_CONN" env-default:"1"`
	MaxConn         int           `yaml:"max_conn" env:"NOTES_POSTGRES_MAX_CONN" env-default:"10"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"NOTES_POSTGRES_MAX_CONN_LIFETIME" env-default:"30m"`
	MigrationsDir   string        `yaml:"migrations_dir" env:"NOTES_POSTGRES_MIGRATIONS_DIR" env-default:"migrations/notes"`
}

// GetDSN возвращает строку подключения к Postgres.
func (p *PostgresConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		p.Host, p.Port, p.User, p.Password, p.Database)
}

// GetConnectionURL возвращает URL-строку подключения для миграций.
func (p *PostgresConfig) GetConnectionURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		p.User, p.Password, p.Host, p.Port, p.Database)
}

// SQLiteConfig настройки встроенной базы на устройстве.
type SQLiteConfig struct {
	Path        string        `yaml:"path" env:"NOTES_SQLITE_PATH" env-default:"data/notes.db"`
	BusyTimeout time.Duration `yaml:"busy_timeout" env:"NOTES_SQLITE_BUSY_TIMEOUT" env-default:"5s"`
}
