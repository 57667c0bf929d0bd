package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // драйвер postgres:// для migrate
	_ "github.com/golang-migrate/migrate/v4/source/file"       // источник file://
	"go.uber.org/zap"

	"sheetnotes/pkg/logger"
)

// Константы для сообщений об ошибках миграций.
const (
	ErrCreateMigrationInstance = "failed to create migration instance"
	ErrApplyMigrations         = "failed to apply migrations"
	ErrReadMigrationVersion    = "failed to read migration version"
)

// MigrationResult версии схемы до и после применения миграций.
type MigrationResult struct {
	From    uint
	To      uint
	Applied bool
}

// MigrateDSN применяет миграции из migrationsPath (URL источника, например file://migrations).
func MigrateDSN(ctx context.Context, dsn, migrationsPath string) (MigrationResult, error) {
	log := logger.Log(ctx).With(zap.String("path", migrationsPath))

	m, err := migrate.New(migrationsPath, dsn)
	if err != nil {
		log.Error(ctx, ErrCreateMigrationInstance, zap.Error(err))
		return MigrationResult{}, fmt.Errorf("%s: %w", ErrCreateMigrationInstance, err)
	}
	defer func() { _, _ = m.Close() }()

	from, err := version(m)
	if err != nil {
		log.Error(ctx, ErrReadMigrationVersion, zap.Error(err))
		return MigrationResult{}, fmt.Errorf("%s: %w", ErrReadMigrationVersion, err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info(ctx, LogMigrationsCurrent, zap.Uint("version", from))
			return MigrationResult{From: from, To: from}, nil
		}
		log.Error(ctx, ErrApplyMigrations, zap.Error(err))
		return MigrationResult{}, fmt.Errorf("%s: %w", ErrApplyMigrations, err)
	}

	to, err := version(m)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("%s: %w", ErrReadMigrationVersion, err)
	}

	log.Info(ctx, LogMigrationsApplied, zap.Uint("from", from), zap.Uint("to", to))
	return MigrationResult{From: from, To: to, Applied: true}, nil
}

func version(m *migrate.Migrate) (uint, error) {
	v, _, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	return v, err
}
