// Package sqlite provides an embedded on-device local store backed by SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver" // database/sql драйвер "sqlite3"
	_ "github.com/ncruces/go-sqlite3/embed"  // встроенная сборка SQLite
	"go.uber.org/zap"

	"sheetnotes/internal/notes/ports/repositories"
	"sheetnotes/pkg/logger"
)

// Константы сообщений хранилища.
const (
	LogOpening        = "opening embedded notes database"
	LogOpened         = "embedded notes database ready"
	LogSchemaMigrated = "embedded schema migrated"
	LogClosing        = "closing embedded notes database"

	ErrOpen         = "failed to open embedded database"
	ErrCreateDir    = "failed to create database directory"
	ErrMigrate      = "failed to migrate embedded schema"
	ErrBeginTx      = "failed to begin transaction"
	ErrCommitTx     = "failed to commit transaction"
	ErrRollbackTx   = "failed to rollback transaction"
	ErrSchemaTooNew = "embedded schema is newer than supported"
)

const (
	driverName         = "sqlite3"
	defaultBusyTimeout = 5 * time.Second
)

// querier общий набор методов *sql.DB и *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store локальное хранилище во встроенной базе.
type Store struct {
	db *sql.DB
	q  querier
}

// Open открывает (создавая при необходимости) файл базы и доводит схему до последней версии.
func Open(ctx context.Context, path string, busyTimeout time.Duration) (*Store, error) {
	log := logger.Log(ctx).With(zap.String("path", path))
	log.Info(ctx, LogOpening)

	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, repositories.Wrap(ErrCreateDir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(wal)&_txlock=immediate",
		path, busyTimeout.Milliseconds())

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		log.Error(ctx, ErrOpen, zap.Error(err))
		return nil, repositories.Wrap(ErrOpen, err)
	}
	// Одно соединение: записи сериализуются, SQLITE_BUSY между своими соединениями не возникает.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		log.Error(ctx, ErrOpen, zap.Error(err))
		return nil, repositories.Wrap(ErrOpen, err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		log.Error(ctx, ErrMigrate, zap.Error(err))
		return nil, err
	}

	log.Info(ctx, LogOpened)
	return &Store{db: db, q: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	var current int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&current); err != nil {
		return repositories.Wrap(ErrMigrate, err)
	}
	if current > len(migrations) {
		return repositories.Wrap(ErrMigrate, fmt.Errorf("%s: %d > %d", ErrSchemaTooNew, current, len(migrations)))
	}
	if current == len(migrations) {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return repositories.Wrap(ErrMigrate, err)
	}
	for _, stmt := range migrations[current:] {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return repositories.Wrap(ErrMigrate, err)
		}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, len(migrations))); err != nil {
		_ = tx.Rollback()
		return repositories.Wrap(ErrMigrate, err)
	}
	if err := tx.Commit(); err != nil {
		return repositories.Wrap(ErrMigrate, err)
	}

	logger.Log(ctx).Info(ctx, LogSchemaMigrated,
		zap.Int("from", current), zap.Int("to", len(migrations)))
	return nil
}

// Notes возвращает репозиторий заметок.
func (s *Store) Notes() repositories.NoteRepository {
	return &NoteRepository{q: s.q}
}

// Pending возвращает репозиторий очереди синхронизации.
func (s *Store) Pending() repositories.PendingRepository {
	return &PendingRepository{q: s.q}
}

// RunInTx выполняет fn в транзакции. Вложенный вызов переиспользует текущую транзакцию.
func (s *Store) RunInTx(ctx context.Context, fn func(tx repositories.Store) error) error {
	if _, inTx := s.q.(*sql.Tx); inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return repositories.Wrap(ErrBeginTx, err)
	}

	if err := fn(&Store{db: s.db, q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.Log(ctx).Error(ctx, ErrRollbackTx, zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return repositories.Wrap(ErrCommitTx, err)
	}
	return nil
}

// SchemaVersion возвращает версию схемы открытой базы.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.q.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&v)
	return v, err
}

// Close закрывает базу.
func (s *Store) Close(ctx context.Context) error {
	logger.Log(ctx).Info(ctx, LogClosing)
	return s.db.Close()
}

func toUnix(t time.Time) int64 {
	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
