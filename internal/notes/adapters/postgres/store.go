// Package postgres provides PostgreSQL implementations of the local store.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"sheetnotes/internal/notes/ports/repositories"
	"sheetnotes/pkg/logger"
)

// Константы ошибок транзакций.
const (
	ErrBeginTx    = "failed to begin transaction"
	ErrCommitTx   = "failed to commit transaction"
	ErrRollbackTx = "failed to rollback transaction"
)

// Querier общий набор методов пула и транзакции pgx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool пул соединений, умеющий открывать транзакции. Ему удовлетворяют *pgxpool.Pool и pgxmock.
type Pool interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store локальное хранилище поверх Postgres.
type Store struct {
	pool    Pool
	q       Querier
	closeFn func(ctx context.Context)
}

// NewStore создает хранилище. closeFn вызывается из Close и может быть nil.
func NewStore(pool Pool, closeFn func(ctx context.Context)) *Store {
	return &Store{pool: pool, q: pool, closeFn: closeFn}
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
	if s.pool == nil {
		return fn(s)
	}

	log := logger.Log(ctx).With(zap.String("method", "Store.RunInTx"))

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		log.Error(ctx, ErrBeginTx, zap.Error(err))
		return repositories.Wrap(ErrBeginTx, err)
	}

	if err := fn(&Store{q: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Error(ctx, ErrRollbackTx, zap.Error(rbErr))
			return fmt.Errorf("%w; %s: %w", err, ErrRollbackTx, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		log.Error(ctx, ErrCommitTx, zap.Error(err))
		return repositories.Wrap(ErrCommitTx, err)
	}
	return nil
}

// Close освобождает пул.
func (s *Store) Close(ctx context.Context) error {
	if s.closeFn != nil {
		s.closeFn(ctx)
	}
	return nil
}
