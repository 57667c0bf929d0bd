package sheets

import (
	"context"
	"errors"
	"fmt"

	"sheetnotes/internal/notes/domain/entities"
	"sheetnotes/internal/notes/ports/remote"
	"sheetnotes/internal/notes/resilience"
)

// Backend операции прокси, которые оборачивает ResilientClient.
type Backend interface {
	remote.Store
	remote.SheetAdmin
}

var (
	_ remote.Store      = (*ResilientClient)(nil)
	_ remote.SheetAdmin = (*ResilientClient)(nil)
)

// ResilientClient пропускает вызовы через лимитер и Circuit Breaker.
// Чтения повторяются при сбоях сервера и сети; записи не повторяются, чтобы не плодить строки.
type ResilientClient struct {
	next Backend
	exec *resilience.Executor
}

// NewResilientClient оборачивает next исполнителем exec.
func NewResilientClient(next Backend, exec *resilience.Executor) *ResilientClient {
	return &ResilientClient{next: next, exec: exec}
}

// IsTransient сообщает, стоит ли повторять вызов и считать его сбоем для Circuit Breaker.
func IsTransient(err error) bool {
	return errors.Is(err, remote.ErrServer) || errors.Is(err, remote.ErrUnreachable)
}

// ResilienceConfig собирает настройки исполнителя с классификатором сбоев прокси.
func ResilienceConfig(cfg resilience.Config) resilience.Config {
	cfg.Breaker.IsFailure = IsTransient
	cfg.Retry.ShouldRetry = IsTransient
	return cfg
}

func (r *ResilientClient) run(ctx context.Context, op string, idempotent bool, fn func(ctx context.Context) error) error {
	err := r.exec.Do(ctx, op, idempotent, fn)
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return fmt.Errorf("%s: %w: %w", op, remote.ErrUnreachable, err)
	}
	return err
}

// CreateRow реализует remote.Store.
func (r *ResilientClient) CreateRow(ctx context.Context, spreadsheetID string, note *entities.Note) (int, error) {
	var rowIndex int
	err := r.run(ctx, "CreateRow", false, func(ctx context.Context) error {
		var err error
		rowIndex, err = r.next.CreateRow(ctx, spreadsheetID, note)
		return err
	})
	return rowIndex, err
}

// UpdateRow реализует remote.Store.
func (r *ResilientClient) UpdateRow(ctx context.Context, spreadsheetID string, rowIndex int, note *entities.Note) error {
	return r.run(ctx, "UpdateRow", false, func(ctx context.Context) error {
		return r.next.UpdateRow(ctx, spreadsheetID, rowIndex, note)
	})
}

// DeleteRow реализует remote.Store.
func (r *ResilientClient) DeleteRow(ctx context.Context, spreadsheetID string, rowIndex int) error {
	return r.run(ctx, "DeleteRow", false, func(ctx context.Context) error {
		return r.next.DeleteRow(ctx, spreadsheetID, rowIndex)
	})
}

// ListRows реализует remote.Store.
func (r *ResilientClient) ListRows(ctx context.Context, spreadsheetID string) ([]*entities.Note, error) {
	var rows []*entities.Note
	err := r.run(ctx, "ListRows", true, func(ctx context.Context) error {
		var err error
		rows, err = r.next.ListRows(ctx, spreadsheetID)
		return err
	})
	return rows, err
}

// HealthCheck реализует remote.Store.
func (r *ResilientClient) HealthCheck(ctx context.Context) error {
	return r.run(ctx, "HealthCheck", true, r.next.HealthCheck)
}

// ListSheets реализует remote.SheetAdmin.
func (r *ResilientClient) ListSheets(ctx context.Context, spreadsheetID string) ([]string, error) {
	var sheets []string
	err := r.run(ctx, "ListSheets", true, func(ctx context.Context) error {
		var err error
		sheets, err = r.next.ListSheets(ctx, spreadsheetID)
		return err
	})
	return sheets, err
}

// CreateSheet реализует remote.SheetAdmin.
func (r *ResilientClient) CreateSheet(ctx context.Context, spreadsheetID, name string, columns []string) error {
	return r.run(ctx, "CreateSheet", false, func(ctx context.Context) error {
		return r.next.CreateSheet(ctx, spreadsheetID, name, columns)
	})
}
