package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"sheetnotes/internal/notes/domain/entities"
	"sheetnotes/internal/notes/ports/repositories"
)

// Константы ошибок очереди синхронизации.
const (
	ErrAddPending     = "failed to add pending entry"
	ErrRemovePending  = "failed to remove pending entry"
	ErrListPending    = "failed to list pending entries"
	ErrCountPending   = "failed to count pending entries"
	ErrClearPending   = "failed to clear pending entries"
	ErrPendingSources = "failed to list sources with pending entries"
)

// PendingRepository реализует repositories.PendingRepository.
type PendingRepository struct {
	q querier
}

// Add ставит изменение в очередь.
func (r *PendingRepository) Add(ctx context.Context, entry *entities.PendingSync) error {
	var payload sql.NullString
	if entry.Payload != nil {
		data, err := json.Marshal(entry.Payload)
		if err != nil {
			return repositories.Wrap(ErrAddPending, err)
		}
		payload = sql.NullString{String: string(data), Valid: true}
	}

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO pending_sync (id, source_id, note_id, operation, payload, queued_at) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.SourceID, entry.NoteID, string(entry.Operation), payload, toUnix(entry.Timestamp))
	if err != nil {
		return repositories.Wrap(ErrAddPending, err)
	}
	return nil
}

// Remove удаляет запись.
func (r *PendingRepository) Remove(ctx context.Context, id string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM pending_sync WHERE id = ?`, id); err != nil {
		return repositories.Wrap(ErrRemovePending, err)
	}
	return nil
}

// ListBySource возвращает записи источника в порядке постановки.
func (r *PendingRepository) ListBySource(ctx context.Context, sourceID string) ([]*entities.PendingSync, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, source_id, note_id, operation, payload, queued_at
         FROM pending_sync WHERE source_id = ? ORDER BY queued_at ASC, rowid ASC`, sourceID)
	if err != nil {
		return nil, repositories.Wrap(ErrListPending, err)
	}
	defer rows.Close()

	entries := make([]*entities.PendingSync, 0)
	for rows.Next() {
		var (
			entry     entities.PendingSync
			operation string
			payload   sql.NullString
			queuedAt  int64
		)
		if err := rows.Scan(&entry.ID, &entry.SourceID, &entry.NoteID, &operation, &payload, &queuedAt); err != nil {
			return nil, repositories.Wrap(ErrListPending, err)
		}
		entry.Operation = entities.Operation(operation)
		entry.Timestamp = fromUnix(queuedAt)
		if payload.Valid {
			var note entities.Note
			if err := json.Unmarshal([]byte(payload.String), &note); err != nil {
				return nil, repositories.Wrap(ErrListPending, err)
			}
			entry.Payload = &note
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, repositories.Wrap(ErrListPending, err)
	}
	return entries, nil
}

// SourcesWithPending возвращает источники с непустой очередью.
func (r *PendingRepository) SourcesWithPending(ctx context.Context) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT DISTINCT source_id FROM pending_sync ORDER BY source_id`)
	if err != nil {
		return nil, repositories.Wrap(ErrPendingSources, err)
	}
	defer rows.Close()

	sources := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, repositories.Wrap(ErrPendingSources, err)
		}
		sources = append(sources, id)
	}
	if err := rows.Err(); err != nil {
		return nil, repositories.Wrap(ErrPendingSources, err)
	}
	return sources, nil
}

// CountAll возвращает общее число записей.
func (r *PendingRepository) CountAll(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_sync`).Scan(&n); err != nil {
		return 0, repositories.Wrap(ErrCountPending, err)
	}
	return n, nil
}

// ClearBySource удаляет все записи источника.
func (r *PendingRepository) ClearBySource(ctx context.Context, sourceID string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM pending_sync WHERE source_id = ?`, sourceID); err != nil {
		return repositories.Wrap(ErrClearPending, err)
	}
	return nil
}
