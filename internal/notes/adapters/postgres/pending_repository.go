package postgres

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"sheetnotes/internal/notes/domain/entities"
	"sheetnotes/internal/notes/ports/repositories"
	"sheetnotes/pkg/logger"
)

// Константы ошибок очереди синхронизации.
const (
	ErrAddPending     = "failed to add pending entry"
	ErrRemovePending  = "failed to remove pending entry"
	ErrListPending    = "failed to list pending entries"
	ErrCountPending   = "failed to count pending entries"
	ErrClearPending   = "failed to clear pending entries"
	ErrEncodePayload  = "failed to encode pending payload"
	ErrDecodePayload  = "failed to decode pending payload"
	ErrPendingSources = "failed to list sources with pending entries"
)

// PendingRepository реализует repositories.PendingRepository.
type PendingRepository struct {
	q Querier
}

// NewPendingRepository создает репозиторий очереди.
func NewPendingRepository(q Querier) *PendingRepository {
	return &PendingRepository{q: q}
}

// Add ставит изменение в очередь.
func (r *PendingRepository) Add(ctx context.Context, entry *entities.PendingSync) error {
	log := logger.Log(ctx).With(zap.String("method", "PendingRepository.Add"))

	var payload []byte
	if entry.Payload != nil {
		var err error
		if payload, err = json.Marshal(entry.Payload); err != nil {
			return wrap(ErrEncodePayload, err)
		}
	}

	_, err := r.q.Exec(ctx,
		`INSERT INTO pending_sync (id, source_id, note_id, operation, payload, queued_at)
         VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.SourceID, entry.NoteID, string(entry.Operation), payload, entry.Timestamp,
	)
	if err != nil {
		log.Error(ctx, ErrAddPending, zap.Error(err))
		return wrap(ErrAddPending, err)
	}

	log.Debug(ctx, "pending entry added",
		zap.String("noteID", entry.NoteID), zap.String("operation", string(entry.Operation)))
	return nil
}

// Remove удаляет запись. Отсутствие записи ошибкой не считается.
func (r *PendingRepository) Remove(ctx context.Context, id string) error {
	log := logger.Log(ctx).With(zap.String("method", "PendingRepository.Remove"))

	if _, err := r.q.Exec(ctx, `DELETE FROM pending_sync WHERE id = $1`, id); err != nil {
		log.Error(ctx, ErrRemovePending, zap.Error(err))
		return wrap(ErrRemovePending, err)
	}
	return nil
}

// ListBySource возвращает записи источника в порядке постановки.
func (r *PendingRepository) ListBySource(ctx context.Context, sourceID string) ([]*entities.PendingSync, error) {
	log := logger.Log(ctx).With(zap.String("method", "PendingRepository.ListBySource"))

	rows, err := r.q.Query(ctx,
		`SELECT id, source_id, note_id, operation, payload, queued_at
         FROM pending_sync
         WHERE source_id = $1
         ORDER BY queued_at ASC`,
		sourceID,
	)
	if err != nil {
		log.Error(ctx, ErrListPending, zap.Error(err))
		return nil, wrap(ErrListPending, err)
	}
	defer rows.Close()

	entries := make([]*entities.PendingSync, 0)
	for rows.Next() {
		var (
			entry     entities.PendingSync
			operation string
			payload   []byte
		)
		if err := rows.Scan(&entry.ID, &entry.SourceID, &entry.NoteID, &operation, &payload, &entry.Timestamp); err != nil {
			log.Error(ctx, ErrListPending, zap.Error(err))
			return nil, wrap(ErrListPending, err)
		}
		entry.Operation = entities.Operation(operation)
		if len(payload) > 0 {
			var note entities.Note
			if err := json.Unmarshal(payload, &note); err != nil {
				log.Error(ctx, ErrDecodePayload, zap.Error(err), zap.String("entryID", entry.ID))
				return nil, wrap(ErrDecodePayload, err)
			}
			entry.Payload = &note
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		log.Error(ctx, ErrListPending, zap.Error(err))
		return nil, wrap(ErrListPending, err)
	}
	return entries, nil
}

// SourcesWithPending возвращает источники, у которых есть записи в очереди.
func (r *PendingRepository) SourcesWithPending(ctx context.Context) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT DISTINCT source_id FROM pending_sync ORDER BY source_id`)
	if err != nil {
		return nil, wrap(ErrPendingSources, err)
	}
	defer rows.Close()

	sources := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrap(ErrPendingSources, err)
		}
		sources = append(sources, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(ErrPendingSources, err)
	}
	return sources, nil
}

// CountAll возвращает общее число записей по всем источникам.
func (r *PendingRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM pending_sync`).Scan(&count); err != nil {
		logger.Log(ctx).Error(ctx, ErrCountPending, zap.Error(err))
		return 0, wrap(ErrCountPending, err)
	}
	return count, nil
}

// ClearBySource удаляет все записи источника.
func (r *PendingRepository) ClearBySource(ctx context.Context, sourceID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM pending_sync WHERE source_id = $1`, sourceID); err != nil {
		logger.Log(ctx).Error(ctx, ErrClearPending, zap.Error(err))
		return wrap(ErrClearPending, err)
	}
	return nil
}

func wrap(op string, err error) error {
	return repositories.Wrap(op, err)
}
