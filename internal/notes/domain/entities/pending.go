package entities

import (
	"sort"
	"time"
)

// Operation вид изменения, ожидающего подтверждения удаленной стороной.
type Operation string

// Виды операций.
const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Valid проверяет, известна ли операция.
func (o Operation) Valid() bool {
	switch o {
	case OperationCreate, OperationUpdate, OperationDelete:
		return true
	}
	return false
}

// PendingSync запись об изменении, которое применено локально, но еще не подтверждено таблицей.
type PendingSync struct {
	ID        string    `json:"id"`
	SourceID  string    `json:"sourceId"`
	NoteID    string    `json:"noteId"`
	Operation Operation `json:"operation"`
	Payload   *Note     `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// CompactPending оставляет по одной записи на заметку: последнюю по времени.
// Повтор работает как upsert, поэтому последней записи достаточно для восстановления состояния.
// Результат упорядочен по времени; поглощенные записи возвращаются вторым значением.
func CompactPending(entries []*PendingSync) (latest []*PendingSync, superseded []*PendingSync) {
	ordered := make([]*PendingSync, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	last := make(map[string]int, len(ordered))
	for i, e := range ordered {
		last[e.NoteID] = i
	}

	for i, e := range ordered {
		if last[e.NoteID] == i {
			latest = append(latest, e)
		} else {
			superseded = append(superseded, e)
		}
	}
	return latest, superseded
}
