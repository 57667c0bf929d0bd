// Package memory provides an in-memory local store, kept for the process lifetime only.
package memory

import (
	"context"
	"sort"
	"sync"

	"sheetnotes/internal/notes/domain/entities"
	"sheetnotes/internal/notes/ports/repositories"
)

var _ repositories.Store = (*Store)(nil)

// Store хранит заметки и очередь в map под RWMutex.
type Store struct {
	// txMu сериализует записи корневого хранилища с транзакциями; у копии внутри транзакции nil.
	txMu    *sync.Mutex
	mu      sync.RWMutex
	notes   map[string]*entities.Note
	pending map[string]*entities.PendingSync
}

// NewStore создает пустое хранилище.
func NewStore() *Store {
	return &Store{
		txMu:    &sync.Mutex{},
		notes:   make(map[string]*entities.Note),
		pending: make(map[string]*entities.PendingSync),
	}
}

// Notes возвращает репозиторий заметок.
func (s *Store) Notes() repositories.NoteRepository {
	return noteRepo{s}
}

// Pending возвращает репозиторий очереди.
func (s *Store) Pending() repositories.PendingRepository {
	return pendingRepo{s}
}

// RunInTx выполняет fn над копией данных и публикует ее только при успехе.
func (s *Store) RunInTx(ctx context.Context, fn func(tx repositories.Store) error) error {
	if s.txMu == nil {
		return fn(s)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	staged := &Store{
		notes:   make(map[string]*entities.Note, len(s.notes)),
		pending: make(map[string]*entities.PendingSync, len(s.pending)),
	}
	for id, n := range s.notes {
		staged.notes[id] = n
	}
	for id, p := range s.pending {
		staged.pending[id] = p
	}
	s.mu.RUnlock()

	if err := fn(staged); err != nil {
		return err
	}

	s.mu.Lock()
	s.notes = staged.notes
	s.pending = staged.pending
	s.mu.Unlock()
	return nil
}

// Close ничего не освобождает.
func (s *Store) Close(context.Context) error {
	return nil
}

// write выполняет изменение под блокировками корневого хранилища.
func (s *Store) write(fn func()) {
	if s.txMu != nil {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

type noteRepo struct{ s *Store }

// Get возвращает копию заметки или nil.
func (r noteRepo) Get(_ context.Context, id string) (*entities.Note, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.notes[id].Clone(), nil
}

// Put сохраняет копию заметки.
func (r noteRepo) Put(_ context.Context, note *entities.Note) error {
	c := note.Clone()
	r.s.write(func() { r.s.notes[c.ID] = c })
	return nil
}

// Delete удаляет заметку.
func (r noteRepo) Delete(_ context.Context, id string) error {
	r.s.write(func() { delete(r.s.notes, id) })
	return nil
}

// ListBySource возвращает неудаленные заметки источника, новые первыми.
func (r noteRepo) ListBySource(_ context.Context, sourceID string) ([]*entities.Note, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*entities.Note, 0)
	for _, n := range r.s.notes {
		if n.SourceID == sourceID && !n.IsDeleted() {
			out = append(out, n.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ClearBySource удаляет все заметки источника.
func (r noteRepo) ClearBySource(_ context.Context, sourceID string) error {
	r.s.write(func() {
		for id, n := range r.s.notes {
			if n.SourceID == sourceID {
				delete(r.s.notes, id)
			}
		}
	})
	return nil
}

type pendingRepo struct{ s *Store }

// Add ставит изменение в очередь.
func (r pendingRepo) Add(_ context.Context, entry *entities.PendingSync) error {
	c := *entry
	c.Payload = entry.Payload.Clone()
	r.s.write(func() { r.s.pending[c.ID] = &c })
	return nil
}

// Remove удаляет запись.
func (r pendingRepo) Remove(_ context.Context, id string) error {
	r.s.write(func() { delete(r.s.pending, id) })
	return nil
}

// ListBySource возвращает записи источника по времени постановки.
func (r pendingRepo) ListBySource(_ context.Context, sourceID string) ([]*entities.PendingSync, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*entities.PendingSync, 0)
	for _, p := range r.s.pending {
		if p.SourceID == sourceID {
			c := *p
			c.Payload = p.Payload.Clone()
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// SourcesWithPending возвращает источники с непустой очередью.
func (r pendingRepo) SourcesWithPending(context.Context) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	set := make(map[string]struct{})
	for _, p := range r.s.pending {
		set[p.SourceID] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// CountAll возвращает общее число записей.
func (r pendingRepo) CountAll(context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.pending), nil
}

// ClearBySource удаляет записи источника.
func (r pendingRepo) ClearBySource(_ context.Context, sourceID string) error {
	r.s.write(func() {
		for id, p := range r.s.pending {
			if p.SourceID == sourceID {
				delete(r.s.pending, id)
			}
		}
	})
	return nil
}
