package syncer_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	cacheadapter "sheetnotes/internal/notes/adapters/cache"
	"sheetnotes/internal/notes/adapters/memory"
	"sheetnotes/internal/notes/app/syncer"
	"sheetnotes/internal/notes/domain/entities"
	"sheetnotes/internal/notes/ports/remote"
	"sheetnotes/internal/notes/ports/repositories"
)

var (
	base   = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	source = entities.NoteSource{ID: "S1", Name: "Primary", SpreadsheetID: "sheet-1"}
)

// fakeSheet таблица в памяти с внедрением сбоев.
type fakeSheet struct {
	mu sync.Mutex

	rows []*entities.Note

	healthErr error
	listErr   error
	createErr error
	updateErr error

	// createGate, если задан, задерживает CreateRow до закрытия канала.
	createGate chan struct{}

	creates int
	updates []int
	lists   int
}

func (f *fakeSheet) CreateRow(ctx context.Context, _ string, note *entities.Note) (int, error) {
	f.mu.Lock()
	gate := f.createGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.creates++
	f.rows = append(f.rows, note.Clone())
	return entities.SheetRow(len(f.rows) - 1), nil
}

func (f *fakeSheet) UpdateRow(_ context.Context, _ string, rowIndex int, note *entities.Note) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	i := rowIndex - 2
	if i < 0 || i >= len(f.rows) {
		return fmt.Errorf("row %d: %w", rowIndex, remote.ErrNotFound)
	}
	f.updates = append(f.updates, rowIndex)
	f.rows[i] = note.Clone()
	return nil
}

func (f *fakeSheet) DeleteRow(_ context.Context, _ string, rowIndex int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := rowIndex - 2
	if i < 0 || i >= len(f.rows) {
		return remote.ErrNotFound
	}
	f.rows = append(f.rows[:i], f.rows[i+1:]...)
	return nil
}

func (f *fakeSheet) ListRows(context.Context, string) ([]*entities.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*entities.Note, 0, len(f.rows))
	for _, r := range f.rows {
		out = append(out, r.Clone())
	}
	return out, nil
}

func (f *fakeSheet) HealthCheck(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.healthErr
}

func (f *fakeSheet) snapshot() []*entities.Note {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*entities.Note, 0, len(f.rows))
	for _, r := range f.rows {
		out = append(out, r.Clone())
	}
	return out
}

func (f *fakeSheet) set(fn func(f *fakeSheet)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

// clock выдает строго возрастающее время.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type ids struct {
	mu sync.Mutex
	n  int
}

func (g *ids) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

type harness struct {
	engine *syncer.Engine
	store  *memory.Store
	sheet  *fakeSheet
	rows   *cacheadapter.MemoryRowIndex
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store: memory.NewStore(),
		sheet: &fakeSheet{},
		rows:  cacheadapter.NewMemoryRowIndex(),
	}
	clk := &clock{now: base}
	gen := &ids{}
	h.engine = syncer.NewEngine(h.store, h.sheet, h.rows,
		syncer.WithClock(clk.Now),
		syncer.WithIDGenerator(gen.Next),
		syncer.WithNotifier(syncer.NewNotifier(10)))
	t.Cleanup(func() { _ = h.engine.Close(context.Background()) })
	return h
}

func (h *harness) create(t *testing.T, title, content, tags string) *entities.Note {
	t.Helper()
	ctx := context.Background()
	r, err := h.engine.Create(ctx, source, syncer.Draft{Title: title, Content: content, Tags: tags})
	require.NoError(t, err)
	require.NoError(t, r.Wait(ctx))
	return r.Note()
}

func (h *harness) local(t *testing.T, id string) *entities.Note {
	t.Helper()
	n, err := h.store.Notes().Get(context.Background(), id)
	require.NoError(t, err)
	return n
}

func (h *harness) pending(t *testing.T) int {
	t.Helper()
	n, err := h.engine.PendingCount(context.Background())
	require.NoError(t, err)
	return n
}

func ptr(s string) *string { return &s }

var errDisk = errors.New("disk full")

// failingStore отказывает в транзакциях, пока fail выставлен.
type failingStore struct {
	repositories.Store
	mu   sync.Mutex
	fail bool
}

func (s *failingStore) RunInTx(ctx context.Context, fn func(tx repositories.Store) error) error {
	s.mu.Lock()
	fail := s.fail
	s.mu.Unlock()
	if fail {
		return repositories.Wrap("tx", errDisk)
	}
	return s.Store.RunInTx(ctx, fn)
}

// staticSources отдает фиксированный набор источников.
type staticSources map[string]entities.NoteSource

func (s staticSources) Get(_ context.Context, id string) (*entities.NoteSource, error) {
	src, ok := s[id]
	if !ok {
		return nil, errors.New("source not found")
	}
	return &src, nil
}

func (s staticSources) Active(context.Context) (*entities.NoteSource, error) {
	for _, src := range s {
		return &src, nil
	}
	return nil, nil
}
