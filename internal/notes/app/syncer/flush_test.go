package syncer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetnotes/internal/notes/app/syncer"
	"sheetnotes/internal/notes/domain/entities"
	"sheetnotes/internal/notes/ports/remote"
)

// leftover имитирует изменение, примененное локально до сбоя процесса.
func leftover(t *testing.T, h *harness, id string, note *entities.Note, op entities.Operation, at time.Time) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.store.Notes().Put(ctx, note))
	entry := &entities.PendingSync{ID: id, SourceID: source.ID, NoteID: note.ID, Operation: op, Timestamp: at}
	if op != entities.OperationDelete {
		entry.Payload = note.Clone()
	}
	require.NoError(t, h.store.Pending().Add(ctx, entry))
}

func TestEngine_FlushReplaysAsUpsert(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	existing := remoteNote("exists", base)
	h.sheet.set(func(f *fakeSheet) { f.rows = []*entities.Note{existing} })

	fresh := entities.NewNote("fresh", source.ID, "v1", "", "", base)
	leftover(t, h, "p1", fresh, entities.OperationCreate, base)
	fresh2 := fresh.Clone()
	fresh2.Title = "v2"
	leftover(t, h, "p2", fresh2, entities.OperationUpdate, base.Add(time.Second))

	// создание, уже дошедшее до таблицы: повтор не должен добавить строку
	edited := existing.Clone()
	edited.SourceID = source.ID
	edited.Title = "edited"
	leftover(t, h, "p3", edited, entities.OperationCreate, base.Add(2*time.Second))

	res, err := h.engine.Flush(ctx, source)
	require.NoError(t, err)
	assert.Equal(t, syncer.FlushResult{Succeeded: 2}, res)

	rows := h.sheet.snapshot()
	require.Len(t, rows, 2)
	assert.Equal(t, "edited", rows[0].Title)
	assert.Equal(t, "v2", rows[1].Title)
	assert.Equal(t, 1, h.sheet.creates)
	assert.Zero(t, h.pending(t))

	res, err = h.engine.Flush(ctx, source)
	require.NoError(t, err)
	assert.Equal(t, syncer.FlushResult{}, res)
}

func TestEngine_FlushDeleteUsesLocalState(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.sheet.set(func(f *fakeSheet) { f.rows = []*entities.Note{remoteNote("n1", base)} })

	local := remoteNote("n1", base)
	local.SourceID = source.ID
	local.MarkDeleted(base.Add(time.Minute))
	leftover(t, h, "p1", local, entities.OperationDelete, base)

	// удаление заметки, которой нет в таблице, доставлять некуда
	ghost := entities.NewNote("ghost", source.ID, "", "", "", base)
	ghost.MarkDeleted(base.Add(time.Minute))
	leftover(t, h, "p2", ghost, entities.OperationDelete, base)

	res, err := h.engine.Flush(ctx, source)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)

	rows := h.sheet.snapshot()
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].DeletedAt)
	assert.Zero(t, h.sheet.creates)
}

func TestEngine_FlushKeepsFailedEntries(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.sheet.set(func(f *fakeSheet) { f.createErr = remote.ErrPermissionDenied })

	leftover(t, h, "p1", entities.NewNote("n1", source.ID, "", "", "", base), entities.OperationCreate, base)

	res, err := h.engine.Flush(ctx, source)
	require.NoError(t, err)
	assert.Equal(t, syncer.FlushResult{Failed: 1}, res)
	assert.Equal(t, 1, h.pending(t))
	assert.NotNil(t, h.local(t, "n1"))

	h.sheet.set(func(f *fakeSheet) { f.listErr = remote.ErrUnreachable })
	_, err = h.engine.Flush(ctx, source)
	require.ErrorIs(t, err, remote.ErrUnreachable)
	assert.Equal(t, 1, h.pending(t))
}

func TestEngine_Recover(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	leftover(t, h, "p1", entities.NewNote("n1", source.ID, "A", "", "", base), entities.OperationCreate, base)
	require.NoError(t, h.store.Pending().Add(ctx, &entities.PendingSync{
		ID: "p9", SourceID: "removed", NoteID: "n9", Operation: entities.OperationDelete, Timestamp: base,
	}))

	err := h.engine.Recover(ctx, staticSources{source.ID: source})
	require.Error(t, err)

	assert.Equal(t, 1, h.sheet.creates)
	// записи удаленного источника не теряются молча
	assert.Equal(t, 1, h.pending(t))
}

func TestEngine_Sync(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	leftover(t, h, "p1", entities.NewNote("n1", source.ID, "A", "", "", base), entities.OperationCreate, base)
	h.sheet.set(func(f *fakeSheet) { f.rows = []*entities.Note{remoteNote("r1", base)} })

	res, err := h.engine.Sync(ctx, source)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Flush.Succeeded)
	assert.Equal(t, 1, res.Pull.Updated)
	assert.NotNil(t, h.local(t, "r1"))

	list, err := h.store.Notes().ListBySource(ctx, source.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestScheduler_Tick(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.sheet.set(func(f *fakeSheet) { f.rows = []*entities.Note{remoteNote("r1", base)} })

	syncer.NewScheduler(h.engine, staticSources{}, 0).Tick(ctx)
	assert.Nil(t, h.local(t, "r1"))

	syncer.NewScheduler(h.engine, staticSources{source.ID: source}, time.Minute).Tick(ctx)
	assert.NotNil(t, h.local(t, "r1"))
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- syncer.NewScheduler(h.engine, staticSources{source.ID: source}, 5*time.Millisecond).Run(ctx)
	}()

	require.Eventually(t, func() bool {
		h.sheet.mu.Lock()
		defer h.sheet.mu.Unlock()
		return h.sheet.lists > 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
