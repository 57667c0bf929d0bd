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
	"sheetnotes/internal/notes/ports/repositories"
)

func TestEngine_CreateThenUpdateInPlace(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	created := h.create(t, "A", "B", "x,y")

	rows := h.sheet.snapshot()
	require.Len(t, rows, 1)
	assert.Equal(t, created.ID, rows[0].ID)
	assert.Equal(t, "A", rows[0].Title)
	assert.Equal(t, "B", rows[0].Content)
	assert.Equal(t, "x,y", rows[0].Tags)

	list, err := h.store.Notes().ListBySource(ctx, source.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
	assert.Equal(t, "A", list[0].Title)
	assert.Equal(t, "B", list[0].Content)
	assert.Equal(t, "x,y", list[0].Tags)

	row, ok, err := h.rows.Get(ctx, source.RowScope(), created.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, row)

	r, err := h.engine.Update(ctx, source, created.ID, syncer.Patch{Tags: ptr("z")})
	require.NoError(t, err)
	require.NoError(t, r.Wait(ctx))

	rows = h.sheet.snapshot()
	require.Len(t, rows, 1)
	assert.Equal(t, "z", rows[0].Tags)
	assert.Equal(t, []int{2}, h.sheet.updates)
	assert.Equal(t, 1, h.sheet.creates)
	assert.Equal(t, "z", h.local(t, created.ID).Tags)
	assert.Zero(t, h.pending(t))
}

func TestEngine_CreateRollsBackOnRemoteFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.sheet.set(func(f *fakeSheet) { f.createErr = remote.ErrServer })

	notices := h.engine.Notices().Subscribe()
	defer h.engine.Notices().Unsubscribe(notices)

	r, err := h.engine.Create(ctx, source, syncer.Draft{Title: "A"})
	require.NoError(t, err)
	id := r.Note().ID

	err = r.Wait(ctx)
	require.ErrorIs(t, err, remote.ErrServer)

	assert.Nil(t, h.local(t, id))
	assert.Zero(t, h.pending(t))

	select {
	case n := <-notices:
		assert.Equal(t, syncer.NoticeReverted, n.Kind)
		assert.Equal(t, id, n.NoteID)
		assert.Equal(t, entities.OperationCreate, n.Operation)
		require.ErrorIs(t, n.Err, remote.ErrServer)
	case <-time.After(time.Second):
		t.Fatal("no revert notice published")
	}
	require.Len(t, h.engine.Notices().Recent(), 1)
}

func TestEngine_UpdateRollsBackToSnapshot(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	created := h.create(t, "A", "B", "x")

	h.sheet.set(func(f *fakeSheet) { f.updateErr = remote.ErrPermissionDenied })

	r, err := h.engine.Update(ctx, source, created.ID, syncer.Patch{Title: ptr("changed")})
	require.NoError(t, err)
	assert.Equal(t, "changed", r.Note().Title)

	require.ErrorIs(t, r.Wait(ctx), remote.ErrPermissionDenied)

	restored := h.local(t, created.ID)
	require.NotNil(t, restored)
	assert.Equal(t, "A", restored.Title)
	assert.True(t, restored.UpdatedAt.Equal(created.UpdatedAt))
	assert.Zero(t, h.pending(t))
}

func TestEngine_UpdateNotFoundDropsRowIndex(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	created := h.create(t, "A", "", "")

	// строка удалена из таблицы вне приложения
	h.sheet.set(func(f *fakeSheet) { f.rows = nil })

	r, err := h.engine.Update(ctx, source, created.ID, syncer.Patch{Title: ptr("B")})
	require.NoError(t, err)
	require.ErrorIs(t, r.Wait(ctx), remote.ErrNotFound)

	_, ok, err := h.rows.Get(ctx, source.RowScope(), created.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "A", h.local(t, created.ID).Title)
}

func TestEngine_UpdateAfterSpreadsheetChangeIgnoresCachedRow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	created := h.create(t, "A", "", "")

	// источник переключен на другую таблицу, где строку 2 занимает чужая заметка
	moved := source
	moved.SpreadsheetID = "sheet-2"
	h.sheet.set(func(f *fakeSheet) {
		f.rows = []*entities.Note{{ID: "other-note", SourceID: source.ID, Title: "other"}}
	})

	r, err := h.engine.Update(ctx, moved, created.ID, syncer.Patch{Title: ptr("B")})
	require.NoError(t, err)
	require.ErrorIs(t, r.Wait(ctx), remote.ErrNotFound)

	rows := h.sheet.snapshot()
	require.Len(t, rows, 1)
	assert.Equal(t, "other-note", rows[0].ID)
	assert.Empty(t, h.sheet.updates)
	assert.Equal(t, "A", h.local(t, created.ID).Title)

	row, ok, err := h.rows.Get(ctx, moved.RowScope(), "other-note")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, row)
}

func TestEngine_UpdateResolvesRowOnCacheMiss(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	first := h.create(t, "first", "", "")
	second := h.create(t, "second", "", "")

	require.NoError(t, h.rows.Invalidate(ctx, source.RowScope()))
	listsBefore := h.sheet.lists

	r, err := h.engine.Update(ctx, source, second.ID, syncer.Patch{Content: ptr("edited")})
	require.NoError(t, err)
	require.NoError(t, r.Wait(ctx))

	assert.Equal(t, listsBefore+1, h.sheet.lists)
	assert.Equal(t, []int{3}, h.sheet.updates)
	assert.Equal(t, "edited", h.sheet.snapshot()[1].Content)

	row, ok, err := h.rows.Get(ctx, source.RowScope(), first.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, row)
}

func TestEngine_MissingNote(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.engine.Update(ctx, source, "missing", syncer.Patch{Title: ptr("x")})
	require.ErrorIs(t, err, syncer.ErrNoteNotFound)

	_, err = h.engine.Delete(ctx, source, "missing")
	require.ErrorIs(t, err, syncer.ErrNoteNotFound)

	created := h.create(t, "A", "", "")
	other := entities.NoteSource{ID: "S2", SpreadsheetID: "sheet-2"}
	_, err = h.engine.Update(ctx, other, created.ID, syncer.Patch{Title: ptr("x")})
	require.ErrorIs(t, err, syncer.ErrNoteNotFound)

	_, err = h.engine.Create(ctx, entities.NoteSource{ID: "S3"}, syncer.Draft{})
	require.ErrorIs(t, err, syncer.ErrInvalidSource)
}

func TestEngine_DeleteIsSoftAndIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	created := h.create(t, "A", "", "")

	r, err := h.engine.Delete(ctx, source, created.ID)
	require.NoError(t, err)
	require.NoError(t, r.Wait(ctx))

	deleted := h.local(t, created.ID)
	require.NotNil(t, deleted)
	require.NotNil(t, deleted.DeletedAt)

	rows := h.sheet.snapshot()
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].DeletedAt)

	list, err := h.store.Notes().ListBySource(ctx, source.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	updatesBefore := len(h.sheet.updates)
	r, err = h.engine.Delete(ctx, source, created.ID)
	require.NoError(t, err)
	require.NoError(t, r.Wait(ctx))

	again := h.local(t, created.ID)
	assert.True(t, again.DeletedAt.Equal(*deleted.DeletedAt))
	assert.Len(t, h.sheet.updates, updatesBefore)

	_, err = h.engine.Update(ctx, source, created.ID, syncer.Patch{Title: ptr("x")})
	require.ErrorIs(t, err, syncer.ErrNoteNotFound)
}

func TestEngine_SerializesMutationsPerNote(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	gate := make(chan struct{})
	h.sheet.set(func(f *fakeSheet) { f.createGate = gate })

	r1, err := h.engine.Create(ctx, source, syncer.Draft{Title: "A"})
	require.NoError(t, err)
	id := r1.Note().ID

	started := make(chan struct{})
	type result struct {
		receipt *syncer.Receipt
		err     error
	}
	second := make(chan result, 1)
	go func() {
		close(started)
		r, err := h.engine.Update(ctx, source, id, syncer.Patch{Title: ptr("B")})
		second <- result{r, err}
	}()
	<-started

	select {
	case <-second:
		t.Fatal("second mutation started before the first finished")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, "A", h.local(t, id).Title)

	close(gate)
	require.NoError(t, r1.Wait(ctx))

	res := <-second
	require.NoError(t, res.err)
	require.NoError(t, res.receipt.Wait(ctx))
	assert.Equal(t, "B", h.local(t, id).Title)
	assert.Equal(t, "B", h.sheet.snapshot()[0].Title)
}

func TestEngine_SecondMutationSeesRollback(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	gate := make(chan struct{})
	h.sheet.set(func(f *fakeSheet) {
		f.createGate = gate
		f.createErr = remote.ErrUnreachable
	})

	r1, err := h.engine.Create(ctx, source, syncer.Draft{Title: "A"})
	require.NoError(t, err)
	id := r1.Note().ID

	second := make(chan error, 1)
	go func() {
		_, err := h.engine.Update(ctx, source, id, syncer.Patch{Title: ptr("B")})
		second <- err
	}()

	close(gate)
	require.ErrorIs(t, r1.Wait(ctx), remote.ErrUnreachable)
	require.ErrorIs(t, <-second, syncer.ErrNoteNotFound)
	assert.Nil(t, h.local(t, id))
}

func TestEngine_LocalStorageFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	store := &failingStore{Store: h.store, fail: true}
	engine := syncer.NewEngine(store, h.sheet, h.rows)
	defer engine.Close(ctx)

	_, err := engine.Create(ctx, source, syncer.Draft{Title: "A"})
	require.ErrorIs(t, err, repositories.ErrLocalStorage)

	assert.Zero(t, h.pending(t))
	assert.Zero(t, h.sheet.creates)
	list, err := h.store.Notes().ListBySource(ctx, source.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEngine_CloseWaitsForReplays(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	gate := make(chan struct{})
	h.sheet.set(func(f *fakeSheet) { f.createGate = gate })

	r, err := h.engine.Create(ctx, source, syncer.Draft{Title: "A"})
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, h.engine.Close(short), context.DeadlineExceeded)

	_, err = h.engine.Create(ctx, source, syncer.Draft{Title: "B"})
	require.ErrorIs(t, err, syncer.ErrEngineClosed)

	close(gate)
	require.NoError(t, h.engine.Close(ctx))
	require.NoError(t, r.Wait(ctx))
	assert.Zero(t, h.pending(t))
}
