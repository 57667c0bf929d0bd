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

func seedLocal(t *testing.T, h *harness) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.store.Notes().Put(ctx, entities.NewNote("local-1", source.ID, "keep me", "", "", base)))
	require.NoError(t, h.store.Notes().Put(ctx, entities.NewNote("other-1", "S2", "other source", "", "", base)))
}

func localTitles(t *testing.T, h *harness, sourceID string) []string {
	t.Helper()
	list, err := h.store.Notes().ListBySource(context.Background(), sourceID)
	require.NoError(t, err)
	out := make([]string, 0, len(list))
	for _, n := range list {
		out = append(out, n.Title)
	}
	return out
}

func TestEngine_Reset(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	seedLocal(t, h)

	deletedAt := base
	tombstone := remoteNote("dead", base)
	tombstone.DeletedAt = &deletedAt
	h.sheet.set(func(f *fakeSheet) {
		f.rows = []*entities.Note{remoteNote("r1", base), tombstone, {ID: ""}, remoteNote("r2", base.Add(time.Second))}
	})

	var steps []string
	require.NoError(t, h.engine.Reset(ctx, source, func(step string) { steps = append(steps, step) }))

	assert.Equal(t, []string{
		syncer.StepCheckingConnection,
		syncer.StepFetching,
		syncer.StepClearing,
		syncer.StepWriting,
		syncer.StepDone,
	}, steps)

	assert.ElementsMatch(t, []string{"remote r1", "remote r2"}, localTitles(t, h, source.ID))
	assert.Nil(t, h.local(t, "dead"))
	assert.Equal(t, []string{"other source"}, localTitles(t, h, "S2"))

	row, ok, err := h.rows.Get(ctx, source.RowScope(), "r2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, row)
}

func TestEngine_ResetFlushesPendingFirst(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	leftover(t, h, "p1", entities.NewNote("n1", source.ID, "unsynced", "", "", base), entities.OperationCreate, base)

	require.NoError(t, h.engine.Reset(ctx, source, nil))
	assert.Equal(t, []string{"unsynced"}, localTitles(t, h, source.ID))
	assert.Zero(t, h.pending(t))
}

func TestEngine_ResetAbortsWithoutTouchingLocal(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, h *harness)
		wantErr error
		steps   []string
	}{
		{
			name: "unreachable",
			setup: func(_ *testing.T, h *harness) {
				h.sheet.set(func(f *fakeSheet) { f.healthErr = remote.ErrUnreachable })
			},
			wantErr: remote.ErrUnreachable,
			steps:   []string{syncer.StepCheckingConnection},
		},
		{
			name: "pending cannot be flushed",
			setup: func(t *testing.T, h *harness) {
				leftover(t, h, "p1", entities.NewNote("n1", source.ID, "unsynced", "", "", base), entities.OperationCreate, base)
				h.sheet.set(func(f *fakeSheet) { f.createErr = remote.ErrServer })
			},
			wantErr: syncer.ErrPendingNotFlushed,
			steps:   []string{syncer.StepCheckingConnection},
		},
		{
			name: "fetch fails",
			setup: func(t *testing.T, h *harness) {
				h.sheet.set(func(f *fakeSheet) {
					f.rows = []*entities.Note{remoteNote("r1", base)}
					f.listErr = remote.ErrServer
				})
			},
			wantErr: remote.ErrServer,
			steps:   []string{syncer.StepCheckingConnection, syncer.StepFetching},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			h := newHarness(t)
			seedLocal(t, h)
			tt.setup(t, h)
			before := localTitles(t, h, source.ID)
			pendingBefore := h.pending(t)

			var steps []string
			err := h.engine.Reset(ctx, source, func(step string) { steps = append(steps, step) })
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.steps, steps)

			assert.Equal(t, before, localTitles(t, h, source.ID))
			assert.Equal(t, pendingBefore, h.pending(t))
		})
	}
}

func TestEngine_ResetUnreachableMessage(t *testing.T) {
	h := newHarness(t)
	h.sheet.set(func(f *fakeSheet) { f.healthErr = remote.ErrUnreachable })

	err := h.engine.Reset(context.Background(), source, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), syncer.MsgAPIUnreachable)
}
