package syncer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedLock(t *testing.T) {
	ctx := context.Background()
	k := newKeyedLock()

	unlock, err := k.Lock(ctx, "a")
	require.NoError(t, err)

	_, ok := k.TryLock("a")
	assert.False(t, ok)

	other, ok := k.TryLock("b")
	require.True(t, ok)
	other()

	short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = k.Lock(short, "a")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	acquired := make(chan struct{})
	go func() {
		u, err := k.Lock(ctx, "a")
		if err == nil {
			close(acquired)
			u()
		}
	}()

	// разблокировка из другой горутины допустима, повторный вызов безопасен
	go unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock was not handed over")
	}
	unlock()

	require.Eventually(t, func() bool {
		k.mu.Lock()
		defer k.mu.Unlock()
		return len(k.entries) == 0
	}, time.Second, time.Millisecond)
}

func TestNotifier(t *testing.T) {
	n := NewNotifier(2)
	ch := n.Subscribe()

	for i, id := range []string{"a", "b", "c"} {
		n.Publish(Notice{Kind: NoticeReverted, NoteID: id, At: time.Unix(int64(i), 0)})
	}

	recent := n.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].NoteID)
	assert.Equal(t, "b", recent[1].NoteID)

	assert.Equal(t, "a", (<-ch).NoteID)
	n.Unsubscribe(ch)

	var rest []string
	for notice := range ch {
		rest = append(rest, notice.NoteID)
	}
	assert.Equal(t, []string{"b", "c"}, rest)

	// публикация после отписки не паникует
	n.Publish(Notice{NoteID: "d"})
}
