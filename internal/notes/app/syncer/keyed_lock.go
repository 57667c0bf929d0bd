package syncer

import (
	"context"
	"sync"
)

// keyedLock мьютекс на ключ. Разблокировать можно из другой горутины.
type keyedLock struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	ch   chan struct{}
	refs int
}

func newKeyedLock() *keyedLock {
	return &keyedLock{entries: make(map[string]*lockEntry)}
}

func (k *keyedLock) acquire(key string) *lockEntry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.entries[key]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	return e
}

func (k *keyedLock) release(key string, e *lockEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

// Lock ждет освобождения ключа или отмены ctx.
func (k *keyedLock) Lock(ctx context.Context, key string) (func(), error) {
	e := k.acquire(key)
	select {
	case e.ch <- struct{}{}:
		return k.unlocker(key, e), nil
	case <-ctx.Done():
		k.release(key, e)
		return nil, ctx.Err()
	}
}

// TryLock захватывает ключ, только если он свободен.
func (k *keyedLock) TryLock(key string) (func(), bool) {
	e := k.acquire(key)
	select {
	case e.ch <- struct{}{}:
		return k.unlocker(key, e), true
	default:
		k.release(key, e)
		return nil, false
	}
}

func (k *keyedLock) unlocker(key string, e *lockEntry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			k.release(key, e)
		})
	}
}

// gates RWMutex на источник: мутации и pull берут его на чтение, flush и reset на запись.
type gates struct {
	mu    sync.Mutex
	gates map[string]*sync.RWMutex
}

func newGates() *gates {
	return &gates{gates: make(map[string]*sync.RWMutex)}
}

func (g *gates) get(sourceID string) *sync.RWMutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	gate, ok := g.gates[sourceID]
	if !ok {
		gate = &sync.RWMutex{}
		g.gates[sourceID] = gate
	}
	return gate
}
