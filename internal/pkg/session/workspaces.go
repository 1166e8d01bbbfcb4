package session

import (
	"sync"
	"time"
)

// Workspaces holds one value per session. Callers of With for the same key
// are serialized, so each session has a single writer.
type Workspaces[T any] struct {
	mu    sync.Mutex
	items map[string]*workspace[T]
}

type workspace[T any] struct {
	mu       sync.Mutex
	value    T
	lastUsed time.Time
}

func NewWorkspaces[T any]() *Workspaces[T] {
	return &Workspaces[T]{items: make(map[string]*workspace[T])}
}

func (w *Workspaces[T]) entry(key string) *workspace[T] {
	w.mu.Lock()
	defer w.mu.Unlock()

	ws, ok := w.items[key]
	if !ok {
		// Stamped under w.mu so Prune cannot drop it before the first With.
		ws = &workspace[T]{lastUsed: time.Now()}
		w.items[key] = ws
	}
	return ws
}

// With runs fn on the value stored under key while holding that key's lock.
// A key seen for the first time starts from the zero value.
func (w *Workspaces[T]) With(key string, fn func(*T) error) error {
	ws := w.entry(key)

	ws.mu.Lock()
	defer ws.mu.Unlock()

	ws.lastUsed = time.Now()
	return fn(&ws.value)
}

// Drop forgets the value under key.
func (w *Workspaces[T]) Drop(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.items, key)
}

func (w *Workspaces[T]) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.items)
}

// Prune drops every value not used since cutoff and returns how many went.
func (w *Workspaces[T]) Prune(cutoff time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	removed := 0
	for key, ws := range w.items {
		if !ws.mu.TryLock() {
			continue
		}
		if ws.lastUsed.Before(cutoff) {
			delete(w.items, key)
			removed++
		}
		ws.mu.Unlock()
	}
	return removed
}
