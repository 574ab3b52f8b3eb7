// Package memory provides an in-process Store implementation for tests
// and development.
package memory

import (
	"context"
	"sync"

	"github.com/warp/library-engine/library"
)

// Store keeps the four collections in memory behind a mutex. Mutations
// run against a copy of the state, so a callback that fails leaves the
// stored state untouched, matching the durable backends.
type Store struct {
	mu    sync.RWMutex
	state library.State
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{}
}

// Seed replaces the whole state. Test setup helper.
func (m *Store) Seed(state library.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = cloneState(state)
}

func (m *Store) Users(_ context.Context) ([]library.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneSlice(m.state.Users), nil
}

func (m *Store) Books(_ context.Context) ([]library.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneSlice(m.state.Books), nil
}

func (m *Store) Issued(_ context.Context) ([]library.IssuedRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneSlice(m.state.Issued), nil
}

func (m *Store) Requests(_ context.Context) ([]library.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneSlice(m.state.Requests), nil
}

func (m *Store) Mutate(_ context.Context, fn func(*library.State) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := cloneState(m.state)
	if err := fn(&next); err != nil {
		return err
	}
	m.state = next
	return nil
}

func (m *Store) Close() error { return nil }

func cloneState(s library.State) library.State {
	return library.State{
		Users:    cloneSlice(s.Users),
		Books:    cloneSlice(s.Books),
		Issued:   cloneSlice(s.Issued),
		Requests: cloneSlice(s.Requests),
	}
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
