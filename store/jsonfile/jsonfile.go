/*
Package jsonfile persists each collection as one JSON document on disk.

PURPOSE:
  The flat-file backend: users.json, books.json, issued.json and
  requests.json under a data directory. Every collection is read and
  rewritten in entirety; there are no partial updates.

LOCKING:
  A single store-wide mutex serializes every Mutate. Two racing
  mutations against the same process cannot interleave their
  read-mutate-write sequences, which closes the classic lost-update
  window of last-writer-wins file rewrites. The lock is per process;
  running two server processes against the same directory is not
  supported.

WRITE DISCIPLINE:
  Each file is written to a temp sibling and renamed into place, so a
  crash mid-write leaves the previous document intact. The four files
  are still four renames; a crash between them can leave the
  collections mutually inconsistent. Acceptable for the single-admin,
  low-traffic deployments this backend targets; use the sqlite backend
  when that matters.

MISSING vs CORRUPT:
  A file that does not exist yet loads as an empty collection. A file
  that exists but fails to decode is surfaced as an error; unreadable
  data is not the same thing as no data.

SEE ALSO:
  - library/store.go: Interface contract
  - store/sqlite: The transactional alternative
*/
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/warp/library-engine/library"
)

const (
	usersFile    = "users.json"
	booksFile    = "books.json"
	issuedFile   = "issued.json"
	requestsFile = "requests.json"
)

// Store implements library.Store over flat JSON files.
type Store struct {
	mu  sync.RWMutex
	dir string
}

// New creates a store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Close is a no-op; files are closed after every operation.
func (s *Store) Close() error { return nil }

// =============================================================================
// READS
// =============================================================================

func (s *Store) Users(_ context.Context) ([]library.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return readCollection[library.User](s.path(usersFile))
}

func (s *Store) Books(_ context.Context) ([]library.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return readCollection[library.Book](s.path(booksFile))
}

func (s *Store) Issued(_ context.Context) ([]library.IssuedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return readCollection[library.IssuedRecord](s.path(issuedFile))
}

func (s *Store) Requests(_ context.Context) ([]library.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return readCollection[library.Request](s.path(requestsFile))
}

// =============================================================================
// MUTATION
// =============================================================================

// Mutate loads all four collections, applies fn, and rewrites every file.
// The exclusive lock spans the whole sequence.
func (s *Store) Mutate(_ context.Context, fn func(*library.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadAll()
	if err != nil {
		return err
	}
	if err := fn(&state); err != nil {
		return err
	}

	if err := writeCollection(s.path(usersFile), state.Users); err != nil {
		return err
	}
	if err := writeCollection(s.path(booksFile), state.Books); err != nil {
		return err
	}
	if err := writeCollection(s.path(issuedFile), state.Issued); err != nil {
		return err
	}
	return writeCollection(s.path(requestsFile), state.Requests)
}

func (s *Store) loadAll() (library.State, error) {
	var state library.State
	var err error

	if state.Users, err = readCollection[library.User](s.path(usersFile)); err != nil {
		return state, err
	}
	if state.Books, err = readCollection[library.Book](s.path(booksFile)); err != nil {
		return state, err
	}
	if state.Issued, err = readCollection[library.IssuedRecord](s.path(issuedFile)); err != nil {
		return state, err
	}
	if state.Requests, err = readCollection[library.Request](s.path(requestsFile)); err != nil {
		return state, err
	}
	return state, nil
}

// =============================================================================
// FILE HELPERS
// =============================================================================

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

func readCollection[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return items, nil
}

// writeCollection writes via a temp file and rename so a crash cannot
// leave a half-written document behind.
func writeCollection[T any](path string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
