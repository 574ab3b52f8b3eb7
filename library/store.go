/*
store.go - Persistence interface for the four library collections

PURPOSE:
  Defines the boundary between the domain logic and durable storage.
  Every backend persists the same four collections (Users, Books,
  IssuedRecords, Requests) as whole documents: a write is a full
  collection replace, never an incremental update.

MUTATION CONTRACT:
  Mutate(ctx, fn) is the ONLY write path. It loads all four collections,
  hands them to fn as a State, and on success replaces the stored
  collections with whatever fn left behind. Each backend makes the whole
  read-mutate-write sequence exclusive:

    - jsonfile: a single store-wide lock around load + rewrite
    - sqlite:   one SQL transaction (plus a process-level lock)
    - memory:   a mutex over an in-process State

  If fn returns an error, nothing is written and the error is returned
  unchanged. This is what lets the workflow mutate Books, IssuedRecords
  and Requests together without a lost-update window.

READS:
  The per-collection getters return copies. A caller can hold a slice
  across a Mutate without observing the change.

MISSING vs CORRUPT DATA:
  A collection that has never been written loads as empty. A collection
  that exists but cannot be decoded is an error; backends must not mask
  unreadable data as an empty collection.

IMPLEMENTATIONS:
  - store/sqlite:        SQLite tables, one per collection
  - store/jsonfile:      one JSON document per collection on disk
  - library/store/memory: in-process, for tests

SEE ALSO:
  - workflow.go, catalog.go: The only callers of Mutate
*/
package library

import "context"

// State is the full persisted dataset handed to a Mutate callback.
// Mutations edit the slices in place (or reassign them); whatever the
// callback leaves behind becomes the new stored content.
type State struct {
	Users    []User
	Books    []Book
	Issued   []IssuedRecord
	Requests []Request
}

// Store is durable storage for the library collections.
type Store interface {
	// Users returns a copy of the Users collection.
	Users(ctx context.Context) ([]User, error)

	// Books returns a copy of the Books collection.
	Books(ctx context.Context) ([]Book, error)

	// Issued returns a copy of the IssuedRecords collection.
	Issued(ctx context.Context) ([]IssuedRecord, error)

	// Requests returns a copy of the Requests collection.
	Requests(ctx context.Context) ([]Request, error)

	// Mutate runs fn against the current State under the store's write
	// lock and persists the result as a full replace of every collection.
	// If fn returns an error nothing is written.
	Mutate(ctx context.Context, fn func(*State) error) error

	// Close releases the backend's resources.
	Close() error
}

// FindBook returns a pointer into s.Books for the book with the given id,
// or nil when absent. The pointer stays valid for the duration of a
// Mutate callback.
func (s *State) FindBook(id int) *Book {
	for i := range s.Books {
		if s.Books[i].ID == id {
			return &s.Books[i]
		}
	}
	return nil
}

// FindRequest returns a pointer into s.Requests for the given id, or nil.
func (s *State) FindRequest(id int) *Request {
	for i := range s.Requests {
		if s.Requests[i].ID == id {
			return &s.Requests[i]
		}
	}
	return nil
}

// FindOpenIssued returns the first open issued record for
// (username, bookID), or nil when the pair has nothing out.
func (s *State) FindOpenIssued(username string, bookID int) *IssuedRecord {
	for i := range s.Issued {
		rec := &s.Issued[i]
		if rec.Username == username && rec.BookID == bookID && rec.Open() {
			return rec
		}
	}
	return nil
}

// FindUser returns a pointer to the user with the given username, or nil.
func (s *State) FindUser(username string) *User {
	for i := range s.Users {
		if s.Users[i].Username == username {
			return &s.Users[i]
		}
	}
	return nil
}
