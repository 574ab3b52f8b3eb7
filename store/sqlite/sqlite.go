/*
Package sqlite provides a SQLite-backed implementation of library.Store.

PURPOSE:
  Durable storage with real transactional boundaries. One table per
  collection (users, books, issued_records, requests); a Mutate replaces
  every collection inside a single SQL transaction, so a crash
  mid-operation can never leave the collections mutually inconsistent.

REPLACE-ALL SEMANTICS:
  The store keeps the same whole-collection contract as the file
  backend: Mutate deletes and reinserts each table's rows. The datasets
  this serves are small (a school library, not a national one); the
  simplicity of one write path for both backends wins over row-level
  updates here.

CONCURRENCY:
  sync.RWMutex serializes writers within the process; the SQL
  transaction covers everything else. SQLite is opened with WAL so
  readers do not block behind the writer.

USAGE:
  store, err := sqlite.New("./library.db")   // or ":memory:" for tests
  defer store.Close()

SEE ALSO:
  - library/store.go: Interface contract
  - store/jsonfile: The flat-file alternative
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/library-engine/library"
)

// Store implements library.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath and applies the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: keeps ":memory:" databases coherent (each pooled
	// connection would otherwise see its own empty database) and matches
	// the single-writer model.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		role TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS books (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		available INTEGER NOT NULL CHECK (available >= 0)
	);

	CREATE TABLE IF NOT EXISTS issued_records (
		id INTEGER PRIMARY KEY,
		username TEXT NOT NULL,
		book_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		issue_date TEXT NOT NULL,
		return_date TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_issued_username
		ON issued_records(username);
	CREATE INDEX IF NOT EXISTS idx_issued_open
		ON issued_records(username, book_id) WHERE return_date IS NULL;

	CREATE TABLE IF NOT EXISTS requests (
		id INTEGER PRIMARY KEY,
		type TEXT NOT NULL,
		username TEXT NOT NULL,
		book_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		requested_at TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending'
	);

	CREATE INDEX IF NOT EXISTS idx_requests_username
		ON requests(username);
	CREATE INDEX IF NOT EXISTS idx_requests_status
		ON requests(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// READS
// =============================================================================

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) Users(ctx context.Context) ([]library.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadUsers(ctx, s.db)
}

func (s *Store) Books(ctx context.Context) ([]library.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadBooks(ctx, s.db)
}

func (s *Store) Issued(ctx context.Context) ([]library.IssuedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadIssued(ctx, s.db)
}

func (s *Store) Requests(ctx context.Context) ([]library.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadRequests(ctx, s.db)
}

func loadUsers(ctx context.Context, q querier) ([]library.User, error) {
	rows, err := q.QueryContext(ctx, "SELECT id, username, password, role FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []library.User{}
	for rows.Next() {
		var u library.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Password, &u.Role); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func loadBooks(ctx context.Context, q querier) ([]library.Book, error) {
	rows, err := q.QueryContext(ctx, "SELECT id, title, author, available FROM books ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer rows.Close()

	books := []library.Book{}
	for rows.Next() {
		var b library.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Available); err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func loadIssued(ctx context.Context, q querier) ([]library.IssuedRecord, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, username, book_id, title, issue_date, return_date FROM issued_records ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query issued records: %w", err)
	}
	defer rows.Close()

	records := []library.IssuedRecord{}
	for rows.Next() {
		var rec library.IssuedRecord
		var returnDate sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Username, &rec.BookID, &rec.Title, &rec.IssueDate, &returnDate); err != nil {
			return nil, fmt.Errorf("failed to scan issued record: %w", err)
		}
		rec.ReturnDate = returnDate.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

func loadRequests(ctx context.Context, q querier) ([]library.Request, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, type, username, book_id, title, requested_at, status FROM requests ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	requests := []library.Request{}
	for rows.Next() {
		var r library.Request
		if err := rows.Scan(&r.ID, &r.Type, &r.Username, &r.BookID, &r.Title, &r.RequestedAt, &r.Status); err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// =============================================================================
// MUTATION
// =============================================================================

// Mutate loads all four collections inside one transaction, applies fn,
// and replaces every table's contents. Rolls back on any error.
func (s *Store) Mutate(ctx context.Context, fn func(*library.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var state library.State
	if state.Users, err = loadUsers(ctx, tx); err != nil {
		return err
	}
	if state.Books, err = loadBooks(ctx, tx); err != nil {
		return err
	}
	if state.Issued, err = loadIssued(ctx, tx); err != nil {
		return err
	}
	if state.Requests, err = loadRequests(ctx, tx); err != nil {
		return err
	}

	if err := fn(&state); err != nil {
		return err
	}

	if err := replaceAll(ctx, tx, state); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceAll(ctx context.Context, tx *sql.Tx, state library.State) error {
	for _, table := range []string{"users", "books", "issued_records", "requests"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, u := range state.Users {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO users (id, username, password, role) VALUES (?, ?, ?, ?)",
			u.ID, u.Username, u.Password, u.Role,
		); err != nil {
			return fmt.Errorf("failed to insert user: %w", err)
		}
	}

	for _, b := range state.Books {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO books (id, title, author, available) VALUES (?, ?, ?, ?)",
			b.ID, b.Title, b.Author, b.Available,
		); err != nil {
			return fmt.Errorf("failed to insert book: %w", err)
		}
	}

	for _, rec := range state.Issued {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO issued_records (id, username, book_id, title, issue_date, return_date) VALUES (?, ?, ?, ?, ?, ?)",
			rec.ID, rec.Username, rec.BookID, rec.Title, rec.IssueDate, nullString(rec.ReturnDate),
		); err != nil {
			return fmt.Errorf("failed to insert issued record: %w", err)
		}
	}

	for _, r := range state.Requests {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO requests (id, type, username, book_id, title, requested_at, status) VALUES (?, ?, ?, ?, ?, ?, ?)",
			r.ID, r.Type, r.Username, r.BookID, r.Title, r.RequestedAt, r.Status,
		); err != nil {
			return fmt.Errorf("failed to insert request: %w", err)
		}
	}

	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
