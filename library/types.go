/*
types.go - Core entities of the library domain

PURPOSE:
  Defines the four persisted entity types (Book, User, IssuedRecord,
  Request) and their small helpers. These are the shapes stored by every
  Store backend and serialized on the wire, so the JSON tags here ARE the
  persisted format.

ENTITIES:
  Book:         A title in the catalog with an availability count
  User:         A caller identity with a role (admin or student)
  IssuedRecord: One borrowed copy; open while return_date is absent
  Request:      A borrow/return request moving pending -> approved/rejected

ID ASSIGNMENT:
  IDs are small positive integers assigned as max(existing)+1, or 1 for an
  empty collection. Assignment always happens inside a Store.Mutate call,
  so two concurrent creates cannot observe the same max.

DATES:
  issue_date and return_date are calendar days ("2006-01-02").
  requested_at is a full RFC3339 timestamp.

SEE ALSO:
  - store.go: The Store interface these entities live behind
  - workflow.go: The state machine that mutates them together
*/
package library

import "time"

// =============================================================================
// ROLES
// =============================================================================

// Role classifies a caller for access control.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStudent
}

// =============================================================================
// ENTITIES
// =============================================================================

// User is a registered caller. Password holds a bcrypt hash, never
// plaintext. Username is unique across the collection.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

// Book is a catalog entry. Available counts the copies not currently
// issued and must never go negative.
type Book struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Available int    `json:"available"`
}

// IssuedRecord tracks one borrowed copy. Title is a denormalized copy of
// the book title at issue time, so the record stays readable after the
// book is removed from the catalog.
type IssuedRecord struct {
	ID         int    `json:"id"`
	Username   string `json:"username"`
	BookID     int    `json:"bookId"`
	Title      string `json:"title"`
	IssueDate  string `json:"issue_date"`
	ReturnDate string `json:"return_date,omitempty"`
}

// Open reports whether the copy is still out (no return date recorded).
func (r IssuedRecord) Open() bool {
	return r.ReturnDate == ""
}

// RequestType distinguishes borrow from return requests.
type RequestType string

const (
	RequestBorrow RequestType = "borrow"
	RequestReturn RequestType = "return"
)

// RequestStatus is the request lifecycle state.
// pending -> approved | rejected. Terminal states are final.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// Request is a student's borrow or return request awaiting an admin
// decision. Title is denormalized from the book for display.
type Request struct {
	ID          int           `json:"id"`
	Type        RequestType   `json:"type"`
	Username    string        `json:"username"`
	BookID      int           `json:"bookId"`
	Title       string        `json:"title"`
	RequestedAt string        `json:"requested_at"`
	Status      RequestStatus `json:"status"`
}

// =============================================================================
// HELPERS
// =============================================================================

// DateOnly is the calendar-day format used for issue and return dates.
const DateOnly = "2006-01-02"

// Day formats t as a calendar day.
func Day(t time.Time) string {
	return t.Format(DateOnly)
}

// nextID returns max(id)+1 over items, or 1 when items is empty.
func nextID[T any](items []T, id func(T) int) int {
	max := 0
	for _, it := range items {
		if v := id(it); v > max {
			max = v
		}
	}
	return max + 1
}
