/*
workflow.go - Borrow/return request lifecycle

PURPOSE:
  The approval workflow that ties Requests, Books and IssuedRecords
  together. Students queue borrow/return requests; an admin resolves
  them, and resolution is the only point where inventory moves.

REQUEST FLOW:

  student                       admin
  -------                       -----
  RequestBorrow ──▶ pending ──▶ Approve ──▶ available--, IssuedRecord opened
                           └──▶ Reject  ──▶ nothing else mutated

  RequestReturn ──▶ pending ──▶ Approve ──▶ record closed, available++
                           └──▶ Reject  ──▶ nothing else mutated

ENFORCEMENT POINT:
  Availability is NOT reserved when a borrow request is queued. Two
  students can both queue a request for the last copy; the count is
  re-validated at approval time and the second approval fails. This
  mirrors a desk where the librarian checks the shelf when handing the
  book over, not when the slip is filed.

STATE MACHINE:
  pending -> approved | rejected, exactly once. Approving or rejecting a
  resolved request fails with InvalidStateError.

ATOMICITY:
  Each operation is one Store.Mutate call, so Books, IssuedRecords and
  Requests change together or not at all.

SEE ALSO:
  - store.go: The Mutate contract this relies on
  - catalog.go: Book CRUD
*/
package library

import (
	"context"
	"time"
)

// Workflow orchestrates the borrow/return approval lifecycle.
type Workflow struct {
	store Store
	now   func() time.Time
}

// NewWorkflow creates a workflow over the given store.
func NewWorkflow(store Store) *Workflow {
	return &Workflow{store: store, now: time.Now}
}

// WithClock overrides the time source. Tests use this to pin dates.
func (w *Workflow) WithClock(now func() time.Time) *Workflow {
	w.now = now
	return w
}

// =============================================================================
// STUDENT OPERATIONS
// =============================================================================

// RequestBorrow queues a pending borrow request for (username, bookID).
// The book must exist and have at least one copy available right now;
// availability is checked again, and only actually consumed, at approval.
func (w *Workflow) RequestBorrow(ctx context.Context, username string, bookID int) (Request, error) {
	var req Request
	err := w.store.Mutate(ctx, func(s *State) error {
		book := s.FindBook(bookID)
		if book == nil {
			return &NotFoundError{Kind: "book", ID: bookID}
		}
		if book.Available <= 0 {
			return &UnavailableError{BookID: book.ID, Title: book.Title}
		}

		req = Request{
			ID:          nextID(s.Requests, func(r Request) int { return r.ID }),
			Type:        RequestBorrow,
			Username:    username,
			BookID:      book.ID,
			Title:       book.Title,
			RequestedAt: w.now().UTC().Format(time.RFC3339),
			Status:      StatusPending,
		}
		s.Requests = append(s.Requests, req)
		return nil
	})
	if err != nil {
		return Request{}, err
	}
	return req, nil
}

// RequestReturn queues a pending return request. The caller must have an
// open issued record for the book; otherwise nothing is borrowed and the
// request makes no sense.
func (w *Workflow) RequestReturn(ctx context.Context, username string, bookID int) (Request, error) {
	var req Request
	err := w.store.Mutate(ctx, func(s *State) error {
		rec := s.FindOpenIssued(username, bookID)
		if rec == nil {
			return &InvalidStateError{
				Op:     "request return",
				Detail: "book is not currently borrowed by this user",
			}
		}

		req = Request{
			ID:          nextID(s.Requests, func(r Request) int { return r.ID }),
			Type:        RequestReturn,
			Username:    username,
			BookID:      rec.BookID,
			Title:       rec.Title,
			RequestedAt: w.now().UTC().Format(time.RFC3339),
			Status:      StatusPending,
		}
		s.Requests = append(s.Requests, req)
		return nil
	})
	if err != nil {
		return Request{}, err
	}
	return req, nil
}

// =============================================================================
// ADMIN OPERATIONS
// =============================================================================

// Approve resolves a pending request.
//
// Borrow: re-validates availability (the actual enforcement point),
// decrements the count and opens an IssuedRecord dated today. A borrow
// approval that fails availability leaves IssuedRecords and Requests
// untouched.
//
// Return: closes the matching open IssuedRecord with today's date and
// increments the book's availability. The increment happens only when a
// record was actually closed, so a stray return request cannot inflate
// the count.
func (w *Workflow) Approve(ctx context.Context, requestID int) error {
	return w.store.Mutate(ctx, func(s *State) error {
		req := s.FindRequest(requestID)
		if req == nil {
			return &NotFoundError{Kind: "request", ID: requestID}
		}
		if req.Status != StatusPending {
			return &InvalidStateError{
				Op:     "approve request",
				Detail: "request is already " + string(req.Status),
			}
		}

		today := Day(w.now())

		switch req.Type {
		case RequestBorrow:
			book := s.FindBook(req.BookID)
			if book == nil || book.Available <= 0 {
				return &UnavailableError{BookID: req.BookID, Title: req.Title}
			}
			book.Available--
			s.Issued = append(s.Issued, IssuedRecord{
				ID:        nextID(s.Issued, func(r IssuedRecord) int { return r.ID }),
				Username:  req.Username,
				BookID:    book.ID,
				Title:     book.Title,
				IssueDate: today,
			})

		case RequestReturn:
			if rec := s.FindOpenIssued(req.Username, req.BookID); rec != nil {
				rec.ReturnDate = today
				if book := s.FindBook(req.BookID); book != nil {
					book.Available++
				}
			}
		}

		req.Status = StatusApproved
		return nil
	})
}

// Reject resolves a pending request without touching inventory.
func (w *Workflow) Reject(ctx context.Context, requestID int) error {
	return w.store.Mutate(ctx, func(s *State) error {
		req := s.FindRequest(requestID)
		if req == nil {
			return &NotFoundError{Kind: "request", ID: requestID}
		}
		if req.Status != StatusPending {
			return &InvalidStateError{
				Op:     "reject request",
				Detail: "request is already " + string(req.Status),
			}
		}
		req.Status = StatusRejected
		return nil
	})
}

// =============================================================================
// LISTINGS
// =============================================================================

// IssuedFor returns the caller's currently-borrowed copies (open records).
func (w *Workflow) IssuedFor(ctx context.Context, username string) ([]IssuedRecord, error) {
	all, err := w.store.Issued(ctx)
	if err != nil {
		return nil, err
	}
	mine := make([]IssuedRecord, 0)
	for _, rec := range all {
		if rec.Username == username && rec.Open() {
			mine = append(mine, rec)
		}
	}
	return mine, nil
}

// RequestsFor returns every request the caller has made, in any status.
func (w *Workflow) RequestsFor(ctx context.Context, username string) ([]Request, error) {
	all, err := w.store.Requests(ctx)
	if err != nil {
		return nil, err
	}
	mine := make([]Request, 0)
	for _, req := range all {
		if req.Username == username {
			mine = append(mine, req)
		}
	}
	return mine, nil
}

// PendingRequests returns every unresolved request (admin view).
func (w *Workflow) PendingRequests(ctx context.Context) ([]Request, error) {
	all, err := w.store.Requests(ctx)
	if err != nil {
		return nil, err
	}
	pending := make([]Request, 0)
	for _, req := range all {
		if req.Status == StatusPending {
			pending = append(pending, req)
		}
	}
	return pending, nil
}

// AllIssued returns the full issued history, open and closed (admin view).
func (w *Workflow) AllIssued(ctx context.Context) ([]IssuedRecord, error) {
	return w.store.Issued(ctx)
}
