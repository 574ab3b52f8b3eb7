/*
dto.go - Request and response bodies for the HTTP API

PURPOSE:
  JSON shapes crossing the wire. Request bodies carry validator tags and
  are checked in one place (Handler.decode); responses reuse the domain
  types where their JSON tags already match the API contract, with a
  dedicated DTO only where the response adds derived data (fines).

NAMING CONVENTION:
  *Request: Request body types from clients
  *DTO:     Response types returned to clients
*/
package api

// SignupRequest creates a new user account.
type SignupRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=admin student"`
}

// LoginRequest authenticates a user.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the session token and role.
type LoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	Role    string `json:"role"`
}

// WhoamiResponse describes the verified caller.
type WhoamiResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// AddBookRequest adds a catalog entry. Available is optional and
// defaults to 1.
type AddBookRequest struct {
	Title     string `json:"title" validate:"required"`
	Author    string `json:"author" validate:"required"`
	Available *int   `json:"available" validate:"omitempty,gte=0"`
}

// BorrowReturnRequest queues a borrow or return request for a book.
type BorrowReturnRequest struct {
	BookID int `json:"bookId" validate:"required"`
}

// ResolveRequest approves or rejects a pending request.
type ResolveRequest struct {
	RequestID int `json:"requestId" validate:"required"`
}

// IssuedRecordDTO is an issued record plus its computed overdue fine.
type IssuedRecordDTO struct {
	ID         int    `json:"id"`
	Username   string `json:"username"`
	BookID     int    `json:"bookId"`
	Title      string `json:"title"`
	IssueDate  string `json:"issue_date"`
	ReturnDate string `json:"return_date,omitempty"`
	Fine       string `json:"fine"`
}

// SuccessResponse is the generic mutation acknowledgement.
type SuccessResponse struct {
	Success bool `json:"success"`
}
