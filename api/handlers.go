/*
handlers.go - HTTP handlers for the library API

PURPOSE:
  Exposes catalog, borrowing workflow and auth over REST. Handlers parse
  and validate input, delegate to the domain services, and map domain
  errors to HTTP status codes.

ENDPOINTS:
  Auth:
    POST /signup                 Create account
    POST /login                  Exchange credentials for a token
    GET  /whoami                 Describe the caller

  Any logged-in caller:
    GET    /api/books            List catalog

  Student:
    GET  /api/mybooks            Caller's open issued records
    GET  /api/myrequests         Caller's requests (all statuses)
    POST /api/request-borrow     Queue a borrow request
    POST /api/request-return     Queue a return request

  Admin:
    POST   /api/books            Add a book
    DELETE /api/books/{id}       Remove a book (idempotent)
    GET    /api/requests         Pending requests
    GET    /api/issued           Full issued history with fines
    POST   /api/requests/approve Approve a pending request
    POST   /api/requests/reject  Reject a pending request

ERROR HANDLING:
  Domain errors map to status codes in statusFor:
  - 400: validation failures, no copies available
  - 404: missing book/request
  - 409: resolving an already-resolved request
  - 401/403: missing identity / wrong role
  - 500: storage failures

SEE ALSO:
  - dto.go: Body shapes and validator tags
  - server.go: Router and middleware wiring
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/warp/library-engine/auth"
	"github.com/warp/library-engine/library"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Catalog  *library.Catalog
	Workflow *library.Workflow
	Auth     *auth.Service
	Fines    library.FinePolicy

	validate *validator.Validate
	now      func() time.Time
}

// NewHandler creates a handler over the domain services.
func NewHandler(catalog *library.Catalog, workflow *library.Workflow, authSvc *auth.Service, fines library.FinePolicy) *Handler {
	return &Handler{
		Catalog:  catalog,
		Workflow: workflow,
		Auth:     authSvc,
		Fines:    fines,
		validate: validator.New(),
		now:      time.Now,
	}
}

// decode reads a JSON body into dst and runs validator tags.
func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &library.ValidationError{Field: "body", Reason: "invalid JSON"}
	}
	if err := h.validate.Struct(dst); err != nil {
		return &library.ValidationError{Field: "body", Reason: err.Error()}
	}
	return nil
}

// =============================================================================
// IDENTITY MIDDLEWARE
// =============================================================================

type contextKey string

const identityKey contextKey = "identity"

// callerFrom extracts the verified identity placed by requireLogin.
func callerFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(auth.Identity)
	return id, ok
}

// requireLogin verifies the Bearer token and stores the identity in the
// request context. 401 when missing or invalid.
func (h *Handler) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Not logged in", nil)
			return
		}
		id, err := h.Auth.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Not logged in", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
	})
}

// requireRole gates a subtree to one role. 403 on mismatch.
func (h *Handler) requireRole(role library.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := callerFrom(r.Context())
			if !ok || id.Role != role {
				writeError(w, http.StatusForbidden, "Forbidden", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

// =============================================================================
// AUTH HANDLERS
// =============================================================================

// Signup creates a new user account.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing fields", err)
		return
	}

	_, err := h.Auth.SignUp(r.Context(), req.Username, req.Password, library.Role(req.Role))
	if errors.Is(err, auth.ErrUsernameTaken) {
		writeError(w, http.StatusBadRequest, "Username already exists", nil)
		return
	}
	if err != nil {
		writeDomainError(w, "Failed to sign up", err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// Login exchanges credentials for a token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing fields", err)
		return
	}

	user, token, err := h.Auth.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, http.StatusBadRequest, "Invalid credentials", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to log in", err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Success: true, Token: token, Role: string(user.Role)})
}

// Whoami describes the verified caller.
func (h *Handler) Whoami(w http.ResponseWriter, r *http.Request) {
	id, _ := callerFrom(r.Context())
	writeJSON(w, http.StatusOK, WhoamiResponse{Username: id.Username, Role: string(id.Role)})
}

// =============================================================================
// CATALOG HANDLERS
// =============================================================================

// ListBooks returns the whole catalog.
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.Catalog.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list books", err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

// AddBook adds a catalog entry.
func (h *Handler) AddBook(w http.ResponseWriter, r *http.Request) {
	var req AddBookRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing fields", err)
		return
	}

	available := 0
	if req.Available != nil {
		available = *req.Available
	}
	if _, err := h.Catalog.Add(r.Context(), req.Title, req.Author, available); err != nil {
		writeDomainError(w, "Failed to add book", err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// RemoveBook deletes a catalog entry. Removing an unknown id still
// reports success.
func (h *Handler) RemoveBook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid book id", err)
		return
	}
	if err := h.Catalog.Remove(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to remove book", err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// =============================================================================
// STUDENT HANDLERS
// =============================================================================

// MyBooks returns the caller's currently-borrowed copies with fines.
func (h *Handler) MyBooks(w http.ResponseWriter, r *http.Request) {
	id, _ := callerFrom(r.Context())
	records, err := h.Workflow.IssuedFor(r.Context(), id.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list issued books", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toIssuedDTOs(records))
}

// MyRequests returns every request the caller has made.
func (h *Handler) MyRequests(w http.ResponseWriter, r *http.Request) {
	id, _ := callerFrom(r.Context())
	requests, err := h.Workflow.RequestsFor(r.Context(), id.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list requests", err)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

// RequestBorrow queues a borrow request for the caller.
func (h *Handler) RequestBorrow(w http.ResponseWriter, r *http.Request) {
	id, _ := callerFrom(r.Context())
	var req BorrowReturnRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing fields", err)
		return
	}
	if _, err := h.Workflow.RequestBorrow(r.Context(), id.Username, req.BookID); err != nil {
		writeDomainError(w, "Failed to request borrow", err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// RequestReturn queues a return request for the caller.
func (h *Handler) RequestReturn(w http.ResponseWriter, r *http.Request) {
	id, _ := callerFrom(r.Context())
	var req BorrowReturnRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing fields", err)
		return
	}
	if _, err := h.Workflow.RequestReturn(r.Context(), id.Username, req.BookID); err != nil {
		// "Nothing borrowed" is a plain client error here, not a conflict:
		// the caller referenced state that was never theirs.
		if errors.Is(err, library.ErrInvalidState) {
			writeError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		writeDomainError(w, "Failed to request return", err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// PendingRequests returns every unresolved request.
func (h *Handler) PendingRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Workflow.PendingRequests(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list requests", err)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

// IssuedRecords returns the full issued history with fines.
func (h *Handler) IssuedRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.Workflow.AllIssued(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list issued records", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toIssuedDTOs(records))
}

// ApproveRequest resolves a pending request in the student's favor.
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing fields", err)
		return
	}
	if err := h.Workflow.Approve(r.Context(), req.RequestID); err != nil {
		writeDomainError(w, "Failed to approve request", err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// RejectRequest resolves a pending request against the student.
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing fields", err)
		return
	}
	if err := h.Workflow.Reject(r.Context(), req.RequestID); err != nil {
		writeDomainError(w, "Failed to reject request", err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) toIssuedDTOs(records []library.IssuedRecord) []IssuedRecordDTO {
	asOf := h.now()
	dtos := make([]IssuedRecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = IssuedRecordDTO{
			ID:         rec.ID,
			Username:   rec.Username,
			BookID:     rec.BookID,
			Title:      rec.Title,
			IssueDate:  rec.IssueDate,
			ReturnDate: rec.ReturnDate,
			Fine:       h.Fines.Assess(rec, asOf).StringFixed(2),
		}
	}
	return dtos
}

// statusFor maps a domain error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case library.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, library.ErrInvalidState):
		return http.StatusConflict
	case library.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, fallback string, err error) {
	status := statusFor(err)
	msg := fallback
	if status != http.StatusInternalServerError {
		msg = err.Error()
	}
	writeError(w, status, msg, err)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]any{"error": message}
	if err != nil && status == http.StatusInternalServerError {
		body["detail"] = err.Error()
	}
	writeJSON(w, status, body)
}
