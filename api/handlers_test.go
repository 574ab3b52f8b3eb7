/*
handlers_test.go - End-to-end tests for the HTTP API

Drives the full stack (router, middleware, handlers, domain, store)
through httptest against an in-memory store.
*/
package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/library-engine/api"
	"github.com/warp/library-engine/auth"
	"github.com/warp/library-engine/library"
	"github.com/warp/library-engine/library/store/memory"
)

// =============================================================================
// TEST HARNESS
// =============================================================================

type harness struct {
	t      *testing.T
	server *httptest.Server
	auth   *auth.Service
	store  *memory.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.New()
	authSvc := auth.NewService(store, "test-secret")
	handler := api.NewHandler(
		library.NewCatalog(store),
		library.NewWorkflow(store),
		authSvc,
		library.DefaultFinePolicy(),
	)
	server := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(server.Close)
	return &harness{t: t, server: server, auth: authSvc, store: store}
}

// signup registers a user and returns a login token.
func (h *harness) signup(username string, role library.Role) string {
	h.t.Helper()
	_, err := h.auth.SignUp(context.Background(), username, "pw-"+username, role)
	require.NoError(h.t, err)
	_, token, err := h.auth.Login(context.Background(), username, "pw-"+username)
	require.NoError(h.t, err)
	return token
}

func (h *harness) do(method, path, token string, body any) *http.Response {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, h.server.URL+path, &buf)
	require.NoError(h.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// =============================================================================
// AUTH
// =============================================================================

func TestSignupLoginWhoami(t *testing.T) {
	h := newHarness(t)

	resp := h.do("POST", "/signup", "", map[string]any{
		"username": "student1", "password": "stud123", "role": "student",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = h.do("POST", "/login", "", map[string]any{
		"username": "student1", "password": "stud123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login := decodeBody[map[string]any](t, resp)
	require.NotEmpty(t, login["token"])
	assert.Equal(t, "student", login["role"])

	resp = h.do("GET", "/whoami", login["token"].(string), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	who := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "student1", who["username"])
}

func TestSignup_MissingFieldsAndDuplicates(t *testing.T) {
	h := newHarness(t)

	resp := h.do("POST", "/signup", "", map[string]any{"username": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = h.do("POST", "/signup", "", map[string]any{
		"username": "x", "password": "pw", "role": "wizard",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	ok := map[string]any{"username": "x", "password": "pw", "role": "student"}
	resp = h.do("POST", "/signup", "", ok)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = h.do("POST", "/signup", "", ok)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestLogin_BadCredentials(t *testing.T) {
	h := newHarness(t)
	h.signup("student1", library.RoleStudent)

	resp := h.do("POST", "/login", "", map[string]any{
		"username": "student1", "password": "wrong",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

// =============================================================================
// ROLE GATING
// =============================================================================

func TestRoleGating(t *testing.T) {
	h := newHarness(t)
	student := h.signup("student1", library.RoleStudent)
	admin := h.signup("admin", library.RoleAdmin)

	// No token: 401.
	resp := h.do("GET", "/api/books", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Student hitting an admin route: 403.
	resp = h.do("GET", "/api/requests", student, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Admin hitting a student route: 403.
	resp = h.do("GET", "/api/mybooks", admin, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Both roles can list books.
	for _, token := range []string{student, admin} {
		resp = h.do("GET", "/api/books", token, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}
}

// =============================================================================
// CATALOG
// =============================================================================

func TestCatalogEndpoints(t *testing.T) {
	h := newHarness(t)
	admin := h.signup("admin", library.RoleAdmin)

	// Missing author: 400.
	resp := h.do("POST", "/api/books", admin, map[string]any{"title": "Dune"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = h.do("POST", "/api/books", admin, map[string]any{
		"title": "Dune", "author": "Frank Herbert", "available": 2,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = h.do("GET", "/api/books", admin, nil)
	books := decodeBody[[]library.Book](t, resp)
	require.Len(t, books, 1)
	assert.Equal(t, 1, books[0].ID)
	assert.Equal(t, 2, books[0].Available)

	// Delete twice: both succeed, catalog ends empty.
	for i := 0; i < 2; i++ {
		resp = h.do("DELETE", "/api/books/1", admin, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, "delete attempt %d", i+1)
		resp.Body.Close()
	}
	resp = h.do("GET", "/api/books", admin, nil)
	books = decodeBody[[]library.Book](t, resp)
	assert.Empty(t, books)
}

// =============================================================================
// BORROW / RETURN FLOW
// =============================================================================

func TestBorrowReturnFlow(t *testing.T) {
	h := newHarness(t)
	admin := h.signup("admin", library.RoleAdmin)
	student := h.signup("student1", library.RoleStudent)

	resp := h.do("POST", "/api/books", admin, map[string]any{
		"title": "Dune", "author": "Frank Herbert", "available": 1,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Borrow an unknown book: 404.
	resp = h.do("POST", "/api/request-borrow", student, map[string]any{"bookId": 99})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Queue and approve a borrow.
	resp = h.do("POST", "/api/request-borrow", student, map[string]any{"bookId": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = h.do("GET", "/api/requests", admin, nil)
	pending := decodeBody[[]library.Request](t, resp)
	require.Len(t, pending, 1)

	resp = h.do("POST", "/api/requests/approve", admin, map[string]any{"requestId": pending[0].ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Student sees the borrowed copy with a fine field.
	resp = h.do("GET", "/api/mybooks", student, nil)
	mine := decodeBody[[]map[string]any](t, resp)
	require.Len(t, mine, 1)
	assert.Equal(t, "Dune", mine[0]["title"])
	assert.Equal(t, "0.00", mine[0]["fine"])

	// Availability is exhausted: next borrow request is refused.
	resp = h.do("POST", "/api/request-borrow", student, map[string]any{"bookId": 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Return flow.
	resp = h.do("POST", "/api/request-return", student, map[string]any{"bookId": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = h.do("GET", "/api/requests", admin, nil)
	pending = decodeBody[[]library.Request](t, resp)
	require.Len(t, pending, 1)
	require.Equal(t, library.RequestReturn, pending[0].Type)

	resp = h.do("POST", "/api/requests/approve", admin, map[string]any{"requestId": pending[0].ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Issued history shows the closed record; availability is back.
	resp = h.do("GET", "/api/issued", admin, nil)
	issued := decodeBody[[]map[string]any](t, resp)
	require.Len(t, issued, 1)
	assert.NotEmpty(t, issued[0]["return_date"])

	resp = h.do("GET", "/api/books", admin, nil)
	books := decodeBody[[]library.Book](t, resp)
	require.Len(t, books, 1)
	assert.Equal(t, 1, books[0].Available)

	// My-requests shows both resolved requests.
	resp = h.do("GET", "/api/myrequests", student, nil)
	requests := decodeBody[[]library.Request](t, resp)
	assert.Len(t, requests, 2)
	for _, r := range requests {
		assert.Equal(t, library.StatusApproved, r.Status)
	}
}

func TestRequestReturn_NothingBorrowed(t *testing.T) {
	h := newHarness(t)
	admin := h.signup("admin", library.RoleAdmin)
	student := h.signup("student1", library.RoleStudent)

	resp := h.do("POST", "/api/books", admin, map[string]any{
		"title": "Dune", "author": "Frank Herbert",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = h.do("POST", "/api/request-return", student, map[string]any{"bookId": 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestResolveRequest_ErrorStatuses(t *testing.T) {
	h := newHarness(t)
	admin := h.signup("admin", library.RoleAdmin)
	student := h.signup("student1", library.RoleStudent)

	resp := h.do("POST", "/api/books", admin, map[string]any{
		"title": "Dune", "author": "Frank Herbert", "available": 1,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Unknown request id: 404.
	resp = h.do("POST", "/api/requests/approve", admin, map[string]any{"requestId": 42})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
	resp = h.do("POST", "/api/requests/reject", admin, map[string]any{"requestId": 42})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Resolve a request twice: second attempt conflicts.
	resp = h.do("POST", "/api/request-borrow", student, map[string]any{"bookId": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = h.do("POST", "/api/requests/reject", admin, map[string]any{"requestId": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = h.do("POST", "/api/requests/approve", admin, map[string]any{"requestId": 1})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Rejection left the book untouched.
	resp = h.do("GET", "/api/books", admin, nil)
	books := decodeBody[[]library.Book](t, resp)
	require.Len(t, books, 1)
	assert.Equal(t, 1, books[0].Available)
}

func TestApprove_SecondBorrowOfLastCopyFails(t *testing.T) {
	h := newHarness(t)
	admin := h.signup("admin", library.RoleAdmin)
	s1 := h.signup("student1", library.RoleStudent)
	s2 := h.signup("student2", library.RoleStudent)

	resp := h.do("POST", "/api/books", admin, map[string]any{
		"title": "Dune", "author": "Frank Herbert", "available": 1,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	for _, token := range []string{s1, s2} {
		resp = h.do("POST", "/api/request-borrow", token, map[string]any{"bookId": 1})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	resp = h.do("POST", "/api/requests/approve", admin, map[string]any{"requestId": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = h.do("POST", "/api/requests/approve", admin, map[string]any{"requestId": 2})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody[map[string]any](t, resp)
	assert.Contains(t, fmt.Sprint(body["error"]), "no copies")
}
