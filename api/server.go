/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend development

ROUTE GROUPS:
  /signup, /login        Public
  /whoami                Any logged-in caller
  /api/*                 Role-gated library operations

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/warp/library-engine/library"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// Public auth routes
	r.Post("/signup", h.Signup)
	r.Post("/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(h.requireLogin)
		r.Get("/whoami", h.Whoami)
	})

	// Library API
	r.Route("/api", func(r chi.Router) {
		r.Use(h.requireLogin)

		// Any logged-in caller
		r.Get("/books", h.ListBooks)

		// Student routes
		r.Group(func(r chi.Router) {
			r.Use(h.requireRole(library.RoleStudent))
			r.Get("/mybooks", h.MyBooks)
			r.Get("/myrequests", h.MyRequests)
			r.Post("/request-borrow", h.RequestBorrow)
			r.Post("/request-return", h.RequestReturn)
		})

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(h.requireRole(library.RoleAdmin))
			r.Post("/books", h.AddBook)
			r.Delete("/books/{id}", h.RemoveBook)
			r.Get("/requests", h.PendingRequests)
			r.Get("/issued", h.IssuedRecords)
			r.Post("/requests/approve", h.ApproveRequest)
			r.Post("/requests/reject", h.RejectRequest)
		})
	})

	return r
}
