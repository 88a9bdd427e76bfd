package rest

import (
	"net/http"
	"time"

	"github.com/devcamper/catalog/internal/identity"
)

var (
	publishers = []string{identity.RolePublisher, identity.RoleAdmin}
	reviewers  = []string{identity.RoleUser, identity.RoleAdmin}
)

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// read returns a public GET handler; write a protected, body-limited one.
	read := func(next http.HandlerFunc) http.HandlerFunc {
		return withTimeout(next, DefaultRequestTimeout)
	}
	write := func(next http.HandlerFunc, roles ...string) http.HandlerFunc {
		return withTimeout(maxBodySize(h.protected(next, roles...), DefaultMaxBodySize), DefaultRequestTimeout)
	}

	// Bootcamps
	mux.HandleFunc("GET /api/v1/bootcamps", read(h.handleListBootcamps))
	mux.HandleFunc("POST /api/v1/bootcamps", write(h.handleCreateBootcamp, publishers...))
	mux.HandleFunc("GET /api/v1/bootcamps/{id}", read(h.handleGetBootcamp))
	mux.HandleFunc("PUT /api/v1/bootcamps/{id}", write(h.handleUpdateBootcamp, publishers...))
	mux.HandleFunc("DELETE /api/v1/bootcamps/{id}", write(h.handleDeleteBootcamp, publishers...))

	// Courses
	mux.HandleFunc("GET /api/v1/bootcamps/{bootcampId}/courses", read(h.handleListChildren(h.courses)))
	mux.HandleFunc("POST /api/v1/bootcamps/{bootcampId}/courses", write(h.handleCreateChild(h.courses), publishers...))
	mux.HandleFunc("GET /api/v1/courses", read(h.handleListChildren(h.courses)))
	mux.HandleFunc("GET /api/v1/courses/{id}", read(h.handleGetChild(h.courses)))
	mux.HandleFunc("PUT /api/v1/courses/{id}", write(h.handleUpdateChild(h.courses), publishers...))
	mux.HandleFunc("DELETE /api/v1/courses/{id}", write(h.handleDeleteChild(h.courses), publishers...))

	// Reviews
	mux.HandleFunc("GET /api/v1/bootcamps/{bootcampId}/reviews", read(h.handleListChildren(h.reviews)))
	mux.HandleFunc("POST /api/v1/bootcamps/{bootcampId}/reviews", write(h.handleCreateChild(h.reviews), reviewers...))
	mux.HandleFunc("GET /api/v1/reviews", read(h.handleListChildren(h.reviews)))
	mux.HandleFunc("GET /api/v1/reviews/{id}", read(h.handleGetChild(h.reviews)))
	mux.HandleFunc("PUT /api/v1/reviews/{id}", write(h.handleUpdateChild(h.reviews), reviewers...))
	mux.HandleFunc("DELETE /api/v1/reviews/{id}", write(h.handleDeleteChild(h.reviews), reviewers...))

	// Auth
	mux.HandleFunc("POST /api/v1/auth/register", withTimeout(maxBodySize(h.rateLimited(h.handleRegister), DefaultMaxBodySize), DefaultRequestTimeout))
	mux.HandleFunc("POST /api/v1/auth/login", withTimeout(maxBodySize(h.rateLimited(h.handleLogin), DefaultMaxBodySize), DefaultRequestTimeout))
	mux.HandleFunc("GET /api/v1/auth/me", write(h.handleMe))
	mux.HandleFunc("PUT /api/v1/auth/updatedetails", write(h.handleUpdateDetails))
	mux.HandleFunc("PUT /api/v1/auth/updatepassword", write(h.handleUpdatePassword))

	// Users (admin)
	mux.HandleFunc("GET /api/v1/users", write(h.handleListUsers, identity.RoleAdmin))
	mux.HandleFunc("POST /api/v1/users", write(h.handleCreateUser, identity.RoleAdmin))
	mux.HandleFunc("GET /api/v1/users/{id}", write(h.handleGetUser, identity.RoleAdmin))
	mux.HandleFunc("PUT /api/v1/users/{id}", write(h.handleUpdateUser, identity.RoleAdmin))
	mux.HandleFunc("DELETE /api/v1/users/{id}", write(h.handleDeleteUser, identity.RoleAdmin))
	mux.HandleFunc("GET /api/v1/whoami/{id}", write(h.handleWhoAmI, identity.RoleAdmin))

	// Aggregates (admin)
	mux.HandleFunc("GET /api/v1/admin/aggregates", write(h.handleListAggregates, identity.RoleAdmin))
	mux.HandleFunc("POST /api/v1/admin/aggregates/{name}", withTimeout(h.protected(h.handleBackfill, identity.RoleAdmin), LongRequestTimeout))
	mux.HandleFunc("POST /api/v1/admin/aggregates/{name}/{parentId}", write(h.handleRecompute, identity.RoleAdmin))

	// Health Check (no auth, minimal timeout)
	mux.HandleFunc("GET /health", withTimeout(h.handleHealth, 5*time.Second))
}
