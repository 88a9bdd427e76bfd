// Package rest exposes the catalog over JSON/HTTP under /api/v1.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/devcamper/catalog/internal/aggregate"
	"github.com/devcamper/catalog/internal/catalog"
	"github.com/devcamper/catalog/internal/identity"
	"github.com/devcamper/catalog/internal/server"
	"github.com/devcamper/catalog/internal/server/ratelimit"
	"github.com/devcamper/catalog/pkg/model"
)

// Default body size limits
const (
	DefaultMaxBodySize = 1 << 20 // 1MB
)

// Default request timeouts
const (
	DefaultRequestTimeout = 30 * time.Second
	LongRequestTimeout    = 5 * time.Minute // backfill walks every parent
)

// Error codes
const (
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)

// APIError represents a structured error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool     `json:"success"`
	Error   APIError `json:"error"`
}

// Response is the body of a successful single-record request.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// Dependencies are the services a Handler serves.
type Dependencies struct {
	Bootcamps *catalog.BootcampService
	Courses   *catalog.ChildService
	Reviews   *catalog.ChildService
	Users     *catalog.UserService
	Tokens    *identity.TokenService

	// Aggregates is optional. Without it child writes do not refresh the
	// derived bootcamp fields and the admin aggregate routes return 404.
	Aggregates *aggregate.Synchronizer

	// AuthLimiter throttles register and login when set.
	AuthLimiter ratelimit.Limiter
}

type Handler struct {
	bootcamps  *catalog.BootcampService
	courses    child
	reviews    child
	users      *catalog.UserService
	tokens     *identity.TokenService
	aggregates *aggregate.Synchronizer
	guard      *identity.Guard
	limiter    ratelimit.Limiter
}

// child pairs a child service with the aggregate callbacks of its collection.
type child struct {
	svc   *catalog.ChildService
	hooks aggregate.Hooks
}

func NewHandler(deps Dependencies) (*Handler, error) {
	if deps.Bootcamps == nil || deps.Courses == nil || deps.Reviews == nil || deps.Users == nil {
		return nil, errors.New("rest: catalog services are required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("rest: token service is required")
	}

	h := &Handler{
		bootcamps:  deps.Bootcamps,
		courses:    child{svc: deps.Courses},
		reviews:    child{svc: deps.Reviews},
		users:      deps.Users,
		tokens:     deps.Tokens,
		aggregates: deps.Aggregates,
		limiter:    deps.AuthLimiter,
	}
	if deps.Aggregates != nil {
		h.courses.hooks = deps.Aggregates.Hooks(deps.Courses.Kind().Collection)
		h.reviews.hooks = deps.Aggregates.Hooks(deps.Reviews.Kind().Collection)
	}
	h.guard = identity.NewGuard(deps.Tokens, deps.Users, writeServiceError)
	return h, nil
}

// writeError writes a structured JSON error response
func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, ErrorResponse{Error: APIError{Code: code, Message: message}})
}

// writeInternalError writes a 500, or 499 when the client went away first.
func writeInternalError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if model.IsCanceled(err) {
		w.WriteHeader(499) // Client Closed Request
		return
	}
	slog.Error(message, "error", err, "request_id", server.GetRequestID(r.Context()))
	writeError(w, http.StatusInternalServerError, ErrCodeInternalError, message)
}

// writeServiceError maps a service error onto a status code.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidInput), errors.Is(err, model.ErrImmutableField):
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, model.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, unauthenticatedMessage(err))
	case errors.Is(err, model.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case errors.Is(err, model.ErrParentNotFound), errors.Is(err, model.ErrNotFound), errors.Is(err, aggregate.ErrUnknownAggregate):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, model.ErrExists):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	default:
		writeInternalError(w, r, err, "Internal server error")
	}
}

// unauthenticatedMessage hides token parsing details.
func unauthenticatedMessage(err error) string {
	if errors.Is(err, identity.ErrInvalidToken) {
		return model.ErrUnauthenticated.Error()
	}
	return err.Error()
}

// writeJSON writes a JSON response with proper error handling
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("Failed to encode JSON response", "error", err)
	}
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, Response{Success: true, Data: data})
}

// decodeBody decodes a JSON request body into dst, writing the error
// response itself on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, ErrCodeRequestTooLarge, "Request body too large")
	case errors.Is(err, io.EOF):
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Request body is required")
	default:
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body")
	}
	return false
}

// decodeDocument decodes a JSON object body.
func decodeDocument(w http.ResponseWriter, r *http.Request) (model.Document, bool) {
	var doc model.Document
	if !decodeBody(w, r, &doc) {
		return nil, false
	}
	if doc == nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Request body must be a JSON object")
		return nil, false
	}
	return doc, true
}

// maxBodySize wraps a handler with request body size limiting
func maxBodySize(next http.HandlerFunc, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}
		next(w, r)
	}
}

// withTimeout wraps a handler with a context timeout
func withTimeout(next http.HandlerFunc, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		next(w, r.WithContext(ctx))
	}
}

// rateLimited applies the auth limiter, keyed by client IP.
func (h *Handler) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	if h.limiter == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.limiter.Allow(ratelimit.GetClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, ErrCodeRateLimited, "Too many requests")
			return
		}
		next(w, r)
	}
}

// protected requires a bearer token and, when roles are given, one of them.
func (h *Handler) protected(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	if len(roles) > 0 {
		next = h.guard.Authorize(roles...)(next)
	}
	return h.guard.Protect(next)
}

// pathID reads a record id from the named path wildcard. Values that cannot
// be an id get a 404 without a store lookup.
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := r.PathValue(name)
	if !model.CheckDocumentID(id) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Resource not found")
		return "", false
	}
	return id, true
}

// actor returns the authenticated caller. Routes reaching it are protected.
func actor(r *http.Request) identity.Actor {
	a, _ := identity.ActorFrom(r.Context())
	return a
}
