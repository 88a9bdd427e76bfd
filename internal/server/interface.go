package server

import (
	"context"
	"net/http"
)

// Service is the HTTP front of the process.
type Service interface {
	// Start listens and serves until ctx is canceled or the listener fails.
	Start(ctx context.Context) error

	// Stop drains active connections, giving up when ctx expires.
	Stop(ctx context.Context) error

	// RegisterHTTPHandler registers a handler for pattern. Call before Start.
	RegisterHTTPHandler(pattern string, handler http.Handler)

	// HTTPMux returns the underlying mux for direct route registration.
	HTTPMux() *http.ServeMux

	// Addr returns the bound listen address once Start has begun serving.
	Addr() string
}
