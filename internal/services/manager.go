// Package services assembles the catalog process: storage, the aggregate
// task queue, the domain services and the HTTP server.
package services

import (
	"context"
	"log/slog"
	"sync"

	"github.com/devcamper/catalog/internal/aggregate"
	"github.com/devcamper/catalog/internal/config"
	"github.com/devcamper/catalog/internal/core/pubsub"
	"github.com/devcamper/catalog/internal/server"
	"github.com/devcamper/catalog/internal/storage/types"
)

// Options selects the roles this process runs.
type Options struct {
	// RunAPI serves the REST API.
	RunAPI bool
	// RunWorker consumes aggregate tasks. Without it, and with the in-memory
	// provider, child writes recompute inline instead of queueing.
	RunWorker bool
	// ListenHost overrides server.host when set.
	ListenHost string
	// SkipLogging leaves the global logger alone.
	SkipLogging bool
}

// Manager owns every long-lived component of the process.
type Manager struct {
	cfg    *config.Config
	opts   Options
	logger *slog.Logger

	store     types.DocumentStore
	provider  pubsub.Provider
	publisher pubsub.Publisher
	syncer    *aggregate.Synchronizer
	worker    *aggregate.Worker
	server    server.Service

	cancelWorker context.CancelFunc
	errCh        chan error
	wg           sync.WaitGroup
}

func NewManager(cfg *config.Config, opts Options) *Manager {
	return &Manager{
		cfg:   cfg,
		opts:  opts,
		errCh: make(chan error, 2),
	}
}

// Errors reports fatal errors from background components after Start.
func (m *Manager) Errors() <-chan error {
	return m.errCh
}

// Addr returns the address the HTTP server listens on, or "" before it
// is listening.
func (m *Manager) Addr() string {
	if m.server == nil {
		return ""
	}
	return m.server.Addr()
}

// Synchronizer returns the aggregate synchronizer, nil before Init.
func (m *Manager) Synchronizer() *aggregate.Synchronizer {
	return m.syncer
}
