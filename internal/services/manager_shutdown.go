package services

import (
	"context"

	"github.com/devcamper/catalog/internal/logging"
)

// Shutdown stops accepting requests, lets pending aggregate triggers reach
// the queue, drains the worker and then closes the queue and the store.
// It is safe to call after a failed Init.
func (m *Manager) Shutdown(ctx context.Context) {
	logger := m.logger
	if logger == nil {
		return
	}

	if m.server != nil {
		if err := m.server.Stop(ctx); err != nil {
			logger.Error("Error stopping HTTP server", "error", err)
		}
	}

	if m.syncer != nil && !m.syncer.Wait(ctx) {
		logger.Warn("Timeout waiting for aggregate triggers")
	}

	if m.cancelWorker != nil {
		m.cancelWorker()
	}

	logger.Info("Waiting for background tasks to finish...")
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Info("Background tasks finished")
	case <-ctx.Done():
		logger.Warn("Timeout waiting for background tasks")
	}

	if m.publisher != nil {
		if err := m.publisher.Close(); err != nil {
			logger.Error("Error closing aggregate publisher", "error", err)
		}
	}
	if m.provider != nil {
		if err := m.provider.Close(); err != nil {
			logger.Error("Error closing pubsub provider", "error", err)
		}
	}
	if m.store != nil {
		if err := m.store.Close(ctx); err != nil {
			logger.Error("Error closing storage", "error", err)
		}
	}

	if !m.opts.SkipLogging {
		_ = logging.Shutdown()
	}
}
