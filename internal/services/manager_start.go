package services

import (
	"context"
	"fmt"
)

// Start launches the worker and the HTTP server in the background. The
// server is only started once the worker has subscribed, so no task
// published by a request is lost. Failures after launch are reported on
// Errors.
func (m *Manager) Start(ctx context.Context) {
	if m.worker != nil {
		workerCtx, cancel := context.WithCancel(context.Background())
		m.cancelWorker = cancel
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if err := m.worker.Start(workerCtx); err != nil {
				m.report(fmt.Errorf("aggregate worker: %w", err))
			}
		}()
		select {
		case <-m.worker.Ready():
		case <-ctx.Done():
			return
		}
	}

	if m.server != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if err := m.server.Start(ctx); err != nil {
				m.report(fmt.Errorf("http server: %w", err))
			}
		}()
	}
}

func (m *Manager) report(err error) {
	m.logger.Error("Background component failed", "error", err)
	select {
	case m.errCh <- err:
	default:
	}
}
