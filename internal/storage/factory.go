// Package storage selects and opens the configured DocumentStore backend.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/devcamper/catalog/internal/storage/config"
	"github.com/devcamper/catalog/internal/storage/memory"
	"github.com/devcamper/catalog/internal/storage/mongo"
	"github.com/devcamper/catalog/internal/storage/types"
)

// NewDocumentStore opens the backend named by cfg.Backend and creates the
// given indexes on it.
func NewDocumentStore(ctx context.Context, cfg config.Config, indexes []types.Index) (types.DocumentStore, error) {
	var (
		store types.DocumentStore
		err   error
	)
	switch cfg.Backend {
	case config.BackendMemory:
		store = memory.New()
	case config.BackendMongo:
		store, err = mongo.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported storage backend: %q", cfg.Backend)
	}

	if err := store.EnsureIndexes(ctx, indexes); err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}
	slog.Info("Document store ready", "backend", cfg.Backend, "indexes", len(indexes))
	return store, nil
}
