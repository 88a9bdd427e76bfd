// Package mongo implements the catalog DocumentStore on MongoDB.
package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/devcamper/catalog/internal/storage/config"
	"github.com/devcamper/catalog/internal/storage/types"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connect dials MongoDB, verifies the connection with a ping and returns a
// DocumentStore bound to cfg.DatabaseName. Closing the store disconnects the client.
func Connect(ctx context.Context, cfg config.MongoConfig) (types.DocumentStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	// Nested objects decode as maps so they render as JSON objects.
	clientOpts := options.Client().
		ApplyURI(cfg.URI).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	slog.Info("Connected to MongoDB", "database", cfg.DatabaseName)
	return NewDocumentStore(client, client.Database(cfg.DatabaseName)), nil
}
