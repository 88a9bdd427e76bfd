package nats

import (
	"context"
	"fmt"

	"github.com/devcamper/catalog/internal/core/pubsub"
	"github.com/nats-io/nats.go/jetstream"
)

func ensureStream(ctx context.Context, js JetStream, name string, subjects []string, storage pubsub.StorageType) error {
	st := jetstream.MemoryStorage
	if storage == pubsub.FileStorage {
		st = jetstream.FileStorage
	}
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     name,
		Subjects: subjects,
		Storage:  st,
	})
	if err != nil {
		return fmt.Errorf("failed to ensure stream %s: %w", name, err)
	}
	return nil
}
