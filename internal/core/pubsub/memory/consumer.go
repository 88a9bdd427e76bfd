package memory

import (
	"context"

	"github.com/devcamper/catalog/internal/core/pubsub"
)

type memoryConsumer struct {
	broker *broker
	opts   pubsub.ConsumerOptions
}

// Subscribe registers the consumer's subject filter. Each pattern may have a
// single active subscriber; the registration is released when ctx ends.
func (c *memoryConsumer) Subscribe(ctx context.Context) (<-chan pubsub.Message, error) {
	pattern := c.opts.Subjects()
	sub, err := c.broker.subscribe(pattern, c.opts)
	if err != nil {
		return nil, err
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-sub.done:
		}
		c.broker.unsubscribe(pattern, sub)
	}()

	return sub.out, nil
}
