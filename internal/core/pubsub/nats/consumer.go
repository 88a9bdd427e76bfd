package nats

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/devcamper/catalog/internal/core/pubsub"
	"github.com/nats-io/nats.go/jetstream"
)

type jetStreamConsumer struct {
	js   JetStream
	opts pubsub.ConsumerOptions
}

// NewConsumer creates a durable, explicitly acked consumer.
func NewConsumer(js JetStream, opts pubsub.ConsumerOptions) (pubsub.Consumer, error) {
	if js == nil {
		return nil, fmt.Errorf("jetstream cannot be nil")
	}
	if opts.StreamName == "" {
		return nil, fmt.Errorf("stream name is required")
	}
	defaults := pubsub.DefaultConsumerOptions()
	if opts.ChannelBufSize <= 0 {
		opts.ChannelBufSize = defaults.ChannelBufSize
	}
	if opts.AckWait <= 0 {
		opts.AckWait = defaults.AckWait
	}
	if opts.ConsumerName == "" {
		opts.ConsumerName = "consumer"
	}
	return &jetStreamConsumer{js: js, opts: opts}, nil
}

func (c *jetStreamConsumer) Subscribe(ctx context.Context) (<-chan pubsub.Message, error) {
	filter := c.opts.Subjects()
	if err := ensureStream(ctx, c.js, c.opts.StreamName, []string{filter}, c.opts.Storage); err != nil {
		return nil, err
	}

	consumer, err := c.js.CreateOrUpdateConsumer(ctx, c.opts.StreamName, jetstream.ConsumerConfig{
		Durable:       c.opts.ConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		FilterSubject: filter,
		MaxDeliver:    c.opts.MaxDeliver,
		AckWait:       c.opts.AckWait,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	msgCh := make(chan pubsub.Message, c.opts.ChannelBufSize)

	// The handler sends under a read lock; the closer takes the write lock,
	// so msgCh is never closed while a send is in flight.
	var (
		mu     sync.RWMutex
		closed bool
	)
	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		mu.RLock()
		defer mu.RUnlock()
		if closed {
			_ = msg.Nak()
			return
		}
		select {
		case msgCh <- WrapMessage(msg):
		case <-ctx.Done():
			_ = msg.Nak()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start consumer: %w", err)
	}
	slog.Info("Consumer subscribed", "stream", c.opts.StreamName, "consumer", c.opts.ConsumerName, "filter", filter)

	go func() {
		<-ctx.Done()
		cc.Stop()
		mu.Lock()
		closed = true
		close(msgCh)
		mu.Unlock()
		slog.Info("Consumer stopped", "stream", c.opts.StreamName, "consumer", c.opts.ConsumerName)
	}()

	return msgCh, nil
}
