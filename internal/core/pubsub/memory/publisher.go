package memory

import (
	"context"
	"sync/atomic"

	"github.com/devcamper/catalog/internal/core/pubsub"
)

type memoryPublisher struct {
	broker *broker
	opts   pubsub.PublisherOptions
	closed atomic.Bool
}

func (p *memoryPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if p.closed.Load() {
		return ErrEngineClosed
	}
	if p.opts.SubjectPrefix != "" {
		subject = p.opts.SubjectPrefix + "." + subject
	}
	return p.broker.publish(ctx, subject, data)
}

func (p *memoryPublisher) Close() error {
	p.closed.Store(true)
	return nil
}
