package nats

import (
	"context"
	"fmt"

	"github.com/devcamper/catalog/internal/core/pubsub"
	"github.com/nats-io/nats.go/jetstream"
)

type jetStreamPublisher struct {
	js   JetStream
	opts pubsub.PublisherOptions
}

// NewPublisher creates a Publisher and makes sure its stream exists. The
// stream captures "<prefix>.>" when a prefix is set, "<stream>.>" otherwise.
func NewPublisher(ctx context.Context, js JetStream, opts pubsub.PublisherOptions) (pubsub.Publisher, error) {
	if js == nil {
		return nil, fmt.Errorf("jetstream cannot be nil")
	}

	if opts.StreamName != "" {
		root := opts.StreamName
		if opts.SubjectPrefix != "" {
			root = opts.SubjectPrefix
		}
		if err := ensureStream(ctx, js, opts.StreamName, []string{root + ".>"}, opts.Storage); err != nil {
			return nil, err
		}
	}

	return &jetStreamPublisher{js: js, opts: opts}, nil
}

func (p *jetStreamPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if p.opts.SubjectPrefix != "" {
		subject = p.opts.SubjectPrefix + "." + subject
	}

	var publishOpts []jetstream.PublishOpt
	if p.opts.RetryAttempts > 0 {
		publishOpts = append(publishOpts, jetstream.WithRetryAttempts(p.opts.RetryAttempts))
	}

	if _, err := p.js.Publish(ctx, subject, data, publishOpts...); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Close is a no-op; the provider owns the connection.
func (p *jetStreamPublisher) Close() error {
	return nil
}
