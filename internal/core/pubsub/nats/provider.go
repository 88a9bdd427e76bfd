package nats

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/devcamper/catalog/internal/core/pubsub"
	"github.com/nats-io/nats.go"
)

// Compile-time checks
var (
	_ pubsub.Provider    = (*Provider)(nil)
	_ pubsub.Connectable = (*Provider)(nil)
)

// Provider owns one NATS connection and hands out JetStream publishers and
// consumers on it.
type Provider struct {
	url string

	// injectable for testing
	connect      func(url string, opts ...nats.Option) (*nats.Conn, error)
	newJetStream func(nc *nats.Conn) (JetStream, error)

	mu sync.Mutex
	nc *nats.Conn
	js JetStream
}

// NewProvider creates an unconnected provider for url.
func NewProvider(url string) *Provider {
	return &Provider{
		url:          url,
		connect:      nats.Connect,
		newJetStream: NewJetStream,
	}
}

// Connect dials NATS and initializes JetStream.
func (p *Provider) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	nc, err := p.connect(p.url, nats.Name("catalog"), nats.MaxReconnects(-1))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", p.url, err)
	}

	js, err := p.newJetStream(nc)
	if err != nil {
		if nc != nil {
			nc.Close()
		}
		return fmt.Errorf("failed to create JetStream: %w", err)
	}

	p.mu.Lock()
	p.nc, p.js = nc, js
	p.mu.Unlock()

	slog.Info("Connected to NATS", "url", p.url)
	return nil
}

func (p *Provider) jetStream() (JetStream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.js == nil {
		return nil, fmt.Errorf("NATS not connected, call Connect first")
	}
	return p.js, nil
}

func (p *Provider) NewPublisher(opts pubsub.PublisherOptions) (pubsub.Publisher, error) {
	js, err := p.jetStream()
	if err != nil {
		return nil, err
	}
	return NewPublisher(context.Background(), js, opts)
}

func (p *Provider) NewConsumer(opts pubsub.ConsumerOptions) (pubsub.Consumer, error) {
	js, err := p.jetStream()
	if err != nil {
		return nil, err
	}
	return NewConsumer(js, opts)
}

// Close closes the connection. Consumers must be stopped first.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.nc != nil {
		slog.Info("Closing NATS connection")
		p.nc.Close()
	}
	p.nc, p.js = nil, nil
	return nil
}
