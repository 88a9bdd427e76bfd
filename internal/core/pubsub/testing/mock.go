// Package testing provides in-memory fakes of the pubsub interfaces.
package testing

import (
	"context"
	"sync"
	"time"

	"github.com/devcamper/catalog/internal/core/pubsub"
)

// PublishedMessage is a message recorded by MockPublisher.
type PublishedMessage struct {
	Subject string
	Data    []byte
}

// MockPublisher records published messages. Published, when non-nil,
// receives every recorded message as it arrives.
type MockPublisher struct {
	mu       sync.Mutex
	messages []PublishedMessage
	err      error
	closed   bool

	Published chan PublishedMessage
}

// NewMockPublisher creates a MockPublisher with a buffered Published channel.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{Published: make(chan PublishedMessage, 256)}
}

func (m *MockPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	m.mu.Lock()
	if m.err != nil {
		err := m.err
		m.mu.Unlock()
		return err
	}
	msg := PublishedMessage{Subject: subject, Data: append([]byte(nil), data...)}
	m.messages = append(m.messages, msg)
	m.mu.Unlock()

	if m.Published != nil {
		select {
		case m.Published <- msg:
		default:
		}
	}
	return nil
}

func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Messages returns a copy of everything published so far.
func (m *MockPublisher) Messages() []PublishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PublishedMessage(nil), m.messages...)
}

// SetError makes subsequent Publish calls fail with err.
func (m *MockPublisher) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockPublisher) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Settlement is how a MockMessage was finished.
type Settlement int

const (
	Pending Settlement = iota
	Acked
	Naked
	Termed
)

func (s Settlement) String() string {
	switch s {
	case Acked:
		return "acked"
	case Naked:
		return "naked"
	case Termed:
		return "termed"
	default:
		return "pending"
	}
}

// MockMessage records how it was settled. Done is closed on the first
// Ack, Nak, NakWithDelay or Term.
type MockMessage struct {
	mu       sync.Mutex
	data     []byte
	subject  string
	metadata pubsub.MessageMetadata
	state    Settlement
	nakDelay time.Duration
	once     sync.Once

	Done chan struct{}
}

// NewMockMessage creates a first delivery of data on subject.
func NewMockMessage(subject string, data []byte) *MockMessage {
	return &MockMessage{
		subject: subject,
		data:    data,
		metadata: pubsub.MessageMetadata{
			NumDelivered: 1,
			Timestamp:    time.Now(),
			Subject:      subject,
		},
		Done: make(chan struct{}),
	}
}

func (m *MockMessage) Data() []byte    { return m.data }
func (m *MockMessage) Subject() string { return m.subject }

func (m *MockMessage) settle(s Settlement, delay time.Duration) error {
	m.mu.Lock()
	m.state = s
	m.nakDelay = delay
	m.mu.Unlock()
	m.once.Do(func() { close(m.Done) })
	return nil
}

func (m *MockMessage) Ack() error  { return m.settle(Acked, 0) }
func (m *MockMessage) Nak() error  { return m.settle(Naked, 0) }
func (m *MockMessage) Term() error { return m.settle(Termed, 0) }

func (m *MockMessage) NakWithDelay(delay time.Duration) error {
	return m.settle(Naked, delay)
}

func (m *MockMessage) Metadata() (pubsub.MessageMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metadata, nil
}

// SetDelivered overrides the delivery count reported by Metadata.
func (m *MockMessage) SetDelivered(n uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata.NumDelivered = n
}

// State returns the last settlement.
func (m *MockMessage) State() Settlement {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// NakDelay returns the delay passed to NakWithDelay.
func (m *MockMessage) NakDelay() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nakDelay
}

// Wait blocks until the message is settled or timeout elapses.
func (m *MockMessage) Wait(timeout time.Duration) bool {
	select {
	case <-m.Done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// MockConsumer delivers messages pushed with Send.
type MockConsumer struct {
	mu    sync.Mutex
	msgCh chan pubsub.Message
	err   error
}

func NewMockConsumer() *MockConsumer {
	return &MockConsumer{}
}

// Subscribe returns a channel that is closed when ctx is done.
func (c *MockConsumer) Subscribe(ctx context.Context) (<-chan pubsub.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}

	ch := make(chan pubsub.Message, 100)
	c.msgCh = ch
	go func() {
		<-ctx.Done()
		c.mu.Lock()
		if c.msgCh == ch {
			c.msgCh = nil
		}
		close(ch)
		c.mu.Unlock()
	}()
	return ch, nil
}

// Send pushes msg to the active subscription. It reports false when there is none.
func (c *MockConsumer) Send(msg pubsub.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.msgCh == nil {
		return false
	}
	c.msgCh <- msg
	return true
}

// SetError makes Subscribe fail with err.
func (c *MockConsumer) SetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// MockProvider hands out a fixed publisher and consumer.
type MockProvider struct {
	mu        sync.Mutex
	Publisher *MockPublisher
	Consumer  *MockConsumer
	closed    bool
	pubOpts   []pubsub.PublisherOptions
	consOpts  []pubsub.ConsumerOptions
}

func NewMockProvider() *MockProvider {
	return &MockProvider{
		Publisher: NewMockPublisher(),
		Consumer:  NewMockConsumer(),
	}
}

func (p *MockProvider) NewPublisher(opts pubsub.PublisherOptions) (pubsub.Publisher, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pubOpts = append(p.pubOpts, opts)
	return p.Publisher, nil
}

func (p *MockProvider) NewConsumer(opts pubsub.ConsumerOptions) (pubsub.Consumer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.consOpts = append(p.consOpts, opts)
	return p.Consumer, nil
}

func (p *MockProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *MockProvider) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// PublisherOpts returns every PublisherOptions passed to NewPublisher.
func (p *MockProvider) PublisherOpts() []pubsub.PublisherOptions {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]pubsub.PublisherOptions(nil), p.pubOpts...)
}

// ConsumerOpts returns every ConsumerOptions passed to NewConsumer.
func (p *MockProvider) ConsumerOpts() []pubsub.ConsumerOptions {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]pubsub.ConsumerOptions(nil), p.consOpts...)
}
