package nats

import (
	"context"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/mock"
)

type mockJetStream struct {
	mock.Mock
}

func (m *mockJetStream) CreateOrUpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	args := m.Called(ctx, cfg)
	s, _ := args.Get(0).(jetstream.Stream)
	return s, args.Error(1)
}

func (m *mockJetStream) CreateOrUpdateConsumer(ctx context.Context, stream string, cfg jetstream.ConsumerConfig) (jetstream.Consumer, error) {
	args := m.Called(ctx, stream, cfg)
	c, _ := args.Get(0).(jetstream.Consumer)
	return c, args.Error(1)
}

func (m *mockJetStream) Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	args := m.Called(ctx, subject, data, len(opts))
	ack, _ := args.Get(0).(*jetstream.PubAck)
	return ack, args.Error(1)
}

// mockConsumer hands the registered handler to the test through handlers.
type mockConsumer struct {
	jetstream.Consumer
	cc       *mockConsumeContext
	err      error
	handlers chan jetstream.MessageHandler
}

func newMockConsumer() *mockConsumer {
	return &mockConsumer{
		cc:       &mockConsumeContext{stopped: make(chan struct{})},
		handlers: make(chan jetstream.MessageHandler, 1),
	}
}

func (m *mockConsumer) Consume(handler jetstream.MessageHandler, _ ...jetstream.PullConsumeOpt) (jetstream.ConsumeContext, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.handlers <- handler
	return m.cc, nil
}

type mockConsumeContext struct {
	jetstream.ConsumeContext
	stopped chan struct{}
}

func (m *mockConsumeContext) Stop() {
	select {
	case <-m.stopped:
	default:
		close(m.stopped)
	}
}

type mockMsg struct {
	jetstream.Msg
	mock.Mock
	subject string
	data    []byte
}

func (m *mockMsg) Data() []byte    { return m.data }
func (m *mockMsg) Subject() string { return m.subject }

func (m *mockMsg) Ack() error  { return m.Called().Error(0) }
func (m *mockMsg) Nak() error  { return m.Called().Error(0) }
func (m *mockMsg) Term() error { return m.Called().Error(0) }

func (m *mockMsg) NakWithDelay(d time.Duration) error { return m.Called(d).Error(0) }

func (m *mockMsg) Metadata() (*jetstream.MsgMetadata, error) {
	args := m.Called()
	md, _ := args.Get(0).(*jetstream.MsgMetadata)
	return md, args.Error(1)
}
