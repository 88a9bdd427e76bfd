package nats

import (
	"time"

	"github.com/devcamper/catalog/internal/core/pubsub"
	"github.com/nats-io/nats.go/jetstream"
)

type natsMessage struct {
	msg jetstream.Msg
}

// WrapMessage adapts a jetstream.Msg to pubsub.Message.
func WrapMessage(msg jetstream.Msg) pubsub.Message {
	return &natsMessage{msg: msg}
}

func (m *natsMessage) Data() []byte                           { return m.msg.Data() }
func (m *natsMessage) Subject() string                        { return m.msg.Subject() }
func (m *natsMessage) Ack() error                             { return m.msg.Ack() }
func (m *natsMessage) Nak() error                             { return m.msg.Nak() }
func (m *natsMessage) NakWithDelay(delay time.Duration) error { return m.msg.NakWithDelay(delay) }
func (m *natsMessage) Term() error                            { return m.msg.Term() }

func (m *natsMessage) Metadata() (pubsub.MessageMetadata, error) {
	md, err := m.msg.Metadata()
	if err != nil {
		return pubsub.MessageMetadata{}, err
	}
	return pubsub.MessageMetadata{
		NumDelivered: md.NumDelivered,
		Timestamp:    md.Timestamp,
		Subject:      m.msg.Subject(),
		Stream:       md.Stream,
		Consumer:     md.Consumer,
	}, nil
}
