// Package pubsub abstracts the task queue between write paths and
// background workers.
package pubsub

import (
	"context"
	"time"
)

// Message is a received message with acknowledgment controls.
type Message interface {
	// Data returns the raw payload.
	Data() []byte

	// Subject returns the subject the message was published on.
	Subject() string

	// Ack acknowledges successful processing.
	Ack() error

	// Nak requests immediate redelivery.
	Nak() error

	// NakWithDelay requests redelivery after delay.
	NakWithDelay(delay time.Duration) error

	// Term drops the message without redelivery.
	Term() error

	// Metadata returns delivery information.
	Metadata() (MessageMetadata, error)
}

// MessageMetadata contains delivery information about a message.
type MessageMetadata struct {
	NumDelivered uint64
	Timestamp    time.Time
	Subject      string
	Stream       string
	Consumer     string
}

// Publisher publishes messages to a stream.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Close() error
}

// Consumer consumes messages from a stream.
type Consumer interface {
	// Subscribe starts consuming and returns a channel that is closed when
	// ctx is cancelled. The caller must Ack, Nak or Term every message.
	Subscribe(ctx context.Context) (<-chan Message, error)
}
