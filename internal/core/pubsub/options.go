package pubsub

import "time"

// StorageType defines the storage backend for streams.
type StorageType int

const (
	// MemoryStorage keeps stream data in memory (default).
	MemoryStorage StorageType = iota
	// FileStorage persists stream data on disk.
	FileStorage
)

// ParseStorageType maps "file" to FileStorage and anything else to MemoryStorage.
func ParseStorageType(s string) StorageType {
	if s == "file" {
		return FileStorage
	}
	return MemoryStorage
}

// PublisherOptions configures publisher behavior.
type PublisherOptions struct {
	// StreamName is the stream the publisher writes to.
	StreamName string

	// SubjectPrefix is prepended to every subject.
	SubjectPrefix string

	// RetryAttempts is the number of broker-level publish retries. 0 disables retry.
	RetryAttempts int

	Storage StorageType
}

// ConsumerOptions configures consumer behavior.
type ConsumerOptions struct {
	StreamName string

	// ConsumerName is the durable consumer name.
	ConsumerName string

	// FilterSubject selects the subjects to consume. Defaults to "<stream>.>".
	FilterSubject string

	// ChannelBufSize is the buffer size of the delivery channel.
	ChannelBufSize int

	// MaxDeliver caps deliveries per message. 0 means unlimited.
	MaxDeliver int

	// AckWait is how long the broker waits for an ack before redelivering.
	AckWait time.Duration

	Storage StorageType
}

// DefaultConsumerOptions returns ConsumerOptions with sensible defaults.
func DefaultConsumerOptions() ConsumerOptions {
	return ConsumerOptions{
		ChannelBufSize: 100,
		AckWait:        30 * time.Second,
	}
}

// Subjects returns the subject filter for opts, defaulting to the whole stream.
func (o ConsumerOptions) Subjects() string {
	if o.FilterSubject != "" {
		return o.FilterSubject
	}
	if o.StreamName != "" {
		return o.StreamName + ".>"
	}
	return ">"
}
