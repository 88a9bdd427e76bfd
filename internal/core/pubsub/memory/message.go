package memory

import (
	"sync"
	"time"

	"github.com/devcamper/catalog/internal/core/pubsub"
)

// memoryMessage is one delivery. A redelivery is a fresh memoryMessage with
// the delivery count bumped, so settling one delivery never races another.
type memoryMessage struct {
	data         []byte
	subject      string
	timestamp    time.Time
	numDelivered uint64
	sub          *subscription

	mu      sync.Mutex
	settled bool
}

func (m *memoryMessage) Data() []byte    { return m.data }
func (m *memoryMessage) Subject() string { return m.subject }

// settle marks the delivery as handled and reports whether this call did it.
func (m *memoryMessage) settle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settled {
		return false
	}
	m.settled = true
	return true
}

func (m *memoryMessage) Ack() error {
	m.settle()
	return nil
}

func (m *memoryMessage) Term() error {
	m.settle()
	return nil
}

func (m *memoryMessage) Nak() error {
	if m.settle() {
		m.redeliver()
	}
	return nil
}

func (m *memoryMessage) NakWithDelay(delay time.Duration) error {
	if !m.settle() {
		return nil
	}
	if delay <= 0 {
		m.redeliver()
		return nil
	}
	time.AfterFunc(delay, m.redeliver)
	return nil
}

// redeliver requeues the message unless the subscription is gone or the
// delivery cap is reached.
func (m *memoryMessage) redeliver() {
	if m.sub.isStopped() {
		return
	}
	if m.sub.maxDeliver > 0 && m.numDelivered >= uint64(m.sub.maxDeliver) {
		return
	}
	m.sub.enqueue(&memoryMessage{
		data:         m.data,
		subject:      m.subject,
		timestamp:    m.timestamp,
		numDelivered: m.numDelivered + 1,
		sub:          m.sub,
	})
}

func (m *memoryMessage) Metadata() (pubsub.MessageMetadata, error) {
	return pubsub.MessageMetadata{
		NumDelivered: m.numDelivered,
		Timestamp:    m.timestamp,
		Subject:      m.subject,
	}, nil
}
