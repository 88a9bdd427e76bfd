package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/devcamper/catalog/internal/core/pubsub"
)

type broker struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	closed        atomic.Bool
}

func newBroker() *broker {
	return &broker{subscriptions: make(map[string]*subscription)}
}

func (b *broker) publish(ctx context.Context, subject string, data []byte) error {
	if b.closed.Load() {
		return ErrEngineClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for pattern, sub := range b.subscriptions {
		if matchSubject(pattern, subject) {
			sub.enqueue(&memoryMessage{
				data:         append([]byte(nil), data...),
				subject:      subject,
				timestamp:    time.Now(),
				numDelivered: 1,
				sub:          sub,
			})
		}
	}
	return nil
}

func (b *broker) subscribe(pattern string, opts pubsub.ConsumerOptions) (*subscription, error) {
	if b.closed.Load() {
		return nil, ErrEngineClosed
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscriptions[pattern] != nil {
		return nil, ErrPatternSubscribed
	}

	sub := &subscription{
		maxDeliver: opts.MaxDeliver,
		wake:       make(chan struct{}, 1),
		out:        make(chan pubsub.Message, opts.ChannelBufSize),
		done:       make(chan struct{}),
	}
	b.subscriptions[pattern] = sub
	go sub.run()
	return sub, nil
}

func (b *broker) unsubscribe(pattern string, sub *subscription) {
	b.mu.Lock()
	if b.subscriptions[pattern] == sub {
		delete(b.subscriptions, pattern)
	}
	b.mu.Unlock()
	sub.stop()
}

func (b *broker) close() error {
	if b.closed.Swap(true) {
		return nil
	}

	b.mu.Lock()
	subs := b.subscriptions
	b.subscriptions = map[string]*subscription{}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
	return nil
}

// subscription owns a FIFO of pending messages and a goroutine that feeds
// them into out. Only run closes out, so late redeliveries never panic.
type subscription struct {
	maxDeliver int

	mu      sync.Mutex
	queue   []*memoryMessage
	wake    chan struct{}
	out     chan pubsub.Message
	done    chan struct{}
	stopped sync.Once
}

func (s *subscription) enqueue(m *memoryMessage) {
	select {
	case <-s.done:
		return
	default:
	}
	s.mu.Lock()
	s.queue = append(s.queue, m)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscription) stop() {
	s.stopped.Do(func() { close(s.done) })
}

func (s *subscription) isStopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *subscription) next() *memoryMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil
	}
	m := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	return m
}

func (s *subscription) run() {
	defer close(s.out)
	for {
		m := s.next()
		if m == nil {
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		select {
		case s.out <- m:
		case <-s.done:
			return
		}
	}
}
