package ratelimit

import (
	"sync"
	"time"
)

// memoryLimiter is a per-key token bucket held in process memory.
type memoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
	config  Config
	now     func() time.Time

	cleanupT *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
}

type tokenBucket struct {
	tokens     float64
	lastUpdate time.Time
}

// NewMemoryLimiter creates a limiter whose stale buckets are dropped every
// two windows.
func NewMemoryLimiter(cfg Config) Limiter {
	l := &memoryLimiter{
		buckets:  make(map[string]*tokenBucket),
		config:   cfg,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		cleanupT: time.NewTicker(cleanupInterval(cfg.Window)),
	}
	go l.cleanup()
	return l
}

func cleanupInterval(window time.Duration) time.Duration {
	if window <= 0 {
		return time.Minute
	}
	return window * 2
}

func (l *memoryLimiter) Allow(key string) bool {
	if !l.config.Enabled {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	capacity := float64(l.config.Requests)

	b, ok := l.buckets[key]
	if !ok {
		l.buckets[key] = &tokenBucket{tokens: capacity - 1, lastUpdate: now}
		return capacity >= 1
	}

	rate := capacity / l.config.Window.Seconds()
	b.tokens = min(capacity, b.tokens+now.Sub(b.lastUpdate).Seconds()*rate)
	b.lastUpdate = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (l *memoryLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

func (l *memoryLimiter) cleanup() {
	for {
		select {
		case <-l.cleanupT.C:
			l.cleanupStale()
		case <-l.stopCh:
			l.cleanupT.Stop()
			return
		}
	}
}

// cleanupStale drops buckets idle for two windows; they would be full again.
func (l *memoryLimiter) cleanupStale() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, b := range l.buckets {
		if now.Sub(b.lastUpdate) > l.config.Window*2 {
			delete(l.buckets, key)
		}
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (l *memoryLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

// Stoppable is a Limiter owning a background goroutine.
type Stoppable interface {
	Limiter
	Stop()
}

var _ Stoppable = (*memoryLimiter)(nil)
