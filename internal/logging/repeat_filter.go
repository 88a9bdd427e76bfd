package logging

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// maxTracked bounds the number of distinct records remembered. Entries older
// than the window are pruned once it is reached.
const maxTracked = 4096

// RepeatFilter drops a record identical to one passed within the window.
// Identity is level, message and every attribute, including those added with
// WithAttrs; the timestamp is ignored. The first record after the window
// carries a "repeated" attribute with the number dropped in between.
type RepeatFilter struct {
	handler slog.Handler
	window  time.Duration
	state   *repeatState
	scope   uint64 // hash of WithAttrs/WithGroup calls
}

type repeatState struct {
	mu   sync.Mutex
	seen map[uint64]*repeatEntry
}

type repeatEntry struct {
	last    time.Time
	dropped int
}

func NewRepeatFilter(handler slog.Handler, window time.Duration) *RepeatFilter {
	return &RepeatFilter{
		handler: handler,
		window:  window,
		state:   &repeatState{seen: make(map[uint64]*repeatEntry)},
	}
}

func (h *RepeatFilter) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *RepeatFilter) Handle(ctx context.Context, r slog.Record) error {
	at := r.Time
	if at.IsZero() {
		at = time.Now()
	}
	key := h.key(r)

	h.state.mu.Lock()
	e, ok := h.state.seen[key]
	if ok && at.Sub(e.last) < h.window {
		e.dropped++
		h.state.mu.Unlock()
		return nil
	}
	dropped := 0
	if ok {
		dropped = e.dropped
		e.last, e.dropped = at, 0
	} else {
		h.state.prune(at, h.window)
		h.state.seen[key] = &repeatEntry{last: at}
	}
	h.state.mu.Unlock()

	if dropped > 0 {
		r = r.Clone()
		r.AddAttrs(slog.Int("repeated", dropped))
	}
	return h.handler.Handle(ctx, r)
}

func (h *RepeatFilter) WithAttrs(attrs []slog.Attr) slog.Handler {
	d := xxhash.New()
	writeUint(d, h.scope)
	for _, a := range attrs {
		writeAttr(d, a)
	}
	return &RepeatFilter{handler: h.handler.WithAttrs(attrs), window: h.window, state: h.state, scope: d.Sum64()}
}

func (h *RepeatFilter) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	d := xxhash.New()
	writeUint(d, h.scope)
	_, _ = d.WriteString("group:" + name)
	return &RepeatFilter{handler: h.handler.WithGroup(name), window: h.window, state: h.state, scope: d.Sum64()}
}

func (h *RepeatFilter) key(r slog.Record) uint64 {
	d := xxhash.New()
	writeUint(d, h.scope)
	_, _ = d.WriteString(r.Level.String())
	_, _ = d.WriteString("\x00" + r.Message)
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(d, a)
		return true
	})
	return d.Sum64()
}

// prune drops expired entries once the map is full. Caller holds mu.
func (s *repeatState) prune(now time.Time, window time.Duration) {
	if len(s.seen) < maxTracked {
		return
	}
	for k, e := range s.seen {
		if now.Sub(e.last) >= window {
			delete(s.seen, k)
		}
	}
}

func writeAttr(d *xxhash.Digest, a slog.Attr) {
	v := a.Value.Resolve()
	_, _ = d.WriteString("\x00" + a.Key + "=")
	if v.Kind() == slog.KindGroup {
		for _, ga := range v.Group() {
			writeAttr(d, ga)
		}
		return
	}
	_, _ = d.WriteString(v.String())
}

func writeUint(d *xxhash.Digest, n uint64) {
	_, _ = d.WriteString(strconv.FormatUint(n, 16))
}
