package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTextLogger(level slog.Level) (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(NewTextHandler(buf, &slog.HandlerOptions{Level: level})), buf
}

func TestTextHandler_Format(t *testing.T) {
	buf := &bytes.Buffer{}
	h := NewTextHandler(buf, nil)
	r := slog.NewRecord(time.Date(2024, 1, 19, 10, 30, 0, 0, time.UTC), slog.LevelInfo, "server started", 0)
	r.AddAttrs(slog.Int("port", 5000))

	require.NoError(t, h.Handle(context.Background(), r))
	assert.Equal(t, "2024-01-19T10:30:00Z: [INFO] server started port=5000\n", buf.String())
}

func TestTextHandler_Levels(t *testing.T) {
	logger, buf := newTextLogger(slog.LevelWarn)
	logger.Info("hidden")
	logger.Warn("shown")
	logger.Error("also shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown")
	assert.Contains(t, out, "[ERROR] also shown")
}

func TestTextHandler_Values(t *testing.T) {
	logger, buf := newTextLogger(slog.LevelDebug)
	logger.Info("values",
		"s", "plain",
		"q", "two words",
		"empty", "",
		"eq", "a=b",
		"i", -3,
		"u", uint64(7),
		"f", 12.5,
		"b", true,
		"d", 1500*time.Millisecond,
		"err", errors.New("boom now"),
	)

	out := buf.String()
	for _, want := range []string{
		" s=plain", ` q="two words"`, ` empty=""`, ` eq="a=b"`, " i=-3", " u=7",
		" f=12.5", " b=true", " d=1.5s", ` err="boom now"`,
	} {
		assert.Contains(t, out, want)
	}
}

func TestTextHandler_AttrsAndGroups(t *testing.T) {
	logger, buf := newTextLogger(slog.LevelInfo)
	logger.With("request_id", "r1").WithGroup("aggregate").With("name", "avg").Info("done",
		"count", 3,
		slog.Group("parent", "id", "b1"),
	)

	line := strings.TrimSpace(buf.String())
	assert.True(t, strings.HasSuffix(line, "[INFO] done request_id=r1 aggregate.name=avg aggregate.count=3 aggregate.parent.id=b1"), line)
}

func TestTextHandler_EmptyGroupIsIgnored(t *testing.T) {
	logger, buf := newTextLogger(slog.LevelInfo)
	logger.WithGroup("").Info("msg", "k", "v", slog.Group("none"))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(buf.String()), "msg k=v"))
}

func TestTextHandler_ConcurrentWrites(t *testing.T) {
	logger, buf := newTextLogger(slog.LevelInfo)
	child := logger.With("worker", 1)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				logger.Info("parent", "i", i)
			} else {
				child.Info("child", "i", i)
			}
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 20)
}
