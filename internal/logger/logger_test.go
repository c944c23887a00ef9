package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMultiHandler_DispatchesByLevel(t *testing.T) {
	var debugBuf, warnBuf bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	log := slog.New(h)

	log.Debug("frame decoded", "session.id", "abc")
	log.Warn("detector slow", "elapsed", "4s")

	assert.Contains(t, debugBuf.String(), "frame decoded")
	assert.Contains(t, debugBuf.String(), "detector slow")
	assert.NotContains(t, warnBuf.String(), "frame decoded")
	assert.Contains(t, warnBuf.String(), "detector slow")
}

func TestMultiHandler_Enabled(t *testing.T) {
	h := NewMultiHandler(
		slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestMultiHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	h := NewMultiHandler(slog.NewTextHandler(&buf, nil))
	log := slog.New(h).With("user.id", "u-1").WithGroup("challenge")

	log.Info("evaluated", "target", 3)

	out := buf.String()
	assert.Contains(t, out, "user.id=u-1")
	assert.Contains(t, out, "challenge.target=3")
}
