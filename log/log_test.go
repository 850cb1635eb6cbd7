package log_test

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brensch/uploader/log"
)

func newLogger(buf *bytes.Buffer, level slog.Level) *slog.Logger {
	color.NoColor = true
	h := log.NewUTCPrettyHandler(buf, log.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{Level: level},
	})
	return slog.New(h)
}

func TestPrettyHandlerWritesAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, slog.LevelDebug)

	logger.With("message_id", "m1").Info("upload finished", "error", errors.New("boom"), "count", 2)

	line := buf.String()
	assert.Contains(t, line, "INFO")
	assert.Contains(t, line, "upload finished")
	assert.Contains(t, line, `"message_id":"m1"`)
	assert.Contains(t, line, `"error":"boom"`)
	assert.Contains(t, line, `"count":2`)
	assert.Contains(t, line, "+0000 UTC]")
}

func TestPrettyHandlerGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, slog.LevelDebug)

	logger.WithGroup("imgbb").Info("posted", "status", 200)

	assert.Contains(t, buf.String(), `"imgbb.status":200`)
}

func TestPrettyHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, slog.LevelWarn)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestParseLevel(t *testing.T) {
	level, err := log.ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = log.ParseLevel("loud")
	assert.Error(t, err)
}
