package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestColorHandler(t *testing.T) {
	// Color codes would make the assertions depend on the terminal.
	color.NoColor = true

	var buf bytes.Buffer
	log := slog.New(NewColorHandler(&buf, slog.LevelInfo))

	t.Run("renders message and attrs", func(t *testing.T) {
		buf.Reset()
		log.Info("server started", "port", 8080)
		out := buf.String()
		assert.Contains(t, out, "INFO")
		assert.Contains(t, out, "server started")
		assert.Contains(t, out, "port=8080")
	})

	t.Run("respects the level floor", func(t *testing.T) {
		buf.Reset()
		log.Debug("hidden")
		assert.Empty(t, buf.String())
	})

	t.Run("percent signs in messages are literal", func(t *testing.T) {
		buf.Reset()
		log.Info("loaded 50% of batch")
		assert.Contains(t, buf.String(), "loaded 50% of batch")
	})

	t.Run("with attrs", func(t *testing.T) {
		buf.Reset()
		log.With("request_id", "r1").Warn("slow query")
		out := buf.String()
		assert.Contains(t, out, "WARN")
		assert.Contains(t, out, "request_id=r1")
	})

	t.Run("group prefixes keys", func(t *testing.T) {
		buf.Reset()
		log.WithGroup("db").Info("query done", "ms", 250)
		assert.Contains(t, buf.String(), "db.ms=250")
	})
}
