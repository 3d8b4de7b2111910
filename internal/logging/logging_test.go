package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/meteora/internal/logging"
)

func TestNew(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		logging.New(logging.WithWriter(&buf)).Info("hello", "key", "value")
		assert.Contains(t, buf.String(), "hello")
		assert.Contains(t, buf.String(), "key=value")
	})

	t.Run("debug level", func(t *testing.T) {
		var buf bytes.Buffer
		logging.New(logging.WithWriter(&buf), logging.WithDebug(true)).Debug("debug msg")
		assert.Contains(t, buf.String(), "debug msg")
	})

	t.Run("debug filtered by default", func(t *testing.T) {
		var buf bytes.Buffer
		logging.New(logging.WithWriter(&buf)).Debug("hidden")
		assert.Empty(t, buf.String())
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logging.New(logging.WithWriter(&buf), logging.WithJSON(true)).Info("structured", "count", 42)

		var parsed map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
		assert.Equal(t, "structured", parsed["msg"])
		assert.EqualValues(t, 42, parsed["count"])
	})

	t.Run("pretty", func(t *testing.T) {
		var buf bytes.Buffer
		logging.New(logging.WithWriter(&buf), logging.WithPretty(true)).Info("pretty output")
		assert.Contains(t, buf.String(), "pretty output")
	})

	t.Run("several writers", func(t *testing.T) {
		var a, b bytes.Buffer
		logging.New(logging.WithWriters(&a, &b)).Info("multi")
		assert.Contains(t, a.String(), "multi")
		assert.Contains(t, b.String(), "multi")
	})
}

func TestNop(t *testing.T) {
	l := logging.Nop()
	assert.False(t, l.Handler().Enabled(context.Background(), slog.LevelError))
	assert.NotPanics(t, func() {
		l.With("k", "v").WithGroup("g").Info("msg")
	})
}

func TestMulti(t *testing.T) {
	var text, js bytes.Buffer
	l := logging.Multi(
		logging.New(logging.WithWriter(&text)),
		logging.New(logging.WithWriter(&js), logging.WithJSON(true)),
	)
	l.WithGroup("request").Info("processed", "method", "GET")

	assert.Contains(t, text.String(), "request.method=GET")

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &parsed))
	group, ok := parsed["request"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "GET", group["method"])
}
