package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, Level("debug", slog.LevelInfo))
	assert.Equal(t, slog.LevelWarn, Level("warning", slog.LevelInfo))
	assert.Equal(t, slog.LevelError, Level("prod", slog.LevelInfo))
	assert.Equal(t, slog.LevelInfo, Level("", slog.LevelInfo))
	assert.Equal(t, slog.LevelError, Level("loud", slog.LevelError))
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelInfo, true)
	log.Debug("hidden")
	log.Info("room created", "room", "R")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "room created", rec["msg"])
	assert.Equal(t, "R", rec["room"])
}
