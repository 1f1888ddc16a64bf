package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-chat-backend/internal/config"
)

func TestHelpersAreNilSafe(t *testing.T) {
	prev := Logger
	Logger = nil
	defer func() { Logger = prev }()

	assert.NotPanics(t, func() {
		Info("info")
		Warn("warn")
		Error("error")
		Debug("debug")
	})
}

func TestHelpersWriteJSON(t *testing.T) {
	prev := Logger
	defer func() { Logger = prev }()

	var buf bytes.Buffer
	Logger = New(&buf, slog.LevelInfo, false)

	Debug("hidden")
	Info("document indexed", "document_id", "doc-1", "chunks", 4)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "document indexed", entry["msg"])
	assert.Equal(t, "doc-1", entry["document_id"])
	assert.EqualValues(t, 4, entry["chunks"])
}

func TestInitLoggerDebugMode(t *testing.T) {
	prev := Logger
	defer func() { Logger = prev }()

	InitLogger(&config.Config{GinMode: "debug"})
	require.NotNil(t, Logger)
	assert.True(t, Logger.Enabled(context.Background(), slog.LevelDebug))

	InitLogger(&config.Config{GinMode: "release"})
	assert.False(t, Logger.Enabled(context.Background(), slog.LevelDebug))
}
