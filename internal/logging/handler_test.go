package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(FormatJSON, slog.LevelInfo, &buf)
	require.NoError(t, err)

	logger.Info("User Profile", Operation("profile"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "User Profile", rec["msg"])
	assert.Equal(t, "profile", rec[KeyOperation])
}

func TestNewHandler_TextDefault(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger("", slog.LevelInfo, &buf)
	require.NoError(t, err)

	logger.Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestNewHandler_Pretty(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(FormatPretty, slog.LevelInfo, &buf)
	require.NoError(t, err)

	logger.Info("No track currently playing.")
	logger.Debug("hidden")

	assert.Contains(t, buf.String(), "No track currently playing.")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(FormatJSON, slog.LevelWarn, &buf)
	require.NoError(t, err)

	logger.Info("dropped")
	assert.Zero(t, buf.Len())
}

func TestNewHandler_Unsupported(t *testing.T) {
	_, err := NewHandler("xml", slog.LevelInfo, nil)
	assert.Error(t, err)
}

func TestCharmLevel(t *testing.T) {
	assert.Equal(t, "debug", charmLevel(slog.LevelDebug).String())
	assert.Equal(t, "info", charmLevel(slog.LevelInfo).String())
	assert.Equal(t, "warn", charmLevel(slog.LevelWarn).String())
	assert.Equal(t, "error", charmLevel(slog.LevelError).String())
}
