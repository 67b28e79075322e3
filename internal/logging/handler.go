package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

// Supported log formats.
const (
	FormatJSON   = "json"
	FormatText   = "text"
	FormatPretty = "pretty"
)

// NewHandler returns a slog.Handler writing to w in the given format.
// The writer defaults to os.Stderr since stdout carries the stdio MCP transport.
func NewHandler(format string, level slog.Level, w io.Writer) (slog.Handler, error) {
	if w == nil {
		w = os.Stderr
	}

	switch strings.ToLower(format) {
	case "", FormatText:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}), nil
	case FormatJSON:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}), nil
	case FormatPretty:
		logger := charmlog.NewWithOptions(w, charmlog.Options{
			ReportTimestamp: true,
			Level:           charmLevel(level),
		})
		return logger, nil
	default:
		return nil, fmt.Errorf("unsupported log format %q (expected %s, %s or %s)", format, FormatJSON, FormatText, FormatPretty)
	}
}

// NewLogger is NewHandler wrapped in a *slog.Logger.
func NewLogger(format string, level slog.Level, w io.Writer) (*slog.Logger, error) {
	h, err := NewHandler(format, level, w)
	if err != nil {
		return nil, err
	}
	return slog.New(h), nil
}

func charmLevel(level slog.Level) charmlog.Level {
	switch {
	case level <= slog.LevelDebug:
		return charmlog.DebugLevel
	case level <= slog.LevelInfo:
		return charmlog.InfoLevel
	case level <= slog.LevelWarn:
		return charmlog.WarnLevel
	default:
		return charmlog.ErrorLevel
	}
}
