// Package logging provides structured logging utilities for spotify-mcp.
//
// All logging goes through log/slog. NewHandler selects between the standard
// JSON and text handlers and a colourised console handler backed by
// charmbracelet/log. Output defaults to stderr.
//
// # Usage Patterns
//
//	logger := logging.WithOperation(slog.Default(), "profile")
//	logger.Info("User Profile", logging.UserHash(user.ID))
//
// # Security Considerations
//
//   - Access and refresh tokens are only logged through SanitizeToken
//   - Spotify user ids are hashed with UserHash
package logging
