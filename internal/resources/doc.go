// Package resources provides MCP resources describing server state.
// Resources are read-only data sources that MCP clients can fetch alongside
// tool calls.
//
// The spotify://session resource reports whether a user has logged in with
// Spotify and where to log in otherwise.
package resources
