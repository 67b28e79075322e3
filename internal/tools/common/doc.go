// Package common provides shared helpers for MCP tool implementations:
// the instrumentation wrapper every tool handler goes through and the
// result builders for text and JSON payloads.
package common
