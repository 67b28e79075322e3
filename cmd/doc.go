// Package cmd implements the command-line interface for spotify-mcp.
//
// This package provides the following commands:
//   - serve: Start the authorization server and the MCP server
//   - auth-server: Start only the authorization server
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//
// Spotify credentials come from flags or the SPOTIFY_CLIENT_ID and
// SPOTIFY_CLIENT_SECRET environment variables, which may be set in a .env file.
package cmd
