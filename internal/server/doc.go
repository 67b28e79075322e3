// Package server wires the HTTP side of spotify-mcp.
//
// AuthHTTPServer hosts the Spotify login flow (/login, /callback) and the
// loopback /token endpoint the MCP tools read from, plus health endpoints.
// /login and /callback are rate limited per client IP, every request is
// counted in the http_requests_total metric, and plain http is only accepted
// for loopback redirect URIs.
//
// MetricsServer exposes Prometheus metrics on a separate port.
//
// ServerContext carries what tool handlers need: the token fetcher, the
// Spotify client, and optional metrics and audit logging.
package server
