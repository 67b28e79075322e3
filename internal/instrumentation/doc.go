// Package instrumentation provides OpenTelemetry instrumentation for the
// spotify-mcp server.
//
// # Metrics
//
// Auth server HTTP:
//   - http_requests_total: Counter of requests by method, normalized path and status
//   - http_request_duration_seconds: Histogram of request durations
//
// Spotify Web API:
//   - spotify_api_requests_total: Counter by operation and status (success, no_content, error)
//   - spotify_api_request_duration_seconds: Histogram of upstream call durations
//
// OAuth:
//   - oauth_logins_total: Counter of /login redirects
//   - oauth_callbacks_total: Counter of /callback outcomes (success, state_mismatch, exchange_failed)
//   - session_token_fetches_total: Counter of tool-side token lookups (found, missing)
//
// MCP tools:
//   - mcp_tool_invocations_total: Counter by tool and status
//   - mcp_tool_duration_seconds: Histogram of tool execution durations
//
// Paths are normalized through NormalizePath so unknown URLs collapse into a
// single "other" label.
//
// # Tracing
//
// Spans are created for MCP tool invocations (tool.<name>) and Spotify Web API
// calls (spotify.<operation>).
//
// # Configuration
//
// DefaultConfig reads:
//   - INSTRUMENTATION_ENABLED (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
//   - OTEL_TRACES_SAMPLER_ARG (default: 0.1)
//   - OTEL_SERVICE_NAME (default: spotify-mcp)
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_TRACE_IDS
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	metrics := provider.Metrics()
//	metrics.RecordSpotifyAPIRequest(ctx, instrumentation.OperationProfile, instrumentation.StatusSuccess, time.Since(start))
//	metrics.RecordToolInvocation(ctx, "get-my-spotify-profile", instrumentation.StatusSuccess, time.Since(start))
package instrumentation
