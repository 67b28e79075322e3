package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrResult    = "result"
	attrTool      = "tool"
)

// Metrics provides methods for recording observability metrics.
// A zero Metrics is a valid no-op recorder.
type Metrics struct {
	// HTTP metrics (auth server)
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Spotify Web API metrics
	spotifyRequestsTotal   metric.Int64Counter
	spotifyRequestDuration metric.Float64Histogram

	// OAuth flow metrics
	oauthLoginsTotal    metric.Int64Counter
	oauthCallbacksTotal metric.Int64Counter
	tokenFetchesTotal   metric.Int64Counter

	// MCP tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram
}

// NewMetrics creates a new Metrics instance with all instruments initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests served by the auth server"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.spotifyRequestsTotal, err = meter.Int64Counter(
		"spotify_api_requests_total",
		metric.WithDescription("Total number of Spotify Web API requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create spotify_api_requests_total counter: %w", err)
	}

	m.spotifyRequestDuration, err = meter.Float64Histogram(
		"spotify_api_request_duration_seconds",
		metric.WithDescription("Spotify Web API request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create spotify_api_request_duration_seconds histogram: %w", err)
	}

	m.oauthLoginsTotal, err = meter.Int64Counter(
		"oauth_logins_total",
		metric.WithDescription("Total number of OAuth login redirects issued"),
		metric.WithUnit("{login}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_logins_total counter: %w", err)
	}

	m.oauthCallbacksTotal, err = meter.Int64Counter(
		"oauth_callbacks_total",
		metric.WithDescription("Total number of OAuth callbacks by result"),
		metric.WithUnit("{callback}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_callbacks_total counter: %w", err)
	}

	m.tokenFetchesTotal, err = meter.Int64Counter(
		"session_token_fetches_total",
		metric.WithDescription("Total number of session token lookups by result"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session_token_fetches_total counter: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
// The path is normalized to keep label cardinality bounded.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, NormalizePath(path)),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordSpotifyAPIRequest records one Spotify Web API call.
//
// Parameters:
//   - operation: one of the Operation* constants (profile, user_id, currently_playing, playlists)
//   - status: StatusSuccess, StatusNoContent or StatusError
//   - duration: time taken for the call
func (m *Metrics) RecordSpotifyAPIRequest(ctx context.Context, operation, status string, duration time.Duration) {
	if m == nil || m.spotifyRequestsTotal == nil || m.spotifyRequestDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.spotifyRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.spotifyRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordOAuthLogin records a /login redirect.
func (m *Metrics) RecordOAuthLogin(ctx context.Context) {
	if m == nil || m.oauthLoginsTotal == nil {
		return
	}
	m.oauthLoginsTotal.Add(ctx, 1)
}

// RecordOAuthCallback records a /callback outcome.
// Result should be one of the OAuthResult* constants.
func (m *Metrics) RecordOAuthCallback(ctx context.Context, result string) {
	if m == nil || m.oauthCallbacksTotal == nil {
		return
	}
	m.oauthCallbacksTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordTokenFetch records a session token lookup. Result is TokenResultFound or TokenResultMissing.
func (m *Metrics) RecordTokenFetch(ctx context.Context, result string) {
	if m == nil || m.tokenFetchesTotal == nil {
		return
	}
	m.tokenFetchesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
