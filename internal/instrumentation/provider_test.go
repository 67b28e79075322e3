package instrumentation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func testConfig(metricsExporter, tracingExporter string) Config {
	return Config{
		ServiceName:     "spotify-mcp-test",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: metricsExporter,
		TracingExporter: tracingExporter,
	}
}

// restoreGlobals resets the global otel providers NewProvider installs.
func restoreGlobals(t *testing.T) {
	t.Helper()
	mp, tp := otel.GetMeterProvider(), otel.GetTracerProvider()
	t.Cleanup(func() {
		otel.SetMeterProvider(mp)
		otel.SetTracerProvider(tp)
	})
}

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{ServiceName: "spotify-mcp-test"})
	require.NoError(t, err)

	assert.False(t, provider.Enabled())
	assert.NotNil(t, provider.Metrics(), "disabled provider still returns a recorder")
	assert.Nil(t, provider.MetricsHandler())
	assert.NoError(t, provider.Shutdown(context.Background()))

	// The no-op recorder accepts calls.
	provider.Metrics().RecordToolInvocation(context.Background(), "get-my-spotify-id", StatusSuccess, time.Millisecond)
}

func TestNewProvider_Exporters(t *testing.T) {
	tests := []struct {
		name            string
		config          Config
		wantPrometheus  bool
		wantMetricsPath string
	}{
		{
			name:            "prometheus",
			config:          testConfig(ExporterPrometheus, ExporterNone),
			wantPrometheus:  true,
			wantMetricsPath: "/metrics",
		},
		{
			name:            "default metrics exporter",
			config:          testConfig("", ""),
			wantPrometheus:  true,
			wantMetricsPath: "/metrics",
		},
		{
			name:            "stdout",
			config:          testConfig(ExporterStdout, ExporterStdout),
			wantPrometheus:  false,
			wantMetricsPath: "/metrics",
		},
		{
			name: "custom metrics path",
			config: func() Config {
				c := testConfig(ExporterPrometheus, ExporterNone)
				c.PrometheusEndpoint = "/internal/metrics"
				return c
			}(),
			wantPrometheus:  true,
			wantMetricsPath: "/internal/metrics",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restoreGlobals(t)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			provider, err := NewProvider(ctx, tt.config)
			require.NoError(t, err)
			defer func() { _ = provider.Shutdown(ctx) }()

			assert.True(t, provider.Enabled())
			assert.NotNil(t, provider.Metrics())
			assert.Equal(t, tt.wantPrometheus, provider.MetricsHandler() != nil)
			assert.Equal(t, tt.wantMetricsPath, provider.MetricsPath())
		})
	}
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{name: "unknown metrics exporter", config: testConfig("invalid", ExporterNone)},
		{name: "unknown tracing exporter", config: testConfig(ExporterPrometheus, "invalid")},
		{name: "otlp tracing without endpoint", config: testConfig(ExporterPrometheus, ExporterOTLP)},
		{name: "otlp metrics without endpoint", config: testConfig(ExporterOTLP, ExporterNone)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restoreGlobals(t)
			_, err := NewProvider(context.Background(), tt.config)
			assert.Error(t, err)
		})
	}
}

func TestProvider_MetricsHandlerServesRecordedMetrics(t *testing.T) {
	restoreGlobals(t)
	ctx := context.Background()

	provider, err := NewProvider(ctx, testConfig(ExporterPrometheus, ExporterNone))
	require.NoError(t, err)
	defer func() { _ = provider.Shutdown(ctx) }()

	provider.Metrics().RecordOAuthLogin(ctx)

	rec := httptest.NewRecorder()
	provider.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "oauth_logins")
}
