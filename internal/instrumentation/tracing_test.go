package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// installRecorder swaps the global tracer provider for one backed by a span
// recorder and restores the previous provider when the test ends.
func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = tp.Shutdown(context.Background())
	})

	return recorder
}

func TestSpanAttributeBuilder(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithTool("get-my-spotify-profile").
		WithOperation(OperationProfile).
		WithHTTPStatus(200).
		WithInvocationID("abc").
		Build()

	if len(attrs) != 4 {
		t.Fatalf("expected 4 attributes, got %d", len(attrs))
	}

	attrMap := make(map[string]interface{})
	for _, attr := range attrs {
		attrMap[string(attr.Key)] = attr.Value.AsInterface()
	}

	if attrMap[SpanAttrTool] != "get-my-spotify-profile" {
		t.Errorf("expected tool 'get-my-spotify-profile', got %v", attrMap[SpanAttrTool])
	}
	if attrMap[SpanAttrOperation] != OperationProfile {
		t.Errorf("expected operation %q, got %v", OperationProfile, attrMap[SpanAttrOperation])
	}
	if attrMap[SpanAttrHTTPStatus] != int64(200) {
		t.Errorf("expected status 200, got %v", attrMap[SpanAttrHTTPStatus])
	}
	if attrMap[SpanAttrInvocationID] != "abc" {
		t.Errorf("expected invocation id 'abc', got %v", attrMap[SpanAttrInvocationID])
	}
}

func TestSpanAttributeBuilder_EmptyValues(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithTool("test_tool").
		WithHTTPStatus(0).
		WithInvocationID("").
		Build()

	if len(attrs) != 1 {
		t.Errorf("expected 1 attribute (only tool), got %d", len(attrs))
	}
}

func TestStartToolSpan(t *testing.T) {
	recorder := installRecorder(t)

	ctx, span := StartToolSpan(context.Background(), "get-currently-playing")
	if GetTraceID(ctx) == "" {
		t.Error("expected a trace ID inside the tool span")
	}
	if GetSpanID(ctx) == "" {
		t.Error("expected a span ID inside the tool span")
	}
	SetSpanSuccess(span)
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 ended span, got %d", len(ended))
	}
	if ended[0].Name() != "tool.get-currently-playing" {
		t.Errorf("unexpected span name %q", ended[0].Name())
	}
	if ended[0].Status().Code != codes.Ok {
		t.Errorf("expected OK status, got %v", ended[0].Status().Code)
	}
}

func TestStartSpotifySpan(t *testing.T) {
	recorder := installRecorder(t)

	_, span := StartSpotifySpan(context.Background(), OperationPlaylists)
	SetSpanError(span, errors.New("upstream failed"))
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 ended span, got %d", len(ended))
	}
	if ended[0].Name() != "spotify.playlists" {
		t.Errorf("unexpected span name %q", ended[0].Name())
	}
	if ended[0].Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", ended[0].Status().Code)
	}
}

func TestSetSpanError_Nil(t *testing.T) {
	recorder := installRecorder(t)

	_, span := StartSpan(context.Background(), "test-span")
	SetSpanError(span, nil)
	AddSpanEvent(span, "test-event")
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 ended span, got %d", len(ended))
	}
	if ended[0].Status().Code != codes.Unset {
		t.Errorf("nil error should leave status unset, got %v", ended[0].Status().Code)
	}
	if len(ended[0].Events()) != 1 {
		t.Errorf("expected 1 event, got %d", len(ended[0].Events()))
	}
}

func TestGetTraceID_NoSpan(t *testing.T) {
	if traceID := GetTraceID(context.Background()); traceID != "" {
		t.Errorf("expected empty trace ID for context without span, got %q", traceID)
	}
}

func TestGetSpanID_NoSpan(t *testing.T) {
	if spanID := GetSpanID(context.Background()); spanID != "" {
		t.Errorf("expected empty span ID for context without span, got %q", spanID)
	}
}
