package messaging

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestHeaderCarrier(t *testing.T) {
	// Arrange
	headers := []Header{{Key: "cID", Value: []byte("abc")}, {Key: "traceparent", Value: []byte("old")}}
	c := HeaderCarrier{Headers: &headers}

	// Act
	c.Set("traceparent", "new")

	// Assert
	if got := c.Get("traceparent"); got != "new" {
		t.Fatalf("expected new, got %q", got)
	}
	if got := c.Get("cID"); got != "abc" {
		t.Fatalf("expected cID to survive, got %q", got)
	}
	if len(c.Keys()) != 2 {
		t.Fatalf("expected 2 keys, got %v", c.Keys())
	}
}

func TestTraceContextRoundTrip(t *testing.T) {
	// Arrange
	prop := propagation.TraceContext{}
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		SpanID:     trace.SpanID{1, 2, 3, 4, 5, 6, 7, 8},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	// Act
	var headers []Header
	prop.Inject(ctx, HeaderCarrier{Headers: &headers})
	got := trace.SpanContextFromContext(prop.Extract(context.Background(), HeaderCarrier{Headers: &headers}))

	// Assert
	if got.TraceID() != sc.TraceID() || got.SpanID() != sc.SpanID() {
		t.Fatalf("expected %v, got %v", sc, got)
	}
	if !got.IsRemote() {
		t.Fatal("expected a remote span context")
	}
}
