package kafkax

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestTraceHeadersRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	msg := NewMessage(ctx, "appt-1", EventMeta{EventID: "evt-1", EventType: "appointment.confirmed"}, []byte("{}"))
	if HeaderValue(msg.Headers, "traceparent") == "" {
		t.Fatalf("expected traceparent header, got %+v", msg.Headers)
	}

	got := trace.SpanContextFromContext(ExtractTraceContext(context.Background(), msg))
	if got.TraceID() != traceID {
		t.Fatalf("trace id mismatch: got %s", got.TraceID())
	}
}

func TestExtractEventMetaFallsBack(t *testing.T) {
	meta := ExtractEventMeta(kafka.Message{Topic: "salon.notifications.v1", Key: []byte("k-1")})
	if meta.EventID != "k-1" || meta.EventType != "salon.notifications.v1" {
		t.Fatalf("unexpected meta %+v", meta)
	}
}

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" a:9092, ,b:9092 ")
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Fatalf("unexpected brokers %v", got)
	}
}
