// Package telemetry carries the logging, metrics and tracing hooks used by
// the stream reader, the SDK bridges and the CLI. The codec itself never logs:
// decode errors are returned, and callers that recover from them report them
// through these interfaces.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"goa.design/anthropic-codec/runtime/union"
)

// Logger captures structured logging. Implementations typically delegate to
// Clue but the interface is small so tests can provide lightweight stubs.
type Logger interface {
	Debug(ctx context.Context, msg string, keyvals ...any)
	Info(ctx context.Context, msg string, keyvals ...any)
	Warn(ctx context.Context, msg string, keyvals ...any)
	Error(ctx context.Context, msg string, keyvals ...any)
}

// Metrics exposes counter and histogram helpers.
type Metrics interface {
	IncCounter(name string, value float64, tags ...string)
	RecordTimer(name string, duration time.Duration, tags ...string)
	RecordGauge(name string, value float64, tags ...string)
}

// Tracer abstracts span creation so callers remain agnostic of the
// underlying OpenTelemetry provider.
type Tracer interface {
	Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
	Span(ctx context.Context) Span
}

// Span represents an in-flight tracing span.
//
// Example usage:
//
//	ctx, span := tracer.Start(ctx, "sse.stream")
//	defer span.End()
//	span.SetStatus(codes.Ok, "")
type Span interface {
	End(opts ...trace.SpanEndOption)
	AddEvent(name string, attrs ...any)
	SetStatus(code codes.Code, description string)
	RecordError(err error, opts ...trace.EventOption)
}

// Metric names recorded while decoding streams.
const (
	MetricEventsDecoded = "sse.events.decoded"
	MetricEventsSkipped = "sse.events.skipped"
	MetricEventsUnknown = "sse.events.unknown"
	MetricStreamTime    = "sse.stream.duration"
)

// DecodeErrorKeyvals returns the structured fields of a codec error as
// key-value pairs: union, kind, tag, field and, for fallback unions, the
// number of rejected candidates. Other errors yield only "err".
func DecodeErrorKeyvals(err error) []any {
	if err == nil {
		return nil
	}
	kv := []any{"err", err.Error()}
	ue, ok := union.AsError(err)
	if !ok {
		return kv
	}
	kv = append(kv, "union", ue.Union(), "kind", string(ue.Kind()))
	if ue.Tag() != "" {
		kv = append(kv, "tag", ue.Tag())
	}
	if ue.Field() != "" {
		kv = append(kv, "field", ue.Field())
	}
	if c := ue.Candidates(); len(c) > 0 {
		kv = append(kv, "candidates", len(c))
	}
	return kv
}
