// Package sse reads Anthropic Messages streams from a text/event-stream body
// and decodes each event payload into a model.StreamEvent.
//
// Framing is delegated to the SDK's ssestream decoder. The reader adds the
// codec on top: payload decoding, the decode error policy, and the logs,
// metrics and span describing the stream.
package sse

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"

	"goa.design/anthropic-codec/runtime/model"
	"goa.design/anthropic-codec/runtime/telemetry"
)

type (
	// Reader yields the events of a single stream in order. A Reader is not
	// safe for concurrent use.
	Reader struct {
		dec     ssestream.Decoder
		body    io.Closer
		opts    options
		id      string
		seq     int
		span    telemetry.Span
		started time.Time
		err     error
	}

	// EventError reports an event whose payload could not be decoded.
	EventError struct {
		// Seq is the 1-based position of the event in the stream.
		Seq int
		// Name is the SSE event name, "message" when the frame had none.
		Name string
		// Err is the decode failure.
		Err error
	}
)

// ErrEventTooLarge is wrapped by EventError when a payload exceeds the
// configured maximum size.
var ErrEventTooLarge = errors.New("event exceeds maximum size")

// NewReader returns a reader over r. When r is an io.Closer it is closed by
// Close.
func NewReader(r io.Reader, opts ...Option) *Reader {
	rc, ok := r.(io.ReadCloser)
	if !ok {
		rc = io.NopCloser(r)
	}
	o := newOptions(opts)
	id := o.streamID
	if id == "" {
		id = uuid.NewString()
	}
	res := &http.Response{
		Header: http.Header{"Content-Type": []string{"text/event-stream"}},
		Body:   rc,
	}
	return &Reader{dec: ssestream.NewDecoder(res), body: rc, opts: o, id: id}
}

// StreamID returns the identifier attached to the stream's logs and span.
func (r *Reader) StreamID() string { return r.id }

// Next returns the next event. Ping events are consumed silently. An error
// event ends the stream with a *model.APIError. Next returns io.EOF once the
// body is exhausted and keeps returning the terminal error afterwards.
//
// The context is checked between events; a read already blocked on the body
// only returns when the body does.
func (r *Reader) Next(ctx context.Context) (model.StreamEvent, error) {
	if r.err != nil {
		return model.StreamEvent{}, r.err
	}
	if r.span == nil {
		ctx, r.span = r.opts.tracer.Start(ctx, "sse.stream")
		r.started = time.Now()
	}
	logCtx := telemetry.WithStream(ctx, r.id, r.opts.requestID)
	for {
		if err := ctx.Err(); err != nil {
			return model.StreamEvent{}, r.finish(err)
		}
		if !r.dec.Next() {
			if err := r.dec.Err(); err != nil {
				return model.StreamEvent{}, r.finish(fmt.Errorf("sse: read stream: %w", err))
			}
			return model.StreamEvent{}, r.finish(io.EOF)
		}
		frame := r.dec.Event()
		data := bytes.TrimRight(frame.Data, "\n")
		if len(bytes.TrimSpace(data)) == 0 {
			continue
		}
		r.seq++
		name := frame.Type
		if name == "" {
			name = "message"
		}

		ev, err := r.decode(data)
		if err != nil {
			eerr := &EventError{Seq: r.seq, Name: name, Err: err}
			if r.opts.policy == AbortOnInvalid {
				return model.StreamEvent{}, r.finish(eerr)
			}
			r.opts.metrics.IncCounter(telemetry.MetricEventsSkipped, 1, "event", name)
			kv := append([]any{"seq", r.seq, "event", name}, telemetry.DecodeErrorKeyvals(err)...)
			r.opts.logger.Warn(logCtx, "skipping undecodable stream event", kv...)
			r.span.AddEvent("event.skipped", "seq", r.seq, "event", name)
			continue
		}

		typ := ev.Type()
		r.opts.metrics.IncCounter(telemetry.MetricEventsDecoded, 1, "type", typ)
		if ev.IsUnknown() {
			r.opts.metrics.IncCounter(telemetry.MetricEventsUnknown, 1, "type", typ)
			r.opts.logger.Debug(logCtx, "unknown stream event", "seq", r.seq, "type", typ)
		}
		if frame.Type != "" && frame.Type != typ {
			r.opts.logger.Debug(logCtx, "event name differs from payload type", "seq", r.seq, "event", frame.Type, "type", typ)
		}
		switch typ {
		case "ping":
			continue
		case "error":
			if apiErr, ok := errorEvent(ev); ok {
				return model.StreamEvent{}, r.finish(apiErr)
			}
		}
		return ev, nil
	}
}

// Close releases the body and ends the stream span if the stream has not
// terminated yet.
func (r *Reader) Close() error {
	if r.err == nil {
		r.finish(errClosed)
	}
	if r.dec != nil {
		return r.dec.Close()
	}
	return r.body.Close()
}

var errClosed = errors.New("sse: reader closed")

func (r *Reader) decode(data []byte) (model.StreamEvent, error) {
	if len(data) > r.opts.maxBytes {
		return model.StreamEvent{}, fmt.Errorf("%w: %d > %d bytes", ErrEventTooLarge, len(data), r.opts.maxBytes)
	}
	if r.opts.strict {
		return model.DecodeStreamEventStrict(data)
	}
	return model.DecodeStreamEvent(data)
}

// finish records the terminal error, closes the span and returns err.
func (r *Reader) finish(err error) error {
	r.err = err
	if r.span == nil {
		return err
	}
	status := "ok"
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, errClosed):
		r.span.SetStatus(codes.Ok, "")
	default:
		status = "error"
		r.span.RecordError(err)
		r.span.SetStatus(codes.Error, err.Error())
	}
	r.opts.metrics.RecordTimer(telemetry.MetricStreamTime, time.Since(r.started), "status", status)
	r.span.End()
	r.span = nil
	return err
}

func errorEvent(ev model.StreamEvent) (*model.APIError, bool) {
	e, ok := ev.Known()
	if !ok {
		return nil, false
	}
	ee, ok := e.(model.ErrorEvent)
	if !ok {
		return nil, false
	}
	return ee.APIError(), true
}

// Error implements error.
func (e *EventError) Error() string {
	return fmt.Sprintf("sse: event %d (%s): %v", e.Seq, e.Name, e.Err)
}

// Unwrap returns the decode failure.
func (e *EventError) Unwrap() error { return e.Err }
