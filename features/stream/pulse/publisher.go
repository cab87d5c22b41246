// Package pulse relays decoded model stream events through goa.design/pulse
// streams so several consumers can follow one model response. Events are
// re-encoded with the codec on the way in and decoded again on the way out,
// so variants the codec does not know survive the hop byte for byte.
package pulse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	clientspulse "goa.design/anthropic-codec/features/stream/pulse/clients/pulse"
	"goa.design/anthropic-codec/runtime/jsonx"
	"goa.design/anthropic-codec/runtime/model"
	"goa.design/anthropic-codec/runtime/telemetry"
)

// MetricPublished counts events appended to Pulse streams.
const MetricPublished = "pulse.events.published"

type (
	// Options configures a Publisher.
	Options struct {
		// Client opens the target streams. Required.
		Client clientspulse.Client
		// OnPublished runs after each successful Add. An error aborts the
		// publish call that triggered it.
		OnPublished func(context.Context, PublishedEvent) error
		Logger      telemetry.Logger
		Metrics     telemetry.Metrics
	}

	// Publisher appends stream events to Pulse streams. It is safe for
	// concurrent use when the client is.
	Publisher struct {
		client      clientspulse.Client
		onPublished func(context.Context, PublishedEvent) error
		logger      telemetry.Logger
		metrics     telemetry.Metrics
		now         func() time.Time
	}

	// PublishedEvent describes an event once Redis accepted it.
	PublishedEvent struct {
		StreamID string
		EntryID  string
		Seq      int
		Event    model.StreamEvent
	}

	// Envelope is the payload of each stream entry.
	Envelope struct {
		StreamID  string          `json:"stream_id"`
		Seq       int             `json:"seq"`
		Timestamp time.Time       `json:"timestamp"`
		Event     json.RawMessage `json:"event"`
	}

	// Source yields stream events until io.EOF. sse.Reader and the model
	// bridge streams implement it.
	Source interface {
		Next(ctx context.Context) (model.StreamEvent, error)
	}
)

// NewPublisher returns a publisher writing through opts.Client.
func NewPublisher(opts Options) (*Publisher, error) {
	if opts.Client == nil {
		return nil, errors.New("pulse client is required")
	}
	p := &Publisher{
		client:      opts.Client,
		onPublished: opts.OnPublished,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		now:         time.Now,
	}
	if p.logger == nil {
		p.logger = telemetry.NewNoopLogger()
	}
	if p.metrics == nil {
		p.metrics = telemetry.NewNoopMetrics()
	}
	return p, nil
}

// Publish appends ev to the stream named streamID and returns the entry ID.
// The entry name is the event type, including for unknown events.
func (p *Publisher) Publish(ctx context.Context, streamID string, seq int, ev model.StreamEvent) (string, error) {
	if ev.IsZero() {
		return "", errors.New("pulse publish: empty event")
	}
	event, err := jsonx.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("pulse publish: encode %s: %w", ev.Type(), err)
	}
	payload, err := jsonx.Marshal(Envelope{
		StreamID:  streamID,
		Seq:       seq,
		Timestamp: p.now().UTC(),
		Event:     event,
	})
	if err != nil {
		return "", fmt.Errorf("pulse publish: encode envelope: %w", err)
	}
	s, err := p.client.Stream(streamID)
	if err != nil {
		return "", err
	}
	id, err := s.Add(ctx, ev.Type(), payload)
	if err != nil {
		return "", err
	}
	p.metrics.IncCounter(MetricPublished, 1, "type", ev.Type())
	if p.onPublished != nil {
		if err := p.onPublished(ctx, PublishedEvent{StreamID: streamID, EntryID: id, Seq: seq, Event: ev}); err != nil {
			return "", err
		}
	}
	return id, nil
}

// Relay publishes every event read from src until src returns io.EOF and
// reports how many events were published. Sequence numbers start at 1.
func (p *Publisher) Relay(ctx context.Context, src Source, streamID string) (int, error) {
	var n int
	for {
		ev, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			p.logger.Debug(ctx, "relay finished", "stream", streamID, "events", n)
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if _, err := p.Publish(ctx, streamID, n+1, ev); err != nil {
			return n, err
		}
		n++
	}
}

// Close releases the client.
func (p *Publisher) Close(ctx context.Context) error {
	return p.client.Close(ctx)
}
