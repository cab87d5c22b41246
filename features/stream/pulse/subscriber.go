package pulse

import (
	"context"
	"errors"
	"fmt"
	"time"

	streamopts "goa.design/pulse/streaming/options"

	clientspulse "goa.design/anthropic-codec/features/stream/pulse/clients/pulse"
	"goa.design/anthropic-codec/features/stream/sse"
	"goa.design/anthropic-codec/runtime/jsonx"
	"goa.design/anthropic-codec/runtime/model"
	"goa.design/anthropic-codec/runtime/telemetry"
)

// DefaultSinkName is the consumer group used when none is configured.
const DefaultSinkName = "anthropic_codec_relay"

type (
	// SubscriberOptions configures a Subscriber.
	SubscriberOptions struct {
		// Client opens the streams. Required.
		Client clientspulse.Client
		// SinkName names the consumer group. Defaults to DefaultSinkName.
		SinkName string
		// Buffer is the delivery channel capacity. Defaults to 64.
		Buffer int
		// Strict rejects events whose type the codec does not know.
		Strict bool
		// Policy decides what happens to entries that fail to decode.
		// Skipped entries are logged and acknowledged.
		Policy  sse.Policy
		Logger  telemetry.Logger
		Metrics telemetry.Metrics
	}

	// Subscriber reads relayed events back from Pulse streams.
	Subscriber struct {
		client  clientspulse.Client
		name    string
		buffer  int
		strict  bool
		policy  sse.Policy
		logger  telemetry.Logger
		metrics telemetry.Metrics
	}

	// Delivery is one decoded entry.
	Delivery struct {
		EntryID   string
		StreamID  string
		Seq       int
		Timestamp time.Time
		Event     model.StreamEvent
	}
)

// NewSubscriber returns a subscriber reading through opts.Client.
func NewSubscriber(opts SubscriberOptions) (*Subscriber, error) {
	if opts.Client == nil {
		return nil, errors.New("pulse client is required")
	}
	s := &Subscriber{
		client:  opts.Client,
		name:    opts.SinkName,
		buffer:  opts.Buffer,
		strict:  opts.Strict,
		policy:  opts.Policy,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	if s.name == "" {
		s.name = DefaultSinkName
	}
	if s.buffer <= 0 {
		s.buffer = 64
	}
	if s.logger == nil {
		s.logger = telemetry.NewNoopLogger()
	}
	if s.metrics == nil {
		s.metrics = telemetry.NewNoopMetrics()
	}
	return s, nil
}

// Subscribe opens the consumer group on streamID and starts delivering
// decoded events. Both channels are closed when consumption stops; the
// returned cancel function stops it and closes the sink.
//
//	deliveries, errs, cancel, err := sub.Subscribe(ctx, "msg/msg_123")
//	defer cancel()
//	for d := range deliveries {
//	    acc.Add(d.Event)
//	}
func (s *Subscriber) Subscribe(ctx context.Context, streamID string, opts ...streamopts.Sink) (<-chan Delivery, <-chan error, context.CancelFunc, error) {
	str, err := s.client.Stream(streamID)
	if err != nil {
		return nil, nil, nil, err
	}
	sink, err := str.NewSink(ctx, s.name, opts...)
	if err != nil {
		return nil, nil, nil, err
	}
	out := make(chan Delivery, s.buffer)
	errs := make(chan error, 1)
	runCtx, cancel := context.WithCancel(ctx)
	go s.consume(runCtx, sink, out, errs)
	return out, errs, func() {
		cancel()
		sink.Close(context.Background())
	}, nil
}

func (s *Subscriber) consume(ctx context.Context, sink clientspulse.Sink, out chan<- Delivery, errs chan<- error) {
	defer close(out)
	defer close(errs)
	ch := sink.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-ch:
			if !ok {
				return
			}
			d, err := s.decode(entry.Payload)
			if err != nil {
				if s.policy == sse.AbortOnInvalid {
					errs <- fmt.Errorf("pulse entry %s: %w", entry.ID, err)
					return
				}
				s.metrics.IncCounter(telemetry.MetricEventsSkipped, 1, "source", "pulse")
				kv := append([]any{"entry", entry.ID}, telemetry.DecodeErrorKeyvals(err)...)
				s.logger.Warn(ctx, "skipping undecodable relayed event", kv...)
			} else {
				d.EntryID = entry.ID
				select {
				case out <- d:
				case <-ctx.Done():
					return
				}
			}
			if err := sink.Ack(ctx, entry); err != nil {
				errs <- fmt.Errorf("pulse ack: %w", err)
				return
			}
		}
	}
}

func (s *Subscriber) decode(payload []byte) (Delivery, error) {
	var env Envelope
	if err := jsonx.Unmarshal(payload, &env); err != nil {
		return Delivery{}, fmt.Errorf("decode envelope: %w", err)
	}
	decode := model.DecodeStreamEvent
	if s.strict {
		decode = model.DecodeStreamEventStrict
	}
	ev, err := decode(env.Event)
	if err != nil {
		return Delivery{}, err
	}
	return Delivery{StreamID: env.StreamID, Seq: env.Seq, Timestamp: env.Timestamp, Event: ev}, nil
}
