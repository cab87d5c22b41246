// Package pulse wraps goa.design/pulse streams behind the narrow interfaces
// the event relay needs. Callers own the Redis connection: they build it, pass
// it to New, and close it themselves.
package pulse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"goa.design/pulse/streaming"
	streamopts "goa.design/pulse/streaming/options"
)

type (
	// Options configures the client.
	Options struct {
		// Redis backs the streams. Required.
		Redis *redis.Client
		// MaxLen bounds the number of entries kept per stream. Zero keeps the
		// Pulse default.
		MaxLen int
		// Timeout bounds each Add call. Zero means no timeout.
		Timeout time.Duration
	}

	// Client opens named streams.
	Client interface {
		Stream(name string, opts ...streamopts.Stream) (Stream, error)
		Close(ctx context.Context) error
	}

	// Stream publishes entries and opens consumer groups.
	Stream interface {
		// Add appends an entry and returns its Redis ID (e.g. "1700000000000-0").
		Add(ctx context.Context, event string, payload []byte) (string, error)
		NewSink(ctx context.Context, name string, opts ...streamopts.Sink) (Sink, error)
		Destroy(ctx context.Context) error
	}

	// Sink is a consumer group reading one stream.
	Sink interface {
		Subscribe() <-chan *streaming.Event
		Ack(context.Context, *streaming.Event) error
		Close(context.Context)
	}

	client struct {
		rdb     *redis.Client
		maxLen  int
		timeout time.Duration
	}

	stream struct {
		s       *streaming.Stream
		timeout time.Duration
	}

	sink struct {
		*streaming.Sink
	}
)

// New returns a client backed by opts.Redis.
func New(opts Options) (Client, error) {
	if opts.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	return &client{rdb: opts.Redis, maxLen: opts.MaxLen, timeout: opts.Timeout}, nil
}

func (c *client) Stream(name string, opts ...streamopts.Stream) (Stream, error) {
	if name == "" {
		return nil, errors.New("stream name is required")
	}
	var all []streamopts.Stream
	if c.maxLen > 0 {
		all = append(all, streamopts.WithStreamMaxLen(c.maxLen))
	}
	all = append(all, opts...)
	s, err := streaming.NewStream(name, c.rdb, all...)
	if err != nil {
		return nil, fmt.Errorf("open pulse stream %q: %w", name, err)
	}
	return &stream{s: s, timeout: c.timeout}, nil
}

// Close does nothing: the Redis connection belongs to the caller.
func (c *client) Close(context.Context) error { return nil }

func (s *stream) Add(ctx context.Context, event string, payload []byte) (string, error) {
	if event == "" {
		return "", errors.New("event name is required")
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	id, err := s.s.Add(ctx, event, payload)
	if err != nil {
		return "", fmt.Errorf("pulse add: %w", err)
	}
	return id, nil
}

func (s *stream) NewSink(ctx context.Context, name string, opts ...streamopts.Sink) (Sink, error) {
	sk, err := s.s.NewSink(ctx, name, opts...)
	if err != nil {
		return nil, fmt.Errorf("open pulse sink %q: %w", name, err)
	}
	return sink{Sink: sk}, nil
}

func (s *stream) Destroy(ctx context.Context) error { return s.s.Destroy(ctx) }

func (s sink) Close(ctx context.Context) { s.Sink.Close(ctx) }
