package pulse

import (
	"context"
	"errors"

	clientspulse "goa.design/anthropic-codec/features/stream/pulse/clients/pulse"
)

// Streams shares one Pulse client between a publisher and any number of
// subscribers.
type Streams struct {
	pub    *Publisher
	client clientspulse.Client
}

// NewStreams builds the publisher from opts. opts.Client is required.
func NewStreams(opts Options) (*Streams, error) {
	if opts.Client == nil {
		return nil, errors.New("pulse client is required")
	}
	pub, err := NewPublisher(opts)
	if err != nil {
		return nil, err
	}
	return &Streams{pub: pub, client: opts.Client}, nil
}

// Publisher returns the shared publisher.
func (s *Streams) Publisher() *Publisher { return s.pub }

// NewSubscriber returns a subscriber on the shared client. opts.Client is
// ignored.
func (s *Streams) NewSubscriber(opts SubscriberOptions) (*Subscriber, error) {
	opts.Client = s.client
	return NewSubscriber(opts)
}

// Close closes the publisher. Cancel subscribers first.
func (s *Streams) Close(ctx context.Context) error {
	return s.pub.Close(ctx)
}
