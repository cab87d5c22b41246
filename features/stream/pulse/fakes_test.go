package pulse

import (
	"context"
	"fmt"
	"sync"

	"goa.design/pulse/streaming"
	streamopts "goa.design/pulse/streaming/options"

	clientspulse "goa.design/anthropic-codec/features/stream/pulse/clients/pulse"
)

type (
	fakeClient struct {
		mu      sync.Mutex
		streams map[string]*fakeStream
		err     error
		closed  bool
	}

	fakeStream struct {
		mu      sync.Mutex
		entries []entry
		sink    *fakeSink
		addErr  error
	}

	entry struct {
		id      string
		name    string
		payload []byte
	}

	fakeSink struct {
		name   string
		ch     chan *streaming.Event
		mu     sync.Mutex
		acked  []string
		closed bool
	}
)

func newFakeClient() *fakeClient {
	return &fakeClient{streams: make(map[string]*fakeStream)}
}

func (c *fakeClient) Stream(name string, _ ...streamopts.Stream) (clientspulse.Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	s, ok := c.streams[name]
	if !ok {
		s = &fakeStream{}
		c.streams[name] = s
	}
	return s, nil
}

func (c *fakeClient) Close(context.Context) error {
	c.closed = true
	return nil
}

func (s *fakeStream) Add(_ context.Context, event string, payload []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addErr != nil {
		return "", s.addErr
	}
	id := fmt.Sprintf("%d-0", len(s.entries)+1)
	s.entries = append(s.entries, entry{id: id, name: event, payload: payload})
	return id, nil
}

func (s *fakeStream) NewSink(_ context.Context, name string, _ ...streamopts.Sink) (clientspulse.Sink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = &fakeSink{name: name, ch: make(chan *streaming.Event, len(s.entries)+8)}
	return s.sink, nil
}

func (s *fakeStream) Destroy(context.Context) error { return nil }

// replay feeds every recorded entry to the sink and closes its channel.
func (s *fakeStream) replay() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		s.sink.ch <- &streaming.Event{ID: e.id, Payload: e.payload}
	}
	close(s.sink.ch)
}

func (k *fakeSink) Subscribe() <-chan *streaming.Event { return k.ch }

func (k *fakeSink) Ack(_ context.Context, ev *streaming.Event) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.acked = append(k.acked, ev.ID)
	return nil
}

func (k *fakeSink) Close(context.Context) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.closed = true
}

func (k *fakeSink) ackedIDs() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]string(nil), k.acked...)
}
