// Package runlog keeps an append-only log of model stream events so a
// response can be inspected or rebuilt after the connection is gone.
//
// Events are stored in their encoded form. Replaying a log decodes them with
// the same codec that produced them, so events of unknown types come back
// unchanged.
package runlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"goa.design/anthropic-codec/runtime/jsonx"
	"goa.design/anthropic-codec/runtime/model"
)

type (
	// Event is one logged stream event.
	Event struct {
		// ID is assigned by the store. IDs are opaque and ordered within a
		// stream.
		ID       string
		StreamID string
		// Seq is the 1-based position of the event in its stream.
		Seq  int
		Type string
		// Payload is the encoded stream event.
		Payload   json.RawMessage
		Timestamp time.Time
	}

	// Page is a forward page of events, oldest first.
	Page struct {
		Events []*Event
		// NextCursor is empty on the last page.
		NextCursor string
	}

	// Store persists events. Implementations keep insertion order within a
	// stream; cursors are opaque to callers.
	Store interface {
		Append(ctx context.Context, e *Event) error
		List(ctx context.Context, streamID string, cursor string, limit int) (Page, error)
	}

	// Source yields stream events until io.EOF.
	Source interface {
		Next(ctx context.Context) (model.StreamEvent, error)
	}

	// Log encodes events into a Store and decodes them back.
	Log struct {
		store    Store
		pageSize int
		now      func() time.Time
	}
)

// DefaultPageSize is the page size used when reading a whole stream.
const DefaultPageSize = 100

// New returns a log over store.
func New(store Store) (*Log, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	return &Log{store: store, pageSize: DefaultPageSize, now: time.Now}, nil
}

// Append encodes ev and stores it.
func (l *Log) Append(ctx context.Context, streamID string, seq int, ev model.StreamEvent) (*Event, error) {
	if ev.IsZero() {
		return nil, errors.New("runlog: empty event")
	}
	payload, err := jsonx.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("runlog: encode %s: %w", ev.Type(), err)
	}
	e := &Event{
		StreamID:  streamID,
		Seq:       seq,
		Type:      ev.Type(),
		Payload:   payload,
		Timestamp: l.now().UTC(),
	}
	if err := l.store.Append(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Record appends every event read from src until io.EOF and returns the
// number of events stored.
func (l *Log) Record(ctx context.Context, streamID string, src Source) (int, error) {
	var n int
	for {
		ev, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if _, err := l.Append(ctx, streamID, n+1, ev); err != nil {
			return n, err
		}
		n++
	}
}

// Events decodes every event logged for streamID, oldest first. In strict
// mode events of unknown types are rejected.
func (l *Log) Events(ctx context.Context, streamID string, strict bool) ([]model.StreamEvent, error) {
	decode := model.DecodeStreamEvent
	if strict {
		decode = model.DecodeStreamEventStrict
	}
	var (
		out    []model.StreamEvent
		cursor string
	)
	for {
		page, err := l.store.List(ctx, streamID, cursor, l.pageSize)
		if err != nil {
			return nil, err
		}
		for _, e := range page.Events {
			ev, err := decode(e.Payload)
			if err != nil {
				return nil, fmt.Errorf("runlog: event %s (seq %d): %w", e.ID, e.Seq, err)
			}
			out = append(out, ev)
		}
		if page.NextCursor == "" {
			return out, nil
		}
		cursor = page.NextCursor
	}
}

// Replay rebuilds the final message of a logged stream.
func (l *Log) Replay(ctx context.Context, streamID string) (model.Message, error) {
	events, err := l.Events(ctx, streamID, false)
	if err != nil {
		return model.Message{}, err
	}
	if len(events) == 0 {
		return model.Message{}, fmt.Errorf("runlog: no events for stream %q", streamID)
	}
	acc := model.NewAccumulator()
	for _, ev := range events {
		if err := acc.Add(ev); err != nil {
			return model.Message{}, fmt.Errorf("runlog: replay %q: %w", streamID, err)
		}
	}
	return acc.Message(), nil
}
