// Package inmem provides an in-memory runlog.Store for tests and local
// tools. Nothing is persisted.
package inmem

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"goa.design/anthropic-codec/features/runlog"
)

// Store implements runlog.Store in memory.
type Store struct {
	mu     sync.Mutex
	events map[string][]*runlog.Event
}

// New returns an empty store.
func New() *Store {
	return &Store{events: make(map[string][]*runlog.Event)}
}

// Append implements runlog.Store. IDs are 1-based positions in the stream.
func (s *Store) Append(_ context.Context, e *runlog.Event) error {
	if e == nil {
		return errors.New("event is required")
	}
	if e.StreamID == "" {
		return errors.New("stream id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = strconv.Itoa(len(s.events[e.StreamID]) + 1)
	cp := *e
	s.events[e.StreamID] = append(s.events[e.StreamID], &cp)
	return nil
}

// List implements runlog.Store.
func (s *Store) List(_ context.Context, streamID string, cursor string, limit int) (runlog.Page, error) {
	if streamID == "" {
		return runlog.Page{}, errors.New("stream id is required")
	}
	if limit <= 0 {
		return runlog.Page{}, errors.New("limit must be > 0")
	}
	var start int
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 {
			return runlog.Page{}, fmt.Errorf("invalid cursor %q", cursor)
		}
		start = n
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.events[streamID]
	if start >= len(all) {
		return runlog.Page{}, nil
	}
	end := min(start+limit, len(all))
	page := runlog.Page{Events: append([]*runlog.Event(nil), all[start:end]...)}
	if end < len(all) {
		page.NextCursor = page.Events[len(page.Events)-1].ID
	}
	return page, nil
}
