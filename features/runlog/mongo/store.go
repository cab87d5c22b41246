package mongo

import (
	"context"
	"errors"

	"goa.design/anthropic-codec/features/runlog"
	clientsmongo "goa.design/anthropic-codec/features/runlog/mongo/clients/mongo"
)

// Store implements runlog.Store by delegating to the Mongo client.
type Store struct {
	client clientsmongo.Client
}

var _ runlog.Store = (*Store)(nil)

// NewStore returns a store backed by client.
func NewStore(client clientsmongo.Client) (*Store, error) {
	if client == nil {
		return nil, errors.New("client is required")
	}
	return &Store{client: client}, nil
}

// Append implements runlog.Store.
func (s *Store) Append(ctx context.Context, e *runlog.Event) error {
	return s.client.Append(ctx, e)
}

// List implements runlog.Store.
func (s *Store) List(ctx context.Context, streamID string, cursor string, limit int) (runlog.Page, error) {
	return s.client.List(ctx, streamID, cursor, limit)
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}
