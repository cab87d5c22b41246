package mongo

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/anthropic-codec/features/runlog"
	"goa.design/anthropic-codec/runtime/model"
)

// memClient is a clientsmongo.Client keeping events in a slice.
type memClient struct {
	events []*runlog.Event
	pings  int
}

func (c *memClient) Name() string { return "mem" }

func (c *memClient) Ping(context.Context) error {
	c.pings++
	return nil
}

func (c *memClient) Append(_ context.Context, e *runlog.Event) error {
	e.ID = strconv.Itoa(len(c.events) + 1)
	cp := *e
	c.events = append(c.events, &cp)
	return nil
}

func (c *memClient) List(_ context.Context, streamID string, _ string, _ int) (runlog.Page, error) {
	var page runlog.Page
	for _, e := range c.events {
		if e.StreamID == streamID {
			page.Events = append(page.Events, e)
		}
	}
	return page, nil
}

func TestStoreBacksLog(t *testing.T) {
	ctx := context.Background()
	client := &memClient{}
	store, err := NewStore(client)
	require.NoError(t, err)
	require.NoError(t, store.Ping(ctx))
	require.Equal(t, 1, client.pings)

	log, err := runlog.New(store)
	require.NoError(t, err)
	_, err = log.Append(ctx, "s", 1, model.NewStreamEvent(model.MessageStopEvent{}))
	require.NoError(t, err)
	require.Len(t, client.events, 1)
	require.Equal(t, "message_stop", client.events[0].Type)

	events, err := log.Events(ctx, "s", true)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "message_stop", events[0].Type())

	_, err = NewStore(nil)
	require.Error(t, err)
}
