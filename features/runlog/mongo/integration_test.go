package mongo_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"goa.design/anthropic-codec/features/runlog"
	runlogmongo "goa.design/anthropic-codec/features/runlog/mongo"
	clientsmongo "goa.design/anthropic-codec/features/runlog/mongo/clients/mongo"
	"goa.design/anthropic-codec/features/stream/sse"
)

var (
	mongoOnce   sync.Once
	mongoClient *mongodriver.Client
	mongoErr    error
)

// startMongo runs a throwaway mongo:7 container shared by the package tests.
// Containers are left to the testcontainers reaper.
func startMongo(t *testing.T) *mongodriver.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MongoDB integration test in short mode")
	}
	mongoOnce.Do(func() {
		ctx := context.Background()
		var c testcontainers.Container
		func() {
			defer func() {
				if r := recover(); r != nil {
					mongoErr = fmt.Errorf("docker not available: %v", r)
				}
			}()
			c, mongoErr = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
				ContainerRequest: testcontainers.ContainerRequest{
					Image:        "mongo:7",
					ExposedPorts: []string{"27017/tcp"},
					WaitingFor:   wait.ForLog("Waiting for connections"),
					Tmpfs:        map[string]string{"/data/db": "rw"},
				},
				Started: true,
			})
		}()
		if mongoErr != nil {
			return
		}
		host, err := c.Host(ctx)
		if err != nil {
			mongoErr = err
			return
		}
		port, err := c.MappedPort(ctx, "27017")
		if err != nil {
			mongoErr = err
			return
		}
		mongoClient, mongoErr = mongodriver.Connect(options.Client().ApplyURI(fmt.Sprintf("mongodb://%s:%s", host, port.Port())))
		if mongoErr == nil {
			mongoErr = mongoClient.Ping(ctx, nil)
		}
	})
	if mongoErr != nil {
		t.Skipf("MongoDB not available: %v", mongoErr)
	}
	return mongoClient
}

func TestMongoLogReplaysCapturedStream(t *testing.T) {
	mc := startMongo(t)
	ctx := context.Background()
	coll := strings.ReplaceAll(t.Name(), "/", "_")
	t.Cleanup(func() { _ = mc.Database("runlog_test").Collection(coll).Drop(ctx) })

	client, err := clientsmongo.New(clientsmongo.Options{Client: mc, Database: "runlog_test", Collection: coll})
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx))
	store, err := runlogmongo.NewStore(client)
	require.NoError(t, err)
	log, err := runlog.New(store)
	require.NoError(t, err)

	const body = "event: message_start\n" +
		`data: {"type":"message_start","message":{"id":"msg_m","type":"message","role":"assistant","model":"m","content":[],"usage":{"input_tokens":1,"output_tokens":1}}}` + "\n\n" +
		"event: content_block_start\n" +
		`data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}` + "\n\n" +
		"event: content_block_delta\n" +
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"stored"}}` + "\n\n" +
		"event: content_block_stop\n" +
		`data: {"type":"content_block_stop","index":0}` + "\n\n" +
		"event: message_stop\n" +
		`data: {"type":"message_stop"}` + "\n\n"
	n, err := log.Record(ctx, "msg_m", sse.NewReader(strings.NewReader(body)))
	require.NoError(t, err)
	require.Equal(t, 5, n)

	page, err := store.List(ctx, "msg_m", "", 2)
	require.NoError(t, err)
	require.Len(t, page.Events, 2)
	require.NotEmpty(t, page.NextCursor)

	msg, err := log.Replay(ctx, "msg_m")
	require.NoError(t, err)
	require.Equal(t, "stored", msg.Text())
}
