package telemetry

import (
	"context"

	"goa.design/clue/log"
)

// WithStream returns a context whose clue log entries carry the stream
// identifier and, when set, the request identifier returned by the API.
func WithStream(ctx context.Context, streamID, requestID string) context.Context {
	fields := []log.Fielder{log.KV{K: "stream_id", V: streamID}}
	if requestID != "" {
		fields = append(fields, log.KV{K: "request_id", V: requestID})
	}
	return log.With(ctx, fields...)
}
