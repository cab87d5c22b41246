package bedrock

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"goa.design/anthropic-codec/runtime/model"
	"goa.design/anthropic-codec/runtime/telemetry"
)

// Stream decodes the chunks of an InvokeModelWithResponseStream response and
// folds them into an accumulator. A Stream is not safe for concurrent use.
type Stream struct {
	stream *bedrockruntime.InvokeModelWithResponseStreamEventStream
	events <-chan brtypes.ResponseStream
	acc    *model.Accumulator
	strict bool
	logger telemetry.Logger
	err    error
}

func newStream(stream *bedrockruntime.InvokeModelWithResponseStreamEventStream, strict bool, logger telemetry.Logger) *Stream {
	return &Stream{
		stream: stream,
		events: stream.Events(),
		acc:    model.NewAccumulator(),
		strict: strict,
		logger: logger,
	}
}

// Next returns the next event, or io.EOF once the event stream closes. Ping
// events are consumed; error events surface as *model.APIError.
func (s *Stream) Next(ctx context.Context) (model.StreamEvent, error) {
	if s.err != nil {
		return model.StreamEvent{}, s.err
	}
	for {
		select {
		case <-ctx.Done():
			s.err = ctx.Err()
			return model.StreamEvent{}, s.err
		case ev, ok := <-s.events:
			if !ok {
				if err := s.stream.Err(); err != nil {
					s.err = translateError("bedrock stream", err)
				} else {
					s.err = io.EOF
				}
				return model.StreamEvent{}, s.err
			}
			chunk, ok := ev.(*brtypes.ResponseStreamMemberChunk)
			if !ok {
				s.logger.Debug(ctx, "ignoring bedrock stream member", "member", fmt.Sprintf("%T", ev))
				continue
			}
			out, err := s.handle(ctx, chunk.Value.Bytes)
			if errors.Is(err, errSkip) {
				continue
			}
			if err != nil {
				s.err = err
				return model.StreamEvent{}, err
			}
			return out, nil
		}
	}
}

var errSkip = errors.New("skip")

func (s *Stream) handle(ctx context.Context, payload []byte) (model.StreamEvent, error) {
	decode := model.DecodeStreamEvent
	if s.strict {
		decode = model.DecodeStreamEventStrict
	}
	ev, err := decode(payload)
	if err != nil {
		s.logger.Warn(ctx, "undecodable bedrock chunk", telemetry.DecodeErrorKeyvals(err)...)
		return model.StreamEvent{}, fmt.Errorf("bedrock stream: %w", err)
	}
	switch ev.Type() {
	case "ping":
		return model.StreamEvent{}, errSkip
	case "error":
		if known, ok := ev.Known(); ok {
			if e, ok := known.(model.ErrorEvent); ok {
				return model.StreamEvent{}, fmt.Errorf("bedrock stream: %w", e.APIError())
			}
		}
	}
	if err := s.acc.Add(ev); err != nil {
		return model.StreamEvent{}, fmt.Errorf("bedrock stream: %w", err)
	}
	return ev, nil
}

// Collect drains the stream and returns the accumulated message.
func (s *Stream) Collect(ctx context.Context) (model.Message, error) {
	for {
		_, err := s.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.Message{}, err
		}
	}
	if !s.acc.Done() {
		return model.Message{}, errors.New("bedrock stream: ended before message_stop")
	}
	return s.acc.Message(), nil
}

// Message returns the message accumulated so far.
func (s *Stream) Message() model.Message { return s.acc.Message() }

// Close closes the underlying event stream.
func (s *Stream) Close() error { return s.stream.Close() }
