package anthropic

import (
	"context"
	"errors"
	"fmt"
	"io"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"goa.design/anthropic-codec/runtime/model"
	"goa.design/anthropic-codec/runtime/telemetry"
)

// Stream adapts an SDK Messages stream: each SDK event is decoded again from
// its raw JSON and folded into an accumulator so the final message is
// available once the stream ends. A Stream is not safe for concurrent use.
type Stream struct {
	stream *ssestream.Stream[sdk.MessageStreamEventUnion]
	acc    *model.Accumulator
	strict bool
	logger telemetry.Logger
	err    error
}

func newStream(stream *ssestream.Stream[sdk.MessageStreamEventUnion], strict bool, logger telemetry.Logger) *Stream {
	return &Stream{stream: stream, acc: model.NewAccumulator(), strict: strict, logger: logger}
}

// Next returns the next decoded event, or io.EOF when the stream completed.
// An error event sent by the API surfaces as a *model.APIError.
func (s *Stream) Next(ctx context.Context) (model.StreamEvent, error) {
	if s.err != nil {
		return model.StreamEvent{}, s.err
	}
	if err := ctx.Err(); err != nil {
		s.err = err
		return model.StreamEvent{}, err
	}
	if !s.stream.Next() {
		if err := s.stream.Err(); err != nil {
			s.err = translateError("anthropic stream", err)
			return model.StreamEvent{}, s.err
		}
		s.err = io.EOF
		return model.StreamEvent{}, io.EOF
	}
	raw := []byte(s.stream.Current().RawJSON())
	decode := model.DecodeStreamEvent
	if s.strict {
		decode = model.DecodeStreamEventStrict
	}
	ev, err := decode(raw)
	if err != nil {
		s.logger.Warn(ctx, "undecodable stream event", telemetry.DecodeErrorKeyvals(err)...)
		s.err = fmt.Errorf("anthropic stream: %w", err)
		return model.StreamEvent{}, s.err
	}
	if err := s.acc.Add(ev); err != nil {
		s.err = fmt.Errorf("anthropic stream: %w", err)
		return model.StreamEvent{}, s.err
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
		return model.Message{}, errors.New("anthropic stream: ended before message_stop")
	}
	return s.acc.Message(), nil
}

// Message returns the message accumulated so far.
func (s *Stream) Message() model.Message { return s.acc.Message() }

// Close releases the underlying HTTP response.
func (s *Stream) Close() error {
	if s.stream == nil {
		return nil
	}
	return s.stream.Close()
}
