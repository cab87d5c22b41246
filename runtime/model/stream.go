package model

import (
	"fmt"

	"goa.design/anthropic-codec/runtime/union"
)

type (
	// StreamEventVariant is implemented by every streaming event payload.
	StreamEventVariant interface{ isStreamEvent() }

	// StreamEvent is one server-sent event of a streaming Messages call. The
	// union is open: event types added by the API decode to unknown values so
	// streams keep flowing.
	StreamEvent struct {
		union.Value[StreamEventVariant]
	}

	// MessageStartEvent opens the stream with an empty message.
	MessageStartEvent struct {
		Message Message `json:"message"`
	}

	// MessageDeltaEvent reports top-level message changes near the end of
	// the stream.
	MessageDeltaEvent struct {
		Delta MessageDelta      `json:"delta"`
		Usage MessageDeltaUsage `json:"usage"`
	}

	// MessageDelta carries the stop condition of the message.
	MessageDelta struct {
		StopReason   *string `json:"stop_reason"`
		StopSequence *string `json:"stop_sequence"`
	}

	// MessageDeltaUsage carries cumulative token counts. Only the output
	// count is always present.
	MessageDeltaUsage struct {
		OutputTokens             int  `json:"output_tokens"`
		InputTokens              *int `json:"input_tokens,omitempty"`
		CacheCreationInputTokens *int `json:"cache_creation_input_tokens,omitempty"`
		CacheReadInputTokens     *int `json:"cache_read_input_tokens,omitempty"`
	}

	// MessageStopEvent closes the stream.
	MessageStopEvent struct{}

	// ContentBlockStartEvent opens the content block at Index.
	ContentBlockStartEvent struct {
		Index        int          `json:"index"`
		ContentBlock ContentBlock `json:"content_block"`
	}

	// ContentBlockDeltaEvent updates the content block at Index.
	ContentBlockDeltaEvent struct {
		Index int               `json:"index"`
		Delta ContentBlockDelta `json:"delta"`
	}

	// ContentBlockStopEvent closes the content block at Index.
	ContentBlockStopEvent struct {
		Index int `json:"index"`
	}

	// PingEvent keeps the connection alive.
	PingEvent struct{}

	// ErrorEvent reports a failure in the middle of the stream.
	ErrorEvent struct {
		Error APIErrorDetail `json:"error"`
	}

	// ContentBlockDeltaVariant is implemented by every content block delta.
	ContentBlockDeltaVariant interface{ isContentBlockDelta() }

	// ContentBlockDelta is the incremental change carried by a
	// content_block_delta event. The union is open.
	ContentBlockDelta struct {
		union.Value[ContentBlockDeltaVariant]
	}

	// TextDelta appends text to a text block.
	TextDelta struct {
		Text string `json:"text"`
	}

	// InputJSONDelta appends a fragment of the JSON input of a tool use
	// block.
	InputJSONDelta struct {
		PartialJSON string `json:"partial_json"`
	}

	// CitationsDelta adds a citation to a text block.
	CitationsDelta struct {
		Citation Citation `json:"citation"`
	}

	// ThinkingDelta appends thinking text to a thinking block.
	ThinkingDelta struct {
		Thinking string `json:"thinking"`
	}

	// SignatureDelta sets the signature of a thinking block.
	SignatureDelta struct {
		Signature string `json:"signature"`
	}
)

var (
	streamEvents = union.NewKeyed("type", []union.Variant[StreamEventVariant]{
		union.Case[StreamEventVariant, MessageStartEvent]("message_start"),
		union.Case[StreamEventVariant, MessageDeltaEvent]("message_delta"),
		union.Case[StreamEventVariant, MessageStopEvent]("message_stop"),
		union.Case[StreamEventVariant, ContentBlockStartEvent]("content_block_start"),
		union.Case[StreamEventVariant, ContentBlockDeltaEvent]("content_block_delta"),
		union.Case[StreamEventVariant, ContentBlockStopEvent]("content_block_stop"),
		union.Case[StreamEventVariant, PingEvent]("ping"),
		union.Case[StreamEventVariant, ErrorEvent]("error"),
	}, union.Named("StreamEvent"), union.Open())

	contentBlockDeltas = union.NewKeyed("type", []union.Variant[ContentBlockDeltaVariant]{
		union.Case[ContentBlockDeltaVariant, TextDelta]("text_delta"),
		union.Case[ContentBlockDeltaVariant, InputJSONDelta]("input_json_delta"),
		union.Case[ContentBlockDeltaVariant, CitationsDelta]("citations_delta"),
		union.Case[ContentBlockDeltaVariant, ThinkingDelta]("thinking_delta"),
		union.Case[ContentBlockDeltaVariant, SignatureDelta]("signature_delta"),
	}, union.Named("ContentBlockDelta"), union.Open())

	eventIndex = union.NewProjection(streamEvents, "index",
		union.Absent[StreamEventVariant, MessageStartEvent, int](),
		union.Absent[StreamEventVariant, MessageDeltaEvent, int](),
		union.Absent[StreamEventVariant, MessageStopEvent, int](),
		union.Field[StreamEventVariant](func(e ContentBlockStartEvent) int { return e.Index }),
		union.Field[StreamEventVariant](func(e ContentBlockDeltaEvent) int { return e.Index }),
		union.Field[StreamEventVariant](func(e ContentBlockStopEvent) int { return e.Index }),
		union.Absent[StreamEventVariant, PingEvent, int](),
		union.Absent[StreamEventVariant, ErrorEvent, int](),
	)
)

// NewStreamEvent wraps a known event payload.
func NewStreamEvent(v StreamEventVariant) StreamEvent { return StreamEvent{union.Of(v)} }

// StreamEventRegistry returns the registry stream events decode through.
func StreamEventRegistry() *union.Registry[StreamEventVariant] { return streamEvents }

// DecodeStreamEvent decodes the data of one server-sent event.
func DecodeStreamEvent(data []byte) (StreamEvent, error) {
	v, err := streamEvents.Decode(data)
	if err != nil {
		return StreamEvent{}, err
	}
	return StreamEvent{v}, nil
}

// DecodeStreamEventStrict decodes one event and rejects types this package
// does not know, both for the event and for the content blocks and deltas it
// carries.
func DecodeStreamEventStrict(data []byte) (StreamEvent, error) {
	ev, err := DecodeStreamEvent(data)
	if err != nil {
		return StreamEvent{}, err
	}
	if err := ev.ValidateKnown(); err != nil {
		return StreamEvent{}, err
	}
	return ev, nil
}

// ValidateKnown returns union.ErrSchemaMismatch when e, or a content block or
// delta nested in it, has a type this package does not know. Error details
// are not checked: an error event of a new type still reports the failure.
func (e StreamEvent) ValidateKnown() error {
	if err := streamEvents.Validate(e.Value); err != nil {
		return err
	}
	v, _ := e.Known()
	switch ev := v.(type) {
	case MessageStartEvent:
		if err := ev.Message.ValidateKnown(); err != nil {
			return fmt.Errorf("message_start: message: %w", err)
		}
	case ContentBlockStartEvent:
		if err := contentBlocks.Validate(ev.ContentBlock.Value); err != nil {
			return fmt.Errorf("content_block_start: index %d: %w", ev.Index, err)
		}
	case ContentBlockDeltaEvent:
		if err := contentBlockDeltas.Validate(ev.Delta.Value); err != nil {
			return fmt.Errorf("content_block_delta: index %d: %w", ev.Index, err)
		}
	}
	return nil
}

// UnmarshalJSON decodes the event named by "type".
func (e *StreamEvent) UnmarshalJSON(data []byte) error {
	return decodeInto(streamEvents, data, &e.Value)
}

// Type returns the event type, including the captured type of unknown
// events.
func (e StreamEvent) Type() string {
	tag, _ := streamEvents.TagOf(e.Value)
	return tag
}

// Index returns the content block index of content block events.
func (e StreamEvent) Index() (int, bool) { return eventIndex.Get(e.Value) }

// SwitchStreamEvent dispatches the event to the handler of its variant.
// Handlers may be nil for events the caller ignores. Unknown events are
// passed to unknown when set and otherwise ignored.
func SwitchStreamEvent(e StreamEvent, h StreamHandlers) error {
	if e.IsUnknown() {
		if h.Unknown != nil {
			h.Unknown(e.UnknownTag(), e.Raw())
		}
		return nil
	}
	return union.Switch(e.Value,
		union.Do[StreamEventVariant](orNoop(h.MessageStart)),
		union.Do[StreamEventVariant](orNoop(h.MessageDelta)),
		union.Do[StreamEventVariant](orNoop(h.MessageStop)),
		union.Do[StreamEventVariant](orNoop(h.ContentBlockStart)),
		union.Do[StreamEventVariant](orNoop(h.ContentBlockDelta)),
		union.Do[StreamEventVariant](orNoop(h.ContentBlockStop)),
		union.Do[StreamEventVariant](orNoop(h.Ping)),
		union.Do[StreamEventVariant](orNoop(h.Error)),
	)
}

// StreamHandlers lists the per-event callbacks of SwitchStreamEvent.
type StreamHandlers struct {
	MessageStart      func(MessageStartEvent)
	MessageDelta      func(MessageDeltaEvent)
	MessageStop       func(MessageStopEvent)
	ContentBlockStart func(ContentBlockStartEvent)
	ContentBlockDelta func(ContentBlockDeltaEvent)
	ContentBlockStop  func(ContentBlockStopEvent)
	Ping              func(PingEvent)
	Error             func(ErrorEvent)
	Unknown           func(eventType string, raw []byte)
}

func orNoop[V any](fn func(V)) func(V) {
	if fn == nil {
		return func(V) {}
	}
	return fn
}

// APIError returns the error carried by the event as an *APIError.
func (e ErrorEvent) APIError() *APIError {
	return &APIError{Detail: e.Error}
}

// UnmarshalJSON decodes the delta named by "type".
func (d *ContentBlockDelta) UnmarshalJSON(data []byte) error {
	return decodeInto(contentBlockDeltas, data, &d.Value)
}

// NewContentBlockDelta wraps a known delta.
func NewContentBlockDelta(v ContentBlockDeltaVariant) ContentBlockDelta {
	return ContentBlockDelta{union.Of(v)}
}

// Type returns the delta type, including the captured type of unknown
// deltas.
func (d ContentBlockDelta) Type() string {
	tag, _ := contentBlockDeltas.TagOf(d.Value)
	return tag
}

func (MessageStartEvent) isStreamEvent()      {}
func (MessageDeltaEvent) isStreamEvent()      {}
func (MessageStopEvent) isStreamEvent()       {}
func (ContentBlockStartEvent) isStreamEvent() {}
func (ContentBlockDeltaEvent) isStreamEvent() {}
func (ContentBlockStopEvent) isStreamEvent()  {}
func (PingEvent) isStreamEvent()              {}
func (ErrorEvent) isStreamEvent()             {}

func (TextDelta) isContentBlockDelta()      {}
func (InputJSONDelta) isContentBlockDelta() {}
func (CitationsDelta) isContentBlockDelta() {}
func (ThinkingDelta) isContentBlockDelta()  {}
func (SignatureDelta) isContentBlockDelta() {}

// MarshalJSON encodes the event with its "message_start" type.
func (e MessageStartEvent) MarshalJSON() ([]byte, error) {
	type alias MessageStartEvent
	return marshalTagged("message_start", alias(e))
}

// MarshalJSON encodes the event with its "message_delta" type.
func (e MessageDeltaEvent) MarshalJSON() ([]byte, error) {
	type alias MessageDeltaEvent
	return marshalTagged("message_delta", alias(e))
}

// MarshalJSON encodes the event with its "message_stop" type.
func (e MessageStopEvent) MarshalJSON() ([]byte, error) {
	type alias MessageStopEvent
	return marshalTagged("message_stop", alias(e))
}

// MarshalJSON encodes the event with its "content_block_start" type.
func (e ContentBlockStartEvent) MarshalJSON() ([]byte, error) {
	type alias ContentBlockStartEvent
	return marshalTagged("content_block_start", alias(e))
}

// Validate checks that the event opens a block.
func (e ContentBlockStartEvent) Validate() error {
	if e.Index < 0 {
		return errNegativeIndex
	}
	if e.ContentBlock.IsZero() {
		return errMissingField("content_block")
	}
	return nil
}

// MarshalJSON encodes the event with its "content_block_delta" type.
func (e ContentBlockDeltaEvent) MarshalJSON() ([]byte, error) {
	type alias ContentBlockDeltaEvent
	return marshalTagged("content_block_delta", alias(e))
}

// Validate checks that the event carries a delta.
func (e ContentBlockDeltaEvent) Validate() error {
	if e.Index < 0 {
		return errNegativeIndex
	}
	if e.Delta.IsZero() {
		return errMissingField("delta")
	}
	return nil
}

// MarshalJSON encodes the event with its "content_block_stop" type.
func (e ContentBlockStopEvent) MarshalJSON() ([]byte, error) {
	type alias ContentBlockStopEvent
	return marshalTagged("content_block_stop", alias(e))
}

// Validate rejects negative indexes.
func (e ContentBlockStopEvent) Validate() error {
	if e.Index < 0 {
		return errNegativeIndex
	}
	return nil
}

// MarshalJSON encodes the event with its "ping" type.
func (e PingEvent) MarshalJSON() ([]byte, error) {
	type alias PingEvent
	return marshalTagged("ping", alias(e))
}

// MarshalJSON encodes the event with its "error" type.
func (e ErrorEvent) MarshalJSON() ([]byte, error) {
	type alias ErrorEvent
	return marshalTagged("error", alias(e))
}

// Validate checks that the event carries an error object.
func (e ErrorEvent) Validate() error {
	if e.Error.IsZero() {
		return errMissingField("error")
	}
	return nil
}

// MarshalJSON encodes the delta with its "text_delta" type.
func (d TextDelta) MarshalJSON() ([]byte, error) {
	type alias TextDelta
	return marshalTagged("text_delta", alias(d))
}

// MarshalJSON encodes the delta with its "input_json_delta" type.
func (d InputJSONDelta) MarshalJSON() ([]byte, error) {
	type alias InputJSONDelta
	return marshalTagged("input_json_delta", alias(d))
}

// MarshalJSON encodes the delta with its "citations_delta" type.
func (d CitationsDelta) MarshalJSON() ([]byte, error) {
	type alias CitationsDelta
	return marshalTagged("citations_delta", alias(d))
}

// Validate checks that the delta carries a citation.
func (d CitationsDelta) Validate() error {
	if d.Citation.IsZero() {
		return errMissingField("citation")
	}
	return nil
}

// MarshalJSON encodes the delta with its "thinking_delta" type.
func (d ThinkingDelta) MarshalJSON() ([]byte, error) {
	type alias ThinkingDelta
	return marshalTagged("thinking_delta", alias(d))
}

// MarshalJSON encodes the delta with its "signature_delta" type.
func (d SignatureDelta) MarshalJSON() ([]byte, error) {
	type alias SignatureDelta
	return marshalTagged("signature_delta", alias(d))
}
