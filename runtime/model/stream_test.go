package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/anthropic-codec/runtime/union"
)

// toolStream is a recorded stream that answers with text followed by a tool
// call whose input arrives in fragments.
var toolStream = []string{
	`{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-5","content":[],"stop_reason":null,"stop_sequence":null,"usage":{"input_tokens":25,"output_tokens":1}}}`,
	`{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
	`{"type":"ping"}`,
	`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Let me "}}`,
	`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"check."}}`,
	`{"type":"content_block_stop","index":0}`,
	`{"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"toolu_1","name":"get_weather","input":{}}}`,
	`{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":""}}`,
	`{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"{\"city\": \"Pa"}}`,
	`{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"ris\"}"}}`,
	`{"type":"content_block_stop","index":1}`,
	`{"type":"message_delta","delta":{"stop_reason":"tool_use","stop_sequence":null},"usage":{"output_tokens":89}}`,
	`{"type":"message_stop"}`,
}

func decodeAll(t *testing.T, payloads []string) []StreamEvent {
	t.Helper()
	events := make([]StreamEvent, 0, len(payloads))
	for _, p := range payloads {
		ev, err := DecodeStreamEvent([]byte(p))
		require.NoError(t, err, p)
		events = append(events, ev)
	}
	return events
}

func TestStreamEventTypesAndIndex(t *testing.T) {
	events := decodeAll(t, toolStream)
	var types []string
	var indexed int
	for _, ev := range events {
		types = append(types, ev.Type())
		if _, ok := ev.Index(); ok {
			indexed++
		}
	}
	require.Equal(t, []string{
		"message_start", "content_block_start", "ping", "content_block_delta", "content_block_delta",
		"content_block_stop", "content_block_start", "content_block_delta", "content_block_delta",
		"content_block_delta", "content_block_stop", "message_delta", "message_stop",
	}, types)
	require.Equal(t, 9, indexed)
}

func TestStreamEventRoundTrip(t *testing.T) {
	for _, p := range toolStream {
		ev, err := DecodeStreamEvent([]byte(p))
		require.NoError(t, err)
		out, err := json.Marshal(ev)
		require.NoError(t, err)
		require.JSONEq(t, p, string(out))
	}
}

func TestStreamEventUnknownAndStrict(t *testing.T) {
	const raw = `{"type":"content_block_checkpoint","index":3}`
	ev, err := DecodeStreamEvent([]byte(raw))
	require.NoError(t, err)
	require.True(t, ev.IsUnknown())
	require.Equal(t, "content_block_checkpoint", ev.Type())
	_, ok := ev.Index()
	require.False(t, ok)

	_, err = DecodeStreamEventStrict([]byte(raw))
	require.ErrorIs(t, err, union.ErrSchemaMismatch)

	_, err = DecodeStreamEventStrict([]byte(toolStream[0]))
	require.NoError(t, err)
}

func TestStreamEventStrictChecksNestedUnions(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		union   string
		tag     string
	}{
		{
			name:    "delta",
			payload: `{"type":"content_block_delta","index":2,"delta":{"type":"compaction_delta","summary":"x"}}`,
			union:   "ContentBlockDelta",
			tag:     "compaction_delta",
		},
		{
			name:    "content block",
			payload: `{"type":"content_block_start","index":0,"content_block":{"type":"mcp_tool_use","id":"m","name":"n","input":{}}}`,
			union:   "ContentBlock",
			tag:     "mcp_tool_use",
		},
		{
			name:    "message content",
			payload: `{"type":"message_start","message":{"id":"m","role":"assistant","model":"m","content":[{"type":"text","text":"a"},{"type":"container_upload","file_id":"f"}],"usage":{"input_tokens":0,"output_tokens":0}}}`,
			union:   "ContentBlock",
			tag:     "container_upload",
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeStreamEvent([]byte(tt.payload))
			require.NoError(t, err)

			_, err = DecodeStreamEventStrict([]byte(tt.payload))
			require.ErrorIs(t, err, union.ErrSchemaMismatch)
			ue, ok := union.AsError(err)
			require.True(t, ok)
			require.Equal(t, tt.union, ue.Union())
			require.Equal(t, tt.tag, ue.Tag())
		})
	}

	_, err := DecodeStreamEventStrict([]byte(`{"type":"content_block_start","index":1,"content_block":{"type":"mcp_tool_use"}}`))
	require.EqualError(t, err, `content_block_start: index 1: union ContentBlock: unknown variant "mcp_tool_use" does not conform`)

	for _, p := range toolStream {
		_, err := DecodeStreamEventStrict([]byte(p))
		require.NoError(t, err, p)
	}
	_, err = DecodeStreamEventStrict([]byte(`{"type":"error","error":{"type":"billing_error","message":"m"}}`))
	require.NoError(t, err)
}

func TestMessageValidateKnown(t *testing.T) {
	msg := Message{Content: []ContentBlock{NewContentBlock(TextBlock{Text: "a"})}}
	require.NoError(t, msg.ValidateKnown())

	b, err := DecodeContentBlock([]byte(`{"type":"container_upload","file_id":"f"}`))
	require.NoError(t, err)
	msg.Content = append(msg.Content, b)
	err = msg.ValidateKnown()
	require.ErrorIs(t, err, union.ErrSchemaMismatch)
	require.ErrorContains(t, err, "content[1]: union ContentBlock")
}

func TestStreamEventUnknownDelta(t *testing.T) {
	ev, err := DecodeStreamEvent([]byte(`{"type":"content_block_delta","index":0,"delta":{"type":"compaction_delta","summary":"x"}}`))
	require.NoError(t, err)
	d, ok := union.Pick[ContentBlockDeltaEvent](ev.Value)
	require.True(t, ok)
	require.True(t, d.Delta.IsUnknown())
	require.Equal(t, "compaction_delta", d.Delta.Type())
}

func TestStreamEventInvalidPayloads(t *testing.T) {
	_, err := DecodeStreamEvent([]byte(`{"type":"content_block_delta","index":0}`))
	require.ErrorIs(t, err, union.ErrVariantDecodeFailed)
	require.ErrorContains(t, err, "delta is required")

	_, err = DecodeStreamEvent([]byte(`{"type":"content_block_stop","index":-1}`))
	require.ErrorIs(t, err, union.ErrVariantDecodeFailed)

	_, err = DecodeStreamEvent([]byte(`{"index":0}`))
	require.ErrorIs(t, err, union.ErrNoDiscriminatorFound)
}

func TestSwitchStreamEvent(t *testing.T) {
	var got []string
	h := StreamHandlers{
		ContentBlockDelta: func(e ContentBlockDeltaEvent) {
			if d, ok := union.Pick[TextDelta](e.Delta.Value); ok {
				got = append(got, d.Text)
			}
		},
		Unknown: func(eventType string, raw []byte) { got = append(got, "?"+eventType) },
	}
	for _, ev := range decodeAll(t, toolStream) {
		require.NoError(t, SwitchStreamEvent(ev, h))
	}
	unknown, err := DecodeStreamEvent([]byte(`{"type":"later"}`))
	require.NoError(t, err)
	require.NoError(t, SwitchStreamEvent(unknown, h))
	require.Equal(t, []string{"Let me ", "check.", "?later"}, got)
}

func TestErrorEventSurfacesAPIError(t *testing.T) {
	ev, err := DecodeStreamEvent([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	require.NoError(t, err)
	e, ok := union.Pick[ErrorEvent](ev.Value)
	require.True(t, ok)
	apiErr := e.APIError()
	require.True(t, apiErr.Retryable())
	require.Equal(t, "Overloaded", apiErr.Message())
}

func TestAccumulatorBuildsMessage(t *testing.T) {
	acc := NewAccumulator()
	for _, ev := range decodeAll(t, toolStream) {
		require.NoError(t, acc.Add(ev))
	}
	require.True(t, acc.Done())

	msg := acc.Message()
	require.Equal(t, "msg_1", msg.ID)
	require.Equal(t, "Let me check.", msg.Text())
	require.NotNil(t, msg.StopReason)
	require.Equal(t, StopReasonToolUse, *msg.StopReason)
	require.Equal(t, 25, msg.Usage.InputTokens)
	require.Equal(t, 89, msg.Usage.OutputTokens)

	uses := msg.ToolUses()
	require.Len(t, uses, 1)
	require.Equal(t, "get_weather", uses[0].Name)
	require.JSONEq(t, `{"city":"Paris"}`, string(uses[0].Input))

	param, err := msg.Param()
	require.NoError(t, err)
	require.Equal(t, RoleAssistant, param.Role)
	require.Len(t, param.Content.Blocks(), 2)
}

func TestAccumulatorThinkingAndCitations(t *testing.T) {
	acc := NewAccumulator()
	for _, ev := range decodeAll(t, []string{
		`{"type":"message_start","message":{"id":"msg_2","role":"assistant","model":"m","content":[],"usage":{"input_tokens":1,"output_tokens":0}}}`,
		`{"type":"content_block_start","index":0,"content_block":{"type":"thinking","thinking":"","signature":""}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"thinking_delta","thinking":"step 1"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"signature_delta","signature":"sig"}}`,
		`{"type":"content_block_stop","index":0}`,
		`{"type":"content_block_start","index":1,"content_block":{"type":"text","text":""}}`,
		`{"type":"content_block_delta","index":1,"delta":{"type":"citations_delta","citation":{"type":"char_location","cited_text":"c","document_index":0,"document_title":null,"start_char_index":0,"end_char_index":1}}}`,
		`{"type":"content_block_delta","index":1,"delta":{"type":"text_delta","text":"cited"}}`,
		`{"type":"content_block_stop","index":1}`,
	}) {
		require.NoError(t, acc.Add(ev))
	}
	require.False(t, acc.Done())

	msg := acc.Message()
	thinking, ok := union.Pick[ThinkingBlock](msg.Content[0].Value)
	require.True(t, ok)
	require.Equal(t, ThinkingBlock{Thinking: "step 1", Signature: "sig"}, thinking)

	text, ok := union.Pick[TextBlock](msg.Content[1].Value)
	require.True(t, ok)
	require.Equal(t, "cited", text.Text)
	require.Len(t, text.Citations, 1)
}

func TestAccumulatorErrors(t *testing.T) {
	start := `{"type":"message_start","message":{"id":"m","role":"assistant","model":"m","content":[],"usage":{"input_tokens":0,"output_tokens":0}}}`
	cases := []struct {
		name   string
		events []string
		want   string
	}{
		{
			name:   "delta before start",
			events: []string{`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"x"}}`},
			want:   "message_start not received",
		},
		{
			name:   "out of order block",
			events: []string{start, `{"type":"content_block_start","index":1,"content_block":{"type":"text","text":""}}`},
			want:   "index 1 out of order, expected 0",
		},
		{
			name: "delta type mismatch",
			events: []string{start,
				`{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
				`{"type":"content_block_delta","index":0,"delta":{"type":"thinking_delta","thinking":"x"}}`,
			},
			want: "thinking_delta cannot apply to text block 0",
		},
		{
			name: "broken tool input",
			events: []string{start,
				`{"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"t","name":"n","input":{}}}`,
				`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"{\"a\":"}}`,
				`{"type":"content_block_stop","index":0}`,
			},
			want: "tool input is not valid JSON",
		},
		{
			name:   "stream error",
			events: []string{start, `{"type":"error","error":{"type":"api_error","message":"boom"}}`},
			want:   "api_error: boom",
		},
		{
			name:   "event after stop",
			events: []string{start, `{"type":"message_stop"}`, `{"type":"ping"}`},
			want:   "message already stopped",
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			acc := NewAccumulator()
			var err error
			for _, ev := range decodeAll(t, tt.events) {
				if err = acc.Add(ev); err != nil {
					break
				}
			}
			require.Error(t, err)
			require.True(t, strings.Contains(err.Error(), tt.want), err.Error())
		})
	}
}

func TestAccumulatorSkipsUnknownEvents(t *testing.T) {
	acc := NewAccumulator()
	for _, ev := range decodeAll(t, []string{
		toolStream[0],
		`{"type":"content_block_start","index":0,"content_block":{"type":"container_upload","file_id":"f"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"ignored"}}`,
		`{"type":"content_block_stop","index":0}`,
		`{"type":"message_annotation","note":"n"}`,
		`{"type":"message_stop"}`,
	}) {
		require.NoError(t, acc.Add(ev))
	}
	msg := acc.Message()
	require.Len(t, msg.Content, 1)
	require.True(t, msg.Content[0].IsUnknown())

	_, err := msg.Param()
	require.ErrorContains(t, err, `cannot replay "container_upload" block`)
}
