package model

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/anthropic-codec/runtime/union"
)

func TestToolChoice(t *testing.T) {
	cases := []struct {
		payload  string
		mode     string
		parallel bool
	}{
		{payload: `{"type":"auto"}`, mode: "auto", parallel: true},
		{payload: `{"type":"any","disable_parallel_tool_use":true}`, mode: "any", parallel: false},
		{payload: `{"type":"tool","name":"calc"}`, mode: "tool", parallel: true},
		{payload: `{"type":"none"}`, mode: "none", parallel: false},
	}
	for _, tt := range cases {
		t.Run(tt.mode, func(t *testing.T) {
			var c ToolChoice
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &c))
			require.Equal(t, tt.mode, c.Mode())
			require.Equal(t, tt.parallel, c.ParallelToolUse())

			out, err := json.Marshal(c)
			require.NoError(t, err)
			require.JSONEq(t, tt.payload, string(out))
		})
	}

	var c ToolChoice
	require.ErrorContains(t, json.Unmarshal([]byte(`{"type":"tool"}`), &c), "name is required")
}

func TestToolDefinitionValidate(t *testing.T) {
	require.NoError(t, ToolDefinition{Name: "calc", InputSchema: json.RawMessage(` {"type":"object"}`)}.Validate())
	require.ErrorContains(t, ToolDefinition{Name: "calc", InputSchema: json.RawMessage(`[]`)}.Validate(), "input_schema")
	require.ErrorContains(t, ToolDefinition{InputSchema: json.RawMessage(`{}`)}.Validate(), "name is required")
}

func TestTextEditorCommandsDecodeOnCommandField(t *testing.T) {
	cases := []struct {
		name  string
		input string
		path  string
	}{
		{name: "view", input: `{"command":"view","path":"/src","view_range":[1,-1]}`, path: "/src"},
		{name: "create", input: `{"command":"create","path":"a.go","file_text":"package a\n"}`, path: "a.go"},
		{name: "str_replace", input: `{"command":"str_replace","path":"a.go","old_str":"a","new_str":"b"}`, path: "a.go"},
		{name: "insert", input: `{"command":"insert","path":"a.go","insert_line":0,"new_str":"// top\n"}`, path: "a.go"},
		{name: "undo_edit", input: `{"command":"undo_edit","path":"a.go"}`, path: "a.go"},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := FromToolUse(ToolUseBlock{ID: "toolu_1", Name: TextEditorToolName, Input: json.RawMessage(tt.input)})
			require.NoError(t, err)
			require.Equal(t, tt.name, cmd.Name())
			path, ok := cmd.Path()
			require.True(t, ok)
			require.Equal(t, tt.path, path)

			out, err := json.Marshal(cmd)
			require.NoError(t, err)
			require.JSONEq(t, tt.input, string(out))
		})
	}
}

func TestTextEditorCommandSchemas(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{name: "str_replace without old_str", input: `{"command":"str_replace","path":"a.go","new_str":"b"}`},
		{name: "insert before first line", input: `{"command":"insert","path":"a.go","insert_line":-1,"new_str":"x"}`},
		{name: "view with one bound", input: `{"command":"view","path":"a.go","view_range":[1]}`},
		{name: "create with empty path", input: `{"command":"create","path":"","file_text":""}`},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TextEditorCommandRegistry().Decode([]byte(tt.input))
			require.ErrorIs(t, err, union.ErrVariantDecodeFailed)
		})
	}

	_, err := TextEditorCommandRegistry().Decode([]byte(`{"type":"view","path":"a"}`))
	require.ErrorIs(t, err, union.ErrNoDiscriminatorFound)
	_, err = TextEditorCommandRegistry().Decode([]byte(`{"command":"delete","path":"a"}`))
	require.ErrorIs(t, err, union.ErrUnrecognizedDiscriminator)
}

func TestFromToolUseRejectsOtherTools(t *testing.T) {
	_, err := FromToolUse(ToolUseBlock{ID: "t", Name: "bash", Input: json.RawMessage(`{"command":"ls"}`)})
	require.ErrorContains(t, err, `tool "bash" is not the text editor`)

	_, err = FromToolUse(ToolUseBlock{ID: "toolu_9", Name: TextEditorToolName, Input: json.RawMessage(`{"command":"undo_edit"}`)})
	require.ErrorContains(t, err, "tool use toolu_9: ")
	require.ErrorIs(t, err, union.ErrVariantDecodeFailed)
}

func TestParseAPIError(t *testing.T) {
	e, err := ParseAPIError(529, []byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"},"request_id":"req_1"}`))
	require.NoError(t, err)
	require.Equal(t, "overloaded_error", e.Type())
	require.Equal(t, "Overloaded", e.Message())
	require.Equal(t, ErrorKindUnavailable, e.Kind())
	require.True(t, e.Retryable())
	require.Equal(t, "anthropic unavailable 529: overloaded_error: Overloaded (request req_1)", e.Error())

	wrapped := fmt.Errorf("messages.create: %w", e)
	got, ok := AsAPIError(wrapped)
	require.True(t, ok)
	require.Same(t, e, got)
}

func TestParseAPIErrorKinds(t *testing.T) {
	cases := []struct {
		typ       string
		kind      ErrorKind
		retryable bool
	}{
		{typ: "invalid_request_error", kind: ErrorKindInvalidRequest},
		{typ: "authentication_error", kind: ErrorKindAuth},
		{typ: "permission_error", kind: ErrorKindAuth},
		{typ: "not_found_error", kind: ErrorKindInvalidRequest},
		{typ: "request_too_large", kind: ErrorKindInvalidRequest},
		{typ: "rate_limit_error", kind: ErrorKindRateLimited, retryable: true},
		{typ: "api_error", kind: ErrorKindUnavailable, retryable: true},
		{typ: "overloaded_error", kind: ErrorKindUnavailable, retryable: true},
	}
	for _, tt := range cases {
		t.Run(tt.typ, func(t *testing.T) {
			e, err := ParseAPIError(0, []byte(`{"type":"error","error":{"type":"`+tt.typ+`","message":"m"}}`))
			require.NoError(t, err)
			require.Equal(t, tt.kind, e.Kind())
			require.Equal(t, tt.retryable, e.Retryable())
			require.Equal(t, "m", e.Message())
		})
	}
}

func TestParseAPIErrorUnknownType(t *testing.T) {
	e, err := ParseAPIError(402, []byte(`{"type":"error","error":{"type":"billing_error","message":"add credits"}}`))
	require.NoError(t, err)
	require.True(t, e.Detail.IsUnknown())
	require.Equal(t, "billing_error", e.Type())
	require.Equal(t, "add credits", e.Message())
	require.Equal(t, ErrorKindInvalidRequest, e.Kind())
	require.False(t, e.Retryable())

	e, err = ParseAPIError(503, []byte(`{"type":"error","error":{"type":"maintenance"}}`))
	require.NoError(t, err)
	require.Equal(t, ErrorKindUnavailable, e.Kind())
	require.Equal(t, "anthropic unavailable 503: maintenance: api error", e.Error())
}

func TestParseAPIErrorRejectsOtherPayloads(t *testing.T) {
	_, err := ParseAPIError(500, []byte(`<html>bad gateway</html>`))
	require.ErrorContains(t, err, "decode error payload")

	_, err = ParseAPIError(500, []byte(`{"type":"error"}`))
	require.ErrorContains(t, err, "missing error object")
}

func TestAPIErrorEncodes(t *testing.T) {
	out, err := json.Marshal(NewAPIError(RateLimitError{Message: "slow down"}, "req_2", 429))
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"},"request_id":"req_2"}`, string(out))
}
