package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/anthropic-codec/runtime/jsonx"
	"goa.design/anthropic-codec/runtime/union"
)

func TestContentBlockDecodeSelectsVariant(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		typ     string
		text    string
		id      string
	}{
		{name: "text", payload: `{"type":"text","text":"hello"}`, typ: "text", text: "hello"},
		{name: "thinking", payload: `{"type":"thinking","thinking":"hmm","signature":"sig"}`, typ: "thinking"},
		{name: "redacted thinking", payload: `{"type":"redacted_thinking","data":"xyz"}`, typ: "redacted_thinking"},
		{name: "tool use", payload: `{"type":"tool_use","id":"toolu_1","name":"search","input":{"q":"go"}}`, typ: "tool_use", id: "toolu_1"},
		{name: "server tool use", payload: `{"type":"server_tool_use","id":"srvtoolu_1","name":"web_search","input":{}}`, typ: "server_tool_use", id: "srvtoolu_1"},
		{
			name:    "web search result",
			payload: `{"type":"web_search_tool_result","tool_use_id":"srvtoolu_1","content":[{"type":"web_search_result","encrypted_content":"e","page_age":null,"title":"Go","url":"https://go.dev"}]}`,
			typ:     "web_search_tool_result",
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			b, err := DecodeContentBlock([]byte(tt.payload))
			require.NoError(t, err)
			require.False(t, b.IsUnknown())
			require.Equal(t, tt.typ, b.Type())

			text, ok := b.Text()
			require.Equal(t, tt.text != "", ok)
			require.Equal(t, tt.text, text)

			id, ok := b.ID()
			require.Equal(t, tt.id != "", ok)
			require.Equal(t, tt.id, id)

			out, err := jsonx.Marshal(b)
			require.NoError(t, err)
			require.JSONEq(t, tt.payload, string(out))
		})
	}
}

func TestContentBlockUnknownPreserved(t *testing.T) {
	const raw = `{"type":"mcp_tool_use","id":"mcptoolu_1","server_name":"fs","input":{}}`
	b, err := DecodeContentBlock([]byte(raw))
	require.NoError(t, err)
	require.True(t, b.IsUnknown())
	require.Equal(t, "mcp_tool_use", b.Type())

	_, ok := b.ID()
	require.False(t, ok)

	out, err := json.Marshal(b)
	require.NoError(t, err)
	require.Equal(t, raw, string(out))
	require.ErrorIs(t, b.Validate(), union.ErrSchemaMismatch)

	_, err = MatchContentBlock(b,
		func(TextBlock) int { return 1 },
		func(ThinkingBlock) int { return 2 },
		func(RedactedThinkingBlock) int { return 3 },
		func(ToolUseBlock) int { return 4 },
		func(ServerToolUseBlock) int { return 5 },
		func(WebSearchToolResultBlock) int { return 6 },
	)
	require.ErrorIs(t, err, union.ErrUnmatchedVariant)
}

func TestContentBlockMatchInvokesOneHandler(t *testing.T) {
	b := NewContentBlock(ToolUseBlock{ID: "t1", Name: "calc", Input: json.RawMessage(`{"x":1}`)})
	got, err := MatchContentBlock(b,
		func(TextBlock) string { return "text" },
		func(ThinkingBlock) string { return "thinking" },
		func(RedactedThinkingBlock) string { return "redacted" },
		func(u ToolUseBlock) string { return "tool:" + u.Name },
		func(ServerToolUseBlock) string { return "server" },
		func(WebSearchToolResultBlock) string { return "search" },
	)
	require.NoError(t, err)
	require.Equal(t, "tool:calc", got)
}

func TestContentBlockMatchedTagDoesNotFallThrough(t *testing.T) {
	// Valid as a text block, but the tag names tool_use which requires an id.
	_, err := DecodeContentBlock([]byte(`{"type":"tool_use","text":"hi","name":"x"}`))
	require.ErrorIs(t, err, union.ErrVariantDecodeFailed)
	require.ErrorContains(t, err, "id is required")

	ue, ok := union.AsError(err)
	require.True(t, ok)
	require.Equal(t, "tool_use", ue.Tag())
	require.Equal(t, "ContentBlock", ue.Union())
}

func TestContentBlockDiscriminatorErrors(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{name: "missing", payload: `{"text":"hi"}`},
		{name: "number", payload: `{"type":7,"text":"hi"}`},
		{name: "null", payload: `{"type":null}`},
		{name: "array payload", payload: `[{"type":"text"}]`},
		{name: "malformed", payload: `{"type":"text"`},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeContentBlock([]byte(tt.payload))
			require.ErrorIs(t, err, union.ErrNoDiscriminatorFound)
		})
	}
}

func TestToolUseBlockEncodesEmptyInput(t *testing.T) {
	out, err := json.Marshal(NewContentBlock(ToolUseBlock{ID: "t", Name: "n"}))
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"tool_use","id":"t","name":"n","input":{}}`, string(out))
}

func TestTextBlockCitations(t *testing.T) {
	const payload = `{"type":"text","text":"Go is fun","citations":[
		{"type":"char_location","cited_text":"fun","document_index":2,"document_title":"Doc","start_char_index":6,"end_char_index":9},
		{"type":"web_search_result_location","cited_text":"go","encrypted_index":"ei","title":null,"url":"https://go.dev"}
	]}`
	b, err := DecodeContentBlock([]byte(payload))
	require.NoError(t, err)
	tb, ok := union.Pick[TextBlock](b.Value)
	require.True(t, ok)
	require.Len(t, tb.Citations, 2)

	first := tb.Citations[0]
	idx, ok := first.DocumentIndex()
	require.True(t, ok)
	require.Equal(t, 2, idx)
	title, ok := first.DocumentTitle()
	require.True(t, ok)
	require.Equal(t, "Doc", title)

	second := tb.Citations[1]
	_, ok = second.DocumentIndex()
	require.False(t, ok)
	_, ok = second.DocumentTitle()
	require.False(t, ok)
	cited, ok := second.CitedText()
	require.True(t, ok)
	require.Equal(t, "go", cited)
}

func TestCitationIsClosed(t *testing.T) {
	_, err := CitationRegistry().Decode([]byte(`{"type":"video_location","cited_text":"x"}`))
	require.ErrorIs(t, err, union.ErrUnrecognizedDiscriminator)

	var c Citation
	err = json.Unmarshal([]byte(`{"type":"video_location"}`), &c)
	require.ErrorContains(t, err, `unrecognized discriminator "video_location"`)
}

func TestMatchCitation(t *testing.T) {
	c := NewCitation(PageLocation{CitedText: "p", StartPageNumber: 1, EndPageNumber: 2})
	pages, err := MatchCitation(c,
		func(CharLocation) int { return 0 },
		func(p PageLocation) int { return p.EndPageNumber - p.StartPageNumber + 1 },
		func(ContentBlockLocation) int { return 0 },
		func(WebSearchResultLocation) int { return 0 },
		func(SearchResultLocation) int { return 0 },
	)
	require.NoError(t, err)
	require.Equal(t, 2, pages)
}

func TestWebSearchToolResultContentFallback(t *testing.T) {
	var list WebSearchToolResultContent
	require.NoError(t, json.Unmarshal([]byte(`[{"type":"web_search_result","encrypted_content":"e","title":"t","url":"u"}]`), &list))
	results, ok := union.Pick[WebSearchResults](list.Value)
	require.True(t, ok)
	require.Len(t, results, 1)
	require.Equal(t, "u", results[0].URL)

	var failed WebSearchToolResultContent
	require.NoError(t, json.Unmarshal([]byte(`{"type":"web_search_tool_result_error","error_code":"max_uses_exceeded"}`), &failed))
	e, ok := union.Pick[WebSearchToolResultError](failed.Value)
	require.True(t, ok)
	require.Equal(t, "max_uses_exceeded", e.ErrorCode)

	var bad WebSearchToolResultContent
	err := json.Unmarshal([]byte(`{"unexpected":true}`), &bad)
	require.ErrorContains(t, err, "no candidate matched: results: ")
	require.ErrorContains(t, err, "; error: error_code is required")
}

func TestWebSearchToolResultBlockRequiresContent(t *testing.T) {
	_, err := DecodeContentBlock([]byte(`{"type":"web_search_tool_result","tool_use_id":"s"}`))
	require.ErrorIs(t, err, union.ErrVariantDecodeFailed)
	require.ErrorContains(t, err, "content is required")
}
