package model

import (
	"encoding/json"
	"errors"

	"goa.design/anthropic-codec/runtime/union"
)

type (
	// ContentBlockVariant is implemented by every response content block.
	ContentBlockVariant interface{ isContentBlock() }

	// ContentBlock is one block of assistant output. The union is open: block
	// types added by the API decode to unknown values.
	ContentBlock struct {
		union.Value[ContentBlockVariant]
	}

	// TextBlock is generated text, optionally backed by citations.
	TextBlock struct {
		Text      string     `json:"text"`
		Citations []Citation `json:"citations,omitempty"`
	}

	// ThinkingBlock carries extended thinking output and its signature.
	ThinkingBlock struct {
		Thinking  string `json:"thinking"`
		Signature string `json:"signature"`
	}

	// RedactedThinkingBlock carries encrypted thinking output.
	RedactedThinkingBlock struct {
		Data string `json:"data"`
	}

	// ToolUseBlock requests a client tool invocation.
	ToolUseBlock struct {
		ID    string          `json:"id"`
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
	}

	// ServerToolUseBlock records a tool invocation executed by the API.
	ServerToolUseBlock struct {
		ID    string          `json:"id"`
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
	}

	// WebSearchToolResultBlock holds the outcome of a server web search.
	WebSearchToolResultBlock struct {
		ToolUseID string                     `json:"tool_use_id"`
		Content   WebSearchToolResultContent `json:"content"`
	}

	// WebSearchToolResultContentVariant is implemented by the two shapes a web
	// search outcome takes.
	WebSearchToolResultContentVariant interface{ isWebSearchToolResultContent() }

	// WebSearchToolResultContent is either a list of results or an error
	// object. There is no shared discriminator, so the shapes are probed in
	// order.
	WebSearchToolResultContent struct {
		union.Value[WebSearchToolResultContentVariant]
	}

	// WebSearchResults is the successful outcome of a web search.
	WebSearchResults []WebSearchResult

	// WebSearchResult is one page returned by a web search.
	WebSearchResult struct {
		EncryptedContent string  `json:"encrypted_content"`
		PageAge          *string `json:"page_age"`
		Title            string  `json:"title"`
		URL              string  `json:"url"`
	}

	// WebSearchToolResultError reports why a web search failed.
	WebSearchToolResultError struct {
		ErrorCode string `json:"error_code"`
	}
)

var (
	contentBlocks = union.NewKeyed("type", []union.Variant[ContentBlockVariant]{
		union.Case[ContentBlockVariant, TextBlock]("text"),
		union.Case[ContentBlockVariant, ThinkingBlock]("thinking"),
		union.Case[ContentBlockVariant, RedactedThinkingBlock]("redacted_thinking"),
		union.Case[ContentBlockVariant, ToolUseBlock]("tool_use"),
		union.Case[ContentBlockVariant, ServerToolUseBlock]("server_tool_use"),
		union.Case[ContentBlockVariant, WebSearchToolResultBlock]("web_search_tool_result"),
	}, union.Named("ContentBlock"), union.Open())

	contentBlockID = union.NewProjection(contentBlocks, "id",
		union.Absent[ContentBlockVariant, TextBlock, string](),
		union.Absent[ContentBlockVariant, ThinkingBlock, string](),
		union.Absent[ContentBlockVariant, RedactedThinkingBlock, string](),
		union.Field[ContentBlockVariant](func(b ToolUseBlock) string { return b.ID }),
		union.Field[ContentBlockVariant](func(b ServerToolUseBlock) string { return b.ID }),
		union.Absent[ContentBlockVariant, WebSearchToolResultBlock, string](),
	)

	contentBlockText = union.NewProjection(contentBlocks, "text",
		union.Field[ContentBlockVariant](func(b TextBlock) string { return b.Text }),
		union.Absent[ContentBlockVariant, ThinkingBlock, string](),
		union.Absent[ContentBlockVariant, RedactedThinkingBlock, string](),
		union.Absent[ContentBlockVariant, ToolUseBlock, string](),
		union.Absent[ContentBlockVariant, ServerToolUseBlock, string](),
		union.Absent[ContentBlockVariant, WebSearchToolResultBlock, string](),
	)

	contentBlockToolUseID = union.NewProjection(contentBlocks, "tool_use_id",
		union.Absent[ContentBlockVariant, TextBlock, string](),
		union.Absent[ContentBlockVariant, ThinkingBlock, string](),
		union.Absent[ContentBlockVariant, RedactedThinkingBlock, string](),
		union.Absent[ContentBlockVariant, ToolUseBlock, string](),
		union.Absent[ContentBlockVariant, ServerToolUseBlock, string](),
		union.Field[ContentBlockVariant](func(b WebSearchToolResultBlock) string { return b.ToolUseID }),
	)

	webSearchContents = union.NewFallback([]union.Variant[WebSearchToolResultContentVariant]{
		union.Shape[WebSearchToolResultContentVariant, WebSearchResults]("results"),
		union.Shape[WebSearchToolResultContentVariant, WebSearchToolResultError]("error"),
	}, union.Named("WebSearchToolResultContent"))
)

// NewContentBlock wraps a known content block variant.
func NewContentBlock(v ContentBlockVariant) ContentBlock {
	return ContentBlock{union.Of(v)}
}

// ContentBlockRegistry returns the registry content blocks decode through.
func ContentBlockRegistry() *union.Registry[ContentBlockVariant] { return contentBlocks }

// DecodeContentBlock decodes one content block.
func DecodeContentBlock(data []byte) (ContentBlock, error) {
	v, err := contentBlocks.Decode(data)
	if err != nil {
		return ContentBlock{}, err
	}
	return ContentBlock{v}, nil
}

// UnmarshalJSON decodes the block variant named by "type". JSON null is
// rejected.
func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	return decodeInto(contentBlocks, data, &b.Value)
}

// Type returns the discriminator of the held block, including the captured
// discriminator of unknown blocks.
func (b ContentBlock) Type() string {
	tag, _ := contentBlocks.TagOf(b.Value)
	return tag
}

// ID returns the identifier of tool use blocks.
func (b ContentBlock) ID() (string, bool) { return contentBlockID.Get(b.Value) }

// Text returns the text of text blocks.
func (b ContentBlock) Text() (string, bool) { return contentBlockText.Get(b.Value) }

// ToolUseID returns the tool use a result block answers.
func (b ContentBlock) ToolUseID() (string, bool) { return contentBlockToolUseID.Get(b.Value) }

// MatchContentBlock invokes the handler of the held variant. Unknown blocks
// yield union.ErrUnmatchedVariant; check IsUnknown first.
func MatchContentBlock[R any](b ContentBlock,
	text func(TextBlock) R,
	thinking func(ThinkingBlock) R,
	redactedThinking func(RedactedThinkingBlock) R,
	toolUse func(ToolUseBlock) R,
	serverToolUse func(ServerToolUseBlock) R,
	webSearchToolResult func(WebSearchToolResultBlock) R,
) (R, error) {
	return union.Match(b.Value,
		union.On[ContentBlockVariant](text),
		union.On[ContentBlockVariant](thinking),
		union.On[ContentBlockVariant](redactedThinking),
		union.On[ContentBlockVariant](toolUse),
		union.On[ContentBlockVariant](serverToolUse),
		union.On[ContentBlockVariant](webSearchToolResult),
	)
}

// NewWebSearchToolResultContent wraps a known web search outcome.
func NewWebSearchToolResultContent(v WebSearchToolResultContentVariant) WebSearchToolResultContent {
	return WebSearchToolResultContent{union.Of(v)}
}

// UnmarshalJSON probes the result list shape, then the error shape.
func (c *WebSearchToolResultContent) UnmarshalJSON(data []byte) error {
	return decodeInto(webSearchContents, data, &c.Value)
}

func (TextBlock) isContentBlock()                {}
func (ThinkingBlock) isContentBlock()            {}
func (RedactedThinkingBlock) isContentBlock()    {}
func (ToolUseBlock) isContentBlock()             {}
func (ServerToolUseBlock) isContentBlock()       {}
func (WebSearchToolResultBlock) isContentBlock() {}

func (WebSearchResults) isWebSearchToolResultContent()         {}
func (WebSearchToolResultError) isWebSearchToolResultContent() {}

// MarshalJSON encodes the block with its "text" discriminator.
func (b TextBlock) MarshalJSON() ([]byte, error) {
	type alias TextBlock
	return marshalTagged("text", alias(b))
}

// Validate rejects null citations.
func (b TextBlock) Validate() error { return requireElements("citations", b.Citations) }

// MarshalJSON encodes the block with its "thinking" discriminator.
func (b ThinkingBlock) MarshalJSON() ([]byte, error) {
	type alias ThinkingBlock
	return marshalTagged("thinking", alias(b))
}

// MarshalJSON encodes the block with its "redacted_thinking" discriminator.
func (b RedactedThinkingBlock) MarshalJSON() ([]byte, error) {
	type alias RedactedThinkingBlock
	return marshalTagged("redacted_thinking", alias(b))
}

// MarshalJSON encodes the block with its "tool_use" discriminator. A missing
// input encodes as an empty object.
func (b ToolUseBlock) MarshalJSON() ([]byte, error) {
	type alias ToolUseBlock
	if len(b.Input) == 0 {
		b.Input = json.RawMessage("{}")
	}
	return marshalTagged("tool_use", alias(b))
}

// Validate checks the fields a tool use needs to be answered.
func (b ToolUseBlock) Validate() error {
	return errors.Join(requireField("id", b.ID), requireField("name", b.Name))
}

// MarshalJSON encodes the block with its "server_tool_use" discriminator.
func (b ServerToolUseBlock) MarshalJSON() ([]byte, error) {
	type alias ServerToolUseBlock
	if len(b.Input) == 0 {
		b.Input = json.RawMessage("{}")
	}
	return marshalTagged("server_tool_use", alias(b))
}

// Validate checks the identifying fields.
func (b ServerToolUseBlock) Validate() error {
	return errors.Join(requireField("id", b.ID), requireField("name", b.Name))
}

// MarshalJSON encodes the block with its "web_search_tool_result"
// discriminator.
func (b WebSearchToolResultBlock) MarshalJSON() ([]byte, error) {
	type alias WebSearchToolResultBlock
	return marshalTagged("web_search_tool_result", alias(b))
}

// Validate checks that the block answers a tool use and carries an outcome.
func (b WebSearchToolResultBlock) Validate() error {
	if err := requireField("tool_use_id", b.ToolUseID); err != nil {
		return err
	}
	if b.Content.IsZero() {
		return errors.New("content is required")
	}
	return nil
}

// MarshalJSON encodes the result with its "web_search_result" discriminator.
func (r WebSearchResult) MarshalJSON() ([]byte, error) {
	type alias WebSearchResult
	return marshalTagged("web_search_result", alias(r))
}

// MarshalJSON encodes the error with its "web_search_tool_result_error"
// discriminator.
func (e WebSearchToolResultError) MarshalJSON() ([]byte, error) {
	type alias WebSearchToolResultError
	return marshalTagged("web_search_tool_result_error", alias(e))
}

// Validate rejects objects that are not web search errors.
func (e WebSearchToolResultError) Validate() error {
	return requireField("error_code", e.ErrorCode)
}
