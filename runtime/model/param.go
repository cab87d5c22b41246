package model

import (
	"encoding/json"
	"errors"
	"fmt"

	"goa.design/anthropic-codec/runtime/union"
)

type (
	// ContentBlockParamVariant is implemented by every request content block.
	ContentBlockParamVariant interface{ isContentBlockParam() }

	// ContentBlockParam is one block of a request message. The union is
	// closed: requests only carry blocks this package knows how to build.
	ContentBlockParam struct {
		union.Value[ContentBlockParamVariant]
	}

	// CacheControl marks a prompt cache breakpoint.
	CacheControl struct {
		Type string `json:"type"`
		TTL  string `json:"ttl,omitempty"`
	}

	// TextBlockParam is request text.
	TextBlockParam struct {
		Text         string        `json:"text"`
		Citations    []Citation    `json:"citations,omitempty"`
		CacheControl *CacheControl `json:"cache_control,omitempty"`
	}

	// ImageBlockParam attaches an image.
	ImageBlockParam struct {
		Source       ImageSource   `json:"source"`
		CacheControl *CacheControl `json:"cache_control,omitempty"`
	}

	// DocumentBlockParam attaches a document the model may cite.
	DocumentBlockParam struct {
		Source       DocumentSource   `json:"source"`
		Title        string           `json:"title,omitempty"`
		Context      string           `json:"context,omitempty"`
		Citations    *CitationsConfig `json:"citations,omitempty"`
		CacheControl *CacheControl    `json:"cache_control,omitempty"`
	}

	// CitationsConfig enables citations for a document.
	CitationsConfig struct {
		Enabled bool `json:"enabled"`
	}

	// ToolUseBlockParam replays a tool call made by the assistant.
	ToolUseBlockParam struct {
		ID           string          `json:"id"`
		Name         string          `json:"name"`
		Input        json.RawMessage `json:"input"`
		CacheControl *CacheControl   `json:"cache_control,omitempty"`
	}

	// ToolResultBlockParam answers a tool call.
	ToolResultBlockParam struct {
		ToolUseID    string             `json:"tool_use_id"`
		Content      *ToolResultContent `json:"content,omitempty"`
		IsError      bool               `json:"is_error,omitempty"`
		CacheControl *CacheControl      `json:"cache_control,omitempty"`
	}

	// ThinkingBlockParam replays a thinking block from a previous turn.
	ThinkingBlockParam struct {
		Thinking  string `json:"thinking"`
		Signature string `json:"signature"`
	}

	// RedactedThinkingBlockParam replays a redacted thinking block.
	RedactedThinkingBlockParam struct {
		Data string `json:"data"`
	}

	// ImageSourceVariant is implemented by every image source.
	ImageSourceVariant interface{ isImageSource() }

	// ImageSource locates image bytes.
	ImageSource struct {
		union.Value[ImageSourceVariant]
	}

	// Base64ImageSource embeds the image.
	Base64ImageSource struct {
		MediaType string `json:"media_type"`
		Data      string `json:"data"`
	}

	// URLImageSource references a publicly reachable image.
	URLImageSource struct {
		URL string `json:"url"`
	}

	// DocumentSourceVariant is implemented by every document source.
	DocumentSourceVariant interface{ isDocumentSource() }

	// DocumentSource locates document content.
	DocumentSource struct {
		union.Value[DocumentSourceVariant]
	}

	// Base64PDFSource embeds a PDF.
	Base64PDFSource struct {
		MediaType string `json:"media_type"`
		Data      string `json:"data"`
	}

	// PlainTextSource embeds a plain text document.
	PlainTextSource struct {
		MediaType string `json:"media_type"`
		Data      string `json:"data"`
	}

	// URLPDFSource references a publicly reachable PDF.
	URLPDFSource struct {
		URL string `json:"url"`
	}

	// MessageContentVariant is implemented by the two shapes message content
	// takes on the wire.
	MessageContentVariant interface{ isMessageContent() }

	// MessageContent is either a bare string or a list of content blocks.
	MessageContent struct {
		union.Value[MessageContentVariant]
	}

	// ToolResultContentVariant is implemented by the two shapes tool result
	// content takes on the wire.
	ToolResultContentVariant interface{ isToolResultContent() }

	// ToolResultContent is either a bare string or a list of text and image
	// blocks.
	ToolResultContent struct {
		union.Value[ToolResultContentVariant]
	}

	// SystemPromptVariant is implemented by the two shapes a system prompt
	// takes on the wire.
	SystemPromptVariant interface{ isSystemPrompt() }

	// SystemPrompt is either a bare string or a list of text blocks.
	SystemPrompt struct {
		union.Value[SystemPromptVariant]
	}

	// TextContent is content given as a bare JSON string.
	TextContent string

	// BlockContent is content given as a list of blocks.
	BlockContent []ContentBlockParam

	// SystemBlocks is a system prompt given as a list of text blocks.
	SystemBlocks []TextBlockParam
)

var (
	contentBlockParams = union.NewKeyed("type", []union.Variant[ContentBlockParamVariant]{
		union.Case[ContentBlockParamVariant, TextBlockParam]("text"),
		union.Case[ContentBlockParamVariant, ImageBlockParam]("image"),
		union.Case[ContentBlockParamVariant, DocumentBlockParam]("document"),
		union.Case[ContentBlockParamVariant, ToolUseBlockParam]("tool_use"),
		union.Case[ContentBlockParamVariant, ToolResultBlockParam]("tool_result"),
		union.Case[ContentBlockParamVariant, ThinkingBlockParam]("thinking"),
		union.Case[ContentBlockParamVariant, RedactedThinkingBlockParam]("redacted_thinking"),
	}, union.Named("ContentBlockParam"))

	imageSources = union.NewKeyed("type", []union.Variant[ImageSourceVariant]{
		union.Case[ImageSourceVariant, Base64ImageSource]("base64"),
		union.Case[ImageSourceVariant, URLImageSource]("url"),
	}, union.Named("ImageSource"))

	documentSources = union.NewKeyed("type", []union.Variant[DocumentSourceVariant]{
		union.Case[DocumentSourceVariant, Base64PDFSource]("base64"),
		union.Case[DocumentSourceVariant, PlainTextSource]("text"),
		union.Case[DocumentSourceVariant, URLPDFSource]("url"),
	}, union.Named("DocumentSource"))

	messageContents = union.NewFallback([]union.Variant[MessageContentVariant]{
		union.Shape[MessageContentVariant, TextContent]("string"),
		union.Shape[MessageContentVariant, BlockContent]("blocks"),
	}, union.Named("MessageContent"))

	toolResultContents = union.NewFallback([]union.Variant[ToolResultContentVariant]{
		union.Shape[ToolResultContentVariant, TextContent]("string"),
		union.Shape[ToolResultContentVariant, BlockContent]("blocks"),
	}, union.Named("ToolResultContent"))

	systemPrompts = union.NewFallback([]union.Variant[SystemPromptVariant]{
		union.Shape[SystemPromptVariant, TextContent]("string"),
		union.Shape[SystemPromptVariant, SystemBlocks]("blocks"),
	}, union.Named("SystemPrompt"))

	paramCacheControl = union.NewProjection(contentBlockParams, "cache_control",
		union.Map[ContentBlockParamVariant](func(b TextBlockParam) (*CacheControl, bool) { return b.CacheControl, b.CacheControl != nil }),
		union.Map[ContentBlockParamVariant](func(b ImageBlockParam) (*CacheControl, bool) { return b.CacheControl, b.CacheControl != nil }),
		union.Map[ContentBlockParamVariant](func(b DocumentBlockParam) (*CacheControl, bool) { return b.CacheControl, b.CacheControl != nil }),
		union.Map[ContentBlockParamVariant](func(b ToolUseBlockParam) (*CacheControl, bool) { return b.CacheControl, b.CacheControl != nil }),
		union.Map[ContentBlockParamVariant](func(b ToolResultBlockParam) (*CacheControl, bool) { return b.CacheControl, b.CacheControl != nil }),
		union.Absent[ContentBlockParamVariant, ThinkingBlockParam, *CacheControl](),
		union.Absent[ContentBlockParamVariant, RedactedThinkingBlockParam, *CacheControl](),
	)
)

// NewContentBlockParam wraps a known request block.
func NewContentBlockParam(v ContentBlockParamVariant) ContentBlockParam {
	return ContentBlockParam{union.Of(v)}
}

// NewTextBlockParam returns a text request block.
func NewTextBlockParam(text string) ContentBlockParam {
	return NewContentBlockParam(TextBlockParam{Text: text})
}

// NewToolResultBlockParam returns a tool result answering toolUseID with
// text content.
func NewToolResultBlockParam(toolUseID, content string, isError bool) ContentBlockParam {
	c := NewToolResultText(content)
	return NewContentBlockParam(ToolResultBlockParam{ToolUseID: toolUseID, Content: &c, IsError: isError})
}

// ContentBlockParamRegistry returns the registry request blocks decode
// through.
func ContentBlockParamRegistry() *union.Registry[ContentBlockParamVariant] {
	return contentBlockParams
}

// UnmarshalJSON decodes the block variant named by "type". JSON null is
// rejected.
func (b *ContentBlockParam) UnmarshalJSON(data []byte) error {
	return decodeInto(contentBlockParams, data, &b.Value)
}

// CacheControl returns the cache breakpoint set on the block.
func (b ContentBlockParam) CacheControl() (*CacheControl, bool) {
	return paramCacheControl.Get(b.Value)
}

// NewImageSource wraps a known image source.
func NewImageSource(v ImageSourceVariant) ImageSource { return ImageSource{union.Of(v)} }

// UnmarshalJSON decodes the source variant named by "type".
func (s *ImageSource) UnmarshalJSON(data []byte) error {
	return decodeInto(imageSources, data, &s.Value)
}

// NewDocumentSource wraps a known document source.
func NewDocumentSource(v DocumentSourceVariant) DocumentSource {
	return DocumentSource{union.Of(v)}
}

// UnmarshalJSON decodes the source variant named by "type".
func (s *DocumentSource) UnmarshalJSON(data []byte) error {
	return decodeInto(documentSources, data, &s.Value)
}

// NewMessageText returns message content given as a bare string.
func NewMessageText(text string) MessageContent {
	return MessageContent{union.Of[MessageContentVariant](TextContent(text))}
}

// NewMessageBlocks returns message content given as a list of blocks.
func NewMessageBlocks(blocks ...ContentBlockParam) MessageContent {
	return MessageContent{union.Of[MessageContentVariant](BlockContent(blocks))}
}

// UnmarshalJSON tries the string shape, then the block list shape.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	return decodeInto(messageContents, data, &c.Value)
}

// Blocks returns the content as blocks, promoting a bare string to a single
// text block.
func (c MessageContent) Blocks() []ContentBlockParam {
	if s, ok := union.Pick[TextContent](c.Value); ok {
		return []ContentBlockParam{NewTextBlockParam(string(s))}
	}
	blocks, _ := union.Pick[BlockContent](c.Value)
	return blocks
}

// NewToolResultText returns tool result content given as a bare string.
func NewToolResultText(text string) ToolResultContent {
	return ToolResultContent{union.Of[ToolResultContentVariant](TextContent(text))}
}

// NewToolResultBlocks returns tool result content given as blocks.
func NewToolResultBlocks(blocks ...ContentBlockParam) ToolResultContent {
	return ToolResultContent{union.Of[ToolResultContentVariant](BlockContent(blocks))}
}

// UnmarshalJSON tries the string shape, then the block list shape.
func (c *ToolResultContent) UnmarshalJSON(data []byte) error {
	return decodeInto(toolResultContents, data, &c.Value)
}

// NewSystemText returns a system prompt given as a bare string.
func NewSystemText(text string) SystemPrompt {
	return SystemPrompt{union.Of[SystemPromptVariant](TextContent(text))}
}

// NewSystemBlocks returns a system prompt given as text blocks.
func NewSystemBlocks(blocks ...TextBlockParam) SystemPrompt {
	return SystemPrompt{union.Of[SystemPromptVariant](SystemBlocks(blocks))}
}

// UnmarshalJSON tries the string shape, then the text block list shape.
func (p *SystemPrompt) UnmarshalJSON(data []byte) error {
	return decodeInto(systemPrompts, data, &p.Value)
}

// Text concatenates the prompt text, separating blocks with a blank line.
func (p SystemPrompt) Text() string {
	if s, ok := union.Pick[TextContent](p.Value); ok {
		return string(s)
	}
	blocks, _ := union.Pick[SystemBlocks](p.Value)
	var out []byte
	for i, b := range blocks {
		if i > 0 {
			out = append(out, "\n\n"...)
		}
		out = append(out, b.Text...)
	}
	return string(out)
}

func (TextBlockParam) isContentBlockParam()             {}
func (ImageBlockParam) isContentBlockParam()            {}
func (DocumentBlockParam) isContentBlockParam()         {}
func (ToolUseBlockParam) isContentBlockParam()          {}
func (ToolResultBlockParam) isContentBlockParam()       {}
func (ThinkingBlockParam) isContentBlockParam()         {}
func (RedactedThinkingBlockParam) isContentBlockParam() {}

func (Base64ImageSource) isImageSource() {}
func (URLImageSource) isImageSource()    {}

func (Base64PDFSource) isDocumentSource() {}
func (PlainTextSource) isDocumentSource() {}
func (URLPDFSource) isDocumentSource()    {}

func (TextContent) isMessageContent()     {}
func (BlockContent) isMessageContent()    {}
func (TextContent) isToolResultContent()  {}
func (BlockContent) isToolResultContent() {}
func (TextContent) isSystemPrompt()       {}
func (SystemBlocks) isSystemPrompt()      {}

// MarshalJSON encodes the block with its "text" discriminator.
func (b TextBlockParam) MarshalJSON() ([]byte, error) {
	type alias TextBlockParam
	return marshalTagged("text", alias(b))
}

// Validate rejects null citations.
func (b TextBlockParam) Validate() error { return requireElements("citations", b.Citations) }

// Validate rejects null blocks.
func (c BlockContent) Validate() error { return requireElements("content", c) }

// Validate checks every text block of the prompt.
func (s SystemBlocks) Validate() error {
	for i, b := range s {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("system[%d]: %w", i, err)
		}
	}
	return nil
}

// MarshalJSON encodes the block with its "image" discriminator.
func (b ImageBlockParam) MarshalJSON() ([]byte, error) {
	type alias ImageBlockParam
	return marshalTagged("image", alias(b))
}

// Validate checks that the image has a source.
func (b ImageBlockParam) Validate() error {
	if b.Source.IsZero() {
		return errors.New("source is required")
	}
	return nil
}

// MarshalJSON encodes the block with its "document" discriminator.
func (b DocumentBlockParam) MarshalJSON() ([]byte, error) {
	type alias DocumentBlockParam
	return marshalTagged("document", alias(b))
}

// Validate checks that the document has a source.
func (b DocumentBlockParam) Validate() error {
	if b.Source.IsZero() {
		return errors.New("source is required")
	}
	return nil
}

// MarshalJSON encodes the block with its "tool_use" discriminator.
func (b ToolUseBlockParam) MarshalJSON() ([]byte, error) {
	type alias ToolUseBlockParam
	if len(b.Input) == 0 {
		b.Input = json.RawMessage("{}")
	}
	return marshalTagged("tool_use", alias(b))
}

// Validate checks the identifying fields.
func (b ToolUseBlockParam) Validate() error {
	return errors.Join(requireField("id", b.ID), requireField("name", b.Name))
}

// MarshalJSON encodes the block with its "tool_result" discriminator.
func (b ToolResultBlockParam) MarshalJSON() ([]byte, error) {
	type alias ToolResultBlockParam
	return marshalTagged("tool_result", alias(b))
}

// Validate checks that the result names its tool use and only carries text
// and image blocks.
func (b ToolResultBlockParam) Validate() error {
	if err := requireField("tool_use_id", b.ToolUseID); err != nil {
		return err
	}
	if b.Content == nil {
		return nil
	}
	blocks, _ := union.Pick[BlockContent](b.Content.Value)
	for i, block := range blocks {
		switch v, _ := block.Known(); v.(type) {
		case TextBlockParam, ImageBlockParam:
		default:
			tag, _ := contentBlockParams.TagOf(block.Value)
			return fmt.Errorf("content[%d]: %q blocks are not allowed in tool results", i, tag)
		}
	}
	return nil
}

// MarshalJSON encodes the block with its "thinking" discriminator.
func (b ThinkingBlockParam) MarshalJSON() ([]byte, error) {
	type alias ThinkingBlockParam
	return marshalTagged("thinking", alias(b))
}

// MarshalJSON encodes the block with its "redacted_thinking" discriminator.
func (b RedactedThinkingBlockParam) MarshalJSON() ([]byte, error) {
	type alias RedactedThinkingBlockParam
	return marshalTagged("redacted_thinking", alias(b))
}

// MarshalJSON encodes the source with its "base64" discriminator.
func (s Base64ImageSource) MarshalJSON() ([]byte, error) {
	type alias Base64ImageSource
	return marshalTagged("base64", alias(s))
}

// Validate checks the media type against the formats the API accepts.
func (s Base64ImageSource) Validate() error {
	switch s.MediaType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return nil
	}
	return fmt.Errorf("unsupported image media type %q", s.MediaType)
}

// MarshalJSON encodes the source with its "url" discriminator.
func (s URLImageSource) MarshalJSON() ([]byte, error) {
	type alias URLImageSource
	return marshalTagged("url", alias(s))
}

// Validate checks that the URL is set.
func (s URLImageSource) Validate() error { return requireField("url", s.URL) }

// MarshalJSON encodes the source with its "base64" discriminator.
func (s Base64PDFSource) MarshalJSON() ([]byte, error) {
	type alias Base64PDFSource
	return marshalTagged("base64", alias(s))
}

// MarshalJSON encodes the source with its "text" discriminator.
func (s PlainTextSource) MarshalJSON() ([]byte, error) {
	type alias PlainTextSource
	return marshalTagged("text", alias(s))
}

// MarshalJSON encodes the source with its "url" discriminator.
func (s URLPDFSource) MarshalJSON() ([]byte, error) {
	type alias URLPDFSource
	return marshalTagged("url", alias(s))
}

// Validate checks that the URL is set.
func (s URLPDFSource) Validate() error { return requireField("url", s.URL) }

// decodeInto decodes data through reg and stores the result in dst. JSON null
// is rejected like any other payload the registry cannot decode: optional
// unions are pointer fields, which the JSON decoder sets to nil without
// calling UnmarshalJSON.
func decodeInto[T any](reg *union.Registry[T], data []byte, dst *union.Value[T]) error {
	v, err := reg.Decode(data)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
