package model

import (
	"errors"
	"fmt"

	"goa.design/anthropic-codec/runtime/jsonx"
	"goa.design/anthropic-codec/runtime/union"
)

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Stop reasons reported by the API.
const (
	StopReasonEndTurn      = "end_turn"
	StopReasonMaxTokens    = "max_tokens"
	StopReasonStopSequence = "stop_sequence"
	StopReasonToolUse      = "tool_use"
	StopReasonPauseTurn    = "pause_turn"
	StopReasonRefusal      = "refusal"
)

type (
	// Message is a response of the Messages API.
	Message struct {
		ID           string         `json:"id"`
		Role         string         `json:"role"`
		Model        string         `json:"model"`
		Content      []ContentBlock `json:"content"`
		StopReason   *string        `json:"stop_reason"`
		StopSequence *string        `json:"stop_sequence"`
		Usage        Usage          `json:"usage"`
	}

	// Usage reports token counts billed for a message.
	Usage struct {
		InputTokens              int                 `json:"input_tokens"`
		OutputTokens             int                 `json:"output_tokens"`
		CacheCreationInputTokens int                 `json:"cache_creation_input_tokens,omitempty"`
		CacheReadInputTokens     int                 `json:"cache_read_input_tokens,omitempty"`
		ServerToolUse            *ServerToolUseUsage `json:"server_tool_use,omitempty"`
		ServiceTier              string              `json:"service_tier,omitempty"`
	}

	// ServerToolUseUsage counts server tool invocations.
	ServerToolUseUsage struct {
		WebSearchRequests int `json:"web_search_requests"`
	}

	// MessageParam is one turn of a request conversation.
	MessageParam struct {
		Role    string         `json:"role"`
		Content MessageContent `json:"content"`
	}

	// MessageRequest is the body of a Messages API call.
	MessageRequest struct {
		Model         string           `json:"model"`
		MaxTokens     int              `json:"max_tokens"`
		Messages      []MessageParam   `json:"messages"`
		System        *SystemPrompt    `json:"system,omitempty"`
		Tools         []ToolDefinition `json:"tools,omitempty"`
		ToolChoice    *ToolChoice      `json:"tool_choice,omitempty"`
		Thinking      *ThinkingConfig  `json:"thinking,omitempty"`
		Temperature   *float64         `json:"temperature,omitempty"`
		StopSequences []string         `json:"stop_sequences,omitempty"`
		Stream        bool             `json:"stream,omitempty"`
	}

	// ThinkingConfigVariant is implemented by every thinking configuration.
	ThinkingConfigVariant interface{ isThinkingConfig() }

	// ThinkingConfig enables or disables extended thinking.
	ThinkingConfig struct {
		union.Value[ThinkingConfigVariant]
	}

	// ThinkingEnabled turns extended thinking on with a token budget.
	ThinkingEnabled struct {
		BudgetTokens int `json:"budget_tokens"`
	}

	// ThinkingDisabled turns extended thinking off.
	ThinkingDisabled struct{}
)

var thinkingConfigs = union.NewKeyed("type", []union.Variant[ThinkingConfigVariant]{
	union.Case[ThinkingConfigVariant, ThinkingEnabled]("enabled"),
	union.Case[ThinkingConfigVariant, ThinkingDisabled]("disabled"),
}, union.Named("ThinkingConfig"))

// NewUserMessage returns a user turn made of the given blocks.
func NewUserMessage(blocks ...ContentBlockParam) MessageParam {
	return MessageParam{Role: RoleUser, Content: NewMessageBlocks(blocks...)}
}

// NewAssistantMessage returns an assistant turn made of the given blocks.
func NewAssistantMessage(blocks ...ContentBlockParam) MessageParam {
	return MessageParam{Role: RoleAssistant, Content: NewMessageBlocks(blocks...)}
}

// MarshalJSON encodes the message with its "message" type.
func (m Message) MarshalJSON() ([]byte, error) {
	type alias Message
	if m.Content == nil {
		m.Content = []ContentBlock{}
	}
	return marshalTagged("message", alias(m))
}

// UnmarshalJSON decodes the message and rejects null content blocks.
func (m *Message) UnmarshalJSON(data []byte) error {
	type alias Message
	var a alias
	if err := jsonx.Unmarshal(data, &a); err != nil {
		return err
	}
	if err := requireElements("content", a.Content); err != nil {
		return err
	}
	*m = Message(a)
	return nil
}

// ValidateKnown returns union.ErrSchemaMismatch when a content block of m has
// a type this package does not know.
func (m Message) ValidateKnown() error {
	for i, b := range m.Content {
		if err := contentBlocks.Validate(b.Value); err != nil {
			return fmt.Errorf("content[%d]: %w", i, err)
		}
	}
	return nil
}

// Text concatenates the text blocks of the message.
func (m Message) Text() string {
	var out []byte
	for _, b := range m.Content {
		if t, ok := b.Text(); ok {
			out = append(out, t...)
		}
	}
	return string(out)
}

// ToolUses returns the tool use blocks of the message in order.
func (m Message) ToolUses() []ToolUseBlock {
	var uses []ToolUseBlock
	for _, b := range m.Content {
		if u, ok := union.Pick[ToolUseBlock](b.Value); ok {
			uses = append(uses, u)
		}
	}
	return uses
}

// Param converts the response into an assistant turn that can be sent back
// in the next request. Unknown blocks cannot be replayed and are reported.
func (m Message) Param() (MessageParam, error) {
	blocks := make([]ContentBlockParam, 0, len(m.Content))
	for i, b := range m.Content {
		if b.IsUnknown() {
			return MessageParam{}, fmt.Errorf("content[%d]: cannot replay %q block", i, b.UnknownTag())
		}
		p, err := MatchContentBlock(b,
			func(v TextBlock) ContentBlockParam {
				return NewContentBlockParam(TextBlockParam{Text: v.Text, Citations: v.Citations})
			},
			func(v ThinkingBlock) ContentBlockParam {
				return NewContentBlockParam(ThinkingBlockParam(v))
			},
			func(v RedactedThinkingBlock) ContentBlockParam {
				return NewContentBlockParam(RedactedThinkingBlockParam(v))
			},
			func(v ToolUseBlock) ContentBlockParam {
				return NewContentBlockParam(ToolUseBlockParam{ID: v.ID, Name: v.Name, Input: v.Input})
			},
			func(ServerToolUseBlock) ContentBlockParam { return ContentBlockParam{} },
			func(WebSearchToolResultBlock) ContentBlockParam { return ContentBlockParam{} },
		)
		if err != nil {
			return MessageParam{}, fmt.Errorf("content[%d]: %w", i, err)
		}
		if p.IsZero() {
			// Server tool blocks are replayed by the API itself.
			continue
		}
		blocks = append(blocks, p)
	}
	return NewAssistantMessage(blocks...), nil
}

// Validate checks the role and that content is set.
func (p MessageParam) Validate() error {
	if p.Role != RoleUser && p.Role != RoleAssistant {
		return fmt.Errorf("invalid role %q", p.Role)
	}
	if p.Content.IsZero() {
		return errMissingField("content")
	}
	return nil
}

// Validate checks the request envelope and every nested union value.
func (r MessageRequest) Validate() error {
	var errs []error
	if err := requireField("model", r.Model); err != nil {
		errs = append(errs, err)
	}
	if r.MaxTokens <= 0 {
		errs = append(errs, errors.New("max_tokens must be positive"))
	}
	if len(r.Messages) == 0 {
		errs = append(errs, errMissingField("messages"))
	}
	for i, m := range r.Messages {
		if err := m.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("messages[%d]: %w", i, err))
		}
	}
	for i, t := range r.Tools {
		if err := t.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("tools[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// NewThinkingConfig wraps a known thinking configuration.
func NewThinkingConfig(v ThinkingConfigVariant) ThinkingConfig {
	return ThinkingConfig{union.Of(v)}
}

// UnmarshalJSON decodes the configuration named by "type".
func (c *ThinkingConfig) UnmarshalJSON(data []byte) error {
	return decodeInto(thinkingConfigs, data, &c.Value)
}

func (ThinkingEnabled) isThinkingConfig()  {}
func (ThinkingDisabled) isThinkingConfig() {}

// MarshalJSON encodes the configuration with its "enabled" type.
func (c ThinkingEnabled) MarshalJSON() ([]byte, error) {
	type alias ThinkingEnabled
	return marshalTagged("enabled", alias(c))
}

// Validate enforces the minimum thinking budget.
func (c ThinkingEnabled) Validate() error {
	if c.BudgetTokens < 1024 {
		return fmt.Errorf("budget_tokens must be at least 1024, got %d", c.BudgetTokens)
	}
	return nil
}

// MarshalJSON encodes the configuration with its "disabled" type.
func (c ThinkingDisabled) MarshalJSON() ([]byte, error) {
	type alias ThinkingDisabled
	return marshalTagged("disabled", alias(c))
}
