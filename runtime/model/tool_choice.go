package model

import (
	"encoding/json"
	"errors"

	"goa.design/anthropic-codec/runtime/jsonx"
	"goa.design/anthropic-codec/runtime/union"
)

type (
	// ToolChoiceVariant is implemented by every tool choice mode.
	ToolChoiceVariant interface{ isToolChoice() }

	// ToolChoice controls how the model uses the tools offered to it.
	ToolChoice struct {
		union.Value[ToolChoiceVariant]
	}

	// ToolChoiceAuto lets the model decide whether to call a tool.
	ToolChoiceAuto struct {
		DisableParallelToolUse bool `json:"disable_parallel_tool_use,omitempty"`
	}

	// ToolChoiceAny forces the model to call one of the tools.
	ToolChoiceAny struct {
		DisableParallelToolUse bool `json:"disable_parallel_tool_use,omitempty"`
	}

	// ToolChoiceTool forces the model to call the named tool.
	ToolChoiceTool struct {
		Name                   string `json:"name"`
		DisableParallelToolUse bool   `json:"disable_parallel_tool_use,omitempty"`
	}

	// ToolChoiceNone prevents tool calls.
	ToolChoiceNone struct{}

	// ToolDefinition describes a client tool the model may call.
	ToolDefinition struct {
		Name         string          `json:"name"`
		Description  string          `json:"description,omitempty"`
		InputSchema  json.RawMessage `json:"input_schema"`
		CacheControl *CacheControl   `json:"cache_control,omitempty"`
	}
)

var toolChoices = union.NewKeyed("type", []union.Variant[ToolChoiceVariant]{
	union.Case[ToolChoiceVariant, ToolChoiceAuto]("auto"),
	union.Case[ToolChoiceVariant, ToolChoiceAny]("any"),
	union.Case[ToolChoiceVariant, ToolChoiceTool]("tool"),
	union.Case[ToolChoiceVariant, ToolChoiceNone]("none"),
}, union.Named("ToolChoice"))

// NewToolChoice wraps a known tool choice mode.
func NewToolChoice(v ToolChoiceVariant) ToolChoice { return ToolChoice{union.Of(v)} }

// UnmarshalJSON decodes the mode named by "type".
func (c *ToolChoice) UnmarshalJSON(data []byte) error {
	return decodeInto(toolChoices, data, &c.Value)
}

// Mode returns the discriminator of the held mode.
func (c ToolChoice) Mode() string {
	tag, _ := toolChoices.TagOf(c.Value)
	return tag
}

// ParallelToolUse reports whether the model may emit several tool calls in
// one turn. Calls are never made under ToolChoiceNone.
func (c ToolChoice) ParallelToolUse() bool {
	allowed, _ := union.Match(c.Value,
		union.On[ToolChoiceVariant](func(v ToolChoiceAuto) bool { return !v.DisableParallelToolUse }),
		union.On[ToolChoiceVariant](func(v ToolChoiceAny) bool { return !v.DisableParallelToolUse }),
		union.On[ToolChoiceVariant](func(v ToolChoiceTool) bool { return !v.DisableParallelToolUse }),
		union.On[ToolChoiceVariant](func(ToolChoiceNone) bool { return false }),
	)
	return allowed
}

func (ToolChoiceAuto) isToolChoice() {}
func (ToolChoiceAny) isToolChoice()  {}
func (ToolChoiceTool) isToolChoice() {}
func (ToolChoiceNone) isToolChoice() {}

// MarshalJSON encodes the mode with its "auto" discriminator.
func (c ToolChoiceAuto) MarshalJSON() ([]byte, error) {
	type alias ToolChoiceAuto
	return marshalTagged("auto", alias(c))
}

// MarshalJSON encodes the mode with its "any" discriminator.
func (c ToolChoiceAny) MarshalJSON() ([]byte, error) {
	type alias ToolChoiceAny
	return marshalTagged("any", alias(c))
}

// MarshalJSON encodes the mode with its "tool" discriminator.
func (c ToolChoiceTool) MarshalJSON() ([]byte, error) {
	type alias ToolChoiceTool
	return marshalTagged("tool", alias(c))
}

// Validate checks that a tool is named.
func (c ToolChoiceTool) Validate() error { return requireField("name", c.Name) }

// MarshalJSON encodes the mode with its "none" discriminator.
func (c ToolChoiceNone) MarshalJSON() ([]byte, error) {
	type alias ToolChoiceNone
	return marshalTagged("none", alias(c))
}

// Validate checks the tool name and that the input schema is an object.
func (d ToolDefinition) Validate() error {
	if err := requireField("name", d.Name); err != nil {
		return err
	}
	if jsonx.Kind(d.InputSchema) != '{' {
		return errors.New("input_schema must be a JSON object")
	}
	return nil
}
