package model

import (
	"fmt"

	"goa.design/anthropic-codec/runtime/union"
)

type (
	// TextEditorCommandVariant is implemented by every text editor tool
	// command.
	TextEditorCommandVariant interface{ isTextEditorCommand() }

	// TextEditorCommand is the input of a text editor tool call. Commands are
	// discriminated by their "command" field rather than "type".
	TextEditorCommand struct {
		union.Value[TextEditorCommandVariant]
	}

	// ViewCommand displays a file or lists a directory.
	ViewCommand struct {
		Path      string `json:"path"`
		ViewRange []int  `json:"view_range,omitempty"`
	}

	// CreateCommand writes a new file.
	CreateCommand struct {
		Path     string `json:"path"`
		FileText string `json:"file_text"`
	}

	// StrReplaceCommand replaces one exact occurrence of OldStr.
	StrReplaceCommand struct {
		Path   string `json:"path"`
		OldStr string `json:"old_str"`
		NewStr string `json:"new_str"`
	}

	// InsertCommand inserts text after a line. Line 0 inserts at the top of
	// the file.
	InsertCommand struct {
		Path       string `json:"path"`
		InsertLine int    `json:"insert_line"`
		NewStr     string `json:"new_str"`
	}

	// UndoEditCommand reverts the last edit made to a file.
	UndoEditCommand struct {
		Path string `json:"path"`
	}
)

// TextEditorToolName is the name the API gives text editor tool calls.
const TextEditorToolName = "str_replace_based_edit_tool"

const (
	viewSchema = `{
		"type": "object",
		"required": ["command", "path"],
		"properties": {
			"command": {"const": "view"},
			"path": {"type": "string", "minLength": 1},
			"view_range": {
				"type": "array",
				"items": {"type": "integer", "minimum": -1},
				"minItems": 2,
				"maxItems": 2
			}
		}
	}`
	createSchema = `{
		"type": "object",
		"required": ["command", "path", "file_text"],
		"properties": {
			"command": {"const": "create"},
			"path": {"type": "string", "minLength": 1},
			"file_text": {"type": "string"}
		}
	}`
	strReplaceSchema = `{
		"type": "object",
		"required": ["command", "path", "old_str"],
		"properties": {
			"command": {"const": "str_replace"},
			"path": {"type": "string", "minLength": 1},
			"old_str": {"type": "string", "minLength": 1},
			"new_str": {"type": "string"}
		}
	}`
	insertSchema = `{
		"type": "object",
		"required": ["command", "path", "insert_line", "new_str"],
		"properties": {
			"command": {"const": "insert"},
			"path": {"type": "string", "minLength": 1},
			"insert_line": {"type": "integer", "minimum": 0},
			"new_str": {"type": "string"}
		}
	}`
	undoEditSchema = `{
		"type": "object",
		"required": ["command", "path"],
		"properties": {
			"command": {"const": "undo_edit"},
			"path": {"type": "string", "minLength": 1}
		}
	}`
)

var (
	textEditorCommands = union.NewKeyed("command", []union.Variant[TextEditorCommandVariant]{
		union.Case[TextEditorCommandVariant, ViewCommand]("view", union.WithSchema(viewSchema)),
		union.Case[TextEditorCommandVariant, CreateCommand]("create", union.WithSchema(createSchema)),
		union.Case[TextEditorCommandVariant, StrReplaceCommand]("str_replace", union.WithSchema(strReplaceSchema)),
		union.Case[TextEditorCommandVariant, InsertCommand]("insert", union.WithSchema(insertSchema)),
		union.Case[TextEditorCommandVariant, UndoEditCommand]("undo_edit", union.WithSchema(undoEditSchema)),
	}, union.Named("TextEditorCommand"))

	commandPath = union.NewProjection(textEditorCommands, "path",
		union.Field[TextEditorCommandVariant](func(c ViewCommand) string { return c.Path }),
		union.Field[TextEditorCommandVariant](func(c CreateCommand) string { return c.Path }),
		union.Field[TextEditorCommandVariant](func(c StrReplaceCommand) string { return c.Path }),
		union.Field[TextEditorCommandVariant](func(c InsertCommand) string { return c.Path }),
		union.Field[TextEditorCommandVariant](func(c UndoEditCommand) string { return c.Path }),
	)
)

// NewTextEditorCommand wraps a known command.
func NewTextEditorCommand(v TextEditorCommandVariant) TextEditorCommand {
	return TextEditorCommand{union.Of(v)}
}

// TextEditorCommandRegistry returns the registry commands decode through.
func TextEditorCommandRegistry() *union.Registry[TextEditorCommandVariant] {
	return textEditorCommands
}

// UnmarshalJSON decodes the command named by "command".
func (c *TextEditorCommand) UnmarshalJSON(data []byte) error {
	return decodeInto(textEditorCommands, data, &c.Value)
}

// FromToolUse decodes the input of a text editor tool call.
func FromToolUse(b ToolUseBlock) (TextEditorCommand, error) {
	if b.Name != TextEditorToolName {
		return TextEditorCommand{}, fmt.Errorf("tool %q is not the text editor", b.Name)
	}
	v, err := textEditorCommands.Decode(b.Input)
	if err != nil {
		return TextEditorCommand{}, fmt.Errorf("tool use %s: %w", b.ID, err)
	}
	return TextEditorCommand{v}, nil
}

// Name returns the command discriminator.
func (c TextEditorCommand) Name() string {
	tag, _ := textEditorCommands.TagOf(c.Value)
	return tag
}

// Path returns the file or directory the command targets.
func (c TextEditorCommand) Path() (string, bool) { return commandPath.Get(c.Value) }

func (ViewCommand) isTextEditorCommand()       {}
func (CreateCommand) isTextEditorCommand()     {}
func (StrReplaceCommand) isTextEditorCommand() {}
func (InsertCommand) isTextEditorCommand()     {}
func (UndoEditCommand) isTextEditorCommand()   {}

// MarshalJSON encodes the command with its "view" discriminator.
func (c ViewCommand) MarshalJSON() ([]byte, error) {
	type alias ViewCommand
	return marshalWithField("command", "view", alias(c))
}

// MarshalJSON encodes the command with its "create" discriminator.
func (c CreateCommand) MarshalJSON() ([]byte, error) {
	type alias CreateCommand
	return marshalWithField("command", "create", alias(c))
}

// MarshalJSON encodes the command with its "str_replace" discriminator.
func (c StrReplaceCommand) MarshalJSON() ([]byte, error) {
	type alias StrReplaceCommand
	return marshalWithField("command", "str_replace", alias(c))
}

// MarshalJSON encodes the command with its "insert" discriminator.
func (c InsertCommand) MarshalJSON() ([]byte, error) {
	type alias InsertCommand
	return marshalWithField("command", "insert", alias(c))
}

// MarshalJSON encodes the command with its "undo_edit" discriminator.
func (c UndoEditCommand) MarshalJSON() ([]byte, error) {
	type alias UndoEditCommand
	return marshalWithField("command", "undo_edit", alias(c))
}
