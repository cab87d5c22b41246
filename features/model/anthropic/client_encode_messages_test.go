package anthropic

import (
	"encoding/json"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"

	"goa.design/anthropic-codec/runtime/model"
	"goa.design/anthropic-codec/runtime/union"
)

func TestEncodeRequestUsesBlockForm(t *testing.T) {
	system := model.NewSystemText("be brief")
	req := model.MessageRequest{
		Model:     "claude-sonnet-4-5",
		MaxTokens: 64,
		System:    &system,
		Stream:    true,
		Messages: []model.MessageParam{
			{Role: model.RoleUser, Content: model.NewMessageText("hi")},
			model.NewAssistantMessage(model.NewContentBlockParam(model.ToolUseBlockParam{
				ID: "toolu_1", Name: "calc", Input: json.RawMessage(`{"x":1}`),
			})),
			model.NewUserMessage(model.NewToolResultBlockParam("toolu_1", "2", false)),
		},
	}
	params, err := EncodeRequest(req)
	if err != nil {
		t.Fatalf("EncodeRequest: %v", err)
	}
	if params.Model != sdk.Model("claude-sonnet-4-5") || params.MaxTokens != 64 {
		t.Fatalf("unexpected params %q %d", params.Model, params.MaxTokens)
	}
	if len(params.System) != 1 || params.System[0].Text != "be brief" {
		t.Fatalf("system prompt not converted to blocks: %+v", params.System)
	}
	if len(params.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(params.Messages))
	}
	first := params.Messages[0]
	if first.Role != sdk.MessageParamRoleUser || len(first.Content) != 1 || first.Content[0].OfText == nil {
		t.Fatalf("string content not promoted to a text block: %+v", first)
	}
	if first.Content[0].OfText.Text != "hi" {
		t.Fatalf("unexpected text %q", first.Content[0].OfText.Text)
	}
	if tu := params.Messages[1].Content[0].OfToolUse; tu == nil || tu.ID != "toolu_1" || tu.Name != "calc" {
		t.Fatalf("tool use not converted: %+v", params.Messages[1].Content[0])
	}
	tr := params.Messages[2].Content[0].OfToolResult
	if tr == nil || tr.ToolUseID != "toolu_1" || len(tr.Content) != 1 {
		t.Fatalf("tool result not converted: %+v", params.Messages[2].Content[0])
	}

	// The caller's request is left untouched.
	if _, ok := union.Pick[model.TextContent](req.Messages[0].Content.Value); !ok {
		t.Fatal("EncodeRequest mutated the request messages")
	}
}

func TestToSDKMessageParam(t *testing.T) {
	p, err := ToSDKMessageParam(model.NewUserMessage(
		model.NewContentBlockParam(model.ImageBlockParam{
			Source: model.NewImageSource(model.URLImageSource{URL: "https://example.com/cat.png"}),
		}),
		model.NewTextBlockParam("what is this?"),
	))
	if err != nil {
		t.Fatalf("ToSDKMessageParam: %v", err)
	}
	if p.Role != sdk.MessageParamRoleUser || len(p.Content) != 2 {
		t.Fatalf("unexpected param %+v", p)
	}
	if p.Content[0].OfImage == nil {
		t.Fatal("expected image block")
	}
	if p.Content[1].OfText == nil || p.Content[1].OfText.Text != "what is this?" {
		t.Fatalf("unexpected text block %+v", p.Content[1])
	}
}
