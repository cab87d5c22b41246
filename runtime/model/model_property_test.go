package model

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"goa.design/anthropic-codec/runtime/jsonx"
)

// TestContentBlockRoundTripProperty verifies that every response block
// decodes back to the value it was encoded from.
func TestContentBlockRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("content blocks survive encode then decode", prop.ForAll(
		func(kind int, a, b string, n int) bool {
			var v ContentBlockVariant
			switch kind {
			case 0:
				v = TextBlock{Text: a}
			case 1:
				title := b
				v = TextBlock{Text: a, Citations: []Citation{
					NewCitation(CharLocation{CitedText: b, DocumentIndex: n, DocumentTitle: &title, StartCharIndex: n, EndCharIndex: n + 1}),
				}}
			case 2:
				v = ThinkingBlock{Thinking: a, Signature: b}
			case 3:
				v = RedactedThinkingBlock{Data: a}
			default:
				input, err := json.Marshal(map[string]any{"q": a, "n": n})
				if err != nil {
					return false
				}
				v = ToolUseBlock{ID: "toolu_" + b, Name: "t" + b, Input: input}
			}
			block := NewContentBlock(v)
			data, err := jsonx.Marshal(block)
			if err != nil {
				return false
			}
			back, err := DecodeContentBlock(data)
			if err != nil {
				return false
			}
			if kind >= 4 {
				// Raw inputs compare structurally.
				got, _ := back.Known()
				want := v.(ToolUseBlock)
				u := got.(ToolUseBlock)
				var x, y any
				return u.ID == want.ID && u.Name == want.Name &&
					json.Unmarshal(u.Input, &x) == nil && json.Unmarshal(want.Input, &y) == nil &&
					reflect.DeepEqual(x, y)
			}
			return reflect.DeepEqual(back, block)
		},
		gen.IntRange(0, 4),
		gen.AlphaString(),
		gen.Identifier(),
		gen.IntRange(0, 1<<16),
	))

	properties.TestingRun(t)
}

// TestAccumulatorConcatenatesTextProperty verifies that text deltas are
// applied in order, whatever the fragmentation.
func TestAccumulatorConcatenatesTextProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("final text is the concatenation of deltas", prop.ForAll(
		func(fragments []string) bool {
			acc := NewAccumulator()
			events := []StreamEvent{
				NewStreamEvent(MessageStartEvent{Message: Message{ID: "m", Role: RoleAssistant}}),
				NewStreamEvent(ContentBlockStartEvent{Index: 0, ContentBlock: NewContentBlock(TextBlock{})}),
			}
			for _, f := range fragments {
				events = append(events, NewStreamEvent(ContentBlockDeltaEvent{Index: 0, Delta: NewContentBlockDelta(TextDelta{Text: f})}))
			}
			events = append(events,
				NewStreamEvent(ContentBlockStopEvent{Index: 0}),
				NewStreamEvent(MessageStopEvent{}),
			)
			for _, ev := range events {
				if err := acc.Add(ev); err != nil {
					return false
				}
			}
			return acc.Done() && acc.Message().Text() == strings.Join(fragments, "")
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
