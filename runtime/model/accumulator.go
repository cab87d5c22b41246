package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"goa.design/anthropic-codec/runtime/jsonx"
	"goa.design/anthropic-codec/runtime/union"
)

// Accumulator folds the events of a streaming Messages call into the final
// Message. It is not safe for concurrent use.
type Accumulator struct {
	msg     Message
	started bool
	done    bool
	partial map[int]*strings.Builder
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{partial: make(map[int]*strings.Builder)}
}

// Add applies one event. Ping and unknown events are ignored; error events
// are returned as *APIError.
func (a *Accumulator) Add(ev StreamEvent) error {
	if ev.IsUnknown() {
		return nil
	}
	if ev.IsZero() {
		return errors.New("accumulate: empty event")
	}
	if a.done {
		return fmt.Errorf("accumulate %s: message already stopped", ev.Type())
	}
	res, err := union.Match(ev.Value,
		union.On[StreamEventVariant](a.start),
		union.On[StreamEventVariant](a.messageDelta),
		union.On[StreamEventVariant](a.stop),
		union.On[StreamEventVariant](a.blockStart),
		union.On[StreamEventVariant](a.blockDelta),
		union.On[StreamEventVariant](a.blockStop),
		union.On[StreamEventVariant](func(PingEvent) error { return nil }),
		union.On[StreamEventVariant](func(e ErrorEvent) error { return e.APIError() }),
	)
	if err != nil {
		return err
	}
	return res
}

// Message returns the message accumulated so far.
func (a *Accumulator) Message() Message {
	msg := a.msg
	msg.Content = append([]ContentBlock(nil), a.msg.Content...)
	return msg
}

// Done reports whether message_stop was received.
func (a *Accumulator) Done() bool { return a.done }

func (a *Accumulator) start(e MessageStartEvent) error {
	if a.started {
		return errors.New("accumulate message_start: message already started")
	}
	a.started = true
	a.msg = e.Message
	a.msg.Content = append([]ContentBlock(nil), e.Message.Content...)
	return nil
}

func (a *Accumulator) messageDelta(e MessageDeltaEvent) error {
	if err := a.requireStarted("message_delta"); err != nil {
		return err
	}
	if e.Delta.StopReason != nil {
		a.msg.StopReason = e.Delta.StopReason
	}
	if e.Delta.StopSequence != nil {
		a.msg.StopSequence = e.Delta.StopSequence
	}
	u := &a.msg.Usage
	u.OutputTokens = e.Usage.OutputTokens
	if e.Usage.InputTokens != nil {
		u.InputTokens = *e.Usage.InputTokens
	}
	if e.Usage.CacheCreationInputTokens != nil {
		u.CacheCreationInputTokens = *e.Usage.CacheCreationInputTokens
	}
	if e.Usage.CacheReadInputTokens != nil {
		u.CacheReadInputTokens = *e.Usage.CacheReadInputTokens
	}
	return nil
}

func (a *Accumulator) stop(MessageStopEvent) error {
	if err := a.requireStarted("message_stop"); err != nil {
		return err
	}
	a.done = true
	return nil
}

func (a *Accumulator) blockStart(e ContentBlockStartEvent) error {
	if err := a.requireStarted("content_block_start"); err != nil {
		return err
	}
	if e.Index != len(a.msg.Content) {
		return fmt.Errorf("accumulate content_block_start: index %d out of order, expected %d", e.Index, len(a.msg.Content))
	}
	a.msg.Content = append(a.msg.Content, e.ContentBlock)
	return nil
}

func (a *Accumulator) blockDelta(e ContentBlockDeltaEvent) error {
	block, err := a.block("content_block_delta", e.Index)
	if err != nil {
		return err
	}
	if e.Delta.IsUnknown() || block.IsUnknown() {
		return nil
	}
	mismatch := func() error {
		return fmt.Errorf("accumulate content_block_delta: %s cannot apply to %s block %d",
			e.Delta.Type(), block.Type(), e.Index)
	}
	updated, err := union.Match(e.Delta.Value,
		union.On[ContentBlockDeltaVariant](func(d TextDelta) error {
			t, ok := union.Pick[TextBlock](block.Value)
			if !ok {
				return mismatch()
			}
			t.Text += d.Text
			a.msg.Content[e.Index] = NewContentBlock(t)
			return nil
		}),
		union.On[ContentBlockDeltaVariant](func(d InputJSONDelta) error {
			if !isToolUse(block) {
				return mismatch()
			}
			b, ok := a.partial[e.Index]
			if !ok {
				b = &strings.Builder{}
				a.partial[e.Index] = b
			}
			b.WriteString(d.PartialJSON)
			return nil
		}),
		union.On[ContentBlockDeltaVariant](func(d CitationsDelta) error {
			t, ok := union.Pick[TextBlock](block.Value)
			if !ok {
				return mismatch()
			}
			t.Citations = append(append([]Citation(nil), t.Citations...), d.Citation)
			a.msg.Content[e.Index] = NewContentBlock(t)
			return nil
		}),
		union.On[ContentBlockDeltaVariant](func(d ThinkingDelta) error {
			t, ok := union.Pick[ThinkingBlock](block.Value)
			if !ok {
				return mismatch()
			}
			t.Thinking += d.Thinking
			a.msg.Content[e.Index] = NewContentBlock(t)
			return nil
		}),
		union.On[ContentBlockDeltaVariant](func(d SignatureDelta) error {
			t, ok := union.Pick[ThinkingBlock](block.Value)
			if !ok {
				return mismatch()
			}
			t.Signature = d.Signature
			a.msg.Content[e.Index] = NewContentBlock(t)
			return nil
		}),
	)
	if err != nil {
		return err
	}
	return updated
}

func (a *Accumulator) blockStop(e ContentBlockStopEvent) error {
	block, err := a.block("content_block_stop", e.Index)
	if err != nil {
		return err
	}
	b, ok := a.partial[e.Index]
	if !ok {
		return nil
	}
	delete(a.partial, e.Index)
	input := json.RawMessage(b.String())
	if strings.TrimSpace(b.String()) == "" {
		input = json.RawMessage("{}")
	}
	if !jsonx.Valid(input) {
		return fmt.Errorf("accumulate content_block_stop: block %d: tool input is not valid JSON", e.Index)
	}
	if u, ok := union.Pick[ToolUseBlock](block.Value); ok {
		u.Input = input
		a.msg.Content[e.Index] = NewContentBlock(u)
	} else if u, ok := union.Pick[ServerToolUseBlock](block.Value); ok {
		u.Input = input
		a.msg.Content[e.Index] = NewContentBlock(u)
	}
	return nil
}

func (a *Accumulator) block(event string, index int) (ContentBlock, error) {
	if err := a.requireStarted(event); err != nil {
		return ContentBlock{}, err
	}
	if index < 0 || index >= len(a.msg.Content) {
		return ContentBlock{}, fmt.Errorf("accumulate %s: unknown block index %d", event, index)
	}
	return a.msg.Content[index], nil
}

func (a *Accumulator) requireStarted(event string) error {
	if !a.started {
		return fmt.Errorf("accumulate %s: message_start not received", event)
	}
	return nil
}

func isToolUse(b ContentBlock) bool {
	if _, ok := union.Pick[ToolUseBlock](b.Value); ok {
		return true
	}
	_, ok := union.Pick[ServerToolUseBlock](b.Value)
	return ok
}
