package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"goa.design/anthropic-codec/features/stream/sse"
	"goa.design/anthropic-codec/runtime/jsonx"
	"goa.design/anthropic-codec/runtime/model"
	"goa.design/anthropic-codec/runtime/telemetry"
	"goa.design/anthropic-codec/runtime/union"
)

type (
	// record is one line of output.
	record struct {
		Kind    string          `json:"kind"`
		Tag     string          `json:"tag,omitempty"`
		Unknown bool            `json:"unknown,omitempty"`
		Value   json.RawMessage `json:"value"`
	}

	// decodeFunc decodes a single JSON value of one kind.
	decodeFunc func(data []byte, strict bool) (record, error)
)

var kinds = map[string]decodeFunc{
	"citation":    registryKind("citation", model.CitationRegistry()),
	"content":     registryKind("content", model.ContentBlockRegistry()),
	"event":       decodeEvent,
	"param":       registryKind("param", model.ContentBlockParamRegistry()),
	"text-editor": registryKind("text-editor", model.TextEditorCommandRegistry()),
	"message":     decodeMessage,
	"request":     decodeRequest,
	"error":       decodeError,
}

func kindNames() string {
	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, k)
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}

// registryKind decodes values with reg and re-encodes them.
func registryKind[T any](name string, reg *union.Registry[T]) decodeFunc {
	return func(data []byte, strict bool) (record, error) {
		decode := reg.Decode
		if strict {
			decode = reg.DecodeStrict
		}
		v, err := decode(data)
		if err != nil {
			return record{}, err
		}
		out, err := reg.Encode(v)
		if err != nil {
			return record{}, err
		}
		tag, _ := reg.TagOf(v)
		return record{Kind: name, Tag: tag, Unknown: v.IsUnknown(), Value: out}, nil
	}
}

// decodeEvent checks nested content blocks and deltas in strict mode, which
// the registry alone does not reach.
func decodeEvent(data []byte, strict bool) (record, error) {
	decode := model.DecodeStreamEvent
	if strict {
		decode = model.DecodeStreamEventStrict
	}
	ev, err := decode(data)
	if err != nil {
		return record{}, err
	}
	out, err := jsonx.Marshal(ev)
	if err != nil {
		return record{}, err
	}
	return record{Kind: "event", Tag: ev.Type(), Unknown: ev.IsUnknown(), Value: out}, nil
}

func decodeMessage(data []byte, strict bool) (record, error) {
	var m model.Message
	if err := jsonx.Unmarshal(data, &m); err != nil {
		return record{}, err
	}
	if strict {
		if err := m.ValidateKnown(); err != nil {
			return record{}, err
		}
	}
	unknown := slices.ContainsFunc(m.Content, func(b model.ContentBlock) bool { return b.IsUnknown() })
	out, err := jsonx.Marshal(m)
	if err != nil {
		return record{}, err
	}
	return record{Kind: "message", Tag: m.Role, Unknown: unknown, Value: out}, nil
}

func decodeRequest(data []byte, _ bool) (record, error) {
	var r model.MessageRequest
	if err := jsonx.Unmarshal(data, &r); err != nil {
		return record{}, err
	}
	if err := r.Validate(); err != nil {
		return record{}, err
	}
	out, err := jsonx.Marshal(r)
	if err != nil {
		return record{}, err
	}
	return record{Kind: "request", Tag: r.Model, Value: out}, nil
}

func decodeError(data []byte, _ bool) (record, error) {
	e, err := model.ParseAPIError(0, data)
	if err != nil {
		return record{}, err
	}
	out, err := jsonx.Marshal(e)
	if err != nil {
		return record{}, err
	}
	return record{Kind: "error", Tag: e.Type(), Unknown: e.Detail.IsUnknown(), Value: out}, nil
}

// dumpJSON decodes data as a single value of the given kind, or as an array
// of such values, and writes one record per value.
func dumpJSON(ctx context.Context, logger telemetry.Logger, kind string, data []byte, strict bool, w io.Writer) error {
	decode, ok := kinds[kind]
	if !ok {
		return fmt.Errorf("unknown kind %q (expected one of %s)", kind, kindNames())
	}
	values := []json.RawMessage{data}
	if jsonx.Kind(data) == '[' && kind != "request" {
		values = nil
		if err := jsonx.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("decode array: %w", err)
		}
	}
	var failed int
	for i, v := range values {
		rec, err := decode(v, strict)
		if err != nil {
			failed++
			kv := append([]any{"index", i}, telemetry.DecodeErrorKeyvals(err)...)
			logger.Error(ctx, "decode failed", kv...)
			continue
		}
		if rec.Unknown {
			logger.Info(ctx, "unknown variant preserved", "index", i, "tag", rec.Tag)
		}
		if err := writeRecord(w, rec); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d values failed to decode", failed, len(values))
	}
	return nil
}

// dumpSSE decodes an event stream and writes one record per event. When
// collect is set, only the accumulated message is written.
func dumpSSE(ctx context.Context, r io.Reader, collect bool, w io.Writer, opts ...sse.Option) error {
	reader := sse.NewReader(r, opts...)
	defer func() { _ = reader.Close() }()
	acc := model.NewAccumulator()
	for {
		ev, err := reader.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if collect {
			if err := acc.Add(ev); err != nil {
				return err
			}
			continue
		}
		out, err := jsonx.Marshal(ev)
		if err != nil {
			return err
		}
		if err := writeRecord(w, record{Kind: "event", Tag: ev.Type(), Unknown: ev.IsUnknown(), Value: out}); err != nil {
			return err
		}
	}
	if !collect {
		return nil
	}
	msg := acc.Message()
	out, err := jsonx.Marshal(msg)
	if err != nil {
		return err
	}
	return writeRecord(w, record{Kind: "message", Tag: msg.Role, Value: out})
}

func writeRecord(w io.Writer, rec record) error {
	line, err := jsonx.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = w.Write(append(line, '\n'))
	return err
}
