package model

import (
	"errors"
	"fmt"
	"strconv"

	"goa.design/anthropic-codec/runtime/jsonx"
)

// marshalTagged encodes v, which must encode as a JSON object, with a leading
// "type" discriminator.
func marshalTagged(tag string, v any) ([]byte, error) {
	return marshalWithField("type", tag, v)
}

func marshalWithField(field, tag string, v any) ([]byte, error) {
	body, err := jsonx.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("model: %T does not encode as a JSON object", v)
	}
	out := make([]byte, 0, len(body)+len(field)+len(tag)+6)
	out = append(out, '{')
	out = strconv.AppendQuote(out, field)
	out = append(out, ':')
	out = strconv.AppendQuote(out, tag)
	if len(body) > 2 {
		out = append(out, ',')
	}
	return append(out, body[1:]...), nil
}

var (
	errNegativeIndex = errors.New("index must not be negative")
	errNullElement   = errors.New("null element")
)

// requireElements rejects list entries that hold no variant. Both JSON
// decoders leave a null element at its zero value without calling the
// element's UnmarshalJSON.
func requireElements[E interface{ IsZero() bool }](field string, elems []E) error {
	for i, e := range elems {
		if e.IsZero() {
			return fmt.Errorf("%s[%d]: %w", field, i, errNullElement)
		}
	}
	return nil
}

func errMissingField(name string) error {
	return fmt.Errorf("%s is required", name)
}

func requireField(name, value string) error {
	if value == "" {
		return errMissingField(name)
	}
	return nil
}
