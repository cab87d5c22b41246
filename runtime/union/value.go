package union

import (
	"encoding/json"
	"fmt"

	"goa.design/anthropic-codec/runtime/jsonx"
)

// Value holds exactly one variant of the union T, or an unknown payload
// preserved verbatim. Values are immutable. The zero Value holds nothing and
// fails validation.
type Value[T any] struct {
	variant T
	known   bool

	unknown bool
	tag     string
	raw     json.RawMessage
}

// Of wraps a known variant. Passing a nil interface value panics.
func Of[T any](v T) Value[T] {
	if any(v) == nil {
		panic(fmt.Sprintf("union: Of called with a nil %s", typeName[T]()))
	}
	return Value[T]{variant: v, known: true}
}

// Unknown wraps a payload whose discriminator matched no known variant. raw
// is copied.
func Unknown[T any](tag string, raw []byte) Value[T] {
	return Value[T]{unknown: true, tag: tag, raw: jsonx.Clone(raw)}
}

// Known returns the held variant.
func (v Value[T]) Known() (T, bool) {
	return v.variant, v.known
}

// IsUnknown reports whether v preserves an unrecognized payload.
func (v Value[T]) IsUnknown() bool { return v.unknown }

// IsZero reports whether v holds nothing. Only the zero Value does: decoding
// never produces one.
func (v Value[T]) IsZero() bool { return !v.known && !v.unknown }

// UnknownTag returns the discriminator captured for an unknown value.
func (v Value[T]) UnknownTag() string { return v.tag }

// Raw returns a copy of the payload captured for an unknown value.
func (v Value[T]) Raw() json.RawMessage {
	if !v.unknown {
		return nil
	}
	return jsonx.Clone(v.raw)
}

// Validate returns ErrSchemaMismatch unless v holds a known variant.
func (v Value[T]) Validate() error { return Validate(v) }

// MarshalJSON encodes the held variant with its own encoder, or re-emits the
// captured payload of an unknown value. The wrapper adds nothing to the wire.
func (v Value[T]) MarshalJSON() ([]byte, error) { return Encode(v) }

func (v Value[T]) String() string {
	switch {
	case v.known:
		return fmt.Sprintf("%s(%T)", typeName[T](), v.variant)
	case v.unknown:
		return fmt.Sprintf("%s(unknown %q)", typeName[T](), v.tag)
	default:
		return typeName[T]() + "(empty)"
	}
}
