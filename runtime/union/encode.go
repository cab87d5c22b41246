package union

import (
	"fmt"

	"goa.design/anthropic-codec/runtime/jsonx"
)

// Encode serializes v exactly as the held variant would serialize itself.
// Unknown values re-emit the captured payload byte for byte. The zero Value
// encodes as null.
func Encode[T any](v Value[T]) ([]byte, error) {
	switch {
	case v.unknown:
		return jsonx.Clone(v.raw), nil
	case v.known:
		return jsonx.Marshal(v.variant)
	default:
		return []byte("null"), nil
	}
}

// Encode serializes v with the encoder of the descriptor that holds it. It
// fails when v holds a variant this registry does not declare.
func (r *Registry[T]) Encode(v Value[T]) ([]byte, error) {
	if !v.known {
		return Encode(v)
	}
	d, ok := r.holder(v)
	if !ok {
		return nil, fmt.Errorf("union %s: %T is not a registered variant", r.name, v.variant)
	}
	return d.Encode(v.variant)
}

// Validate is the strict checkpoint for decoded values: it returns
// ErrSchemaMismatch when v holds an unknown payload or nothing at all.
// Values built with Of always pass. A Value does not know the registry it
// came from, so the error names the union after T; use Registry.Validate to
// report the registry name.
func Validate[T any](v Value[T]) error {
	return validate(v, typeName[T](), "")
}

// Validate is the package-level Validate reporting errors under the registry
// name and discriminator field, like Decode does.
func (r *Registry[T]) Validate(v Value[T]) error {
	return validate(v, r.name, r.field)
}

func validate[T any](v Value[T], name, field string) error {
	if v.known {
		return nil
	}
	return &Error{kind: ErrorKindSchemaMismatch, union: name, field: field, tag: v.tag}
}
