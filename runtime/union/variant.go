package union

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"goa.design/anthropic-codec/runtime/jsonx"
)

type (
	// Variant describes one member of a union whose values are represented by
	// the Go type T, usually a sealed interface implemented by every variant
	// struct. Build descriptors with Case or Shape; the fields are exported so
	// unusual variants can be assembled by hand.
	Variant[T any] struct {
		// Tag is the discriminator value of a keyed variant. Empty for
		// untagged variants.
		Tag string
		// Name identifies the variant in diagnostics.
		Name string
		// Decode turns the raw payload into a variant value. It must not
		// retain data.
		Decode func(data json.RawMessage) (T, error)
		// Encode serializes a value this descriptor Holds.
		Encode func(v T) ([]byte, error)
		// Holds reports whether v is an instance of this variant.
		Holds func(v T) bool
		// Schema, when set, is checked against the parsed payload before
		// Decode runs.
		Schema *jsonschema.Schema
		// Nullable lets an untagged variant accept the JSON literal null.
		Nullable bool

		typ reflect.Type
	}

	// VariantOption customizes descriptors built by Case and Shape.
	VariantOption func(*variantConfig)

	// Validator is implemented by variant types that check their own
	// invariants after decoding, for example required fields.
	Validator interface {
		Validate() error
	}

	variantConfig struct {
		schema   *jsonschema.Schema
		nullable bool
		strict   bool
	}
)

// WithSchema attaches a JSON Schema document the payload must satisfy. The
// schema is compiled immediately; an invalid document panics since it is an
// authoring error.
func WithSchema(schemaJSON string) VariantOption {
	schema := MustCompileSchema(schemaJSON)
	return func(c *variantConfig) { c.schema = schema }
}

// AllowNull lets an untagged variant accept the JSON literal null.
func AllowNull() VariantOption {
	return func(c *variantConfig) { c.nullable = true }
}

// DisallowUnknownFields makes the variant reject object keys that its Go type
// does not declare.
func DisallowUnknownFields() VariantOption {
	return func(c *variantConfig) { c.strict = true }
}

// Case returns the descriptor of a keyed variant decoded into V. V must
// implement T; a mismatch panics at construction.
func Case[T, V any](tag string, opts ...VariantOption) Variant[T] {
	if tag == "" {
		panic("union: Case requires a non-empty tag")
	}
	return newVariant[T, V](tag, typeName[V](), opts)
}

// Shape returns the descriptor of an untagged variant decoded into V, tried in
// declaration order by a fallback registry.
func Shape[T, V any](name string, opts ...VariantOption) Variant[T] {
	if name == "" {
		name = typeName[V]()
	}
	return newVariant[T, V]("", name, opts)
}

// MustCompileSchema compiles a JSON Schema document and panics on failure.
func MustCompileSchema(schemaJSON string) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(schemaJSON)))
	if err != nil {
		panic(fmt.Sprintf("union: parse schema: %v", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("variant.json", doc); err != nil {
		panic(fmt.Sprintf("union: add schema resource: %v", err))
	}
	schema, err := c.Compile("variant.json")
	if err != nil {
		panic(fmt.Sprintf("union: compile schema: %v", err))
	}
	return schema
}

func newVariant[T, V any](tag, name string, opts []VariantOption) Variant[T] {
	var zero V
	if _, ok := any(zero).(T); !ok {
		panic(fmt.Sprintf("union: %s does not implement %s", typeName[V](), typeName[T]()))
	}
	var cfg variantConfig
	for _, o := range opts {
		o(&cfg)
	}
	unmarshal := jsonx.Unmarshal
	if cfg.strict {
		unmarshal = jsonx.UnmarshalStrict
	}
	return Variant[T]{
		Tag:  tag,
		Name: name,
		Decode: func(data json.RawMessage) (T, error) {
			var v V
			if err := unmarshal(data, &v); err != nil {
				var t T
				return t, err
			}
			if val, ok := any(v).(Validator); ok {
				if err := val.Validate(); err != nil {
					var t T
					return t, err
				}
			}
			return any(v).(T), nil
		},
		Encode: func(v T) ([]byte, error) {
			return jsonx.Marshal(v)
		},
		Holds: func(v T) bool {
			_, ok := any(v).(V)
			return ok
		},
		Schema:   cfg.schema,
		Nullable: cfg.nullable,
		typ:      reflect.TypeFor[V](),
	}
}

// label returns the tag of a keyed variant or the name of an untagged one.
func (v Variant[T]) label() string {
	if v.Tag != "" {
		return v.Tag
	}
	return v.Name
}

func typeName[T any]() string {
	t := reflect.TypeFor[T]()
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}
