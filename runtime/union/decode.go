package union

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"goa.design/anthropic-codec/runtime/jsonx"
)

var (
	errNull      = errors.New("null value")
	errMalformed = errors.New("malformed JSON")
)

// Decode turns one JSON value into a union value.
//
// Keyed registries read the discriminator field first and decode only the
// variant it names; a payload that names a variant but does not conform to it
// fails with ErrVariantDecodeFailed and no other variant is tried. Fallback
// registries try every variant in declaration order and return the first
// success, or ErrAllCandidatesFailed with one record per candidate.
func (r *Registry[T]) Decode(data []byte) (Value[T], error) {
	if r.Keyed() {
		return r.decodeKeyed(data)
	}
	return r.decodeFallback(data)
}

// DecodeStrict decodes data and then runs the validation pass, so unknown
// variants of open unions are rejected with ErrSchemaMismatch.
func (r *Registry[T]) DecodeStrict(data []byte) (Value[T], error) {
	v, err := r.Decode(data)
	if err != nil {
		return Value[T]{}, err
	}
	if err := r.Validate(v); err != nil {
		return Value[T]{}, err
	}
	return v, nil
}

func (r *Registry[T]) decodeKeyed(data []byte) (Value[T], error) {
	tag, err := r.discriminator(data)
	if err != nil {
		return Value[T]{}, err
	}
	d, ok := r.Lookup(tag)
	if !ok {
		if r.open {
			return Unknown[T](tag, data), nil
		}
		return Value[T]{}, &Error{
			kind:  ErrorKindUnrecognizedDiscriminator,
			union: r.name,
			field: r.field,
			tag:   tag,
		}
	}
	t, err := decodeVariant(d, data, &tree{data: data})
	if err != nil {
		return Value[T]{}, &Error{
			kind:  ErrorKindVariantDecodeFailed,
			union: r.name,
			field: r.field,
			tag:   tag,
			cause: err,
		}
	}
	return Value[T]{variant: t, known: true}, nil
}

// discriminator reads the tag field. Every way of failing to read a string
// value (malformed JSON, non-object payload, missing field, non-string value)
// is reported as ErrNoDiscriminatorFound.
func (r *Registry[T]) discriminator(data []byte) (string, error) {
	noTag := func(cause error) error {
		return &Error{kind: ErrorKindNoDiscriminator, union: r.name, field: r.field, cause: cause}
	}
	if jsonx.Kind(data) != '{' {
		if !jsonx.Valid(data) {
			return "", noTag(errMalformed)
		}
		return "", noTag(errors.New("payload is not an object"))
	}
	var obj map[string]json.RawMessage
	if err := jsonx.Unmarshal(data, &obj); err != nil {
		return "", noTag(err)
	}
	raw, ok := obj[r.field]
	if !ok {
		return "", noTag(nil)
	}
	if jsonx.Kind(raw) != '"' {
		return "", noTag(errors.New("discriminator is not a string"))
	}
	var tag string
	if err := jsonx.Unmarshal(raw, &tag); err != nil {
		return "", noTag(err)
	}
	return tag, nil
}

// decodeFallback checks well-formedness once: malformed input fails every
// candidate with the same error and no variant decoder runs.
func (r *Registry[T]) decodeFallback(data []byte) (Value[T], error) {
	var failures []CandidateError
	if !jsonx.Valid(data) {
		for _, d := range r.variants {
			failures = append(failures, CandidateError{Variant: d.label(), Err: errMalformed})
		}
		return Value[T]{}, newAllCandidatesFailed(r.name, failures)
	}
	shared := &tree{data: data}
	null := jsonx.IsNull(data)
	for _, d := range r.variants {
		if null && !d.Nullable {
			failures = append(failures, CandidateError{Variant: d.label(), Err: errNull})
			continue
		}
		t, err := decodeVariant(d, data, shared)
		if err != nil {
			failures = append(failures, CandidateError{Variant: d.label(), Err: err})
			continue
		}
		return Value[T]{variant: t, known: true}, nil
	}
	return Value[T]{}, newAllCandidatesFailed(r.name, failures)
}

func decodeVariant[T any](d Variant[T], data []byte, t *tree) (T, error) {
	if d.Schema != nil {
		doc, err := t.get()
		if err != nil {
			var zero T
			return zero, err
		}
		if err := d.Schema.Validate(doc); err != nil {
			var zero T
			return zero, err
		}
	}
	return d.Decode(data)
}

// tree parses the payload into the generic representation used by schema
// validation at most once per decode call.
type tree struct {
	data   []byte
	parsed bool
	doc    any
	err    error
}

func (t *tree) get() (any, error) {
	if !t.parsed {
		t.doc, t.err = jsonschema.UnmarshalJSON(bytes.NewReader(t.data))
		t.parsed = true
	}
	return t.doc, t.err
}
