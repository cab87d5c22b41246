package union

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies codec failures.
type ErrorKind string

const (
	// ErrorKindNoDiscriminator indicates a keyed union payload whose
	// discriminator field is missing, is not a JSON string, or could not be read
	// because the payload is not a JSON object.
	ErrorKindNoDiscriminator ErrorKind = "no_discriminator"

	// ErrorKindUnrecognizedDiscriminator indicates a discriminator value that no
	// descriptor of a closed union claims.
	ErrorKindUnrecognizedDiscriminator ErrorKind = "unrecognized_discriminator"

	// ErrorKindVariantDecodeFailed indicates the discriminator selected a
	// variant but the payload did not conform to it.
	ErrorKindVariantDecodeFailed ErrorKind = "variant_decode_failed"

	// ErrorKindAllCandidatesFailed indicates every candidate of an untagged
	// union rejected the payload.
	ErrorKindAllCandidatesFailed ErrorKind = "all_candidates_failed"

	// ErrorKindSchemaMismatch indicates strict validation rejected a value that
	// holds no known variant.
	ErrorKindSchemaMismatch ErrorKind = "schema_mismatch"

	// ErrorKindUnmatchedVariant indicates Match or Switch found no handler for
	// the held value, typically because the value is unknown.
	ErrorKindUnmatchedVariant ErrorKind = "unmatched_variant"
)

// Sentinels for errors.Is. A *Error matches the sentinel of the same kind.
var (
	ErrNoDiscriminatorFound      = &Error{kind: ErrorKindNoDiscriminator}
	ErrUnrecognizedDiscriminator = &Error{kind: ErrorKindUnrecognizedDiscriminator}
	ErrVariantDecodeFailed       = &Error{kind: ErrorKindVariantDecodeFailed}
	ErrAllCandidatesFailed       = &Error{kind: ErrorKindAllCandidatesFailed}
	ErrSchemaMismatch            = &Error{kind: ErrorKindSchemaMismatch}
	ErrUnmatchedVariant          = &Error{kind: ErrorKindUnmatchedVariant}
)

type (
	// Error describes a decode, validation or match failure. It carries enough
	// structure for callers to decide whether to skip a payload, abort, or
	// surface the failure further.
	Error struct {
		kind       ErrorKind
		union      string
		field      string
		tag        string
		cause      error
		candidates []CandidateError
	}

	// CandidateError records why one candidate of an untagged union rejected
	// the payload.
	CandidateError struct {
		// Variant is the diagnostic name of the candidate.
		Variant string
		// Err is the candidate's decode or validation failure.
		Err error
	}
)

// Kind returns the failure classification.
func (e *Error) Kind() ErrorKind { return e.kind }

// Union returns the name of the union type involved.
func (e *Error) Union() string { return e.union }

// Field returns the discriminator field name for keyed unions.
func (e *Error) Field() string { return e.field }

// Tag returns the discriminator value or variant name involved, when known.
func (e *Error) Tag() string { return e.tag }

// Candidates returns one record per attempted candidate, in declaration
// order. It is only populated for ErrorKindAllCandidatesFailed.
func (e *Error) Candidates() []CandidateError {
	if len(e.candidates) == 0 {
		return nil
	}
	out := make([]CandidateError, len(e.candidates))
	copy(out, e.candidates)
	return out
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("union")
	if e.union != "" {
		b.WriteString(" ")
		b.WriteString(e.union)
	}
	b.WriteString(": ")
	switch e.kind {
	case ErrorKindNoDiscriminator:
		fmt.Fprintf(&b, "no discriminator found in field %q", e.field)
	case ErrorKindUnrecognizedDiscriminator:
		fmt.Fprintf(&b, "unrecognized discriminator %q in field %q", e.tag, e.field)
	case ErrorKindVariantDecodeFailed:
		fmt.Fprintf(&b, "decode variant %q", e.tag)
	case ErrorKindAllCandidatesFailed:
		b.WriteString("no candidate matched")
		for i, c := range e.candidates {
			if i == 0 {
				b.WriteString(": ")
			} else {
				b.WriteString("; ")
			}
			b.WriteString(c.Error())
		}
		return b.String()
	case ErrorKindSchemaMismatch:
		if e.tag != "" {
			fmt.Fprintf(&b, "unknown variant %q does not conform", e.tag)
		} else {
			b.WriteString("value holds no known variant")
		}
	case ErrorKindUnmatchedVariant:
		if e.tag != "" {
			fmt.Fprintf(&b, "no handler for variant %q", e.tag)
		} else {
			b.WriteString("no handler for value")
		}
	default:
		b.WriteString(string(e.kind))
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause. For ErrorKindAllCandidatesFailed the
// cause joins every candidate error so errors.Is and errors.As see them all.
func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.kind == e.kind && t.union == "" && t.tag == ""
}

func (c CandidateError) Error() string {
	if c.Err == nil {
		return c.Variant
	}
	return c.Variant + ": " + c.Err.Error()
}

// Unwrap returns the candidate's failure.
func (c CandidateError) Unwrap() error { return c.Err }

// AsError returns the first *Error in err's chain, if any.
func AsError(err error) (*Error, bool) {
	var ue *Error
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

func newAllCandidatesFailed(union string, candidates []CandidateError) *Error {
	errs := make([]error, len(candidates))
	for i, c := range candidates {
		errs[i] = c
	}
	return &Error{
		kind:       ErrorKindAllCandidatesFailed,
		union:      union,
		cause:      errors.Join(errs...),
		candidates: candidates,
	}
}
