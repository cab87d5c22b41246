// Package union implements tagged extensible unions for JSON payloads.
//
// A union type is a Go interface implemented by one struct (or named type) per
// variant. A Registry lists the variants and how they are recognized:
//
//   - NewKeyed selects the variant from a discriminator field such as "type"
//     or "command". Exactly one variant is decoded; a payload that names a
//     variant but does not conform to it is an error, not a cue to try others.
//   - NewFallback probes untagged variants in declaration order and keeps the
//     first success. Declaration order encodes precedence, so permissive shapes
//     such as a bare string go first.
//
// Decoding yields a Value that holds exactly one known variant or, for keyed
// registries marked Open, an unknown payload preserved byte for byte. Encode
// is transparent: known variants serialize through their own MarshalJSON and
// unknown ones re-emit the captured bytes. Validate is the opt-in strict
// checkpoint that rejects unknown values.
//
// Values are consumed with Pick, Match/On, Switch/Do and Projection:
//
//	text, ok := union.Pick[TextBlock](block.Value)
//
//	kind, err := union.Match(block.Value,
//		union.On[ContentBlockVariant](func(TextBlock) string { return "text" }),
//		union.On[ContentBlockVariant](func(ToolUseBlock) string { return "tool" }),
//	)
//
// Registries are built once and are read-only afterwards; decode, encode and
// validate are pure and may run concurrently.
package union
