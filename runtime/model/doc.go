// Package model defines the Messages API payloads that are discriminated
// unions: citations, response content blocks, request content block params,
// string-or-list content, tool choice, text editor tool commands, stream
// events and deltas, and API error details.
//
// Each union is a sealed interface (for example ContentBlockVariant) plus a
// wrapper struct (ContentBlock) that embeds union.Value and decodes through a
// package-level registry. Variant structs encode their own discriminator, so
// the wrappers are invisible on the wire. Unions the API is known to extend
// (content blocks, stream events, deltas, error types) are open: unrecognized
// variants decode to unknown values that re-encode verbatim and fail
// Validate.
package model
