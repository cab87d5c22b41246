package union

import (
	"fmt"
)

type (
	// Registry is the immutable, ordered set of variants of one union type.
	// A keyed registry selects the variant from a discriminator field; a
	// fallback registry probes its variants in declaration order. Registries
	// are safe for concurrent use.
	Registry[T any] struct {
		name     string
		field    string
		open     bool
		variants []Variant[T]
		byTag    map[string]int
	}

	// RegistryOption customizes a registry at construction.
	RegistryOption func(*registryConfig)

	registryConfig struct {
		open bool
		name string
	}
)

// Open marks a keyed union as forward compatible: payloads carrying a
// discriminator no descriptor claims decode to an unknown value instead of
// failing.
func Open() RegistryOption {
	return func(c *registryConfig) { c.open = true }
}

// Named overrides the union name used in errors. It defaults to the name of
// T.
func Named(name string) RegistryOption {
	return func(c *registryConfig) { c.name = name }
}

// NewKeyed builds a registry whose variants are selected by the string value
// of field. Duplicate or empty tags panic: they are authoring errors.
func NewKeyed[T any](field string, variants []Variant[T], opts ...RegistryOption) *Registry[T] {
	if field == "" {
		panic("union: keyed registry requires a discriminator field")
	}
	if len(variants) == 0 {
		panic("union: registry requires at least one variant")
	}
	cfg := newRegistryConfig[T](opts)
	r := &Registry[T]{
		name:     cfg.name,
		field:    field,
		open:     cfg.open,
		variants: append([]Variant[T](nil), variants...),
		byTag:    make(map[string]int, len(variants)),
	}
	for i, v := range r.variants {
		checkVariant(r.name, v)
		if v.Tag == "" {
			panic(fmt.Sprintf("union: %s variant %q has no tag", r.name, v.Name))
		}
		if _, dup := r.byTag[v.Tag]; dup {
			panic(fmt.Sprintf("union: %s declares tag %q twice", r.name, v.Tag))
		}
		r.byTag[v.Tag] = i
	}
	return r
}

// NewFallback builds a registry for a union without a shared discriminator.
// Decode tries the variants in the given order and keeps the first success.
func NewFallback[T any](variants []Variant[T], opts ...RegistryOption) *Registry[T] {
	if len(variants) == 0 {
		panic("union: registry requires at least one variant")
	}
	cfg := newRegistryConfig[T](opts)
	if cfg.open {
		panic(fmt.Sprintf("union: %s: only keyed unions can be open", cfg.name))
	}
	r := &Registry[T]{
		name:     cfg.name,
		variants: append([]Variant[T](nil), variants...),
	}
	for _, v := range r.variants {
		checkVariant(r.name, v)
	}
	return r
}

// Name returns the union name used in errors.
func (r *Registry[T]) Name() string { return r.name }

// Field returns the discriminator field, or "" for fallback registries.
func (r *Registry[T]) Field() string { return r.field }

// Keyed reports whether the registry selects variants by discriminator.
func (r *Registry[T]) Keyed() bool { return r.field != "" }

// IsOpen reports whether unknown discriminators are preserved.
func (r *Registry[T]) IsOpen() bool { return r.open }

// Lookup returns the variant registered for tag.
func (r *Registry[T]) Lookup(tag string) (Variant[T], bool) {
	i, ok := r.byTag[tag]
	if !ok {
		return Variant[T]{}, false
	}
	return r.variants[i], true
}

// Variants returns the descriptors in declaration order.
func (r *Registry[T]) Variants() []Variant[T] {
	return append([]Variant[T](nil), r.variants...)
}

// TagOf returns the tag (keyed) or name (fallback) of the variant held by v.
// Unknown values report their captured discriminator.
func (r *Registry[T]) TagOf(v Value[T]) (string, bool) {
	if v.unknown {
		return v.tag, true
	}
	if d, ok := r.holder(v); ok {
		return d.label(), true
	}
	return "", false
}

func (r *Registry[T]) holder(v Value[T]) (Variant[T], bool) {
	if !v.known {
		return Variant[T]{}, false
	}
	for _, d := range r.variants {
		if d.Holds(v.variant) {
			return d, true
		}
	}
	return Variant[T]{}, false
}

func newRegistryConfig[T any](opts []RegistryOption) registryConfig {
	cfg := registryConfig{name: typeName[T]()}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

func checkVariant[T any](union string, v Variant[T]) {
	if v.Decode == nil || v.Encode == nil || v.Holds == nil {
		panic(fmt.Sprintf("union: %s variant %q is missing Decode, Encode or Holds", union, v.label()))
	}
}
