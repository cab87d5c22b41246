package union

import (
	"fmt"
	"reflect"
)

type (
	// Projection is a named field accessor defined over every variant of a
	// union. Get never fails: variants without the field, unknown values and
	// the zero Value all report absence.
	Projection[T, F any] struct {
		name  string
		cases []ProjectionCase[T, F]
	}

	// ProjectionCase maps one variant type to the projected field.
	ProjectionCase[T, F any] struct {
		arm Handler[T, option[F]]
	}

	option[F any] struct {
		value F
		ok    bool
	}
)

// Map projects variant V through fn. fn reports absence with false, for
// example when an optional field is unset.
func Map[T, V, F any](fn func(V) (F, bool)) ProjectionCase[T, F] {
	return ProjectionCase[T, F]{arm: On[T](func(v V) option[F] {
		f, ok := fn(v)
		return option[F]{value: f, ok: ok}
	})}
}

// Field projects variant V to a field it always carries.
func Field[T, V, F any](fn func(V) F) ProjectionCase[T, F] {
	return Map[T](func(v V) (F, bool) { return fn(v), true })
}

// Absent declares that variant V has no such field.
func Absent[T, V, F any]() ProjectionCase[T, F] {
	return Map[T](func(V) (F, bool) {
		var zero F
		return zero, false
	})
}

// NewProjection builds a projection named name. Every variant declared by
// reg must be covered by a case; a missing mapping panics since the accessor
// would not be total.
func NewProjection[T, F any](reg *Registry[T], name string, cases ...ProjectionCase[T, F]) *Projection[T, F] {
	covered := make(map[reflect.Type]bool, len(cases))
	for _, c := range cases {
		covered[c.arm.typ] = true
	}
	for _, d := range reg.variants {
		if d.typ != nil && !covered[d.typ] {
			panic(fmt.Sprintf("union: projection %s of %s does not cover variant %q", name, reg.name, d.label()))
		}
	}
	return &Projection[T, F]{name: name, cases: append([]ProjectionCase[T, F](nil), cases...)}
}

// Name returns the projected field name.
func (p *Projection[T, F]) Name() string { return p.name }

// Get returns the projected field of the variant held by v.
func (p *Projection[T, F]) Get(v Value[T]) (F, bool) {
	var zero F
	if !v.known {
		return zero, false
	}
	for _, c := range p.cases {
		if c.arm.holds(v.variant) {
			o := c.arm.call(v.variant)
			return o.value, o.ok
		}
	}
	return zero, false
}
