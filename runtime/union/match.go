package union

import (
	"fmt"
	"reflect"
)

// Handler is one arm of Match or Switch. Build handlers with On and Do.
type Handler[T, R any] struct {
	holds func(T) bool
	call  func(T) R
	typ   reflect.Type
}

// On returns a Match arm invoked when the held variant is a V.
func On[T, V, R any](fn func(V) R) Handler[T, R] {
	return Handler[T, R]{
		holds: func(t T) bool {
			_, ok := any(t).(V)
			return ok
		},
		call: func(t T) R {
			return fn(any(t).(V))
		},
		typ: reflect.TypeFor[V](),
	}
}

// Do returns a Switch arm invoked when the held variant is a V.
func Do[T, V any](fn func(V)) Handler[T, struct{}] {
	return On[T](func(v V) struct{} {
		fn(v)
		return struct{}{}
	})
}

// Match invokes the first handler whose variant type is held by v and
// returns its result. Unknown or empty values, and known values no handler
// covers, yield ErrUnmatchedVariant; callers of open unions check IsUnknown
// first. The error names the union after the Go type T, not the registry
// name given with Named.
func Match[T, R any](v Value[T], handlers ...Handler[T, R]) (R, error) {
	var zero R
	if !v.known {
		return zero, &Error{kind: ErrorKindUnmatchedVariant, union: typeName[T](), tag: v.tag}
	}
	for _, h := range handlers {
		if h.holds(v.variant) {
			return h.call(v.variant), nil
		}
	}
	return zero, &Error{
		kind:  ErrorKindUnmatchedVariant,
		union: typeName[T](),
		tag:   fmt.Sprintf("%T", v.variant),
	}
}

// Switch is Match for handlers without a result.
func Switch[T any](v Value[T], handlers ...Handler[T, struct{}]) error {
	_, err := Match(v, handlers...)
	return err
}

// Pick narrows v to the variant type V. It never fails loudly: the boolean is
// false for other variants, unknown values and the zero Value.
func Pick[V, T any](v Value[T]) (V, bool) {
	var zero V
	if !v.known {
		return zero, false
	}
	p, ok := any(v.variant).(V)
	if !ok {
		return zero, false
	}
	return p, true
}
