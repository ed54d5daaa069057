package rvar

import (
	"fmt"
	"reflect"
)

// AnyValue is a type-erased variable value or hook tag.
//
// The interface is sealed: values are created with Box and read back with
// Downcast.
type AnyValue interface {
	// Type returns the static type the value was boxed with.
	Type() reflect.Type

	// Any returns the boxed value.
	Any() any

	// Clone returns a copy, cloning the payload if it implements Cloner.
	Clone() AnyValue

	// String returns a debug representation of the value.
	String() string

	sealed()
}

// Cloner is implemented by values that need a deep copy when read out of
// a variable. Get and Modify.ToMut use it; other values are copied by
// assignment.
type Cloner[T any] interface {
	Clone() T
}

func cloneValue[T any](v T) T {
	if c, ok := any(v).(Cloner[T]); ok {
		return c.Clone()
	}
	return v
}

type box[T any] struct {
	v T
}

// Box erases the type of v.
func Box[T any](v T) AnyValue {
	return &box[T]{v: v}
}

func (b *box[T]) Type() reflect.Type { return reflect.TypeFor[T]() }
func (b *box[T]) Any() any           { return b.v }
func (b *box[T]) Clone() AnyValue    { return &box[T]{v: cloneValue(b.v)} }
func (b *box[T]) String() string     { return debugString(b.v) }
func (b *box[T]) sealed()            {}

// dynBox holds values whose static type is not known, such as tags pushed
// as any.
type dynBox struct {
	v any
}

func boxAny(v any) AnyValue {
	if av, ok := v.(AnyValue); ok {
		return av
	}
	return &dynBox{v: v}
}

func (b *dynBox) Type() reflect.Type { return reflect.TypeOf(b.v) }
func (b *dynBox) Any() any           { return b.v }
func (b *dynBox) Clone() AnyValue    { return b }
func (b *dynBox) String() string     { return debugString(b.v) }
func (b *dynBox) sealed()            {}

// Downcast returns the value boxed in v if it has type T.
func Downcast[T any](v AnyValue) (T, bool) {
	if v == nil {
		var zero T
		return zero, false
	}
	if b, ok := v.(*box[T]); ok {
		return b.v, true
	}
	t, ok := v.Any().(T)
	return t, ok
}

func debugString(v any) string {
	return fmt.Sprintf("%v", v)
}

// defaultEquals provides type-appropriate equality checking.
// Uses == for common comparable types and reflect.DeepEqual for others.
func defaultEquals[T any](a, b T) bool {
	switch av := any(a).(type) {
	case int:
		return av == any(b).(int)
	case int8:
		return av == any(b).(int8)
	case int16:
		return av == any(b).(int16)
	case int32:
		return av == any(b).(int32)
	case int64:
		return av == any(b).(int64)
	case uint:
		return av == any(b).(uint)
	case uint8:
		return av == any(b).(uint8)
	case uint16:
		return av == any(b).(uint16)
	case uint32:
		return av == any(b).(uint32)
	case uint64:
		return av == any(b).(uint64)
	case float32:
		return av == any(b).(float32)
	case float64:
		return av == any(b).(float64)
	case string:
		return av == any(b).(string)
	case bool:
		return av == any(b).(bool)
	default:
		return reflect.DeepEqual(a, b)
	}
}
