package rvar

import "fmt"

// Map creates a read-only variable that is fn of source. The output is
// recomputed and marked new on every source change.
//
// Mapping a context dependent source creates a contextualized variable, a
// static source produces a constant.
func Map[S, T any](source Var[S], fn func(S) T) Var[T] {
	return FilterMap(source, func(s S) (T, bool) { return fn(s), true }, *new(T))
}

// FilterMap creates a read-only variable that is fn of source when fn
// returns true. When fn returns false the previous output is kept, but the
// variable is still marked new. fallback is used when fn rejects the
// initial value.
func FilterMap[S, T any](source Var[S], fn func(S) (T, bool), fallback T) Var[T] {
	rt := source.Runtime()
	if isContextual(source) {
		return Contextualized(rt, func() Var[T] {
			return FilterMap(source.ActualVar(), fn, fallback)
		})
	}
	initial := filterInitial(source, fn, fallback)
	if source.Capabilities().IsAlwaysStatic() {
		return Const(rt, initial)
	}

	d := newDerived(rt, initial, readOnlyCaps(source), source)
	hookSource(d, source, func(d *derivedVar[T], args *HookArgs) {
		s, ok := DowncastValue[S](args)
		if !ok {
			return
		}
		if t, ok := fn(s); ok {
			d.set(t, args.tags)
		} else {
			d.touch(args.tags)
		}
	})
	return d
}

// MapBidi creates a variable that is fn of source and writes back to source
// through inverse.
func MapBidi[S, T any](source Var[S], fn func(S) T, inverse func(T) S) Var[T] {
	return FilterMapBidi(source,
		func(s S) (T, bool) { return fn(s), true },
		func(t T) (S, bool) { return inverse(t), true },
		*new(T))
}

// FilterMapBidi is the bidirectional FilterMap. A write is forwarded to
// source only if inverse accepts the new value.
//
// Writing runs the modify closure against fn of the source value at apply
// time, then sets the source to inverse of the result, inside a modify of
// the source. Tags pushed by the closure are forwarded to the source.
func FilterMapBidi[S, T any](source Var[S], fn func(S) (T, bool), inverse func(T) (S, bool), fallback T) Var[T] {
	rt := source.Runtime()
	if isContextual(source) {
		return Contextualized(rt, func() Var[T] {
			return FilterMapBidi(source.ActualVar(), fn, inverse, fallback)
		})
	}
	initial := filterInitial(source, fn, fallback)
	if source.Capabilities().IsAlwaysStatic() {
		return Const(rt, initial)
	}

	d := newDerived(rt, initial, source.Capabilities, source)
	hookSource(d, source, func(d *derivedVar[T], args *HookArgs) {
		s, ok := DowncastValue[S](args)
		if !ok {
			return
		}
		if t, ok := fn(s); ok {
			d.set(t, args.tags)
		} else {
			d.touch(args.tags)
		}
	})
	d.write = func(modify func(m *Modify[T])) error {
		return source.Modify(func(sm *Modify[S]) {
			current, ok := fn(sm.Value())
			if !ok {
				current = d.value
			}
			m := &Modify[T]{value: current}
			modify(m)
			sm.tags = append(sm.tags, m.tags...)
			if !m.touched {
				return
			}
			if !m.cloned {
				sm.Touch()
				return
			}
			if s, ok := inverse(m.value); ok {
				sm.Set(s)
			}
		})
	}
	return d
}

// MapToString maps source to its fmt %v representation.
func MapToString[T any](source Var[T]) Var[string] {
	return Map(source, func(v T) string { return fmt.Sprint(v) })
}

// MapDebug maps source to its fmt %#v representation.
func MapDebug[T any](source Var[T]) Var[string] {
	return Map(source, func(v T) string { return fmt.Sprintf("%#v", v) })
}

func filterInitial[S, T any](source Var[S], fn func(S) (T, bool), fallback T) T {
	var out T
	source.With(func(s S) {
		if t, ok := fn(s); ok {
			out = t
		} else {
			out = fallback
		}
	})
	return out
}
