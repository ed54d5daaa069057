package rvar

import "weak"

// flatMapState is the current inner variable of a flat map. Hooks on old
// inner variables are dropped on rebind and ignore notifications by
// generation.
type flatMapState[T any] struct {
	inner  Var[T]
	handle VarHandle
	gen    uint64
}

func (st *flatMapState[T]) bind(d *derivedVar[T], inner Var[T]) {
	st.handle.Drop()
	st.inner = inner
	st.gen++
	gen := st.gen
	w := weak.Make(d)
	st.handle = inner.Hook(func(args *HookArgs) bool {
		d := w.Value()
		if d == nil || st.gen != gen {
			return false
		}
		if v, ok := DowncastValue[T](args); ok {
			d.set(v, args.tags)
		}
		return true
	})
}

// FlatMap creates a variable that follows the variable fn returns for the
// current value of source. When source changes the output rebinds to the
// new inner variable and takes its value. Modifies are forwarded to the
// current inner variable, and the capabilities are those of the inner
// variable plus CapCapsChange.
func FlatMap[S, T any](source Var[S], fn func(S) Var[T]) Var[T] {
	rt := source.Runtime()
	if isContextual(source) {
		return Contextualized(rt, func() Var[T] {
			return FlatMap(source.ActualVar(), fn)
		})
	}
	if source.Capabilities().IsAlwaysStatic() {
		return WithValue(source, fn)
	}

	st := &flatMapState[T]{}
	inner := WithValue(source, fn)
	d := newDerived(rt, inner.Get(), func() Capabilities {
		return st.inner.Capabilities() | CapNew | CapCapsChange
	}, source)
	d.write = func(modify func(m *Modify[T])) error {
		return st.inner.Modify(modify)
	}
	st.bind(d, inner)

	hookSource(d, source, func(d *derivedVar[T], args *HookArgs) {
		s, ok := DowncastValue[S](args)
		if !ok {
			return
		}
		st.bind(d, fn(s))
		d.set(st.inner.Get(), args.tags)
	})
	return d
}

// WhenCase pairs a condition with the variable used while it is true.
type WhenCase[T any] struct {
	Cond  Var[bool]
	Value Var[T]
}

// Case creates a WhenCase.
func Case[T any](cond Var[bool], value Var[T]) WhenCase[T] {
	return WhenCase[T]{Cond: cond, Value: value}
}

// When creates a variable that follows the value of the first case whose
// condition is true, or def when none is.
//
//	color := rvar.When(normal,
//	    rvar.Case(pressed, pressedColor),
//	    rvar.Case(hovered, hoverColor),
//	)
func When[T any](def Var[T], cases ...WhenCase[T]) Var[T] {
	if len(cases) == 0 {
		return def
	}
	conds := make([]Var[bool], len(cases))
	for i, c := range cases {
		conds[i] = c.Cond
	}
	index := MergeSlice(conds, func(values []bool) int {
		for i, v := range values {
			if v {
				return i
			}
		}
		return -1
	})
	return FlatMap(index, func(i int) Var[T] {
		if i < 0 {
			return def
		}
		return cases[i].Value
	})
}
