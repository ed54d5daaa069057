package rvar

// MergeSlice creates a read-only variable computed from the current values
// of every input. It is recomputed when any input changes and is new in an
// epoch in which any input changed.
func MergeSlice[T, O any](inputs []Var[T], fn func(values []T) O) Var[O] {
	if len(inputs) == 0 {
		panic("rvar: MergeSlice needs at least one input")
	}
	vars := make([]AnyVar, len(inputs))
	for i, v := range inputs {
		vars[i] = v
	}
	return mergeAny(vars,
		func(vals []any) O {
			values := make([]T, len(vals))
			for i, v := range vals {
				values[i] = as[T](v)
			}
			return fn(values)
		},
		func(actual []AnyVar) Var[O] {
			vs := make([]Var[T], len(actual))
			for i, v := range actual {
				vs[i] = v.(Var[T])
			}
			return MergeSlice(vs, fn)
		})
}

// Merge2 merges two variables.
func Merge2[A, B, O any](a Var[A], b Var[B], fn func(A, B) O) Var[O] {
	return mergeAny(
		[]AnyVar{a, b},
		func(vals []any) O { return fn(as[A](vals[0]), as[B](vals[1])) },
		func(actual []AnyVar) Var[O] {
			return Merge2(actual[0].(Var[A]), actual[1].(Var[B]), fn)
		})
}

// Merge3 merges three variables.
func Merge3[A, B, C, O any](a Var[A], b Var[B], c Var[C], fn func(A, B, C) O) Var[O] {
	return mergeAny(
		[]AnyVar{a, b, c},
		func(vals []any) O { return fn(as[A](vals[0]), as[B](vals[1]), as[C](vals[2])) },
		func(actual []AnyVar) Var[O] {
			return Merge3(actual[0].(Var[A]), actual[1].(Var[B]), actual[2].(Var[C]), fn)
		})
}

// Merge4 merges four variables.
func Merge4[A, B, C, D, O any](a Var[A], b Var[B], c Var[C], d Var[D], fn func(A, B, C, D) O) Var[O] {
	return mergeAny(
		[]AnyVar{a, b, c, d},
		func(vals []any) O { return fn(as[A](vals[0]), as[B](vals[1]), as[C](vals[2]), as[D](vals[3])) },
		func(actual []AnyVar) Var[O] {
			return Merge4(actual[0].(Var[A]), actual[1].(Var[B]), actual[2].(Var[C]), actual[3].(Var[D]), fn)
		})
}

// mergeAny implements the fixed arity merges over type-erased inputs.
// rebuild is called with the actual variables of contextual inputs.
func mergeAny[O any](vars []AnyVar, fn func(vals []any) O, rebuild func(actual []AnyVar) Var[O]) Var[O] {
	rt := vars[0].Runtime()
	if anyContextual(vars) {
		return Contextualized(rt, func() Var[O] {
			actual := make([]AnyVar, len(vars))
			for i, v := range vars {
				actual[i] = actualAny(v)
			}
			return rebuild(actual)
		})
	}

	compute := func(inputs []AnyVar) O {
		vals := make([]any, len(inputs))
		for i, v := range inputs {
			vals[i] = v.GetAny().Any()
		}
		return fn(vals)
	}
	if allStatic(vars) {
		return Const(rt, compute(vars))
	}

	d := newDerived(rt, compute(vars), mergedCaps(vars), vars...)
	// Recompute on every input commit, a derived input can commit more
	// than once per epoch.
	for _, v := range vars {
		hookSource(d, v, func(d *derivedVar[O], args *HookArgs) {
			d.set(compute(d.sources), args.tags)
		})
	}
	return d
}

// actualAny resolves a type-erased variable to its actual variable.
type actualVarer interface {
	actualAny() AnyVar
}

func actualAny(v AnyVar) AnyVar {
	if a, ok := v.(actualVarer); ok {
		return a.actualAny()
	}
	return v
}

// as converts a value produced by GetAny back to T. A nil interface value
// converts to the zero T.
func as[T any](v any) T {
	t, _ := v.(T)
	return t
}
