package rvar

import "github.com/vango-dev/rvar/pkg/handle"

// Bind sets target to every new value of source. The current value is not
// copied, use SetBind for that.
func Bind[T any](source, target Var[T]) VarHandle {
	return BindMap(source, target, func(v T) T { return v })
}

// SetBind sets target to the current value of source and binds it.
func SetBind[T any](source, target Var[T]) VarHandle {
	_ = target.Set(source.Get())
	return Bind(source, target)
}

// BindMap sets target to fn of every new value of source.
func BindMap[S, T any](source Var[S], target Var[T], fn func(S) T) VarHandle {
	return BindFilterMap(source, target, func(s S) (T, bool) { return fn(s), true })
}

// BindFilterMap sets target to fn of every new value of source for which fn
// returns true.
//
// The binding holds target weakly and is removed the first time source
// changes after target was collected. Tags on the source change are
// forwarded to target. Binding a static source or an always read-only
// target returns a dummy handle.
func BindFilterMap[S, T any](source Var[S], target Var[T], fn func(S) (T, bool)) VarHandle {
	if source.Capabilities().IsAlwaysStatic() || target.Capabilities().IsAlwaysReadOnly() {
		return VarHandle{}
	}
	wt := target.Downgrade()
	return source.Hook(func(args *HookArgs) bool {
		t, ok := wt.Upgrade()
		if !ok {
			return false
		}
		s, ok := DowncastValue[S](args)
		if !ok {
			return true
		}
		if v, ok := fn(s); ok {
			_ = setTagged(t, v, args.tags)
		}
		return true
	})
}

// bindTag marks changes made by one bidirectional binding. Each binding has
// its own tag so chains of bidirectional bindings propagate across every
// link exactly once.
type bindTag struct {
	id uint64
}

// BindBidi keeps a and b equal. Setting either side sets the other once;
// the change does not bounce back.
func BindBidi[T any](a, b Var[T]) VarHandle {
	id := func(v T) T { return v }
	return BindMapBidi(a, b, id, id)
}

// BindMapBidi binds a to b through fn and b to a through inverse.
func BindMapBidi[A, B any](a Var[A], b Var[B], fn func(A) B, inverse func(B) A) VarHandle {
	return BindFilterMapBidi(a, b,
		func(v A) (B, bool) { return fn(v), true },
		func(v B) (A, bool) { return inverse(v), true })
}

// BindFilterMapBidi is the bidirectional BindFilterMap.
//
// Each direction tags the change it makes and ignores changes that carry
// the tag, so a change only crosses the binding once. Both directions are
// cancelled together by dropping the returned handle.
func BindFilterMapBidi[A, B any](a Var[A], b Var[B], fn func(A) (B, bool), inverse func(B) (A, bool)) VarHandle {
	tag := bindTag{id: nextID()}
	owner, h := handle.New(struct{}{})

	wa, wb := a.Downgrade(), b.Downgrade()
	forward := bidiHook(owner, tag, wb, fn)
	backward := bidiHook(owner, tag, wa, inverse)

	if !a.Capabilities().IsAlwaysStatic() {
		a.Hook(forward).Perm()
	}
	if !b.Capabilities().IsAlwaysStatic() {
		b.Hook(backward).Perm()
	}
	return VarHandle{h: h}
}

func bidiHook[S, T any](owner *handle.Owner[struct{}], tag bindTag, target WeakVar[T], fn func(S) (T, bool)) HookFunc {
	return func(args *HookArgs) bool {
		if !owner.IsAlive() {
			return false
		}
		t, ok := target.Upgrade()
		if !ok {
			owner.Release()
			return false
		}
		if HasTag(args, tag) {
			return true
		}
		s, ok := DowncastValue[S](args)
		if !ok {
			return true
		}
		if v, ok := fn(s); ok {
			_ = setTagged(t, v, args.tags, Box(tag))
		}
		return true
	}
}

// setTagged schedules a set of v on target carrying tags and extra.
func setTagged[T any](target Var[T], v T, tags []AnyValue, extra ...AnyValue) error {
	tags = append(append([]AnyValue(nil), tags...), extra...)
	return target.Modify(func(m *Modify[T]) {
		m.Set(v)
		m.tags = append(m.tags, tags...)
	})
}

// OnNew calls fn with every new value of v.
func OnNew[T any](v Var[T], fn func(value T)) VarHandle {
	return v.Hook(func(args *HookArgs) bool {
		if value, ok := DowncastValue[T](args); ok {
			fn(value)
		}
		return true
	})
}

// OnPreNew is OnNew with fn called before the regular hooks of v.
func OnPreNew[T any](v Var[T], fn func(value T)) VarHandle {
	return v.hookWith(true, func(args *HookArgs) bool {
		if value, ok := DowncastValue[T](args); ok {
			fn(value)
		}
		return true
	})
}
