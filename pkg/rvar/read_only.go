package rvar

import "reflect"

// readOnlyVar wraps a variable and rejects writes. Reads, hooks and
// newness are those of the wrapped variable.
type readOnlyVar[T any] struct {
	v Var[T]
}

// ReadOnly returns a view of v that rejects writes with *ReadOnlyError.
// Wrapping a variable that can never be modified returns it unchanged.
func ReadOnly[T any](v Var[T]) Var[T] {
	if _, ok := v.(*readOnlyVar[T]); ok {
		return v
	}
	if v.Capabilities().IsAlwaysReadOnly() {
		return v
	}
	return &readOnlyVar[T]{v: v}
}

func (r *readOnlyVar[T]) ID() uint64               { return r.v.ID() }
func (r *readOnlyVar[T]) Runtime() *Runtime        { return r.v.Runtime() }
func (r *readOnlyVar[T]) ValueType() reflect.Type  { return r.v.ValueType() }
func (r *readOnlyVar[T]) With(read func(value T))  { r.v.With(read) }
func (r *readOnlyVar[T]) Get() T                   { return r.v.Get() }
func (r *readOnlyVar[T]) GetNew() (T, bool)        { return r.v.GetNew() }
func (r *readOnlyVar[T]) GetAny() AnyValue         { return r.v.GetAny() }
func (r *readOnlyVar[T]) GetDebug() string         { return r.v.GetDebug() }
func (r *readOnlyVar[T]) LastUpdate() UpdateID     { return r.v.LastUpdate() }
func (r *readOnlyVar[T]) IsNew() bool              { return r.v.IsNew() }
func (r *readOnlyVar[T]) IsAnimating() bool        { return r.v.IsAnimating() }
func (r *readOnlyVar[T]) ModifyImportance() uint64 { return r.v.ModifyImportance() }
func (r *readOnlyVar[T]) ReadOnly() Var[T]         { return r }
func (r *readOnlyVar[T]) sealed()                  {}

// Capabilities are those of the wrapped variable without CapModify.
func (r *readOnlyVar[T]) Capabilities() Capabilities {
	return r.v.Capabilities().AsReadOnly()
}

func (r *readOnlyVar[T]) Hook(fn HookFunc) VarHandle {
	return r.v.Hook(fn)
}

func (r *readOnlyVar[T]) hookWith(pre bool, fn HookFunc) VarHandle {
	return r.v.hookWith(pre, fn)
}

func (r *readOnlyVar[T]) HookAnimationStop(fn func()) error {
	return r.v.HookAnimationStop(fn)
}

func (r *readOnlyVar[T]) Modify(func(*Modify[T])) error {
	return r.readOnlyError()
}

func (r *readOnlyVar[T]) Set(T) error {
	return r.readOnlyError()
}

func (r *readOnlyVar[T]) SetAny(AnyValue) error {
	return r.readOnlyError()
}

func (r *readOnlyVar[T]) Touch() error {
	return r.readOnlyError()
}

func (r *readOnlyVar[T]) readOnlyError() error {
	return &ReadOnlyError{Capabilities: r.Capabilities()}
}

// ActualVar returns a read-only view of the actual variable.
func (r *readOnlyVar[T]) ActualVar() Var[T] {
	return ReadOnly(r.v.ActualVar())
}

// Downgrade keeps the wrapped variable weak and re-wraps on upgrade.
func (r *readOnlyVar[T]) Downgrade() WeakVar[T] {
	return readOnlyWeak[T]{w: r.v.Downgrade()}
}

type readOnlyWeak[T any] struct {
	w WeakVar[T]
}

func (w readOnlyWeak[T]) Upgrade() (Var[T], bool) {
	v, ok := w.w.Upgrade()
	if !ok {
		return nil, false
	}
	return ReadOnly(v), true
}
