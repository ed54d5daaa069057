package rvar

import "reflect"

// constVar is a variable that never changes.
type constVar[T any] struct {
	id    uint64
	rt    *Runtime
	value T
}

// Const creates a static variable. Its capabilities are empty and writes
// fail with *ReadOnlyError.
func Const[T any](rt *Runtime, value T) Var[T] {
	return &constVar[T]{id: nextID(), rt: rt, value: value}
}

func (c *constVar[T]) ID() uint64                 { return c.id }
func (c *constVar[T]) Runtime() *Runtime          { return c.rt }
func (c *constVar[T]) ValueType() reflect.Type    { return typeOf[T]() }
func (c *constVar[T]) With(read func(value T))    { read(c.value) }
func (c *constVar[T]) Get() T                     { return cloneValue(c.value) }
func (c *constVar[T]) GetAny() AnyValue           { return Box(c.Get()) }
func (c *constVar[T]) GetDebug() string           { return debugString(c.value) }
func (c *constVar[T]) LastUpdate() UpdateID       { return 0 }
func (c *constVar[T]) IsNew() bool                { return false }
func (c *constVar[T]) Capabilities() Capabilities { return 0 }
func (c *constVar[T]) IsAnimating() bool          { return false }
func (c *constVar[T]) ModifyImportance() uint64   { return 0 }
func (c *constVar[T]) ReadOnly() Var[T]           { return c }
func (c *constVar[T]) ActualVar() Var[T]          { return c }
func (c *constVar[T]) Downgrade() WeakVar[T]      { return strongRef[T]{v: c} }
func (c *constVar[T]) sealed()                    {}

func (c *constVar[T]) GetNew() (T, bool) {
	var zero T
	return zero, false
}

// Hook on a constant returns a dummy handle, the hook would never run.
func (c *constVar[T]) Hook(HookFunc) VarHandle           { return VarHandle{} }
func (c *constVar[T]) hookWith(bool, HookFunc) VarHandle { return VarHandle{} }
func (c *constVar[T]) HookAnimationStop(func()) error    { return ErrNotAnimating }
func (c *constVar[T]) Modify(func(*Modify[T])) error     { return &ReadOnlyError{} }
func (c *constVar[T]) Set(T) error                       { return &ReadOnlyError{} }
func (c *constVar[T]) SetAny(AnyValue) error             { return &ReadOnlyError{} }
func (c *constVar[T]) Touch() error                      { return &ReadOnlyError{} }
