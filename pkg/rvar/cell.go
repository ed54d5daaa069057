package rvar

import (
	"reflect"
	"weak"
)

// Cell is a source-of-truth variable. It exclusively owns its value; every
// other kind of variable is derived from one or more cells.
//
// Writes are queued and applied by Runtime.Update:
//
//	name := rvar.New(rt, "")
//	name.Set("Ada")
//	name.Get()  // ""
//	rt.Update()
//	name.Get()  // "Ada"
type Cell[T any] struct {
	varCore
	cellState[T]
}

// New creates a cell with an initial value.
func New[T any](rt *Runtime, initial T) *Cell[T] {
	c := &Cell[T]{}
	c.varCore.init(rt)
	c.value = initial
	return c
}

// With borrows the value for the duration of read.
func (c *Cell[T]) With(read func(value T)) {
	c.borrow.enter(c.id)
	defer c.borrow.exit()
	read(c.value)
}

// Get returns a copy of the value.
func (c *Cell[T]) Get() T {
	var v T
	c.With(func(value T) {
		v = cloneValue(value)
	})
	return v
}

// GetNew returns the value and true if it changed in this epoch.
func (c *Cell[T]) GetNew() (T, bool) {
	return getNew[T](c)
}

// IsNew reports whether the value changed in the current epoch.
func (c *Cell[T]) IsNew() bool {
	return c.last != 0 && c.last == c.rt.Epoch()
}

// LastUpdate is the epoch in which the value last changed.
func (c *Cell[T]) LastUpdate() UpdateID {
	return c.last
}

// Modify queues fn to run during the next update.
func (c *Cell[T]) Modify(fn func(m *Modify[T])) error {
	c.rt.schedule(c, fn)
	return nil
}

// Set queues a value replacement.
func (c *Cell[T]) Set(value T) error {
	return c.Modify(func(m *Modify[T]) {
		m.Set(value)
	})
}

// Touch queues a change notification without changing the value.
func (c *Cell[T]) Touch() error {
	return c.Modify(func(m *Modify[T]) {
		m.Touch()
	})
}

// Capabilities of a cell are always NEW|MODIFY.
func (c *Cell[T]) Capabilities() Capabilities {
	return CapNew | CapModify
}

// IsAnimating reports whether the last change came from a live animation.
func (c *Cell[T]) IsAnimating() bool {
	return c.info.IsAnimating()
}

// ModifyImportance is the importance of the last committed change.
func (c *Cell[T]) ModifyImportance() uint64 {
	return c.info.importance
}

// HookAnimationStop registers fn to run when the current animation stops.
func (c *Cell[T]) HookAnimationStop(fn func()) error {
	return c.hookAnimationStop(fn)
}

// ReadOnly returns a view that rejects writes.
func (c *Cell[T]) ReadOnly() Var[T] {
	return ReadOnly[T](c)
}

// ActualVar returns the cell itself.
func (c *Cell[T]) ActualVar() Var[T] {
	return c
}

// Downgrade returns a weak reference to the cell.
func (c *Cell[T]) Downgrade() WeakVar[T] {
	return weakRef[Cell[T], T]{
		p:  weak.Make(c),
		as: func(c *Cell[T]) Var[T] { return c },
	}
}

// ValueType returns the type of the value.
func (c *Cell[T]) ValueType() reflect.Type {
	return typeOf[T]()
}

// GetAny returns a boxed copy of the value.
func (c *Cell[T]) GetAny() AnyValue {
	return Box(c.Get())
}

// SetAny schedules a set from a boxed value.
func (c *Cell[T]) SetAny(value AnyValue) error {
	return setAny[T](c, value)
}

// GetDebug formats the value for debugging.
func (c *Cell[T]) GetDebug() string {
	return WithValue[T](c, func(v T) string { return debugString(v) })
}

func (c *Cell[T]) applyModifies(entries []*modifyEntry) {
	c.apply(&c.varCore, entries)
}
