package rvar

import (
	"reflect"
	"weak"
)

// CowVar is a clone-on-write variable. It reads as its source until it is
// modified; the first modify copies the value, detaches from the source and
// the variable behaves like a Cell from then on.
type CowVar[T any] struct {
	varCore
	cellState[T]

	source   Var[T]
	handle   VarHandle
	detached bool
}

// Cow creates a clone-on-write variable over source.
func Cow[T any](source Var[T]) *CowVar[T] {
	c := &CowVar[T]{source: source}
	c.varCore.init(source.Runtime())
	c.value = source.Get()
	c.last = source.LastUpdate()

	w := weak.Make(c)
	c.handle = source.Hook(func(args *HookArgs) bool {
		c := w.Value()
		if c == nil || c.detached {
			return false
		}
		if v, ok := DowncastValue[T](args); ok {
			c.commit(&c.varCore, v, args.tags, c.rt.CurrentModify())
		}
		return true
	})
	return c
}

// IsCloned reports whether the variable detached from its source.
func (c *CowVar[T]) IsCloned() bool {
	return c.detached
}

func (c *CowVar[T]) applyModifies(entries []*modifyEntry) {
	if c.apply(&c.varCore, entries) && !c.detached {
		c.detached = true
		c.handle.Drop()
		c.source = nil
	}
}

func (c *CowVar[T]) With(read func(value T)) {
	c.borrow.enter(c.id)
	defer c.borrow.exit()
	read(c.value)
}

func (c *CowVar[T]) Get() T {
	var v T
	c.With(func(value T) {
		v = cloneValue(value)
	})
	return v
}

func (c *CowVar[T]) GetNew() (T, bool) {
	return getNew[T](c)
}

func (c *CowVar[T]) IsNew() bool {
	return c.last != 0 && c.last == c.rt.Epoch()
}

func (c *CowVar[T]) LastUpdate() UpdateID {
	return c.last
}

// Modify queues fn. The first applied modify detaches the variable.
func (c *CowVar[T]) Modify(fn func(m *Modify[T])) error {
	c.rt.schedule(c, fn)
	return nil
}

func (c *CowVar[T]) Set(value T) error {
	return c.Modify(func(m *Modify[T]) {
		m.Set(value)
	})
}

func (c *CowVar[T]) Touch() error {
	return c.Modify(func(m *Modify[T]) {
		m.Touch()
	})
}

// Capabilities are always NEW|MODIFY, a cow of a read-only source can still
// be modified.
func (c *CowVar[T]) Capabilities() Capabilities {
	return CapNew | CapModify
}

func (c *CowVar[T]) IsAnimating() bool {
	return c.info.IsAnimating()
}

func (c *CowVar[T]) ModifyImportance() uint64 {
	return c.info.importance
}

func (c *CowVar[T]) HookAnimationStop(fn func()) error {
	return c.hookAnimationStop(fn)
}

func (c *CowVar[T]) ReadOnly() Var[T] {
	return ReadOnly[T](c)
}

func (c *CowVar[T]) ActualVar() Var[T] {
	return c
}

func (c *CowVar[T]) Downgrade() WeakVar[T] {
	return weakRef[CowVar[T], T]{
		p:  weak.Make(c),
		as: func(c *CowVar[T]) Var[T] { return c },
	}
}

func (c *CowVar[T]) ValueType() reflect.Type {
	return typeOf[T]()
}

func (c *CowVar[T]) GetAny() AnyValue {
	return Box(c.Get())
}

func (c *CowVar[T]) SetAny(value AnyValue) error {
	return setAny[T](c, value)
}

func (c *CowVar[T]) GetDebug() string {
	return WithValue[T](c, func(v T) string { return debugString(v) })
}
