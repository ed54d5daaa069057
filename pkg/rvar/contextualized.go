package rvar

import (
	"reflect"
	"sync"
	"weak"
)

// contextual is implemented by variables whose actual variable depends on
// the context they are used in.
type contextual interface {
	isContextual() bool
}

func isContextual(v AnyVar) bool {
	c, ok := v.(contextual)
	return ok && c.isContextual()
}

func (cv *ContextVar[T]) isContextual() bool      { return true }
func (cv *ContextVar[T]) actualAny() AnyVar       { return cv.ActualVar() }
func (r *readOnlyVar[T]) isContextual() bool      { return isContextual(r.v) }
func (r *readOnlyVar[T]) actualAny() AnyVar       { return r.ActualVar() }
func (c *contextualizedVar[T]) actualAny() AnyVar { return c.ActualVar() }

// contextualizedVar builds an actual variable the first time it is used in
// each context init and caches it for that init.
type contextualizedVar[T any] struct {
	id   uint64
	rt   *Runtime
	init func() Var[T]

	mu     sync.Mutex
	actual map[weak.Pointer[ContextInit]]Var[T]
}

// Contextualized creates a variable that calls init on first use in each
// ContextInit, usually to resolve context variables into the variables they
// refer to there. The same contextualized variable used by two widgets with
// different inits produces two independent actual variables.
func Contextualized[T any](rt *Runtime, init func() Var[T]) Var[T] {
	return &contextualizedVar[T]{
		id:     nextID(),
		rt:     rt,
		init:   init,
		actual: make(map[weak.Pointer[ContextInit]]Var[T]),
	}
}

// resolve returns the actual variable for the current context init.
func (c *contextualizedVar[T]) resolve() Var[T] {
	ci := c.rt.contexts.CurrentInit()
	key := weak.Make(ci)

	c.mu.Lock()
	v, ok := c.actual[key]
	c.mu.Unlock()
	if ok {
		return v
	}

	// init may resolve other contextualized variables, so it runs unlocked.
	v = c.init().ActualVar()

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.actual[key]; ok {
		return existing
	}
	for k := range c.actual {
		if k.Value() == nil {
			delete(c.actual, k)
		}
	}
	c.actual[key] = v
	return v
}

func (c *contextualizedVar[T]) ID() uint64              { return c.id }
func (c *contextualizedVar[T]) Runtime() *Runtime       { return c.rt }
func (c *contextualizedVar[T]) ValueType() reflect.Type { return typeOf[T]() }
func (c *contextualizedVar[T]) isContextual() bool      { return true }
func (c *contextualizedVar[T]) sealed()                 {}

func (c *contextualizedVar[T]) With(read func(value T))  { c.resolve().With(read) }
func (c *contextualizedVar[T]) Get() T                   { return c.resolve().Get() }
func (c *contextualizedVar[T]) GetNew() (T, bool)        { return c.resolve().GetNew() }
func (c *contextualizedVar[T]) GetAny() AnyValue         { return c.resolve().GetAny() }
func (c *contextualizedVar[T]) GetDebug() string         { return c.resolve().GetDebug() }
func (c *contextualizedVar[T]) LastUpdate() UpdateID     { return c.resolve().LastUpdate() }
func (c *contextualizedVar[T]) IsNew() bool              { return c.resolve().IsNew() }
func (c *contextualizedVar[T]) IsAnimating() bool        { return c.resolve().IsAnimating() }
func (c *contextualizedVar[T]) ModifyImportance() uint64 { return c.resolve().ModifyImportance() }

// Capabilities are those of the actual variable plus CapCapsChange.
func (c *contextualizedVar[T]) Capabilities() Capabilities {
	return c.resolve().Capabilities() | CapCapsChange
}

func (c *contextualizedVar[T]) Hook(fn HookFunc) VarHandle {
	return c.resolve().Hook(fn)
}

func (c *contextualizedVar[T]) hookWith(pre bool, fn HookFunc) VarHandle {
	return c.resolve().hookWith(pre, fn)
}

func (c *contextualizedVar[T]) HookAnimationStop(fn func()) error {
	return c.resolve().HookAnimationStop(fn)
}

func (c *contextualizedVar[T]) Modify(fn func(m *Modify[T])) error {
	return c.resolve().Modify(fn)
}

func (c *contextualizedVar[T]) Set(value T) error {
	return c.resolve().Set(value)
}

func (c *contextualizedVar[T]) SetAny(value AnyValue) error {
	return c.resolve().SetAny(value)
}

func (c *contextualizedVar[T]) Touch() error {
	return c.resolve().Touch()
}

func (c *contextualizedVar[T]) ReadOnly() Var[T] {
	return ReadOnly[T](c)
}

// ActualVar returns the variable built for the current context init.
func (c *contextualizedVar[T]) ActualVar() Var[T] {
	return c.resolve()
}

func (c *contextualizedVar[T]) Downgrade() WeakVar[T] {
	return weakRef[contextualizedVar[T], T]{
		p:  weak.Make(c),
		as: func(c *contextualizedVar[T]) Var[T] { return c },
	}
}
