package rvar

import (
	"reflect"
	"sync/atomic"
	"weak"
)

// UpdateID identifies an update epoch. Zero means "never".
type UpdateID uint64

// AnyVar is the type-erased view of a variable.
//
// The interface is sealed, all implementations live in this package.
type AnyVar interface {
	// ID identifies the variable. Read-only wrappers share the ID of the
	// variable they wrap.
	ID() uint64

	// Runtime returns the runtime that owns the variable.
	Runtime() *Runtime

	// ValueType returns the type of the value.
	ValueType() reflect.Type

	// GetAny returns a boxed copy of the value.
	GetAny() AnyValue

	// SetAny schedules a set from a boxed value of the right type.
	SetAny(value AnyValue) error

	// GetDebug formats the value for debugging.
	GetDebug() string

	// LastUpdate is the epoch in which the value last changed.
	LastUpdate() UpdateID

	// IsNew reports whether the value changed in the current epoch.
	IsNew() bool

	// Capabilities returns the current capabilities.
	Capabilities() Capabilities

	// IsAnimating reports whether the last change came from a live animation.
	IsAnimating() bool

	// ModifyImportance is the importance of the last committed change.
	ModifyImportance() uint64

	// Hook registers fn to run after every committed change. The returned
	// handle keeps the hook alive.
	Hook(fn HookFunc) VarHandle

	// HookAnimationStop registers fn to run when the animation currently
	// driving the variable stops. Returns ErrNotAnimating if there is none.
	HookAnimationStop(fn func()) error

	// Touch schedules a change notification without changing the value.
	Touch() error

	hookWith(pre bool, fn HookFunc) VarHandle
	sealed()
}

// Var is a typed observable variable.
type Var[T any] interface {
	AnyVar

	// With borrows the value for the duration of read. Reading the same
	// variable again from inside read panics with *BorrowConflictError.
	With(read func(value T))

	// Get returns a copy of the value.
	Get() T

	// GetNew returns the value and true if it changed in this epoch.
	GetNew() (T, bool)

	// Modify queues fn to run during the next update. It only fails when
	// the variable cannot be modified; a request later dropped by the
	// importance rule still returns nil.
	Modify(fn func(m *Modify[T])) error

	// Set queues a value replacement.
	Set(value T) error

	// ReadOnly returns a view that rejects writes.
	ReadOnly() Var[T]

	// ActualVar resolves context dependent variables to the variable that
	// backs them in the current context.
	ActualVar() Var[T]

	// Downgrade returns a weak reference.
	Downgrade() WeakVar[T]
}

// WeakVar is a weak reference to a variable.
type WeakVar[T any] interface {
	Upgrade() (Var[T], bool)
}

// WithValue borrows v and returns the result of read.
func WithValue[T, R any](v Var[T], read func(value T) R) R {
	var r R
	v.With(func(value T) {
		r = read(value)
	})
	return r
}

// SetNE schedules value only if it differs from the value at apply time.
func SetNE[T any](v Var[T], value T) error {
	return v.Modify(func(m *Modify[T]) {
		m.SetNE(value)
	})
}

// varCore is the identity and hook list shared by concrete variables.
type varCore struct {
	id     uint64
	rt     *Runtime
	hooks  hookList
	borrow borrowGuard
}

func (c *varCore) init(rt *Runtime) {
	if rt == nil {
		panic("rvar: nil runtime")
	}
	c.id = nextID()
	c.rt = rt
}

func (c *varCore) ID() uint64 {
	return c.id
}

func (c *varCore) Runtime() *Runtime {
	return c.rt
}

func (c *varCore) Hook(fn HookFunc) VarHandle {
	return c.hooks.push(false, fn)
}

func (c *varCore) hookWith(pre bool, fn HookFunc) VarHandle {
	return c.hooks.push(pre, fn)
}

func (c *varCore) notify(args *HookArgs) {
	invoked, pruned := c.hooks.notify(args)
	c.rt.countHooks(invoked, pruned)
}

func (c *varCore) sealed() {}

// borrow states
const (
	borrowIdle int32 = iota
	borrowActive
)

// borrowGuard detects re-entrant access to a payload cell.
type borrowGuard struct {
	state atomic.Int32
}

func (g *borrowGuard) enter(id uint64) {
	if !g.state.CompareAndSwap(borrowIdle, borrowActive) {
		panic(&BorrowConflictError{VarID: id})
	}
}

func (g *borrowGuard) exit() {
	g.state.Store(borrowIdle)
}

// weakRef is a WeakVar over a concrete variable pointer.
type weakRef[P any, T any] struct {
	p  weak.Pointer[P]
	as func(*P) Var[T]
}

func (w weakRef[P, T]) Upgrade() (Var[T], bool) {
	p := w.p.Value()
	if p == nil {
		return nil, false
	}
	return w.as(p), true
}

// strongRef is a WeakVar that always upgrades, used by variables that are
// never collected while reachable anyway, like constants.
type strongRef[T any] struct {
	v Var[T]
}

func (s strongRef[T]) Upgrade() (Var[T], bool) {
	return s.v, true
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

func setAny[T any](v Var[T], value AnyValue) error {
	t, ok := Downcast[T](value)
	if !ok {
		return &TypeMismatchError{Want: typeOf[T](), Got: value.Type()}
	}
	return v.Set(t)
}

func getNew[T any](v Var[T]) (T, bool) {
	if !v.IsNew() {
		var zero T
		return zero, false
	}
	return v.Get(), true
}
