package rvar

import "reflect"

// ContextVar is a variable identifier resolved against the runtime's
// context stack. Outside any scope it resolves to its default variable.
type ContextVar[T any] struct {
	id   uint64
	rt   *Runtime
	name string
	def  Var[T]
}

// NewContextVar creates a context variable with a default value.
func NewContextVar[T any](rt *Runtime, name string, def T) *ContextVar[T] {
	return NewContextVarFrom(rt, name, Var[T](New(rt, def)))
}

// NewContextVarFrom creates a context variable whose default is another
// variable.
func NewContextVarFrom[T any](rt *Runtime, name string, def Var[T]) *ContextVar[T] {
	return &ContextVar[T]{id: nextID(), rt: rt, name: name, def: def}
}

// Name returns the debug name.
func (cv *ContextVar[T]) Name() string {
	return cv.name
}

// Default returns the default variable.
func (cv *ContextVar[T]) Default() Var[T] {
	return cv.def
}

// WithContextVar runs fn with cv resolving to source. The override is
// removed when fn returns or panics.
func WithContextVar[T any](cv *ContextVar[T], source Var[T], fn func()) {
	stack := cv.rt.contexts
	f := stack.push(cv.id, source)
	defer stack.pop(f)
	fn()
}

// WithContextValue runs fn with cv resolving to a constant value.
func WithContextValue[T any](cv *ContextVar[T], value T, fn func()) {
	WithContextVar(cv, Const(cv.rt, value), fn)
}

// resolve returns the variable cv refers to in the current context and
// the frame it came from, nil for the default.
func (cv *ContextVar[T]) resolve() (Var[T], *contextFrame) {
	if f := cv.rt.contexts.resolve(cv.id); f != nil {
		if v, ok := f.source.(Var[T]); ok {
			return v, f
		}
	}
	return cv.def, nil
}

// enter resolves cv and marks the frame busy until leave is called.
func (cv *ContextVar[T]) enter() (Var[T], func()) {
	v, f := cv.resolve()
	if f == nil {
		return v, func() {}
	}
	f.busy++
	return v, func() { f.busy-- }
}

func (cv *ContextVar[T]) ID() uint64              { return cv.id }
func (cv *ContextVar[T]) Runtime() *Runtime       { return cv.rt }
func (cv *ContextVar[T]) ValueType() reflect.Type { return typeOf[T]() }
func (cv *ContextVar[T]) sealed()                 {}

// actual resolves cv down to a concrete variable. The frame is busy only
// while resolving, so reads of cv from inside a borrow see the same frame.
func (cv *ContextVar[T]) actual() Var[T] {
	v, leave := cv.enter()
	defer leave()
	return v.ActualVar()
}

// With borrows the value of the variable cv currently resolves to.
func (cv *ContextVar[T]) With(read func(value T)) {
	cv.actual().With(read)
}

func (cv *ContextVar[T]) Get() T {
	return cv.actual().Get()
}

func (cv *ContextVar[T]) GetNew() (T, bool) {
	return getNew[T](cv)
}

func (cv *ContextVar[T]) GetAny() AnyValue {
	return Box(cv.Get())
}

func (cv *ContextVar[T]) SetAny(value AnyValue) error {
	return setAny[T](cv, value)
}

func (cv *ContextVar[T]) GetDebug() string {
	return WithValue[T](cv, func(v T) string { return debugString(v) })
}

func (cv *ContextVar[T]) LastUpdate() UpdateID {
	v, leave := cv.enter()
	defer leave()
	return v.LastUpdate()
}

func (cv *ContextVar[T]) IsNew() bool {
	v, leave := cv.enter()
	defer leave()
	return v.IsNew()
}

// Capabilities are those of the current source plus CapCapsChange.
func (cv *ContextVar[T]) Capabilities() Capabilities {
	v, leave := cv.enter()
	defer leave()
	return v.Capabilities() | CapCapsChange
}

func (cv *ContextVar[T]) IsAnimating() bool {
	v, leave := cv.enter()
	defer leave()
	return v.IsAnimating()
}

func (cv *ContextVar[T]) ModifyImportance() uint64 {
	v, leave := cv.enter()
	defer leave()
	return v.ModifyImportance()
}

// Hook registers fn on the variable cv currently resolves to.
func (cv *ContextVar[T]) Hook(fn HookFunc) VarHandle {
	return cv.hookWith(false, fn)
}

func (cv *ContextVar[T]) hookWith(pre bool, fn HookFunc) VarHandle {
	v, leave := cv.enter()
	defer leave()
	return v.hookWith(pre, fn)
}

func (cv *ContextVar[T]) HookAnimationStop(fn func()) error {
	v, leave := cv.enter()
	defer leave()
	return v.HookAnimationStop(fn)
}

// Modify forwards to the variable cv currently resolves to.
func (cv *ContextVar[T]) Modify(fn func(m *Modify[T])) error {
	v, leave := cv.enter()
	defer leave()
	return v.Modify(fn)
}

func (cv *ContextVar[T]) Set(value T) error {
	v, leave := cv.enter()
	defer leave()
	return v.Set(value)
}

func (cv *ContextVar[T]) Touch() error {
	v, leave := cv.enter()
	defer leave()
	return v.Touch()
}

func (cv *ContextVar[T]) ReadOnly() Var[T] {
	return ReadOnly[T](cv)
}

// ActualVar returns the variable cv resolves to in the current context.
func (cv *ContextVar[T]) ActualVar() Var[T] {
	v, leave := cv.enter()
	defer leave()
	return v.ActualVar()
}

// Downgrade returns a reference that always upgrades; context variables
// are identifiers and are not collected while referenced.
func (cv *ContextVar[T]) Downgrade() WeakVar[T] {
	return strongRef[T]{v: cv}
}
