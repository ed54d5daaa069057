package rvar

import (
	"reflect"
	"weak"
)

// derivedVar is the output cell of a derived variable. Its value is
// written by hooks installed on the sources; it holds the sources and the
// source hook handles while the hooks only hold it weakly.
type derivedVar[T any] struct {
	varCore
	cellState[T]

	caps    func() Capabilities
	sources []AnyVar
	handles VarHandles

	// write is set by bidirectional variables.
	write func(fn func(m *Modify[T])) error
}

func newDerived[T any](rt *Runtime, initial T, caps func() Capabilities, sources ...AnyVar) *derivedVar[T] {
	d := &derivedVar[T]{caps: caps, sources: sources}
	d.varCore.init(rt)
	d.value = initial
	return d
}

// hookSource installs fn on source. fn runs only while d is alive; the hook
// is removed the first time it fires after d was collected.
func hookSource[T any](d *derivedVar[T], source AnyVar, fn func(d *derivedVar[T], args *HookArgs)) {
	w := weak.Make(d)
	d.handles.Add(source.Hook(func(args *HookArgs) bool {
		d := w.Value()
		if d == nil {
			return false
		}
		fn(d, args)
		return true
	}))
}

// set commits a new output from inside a source hook.
func (d *derivedVar[T]) set(value T, tags []AnyValue) {
	d.commit(&d.varCore, value, tags, d.rt.CurrentModify())
}

// touch marks the output new without changing it.
func (d *derivedVar[T]) touch(tags []AnyValue) {
	d.commit(&d.varCore, d.value, tags, d.rt.CurrentModify())
}

func (d *derivedVar[T]) With(read func(value T)) {
	d.borrow.enter(d.id)
	defer d.borrow.exit()
	read(d.value)
}

func (d *derivedVar[T]) Get() T {
	var v T
	d.With(func(value T) {
		v = cloneValue(value)
	})
	return v
}

func (d *derivedVar[T]) GetNew() (T, bool) {
	return getNew[T](d)
}

func (d *derivedVar[T]) IsNew() bool {
	return d.last != 0 && d.last == d.rt.Epoch()
}

func (d *derivedVar[T]) LastUpdate() UpdateID {
	return d.last
}

func (d *derivedVar[T]) Capabilities() Capabilities {
	return d.caps().normalize()
}

func (d *derivedVar[T]) IsAnimating() bool {
	return d.info.IsAnimating()
}

func (d *derivedVar[T]) ModifyImportance() uint64 {
	return d.info.importance
}

func (d *derivedVar[T]) HookAnimationStop(fn func()) error {
	return d.hookAnimationStop(fn)
}

// Modify forwards to the source through the inverse mapping of a
// bidirectional variable. Other derived variables are read-only.
func (d *derivedVar[T]) Modify(fn func(m *Modify[T])) error {
	if d.write == nil {
		return &ReadOnlyError{Capabilities: d.Capabilities()}
	}
	return d.write(fn)
}

func (d *derivedVar[T]) Set(value T) error {
	return d.Modify(func(m *Modify[T]) {
		m.Set(value)
	})
}

func (d *derivedVar[T]) Touch() error {
	return d.Modify(func(m *Modify[T]) {
		m.Touch()
	})
}

func (d *derivedVar[T]) ReadOnly() Var[T] {
	return ReadOnly[T](d)
}

func (d *derivedVar[T]) ActualVar() Var[T] {
	return d
}

func (d *derivedVar[T]) Downgrade() WeakVar[T] {
	return weakRef[derivedVar[T], T]{
		p:  weak.Make(d),
		as: func(d *derivedVar[T]) Var[T] { return d },
	}
}

func (d *derivedVar[T]) ValueType() reflect.Type {
	return typeOf[T]()
}

func (d *derivedVar[T]) GetAny() AnyValue {
	return Box(d.Get())
}

func (d *derivedVar[T]) SetAny(value AnyValue) error {
	return setAny[T](d, value)
}

func (d *derivedVar[T]) GetDebug() string {
	return WithValue[T](d, func(v T) string { return debugString(v) })
}

// readOnlyCaps returns the capabilities of source without CapModify.
func readOnlyCaps(source AnyVar) func() Capabilities {
	return func() Capabilities {
		return source.Capabilities().AsReadOnly()
	}
}

// mergedCaps is CapNew if any input can change.
func mergedCaps(inputs []AnyVar) func() Capabilities {
	return func() Capabilities {
		var caps Capabilities
		for _, v := range inputs {
			caps |= v.Capabilities() & CapNew
		}
		return caps
	}
}

func allStatic(inputs []AnyVar) bool {
	for _, v := range inputs {
		if !v.Capabilities().IsAlwaysStatic() {
			return false
		}
	}
	return true
}

func anyContextual(inputs []AnyVar) bool {
	for _, v := range inputs {
		if isContextual(v) {
			return true
		}
	}
	return false
}
