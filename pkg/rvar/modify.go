package rvar

import (
	"sync/atomic"

	"github.com/vango-dev/rvar/pkg/handle"
)

// Modify is the value being modified inside a Modify closure. Changes are
// committed after every closure queued for the variable in the same update
// has run.
type Modify[T any] struct {
	value   T
	touched bool
	cloned  bool
	tags    []AnyValue
}

// Value returns the current value, including changes made by earlier
// closures in the same update.
func (m *Modify[T]) Value() T {
	return m.value
}

// Set replaces the value.
func (m *Modify[T]) Set(value T) {
	m.value = value
	m.cloned = true
	m.touched = true
}

// SetNE replaces the value only if it is not equal to the current one.
func (m *Modify[T]) SetNE(value T) {
	if !defaultEquals(m.value, value) {
		m.Set(value)
	}
}

// Update replaces the value with fn(current).
func (m *Modify[T]) Update(fn func(T) T) {
	m.Set(fn(m.value))
}

// ToMut returns a pointer to the value for in-place changes and marks the
// variable as changed. Values implementing Cloner are cloned first so the
// committed value is not mutated before the update applies.
func (m *Modify[T]) ToMut() *T {
	if !m.cloned {
		m.value = cloneValue(m.value)
		m.cloned = true
	}
	m.touched = true
	return &m.value
}

// Touch forces a change notification without changing the value.
func (m *Modify[T]) Touch() {
	m.touched = true
}

// IsTouched reports whether the value will be committed.
func (m *Modify[T]) IsTouched() bool {
	return m.touched
}

// PushTag attaches a tag to the change. Hooks see it in HookArgs.Tags.
func (m *Modify[T]) PushTag(tag any) {
	m.tags = append(m.tags, boxAny(tag))
}

// Tags returns the tags pushed so far.
func (m *Modify[T]) Tags() []AnyValue {
	return m.tags
}

// ModifyInfo identifies who requested a modify and with what importance.
type ModifyInfo struct {
	importance uint64
	anim       handle.Weak[*animationData]
}

// Importance returns the ordering value of the request. A request is
// applied only if its importance is not lower than the importance of the
// last change committed to the variable.
func (i ModifyInfo) Importance() uint64 {
	return i.importance
}

// IsAnimating reports whether the request came from a live animation.
func (i ModifyInfo) IsAnimating() bool {
	return i.anim.IsAlive()
}

// HookAnimationStop registers fn to run when the animation that made the
// request stops.
func (i ModifyInfo) HookAnimationStop(fn func()) error {
	if !i.anim.IsAlive() || !i.anim.OnRelease(fn) {
		return ErrNotAnimating
	}
	return nil
}

// applier is a variable that owns a payload cell fed by the pending queue.
type applier interface {
	ID() uint64
	isApplying() bool
	applyModifies(entries []*modifyEntry)
}

// modifyEntry is one queued modify closure.
type modifyEntry struct {
	target applier
	info   ModifyInfo
	fn     any
}

// cellState is the payload shared by variables that apply queued modifies.
type cellState[T any] struct {
	value    T
	last     UpdateID
	info     ModifyInfo
	applying atomic.Bool
}

func (st *cellState[T]) isApplying() bool {
	return st.applying.Load()
}

// apply runs every closure in submission order, commits the result once
// and notifies hooks. Returns true if the value was committed.
func (st *cellState[T]) apply(core *varCore, entries []*modifyEntry) bool {
	rt := core.rt
	st.applying.Store(true)
	defer st.applying.Store(false)

	m := &Modify[T]{value: st.value}
	touched := false
	info := st.info

	for _, e := range entries {
		if e.info.importance < info.importance {
			rt.discardModify(core.id, e.info.importance, info.importance)
			continue
		}
		fn, ok := e.fn.(func(*Modify[T]))
		if !ok {
			continue
		}

		m.touched = false
		prev := rt.enterModify(e.info)
		fn(m)
		rt.exitModify(prev)
		rt.countApplied(1)

		if m.touched {
			touched = true
			info = e.info
		}
	}

	if !touched {
		return false
	}
	st.commit(core, m.value, m.tags, info)
	return true
}

// commit stores value, stamps the epoch and notifies hooks with info as the
// current modify, so modifies requested by hooks inherit its importance.
func (st *cellState[T]) commit(core *varCore, value T, tags []AnyValue, info ModifyInfo) {
	rt := core.rt
	core.borrow.enter(core.id)
	st.value = value
	st.last = rt.Epoch()
	st.info = info
	core.borrow.exit()

	prev := rt.enterModify(info)
	defer rt.exitModify(prev)
	core.notify(&HookArgs{value: Box(value), tags: tags})
}

func (st *cellState[T]) hookAnimationStop(fn func()) error {
	return st.info.HookAnimationStop(fn)
}
