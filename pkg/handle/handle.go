// Package handle provides owner/handle pairs used to keep a hook or an
// animation alive.
//
// An Owner is held by the side that runs the behavior (a variable's hook
// list, the animation scheduler). Handles are held by the code that
// installed the behavior. The behavior is alive while at least one Handle
// is held or a Handle was made permanent, and is dead as soon as either side
// releases it:
//
//	owner, h := handle.New(struct{}{})
//	owner.IsAlive() // true
//	h.Drop()
//	owner.IsAlive() // false
//
// Handles are released explicitly with Drop. There is no finalizer based
// release: a Handle that is simply forgotten keeps the behavior alive.
package handle

import (
	"sync"
	"sync/atomic"
)

// state is shared between an Owner and all of its Handles.
type state[D any] struct {
	data D

	refs      atomic.Int32
	permanent atomic.Bool
	forced    atomic.Bool
	released  atomic.Bool

	mu     sync.Mutex
	onDrop []func()
}

func (s *state[D]) isAlive() bool {
	if s.forced.Load() || s.released.Load() {
		return false
	}
	return s.refs.Load() > 0 || s.permanent.Load()
}

// Owner is the behavior side of a handle pair.
type Owner[D any] struct {
	s *state[D]
}

// Handle is the owner-visible token for a live behavior.
// A nil *Handle is a dummy that is always dropped.
type Handle[D any] struct {
	s       *state[D]
	dropped atomic.Bool
}

// Weak is a handle reference that does not keep the behavior alive.
type Weak[D any] struct {
	s *state[D]
}

// New creates an owner and its first handle.
func New[D any](data D) (*Owner[D], *Handle[D]) {
	s := &state[D]{data: data}
	s.refs.Store(1)
	return &Owner[D]{s: s}, &Handle[D]{s: s}
}

// Data returns the payload shared by the owner and its handles.
func (o *Owner[D]) Data() D {
	return o.s.data
}

// IsAlive reports whether the behavior should keep running.
func (o *Owner[D]) IsAlive() bool {
	return o.s.isAlive()
}

// IsPermanent reports whether a handle was made permanent.
func (o *Owner[D]) IsPermanent() bool {
	return o.s.permanent.Load()
}

// Weak returns a weak reference to the pair.
func (o *Owner[D]) Weak() Weak[D] {
	return Weak[D]{s: o.s}
}

// Release is called by the behavior side when it stops running.
// All handles observe IsDropped afterwards and registered drop callbacks run
// once, in registration order.
func (o *Owner[D]) Release() {
	if o.s.released.Swap(true) {
		return
	}
	o.s.mu.Lock()
	callbacks := o.s.onDrop
	o.s.onDrop = nil
	o.s.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

// IsReleased reports whether Release was called.
func (o *Owner[D]) IsReleased() bool {
	return o.s.released.Load()
}

// OnRelease registers fn to run when the owner is released. If the owner is
// already released fn is not called and false is returned.
func (o *Owner[D]) OnRelease(fn func()) bool {
	return o.s.onRelease(fn)
}

func (s *state[D]) onRelease(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released.Load() {
		return false
	}
	s.onDrop = append(s.onDrop, fn)
	return true
}

// Dummy returns a handle that is not connected to any behavior.
func Dummy[D any]() *Handle[D] {
	return nil
}

// IsDummy reports whether h is not connected to a behavior.
func (h *Handle[D]) IsDummy() bool {
	return h == nil || h.s == nil
}

// Data returns the shared payload. Calling Data on a dummy returns the zero value.
func (h *Handle[D]) Data() D {
	if h.IsDummy() {
		var zero D
		return zero
	}
	return h.s.data
}

// Clone returns another handle to the same behavior.
func (h *Handle[D]) Clone() *Handle[D] {
	if h.IsDummy() {
		return nil
	}
	h.s.refs.Add(1)
	return &Handle[D]{s: h.s}
}

// Drop releases this handle. Dropping a handle twice is a no-op.
func (h *Handle[D]) Drop() {
	if h.IsDummy() || h.dropped.Swap(true) {
		return
	}
	h.s.refs.Add(-1)
}

// Perm makes the behavior permanent and drops this handle. The owner can
// still release the behavior.
func (h *Handle[D]) Perm() {
	if h.IsDummy() {
		return
	}
	h.s.permanent.Store(true)
	h.Drop()
}

// IsPermanent reports whether the behavior was made permanent.
func (h *Handle[D]) IsPermanent() bool {
	return !h.IsDummy() && h.s.permanent.Load()
}

// ForceDrop kills the behavior even if other handles are held or it is permanent.
func (h *Handle[D]) ForceDrop() {
	if h.IsDummy() {
		return
	}
	h.s.forced.Store(true)
	h.Drop()
}

// IsDropped reports whether the behavior is dead.
func (h *Handle[D]) IsDropped() bool {
	if h.IsDummy() {
		return true
	}
	return !h.s.isAlive()
}

// OnRelease registers fn to run when the owner releases the behavior.
func (h *Handle[D]) OnRelease(fn func()) bool {
	if h.IsDummy() {
		return false
	}
	return h.s.onRelease(fn)
}

// Downgrade returns a weak reference to the behavior.
func (h *Handle[D]) Downgrade() Weak[D] {
	if h.IsDummy() {
		return Weak[D]{}
	}
	return Weak[D]{s: h.s}
}

// Upgrade returns a new handle if the behavior is still alive.
func (w Weak[D]) Upgrade() (*Handle[D], bool) {
	if w.s == nil || !w.s.isAlive() {
		return nil, false
	}
	w.s.refs.Add(1)
	return &Handle[D]{s: w.s}, true
}

// OnRelease registers fn to run when the owner is released, without
// taking a strong reference. It returns false for a zero Weak or when the
// owner is already released.
func (w Weak[D]) OnRelease(fn func()) bool {
	if w.s == nil {
		return false
	}
	return w.s.onRelease(fn)
}

// IsAlive reports whether the referenced behavior is alive.
func (w Weak[D]) IsAlive() bool {
	return w.s != nil && w.s.isAlive()
}

// Same reports whether both weak references point to the same behavior.
func (w Weak[D]) Same(other Weak[D]) bool {
	return w.s != nil && w.s == other.s
}

// IsZero reports whether w was never connected to a behavior.
func (w Weak[D]) IsZero() bool {
	return w.s == nil
}

// Data returns the shared payload, or the zero value for a zero Weak.
func (w Weak[D]) Data() D {
	if w.s == nil {
		var zero D
		return zero
	}
	return w.s.data
}
