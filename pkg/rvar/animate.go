package rvar

import (
	"time"
	"weak"

	"github.com/vango-dev/rvar/pkg/easing"
	"github.com/vango-dev/rvar/pkg/handle"
)

// Animate starts an animation that modifies v every frame. fn receives the
// animation and modify access to the value at each frame.
//
// The animation targets v.ActualVar() and holds it weakly. It stops when
// the target is dropped, cannot be modified or was changed by a more
// important modify, such as a direct Set or a newer animation. If v is
// always read-only a dummy handle is returned.
//
// Must be called on the update goroutine.
func Animate[T any](v Var[T], fn func(a *Animation, m *Modify[T])) AnimationHandle {
	if v.Capabilities().IsAlwaysReadOnly() {
		return AnimationHandle{}
	}
	v = v.ActualVar()
	if v.Capabilities().IsAlwaysReadOnly() {
		return AnimationHandle{}
	}
	rt := v.Runtime()
	target := v.Downgrade()
	return rt.Animate(func(a *Animation) {
		v, ok := target.Upgrade()
		if !ok {
			a.cancel()
			return
		}
		if v.ModifyImportance() > rt.CurrentModify().Importance() {
			a.cancel()
			return
		}
		if err := v.Modify(func(m *Modify[T]) { fn(a, m) }); err != nil {
			a.cancel()
		}
	})
}

// SetEase animates v from from to to over duration. The value is set every
// frame the eased step changes, starting with from.
func SetEase[T any](v Var[T], from, to T, duration time.Duration, fn easing.Func) AnimationHandle {
	return Animate(v, easeTransition(Transition[T]{From: from, To: to}.Sample, duration, fn, 999, false))
}

// Ease animates v from its current value to to over duration.
func Ease[T any](v Var[T], to T, duration time.Duration, fn easing.Func) AnimationHandle {
	return Animate(v, easeTransition(Transition[T]{From: v.Get(), To: to}.Sample, duration, fn, 0, false))
}

// SetEaseNE is SetEase, skipping frames that sample an equal value.
func SetEaseNE[T any](v Var[T], from, to T, duration time.Duration, fn easing.Func) AnimationHandle {
	return Animate(v, easeTransition(Transition[T]{From: from, To: to}.Sample, duration, fn, 999, true))
}

// EaseNE is Ease, skipping frames that sample an equal value.
func EaseNE[T any](v Var[T], to T, duration time.Duration, fn easing.Func) AnimationHandle {
	return Animate(v, easeTransition(Transition[T]{From: v.Get(), To: to}.Sample, duration, fn, 0, true))
}

// SetEaseKeyed animates v across keys, starting at the first key. Returns
// a dummy handle if keys is empty.
func SetEaseKeyed[T any](v Var[T], keys []Keyframe[T], duration time.Duration, fn easing.Func) AnimationHandle {
	if len(keys) == 0 {
		return AnimationHandle{}
	}
	t := KeyedTransition[T]{Keys: keys}
	return Animate(v, easeTransition(t.Sample, duration, fn, 999, false))
}

// EaseKeyed animates v from its current value across keys.
func EaseKeyed[T any](v Var[T], keys []Keyframe[T], duration time.Duration, fn easing.Func) AnimationHandle {
	all := make([]Keyframe[T], 0, len(keys)+1)
	all = append(all, Keyframe[T]{Offset: 0, Value: v.Get()})
	all = append(all, keys...)
	t := KeyedTransition[T]{Keys: all}
	return Animate(v, easeTransition(t.Sample, duration, fn, 0, false))
}

// easeTransition returns the frame closure shared by the ease animations.
// prev is the step considered already applied: 0 skips the first frame of
// an animation that starts at the current value.
func easeTransition[T any](sample func(easing.Step) T, duration time.Duration, fn easing.Func, prev easing.Step, ne bool) func(a *Animation, m *Modify[T]) {
	return func(a *Animation, m *Modify[T]) {
		step := fn(a.ElapsedStop(duration))
		if step == prev {
			return
		}
		prev = step
		if ne {
			m.SetNE(sample(step))
		} else {
			m.Set(sample(step))
		}
	}
}

// Step sets v to value after delay. v is animating until then.
func Step[T any](v Var[T], value T, delay time.Duration) AnimationHandle {
	return Animate(v, func(a *Animation, m *Modify[T]) {
		if !a.AnimationsEnabled() || a.ElapsedDuration() >= delay {
			a.Stop()
			m.Set(value)
		} else {
			a.Sleep(delay)
		}
	})
}

// StepOci oscillates v between value and its current value, switching
// every delay. The variable is set count times, forever if count <= 0.
func StepOci[T any](v Var[T], value T, delay time.Duration, count int) AnimationHandle {
	values := [2]T{v.Get(), value}
	next := 1
	sets := 0
	return Animate(v, func(a *Animation, m *Modify[T]) {
		if !a.AnimationsEnabled() || a.ElapsedDuration() >= delay {
			m.Set(values[next])
			next = 1 - next
			sets++
			if count > 0 && sets >= count {
				a.Stop()
				return
			}
		}
		a.Sleep(delay)
	})
}

// Steps sets v to a sequence of values as duration elapses. Each frame the
// first key with an offset at or above the eased step is applied.
func Steps[T any](v Var[T], keys []Keyframe[T], duration time.Duration, fn easing.Func) AnimationHandle {
	prev := easing.Step(999)
	return Animate(v, func(a *Animation, m *Modify[T]) {
		step := fn(a.ElapsedStop(duration))
		if step == prev {
			return
		}
		prev = step
		for _, k := range keys {
			if k.Offset >= step.Fct() {
				m.Set(k.Value)
				return
			}
		}
	})
}

// Sequence calls animate once to start an animation, then again every time
// that animation completes. It stops when animate returns a dummy handle,
// an animation is stopped instead of completing, v is modified outside the
// sequence, animations are disabled or the returned handle is dropped.
func Sequence[T any](v Var[T], animate func(v Var[T]) AnimationHandle) VarHandle {
	if v.Capabilities().IsAlwaysReadOnly() {
		return VarHandle{}
	}
	v = v.ActualVar()
	if v.Capabilities().IsAlwaysReadOnly() {
		return VarHandle{}
	}
	rt := v.Runtime()
	target := v.Downgrade()

	owner, h := handle.New(struct{}{})
	seq := &sequence[T]{rt: rt, target: target, animate: animate, owner: owner}
	seq.start(v)
	return VarHandle{h: h}
}

type sequence[T any] struct {
	rt      *Runtime
	target  WeakVar[T]
	animate func(v Var[T]) AnimationHandle
	owner   *handle.Owner[struct{}]
}

func (s *sequence[T]) start(v Var[T]) {
	ah := s.animate(v)
	if ah.IsDummy() {
		return
	}
	ah.Perm()
	_ = ah.HookAnimationStop(func() {
		if ah.State() != AnimationCompleted || !s.owner.IsAlive() {
			return
		}
		v, ok := s.target.Upgrade()
		if !ok {
			return
		}
		if v.ModifyImportance() > s.rt.CurrentModify().Importance() || !s.rt.animationsEnabled.Get() {
			return
		}
		s.start(v)
	})
}

// Adder is implemented by values that can be offset by another value, as
// used by ChaseAnimation.Add.
type Adder[T any] interface {
	Add(delta T) T
}

// ChaseAnimation eases a variable toward a target that can change while
// the animation runs. Every change restarts the easing from the current
// value.
type ChaseAnimation[T any] struct {
	v      Var[T]
	target T
	handle AnimationHandle
}

// Chase starts easing v toward first.
func Chase[T any](v Var[T], first T, duration time.Duration, fn easing.Func) *ChaseAnimation[T] {
	return &ChaseAnimation[T]{
		v:      v,
		target: first,
		handle: Ease(v, first, duration, fn),
	}
}

// Target is the current animation target.
func (c *ChaseAnimation[T]) Target() T {
	return c.target
}

// Handle returns the handle of the running animation.
func (c *ChaseAnimation[T]) Handle() AnimationHandle {
	return c.handle
}

// Modify changes the target and restarts the easing toward it. If the
// previous animation stopped the target is first re-synced with the
// variable value.
func (c *ChaseAnimation[T]) Modify(fn func(target *T), duration time.Duration, ease easing.Func) {
	if c.handle.IsStopped() {
		c.target = c.v.Get()
	}
	fn(&c.target)
	c.restart(duration, ease)
}

// Set replaces the target and restarts the easing toward it.
func (c *ChaseAnimation[T]) Set(value T, duration time.Duration, ease easing.Func) {
	c.target = value
	c.restart(duration, ease)
}

// Add offsets the target by delta. Numeric kinds, time.Duration and Adder
// values are added, other values replace the target.
func (c *ChaseAnimation[T]) Add(delta T, duration time.Duration, ease easing.Func) {
	c.Modify(func(target *T) {
		*target = addValue(*target, delta)
	}, duration, ease)
}

func (c *ChaseAnimation[T]) restart(duration time.Duration, ease easing.Func) {
	old := c.handle
	c.handle = Ease(c.v, c.target, duration, ease)
	old.Drop()
}

func addValue[T any](v, delta T) T {
	var out any
	switch x := any(v).(type) {
	case float64:
		out = x + any(delta).(float64)
	case float32:
		out = x + any(delta).(float32)
	case int:
		out = x + any(delta).(int)
	case int8:
		out = x + any(delta).(int8)
	case int16:
		out = x + any(delta).(int16)
	case int32:
		out = x + any(delta).(int32)
	case int64:
		out = x + any(delta).(int64)
	case uint:
		out = x + any(delta).(uint)
	case uint8:
		out = x + any(delta).(uint8)
	case uint16:
		out = x + any(delta).(uint16)
	case uint32:
		out = x + any(delta).(uint32)
	case uint64:
		out = x + any(delta).(uint64)
	case time.Duration:
		out = x + any(delta).(time.Duration)
	case Adder[T]:
		return x.Add(delta)
	default:
		return delta
	}
	return out.(T)
}

// Easing returns a read-only variable that eases to every new value of
// source over duration. Over a context dependent source the follower is
// created in the first context it is read in. A static source is
// returned as is.
func Easing[T any](source Var[T], duration time.Duration, fn easing.Func) Var[T] {
	if isContextual(source) {
		return Contextualized(source.Runtime(), func() Var[T] {
			return Easing(source.ActualVar(), duration, fn)
		})
	}
	if source.Capabilities().IsAlwaysStatic() {
		return source
	}

	cell := New(source.Runtime(), source.Get())
	target := weak.Make(cell)
	var anim AnimationHandle
	source.Hook(func(args *HookArgs) bool {
		c := target.Value()
		if c == nil {
			anim.Drop()
			return false
		}
		if value, ok := DowncastValue[T](args); ok {
			prev := anim
			anim = Ease[T](c, value, duration, fn)
			prev.Drop()
		}
		return true
	}).Perm()
	return cell.ReadOnly()
}
