package rvar

import (
	"sync"

	"github.com/vango-dev/rvar/pkg/handle"
)

// HookFunc is called after a variable commits a change. Returning false
// removes the hook.
type HookFunc func(args *HookArgs) bool

// HookArgs carries a committed value and the tags pushed by the modify
// closures that produced it.
type HookArgs struct {
	value AnyValue
	tags  []AnyValue
}

// NewHookArgs creates hook arguments. Mostly useful to test hook functions.
func NewHookArgs(value AnyValue, tags ...any) *HookArgs {
	args := &HookArgs{value: value}
	for _, t := range tags {
		args.tags = append(args.tags, boxAny(t))
	}
	return args
}

// Value returns the committed value.
func (a *HookArgs) Value() AnyValue {
	return a.value
}

// Tags returns the tags attached to the change.
func (a *HookArgs) Tags() []AnyValue {
	return a.tags
}

// DowncastValue returns the committed value if it has type T.
func DowncastValue[T any](a *HookArgs) (T, bool) {
	return Downcast[T](a.value)
}

// DowncastTags returns every tag of type T.
func DowncastTags[T any](a *HookArgs) []T {
	var out []T
	for _, t := range a.tags {
		if v, ok := Downcast[T](t); ok {
			out = append(out, v)
		}
	}
	return out
}

// HasTag reports whether tag is attached to the change.
func HasTag[T comparable](a *HookArgs, tag T) bool {
	for _, t := range a.tags {
		if v, ok := Downcast[T](t); ok && v == tag {
			return true
		}
	}
	return false
}

// VarHandle keeps a hook, binding or subscription alive. Dropping it
// cancels the behavior. The zero VarHandle is a dummy.
type VarHandle struct {
	h *handle.Handle[struct{}]
}

// Drop cancels the behavior unless another clone of the handle is held or
// it was made permanent.
func (h VarHandle) Drop() {
	h.h.Drop()
}

// Perm makes the behavior live as long as the variable does.
func (h VarHandle) Perm() {
	h.h.Perm()
}

// Clone returns another handle to the same behavior.
func (h VarHandle) Clone() VarHandle {
	return VarHandle{h: h.h.Clone()}
}

// IsDummy reports whether the handle is not connected to anything, as
// returned when hooking a variable that never changes.
func (h VarHandle) IsDummy() bool {
	return h.h.IsDummy()
}

// IsDropped reports whether the behavior is dead.
func (h VarHandle) IsDropped() bool {
	return h.h.IsDropped()
}

// VarHandles is a set of handles dropped together.
type VarHandles []VarHandle

// Add appends h, ignoring dummies.
func (hs *VarHandles) Add(h VarHandle) {
	if !h.IsDummy() {
		*hs = append(*hs, h)
	}
}

// Drop drops every handle.
func (hs VarHandles) Drop() {
	for _, h := range hs {
		h.Drop()
	}
}

// Perm makes every handle permanent.
func (hs VarHandles) Perm() {
	for _, h := range hs {
		h.Perm()
	}
}

type hookEntry struct {
	fn    HookFunc
	owner *handle.Owner[struct{}]
}

// hookList is a list of weakly held hooks. Dead hooks are removed lazily,
// the next time the list is notified.
type hookList struct {
	mu    sync.Mutex
	pre   []*hookEntry
	hooks []*hookEntry
}

func (l *hookList) push(pre bool, fn HookFunc) VarHandle {
	owner, h := handle.New(struct{}{})
	e := &hookEntry{fn: fn, owner: owner}

	l.mu.Lock()
	if pre {
		l.pre = append(l.pre, e)
	} else {
		l.hooks = append(l.hooks, e)
	}
	l.mu.Unlock()

	return VarHandle{h: h}
}

// notify calls every live hook, pre hooks first. Uses copy-before-notify
// so hooks may register or drop hooks on the same list.
func (l *hookList) notify(args *HookArgs) (invoked, pruned int) {
	l.mu.Lock()
	hooks := make([]*hookEntry, 0, len(l.pre)+len(l.hooks))
	hooks = append(hooks, l.pre...)
	hooks = append(hooks, l.hooks...)
	l.mu.Unlock()

	var dead map[*hookEntry]bool
	for _, e := range hooks {
		retain := false
		if e.owner.IsAlive() {
			invoked++
			retain = e.fn(args)
		}
		if !retain {
			if dead == nil {
				dead = make(map[*hookEntry]bool)
			}
			dead[e] = true
			e.owner.Release()
		}
	}

	if len(dead) > 0 {
		l.mu.Lock()
		l.pre = removeDead(l.pre, dead)
		l.hooks = removeDead(l.hooks, dead)
		l.mu.Unlock()
	}
	return invoked, len(dead)
}

func removeDead(hooks []*hookEntry, dead map[*hookEntry]bool) []*hookEntry {
	kept := hooks[:0]
	for _, e := range hooks {
		if !dead[e] {
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(hooks); i++ {
		hooks[i] = nil
	}
	return kept
}

func (l *hookList) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pre) + len(l.hooks)
}
