// Package rvar provides observable variables for retained-mode UIs.
//
// Variables are cells that widgets read, write, map, merge, bind together
// and animate. All of them belong to a Runtime, which owns the update
// epoch, the pending-modify queue, the animation scheduler and the
// context stack.
//
// # Variables
//
// Cell[T] is the source-of-truth variable:
//
//	rt := rvar.NewRuntime()
//	count := rvar.New(rt, 0)
//	count.Set(5)        // queued
//	rt.Update()         // applied, hooks fire
//	count.Get()         // 5
//	count.IsNew()       // true until the next update
//
// Writes are never applied in place. Modify, Set and Touch queue a closure
// that is applied during the next Runtime.Update, so every observer sees
// a consistent set of values for an update.
//
// # Derived variables
//
//	doubled := rvar.Map(count, func(n int) int { return n * 2 })
//	label := rvar.Merge2(first, last, func(f, l string) string { return f + " " + l })
//
// Derived variables hold their sources strongly. Sources only hold a weak
// reference back, so an unused derived variable is collected and its hook
// pruned the next time the source changes.
//
// # Bindings
//
//	h := rvar.BindMap(celsius, fahrenheit, toF)
//	defer h.Drop()
//
// BindBidi keeps two variables in sync without ping-pong.
//
// # Context variables
//
//	theme := rvar.NewContextVar(rt, "theme", "light")
//	rvar.WithContextValue(theme, "dark", func() {
//	    theme.Get() // "dark"
//	})
//
// # Animations
//
//	h := rvar.Ease(width, 200.0, 300*time.Millisecond, easing.Out(easing.Cubic))
//
// A direct Set always outranks a running animation, and a newer animation
// outranks an older one.
//
// # Threads
//
// The engine is single threaded: reads, hooks and Update run on one
// update goroutine. Other goroutines talk to it through Sender,
// ModifySender, Receiver and Runtime.Dispatch.
package rvar
