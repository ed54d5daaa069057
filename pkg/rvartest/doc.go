// Package rvartest provides testing helpers for code built on rvar.
//
// The rvartest package removes the boilerplate of driving a runtime by
// hand: a manual clock for deterministic animations, a harness that steps
// updates and frames, and a recorder for the values a variable commits.
//
// # Quick Start
//
//	func TestCounter(t *testing.T) {
//	    h := rvartest.NewHarness(t)
//	    count := rvar.New(h.Runtime, 0)
//	    rec := rvartest.Record[int](count)
//
//	    count.Set(1)
//	    h.Update()
//
//	    rvartest.ExpectValue[int](t, count, 1)
//	    rec.Expect(t, 1)
//	}
//
// # Animations
//
// The harness runtime uses a ManualClock. Frame advances the clock by one
// frame and runs an update, so animations see exact elapsed times:
//
//	rvar.Ease[float64](x, 100, time.Second, easing.Linear)
//	h.Update()                   // first tick, elapsed 0
//	h.Advance(500 * time.Millisecond)
//	rvartest.ExpectValue[float64](t, x, 50)
//
// # Settling
//
// Settle runs updates until nothing is pending, which is how chains of
// bindings are usually observed in tests:
//
//	h.Settle()
package rvartest
