package rvartest

import (
	"log/slog"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/vango-dev/rvar/pkg/rvar"
)

// Epoch is the start time of every ManualClock created by NewHarness.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// ManualClock is a rvar.Clock that only moves when told to.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a clock stopped at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current time of the clock.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Set moves the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Harness drives a runtime with a manual clock.
type Harness struct {
	tb      testing.TB
	Runtime *rvar.Runtime
	Clock   *ManualClock
}

// NewHarness creates a runtime with a ManualClock at Epoch and a logger
// that discards output. opts are applied after the harness defaults.
//
// Example:
//
//	h := rvartest.NewHarness(t, rvar.WithBudget(rvar.UpdateBudget{MaxPasses: 8}))
func NewHarness(tb testing.TB, opts ...rvar.RuntimeOption) *Harness {
	tb.Helper()
	clock := NewManualClock(Epoch)
	all := append([]rvar.RuntimeOption{
		rvar.WithClock(clock),
		rvar.WithLogger(slog.New(slog.DiscardHandler)),
	}, opts...)
	return &Harness{
		tb:      tb,
		Runtime: rvar.NewRuntime(all...),
		Clock:   clock,
	}
}

// Update runs one update.
func (h *Harness) Update() rvar.UpdateStats {
	return h.Runtime.Update()
}

// Advance moves the clock by d and runs one update.
func (h *Harness) Advance(d time.Duration) rvar.UpdateStats {
	h.Clock.Advance(d)
	return h.Runtime.Update()
}

// Frame advances the clock by one frame and runs one update.
func (h *Harness) Frame() rvar.UpdateStats {
	return h.Advance(h.Runtime.FrameDurationVar().Get())
}

// Frames runs n frames.
func (h *Harness) Frames(n int) {
	for range n {
		h.Frame()
	}
}

// maxSettle bounds Settle so a binding cycle fails the test instead of
// hanging it.
const maxSettle = 100

// Settle runs updates until no work is pending and returns how many ran.
// Animations are not waited for. Fails the test if the runtime does not
// settle.
func (h *Harness) Settle() int {
	h.tb.Helper()
	n := 0
	for h.Runtime.HasPendingUpdates() {
		if n == maxSettle {
			h.tb.Fatalf("runtime did not settle after %d updates", maxSettle)
			return n
		}
		h.Runtime.Update()
		n++
	}
	return n
}

// Recorder collects the values committed to a variable.
type Recorder[T any] struct {
	handle rvar.VarHandle

	mu     sync.Mutex
	values []T
}

// Record starts recording the values of v.
func Record[T any](v rvar.Var[T]) *Recorder[T] {
	r := &Recorder[T]{}
	r.handle = rvar.OnNew(v, func(value T) {
		r.mu.Lock()
		r.values = append(r.values, value)
		r.mu.Unlock()
	})
	return r
}

// Values returns a copy of the recorded values.
func (r *Recorder[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.values...)
}

// Len returns the number of recorded values.
func (r *Recorder[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

// Last returns the last recorded value.
func (r *Recorder[T]) Last() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.values) == 0 {
		var zero T
		return zero, false
	}
	return r.values[len(r.values)-1], true
}

// Reset forgets the recorded values.
func (r *Recorder[T]) Reset() {
	r.mu.Lock()
	r.values = nil
	r.mu.Unlock()
}

// Stop ends recording.
func (r *Recorder[T]) Stop() {
	r.handle.Drop()
}

// Expect fails the test unless exactly want was recorded.
func (r *Recorder[T]) Expect(tb testing.TB, want ...T) {
	tb.Helper()
	got := r.Values()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		tb.Errorf("expected recorded values %v, got %v", want, got)
	}
}

// ExpectValue fails the test unless v holds want.
func ExpectValue[T any](tb testing.TB, v rvar.Var[T], want T) {
	tb.Helper()
	if got := v.Get(); !reflect.DeepEqual(got, want) {
		tb.Errorf("expected value %v, got %v", want, got)
	}
}

// ExpectNew fails the test unless v changed in the current epoch.
func ExpectNew(tb testing.TB, v rvar.AnyVar) {
	tb.Helper()
	if !v.IsNew() {
		tb.Errorf("expected variable %d to be new in epoch %d (last update %d)",
			v.ID(), v.Runtime().Epoch(), v.LastUpdate())
	}
}

// ExpectNotNew fails the test if v changed in the current epoch.
func ExpectNotNew(tb testing.TB, v rvar.AnyVar) {
	tb.Helper()
	if v.IsNew() {
		tb.Errorf("expected variable %d not to be new in epoch %d", v.ID(), v.Runtime().Epoch())
	}
}
