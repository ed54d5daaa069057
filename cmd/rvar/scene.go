package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/vango-dev/rvar/pkg/easing"
	"github.com/vango-dev/rvar/pkg/inspector"
	"github.com/vango-dev/rvar/pkg/rvar"
)

// pulseDuration is the length of one swing of the position animation.
const pulseDuration = time.Second

// scene is the set of variables shown by demo and serve.
type scene struct {
	count    *rvar.Cell[int]
	mirror   *rvar.Cell[int]
	doubled  rvar.Var[int]
	position *rvar.Cell[float64]
	label    rvar.Var[string]

	handles rvar.VarHandles
}

// newScene creates the variables on rt. Must be called on the update
// goroutine.
func newScene(rt *rvar.Runtime) *scene {
	s := &scene{
		count:    rvar.New(rt, 0),
		mirror:   rvar.New(rt, 0),
		position: rvar.New(rt, 0.0),
	}
	s.doubled = rvar.Map[int, int](s.count, func(n int) int { return n * 2 })
	s.label = rvar.Merge2[int, float64, string](s.count, s.position, func(n int, x float64) string {
		return fmt.Sprintf("#%d at %.1f", n, x)
	})
	s.handles.Add(rvar.Bind[int](s.count, s.mirror))

	to := 100.0
	s.handles.Add(rvar.Sequence[float64](s.position, func(v rvar.Var[float64]) rvar.AnimationHandle {
		target := to
		to = 100 - to
		return rvar.Ease[float64](v, target, pulseDuration, easing.InOut(easing.Cubic))
	}))
	return s
}

// tick increments the counter.
func (s *scene) tick() {
	_ = s.count.Modify(func(m *rvar.Modify[int]) {
		m.Update(func(n int) int { return n + 1 })
	})
}

// watch registers every scene variable with in.
func (s *scene) watch(in *inspector.Inspector) {
	s.handles.Add(in.Watch("count", s.count))
	s.handles.Add(in.Watch("mirror", s.mirror))
	s.handles.Add(in.Watch("doubled", s.doubled))
	s.handles.Add(in.Watch("position", s.position))
	s.handles.Add(in.Watch("label", s.label))
}

func (s *scene) String() string {
	return fmt.Sprintf("count=%d mirror=%d doubled=%d position=%6.2f animating=%t label=%q",
		s.count.Get(), s.mirror.Get(), s.doubled.Get(), s.position.Get(), s.position.IsAnimating(), s.label.Get())
}

// close drops every binding, animation and watch of the scene.
func (s *scene) close() {
	s.handles.Drop()
}

// frameClock is a clock moved one frame at a time by the demo.
type frameClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *frameClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *frameClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
