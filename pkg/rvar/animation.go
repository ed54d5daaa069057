package rvar

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/vango-dev/rvar/pkg/easing"
	"github.com/vango-dev/rvar/pkg/handle"
)

// AnimationState is the lifecycle of an animation.
type AnimationState int32

const (
	// AnimationScheduled means the animation has not ticked yet.
	AnimationScheduled AnimationState = iota

	// AnimationRunning means the animation ticked at least once.
	AnimationRunning

	// AnimationStopped means the animation was cancelled: its handle was
	// dropped, its target was modified with a higher importance, or the
	// target was dropped or became read-only.
	AnimationStopped

	// AnimationCompleted means the animation called Stop.
	AnimationCompleted
)

func (s AnimationState) String() string {
	switch s {
	case AnimationScheduled:
		return "scheduled"
	case AnimationRunning:
		return "running"
	case AnimationStopped:
		return "stopped"
	case AnimationCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// IsDone reports whether s is terminal.
func (s AnimationState) IsDone() bool {
	return s == AnimationStopped || s == AnimationCompleted
}

// animationData is shared by an animation, its handles and the ModifyInfo
// of the changes it makes.
type animationData struct {
	id    uint64
	state atomic.Int32
}

func (d *animationData) load() AnimationState {
	return AnimationState(d.state.Load())
}

// Animation is passed to an animation closure on every tick.
type Animation struct {
	data *animationData

	startTime    time.Time
	now          time.Time
	timeScale    float64
	enabled      bool
	sleep        time.Time
	restartCount int
	stop         bool
	cancelled    bool
}

// Now is the time of the current tick. Every animation ticked in the same
// update sees the same Now.
func (a *Animation) Now() time.Time {
	return a.now
}

// StartTime is when the animation started or last restarted.
func (a *Animation) StartTime() time.Time {
	return a.startTime
}

// TimeScale is the runtime time scale at this tick.
func (a *Animation) TimeScale() float64 {
	return a.timeScale
}

// AnimationsEnabled reports whether animations are enabled. When false,
// animations should jump to their end; Elapsed already does.
func (a *Animation) AnimationsEnabled() bool {
	return a.enabled
}

// State returns the lifecycle state.
func (a *Animation) State() AnimationState {
	return a.data.load()
}

// ElapsedDuration is the time from StartTime to Now, not scaled.
func (a *Animation) ElapsedDuration() time.Duration {
	return a.now.Sub(a.startTime)
}

// Elapsed is the scaled elapsed time over duration. It is always the end
// when animations are disabled or the time scale is zero.
func (a *Animation) Elapsed(duration time.Duration) easing.Time {
	if !a.enabled || a.timeScale <= 0 {
		return 1
	}
	elapsed := time.Duration(float64(a.ElapsedDuration()) * a.timeScale)
	return easing.Elapsed(duration, elapsed)
}

// ElapsedStop is Elapsed, stopping the animation at the end.
func (a *Animation) ElapsedStop(duration time.Duration) easing.Time {
	t := a.Elapsed(duration)
	if t.IsEnd() {
		a.Stop()
	}
	return t
}

// ElapsedRestart is Elapsed, restarting the animation at the end.
func (a *Animation) ElapsedRestart(duration time.Duration) easing.Time {
	t := a.Elapsed(duration)
	if t.IsEnd() {
		a.Restart()
	}
	return t
}

// ElapsedRestartStop is Elapsed, restarting the animation at the end until
// it restarted maxRestarts times, then stopping it.
func (a *Animation) ElapsedRestartStop(duration time.Duration, maxRestarts int) easing.Time {
	t := a.Elapsed(duration)
	if t.IsEnd() {
		if a.restartCount < maxRestarts {
			a.Restart()
		} else {
			a.Stop()
		}
	}
	return t
}

// Stop completes the animation after the current update.
func (a *Animation) Stop() {
	a.stop = true
}

// StopRequested reports whether Stop was called.
func (a *Animation) StopRequested() bool {
	return a.stop
}

// cancel stops the animation without completing it.
func (a *Animation) cancel() {
	a.cancelled = true
}

// Restart sets the start time to Now.
func (a *Animation) Restart() {
	a.startTime = a.now
	a.restartCount++
}

// RestartCount is the number of restarts.
func (a *Animation) RestartCount() int {
	return a.restartCount
}

// SetStartTime changes the start time without counting a restart.
func (a *Animation) SetStartTime(t time.Time) {
	a.startTime = t
}

// SetElapsed moves the start time so Elapsed(duration) returns t now.
func (a *Animation) SetElapsed(t easing.Time, duration time.Duration) {
	a.startTime = a.now.Add(-time.Duration(float64(duration) * t.Clamp().Fct()))
}

// Sleep skips ticks until duration elapsed. The animation wakes on the
// first frame after the deadline.
func (a *Animation) Sleep(duration time.Duration) {
	a.sleep = a.now.Add(duration)
}

// AnimationHandle controls a running animation. Dropping every handle
// cancels it unless it was made permanent. The zero AnimationHandle is a
// dummy, returned when nothing could be animated.
type AnimationHandle struct {
	h *handle.Handle[*animationData]
}

// IsDummy reports whether the handle is not connected to an animation.
func (h AnimationHandle) IsDummy() bool {
	return h.h.IsDummy()
}

// Drop releases this handle.
func (h AnimationHandle) Drop() {
	h.h.Drop()
}

// Stop cancels the animation even if other handles are held or it was
// made permanent.
func (h AnimationHandle) Stop() {
	h.h.ForceDrop()
}

// Perm lets the animation run to completion without a handle.
func (h AnimationHandle) Perm() {
	h.h.Perm()
}

// IsPermanent reports whether Perm was called.
func (h AnimationHandle) IsPermanent() bool {
	return h.h.IsPermanent()
}

// Clone returns another handle to the animation.
func (h AnimationHandle) Clone() AnimationHandle {
	return AnimationHandle{h: h.h.Clone()}
}

// IsStopped reports whether the animation is no longer running or will
// be stopped on its next tick.
func (h AnimationHandle) IsStopped() bool {
	return h.h.IsDropped() || h.State().IsDone()
}

// State returns the animation state. Dummies are always stopped.
func (h AnimationHandle) State() AnimationState {
	if h.h.IsDummy() {
		return AnimationStopped
	}
	return h.h.Data().load()
}

// HookAnimationStop registers fn to run when the animation stops or
// completes. Returns ErrNotAnimating if it already finished.
func (h AnimationHandle) HookAnimationStop(fn func()) error {
	if !h.h.OnRelease(fn) {
		return ErrNotAnimating
	}
	return nil
}

// Downgrade returns a weak handle.
func (h AnimationHandle) Downgrade() WeakAnimationHandle {
	return WeakAnimationHandle{w: h.h.Downgrade()}
}

// WeakAnimationHandle refers to an animation without keeping it alive.
type WeakAnimationHandle struct {
	w handle.Weak[*animationData]
}

// Upgrade returns a handle if the animation is still running.
func (w WeakAnimationHandle) Upgrade() (AnimationHandle, bool) {
	h, ok := w.w.Upgrade()
	if !ok {
		return AnimationHandle{}, false
	}
	return AnimationHandle{h: h}, true
}

// animationEntry is an animation registered with the scheduler.
type animationEntry struct {
	owner *handle.Owner[*animationData]
	anim  *Animation
	fn    func(a *Animation)
	info  ModifyInfo
}

// finishState returns the terminal state e should move to, if any.
func (e *animationEntry) finishState() (AnimationState, bool) {
	switch {
	case !e.owner.IsAlive() || e.anim.cancelled:
		return AnimationStopped, true
	case e.anim.stop:
		return AnimationCompleted, true
	default:
		return 0, false
	}
}

// animationScheduler holds the registered animations of a runtime. User
// code never runs while mu is held, animations may start other animations.
type animationScheduler struct {
	mu        sync.Mutex
	imp       uint64
	list      []*animationEntry
	nextFrame time.Time
	startTime time.Time
	hasStart  bool
}

// Animate registers fn to run on every animation frame until it stops.
// Modifies requested by fn carry the importance of the animation: higher
// than every earlier change, lower than every later direct change or
// animation. Animations started by an animation share its importance.
//
// Must be called on the update goroutine.
func (rt *Runtime) Animate(fn func(a *Animation)) AnimationHandle {
	current := rt.CurrentModify()
	s := &rt.anim

	s.mu.Lock()
	imp := current.importance
	if !current.IsAnimating() {
		imp = s.imp + 1
		next := imp + 1
		s.imp = next
		rt.directImp.Store(next)
	}
	if !s.hasStart {
		s.startTime = rt.clock.Now()
		s.hasStart = true
	}
	start := s.startTime
	s.mu.Unlock()

	data := &animationData{id: nextID()}
	owner, h := handle.New(data)
	e := &animationEntry{
		owner: owner,
		anim:  &Animation{data: data, startTime: start, now: start, timeScale: 1, enabled: true},
		fn:    fn,
		info:  ModifyInfo{importance: imp, anim: owner.Weak()},
	}
	s.add(e, rt.clock.Now())
	rt.wakeUp()
	return AnimationHandle{h: h}
}

func (s *animationScheduler) add(e *animationEntry, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.list) == 0 || now.Before(s.nextFrame) {
		s.nextFrame = now
	}
	s.list = append(s.list, e)
}

func (s *animationScheduler) take() []*animationEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.list
	s.list = nil
	return list
}

// restore puts kept entries back in front of entries added meanwhile.
// Returns the number of entries added meanwhile.
func (s *animationScheduler) restore(kept []*animationEntry) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := len(s.list)
	s.list = append(kept, s.list...)
	return added
}

// tick runs every animation if a frame is due at now.
func (s *animationScheduler) tick(rt *Runtime, now time.Time) {
	s.mu.Lock()
	due := len(s.list) > 0 && !now.Before(s.nextFrame)
	s.mu.Unlock()
	if !due {
		return
	}

	frame := rt.frameDuration.Get()
	if frame <= 0 {
		frame = DefaultFrameDuration
	}
	nextFrame := now.Add(frame)
	enabled := rt.animationsEnabled.Get()
	scale := rt.timeScale.Get()
	wake := now.Add(time.Hour)

	entries := s.take()
	restored := false
	defer func() {
		// a panicking animation unwinds the update, the others stay registered
		if !restored {
			s.restore(entries)
		}
	}()

	kept := make([]*animationEntry, 0, len(entries))
	var finished []*animationEntry
	for _, e := range entries {
		if _, done := e.finishState(); done {
			finished = append(finished, e)
			continue
		}
		kept = append(kept, e)

		a := e.anim
		if !a.sleep.IsZero() {
			if a.sleep.After(nextFrame) {
				wake = earliest(wake, a.sleep)
				continue
			}
			if a.sleep.After(now) {
				// sync up with the frame rate after sleeping
				a.sleep = time.Time{}
				wake = earliest(wake, nextFrame)
				continue
			}
			a.sleep = time.Time{}
		}

		a.now = now
		a.enabled = enabled
		a.timeScale = scale
		e.owner.Data().state.CompareAndSwap(int32(AnimationScheduled), int32(AnimationRunning))

		prev := rt.enterModify(e.info)
		e.fn(a)
		rt.exitModify(prev)

		if a.sleep.After(nextFrame) {
			wake = earliest(wake, a.sleep)
		} else {
			wake = earliest(wake, nextFrame)
		}
	}

	restored = true
	if added := s.restore(kept); added > 0 {
		wake = now
	}
	s.mu.Lock()
	s.nextFrame = wake
	s.mu.Unlock()

	for _, e := range finished {
		state, _ := e.finishState()
		s.finish(rt, e, state)
	}
}

// sweep finishes animations that stopped or were cancelled during the
// update.
func (s *animationScheduler) sweep(rt *Runtime) {
	entries := s.take()
	kept := entries[:0]
	var finished []*animationEntry
	for _, e := range entries {
		if _, done := e.finishState(); done {
			finished = append(finished, e)
		} else {
			kept = append(kept, e)
		}
	}
	s.restore(kept)

	for _, e := range finished {
		state, _ := e.finishState()
		s.finish(rt, e, state)
	}
}

// finish moves e to its terminal state and runs the stop callbacks with
// the animation's modify info as the current modify.
func (s *animationScheduler) finish(rt *Runtime, e *animationEntry, state AnimationState) {
	e.owner.Data().state.Store(int32(state))
	rt.logger.Debug("animation finished",
		"animation", e.owner.Data().id,
		"state", state.String(),
		"importance", e.info.importance,
		"restarts", e.anim.restartCount)

	prev := rt.enterModify(e.info)
	defer rt.exitModify(prev)
	e.owner.Release()
}

// resetStart forgets the shared start time at the end of an update.
func (s *animationScheduler) resetStart() {
	s.mu.Lock()
	s.hasStart = false
	s.mu.Unlock()
}

func (s *animationScheduler) nextDeadline() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.list) == 0 {
		return time.Time{}, false
	}
	return s.nextFrame, true
}

func (s *animationScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.list)
}

func earliest(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}
