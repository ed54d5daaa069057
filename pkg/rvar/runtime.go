package rvar

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/vango-dev/rvar"

// UpdateStats describes one Runtime.Update.
type UpdateStats struct {
	// Epoch is the epoch the update ran in.
	Epoch UpdateID

	// Passes is how many times the pending queue was drained.
	Passes int

	// Applied counts modify closures that ran.
	Applied int

	// Discarded counts modify closures dropped by importance or budget.
	Discarded int

	// Deferred counts modify closures moved to the next update.
	Deferred int

	// HooksInvoked counts hook callbacks.
	HooksInvoked int

	// Animations is the number of registered animations after the update.
	Animations int

	// BudgetExceeded is set when the update hit its budget.
	BudgetExceeded bool

	// Pending is set when work is waiting for another update.
	Pending bool

	// Duration is the wall time spent in the update.
	Duration time.Duration
}

// Runtime owns the update epoch, the pending-modify queue, the animation
// scheduler and the context stack. Every variable belongs to exactly one
// runtime.
//
// A runtime is driven by one update goroutine, either by calling Update in
// a host loop or by calling Run.
type Runtime struct {
	config  Config
	clock   Clock
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	sink    UpdateSink
	budget  *budgetTracker

	epoch    atomic.Uint64
	updating atomic.Bool
	stats    *UpdateStats

	queueMu       sync.Mutex
	pending       []*modifyEntry
	deferred      []*modifyEntry
	inbox         []func()
	currentModify *ModifyInfo
	directImp     atomic.Uint64

	wake       chan struct{}
	dispatchCh chan func()

	contexts *ContextStack
	anim     animationScheduler

	frameDuration     *Cell[time.Duration]
	timeScale         *Cell[float64]
	animationsEnabled *Cell[bool]

	observers hookList

	statsMu   sync.Mutex
	lastStats UpdateStats
}

// NewRuntime creates a runtime.
//
// Example:
//
//	rt := rvar.NewRuntime(
//	    rvar.WithLogger(logger),
//	    rvar.WithMetrics(rvar.NewMetrics()),
//	)
func NewRuntime(opts ...RuntimeOption) *Runtime {
	o := runtimeOptions{config: DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = SystemClock()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}
	if o.config.FrameDuration <= 0 {
		o.config.FrameDuration = DefaultFrameDuration
	}
	if o.config.DispatchQueueSize <= 0 {
		o.config.DispatchQueueSize = DefaultDispatchQueueSize
	}

	rt := &Runtime{
		config:     o.config,
		clock:      o.clock,
		logger:     o.logger,
		metrics:    o.metrics,
		tracer:     o.tracer,
		sink:       o.sink,
		budget:     newBudgetTracker(o.config.Budget, o.clock),
		wake:       make(chan struct{}, 1),
		dispatchCh: make(chan func(), o.config.DispatchQueueSize),
	}
	if rt.sink == nil {
		rt.sink = &UpdateRequests{}
	}
	rt.epoch.Store(1)
	rt.directImp.Store(1)
	rt.anim.imp = 1
	rt.contexts = newContextStack()

	rt.frameDuration = New(rt, o.config.FrameDuration)
	rt.timeScale = New(rt, o.config.TimeScale)
	rt.animationsEnabled = New(rt, o.config.AnimationsEnabled)
	return rt
}

// Epoch returns the current update epoch.
func (rt *Runtime) Epoch() UpdateID {
	return UpdateID(rt.epoch.Load())
}

// Clock returns the runtime clock.
func (rt *Runtime) Clock() Clock {
	return rt.clock
}

// Logger returns the runtime logger.
func (rt *Runtime) Logger() *slog.Logger {
	return rt.logger
}

// Contexts returns the context stack used to resolve context variables.
func (rt *Runtime) Contexts() *ContextStack {
	return rt.contexts
}

// FrameDurationVar is the animation frame interval.
func (rt *Runtime) FrameDurationVar() *Cell[time.Duration] {
	return rt.frameDuration
}

// TimeScaleVar multiplies elapsed animation time.
func (rt *Runtime) TimeScaleVar() *Cell[float64] {
	return rt.timeScale
}

// AnimationsEnabledVar turns animations on or off. Disabled animations jump
// to their end.
func (rt *Runtime) AnimationsEnabledVar() *Cell[bool] {
	return rt.animationsEnabled
}

// CurrentModify returns the info attached to modify requests made right
// now: the importance of the running animation or apply step, or the
// direct importance otherwise.
func (rt *Runtime) CurrentModify() ModifyInfo {
	rt.queueMu.Lock()
	defer rt.queueMu.Unlock()
	return rt.currentModifyLocked()
}

func (rt *Runtime) currentModifyLocked() ModifyInfo {
	if rt.currentModify != nil {
		return *rt.currentModify
	}
	return ModifyInfo{importance: rt.directImp.Load()}
}

func (rt *Runtime) enterModify(info ModifyInfo) *ModifyInfo {
	rt.queueMu.Lock()
	prev := rt.currentModify
	rt.currentModify = &info
	rt.queueMu.Unlock()
	return prev
}

func (rt *Runtime) exitModify(prev *ModifyInfo) {
	rt.queueMu.Lock()
	rt.currentModify = prev
	rt.queueMu.Unlock()
}

// schedule queues a modify closure for target.
func (rt *Runtime) schedule(target applier, fn any) {
	rt.queueMu.Lock()
	e := &modifyEntry{target: target, info: rt.currentModifyLocked(), fn: fn}
	if target.isApplying() {
		// Re-entrant modify of a variable that is applying runs next epoch.
		rt.deferred = append(rt.deferred, e)
	} else {
		rt.pending = append(rt.pending, e)
	}
	rt.queueMu.Unlock()
	rt.wakeUp()
}

// post queues fn to run on the update goroutine at the start of the next
// update, with direct importance.
func (rt *Runtime) post(fn func()) {
	rt.queueMu.Lock()
	rt.inbox = append(rt.inbox, fn)
	rt.queueMu.Unlock()
	rt.wakeUp()
}

func (rt *Runtime) wakeUp() {
	select {
	case rt.wake <- struct{}{}:
	default:
	}
}

// Wake returns a channel that receives when the runtime has work.
func (rt *Runtime) Wake() <-chan struct{} {
	return rt.wake
}

// HasPendingUpdates reports whether modifies are waiting to be applied.
func (rt *Runtime) HasPendingUpdates() bool {
	rt.queueMu.Lock()
	defer rt.queueMu.Unlock()
	return len(rt.pending) > 0 || len(rt.deferred) > 0 || len(rt.inbox) > 0
}

// NextDeadline returns when the next animation frame is due.
func (rt *Runtime) NextDeadline() (time.Time, bool) {
	return rt.anim.nextDeadline()
}

// LastUpdateStats returns the stats of the last completed update. Safe to
// call from any goroutine.
func (rt *Runtime) LastUpdateStats() UpdateStats {
	rt.statsMu.Lock()
	defer rt.statsMu.Unlock()
	return rt.lastStats
}

// OnUpdate registers fn to run at the end of every update, after all
// hooks. Every value changed by the update is observable from fn.
func (rt *Runtime) OnUpdate(fn func(stats UpdateStats)) VarHandle {
	return rt.observers.push(false, func(args *HookArgs) bool {
		if stats, ok := DowncastValue[UpdateStats](args); ok {
			fn(stats)
		}
		return true
	})
}

// Update runs one update cycle:
//
//  1. animations whose frame is due are ticked,
//  2. the epoch advances,
//  3. values posted by senders are queued,
//  4. the pending queue is drained in passes, each variable applying its
//     closures once per epoch; modifies for a variable already applied in
//     this epoch move to the next one,
//  5. update observers run.
//
// A panic in a hook or modify closure unwinds the update. The rest of the
// queue for that cycle is dropped before the panic continues.
func (rt *Runtime) Update() UpdateStats {
	if !rt.updating.CompareAndSwap(false, true) {
		panic("rvar: Update called while an update is running")
	}

	start := rt.clock.Now()
	wallStart := time.Now()
	_, span := rt.tracer.Start(context.Background(), "rvar.update")

	stats := UpdateStats{}
	finished := false
	defer func() {
		rt.stats = nil
		if !finished {
			rt.queueMu.Lock()
			rt.pending = nil
			rt.currentModify = nil
			rt.queueMu.Unlock()
			span.SetStatus(codes.Error, "update panicked")
			span.End()
		}
		rt.updating.Store(false)
	}()

	rt.stats = &stats
	rt.anim.tick(rt, start)
	stats.Epoch = UpdateID(rt.epoch.Add(1))

	rt.queueMu.Lock()
	inbox := rt.inbox
	rt.inbox = nil
	rt.queueMu.Unlock()
	for _, fn := range inbox {
		fn()
	}

	rt.queueMu.Lock()
	batch := append(rt.deferred, rt.pending...)
	rt.deferred, rt.pending = nil, nil
	rt.queueMu.Unlock()

	applied := make(map[uint64]bool)
	var next []*modifyEntry
	for len(batch) > 0 {
		if rt.budget.exhausted(&stats) {
			stats.BudgetExceeded = true
			rt.queueMu.Lock()
			batch = append(batch, rt.pending...)
			rt.pending = nil
			rt.queueMu.Unlock()
			rt.logger.Warn("update budget exceeded",
				"epoch", stats.Epoch,
				"passes", stats.Passes,
				"applied", stats.Applied,
				"remaining", len(batch),
				"mode", rt.budget.budget.Mode.String())
			if rt.budget.budget.Mode == BudgetDiscard {
				stats.Discarded += len(batch)
				rt.metrics.addDiscarded(len(batch))
			} else {
				next = append(next, batch...)
				stats.Deferred += len(batch)
				rt.metrics.addDeferred(len(batch))
			}
			break
		}

		stats.Passes++
		for _, g := range groupEntries(batch) {
			id := g.target.ID()
			if applied[id] {
				next = append(next, g.entries...)
				stats.Deferred += len(g.entries)
				rt.metrics.addDeferred(len(g.entries))
				continue
			}
			applied[id] = true
			g.target.applyModifies(g.entries)
		}

		rt.queueMu.Lock()
		batch = rt.pending
		rt.pending = nil
		next = append(next, rt.deferred...)
		stats.Deferred += len(rt.deferred)
		rt.metrics.addDeferred(len(rt.deferred))
		rt.deferred = nil
		rt.queueMu.Unlock()
	}

	rt.anim.sweep(rt)

	rt.queueMu.Lock()
	rt.deferred = append(next, rt.deferred...)
	rt.deferred = append(rt.deferred, rt.pending...)
	rt.pending = nil
	stats.Pending = len(rt.deferred) > 0 || len(rt.inbox) > 0 || len(rt.pending) > 0
	rt.queueMu.Unlock()

	rt.anim.resetStart()
	stats.Animations = rt.anim.count()
	stats.Duration = time.Since(wallStart)
	rt.metrics.setAnimations(stats.Animations)

	rt.metrics.observeUpdate(stats, stats.Duration)
	span.SetAttributes(
		attribute.Int64("rvar.epoch", int64(stats.Epoch)),
		attribute.Int("rvar.passes", stats.Passes),
		attribute.Int("rvar.applied", stats.Applied),
		attribute.Int("rvar.discarded", stats.Discarded),
		attribute.Int("rvar.deferred", stats.Deferred),
		attribute.Int("rvar.hooks", stats.HooksInvoked),
	)
	if stats.BudgetExceeded {
		span.RecordError(ErrBudgetExceeded)
	}
	span.End()
	finished = true

	rt.statsMu.Lock()
	rt.lastStats = stats
	rt.statsMu.Unlock()

	if rt.config.Debug.LogUpdates {
		rt.logger.Debug("update",
			"epoch", stats.Epoch,
			"passes", stats.Passes,
			"applied", stats.Applied,
			"discarded", stats.Discarded,
			"deferred", stats.Deferred,
			"hooks", stats.HooksInvoked)
	}

	rt.observers.notify(&HookArgs{value: Box(stats)})

	if stats.Pending {
		rt.wakeUp()
	}
	return stats
}

type entryGroup struct {
	target  applier
	entries []*modifyEntry
}

// groupEntries groups a batch per variable, keeping submission order both
// across variables (first appearance) and within a variable.
func groupEntries(batch []*modifyEntry) []*entryGroup {
	index := make(map[uint64]int, len(batch))
	groups := make([]*entryGroup, 0, len(batch))
	for _, e := range batch {
		id := e.target.ID()
		i, ok := index[id]
		if !ok {
			i = len(groups)
			index[id] = i
			groups = append(groups, &entryGroup{target: e.target})
		}
		groups[i].entries = append(groups[i].entries, e)
	}
	return groups
}

func (rt *Runtime) countApplied(n int) {
	if rt.stats != nil {
		rt.stats.Applied += n
	}
	rt.metrics.addApplied(n)
}

func (rt *Runtime) discardModify(varID, importance, current uint64) {
	if rt.stats != nil {
		rt.stats.Discarded++
	}
	rt.metrics.addDiscarded(1)
	if rt.config.Debug.LogDiscarded {
		rt.logger.Debug("modify discarded",
			"var", varID,
			"importance", importance,
			"current", current)
	}
}

func (rt *Runtime) countHooks(invoked, pruned int) {
	if rt.stats != nil {
		rt.stats.HooksInvoked += invoked
	}
	rt.metrics.addHooks(invoked, pruned)
}

// Dispatch queues fn to run on the update goroutine driven by Run. It
// never blocks; when the queue is full the callback is discarded and
// ErrDispatchQueueFull returned.
func (rt *Runtime) Dispatch(fn func()) error {
	select {
	case rt.dispatchCh <- fn:
		return nil
	default:
		rt.logger.Warn("dispatch queue full, discarding callback")
		return ErrDispatchQueueFull
	}
}

// Run turns the calling goroutine into the update goroutine. It runs an
// update whenever modifies are queued, a dispatched callback ran or an
// animation frame is due, until ctx is done.
//
// A panic inside an update is logged and the cycle is abandoned; the loop
// keeps running.
func (rt *Runtime) Run(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		rt.runCycle()

		if deadline, ok := rt.NextDeadline(); ok {
			d := deadline.Sub(rt.clock.Now())
			if d < 0 {
				d = 0
			}
			timer.Reset(d)
		} else {
			timer.Stop()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-rt.dispatchCh:
			rt.executeDispatch(fn)
		case <-rt.wake:
		case <-timer.C:
		}
	}
}

func (rt *Runtime) runCycle() {
	defer func() {
		if r := recover(); r != nil {
			rt.logger.Error("update panic",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	rt.Update()
}

// executeDispatch runs a dispatched function with panic recovery.
func (rt *Runtime) executeDispatch(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			rt.logger.Error("dispatch panic",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}
