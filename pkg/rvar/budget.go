package rvar

import (
	"sync"
	"time"
)

// BudgetMode determines what happens to queued work once an update
// exceeds its budget.
type BudgetMode int

const (
	// BudgetDefer moves the remaining work to the next update (default).
	BudgetDefer BudgetMode = iota

	// BudgetDiscard drops the remaining work.
	BudgetDiscard
)

func (m BudgetMode) String() string {
	switch m {
	case BudgetDefer:
		return "defer"
	case BudgetDiscard:
		return "discard"
	default:
		return "unknown"
	}
}

// UpdateBudget protects against binding or hook cycles that keep
// scheduling work. Zero limits mean no limit.
type UpdateBudget struct {
	// MaxPasses limits how many times the pending queue is drained in one
	// update. Each hop of a binding chain costs one pass.
	MaxPasses int

	// MaxModifications limits how many modify closures run in one update.
	MaxModifications int

	// MaxSendsPerSecond limits Sender and ModifySender traffic.
	MaxSendsPerSecond int

	// Mode decides what happens to work left over when a limit is hit.
	Mode BudgetMode
}

// DefaultUpdateBudget returns the default budget.
func DefaultUpdateBudget() UpdateBudget {
	return UpdateBudget{
		MaxPasses: 1024,
		Mode:      BudgetDefer,
	}
}

// budgetTracker enforces an UpdateBudget.
type budgetTracker struct {
	budget     UpdateBudget
	sendWindow *slidingWindow
}

func newBudgetTracker(b UpdateBudget, clock Clock) *budgetTracker {
	return &budgetTracker{
		budget:     b,
		sendWindow: newSlidingWindow(time.Second, b.MaxSendsPerSecond, clock),
	}
}

// exhausted reports whether stats reached a per-update limit.
func (t *budgetTracker) exhausted(stats *UpdateStats) bool {
	if t.budget.MaxPasses > 0 && stats.Passes >= t.budget.MaxPasses {
		return true
	}
	if t.budget.MaxModifications > 0 && stats.Applied >= t.budget.MaxModifications {
		return true
	}
	return false
}

// checkSend returns ErrBudgetExceeded when senders are over their rate.
func (t *budgetTracker) checkSend() error {
	if !t.sendWindow.tryAdd() {
		return ErrBudgetExceeded
	}
	return nil
}

// slidingWindow tracks events within a time window for rate limiting.
type slidingWindow struct {
	events     []time.Time
	windowSize time.Duration
	maxEvents  int
	clock      Clock
	mu         sync.Mutex
}

func newSlidingWindow(windowSize time.Duration, maxEvents int, clock Clock) *slidingWindow {
	return &slidingWindow{
		windowSize: windowSize,
		maxEvents:  maxEvents,
		clock:      clock,
	}
}

// tryAdd attempts to add an event to the window.
// Returns true if allowed (under limit), false if rate limited.
func (w *slidingWindow) tryAdd() bool {
	if w.maxEvents == 0 {
		return true
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.clock.Now()
	w.trim(now)

	if len(w.events) >= w.maxEvents {
		return false
	}
	w.events = append(w.events, now)
	return true
}

func (w *slidingWindow) trim(now time.Time) {
	cutoff := now.Add(-w.windowSize)
	valid := 0
	for _, t := range w.events {
		if t.After(cutoff) {
			w.events[valid] = t
			valid++
		}
	}
	w.events = w.events[:valid]
}
