package rvar

import (
	"context"
	"sync"
)

// Sender sets a variable from any goroutine. Values are handed to the
// update goroutine and applied in the next update with direct importance.
type Sender[T any] struct {
	rt     *Runtime
	target WeakVar[T]

	// readOnly is set when the target can never be modified.
	readOnly *ReadOnlyError
}

// NewSender creates a sender for v. The sender does not keep v alive.
// Must be called on the update goroutine.
func NewSender[T any](v Var[T]) *Sender[T] {
	s := &Sender[T]{rt: v.Runtime(), target: v.Downgrade()}
	if caps := v.Capabilities(); caps.IsAlwaysReadOnly() {
		s.readOnly = &ReadOnlyError{Capabilities: caps}
	}
	return s
}

// Send queues value. It fails with ErrVarDropped once the variable was
// collected, with *ReadOnlyError if it can never be modified and with
// ErrBudgetExceeded when senders are over their rate limit. A variable
// that is read-only only in the current context drops the value when it
// is applied.
func (s *Sender[T]) Send(value T) error {
	return s.post(func(v Var[T]) {
		_ = v.Set(value)
	})
}

// post hands fn to the update goroutine. Nothing here may read the state
// of the target, which belongs to the update goroutine.
func (s *Sender[T]) post(fn func(v Var[T])) error {
	if s.readOnly != nil {
		return s.readOnly
	}
	if _, ok := s.target.Upgrade(); !ok {
		return ErrVarDropped
	}
	if err := s.rt.budget.checkSend(); err != nil {
		return err
	}
	target := s.target
	s.rt.post(func() {
		if v, ok := target.Upgrade(); ok {
			fn(v)
		}
	})
	return nil
}

// ModifySender sends modify closures from any goroutine.
type ModifySender[T any] struct {
	s *Sender[T]
}

// NewModifySender creates a modify sender for v. Must be called on the
// update goroutine.
func NewModifySender[T any](v Var[T]) *ModifySender[T] {
	return &ModifySender[T]{s: NewSender(v)}
}

// Send queues fn as a modify of the variable. fn runs on the update
// goroutine.
func (s *ModifySender[T]) Send(fn func(m *Modify[T])) error {
	return s.s.post(func(v Var[T]) {
		_ = v.Modify(fn)
	})
}

// Receiver observes the values committed to a variable from any goroutine.
// The first message is the value at creation. Messages queue without
// bound until received.
type Receiver[T any] struct {
	handle VarHandle

	mu     sync.Mutex
	queue  []T
	closed bool
	notify chan struct{}
}

// NewReceiver creates a receiver for v. Must be called on the update
// goroutine.
func NewReceiver[T any](v Var[T]) *Receiver[T] {
	r := &Receiver[T]{
		queue:  []T{v.Get()},
		notify: make(chan struct{}, 1),
	}
	r.signal()
	r.handle = OnNew(v, func(value T) {
		r.push(value)
	})
	return r
}

func (r *Receiver[T]) push(value T) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.queue = append(r.queue, cloneValue(value))
	r.mu.Unlock()
	r.signal()
}

func (r *Receiver[T]) signal() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// TryRecv returns the next value without blocking.
func (r *Receiver[T]) TryRecv() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) == 0 {
		var zero T
		return zero, false
	}
	v := r.queue[0]
	var zero T
	r.queue[0] = zero
	r.queue = r.queue[1:]
	return v, true
}

// Recv waits for the next value. Queued values are still returned after
// Close; once they are drained Recv fails with ErrReceiverClosed.
func (r *Receiver[T]) Recv(ctx context.Context) (T, error) {
	for {
		if v, ok := r.TryRecv(); ok {
			return v, nil
		}
		r.mu.Lock()
		closed := r.closed
		r.mu.Unlock()
		if closed {
			var zero T
			return zero, ErrReceiverClosed
		}

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-r.notify:
		}
	}
}

// Close stops receiving. The hook on the variable is dropped.
func (r *Receiver[T]) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.handle.Drop()
	r.signal()
}
