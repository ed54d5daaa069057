package rvar

import (
	"context"
	"fmt"
	"sync"
)

// Response is the value of a response variable: waiting until a responder
// answers, then done with the answer.
type Response[T any] struct {
	done  bool
	value T
}

// IsWaiting reports whether there is no answer yet.
func (r Response[T]) IsWaiting() bool {
	return !r.done
}

// Done returns the answer if there is one.
func (r Response[T]) Done() (T, bool) {
	return r.value, r.done
}

func (r Response[T]) String() string {
	if !r.done {
		return "waiting"
	}
	return fmt.Sprintf("done(%v)", r.value)
}

// Responder answers a response variable once. Respond and Wait may be
// called from any goroutine.
type Responder[T any] struct {
	rt   *Runtime
	cell *Cell[Response[T]]

	once  sync.Once
	done  chan struct{}
	value T
}

// NewResponse creates a waiting response variable and the responder that
// answers it.
func NewResponse[T any](rt *Runtime) (*Responder[T], Var[Response[T]]) {
	r := &Responder[T]{
		rt:   rt,
		cell: New(rt, Response[T]{}),
		done: make(chan struct{}),
	}
	return r, r.cell.ReadOnly()
}

// Respond creates a response variable that is already done.
func Respond[T any](rt *Runtime, value T) Var[Response[T]] {
	return Const(rt, Response[T]{done: true, value: value})
}

// Respond answers the response. The variable changes in the next update.
// Returns false if it was already answered.
func (r *Responder[T]) Respond(value T) bool {
	answered := false
	r.once.Do(func() {
		answered = true
		r.value = value
		close(r.done)
		cell := r.cell
		r.rt.post(func() {
			_ = cell.Set(Response[T]{done: true, value: value})
		})
	})
	return answered
}

// Wait blocks until the response is answered or ctx is done.
func (r *Responder[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-r.done:
		return r.value, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// WaitNew blocks until v commits a new value and returns it. It must not be
// called from the update goroutine, which would never run the update.
func WaitNew[T any](ctx context.Context, v Var[T]) (T, error) {
	ch := make(chan T, 1)
	h := v.Hook(func(args *HookArgs) bool {
		if value, ok := DowncastValue[T](args); ok {
			select {
			case ch <- cloneValue(value):
			default:
			}
		}
		return false
	})
	defer h.Drop()

	select {
	case value := <-ch:
		return value, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
