package rvar

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrReadOnly matches any *ReadOnlyError with errors.Is.
var ErrReadOnly = errors.New("rvar: variable is read-only")

// ErrBudgetExceeded is returned when an update budget limit is exceeded.
// It is recorded in UpdateStats and returned by senders that are rate
// limited.
var ErrBudgetExceeded = errors.New("rvar: update budget exceeded")

// ErrVarDropped is returned by channel endpoints whose variable was
// collected.
var ErrVarDropped = errors.New("rvar: variable dropped")

// ErrNotAnimating is returned by HookAnimationStop when the variable is not
// being animated.
var ErrNotAnimating = errors.New("rvar: variable is not animating")

// ErrReceiverClosed is returned by Receiver.Recv after Close.
var ErrReceiverClosed = errors.New("rvar: receiver closed")

// ErrDispatchQueueFull is returned by Runtime.Dispatch when the dispatch
// queue cannot accept more callbacks.
var ErrDispatchQueueFull = errors.New("rvar: dispatch queue full")

// ReadOnlyError is returned when Set or Modify targets a variable without
// CapModify. Callers doing best-effort writes may ignore it.
type ReadOnlyError struct {
	Capabilities Capabilities
}

func (e *ReadOnlyError) Error() string {
	return fmt.Sprintf("rvar: cannot modify read-only variable (capabilities: %s)", e.Capabilities)
}

// Is makes errors.Is(err, ErrReadOnly) hold.
func (e *ReadOnlyError) Is(target error) bool {
	return target == ErrReadOnly
}

// BorrowConflictError is the panic value raised when a variable is read
// re-entrantly, for example by calling Get on a variable from inside its
// own With closure.
type BorrowConflictError struct {
	VarID uint64
}

func (e *BorrowConflictError) Error() string {
	return fmt.Sprintf("rvar: variable %d is already borrowed", e.VarID)
}

// ContextScopeError is the panic value raised when context scopes are
// popped out of order.
type ContextScopeError struct {
	Want  uint64
	Found uint64
}

func (e *ContextScopeError) Error() string {
	return fmt.Sprintf("rvar: context scope for %d popped while %d is innermost", e.Want, e.Found)
}

// TypeMismatchError is returned by SetAny when the boxed value has the
// wrong type.
type TypeMismatchError struct {
	Want reflect.Type
	Got  reflect.Type
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("rvar: cannot set %v variable from %v value", e.Want, e.Got)
}
