package rvar

import "sync"

// UpdateOp is the kind of work a widget is asked to do when a variable it
// subscribed to changes.
type UpdateOp uint8

const (
	// OpUpdate requests a widget update.
	OpUpdate UpdateOp = iota

	// OpLayout requests a layout pass.
	OpLayout

	// OpRender requests a render.
	OpRender
)

func (op UpdateOp) String() string {
	switch op {
	case OpUpdate:
		return "update"
	case OpLayout:
		return "layout"
	case OpRender:
		return "render"
	default:
		return "unknown"
	}
}

// WidgetID identifies a widget of the host UI.
type WidgetID uint64

// UpdateSink receives the update requests produced by subscriptions. It is
// called on the update goroutine.
type UpdateSink interface {
	RequestUpdate(op UpdateOp, widget WidgetID, varID uint64)
}

// UpdateRequest is one request collected by UpdateRequests.
type UpdateRequest struct {
	Op     UpdateOp
	Widget WidgetID
	VarID  uint64
}

// UpdateRequests is the default UpdateSink. It collects requests, keeping
// the first request per widget and op, until Take is called.
type UpdateRequests struct {
	mu   sync.Mutex
	reqs []UpdateRequest
	seen map[UpdateRequest]bool
}

// RequestUpdate records a request.
func (u *UpdateRequests) RequestUpdate(op UpdateOp, widget WidgetID, varID uint64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	key := UpdateRequest{Op: op, Widget: widget}
	if u.seen == nil {
		u.seen = make(map[UpdateRequest]bool)
	}
	if u.seen[key] {
		return
	}
	u.seen[key] = true
	u.reqs = append(u.reqs, UpdateRequest{Op: op, Widget: widget, VarID: varID})
}

// Take returns the collected requests and resets the collection.
func (u *UpdateRequests) Take() []UpdateRequest {
	u.mu.Lock()
	defer u.mu.Unlock()
	reqs := u.reqs
	u.reqs = nil
	u.seen = nil
	return reqs
}

// Subscribe asks the runtime's UpdateSink for op on widget every time v
// changes. Dropping the handle ends the subscription.
func Subscribe(v AnyVar, op UpdateOp, widget WidgetID) VarHandle {
	if v.Capabilities().IsAlwaysStatic() {
		return VarHandle{}
	}
	sink := v.Runtime().sink
	id := v.ID()
	return v.Hook(func(*HookArgs) bool {
		sink.RequestUpdate(op, widget, id)
		return true
	})
}

// TakeUpdateRequests returns the requests collected since the last call
// when the runtime uses the default sink, nil otherwise.
func (rt *Runtime) TakeUpdateRequests() []UpdateRequest {
	if u, ok := rt.sink.(*UpdateRequests); ok {
		return u.Take()
	}
	return nil
}
