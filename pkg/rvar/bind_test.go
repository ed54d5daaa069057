package rvar_test

import (
	"strconv"
	"testing"

	"github.com/vango-dev/rvar/pkg/rvar"
	"github.com/vango-dev/rvar/pkg/rvartest"
)

func TestBind(t *testing.T) {
	h := rvartest.NewHarness(t)
	source := rvar.New(h.Runtime, 1)
	target := rvar.New(h.Runtime, 0)
	handle := rvar.Bind[int](source, target)

	if got := target.Get(); got != 0 {
		t.Errorf("expected Bind not to copy the current value, got %d", got)
	}

	source.Set(2)
	h.Update()
	if got := target.Get(); got != 2 {
		t.Errorf("expected 2, got %d", got)
	}

	handle.Drop()
	source.Set(3)
	h.Update()
	if got := target.Get(); got != 2 {
		t.Errorf("expected dropped binding to stop, got %d", got)
	}
}

func TestSetBind(t *testing.T) {
	h := rvartest.NewHarness(t)
	source := rvar.New(h.Runtime, 7)
	target := rvar.New(h.Runtime, 0)
	handle := rvar.SetBind[int](source, target)
	defer handle.Drop()

	h.Update()
	if got := target.Get(); got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
}

func TestBind_DummyHandles(t *testing.T) {
	h := rvartest.NewHarness(t)
	cell := rvar.New(h.Runtime, 1)

	if !rvar.Bind(rvar.Const(h.Runtime, 1), rvar.Var[int](cell)).IsDummy() {
		t.Error("expected dummy handle for static source")
	}
	if !rvar.Bind(rvar.Var[int](cell), rvar.Const(h.Runtime, 1)).IsDummy() {
		t.Error("expected dummy handle for read-only target")
	}
}

func TestBindMap(t *testing.T) {
	h := rvartest.NewHarness(t)
	n := rvar.New(h.Runtime, 0)
	text := rvar.New(h.Runtime, "")
	handle := rvar.BindMap[int, string](n, text, strconv.Itoa)
	defer handle.Drop()

	n.Set(12)
	h.Update()
	if got := text.Get(); got != "12" {
		t.Errorf("expected 12, got %s", got)
	}
}

func TestBindFilterMap_SkipsRejected(t *testing.T) {
	h := rvartest.NewHarness(t)
	n := rvar.New(h.Runtime, 0)
	positive := rvar.New(h.Runtime, 0)
	handle := rvar.BindFilterMap[int, int](n, positive, func(i int) (int, bool) { return i, i > 0 })
	defer handle.Drop()
	rec := rvartest.Record[int](positive)

	n.Set(-1)
	h.Update()
	n.Set(4)
	h.Update()

	rec.Expect(t, 4)
}

func TestBind_ChainVisibleInOneUpdate(t *testing.T) {
	h := rvartest.NewHarness(t)
	a := rvar.New(h.Runtime, 0)
	b := rvar.New(h.Runtime, 0)
	c := rvar.New(h.Runtime, 0)
	d := rvar.New(h.Runtime, 0)
	var handles rvar.VarHandles
	handles.Add(rvar.Bind[int](a, b))
	handles.Add(rvar.Bind[int](b, c))
	handles.Add(rvar.Bind[int](c, d))
	defer handles.Drop()

	var seen []int
	var allNew bool
	obs := h.Runtime.OnUpdate(func(rvar.UpdateStats) {
		seen = []int{a.Get(), b.Get(), c.Get(), d.Get()}
		allNew = a.IsNew() && b.IsNew() && c.IsNew() && d.IsNew()
	})
	defer obs.Drop()

	a.Set(1)
	stats := h.Update()

	for i, v := range seen {
		if v != 1 {
			t.Errorf("expected variable %d to be 1 in the update observer, got %d", i, v)
		}
	}
	if !allNew {
		t.Error("expected every variable of the chain to be new in the same epoch")
	}
	if stats.Passes != 4 {
		t.Errorf("expected 4 passes, got %d", stats.Passes)
	}
	if stats.Pending {
		t.Error("expected no pending work")
	}
}

func TestBind_ForwardsTags(t *testing.T) {
	h := rvartest.NewHarness(t)
	a := rvar.New(h.Runtime, 0)
	b := rvar.New(h.Runtime, 0)
	bh := rvar.Bind[int](a, b)
	defer bh.Drop()

	var tagged bool
	hook := b.Hook(func(args *rvar.HookArgs) bool {
		tagged = rvar.HasTag(args, "from-a")
		return true
	})
	defer hook.Drop()

	a.Modify(func(m *rvar.Modify[int]) {
		m.Set(1)
		m.PushTag("from-a")
	})
	h.Update()

	if !tagged {
		t.Error("expected tag to be forwarded to the target")
	}
}

func TestBindBidi_Terminates(t *testing.T) {
	h := rvartest.NewHarness(t)
	a := rvar.New(h.Runtime, 0)
	b := rvar.New(h.Runtime, 0)
	handle := rvar.BindBidi[int](a, b)
	defer handle.Drop()
	recA := rvartest.Record[int](a)
	recB := rvartest.Record[int](b)

	a.Set(1)
	if n := h.Settle(); n != 1 {
		t.Errorf("expected to settle in 1 update, got %d", n)
	}
	recA.Expect(t, 1)
	recB.Expect(t, 1)

	b.Set(2)
	h.Settle()
	if got := a.Get(); got != 2 {
		t.Errorf("expected a to follow b, got %d", got)
	}
	recA.Expect(t, 1, 2)
	recB.Expect(t, 1, 2)
}

func TestBindBidi_RingTerminates(t *testing.T) {
	h := rvartest.NewHarness(t)
	a := rvar.New(h.Runtime, 0)
	b := rvar.New(h.Runtime, 0)
	c := rvar.New(h.Runtime, 0)
	var handles rvar.VarHandles
	handles.Add(rvar.BindBidi[int](a, b))
	handles.Add(rvar.BindBidi[int](b, c))
	handles.Add(rvar.BindBidi[int](c, a))
	defer handles.Drop()

	a.Set(1)
	n := h.Settle()

	if n > 3 {
		t.Errorf("expected the ring to settle quickly, took %d updates", n)
	}
	for name, v := range map[string]*rvar.Cell[int]{"a": a, "b": b, "c": c} {
		if got := v.Get(); got != 1 {
			t.Errorf("expected %s to be 1, got %d", name, got)
		}
	}
}

func TestBindMapBidi(t *testing.T) {
	h := rvartest.NewHarness(t)
	n := rvar.New(h.Runtime, 1)
	text := rvar.New(h.Runtime, "")
	handle := rvar.BindMapBidi[int, string](n, text, strconv.Itoa, func(s string) int {
		i, _ := strconv.Atoi(s)
		return i
	})
	defer handle.Drop()

	n.Set(5)
	h.Settle()
	if got := text.Get(); got != "5" {
		t.Errorf("expected 5, got %s", got)
	}

	text.Set("9")
	h.Settle()
	if got := n.Get(); got != 9 {
		t.Errorf("expected 9, got %d", got)
	}
}

func TestBindBidi_DropStopsBothDirections(t *testing.T) {
	h := rvartest.NewHarness(t)
	a := rvar.New(h.Runtime, 0)
	b := rvar.New(h.Runtime, 0)
	handle := rvar.BindBidi[int](a, b)
	handle.Drop()

	a.Set(1)
	b.Set(2)
	h.Settle()

	if a.Get() != 1 || b.Get() != 2 {
		t.Errorf("expected a=1 b=2, got a=%d b=%d", a.Get(), b.Get())
	}
}

func TestSubscribe(t *testing.T) {
	h := rvartest.NewHarness(t)
	v := rvar.New(h.Runtime, 0)
	handle := rvar.Subscribe(v, rvar.OpRender, 7)
	defer handle.Drop()
	other := rvar.Subscribe(v, rvar.OpRender, 7)
	defer other.Drop()

	v.Set(1)
	h.Update()

	reqs := h.Runtime.TakeUpdateRequests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 deduplicated request, got %d", len(reqs))
	}
	want := rvar.UpdateRequest{Op: rvar.OpRender, Widget: 7, VarID: v.ID()}
	if reqs[0] != want {
		t.Errorf("expected %+v, got %+v", want, reqs[0])
	}
	if reqs := h.Runtime.TakeUpdateRequests(); len(reqs) != 0 {
		t.Errorf("expected requests to be taken, got %d", len(reqs))
	}
	if !rvar.Subscribe(rvar.Const(h.Runtime, 1), rvar.OpUpdate, 1).IsDummy() {
		t.Error("expected dummy handle for static variable")
	}
}

type sinkFunc func(op rvar.UpdateOp, widget rvar.WidgetID, varID uint64)

func (f sinkFunc) RequestUpdate(op rvar.UpdateOp, widget rvar.WidgetID, varID uint64) {
	f(op, widget, varID)
}

func TestSubscribe_CustomSink(t *testing.T) {
	var ops []rvar.UpdateOp
	h := rvartest.NewHarness(t, rvar.WithUpdateSink(sinkFunc(func(op rvar.UpdateOp, _ rvar.WidgetID, _ uint64) {
		ops = append(ops, op)
	})))
	v := rvar.New(h.Runtime, 0)
	h1 := rvar.Subscribe(v, rvar.OpLayout, 1)
	h2 := rvar.Subscribe(v, rvar.OpLayout, 1)
	defer h1.Drop()
	defer h2.Drop()

	v.Set(1)
	h.Update()

	if len(ops) != 2 || ops[0] != rvar.OpLayout {
		t.Errorf("expected two layout requests, got %v", ops)
	}
	if h.Runtime.TakeUpdateRequests() != nil {
		t.Error("expected nil requests with a custom sink")
	}
}
