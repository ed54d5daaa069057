package rvar_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/rvar/pkg/rvar"
	"github.com/vango-dev/rvar/pkg/rvartest"
)

// chain binds a -> b -> c -> d.
func chain(rt *rvar.Runtime) (a, b, c, d *rvar.Cell[int]) {
	a, b, c, d = rvar.New(rt, 0), rvar.New(rt, 0), rvar.New(rt, 0), rvar.New(rt, 0)
	rvar.Bind[int](a, b).Perm()
	rvar.Bind[int](b, c).Perm()
	rvar.Bind[int](c, d).Perm()
	return a, b, c, d
}

func TestRuntime_EpochAdvancesPerUpdate(t *testing.T) {
	h := rvartest.NewHarness(t)
	start := h.Runtime.Epoch()

	stats := h.Update()
	if stats.Epoch != start+1 {
		t.Errorf("expected epoch %d, got %d", start+1, stats.Epoch)
	}
	if h.Runtime.Epoch() != stats.Epoch {
		t.Errorf("expected runtime epoch %d, got %d", stats.Epoch, h.Runtime.Epoch())
	}
	if last := h.Runtime.LastUpdateStats(); last.Epoch != stats.Epoch {
		t.Errorf("expected last stats epoch %d, got %d", stats.Epoch, last.Epoch)
	}
}

func TestRuntime_BudgetDefer(t *testing.T) {
	h := rvartest.NewHarness(t, rvar.WithBudget(rvar.UpdateBudget{MaxPasses: 2}))
	a, b, c, d := chain(h.Runtime)

	a.Set(1)
	stats := h.Update()

	if !stats.BudgetExceeded {
		t.Error("expected budget to be exceeded")
	}
	if stats.Deferred != 1 {
		t.Errorf("expected 1 deferred modify, got %d", stats.Deferred)
	}
	if !stats.Pending {
		t.Error("expected pending work")
	}
	if b.Get() != 1 || c.Get() != 0 {
		t.Errorf("expected b=1 c=0, got b=%d c=%d", b.Get(), c.Get())
	}

	if n := h.Settle(); n != 1 {
		t.Errorf("expected 1 more update, got %d", n)
	}
	if c.Get() != 1 || d.Get() != 1 {
		t.Errorf("expected c=1 d=1, got c=%d d=%d", c.Get(), d.Get())
	}
}

func TestRuntime_BudgetDiscard(t *testing.T) {
	h := rvartest.NewHarness(t, rvar.WithBudget(rvar.UpdateBudget{
		MaxPasses: 2,
		Mode:      rvar.BudgetDiscard,
	}))
	a, b, c, d := chain(h.Runtime)

	a.Set(1)
	stats := h.Update()

	if stats.Discarded != 1 {
		t.Errorf("expected 1 discarded modify, got %d", stats.Discarded)
	}
	if stats.Pending {
		t.Error("expected no pending work")
	}
	h.Settle()
	if b.Get() != 1 || c.Get() != 0 || d.Get() != 0 {
		t.Errorf("expected b=1 c=0 d=0, got b=%d c=%d d=%d", b.Get(), c.Get(), d.Get())
	}
}

func TestRuntime_BudgetMaxModifications(t *testing.T) {
	h := rvartest.NewHarness(t, rvar.WithBudget(rvar.UpdateBudget{MaxModifications: 1}))
	a, b, _, _ := chain(h.Runtime)

	a.Set(1)
	stats := h.Update()

	if !stats.BudgetExceeded || stats.Applied != 1 {
		t.Errorf("expected exceeded budget after 1 modify, got %+v", stats)
	}
	if b.Get() != 0 {
		t.Errorf("expected b=0, got %d", b.Get())
	}
}

func TestRuntime_OnUpdate(t *testing.T) {
	h := rvartest.NewHarness(t)
	v := rvar.New(h.Runtime, 0)
	var seen []int
	obs := h.Runtime.OnUpdate(func(stats rvar.UpdateStats) {
		seen = append(seen, v.Get())
	})

	v.Set(1)
	h.Update()
	v.Set(2)
	h.Update()
	obs.Drop()
	v.Set(3)
	h.Update()

	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("expected [1 2], got %v", seen)
	}
}

func TestRuntime_ReentrantUpdatePanics(t *testing.T) {
	h := rvartest.NewHarness(t)
	var recovered any
	obs := h.Runtime.OnUpdate(func(rvar.UpdateStats) {
		defer func() { recovered = recover() }()
		h.Runtime.Update()
	})
	defer obs.Drop()

	h.Update()
	if recovered == nil {
		t.Error("expected nested Update to panic")
	}
}

func TestRuntime_PanicInHookUnwindsUpdate(t *testing.T) {
	h := rvartest.NewHarness(t)
	v := rvar.New(h.Runtime, 0)
	hook := v.Hook(func(args *rvar.HookArgs) bool {
		panic("boom")
	})

	v.Set(1)
	func() {
		defer func() {
			if r := recover(); r != "boom" {
				t.Errorf("expected boom, got %v", r)
			}
		}()
		h.Update()
	}()
	hook.Drop()

	v.Set(2)
	h.Update()
	rvartest.ExpectValue[int](t, v, 2)
}

func TestRuntime_Dispatch(t *testing.T) {
	rt := rvar.NewRuntime(rvar.WithLogger(slog.New(slog.DiscardHandler)))
	v := rvar.New(rt, 0)

	done := make(chan struct{}, 1)
	obs := rt.OnUpdate(func(rvar.UpdateStats) {
		if v.Get() == 1 {
			select {
			case done <- struct{}{}:
			default:
			}
		}
	})
	defer obs.Drop()

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() { errs <- rt.Run(ctx) }()

	if err := rt.Dispatch(func() { panic("dispatch panic") }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := rt.Dispatch(func() { v.Set(1) }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for dispatched set")
	}

	cancel()
	if err := <-errs; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRuntime_DispatchQueueFull(t *testing.T) {
	cfg := rvar.DefaultConfig()
	cfg.DispatchQueueSize = 1
	rt := rvar.NewRuntime(
		rvar.WithConfig(cfg),
		rvar.WithLogger(slog.New(slog.DiscardHandler)),
	)

	if err := rt.Dispatch(func() {}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := rt.Dispatch(func() {}); !errors.Is(err, rvar.ErrDispatchQueueFull) {
		t.Errorf("expected ErrDispatchQueueFull, got %v", err)
	}
}

func TestRuntime_NextDeadline(t *testing.T) {
	h := rvartest.NewHarness(t)
	if _, ok := h.Runtime.NextDeadline(); ok {
		t.Error("expected no deadline without animations")
	}

	anim := h.Runtime.Animate(func(*rvar.Animation) {})
	defer anim.Drop()
	h.Update()

	deadline, ok := h.Runtime.NextDeadline()
	if !ok {
		t.Fatal("expected a deadline")
	}
	if want := rvartest.Epoch.Add(rvar.DefaultFrameDuration); !deadline.Equal(want) {
		t.Errorf("expected next frame at %v, got %v", want, deadline)
	}
}

func metricValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		m := f.GetMetric()[0]
		switch {
		case m.GetCounter() != nil:
			return m.GetCounter().GetValue()
		case m.GetGauge() != nil:
			return m.GetGauge().GetValue()
		case m.GetHistogram() != nil:
			return float64(m.GetHistogram().GetSampleCount())
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := rvartest.NewHarness(t,
		rvar.WithMetrics(rvar.NewMetrics(rvar.WithRegistry(reg))),
		rvar.WithBudget(rvar.UpdateBudget{MaxPasses: 2}),
	)
	a, _, _, _ := chain(h.Runtime)

	a.Set(1)
	h.Update()
	h.Settle()

	tests := []struct {
		name string
		want float64
	}{
		{"rvar_updates_total", 2},
		{"rvar_modifications_applied_total", 4},
		{"rvar_modifications_deferred_total", 1},
		{"rvar_budget_exceeded_total", 1},
		{"rvar_update_duration_seconds", 2},
		{"rvar_update_passes", 2},
	}
	for _, tt := range tests {
		if got := metricValue(t, reg, tt.name); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestMetrics_AnimationsActive(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := rvartest.NewHarness(t, rvar.WithMetrics(rvar.NewMetrics(rvar.WithRegistry(reg))))

	anim := h.Runtime.Animate(func(*rvar.Animation) {})
	h.Update()
	if got := metricValue(t, reg, "rvar_animations_active"); got != 1 {
		t.Errorf("expected 1 active animation, got %v", got)
	}

	anim.Drop()
	h.Frame()
	if got := metricValue(t, reg, "rvar_animations_active"); got != 0 {
		t.Errorf("expected 0 active animations, got %v", got)
	}
}

func TestTraceValue(t *testing.T) {
	h := rvartest.NewHarness(t, rvar.WithTracer(noop.NewTracerProvider().Tracer("test")))
	v := rvar.New(h.Runtime, 0)

	th := rvar.TraceValue(v, nil, "counter")
	if th.IsDummy() {
		t.Fatal("expected a live handle")
	}
	defer th.Drop()

	v.Set(1)
	h.Update()
	rvartest.ExpectValue[int](t, v, 1)

	if !rvar.TraceValue(rvar.Const(h.Runtime, 1), nil, "const").IsDummy() {
		t.Error("expected dummy handle for a constant")
	}
}
