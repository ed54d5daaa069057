package rvar_test

import (
	"errors"
	"strconv"
	"testing"

	"github.com/vango-dev/rvar/pkg/rvar"
	"github.com/vango-dev/rvar/pkg/rvartest"
)

func TestMap(t *testing.T) {
	h := rvartest.NewHarness(t)
	v := rvar.New(h.Runtime, 1)
	m := rvar.Map[int, string](v, strconv.Itoa)

	if got := m.Get(); got != "1" {
		t.Errorf("expected 1, got %s", got)
	}
	if m.Capabilities().CanModify() {
		t.Errorf("expected read-only capabilities, got %s", m.Capabilities())
	}
	if err := m.Set("2"); !errors.Is(err, rvar.ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}

	v.Set(42)
	h.Update()

	if got := m.Get(); got != "42" {
		t.Errorf("expected 42, got %s", got)
	}
	rvartest.ExpectNew(t, m)
	if m.LastUpdate() != v.LastUpdate() {
		t.Errorf("expected map to update in epoch %d, got %d", v.LastUpdate(), m.LastUpdate())
	}
}

func TestMap_Chain(t *testing.T) {
	h := rvartest.NewHarness(t)
	v := rvar.New(h.Runtime, 2)
	double := rvar.Map[int, int](v, func(i int) int { return i * 2 })
	text := rvar.MapToString[int](double)

	v.Set(5)
	h.Update()

	if got := text.Get(); got != "10" {
		t.Errorf("expected 10, got %s", got)
	}
}

func TestMap_StaticSourceIsConst(t *testing.T) {
	h := rvartest.NewHarness(t)
	m := rvar.Map[int, int](rvar.Const(h.Runtime, 3), func(i int) int { return i + 1 })

	if !m.Capabilities().IsAlwaysStatic() {
		t.Errorf("expected static map, got %s", m.Capabilities())
	}
	if got := m.Get(); got != 4 {
		t.Errorf("expected 4, got %d", got)
	}
}

func TestFilterMap_RejectKeepsValueButIsNew(t *testing.T) {
	h := rvartest.NewHarness(t)
	v := rvar.New(h.Runtime, 3)
	even := rvar.FilterMap[int, int](v, func(i int) (int, bool) { return i, i%2 == 0 }, -1)

	if got := even.Get(); got != -1 {
		t.Errorf("expected fallback -1, got %d", got)
	}

	v.Set(4)
	h.Update()
	if got := even.Get(); got != 4 {
		t.Errorf("expected 4, got %d", got)
	}

	v.Set(5)
	h.Update()
	if got := even.Get(); got != 4 {
		t.Errorf("expected 4 to be kept, got %d", got)
	}
	rvartest.ExpectNew(t, even)
}

func TestMapBidi_WritesThroughInverse(t *testing.T) {
	h := rvartest.NewHarness(t)
	celsius := rvar.New(h.Runtime, 0.0)
	fahrenheit := rvar.MapBidi[float64, float64](celsius,
		func(c float64) float64 { return c*9/5 + 32 },
		func(f float64) float64 { return (f - 32) * 5 / 9 })

	if got := fahrenheit.Get(); got != 32 {
		t.Errorf("expected 32, got %v", got)
	}
	if !fahrenheit.Capabilities().CanModify() {
		t.Errorf("expected modifiable capabilities, got %s", fahrenheit.Capabilities())
	}

	if err := fahrenheit.Set(212); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.Update()

	if got := celsius.Get(); got != 100 {
		t.Errorf("expected celsius 100, got %v", got)
	}
	if got := fahrenheit.Get(); got != 212 {
		t.Errorf("expected fahrenheit 212, got %v", got)
	}
}

func TestFilterMapBidi_InverseRejects(t *testing.T) {
	h := rvartest.NewHarness(t)
	n := rvar.New(h.Runtime, 1)
	text := rvar.FilterMapBidi[int, string](n,
		func(i int) (string, bool) { return strconv.Itoa(i), true },
		func(s string) (int, bool) {
			i, err := strconv.Atoi(s)
			return i, err == nil
		}, "")

	text.Set("nope")
	h.Update()
	if got := n.Get(); got != 1 {
		t.Errorf("expected 1 after rejected write, got %d", got)
	}

	text.Set("7")
	h.Update()
	if got := n.Get(); got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
}

func TestMerge(t *testing.T) {
	h := rvartest.NewHarness(t)
	a := rvar.New(h.Runtime, 1)
	b := rvar.New(h.Runtime, "x")
	m := rvar.Merge2[int, string, string](a, b, func(i int, s string) string {
		return s + strconv.Itoa(i)
	})

	if got := m.Get(); got != "x1" {
		t.Errorf("expected x1, got %s", got)
	}

	a.Set(2)
	b.Set("y")
	h.Update()

	if got := m.Get(); got != "y2" {
		t.Errorf("expected y2, got %s", got)
	}
	rvartest.ExpectNew(t, m)
}

func TestMerge_SeesDerivedInputsCommittedTwice(t *testing.T) {
	h := rvartest.NewHarness(t)
	a := rvar.New(h.Runtime, 1)
	double := rvar.Map[int, int](a, func(i int) int { return i * 2 })
	sum := rvar.Merge2[int, int, int](a, double, func(x, y int) int { return x + y })

	a.Set(5)
	h.Update()

	if got := sum.Get(); got != 15 {
		t.Errorf("expected 15, got %d", got)
	}
}

func TestMergeSlice(t *testing.T) {
	h := rvartest.NewHarness(t)
	vars := []rvar.Var[int]{
		rvar.New(h.Runtime, 1),
		rvar.New(h.Runtime, 2),
		rvar.Const(h.Runtime, 3),
	}
	total := rvar.MergeSlice(vars, func(values []int) int {
		s := 0
		for _, v := range values {
			s += v
		}
		return s
	})

	vars[1].Set(20)
	h.Update()

	if got := total.Get(); got != 24 {
		t.Errorf("expected 24, got %d", got)
	}
}

func TestMergeSlice_EmptyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	rvar.MergeSlice[int, int](nil, func([]int) int { return 0 })
}

func TestFlatMap(t *testing.T) {
	h := rvartest.NewHarness(t)
	a := rvar.New(h.Runtime, "a")
	b := rvar.New(h.Runtime, "b")
	useB := rvar.New(h.Runtime, false)
	current := rvar.FlatMap[bool, string](useB, func(use bool) rvar.Var[string] {
		if use {
			return b
		}
		return a
	})

	if got := current.Get(); got != "a" {
		t.Errorf("expected a, got %s", got)
	}
	if !current.Capabilities().Has(rvar.CapCapsChange) {
		t.Errorf("expected CAPS_CHANGE, got %s", current.Capabilities())
	}

	useB.Set(true)
	h.Update()
	if got := current.Get(); got != "b" {
		t.Errorf("expected b, got %s", got)
	}

	a.Set("a2")
	h.Update()
	if got := current.Get(); got != "b" {
		t.Errorf("expected old inner to be ignored, got %s", got)
	}

	current.Set("b2")
	h.Update()
	if got := b.Get(); got != "b2" {
		t.Errorf("expected write to reach inner variable, got %s", got)
	}
	if got := current.Get(); got != "b2" {
		t.Errorf("expected b2, got %s", got)
	}
}

func TestWhen(t *testing.T) {
	h := rvartest.NewHarness(t)
	pressed := rvar.New(h.Runtime, false)
	hovered := rvar.New(h.Runtime, false)
	normal := rvar.New(h.Runtime, "gray")
	color := rvar.When[string](normal,
		rvar.Case[string](pressed, rvar.Const(h.Runtime, "red")),
		rvar.Case[string](hovered, rvar.Const(h.Runtime, "blue")),
	)

	tests := []struct {
		pressed, hovered bool
		want             string
	}{
		{false, false, "gray"},
		{false, true, "blue"},
		{true, true, "red"},
		{true, false, "red"},
		{false, false, "gray"},
	}
	for _, tt := range tests {
		pressed.Set(tt.pressed)
		hovered.Set(tt.hovered)
		h.Update()
		if got := color.Get(); got != tt.want {
			t.Errorf("pressed=%v hovered=%v: expected %s, got %s", tt.pressed, tt.hovered, tt.want, got)
		}
	}
}

func TestCow(t *testing.T) {
	h := rvartest.NewHarness(t)
	source := rvar.New(h.Runtime, 1)
	cow := rvar.Cow[int](source)

	source.Set(2)
	h.Update()
	if got := cow.Get(); got != 2 {
		t.Errorf("expected cow to follow source, got %d", got)
	}
	if cow.IsCloned() {
		t.Error("expected cow not cloned yet")
	}

	cow.Set(10)
	h.Update()
	if got := cow.Get(); got != 10 {
		t.Errorf("expected 10, got %d", got)
	}
	if got := source.Get(); got != 2 {
		t.Errorf("expected source unchanged, got %d", got)
	}
	if !cow.IsCloned() {
		t.Error("expected cow cloned")
	}

	source.Set(3)
	h.Update()
	if got := cow.Get(); got != 10 {
		t.Errorf("expected detached cow to keep 10, got %d", got)
	}
}

func TestCow_OverReadOnlySourceIsModifiable(t *testing.T) {
	h := rvartest.NewHarness(t)
	source := rvar.New(h.Runtime, 1)
	cow := rvar.Cow(source.ReadOnly())

	if !cow.Capabilities().CanModify() {
		t.Errorf("expected MODIFY, got %s", cow.Capabilities())
	}
	if err := cow.Set(5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.Update()
	if got := cow.Get(); got != 5 {
		t.Errorf("expected 5, got %d", got)
	}
}
