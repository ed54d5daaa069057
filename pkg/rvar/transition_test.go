package rvar_test

import (
	"testing"
	"time"

	"github.com/vango-dev/rvar/pkg/easing"
	"github.com/vango-dev/rvar/pkg/rvar"
)

type point struct{ X, Y float64 }

func (p point) Lerp(to point, step easing.Step) point {
	s := step.Fct()
	return point{X: p.X + (to.X-p.X)*s, Y: p.Y + (to.Y-p.Y)*s}
}

func TestLerp(t *testing.T) {
	if got := rvar.Lerp(0.0, 10.0, 0.25); got != 2.5 {
		t.Errorf("float64: expected 2.5, got %v", got)
	}
	if got := rvar.Lerp(float32(0), float32(4), 0.5); got != 2 {
		t.Errorf("float32: expected 2, got %v", got)
	}
	if got := rvar.Lerp(0, 10, 0.26); got != 3 {
		t.Errorf("int: expected rounding to 3, got %v", got)
	}
	if got := rvar.Lerp(10, 0, 0.5); got != 5 {
		t.Errorf("int down: expected 5, got %v", got)
	}
	if got := rvar.Lerp(uint8(10), uint8(0), 1.5); got != 0 {
		t.Errorf("uint8 overshoot: expected clamp to 0, got %v", got)
	}
	if got := rvar.Lerp(time.Second, 3*time.Second, 0.5); got != 2*time.Second {
		t.Errorf("duration: expected 2s, got %v", got)
	}
	if got := rvar.Lerp(point{0, 0}, point{10, 20}, 0.5); got != (point{5, 10}) {
		t.Errorf("transitionable: expected {5 10}, got %v", got)
	}
}

func TestLerp_SwitchesOpaqueValuesAtEnd(t *testing.T) {
	tests := []struct {
		step easing.Step
		want string
	}{
		{0, "a"},
		{0.99, "a"},
		{1, "b"},
		{1.2, "b"},
	}
	for _, tt := range tests {
		if got := rvar.Lerp("a", "b", tt.step); got != tt.want {
			t.Errorf("step %v: expected %q, got %q", tt.step, tt.want, got)
		}
	}
}

func TestTransition_Sample(t *testing.T) {
	tr := rvar.Transition[float64]{From: 100, To: 200}
	if got := tr.Sample(0); got != 100 {
		t.Errorf("expected 100, got %v", got)
	}
	if got := tr.Sample(1); got != 200 {
		t.Errorf("expected 200, got %v", got)
	}
	if got := tr.Sample(-0.5); got != 50 {
		t.Errorf("expected overshoot to 50, got %v", got)
	}
}

func TestKeyedTransition_Sample(t *testing.T) {
	k := rvar.KeyedTransition[float64]{Keys: []rvar.Keyframe[float64]{
		{Offset: 0.25, Value: 10},
		{Offset: 0.75, Value: 50},
		{Offset: 0.75, Value: 60},
		{Offset: 1, Value: 0},
	}}

	tests := []struct {
		step easing.Step
		want float64
	}{
		{0, 10},
		{0.25, 10},
		{0.5, 30},
		{0.75, 50},
		{0.875, 30},
		{1, 0},
		{1.5, 0},
	}
	for _, tt := range tests {
		if got := k.Sample(tt.step); got != tt.want {
			t.Errorf("step %v: expected %v, got %v", tt.step, tt.want, got)
		}
	}

	var empty rvar.KeyedTransition[int]
	if got := empty.Sample(0.5); got != 0 {
		t.Errorf("expected zero value, got %v", got)
	}
}
