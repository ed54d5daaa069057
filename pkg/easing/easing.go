// Package easing provides the time and step factors used by animations and
// the curves that map one to the other.
//
// An animation measures progress as a Time in [0, 1]. An easing function
// transforms that into a Step, which is usually in [0, 1] as well but may
// overshoot (see Back and Elastic). Steps are what interpolation consumes.
//
// Functions are "ease-in" curves. Use the modifiers to change the shape:
//
//	easing.Out(easing.Cubic)   // decelerate
//	easing.InOut(easing.Sine)  // slow at both ends
//
// Use CubicBezier to match a CSS cubic-bezier() timing function.
package easing

import (
	"math"
	"time"
)

// Time is the normalized elapsed time of an animation, always in [0, 1].
type Time float64

// Clamp returns t limited to [0, 1].
func (t Time) Clamp() Time {
	if t < 0 || math.IsNaN(float64(t)) {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// Elapsed computes the normalized time of elapsed over duration. A zero
// duration is always complete.
func Elapsed(duration, elapsed time.Duration) Time {
	if duration <= 0 || elapsed >= duration {
		return 1
	}
	if elapsed <= 0 {
		return 0
	}
	return Time(float64(elapsed) / float64(duration))
}

// Fct returns the factor as a float64.
func (t Time) Fct() float64 {
	return float64(t)
}

// IsStart reports whether t is zero.
func (t Time) IsStart() bool {
	return t <= 0
}

// IsEnd reports whether t reached one.
func (t Time) IsEnd() bool {
	return t >= 1
}

// Reverse returns 1 - t.
func (t Time) Reverse() Time {
	return 1 - t
}

// Step is the output of an easing function, an interpolation factor that
// may fall outside [0, 1].
type Step float64

// Fct returns the step as a float64.
func (s Step) Fct() float64 {
	return float64(s)
}

// Flip returns 1 - s.
func (s Step) Flip() Step {
	return 1 - s
}

// Func maps an animation time to an interpolation step.
type Func func(t Time) Step

// Linear is the identity curve.
func Linear(t Time) Step {
	return Step(t)
}

// Quad is t².
func Quad(t Time) Step {
	return Step(t * t)
}

// Cubic is t³.
func Cubic(t Time) Step {
	return Step(t * t * t)
}

// Quart is t⁴.
func Quart(t Time) Step {
	return Step(t * t * t * t)
}

// Quint is t⁵.
func Quint(t Time) Step {
	return Step(t * t * t * t * t)
}

// Sine follows a quarter sine wave.
func Sine(t Time) Step {
	return Step(1 - math.Cos(float64(t)*math.Pi/2))
}

// Expo grows exponentially, starting at exactly zero.
func Expo(t Time) Step {
	if t <= 0 {
		return 0
	}
	return Step(math.Pow(2, 10*(float64(t)-1)))
}

// Circ follows a quarter circle.
func Circ(t Time) Step {
	f := float64(t)
	return Step(1 - math.Sqrt(1-f*f))
}

// Back moves slightly backwards before accelerating to the end.
func Back(t Time) Step {
	f := float64(t)
	return Step(f*f*f - f*math.Sin(f*math.Pi))
}

// Elastic oscillates with growing amplitude before reaching the end.
func Elastic(t Time) Step {
	f := float64(t)
	if f <= 0 || f >= 1 {
		return Step(f)
	}
	const c = 2 * math.Pi / 3
	return Step(-math.Pow(2, 10*f-10) * math.Sin((10*f-10.75)*c))
}

// Bounce bounces against the start before settling at the end.
func Bounce(t Time) Step {
	return Out(bounceOut)(t)
}

func bounceOut(t Time) Step {
	const n1 = 7.5625
	const d1 = 2.75
	f := float64(t)
	switch {
	case f < 1/d1:
		return Step(n1 * f * f)
	case f < 2/d1:
		f -= 1.5 / d1
		return Step(n1*f*f + 0.75)
	case f < 2.5/d1:
		f -= 2.25 / d1
		return Step(n1*f*f + 0.9375)
	default:
		f -= 2.625 / d1
		return Step(n1*f*f + 0.984375)
	}
}

// None jumps to the end immediately.
func None(Time) Step {
	return 1
}

// StepCeil jumps in steps equal increments, rounding up.
func StepCeil(steps int) Func {
	if steps <= 0 {
		return None
	}
	n := float64(steps)
	return func(t Time) Step {
		return Step(math.Ceil(float64(t)*n) / n)
	}
}

// StepFloor jumps in steps equal increments, rounding down.
func StepFloor(steps int) Func {
	if steps <= 0 {
		return None
	}
	n := float64(steps)
	return func(t Time) Step {
		return Step(math.Floor(float64(t)*n) / n)
	}
}

// In returns f unchanged. It exists for symmetry with the other modifiers.
func In(f Func) Func {
	return f
}

// Out mirrors f so it starts fast and decelerates.
func Out(f Func) Func {
	return func(t Time) Step {
		return f(t.Reverse()).Flip()
	}
}

// InOut applies f in the first half and Out(f) in the second.
func InOut(f Func) Func {
	return func(t Time) Step {
		if t < 0.5 {
			return f(t*2) / 2
		}
		return 1 - f((1-t)*2)/2
	}
}

// OutIn applies Out(f) in the first half and f in the second.
func OutIn(f Func) Func {
	return func(t Time) Step {
		if t < 0.5 {
			return (1 - f(1-t*2)) / 2
		}
		return 0.5 + f(t*2-1)/2
	}
}

// Reverse runs f backwards in time.
func Reverse(f Func) Func {
	return func(t Time) Step {
		return f(t.Reverse())
	}
}

// ReverseOut runs f backwards and flips the result.
func ReverseOut(f Func) Func {
	return func(t Time) Step {
		return f(t.Reverse()).Flip()
	}
}

// CubicBezier returns a curve matching CSS cubic-bezier(x1, y1, x2, y2).
// The curve starts at (0,0) and ends at (1,1).
func CubicBezier(x1, y1, x2, y2 float64) Func {
	return func(t Time) Step {
		x := float64(t)
		if x <= 0 {
			return 0
		}
		if x >= 1 {
			return 1
		}

		u := x
		// Newton-Raphson converges quickly for most inputs.
		for range 8 {
			d := sampleCurve(x1, x2, u) - x
			if math.Abs(d) < 1e-7 {
				return Step(sampleCurve(y1, y2, clampUnit(u)))
			}
			dx := sampleCurveDerivative(x1, x2, u)
			if math.Abs(dx) < 1e-7 {
				break
			}
			u -= d / dx
		}

		// Bisection keeps the solution stable in [0,1].
		lo, hi := 0.0, 1.0
		u = clampUnit(u)
		for range 12 {
			d := sampleCurve(x1, x2, u) - x
			if math.Abs(d) < 1e-7 {
				break
			}
			if d > 0 {
				hi = u
			} else {
				lo = u
			}
			u = (lo + hi) * 0.5
		}

		return Step(sampleCurve(y1, y2, u))
	}
}

// Ease is CSS ease.
var Ease = CubicBezier(0.25, 0.1, 0.25, 1.0)

// EaseIn is CSS ease-in.
var EaseIn = CubicBezier(0.42, 0.0, 1.0, 1.0)

// EaseOut is CSS ease-out.
var EaseOut = CubicBezier(0.0, 0.0, 0.58, 1.0)

// EaseInOut is CSS ease-in-out.
var EaseInOut = CubicBezier(0.42, 0.0, 0.58, 1.0)

func sampleCurve(a, b, t float64) float64 {
	inv := 1 - t
	return 3*inv*inv*t*a + 3*inv*t*t*b + t*t*t
}

func sampleCurveDerivative(a, b, t float64) float64 {
	inv := 1 - t
	return 3*inv*inv*a + 6*inv*t*(b-a) + 3*t*t*(1-b)
}

func clampUnit(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
