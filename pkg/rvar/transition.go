package rvar

import (
	"math"
	"time"

	"github.com/vango-dev/rvar/pkg/easing"
)

// Transitionable is implemented by values that know how to interpolate
// themselves.
type Transitionable[T any] interface {
	Lerp(to T, step easing.Step) T
}

// Lerp interpolates from from to to by step. Numeric kinds interpolate
// linearly, integers round to the nearest value. Transitionable values use
// their own Lerp. Other values switch to to once step reaches 1.
func Lerp[T any](from, to T, step easing.Step) T {
	s := step.Fct()
	var out any
	switch f := any(from).(type) {
	case float64:
		out = lerpFloat(f, any(to).(float64), s)
	case float32:
		out = float32(lerpFloat(float64(f), float64(any(to).(float32)), s))
	case int:
		out = int(lerpInt(int64(f), int64(any(to).(int)), s))
	case int8:
		out = int8(lerpInt(int64(f), int64(any(to).(int8)), s))
	case int16:
		out = int16(lerpInt(int64(f), int64(any(to).(int16)), s))
	case int32:
		out = int32(lerpInt(int64(f), int64(any(to).(int32)), s))
	case int64:
		out = lerpInt(f, any(to).(int64), s)
	case uint:
		out = uint(lerpUint(uint64(f), uint64(any(to).(uint)), s))
	case uint8:
		out = uint8(lerpUint(uint64(f), uint64(any(to).(uint8)), s))
	case uint16:
		out = uint16(lerpUint(uint64(f), uint64(any(to).(uint16)), s))
	case uint32:
		out = uint32(lerpUint(uint64(f), uint64(any(to).(uint32)), s))
	case uint64:
		out = lerpUint(f, any(to).(uint64), s)
	case time.Duration:
		out = time.Duration(lerpInt(int64(f), int64(any(to).(time.Duration)), s))
	case Transitionable[T]:
		return f.Lerp(to, step)
	default:
		if s >= 1 {
			return to
		}
		return from
	}
	return out.(T)
}

func lerpFloat(from, to, s float64) float64 {
	return from + (to-from)*s
}

func lerpInt(from, to int64, s float64) int64 {
	return int64(math.Round(float64(from) + float64(to-from)*s))
}

func lerpUint(from, to uint64, s float64) uint64 {
	v := math.Round(float64(from) + (float64(to)-float64(from))*s)
	if v < 0 {
		return 0
	}
	return uint64(v)
}

// Transition samples the interpolation between two values.
type Transition[T any] struct {
	From T
	To   T
}

// Sample returns the value at step.
func (t Transition[T]) Sample(step easing.Step) T {
	return Lerp(t.From, t.To, step)
}

// Keyframe is a value at an offset in [0, 1] of a keyed transition.
type Keyframe[T any] struct {
	Offset float64
	Value  T
}

// KeyedTransition samples a sequence of keyframes. Keyframes must be sorted
// by offset.
type KeyedTransition[T any] struct {
	Keys []Keyframe[T]
}

// Sample returns the value at step. The step between two keyframes is
// normalized to that segment before interpolating, before the first and
// after the last keyframe the edge value is returned.
func (k KeyedTransition[T]) Sample(step easing.Step) T {
	keys := k.Keys
	if len(keys) == 0 {
		var zero T
		return zero
	}
	s := step.Fct()
	if s <= keys[0].Offset {
		return keys[0].Value
	}
	for i := 1; i < len(keys); i++ {
		a, b := keys[i-1], keys[i]
		if s > b.Offset {
			continue
		}
		span := b.Offset - a.Offset
		if span <= 0 {
			return b.Value
		}
		return Lerp(a.Value, b.Value, easing.Step((s-a.Offset)/span))
	}
	return keys[len(keys)-1].Value
}
