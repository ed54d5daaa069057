package rvar

import "time"

// Clock is the time source for animations and update stats.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// SystemClock returns the wall clock.
func SystemClock() Clock {
	return systemClock{}
}
