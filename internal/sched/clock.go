package sched

import "time"

// Clock provides the current time. The interface exists so tests can
// drive interpolation deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock is the default Clock backed by the standard library.
// time.Now carries a monotonic reading, which is what fade elapsed-time
// math needs.
var SystemClock Clock = systemClock{}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}
