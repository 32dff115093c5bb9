// Package clock abstracts the two time operations the sensing engine needs
// (reading the time and scheduling a callback) so that schedulers, rate
// limiters and alert timers can be driven deterministically in tests.
package clock

import "time"

// Clock is injected wherever production code would call time.Now or
// time.AfterFunc directly.
type Clock interface {
	Now() time.Time
	// AfterFunc calls f in its own goroutine (Real) or synchronously during
	// Advance (Fake) once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer cancels a pending AfterFunc call.
type Timer interface {
	// Stop reports whether the call was prevented.
	Stop() bool
}

// Real returns the wall clock.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
