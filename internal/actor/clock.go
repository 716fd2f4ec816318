package actor

import "time"

// Clock provides a testable time source for runtimes.
//
// Reducers must not call a Clock. Runtimes schedule timers through it and
// report expirations back to the mailbox as inputs.
type Clock interface {
	Now() time.Time

	// AfterFunc calls f in its own goroutine after d elapses. The returned
	// Timer cancels the pending call.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc call.
type Timer interface {
	// Stop prevents the call from firing. It reports whether the call was
	// still pending.
	Stop() bool
}

// RealClock is a production Clock backed by the time package.
type RealClock struct{}

// Now implements Clock.
func (RealClock) Now() time.Time { return time.Now() }

// AfterFunc implements Clock.
func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
