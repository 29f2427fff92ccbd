package core

import "time"

// Clock abstracts wall time so lifecycle timestamps are testable.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now returns the current time from the wrapped function.
func (f ClockFunc) Now() time.Time { return f() }

func systemClock() Clock { return ClockFunc(func() time.Time { return time.Now().UTC() }) }
