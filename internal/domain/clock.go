package domain

import "time"

// Clock supplies the current time. Injected wherever expiry or baselines
// depend on wall time so tests can drive it deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

// Now returns the current wall time.
func (SystemClock) Now() time.Time {
	return time.Now()
}
