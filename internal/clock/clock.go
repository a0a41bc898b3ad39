package clock

import "time"

// Clock abstracts time.Now so services and the expiry sweep can be tested
// against a fixed instant.
type Clock interface {
	Now() time.Time
}

// NewSystem returns a clock backed by time.Now in UTC.
func NewSystem() Clock {
	return system{}
}

// NewFixed returns a clock pinned to the given instant, for tests.
func NewFixed(t time.Time) Clock {
	return fixed(t.UTC())
}

type system struct{}

func (system) Now() time.Time { return time.Now().UTC() }

type fixed time.Time

func (f fixed) Now() time.Time { return time.Time(f) }
