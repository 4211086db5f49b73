// Package system provides the wall clock used for record timestamps.
package system

import "time"

// Clock implements crawler.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time truncated to microseconds, the
// precision both SQL stores preserve.
func (Clock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
