// Package system provides the wall clock used for job timestamps.
package system

import "time"

// Clock implements crawler.Clock. Timestamps are UTC with millisecond
// precision so they survive JSON and Postgres round trips unchanged.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time.
func (Clock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
