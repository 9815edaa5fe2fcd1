package timeutil

import "time"

// Clock returns the current time. Services keep one so tests can move time.
type Clock func() time.Time

func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

func (c Clock) Unix() int64 {
	return c.Now().Unix()
}
