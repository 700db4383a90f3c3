package booking

import "time"

// Clock abstracts time for testing notice windows and slot arithmetic.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
